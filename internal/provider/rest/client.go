// Package rest implements the budget provider against a YNAB-shaped
// HTTP API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	maxErrorDetail = 200
)

var (
	// ErrUnauthorized indicates the API token is expired or invalid.
	ErrUnauthorized = errors.New("rest: unauthorized (check the API token)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("rest: rate limited")
)

// Config carries the connection settings for the budget API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base URL is required")
	}
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("token is required")
	}
	return nil
}

// Client talks to the budget API with bearer token auth. It implements
// the full provider surface.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *log.Logger
}

// New creates a client from cfg. A zero timeout falls back to 10s.
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rest: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithComponent(log.ComponentProvider),
	}, nil
}

// Fetch returns the budget as a delta since the cursor; an empty cursor
// fetches everything. The cursor is the server knowledge counter carried
// as an opaque string.
func (c *Client) Fetch(ctx context.Context, budgetID, sinceCursor string) (core.Delta, error) {
	knowledge, err := knowledgeFromCursor(sinceCursor)
	if err != nil {
		return core.Delta{}, fmt.Errorf("rest: bad cursor %q: %w", sinceCursor, err)
	}
	path := "/budgets/" + url.PathEscape(budgetID)
	if knowledge > 0 {
		path += fmt.Sprintf("?last_knowledge_of_server=%d", knowledge)
	}

	var resp budgetResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return core.Delta{}, err
	}
	return resp.Data.Budget.toDelta(resp.Data.ServerKnowledge), nil
}

// CreateTransaction posts a new transaction and returns it as the server
// recorded it.
func (c *Client) CreateTransaction(ctx context.Context, budgetID string, tx core.NewTransaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	path := "/budgets/" + url.PathEscape(budgetID) + "/transactions"

	var resp transactionResponse
	if err := c.post(ctx, path, newTransactionToWire(tx), &resp); err != nil {
		return core.Transaction{}, err
	}
	return resp.Data.Transaction.toCore(), nil
}

// UpdateTransaction patches category and memo on an existing transaction.
func (c *Client) UpdateTransaction(ctx context.Context, budgetID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	path := "/budgets/" + url.PathEscape(budgetID) + "/transactions/" + url.PathEscape(id)
	body := patchTransactionRequest{
		Transaction: patchTransactionBody{CategoryID: patch.CategoryID, Memo: patch.Memo},
	}

	var resp transactionResponse
	if err := c.patch(ctx, path, body, &resp); err != nil {
		return core.Transaction{}, err
	}
	return resp.Data.Transaction.toCore(), nil
}

// UpdateMonthCategory sets a category's budgeted amount for a month.
func (c *Client) UpdateMonthCategory(ctx context.Context, budgetID string, month core.Month, categoryID string, budgeted core.Milliunits) error {
	path := "/budgets/" + url.PathEscape(budgetID) + "/months/" + month.String() + "/categories/" + url.PathEscape(categoryID)
	var body patchCategoryRequest
	body.Category.Budgeted = budgeted

	var resp categoryResponse
	return c.patch(ctx, path, body, &resp)
}

// RenamePayee changes a payee's display name.
func (c *Client) RenamePayee(ctx context.Context, budgetID, id, name string) error {
	path := "/budgets/" + url.PathEscape(budgetID) + "/payees/" + url.PathEscape(id)
	var body patchPayeeRequest
	body.Payee.Name = name

	var resp payeeResponse
	return c.patch(ctx, path, body, &resp)
}

// MonthCategories returns the per-category figures for a specific month.
func (c *Client) MonthCategories(ctx context.Context, budgetID string, month core.Month) ([]core.Category, error) {
	path := "/budgets/" + url.PathEscape(budgetID) + "/months/" + month.String()

	var resp monthResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(resp.Data.Month.Categories))
	for _, wc := range resp.Data.Month.Categories {
		out = append(out, wc.toCore())
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) patch(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPatch, path, in, out)
}

// do performs an authenticated request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("rest: encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("rest: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("api request",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds(),
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return fmt.Errorf("rest: %s %s: %w", method, path, core.ErrNotFound)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("rest: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(raw))
		if len(detail) > maxErrorDetail {
			detail = detail[:maxErrorDetail]
		}
		return fmt.Errorf("rest: %s %s: unexpected status %d: %s", method, path, resp.StatusCode, detail)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("rest: parsing response: %w", err)
	}
	return nil
}
