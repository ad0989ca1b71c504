package http

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"bilancio/internal/categorizer"
	"bilancio/internal/core"
	"bilancio/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once a snapshot is available, fetching the
// first one when the cache is still cold.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no snapshot available", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.tracer.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "bilancio_uptime_seconds %d\n", int64(time.Since(s.appMetrics.startedAt).Seconds()))
	fmt.Fprintf(w, "bilancio_requests_total %d\n", m.TotalRequests)
	fmt.Fprintf(w, "bilancio_errors_total %d\n", m.TotalErrors)
	fmt.Fprintf(w, "bilancio_response_time_avg_ms %d\n", m.AverageResponseTime.Milliseconds())
	fmt.Fprintf(w, "bilancio_rate_limited_total %d\n", s.limiter.Limited())
	fmt.Fprintf(w, "bilancio_rate_limit_clients %d\n", s.limiter.ActiveClients())
	fmt.Fprintf(w, "bilancio_writes_total %d\n", atomic.LoadInt64(&s.appMetrics.writes))
	if age, ok := s.svc.SnapshotAge(); ok {
		fmt.Fprintf(w, "bilancio_snapshot_age_seconds %d\n", int64(age.Seconds()))
	} else {
		fmt.Fprintf(w, "bilancio_snapshot_age_seconds -1\n")
	}
}

func (s *Server) countWrite() {
	atomic.AddInt64(&s.appMetrics.writes, 1)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, info)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Refresh(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, info)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind          string `json:"kind"`
		Query         string `json:"query"`
		IncludeHidden bool   `json:"include_hidden"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	kind := core.EntityKind(req.Kind)
	if !kind.IsValid() {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("unknown entity kind %q", req.Kind), nil)
		return
	}
	if kind == core.KindTransaction || kind == core.KindScheduled {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("%s entities are addressed by ID, not name", kind), nil)
		return
	}
	match, err := s.svc.Resolve(r.Context(), kind, req.Query, req.IncludeHidden)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, match)
}

func (s *Server) handleSearchTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		core.TransactionFilter
		Limit int `json:"limit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	txns, err := s.svc.SearchTransactions(r.Context(), req.TransactionFilter, req.Limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, txns)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req services.CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	created, err := s.svc.CreateTransaction(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.countWrite()
	writeJSON(w, http.StatusCreated, dataEnvelope{Data: created})
}

func (s *Server) handleCategorizeTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
		Category      string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	updated, err := s.svc.CategorizeTransaction(r.Context(), req.TransactionID, req.Category)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.countWrite()
	writeData(w, updated)
}

func (s *Server) handleUncategorized(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	out, err := s.svc.Uncategorized(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, out)
}

func (s *Server) handleMoveMoney(w http.ResponseWriter, r *http.Request) {
	var req services.MoveMoneyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	result, err := s.svc.MoveMoney(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.countWrite()
	writeData(w, result)
}

func (s *Server) handleSetupBudget(w http.ResponseWriter, r *http.Request) {
	var req services.SetupBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	if !services.ValidSetupStrategy(req.Strategy) {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("unknown setup strategy %q", req.Strategy), nil)
		return
	}
	result, err := s.svc.SetupBudget(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.countWrite()
	writeData(w, result)
}

func (s *Server) handleOverspending(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Overspending(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, out)
}

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		Apply    bool   `json:"apply"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	plan, err := s.svc.CoverOverspending(r.Context(), req.Category, req.Apply)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Apply {
		s.countWrite()
	}
	writeData(w, plan)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	month, err := queryMonth(r, "month")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out, err := s.svc.Trends(r.Context(), month)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, out)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string     `json:"category"`
		Month    core.Month `json:"month,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	if req.Category == "" {
		out, err := s.svc.ForecastMonth(r.Context(), req.Month)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeData(w, out)
		return
	}
	f, err := s.svc.Forecast(r.Context(), req.Category, req.Month)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, f)
}

func (s *Server) handleAffordability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		Amount   string `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	out, err := s.svc.Affordability(r.Context(), req.Category, req.Amount)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, out)
}

func (s *Server) handleCreditCards(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.CreditCards(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, out)
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payee    string `json:"payee"`
		Category string `json:"category"`
		Date     string `json:"date,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	var observedAt core.Date
	if req.Date != "" {
		var err error
		if observedAt, err = core.ParseDate(req.Date); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if err := s.svc.Learn(r.Context(), req.Payee, req.Category, observedAt); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, map[string]bool{"learned": true})
}

// handleSuggest treats a below-threshold suggestion as a result, not a
// failure: the caller should ask the user instead of guessing.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payee string `json:"payee"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	var body struct {
		Suggestion *categorizer.Suggestion `json:"suggestion"`
	}
	sugg, err := s.svc.Suggest(r.Context(), req.Payee)
	switch {
	case err == nil:
		body.Suggestion = &sugg
	case errors.Is(err, core.ErrNoSuggestion):
		// null suggestion
	default:
		s.respondError(w, r, err)
		return
	}
	writeData(w, body)
}

func (s *Server) handleLearnHistory(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.LearnFromHistory(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, map[string]int{"learned": n})
}

func (s *Server) handleRenamePayee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payee string `json:"payee"`
		Name  string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondDecodeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "new name is required", nil)
		return
	}
	if err := s.svc.RenamePayee(r.Context(), req.Payee, req.Name); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.countWrite()
	writeData(w, map[string]bool{"renamed": true})
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	out, err := s.svc.Upcoming(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeData(w, out)
}
