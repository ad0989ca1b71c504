package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"bilancio/internal/core"
)

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("parsing request body: %w", err)
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryMonth(r *http.Request, name string) (core.Month, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return core.Month{}, nil
	}
	return core.ParseMonth(raw)
}
