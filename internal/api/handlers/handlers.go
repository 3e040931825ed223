// Package handlers implements the JSON route handlers.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/felixgeelhaar/finplan/internal/api/middleware"
	"github.com/felixgeelhaar/finplan/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON value from the request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after body", domain.ErrInvalidInput)
	}
	return nil
}

// caller returns the identity placed on the context by the session middleware.
// Handlers using it are only mounted behind Sessions.Require.
func caller(r *http.Request) *domain.Identity {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		panic("handlers: route mounted without session middleware")
	}
	return id
}
