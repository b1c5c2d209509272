// Package httputil holds the JSON response and request helpers shared by all
// handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "bucketlist/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// Validatable is implemented by request bodies that check themselves after decoding.
type Validatable interface {
	Validate() error
}

// Normalizable request bodies trim and canonicalise fields before validation.
type Normalizable interface {
	Normalize()
}

// ErrorResponse is the JSON envelope for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto its HTTP status. Internal errors never
// expose their message.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
		return
	}
	status := dErrors.ToHTTPStatus(de.Code)
	if status == http.StatusInternalServerError {
		WriteJSON(w, status, ErrorResponse{Error: string(dErrors.CodeInternal)})
		return
	}
	WriteJSON(w, status, ErrorResponse{Error: string(de.Code), Message: de.Message})
}

// DecodeAndPrepare decodes the JSON body into a T, normalises it when
// supported, and validates it. On failure the error response has already
// been written and ok is false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}

	p := PT(&req)
	if n, ok := any(p).(Normalizable); ok {
		n.Normalize()
	}
	if err := p.Validate(); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}
