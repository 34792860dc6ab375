package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mwiater/emailwriter/internal/benchmark"
	"github.com/mwiater/emailwriter/internal/generator"
	"github.com/mwiater/emailwriter/internal/logging"
)

// ErrResp is the body of every error response.
type ErrResp struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.LogEvent("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, ErrResp{OK: false, Error: msg, RequestID: RequestIDFromContext(r.Context())})
}

// decodeJSON decodes exactly one JSON value from the request body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("body must contain a single JSON object")
	}
	return nil
}

// writeDecodeError maps a decodeJSON failure to 413 or 400.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, r, http.StatusBadRequest, "invalid JSON: "+err.Error())
}

// statusFor maps a generation or benchmark failure to an HTTP status.
func statusFor(err error) int {
	var callErr *generator.RemoteCallError
	switch {
	case errors.Is(err, benchmark.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, benchmark.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &callErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
