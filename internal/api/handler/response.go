package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/maraichr/sqlshape/pkg/apierr"
)

// maxBodyBytes bounds request bodies; queries themselves are limited by
// maxSQLBytes.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeAPIError writes a structured error response and logs 5xx errors.
// Errors that carry no *apierr.Error in their chain become INTERNAL_ERROR.
func writeAPIError(w http.ResponseWriter, logger *slog.Logger, err error) {
	e, ok := apierr.As(err)
	if !ok {
		e = apierr.InternalError(err)
	}
	if e.Status() >= 500 && logger != nil {
		logger.Error(e.Message(), slog.String("code", string(e.Code())), slog.String("error", e.Error()))
	}
	writeJSON(w, e.Status(), e.Response())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) *apierr.Error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.InvalidRequestBody()
	}
	return nil
}
