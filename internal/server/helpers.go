package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/joshuarg007/made4founders-sub001/internal/auth"
	"github.com/joshuarg007/made4founders-sub001/internal/crypto"
	"github.com/joshuarg007/made4founders-sub001/internal/vault"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, code int, msg string) {
	writeJSONStatus(w, code, map[string]string{"error": msg})
}

func tooMany(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeErrorStatus(w, http.StatusTooManyRequests, "too many requests")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// claims must exist on any route behind AuthRequired; a miss means a wiring
// bug, answered with 401 rather than a panic.
func (s *Server) claims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "missing credentials")
		return nil, false
	}
	return c, true
}

// writeVaultError maps service errors to HTTP statuses. Bad master passwords
// and bad MFA codes share one generic message so the response does not reveal
// which check failed.
func (s *Server) writeVaultError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vault.ErrPasswordTooShort),
		errors.Is(err, vault.ErrAlreadySetUp),
		errors.Is(err, vault.ErrNotSetUp),
		errors.Is(err, vault.ErrBadInput):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vault.ErrInvalidMasterPassword),
		errors.Is(err, vault.ErrInvalidMFACode):
		writeErrorStatus(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, vault.ErrVaultLocked):
		writeErrorStatus(w, http.StatusForbidden, vault.ErrVaultLocked.Error())
	case errors.Is(err, vault.ErrNotFound):
		writeErrorStatus(w, http.StatusNotFound, vault.ErrNotFound.Error())
	case errors.Is(err, crypto.ErrDecryptFailed):
		s.logger.Printf("decrypt failure: %v", err)
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	default:
		s.logger.Printf("internal error: %v", err)
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}
