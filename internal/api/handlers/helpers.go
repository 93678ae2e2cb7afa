package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markdave123-py/braindeck/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps pipeline errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var cfgErr *core.ConfigError
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeErrJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrUnreachable):
		writeErrJSON(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &cfgErr):
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
	default:
		writeErrJSON(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func userIDFrom(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value("user_id").(string)
	return userID, ok
}
