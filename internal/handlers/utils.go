package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/auth"
	"github.com/jason-s-yu/tabletop/internal/table"
)

var errMissingToken = errors.New("missing token")

// tableIDFromPath parses the id segment that follows prefix, e.g.
// /table/ws/{id}.
func tableIDFromPath(path, prefix string) (uuid.UUID, error) {
	rest := strings.TrimPrefix(path, prefix)
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return uuid.Nil, errors.New("missing table id")
	}
	return uuid.Parse(id)
}

// tokenFromRequest reads the table token from the "token" query parameter,
// the auth_token cookie or a bearer Authorization header, in that order.
func tokenFromRequest(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if c, err := r.Cookie("auth_token"); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// authorize resolves the table named in the path and checks the request token
// grants role on it. On failure it writes the HTTP error and returns false.
func (s *TableServer) authorize(w http.ResponseWriter, r *http.Request, prefix string, role auth.Role) (*table.Table, auth.Claims, bool) {
	id, err := tableIDFromPath(r.URL.Path, prefix)
	if err != nil {
		http.Error(w, "invalid table id", http.StatusBadRequest)
		return nil, auth.Claims{}, false
	}
	t, err := s.Store.Get(id)
	if err != nil {
		http.Error(w, "table not found", http.StatusNotFound)
		return nil, auth.Claims{}, false
	}

	tok := tokenFromRequest(r)
	if tok == "" {
		http.Error(w, errMissingToken.Error(), http.StatusUnauthorized)
		return nil, auth.Claims{}, false
	}
	claims, err := auth.AuthenticateJWT(tok)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return nil, auth.Claims{}, false
	}
	if !claims.Allows(id, role) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, auth.Claims{}, false
	}
	return t, claims, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
