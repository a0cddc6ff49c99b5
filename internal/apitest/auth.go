package apitest

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"flexifisio-client/internal/auth"
	"flexifisio-client/internal/model"
)

type ctxKey string

const userIDKey ctxKey = "uid"

func uid(r *http.Request) string {
	return r.Context().Value(userIDKey).(string)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// AddUser registers a physiotherapist directly and returns its id.
func (s *Server) AddUser(reg model.Registration) (string, error) {
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{
		id:   uuid.New().String(),
		hash: hash,
		prof: model.Profile{
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			Email:     reg.Email,
			Clinic:    reg.Clinic,
		},
	}
	u.prof.ID = s.id()
	s.users[reg.Email] = u
	return u.id, nil
}

// issueLocked signs a fresh credential and tracks its id.
func (s *Server) issueLocked(u *user) (string, error) {
	tok, err := auth.MakeToken(u.id, u.prof.Email, s.secret, s.ttl)
	if err != nil {
		return "", err
	}
	c, err := auth.Inspect(tok)
	if err != nil {
		return "", err
	}
	s.issued[c.ID] = true
	return tok, nil
}

func (s *Server) expireLocked() {
	for jti := range s.issued {
		s.expired[jti] = true
		delete(s.issued, jti)
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if !decode(w, r, &reg) {
		return
	}
	if err := s.valid.Struct(reg); err != nil {
		writeError(w, http.StatusBadRequest, "all fields required, password at least 8 characters")
		return
	}
	s.mu.Lock()
	_, dup := s.users[reg.Email]
	s.mu.Unlock()
	if dup {
		// don't reveal that the email exists
		writeError(w, http.StatusConflict, "registration failed")
		return
	}
	if _, err := s.AddUser(reg); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || !auth.CheckPassword(u.hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.mu.Lock()
	tok, err := s.issueLocked(u)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

// refresh exchanges a credential, expired or not, for a new one. Each
// credential can be exchanged once.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.refreshes.Add(1)
	if s.failRefresh.Load() {
		writeError(w, http.StatusUnauthorized, "refresh rejected")
		return
	}
	c, err := auth.ParseForRefresh(bearerToken(r), s.secret, s.grace)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rotated[c.ID] || (!s.issued[c.ID] && !s.expired[c.ID]) {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	u, ok := s.users[c.Email]
	if !ok || u.id != c.UserID {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	tok, err := s.issueLocked(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.rotated[c.ID] = true
	delete(s.issued, c.ID)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": tok})
}

// bearer rejects requests without a live credential and stores the caller's
// id in the request context.
func (s *Server) bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		c, err := auth.ParseToken(raw, s.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		s.mu.Lock()
		live := s.issued[c.ID]
		s.mu.Unlock()
		if !live {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, c.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	id := uid(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.id == id {
			writeJSON(w, http.StatusOK, u.prof)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not found")
}
