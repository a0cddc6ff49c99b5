// Package session owns the bearer credential of the logged in
// physiotherapist: the in-memory copy, its durable mirror, and the rules for
// replacing it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"flexifisio-client/internal/auth"
	"flexifisio-client/internal/model"
	"flexifisio-client/internal/store"
)

var ErrNoCredential = errors.New("session: not logged in")

// Issuer talks to the unauthenticated token endpoints of the api.
type Issuer interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, reg model.Registration) error
	Refresh(ctx context.Context, stale string) (string, error)
}

type Session struct {
	issuer Issuer
	store  store.CredentialStore
	log    *zap.Logger

	// refreshMu admits one refresh at a time; mu only guards the fields
	// below, so reads never wait on a refresh round trip.
	refreshMu sync.Mutex
	mu        sync.Mutex
	token     string
	loaded    bool
	// credential the api already refused to refresh
	dead string

	subMu sync.Mutex
	subs  []func()
}

func New(issuer Issuer, st store.CredentialStore, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{issuer: issuer, store: st, log: log}
}

// load pulls the persisted credential on first use. Caller holds mu.
func (s *Session) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	tok, err := s.store.Load(ctx, store.TokenKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	s.token = tok
	s.loaded = true
	return nil
}

// Token returns the current credential, or "" when logged out.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return "", fmt.Errorf("session: load credential: %w", err)
	}
	return s.token, nil
}

func (s *Session) LoggedIn(ctx context.Context) bool {
	tok, err := s.Token(ctx)
	return err == nil && tok != ""
}

// set replaces the credential in memory and storage. Caller holds mu.
func (s *Session) set(ctx context.Context, tok string) {
	s.token = tok
	s.loaded = true
	s.dead = ""
	if err := s.store.Save(ctx, store.TokenKey, tok); err != nil {
		// memory copy stays authoritative for this process
		s.log.Warn("persist credential failed", zap.Error(err))
	}
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	tok, err := s.issuer.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("session: login: %w", err)
	}
	s.mu.Lock()
	s.set(ctx, tok)
	s.mu.Unlock()
	s.log.Info("logged in", zap.String("email", email))
	return nil
}

// Register signs up and, on success, logs in with the same credentials.
func (s *Session) Register(ctx context.Context, reg model.Registration) error {
	if err := s.issuer.Register(ctx, reg); err != nil {
		return fmt.Errorf("session: register: %w", err)
	}
	return s.Login(ctx, reg.Email, reg.Password)
}

// Refresh exchanges stale for a new credential. If another caller already
// replaced stale while this one waited its turn, the newer credential is
// returned without contacting the api again. Once the api has refused stale,
// later callers holding it get ErrNoCredential straight away.
func (s *Session) Refresh(ctx context.Context, stale string) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	cur, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	if cur == "" {
		return "", ErrNoCredential
	}
	if cur != stale {
		s.log.Debug("credential already refreshed")
		return cur, nil
	}
	s.mu.Lock()
	dead := s.dead == stale
	s.mu.Unlock()
	if dead {
		return "", ErrNoCredential
	}

	tok, err := s.issuer.Refresh(ctx, stale)
	if err == nil && tok == "" {
		err = errors.New("empty credential")
	}
	if err != nil {
		// a cancelled caller proves nothing about the credential
		if ctx.Err() == nil {
			s.mu.Lock()
			s.dead = stale
			s.mu.Unlock()
		}
		return "", fmt.Errorf("session: refresh: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a logout or login landed while the refresh was in flight
	if s.token != stale {
		if s.token == "" {
			return "", ErrNoCredential
		}
		return s.token, nil
	}
	s.set(ctx, tok)
	s.log.Debug("credential refreshed")
	return tok, nil
}

// Logout drops the credential everywhere. Subscribers are notified only when
// a credential was actually held, so repeated logouts signal once.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	_ = s.load(ctx)
	had := s.token != ""
	s.token = ""
	s.loaded = true
	err := s.store.Delete(ctx, store.TokenKey)
	s.mu.Unlock()

	if had {
		s.log.Info("logged out")
		s.notify()
	}
	if err != nil {
		return fmt.Errorf("session: clear credential: %w", err)
	}
	return nil
}

// OnLogout registers fn to run after every effective logout.
func (s *Session) OnLogout(fn func()) {
	s.subMu.Lock()
	s.subs = append(s.subs, fn)
	s.subMu.Unlock()
}

func (s *Session) notify() {
	s.subMu.Lock()
	subs := append([]func(){}, s.subs...)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Claims decodes the current credential for display. Opaque credentials
// yield auth.ErrBadToken.
func (s *Session) Claims(ctx context.Context) (*auth.Claims, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, ErrNoCredential
	}
	return auth.Inspect(tok)
}
