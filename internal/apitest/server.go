// Package apitest is an in-memory FlexiFisio api for tests and local runs.
// Credentials are real signed JWTs; tests can expire all of them or break the
// refresh endpoint on demand.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"flexifisio-client/internal/model"
)

type user struct {
	id   string
	hash string
	prof model.Profile
}

// clinic is the data owned by one physiotherapist.
type clinic struct {
	appts     []model.Appointment
	patients  map[int64]*model.Patient
	exercises map[int64]*model.Exercise
	cards     map[int64]*model.TrainingCard
	sessions  map[int64][]model.TrainingSession
}

func newClinic() *clinic {
	return &clinic{
		patients:  map[int64]*model.Patient{},
		exercises: map[int64]*model.Exercise{},
		cards:     map[int64]*model.TrainingCard{},
		sessions:  map[int64][]model.TrainingSession{},
	}
}

type Server struct {
	secret string
	ttl    time.Duration
	grace  time.Duration
	log    *zap.Logger
	valid  *validator.Validate

	mu      sync.Mutex
	users   map[string]*user // by email
	clinics map[string]*clinic
	issued  map[string]bool // jti of live tokens
	expired map[string]bool // jti of tokens rejected as expired
	rotated map[string]bool // jti of tokens already exchanged
	nextID  int64

	failRefresh atomic.Bool
	refreshes   atomic.Int64
	requests    atomic.Int64
}

type Option func(*Server)

// WithTTL sets the lifetime of issued tokens.
func WithTTL(d time.Duration) Option { return func(s *Server) { s.ttl = d } }

// WithGrace sets how long after expiry a token may still be refreshed.
func WithGrace(d time.Duration) Option { return func(s *Server) { s.grace = d } }

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

func New(secret string, opts ...Option) *Server {
	s := &Server{
		secret:  secret,
		ttl:     15 * time.Minute,
		grace:   24 * time.Hour,
		log:     zap.NewNop(),
		valid:   validator.New(),
		users:   map[string]*user{},
		clinics: map[string]*clinic{},
		issued:  map[string]bool{},
		expired: map[string]bool{},
		rotated: map[string]bool{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start serves the api on a local listener until the test ends.
func Start(t interface{ Cleanup(func()) }, secret string, opts ...Option) (*Server, *httptest.Server) {
	s := New(secret, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)

	r.Route("/fisioterapista", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/refreshToken", s.refresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.bearer)

		r.Get("/profile", s.profile)

		r.Get("/appointment", s.listAppointments)
		r.Post("/appointment", s.bookAppointment)
		r.Patch("/appointment/{id}", s.moveAppointment)
		r.Patch("/appointment/{id}/confirm", s.confirmAppointment)
		r.Delete("/appointment/{id}", s.deleteAppointment)

		r.Get("/patient", s.listPatients)
		r.Get("/patient/terminated", s.terminatedPatients)
		r.Post("/patient", s.createPatient)
		r.Get("/patient/{id}", s.getPatient)
		r.Patch("/patient/{id}", s.updatePatient)
		r.Delete("/patient/{id}", s.deletePatient)

		r.Get("/exercise", s.listExercises)
		r.Post("/exercise", s.createExercise)
		r.Get("/exercise/{id}", s.getExercise)
		r.Patch("/exercise/{id}", s.updateExercise)
		r.Delete("/exercise/{id}", s.deleteExercise)

		r.Get("/trainingCard/{id}", s.getCard)
		r.Post("/trainingCard/{id}/exercise", s.addCardExercise)
		r.Post("/trainingSession/{id}", s.createSession)
		r.Get("/trainingSessions/{id}", s.listSessions)
		r.Get("/trainingSession/graph/{id}", s.graph)
	})
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.log.Debug("apitest request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get("X-Request-ID")))
		next.ServeHTTP(w, r)
	})
}

// ExpireTokens makes every credential issued so far answer 401 on
// authenticated routes. They can still be exchanged at the refresh endpoint.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
}

// FailRefresh makes the refresh endpoint reject every token.
func (s *Server) FailRefresh(fail bool) { s.failRefresh.Store(fail) }

// Refreshes counts calls to the refresh endpoint.
func (s *Server) Refreshes() int64 { return s.refreshes.Load() }

// Requests counts every request served.
func (s *Server) Requests() int64 { return s.requests.Load() }

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) clinicOf(uid string) *clinic {
	c, ok := s.clinics[uid]
	if !ok {
		c = newClinic()
		s.clinics[uid] = c
	}
	return c
}
