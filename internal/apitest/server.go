// Package apitest is an in-memory implementation of the scheduling REST API.
// It backs the client tests and the `evs serve-mock` command.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"evsched/internal/domain"
)

// Config for the fake API.
type Config struct {
	BasePath  string
	JWTSecret string
	TokenTTL  time.Duration
	Now       func() time.Time
	// Suggest lists alternatives returned with a 409; nil offers the venues
	// in the same district that are free in the requested slot.
	Suggest func(rejected domain.Event, booked []domain.Event) []string
	Logger  *log.Logger
}

// Request is one request seen by the server.
type Request struct {
	Method    string
	Path      string
	Body      []byte
	RequestID string
	Status    int
}

// Backend holds the server state.
type Backend struct {
	cfg Config

	mu        sync.Mutex
	accounts  map[string]account
	revoked   map[string]bool
	events    []domain.Event
	tasks     []domain.Task
	nextEvent int64
	nextTask  int64
	faults    []int
	requests  []Request
}

func New(cfg Config) *Backend {
	if cfg.BasePath == "" {
		cfg.BasePath = "/api"
	}
	if !strings.HasPrefix(cfg.BasePath, "/") {
		cfg.BasePath = "/" + cfg.BasePath
	}
	cfg.BasePath = strings.TrimRight(cfg.BasePath, "/")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "evsched-dev-secret"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Backend{
		cfg:      cfg,
		accounts: map[string]account{},
		revoked:  map[string]bool{},
	}
}

func (b *Backend) logger() *log.Logger {
	if b.cfg.Logger != nil {
		return b.cfg.Logger
	}
	return log.Default()
}

// apiError is the envelope the scheduling backend uses for every failure.
// Title is serialized as "error".
type apiError struct {
	Title       string   `json:"error"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	Status      int      `json:"status"`
	Timestamp   string   `json:"timestamp"`
}

func (e *apiError) GetStatus() int { return e.Status }
func (e *apiError) Error() string  { return e.Message }

func newAPIError(status int, title, message string, suggestions []string) *apiError {
	if title == "" {
		title = http.StatusText(status)
	}
	return &apiError{
		Title:       title,
		Message:     message,
		Suggestions: suggestions,
		Status:      status,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func respondStatusError(w http.ResponseWriter, err *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(err)
}

var humaErrorsOnce sync.Once

// useEnvelopeErrors routes huma's generated errors (validation, bad input)
// through the backend envelope. huma keeps these constructors in package
// variables, so they are installed once per process.
func useEnvelopeErrors() {
	humaErrorsOnce.Do(func() {
		huma.DefaultArrayNullable = false
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			return envelopeError(status, msg, errs)
		}
		huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
			return envelopeError(status, msg, errs)
		}
	})
}

func envelopeError(status int, msg string, errs []error) *apiError {
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}
	if len(errs) > 0 {
		parts := make([]string, 0, len(errs))
		for _, e := range errs {
			parts = append(parts, e.Error())
		}
		msg = msg + ": " + strings.Join(parts, "; ")
	}
	return newAPIError(status, "", msg, nil)
}

// Handler builds the HTTP handler.
func (b *Backend) Handler() http.Handler {
	useEnvelopeErrors()

	router := chi.NewRouter()
	router.Use(b.recordRequests)
	router.Use(b.injectFaults)
	router.Use(b.authMiddleware)
	hcfg := huma.DefaultConfig("Event Scheduler API", "1.0.0")
	hcfg.DocsPath = ""
	// No $schema links: bodies stay the plain backend envelope.
	hcfg.CreateHooks = nil
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, b.cfg.BasePath)

	registerAuth(group, b)
	registerEvents(group, b)
	registerTasks(group, b)
	registerDashboard(group, b)
	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (b *Backend) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Body:      body,
			RequestID: r.Header.Get("X-Request-Id"),
			Status:    rec.status,
		})
		b.mu.Unlock()
	})
}

func (b *Backend) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		var status int
		if len(b.faults) > 0 {
			status, b.faults = b.faults[0], b.faults[1:]
		}
		b.mu.Unlock()
		if status != 0 {
			respondStatusError(w, newAPIError(status, "", "injected failure", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next len(statuses) requests fail with the given
// statuses, in order.
func (b *Backend) FailNext(statuses ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = append(b.faults, statuses...)
}

// Requests returns a copy of every request served so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Server is a Backend listening on a loopback port.
type Server struct {
	*Backend
	URL   string
	srv   *http.Server
	ln    net.Listener
	close sync.Once
}

// APIURL is the base URL clients should be configured with.
func (s *Server) APIURL() string { return s.URL + s.cfg.BasePath }

func (s *Server) Close() {
	s.close.Do(func() {
		s.srv.Shutdown(context.Background())
		s.ln.Close()
	})
}

// Listen serves the backend on addr until Close.
func Listen(addr string, b *Backend) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{Backend: b, URL: "http://" + ln.Addr().String(), ln: ln}
	s.srv = &http.Server{Handler: b.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			b.logger().Printf("apitest: serve: %v", err)
		}
	}()
	return s, nil
}
