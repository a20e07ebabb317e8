package fakeoura

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/pkg/logger"
)

const unauthorizedBody = `{"status":401,"title":"Unauthorized","detail":"Invalid or expired access token"}`

// Request is a recorded inbound call.
type Request struct {
	Path          string
	Query         url.Values
	Authorization string
}

type response struct {
	status int
	body   []byte
}

// Server answers GET /<resource> for every known kind.
type Server struct {
	mu        sync.Mutex
	token     string
	randomIDs bool
	overrides map[model.Kind]response
	requests  []Request
	logger    logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on every call.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithRandomIDs gives every served record a fresh uuid.
func WithRandomIDs() Option {
	return func(s *Server) { s.randomIDs = true }
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server serving the canned fixtures.
func New(opts ...Option) *Server {
	s := &Server{
		overrides: make(map[model.Kind]response),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Respond overrides the response for kind.
func (s *Server) Respond(kind model.Kind, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[kind] = response{status: status, body: body}
}

// RespondItems overrides kind with an envelope holding items.
func (s *Server) RespondItems(kind model.Kind, items ...json.RawMessage) {
	s.Respond(kind, http.StatusOK, Envelope(items...))
}

// Reset drops overrides and recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[model.Kind]response)
	s.requests = nil
}

// Requests returns a copy of every recorded call.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestFor returns the last recorded call for kind.
func (s *Server) RequestFor(kind model.Kind) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if path.Base(s.requests[i].Path) == kind.Path() {
			return s.requests[i], true
		}
	}
	return Request{}, false
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Path:          r.URL.Path,
		Query:         r.URL.Query(),
		Authorization: r.Header.Get("Authorization"),
	})
	s.mu.Unlock()

	s.logger.Debug(context.Background(), "fake request",
		logger.String("path", r.URL.Path),
		logger.String("query", r.URL.RawQuery),
	)

	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(unauthorizedBody))
		return
	}

	kind, ok := kindForPath(path.Base(r.URL.Path))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
		return
	}

	s.mu.Lock()
	resp, overridden := s.overrides[kind]
	s.mu.Unlock()
	if overridden {
		w.WriteHeader(resp.status)
		_, _ = w.Write(resp.body)
		return
	}

	body := Body(kind)
	if s.randomIDs {
		body = withFreshID(kind)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func kindForPath(p string) (model.Kind, bool) {
	for _, k := range model.Kinds() {
		if k.Path() == p {
			return k, true
		}
	}
	return model.KindUnknown, false
}

func withFreshID(kind model.Kind) []byte {
	var obj map[string]any
	if err := json.Unmarshal(Fixture(kind), &obj); err != nil {
		return Body(kind)
	}
	if _, ok := obj["id"]; ok {
		obj["id"] = uuid.NewString()
	}
	item, _ := json.Marshal(obj)
	if kind.Singleton() {
		return item
	}
	return Envelope(item)
}
