// Package server exposes the ingestion pipeline over HTTP: parse and facts
// endpoints plus CRUD on stored sessions.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pistalab/trainlog/internal/facts"
	"github.com/pistalab/trainlog/internal/parser"
	"github.com/pistalab/trainlog/internal/store"
)

// Server holds dependencies for the HTTP handlers.
type Server struct {
	parser    *parser.Parser
	extractor *facts.Extractor
	store     *store.Store
	log       *zap.Logger
	apiKey    string
	router    chi.Router
}

// New creates a Server with all routes configured. An empty apiKey disables
// authentication, which is the expected setup for a local instance.
func New(p *parser.Parser, e *facts.Extractor, st *store.Store, apiKey string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		parser:    p,
		extractor: e,
		store:     st,
		log:       log,
		apiKey:    apiKey,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Post("/parse", s.handleParse)
		r.Post("/facts", s.handleFacts)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Get("/imports", s.handleListImports)
	})
}
