// Package api exposes descriptor resolution over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pomstack/pkg/errors"
	"github.com/matzehuels/pomstack/pkg/pom"
	"github.com/matzehuels/pomstack/pkg/render"
	"github.com/matzehuels/pomstack/pkg/resolve"
)

// Server handles resolution requests.
type Server struct {
	resolver *resolve.Resolver
	logger   *log.Logger
	router   chi.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates the HTTP API around a resolver.
func NewServer(r *resolve.Resolver, opts ...ServerOption) *Server {
	s := &Server{
		resolver: r,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(5 * time.Minute))

	router.Get("/healthz", s.handleHealth)
	router.Route("/api/v1", func(api chi.Router) {
		api.Post("/resolve", s.handleResolve)
		api.Post("/graph", s.handleGraph)
	})
	s.router = router
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ResolveRequest is the body of POST /api/v1/resolve and /api/v1/graph.
// Either Descriptor (raw XML) or Coordinate must be set.
type ResolveRequest struct {
	Descriptor string      `json:"descriptor,omitempty"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}

// Coordinate identifies a released descriptor by its coordinate.
type Coordinate struct {
	Group    string `json:"group"`
	Artifact string `json:"artifact"`
	Version  string `json:"version"`
}

// ResolveResponse carries the effective model of a resolution.
type ResolveResponse struct {
	Project      Coordinate       `json:"project"`
	Dependencies []DependencyJSON `json:"dependencies"`
	Repositories []string         `json:"repositories"`
	Failures     []FailureJSON    `json:"failures,omitempty"`
}

// DependencyJSON is one entry of the effective dependency list.
type DependencyJSON struct {
	Group       string `json:"group"`
	Artifact    string `json:"artifact"`
	Version     string `json:"version"`
	Scope       string `json:"scope"`
	Depth       int    `json:"depth"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// FailureJSON describes one coordinate that could not resolve.
type FailureJSON struct {
	Group    string `json:"group"`
	Artifact string `json:"artifact"`
	Version  string `json:"version,omitempty"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	resolved, failures, ok := s.resolveRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, buildResponse(resolved, failures))
}

// handleGraph resolves like handleResolve but responds with the dependency
// graph, as DOT (?format=dot) or JSON (default).
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	resolved, _, ok := s.resolveRequest(w, r)
	if !ok {
		return
	}
	g, err := render.FromProject(resolved)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if r.URL.Query().Get("format") == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(render.ToDOT(g, render.Options{Detailed: true})))
		return
	}
	writeJSON(w, http.StatusOK, render.FromDAG(g))
}

// resolveRequest parses the request body and resolves it. Partial results
// with failures are still successes at the HTTP level; the failures travel
// in the response body.
func (s *Server) resolveRequest(w http.ResponseWriter, r *http.Request) (*resolve.ResolvedProject, *resolve.Aggregate, bool) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return nil, nil, false
	}

	var (
		resolved *resolve.ResolvedProject
		err      error
	)
	switch {
	case req.Descriptor != "":
		var p *pom.Project
		p, err = pom.Parse([]byte(req.Descriptor))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return nil, nil, false
		}
		resolved, err = s.resolver.ResolveProject(r.Context(), p)
	case req.Coordinate != nil:
		resolved, err = s.resolver.ResolveCoordinate(r.Context(), pom.GAV{
			Group:    req.Coordinate.Group,
			Artifact: req.Coordinate.Artifact,
			Version:  req.Coordinate.Version,
		})
	default:
		s.writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "descriptor or coordinate required"))
		return nil, nil, false
	}

	agg, _ := err.(*resolve.Aggregate)
	if err != nil && agg == nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, errors.ErrCodeNotFound) || errors.Is(err, errors.ErrCodeDownload) {
			status = http.StatusBadGateway
		}
		s.writeError(w, status, err)
		return nil, nil, false
	}
	return resolved, agg, true
}

func buildResponse(p *resolve.ResolvedProject, agg *resolve.Aggregate) ResolveResponse {
	resp := ResolveResponse{
		Project: Coordinate{
			Group:    p.Requested.GAV.Group,
			Artifact: p.Requested.GAV.Artifact,
			Version:  p.Requested.GAV.Version,
		},
	}
	for _, d := range p.Dependencies {
		dep := DependencyJSON{
			Group:    d.GAV.Group,
			Artifact: d.GAV.Artifact,
			Version:  d.GAV.Version,
			Scope:    d.Scope,
			Depth:    d.Depth,
		}
		if d.RequestedBy.Artifact != "" {
			dep.RequestedBy = d.RequestedBy.String()
		}
		resp.Dependencies = append(resp.Dependencies, dep)
	}
	for _, repo := range p.Repositories {
		resp.Repositories = append(resp.Repositories, repo.URL)
	}
	if agg != nil {
		for _, f := range agg.Failures() {
			resp.Failures = append(resp.Failures, FailureJSON{
				Group:    f.GAV.Group,
				Artifact: f.GAV.Artifact,
				Version:  f.GAV.Version,
				Message:  errors.UserMessage(f.Unwrap()),
			})
		}
	}
	return resp
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request failed", "status", status, "error", err)
	writeJSON(w, status, errorResponse{
		Error: errors.UserMessage(err),
		Code:  string(errors.GetCode(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
