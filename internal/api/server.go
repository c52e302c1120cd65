// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pdj555/job-engine/internal/engine"
	"github.com/pdj555/job-engine/internal/opportunity"
	"github.com/pdj555/job-engine/internal/search"
)

// Finder is the slice of the engine the API needs.
type Finder interface {
	Find(ctx context.Context, query string, profile *opportunity.Profile, quick bool) (*engine.Result, error)
}

// Server is a thin pass-through: decode, call the engine, encode. No search
// logic lives here.
type Server struct {
	finder      Finder
	profilePath string
	providers   []string
	logger      *zap.Logger
	echo        *echo.Echo

	// mu guards profile: POST /profile swaps it while searches read it.
	mu      sync.RWMutex
	profile *opportunity.Profile
}

func NewServer(finder Finder, profile *opportunity.Profile, profilePath string, providers []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		finder:      finder,
		profile:     profile,
		profilePath: profilePath,
		providers:   providers,
		logger:      logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.POST("/search", s.handleSearch)
	e.GET("/search", s.handleSearchGet)
	e.POST("/profile", s.handleProfile)
	e.GET("/healthz", s.handleHealth)

	s.echo = e
	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type searchRequest struct {
	Query   string               `json:"query"`
	Profile *opportunity.Profile `json:"profile,omitempty"`
	Quick   bool                 `json:"quick,omitempty"`
}

type searchResponse struct {
	Results  []*opportunity.Opportunity `json:"results"`
	Count    int                        `json:"count"`
	Warnings []string                   `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query is required"})
	}

	profile := req.Profile
	if profile == nil {
		profile = s.currentProfile()
	}

	return s.runSearch(c, req.Query, profile, req.Quick)
}

func (s *Server) handleSearchGet(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "q is required"})
	}

	// The GET variant is a read-only convenience: always quick, default
	// profile.
	return s.runSearch(c, query, s.currentProfile(), true)
}

func (s *Server) runSearch(c echo.Context, query string, profile *opportunity.Profile, quick bool) error {
	result, err := s.finder.Find(c.Request().Context(), query, profile, quick)
	if err != nil {
		s.logger.Warn("search request failed", zap.String("query", query), zap.Error(err))

		status := http.StatusBadGateway
		if !errors.Is(err, search.ErrNoResults) {
			status = http.StatusInternalServerError
		}
		resp := errorResponse{Error: err.Error()}
		if result != nil {
			resp.Warnings = result.Warnings
		}
		return c.JSON(status, resp)
	}

	// Partial data is a success with warnings, never an HTTP error.
	return c.JSON(http.StatusOK, searchResponse{
		Results:  result.Opportunities.Items,
		Count:    result.Opportunities.Len(),
		Warnings: result.Warnings,
	})
}

func (s *Server) handleProfile(c echo.Context) error {
	profile := opportunity.DefaultProfile()
	if err := c.Bind(profile); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid profile body"})
	}

	if s.profilePath != "" {
		if err := profile.Save(s.profilePath); err != nil {
			s.logger.Error("saving profile", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "could not persist profile"})
		}
	}

	s.setProfile(profile)
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) currentProfile() *opportunity.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Server) setProfile(p *opportunity.Profile) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.providers,
	})
}
