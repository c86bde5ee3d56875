package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mohammad-safakhou/tutor/internal/rag"
	"github.com/mohammad-safakhou/tutor/internal/telemetry"
	"github.com/mohammad-safakhou/tutor/models"
)

// Server is the thin HTTP surface over the orchestrator.
type Server struct {
	Echo   *echo.Echo
	rag    *rag.RAG
	logger *log.Logger
}

// New builds the echo instance with routes, middleware and a unified JSON
// error handler. Passing nil metrics skips the /metrics route.
func New(r *rag.RAG, metrics *telemetry.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	s := &Server{Echo: e, rag: r, logger: baseLogger}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	api := e.Group("/api")
	api.POST("/query", s.handleQuery)
	api.GET("/courses", s.handleCourses)
	api.DELETE("/session/:id", s.handleClearSession)

	return s
}

// Start blocks serving on addr.
func (s *Server) Start(addr string) error {
	s.logger.Printf("listening on %s", addr)
	return s.Echo.Start(addr)
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Answer    string          `json:"answer"`
	Sources   []models.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	answer, sources, sid, err := s.rag.Query(c.Request().Context(), req.Query, req.SessionID)
	if err != nil {
		s.logger.Printf("query failed: %v", err)
		// No internal detail crosses this boundary.
		return echo.NewHTTPError(http.StatusInternalServerError, "Error processing your question")
	}
	if sources == nil {
		sources = []models.Source{}
	}
	return c.JSON(http.StatusOK, queryResponse{Answer: answer, Sources: sources, SessionID: sid})
}

func (s *Server) handleCourses(c echo.Context) error {
	stats, err := s.rag.GetCatalogStats(c.Request().Context())
	if err != nil {
		s.logger.Printf("catalog stats failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Error loading course catalog")
	}
	if stats.CourseTitles == nil {
		stats.CourseTitles = []string{}
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleClearSession(c echo.Context) error {
	id := c.Param("id")
	if err := s.rag.ClearSession(c.Request().Context(), id); err != nil {
		s.logger.Printf("clearing session %s failed: %v", id, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Error clearing session")
	}
	return c.NoContent(http.StatusNoContent)
}
