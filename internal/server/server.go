// Package server exposes the reorder engine over HTTP with gin.
//
// Every route maps to one engine command. Drops and moves wait for the
// commit, so the response carries the saved order or the reason it was not
// saved.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/ordinal/internal/engine"
	"github.com/roach88/ordinal/internal/reorder"
	"github.com/roach88/ordinal/internal/store"
)

// Server routes HTTP requests to an engine.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
	router *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a Server for e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{engine: e}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	router.GET("/healthz", s.handleHealth)

	lists := router.Group("/api/lists/:list")
	lists.GET("", s.handleView)
	lists.POST("/refresh", s.handleRefresh)
	lists.POST("/drag/start", s.handleDragStart)
	lists.POST("/drag/over", s.handleDragOver)
	lists.POST("/drag/drop", s.handleDrop)
	lists.POST("/drag/cancel", s.handleCancel)
	lists.POST("/items/:id/move", s.handleMove)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type dragRequest struct {
	ID string `json:"id" binding:"required"`
}

type overRequest struct {
	ID     string  `json:"id" binding:"required"`
	Hover  string  `json:"hover" binding:"required"`
	Top    float64 `json:"top"`
	Height float64 `json:"height" binding:"required,gt=0"`
	Y      float64 `json:"y"`
}

type dropRequest struct {
	ID     string `json:"id" binding:"required"`
	Target string `json:"target" binding:"required"`
}

type moveRequest struct {
	Direction string `json:"direction" binding:"required"`
}

type overResponse struct {
	Changed bool        `json:"changed"`
	View    engine.View `json:"view"`
}

type errorResponse struct {
	Error string       `json:"error"`
	Code  string       `json:"code,omitempty"`
	View  *engine.View `json:"view,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "queue": s.engine.QueueLen()})
}

func (s *Server) handleView(c *gin.Context) {
	s.exec(c, engine.Command{Kind: engine.CommandView, List: c.Param("list")})
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.exec(c, engine.Command{Kind: engine.CommandLoad, List: c.Param("list")})
}

func (s *Server) handleDragStart(c *gin.Context) {
	var req dragRequest
	if !bind(c, &req) {
		return
	}
	s.exec(c, engine.Command{Kind: engine.CommandDragStart, List: c.Param("list"), ID: req.ID})
}

func (s *Server) handleDragOver(c *gin.Context) {
	var req overRequest
	if !bind(c, &req) {
		return
	}
	out, err := s.engine.Submit(c.Request.Context(), engine.Command{
		Kind:     engine.CommandDragOver,
		List:     c.Param("list"),
		ID:       req.ID,
		Target:   req.Hover,
		Box:      reorder.Box{Top: req.Top, Height: req.Height},
		PointerY: req.Y,
	})
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, overResponse{Changed: out.Changed, View: out.View})
}

func (s *Server) handleDrop(c *gin.Context) {
	var req dropRequest
	if !bind(c, &req) {
		return
	}
	s.exec(c, engine.Command{Kind: engine.CommandDrop, List: c.Param("list"), ID: req.ID, Target: req.Target})
}

func (s *Server) handleCancel(c *gin.Context) {
	var req dragRequest
	if !bind(c, &req) {
		return
	}
	s.exec(c, engine.Command{Kind: engine.CommandCancel, List: c.Param("list"), ID: req.ID})
}

func (s *Server) handleMove(c *gin.Context) {
	var req moveRequest
	if !bind(c, &req) {
		return
	}
	dir, err := reorder.ParseDirection(req.Direction)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "INVALID_COMMAND"})
		return
	}
	s.exec(c, engine.Command{Kind: engine.CommandMove, List: c.Param("list"), ID: c.Param("id"), Direction: dir})
}

// exec runs cmd to completion and writes the resulting view.
func (s *Server) exec(c *gin.Context, cmd engine.Command) {
	view, err := s.engine.Exec(c.Request.Context(), cmd)
	if err != nil {
		var v *engine.View
		if view.List != "" {
			v = &view
		}
		s.fail(c, err, v)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) fail(c *gin.Context, err error, view *engine.View) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "list", c.Param("list"), "error", err)
	}
	c.JSON(status, errorResponse{Error: err.Error(), Code: code, View: view})
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error(), Code: "INVALID_COMMAND"})
		return false
	}
	return true
}

// statusFor maps an engine or reorder error to an HTTP status and code.
func statusFor(err error) (int, string) {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		switch ee.Code {
		case engine.ErrCodeNotFound:
			return http.StatusNotFound, string(ee.Code)
		case engine.ErrCodeInvalidCommand:
			return http.StatusBadRequest, string(ee.Code)
		case engine.ErrCodeStopped:
			return http.StatusServiceUnavailable, string(ee.Code)
		}
	}

	var re *reorder.Error
	if errors.As(err, &re) {
		switch re.Code {
		case reorder.CodeBusy, reorder.CodeDragActive:
			return http.StatusConflict, string(re.Code)
		case reorder.CodePersistFailed:
			if errors.Is(err, store.ErrStaleID) {
				return http.StatusConflict, "STALE_ID"
			}
			return http.StatusBadGateway, string(re.Code)
		}
		return http.StatusInternalServerError, string(re.Code)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "TIMEOUT"
	}
	return http.StatusInternalServerError, ""
}

// requestLogger logs each request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", strings.TrimSuffix(c.Request.URL.Path, "/"),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
