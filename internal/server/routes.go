package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jacobrobertsbaca/blockybird/internal/app"
	"github.com/jacobrobertsbaca/blockybird/internal/auth"
	"github.com/jacobrobertsbaca/blockybird/internal/bridge"
	"github.com/jacobrobertsbaca/blockybird/internal/onboarding"
	"github.com/jacobrobertsbaca/blockybird/internal/wallet"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultCommandBatch = 16
	maxCommandBatch     = 64
)

type createSessionRequest struct {
	Installed bool `json:"installed"`
}

type presenceRequest struct {
	Installed bool `json:"installed"`
}

type accountsRequest struct {
	RequestID string   `json:"request_id" binding:"required"`
	Accounts  []string `json:"accounts"`
	Error     string   `json:"error"`
}

type sessionResponse struct {
	ID   string   `json:"id"`
	View app.View `json:"view"`
}

type pageData struct {
	Name          string
	ExperienceURL string
	Content       onboarding.Content
	Version       string
}

func (s *Server) registerRoutes() {
	r := s.router

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html.tmpl", pageData{
			Name:          s.cfg.Name,
			ExperienceURL: s.cfg.ExperienceURL,
			Content:       onboarding.ContentFor(onboarding.NeedsInstall),
			Version:       version,
		})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"name":    s.cfg.Name,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":    true,
			"uptime":   time.Since(s.started).String(),
			"name":     s.cfg.Name,
			"sessions": s.registry.Len(),
			"version":  version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if s.limiter != nil {
		api.Use(s.limiter.middleware())
	}
	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id", s.getSession)
	api.DELETE("/sessions/:id", s.deleteSession)
	api.POST("/sessions/:id/presence", s.reportPresence)
	api.POST("/sessions/:id/action", s.activate)
	api.GET("/sessions/:id/commands", s.drainCommands)
	api.POST("/sessions/:id/accounts", s.deliverAccounts)

	admin := r.Group("/admin")
	if token := strings.TrimSpace(s.cfg.AdminToken); token != "" {
		admin.Use(auth.RequireBearer(auth.StaticToken{Token: token}))
	}
	admin.GET("/sessions", func(c *gin.Context) {
		sessions := s.registry.List()
		c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
	})
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	entry, err := s.registry.Create(req.Installed)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{ID: entry.Session.ID(), View: entry.Root.View()})
}

func (s *Server) getSession(c *gin.Context) {
	entry, ok := s.entry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{ID: entry.Session.ID(), View: entry.Root.View()})
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.registry.Remove(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) reportPresence(c *gin.Context) {
	entry, ok := s.entry(c)
	if !ok {
		return
	}
	var req presenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry.Session.ReportPresence(req.Installed)
	if _, err := entry.Gate().Evaluate(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{ID: entry.Session.ID(), View: entry.Root.View()})
}

func (s *Server) activate(c *gin.Context) {
	entry, ok := s.entry(c)
	if !ok {
		return
	}
	if _, err := entry.Gate().Activate(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{ID: entry.Session.ID(), View: entry.Root.View()})
}

func (s *Server) drainCommands(c *gin.Context) {
	entry, ok := s.entry(c)
	if !ok {
		return
	}
	limit := defaultCommandBatch
	if raw := c.Query("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max must be a positive integer"})
			return
		}
		limit = min(n, maxCommandBatch)
	}
	c.JSON(http.StatusOK, gin.H{"commands": entry.Session.Drain(limit)})
}

func (s *Server) deliverAccounts(c *gin.Context) {
	entry, ok := s.entry(c)
	if !ok {
		return
	}
	var req accountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accounts := []string{}
	if strings.TrimSpace(req.Error) == "" {
		normalized, err := wallet.NormalizeAll(req.Accounts)
		if err != nil {
			s.fail(c, err)
			return
		}
		accounts = normalized
	}
	if err := entry.Session.Resolve(req.RequestID, accounts, req.Error); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) entry(c *gin.Context) (*bridge.Entry, bool) {
	entry, err := s.registry.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return entry, true
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, bridge.ErrSessionNotFound), errors.Is(err, bridge.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, onboarding.ErrGateClosed), errors.Is(err, bridge.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, bridge.ErrRegistryFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
