// Package server exposes per-tab onboarding gates over HTTP and serves the
// page that bridges them to the browser wallet.
package server

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jacobrobertsbaca/blockybird/internal/bridge"
	"github.com/jacobrobertsbaca/blockybird/internal/config"
	"github.com/jacobrobertsbaca/blockybird/internal/observability"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

//go:embed templates/*.tmpl
var templateFS embed.FS

// Server owns the router for one registry.
type Server struct {
	cfg      config.Config
	registry *bridge.Registry
	router   *gin.Engine
	limiter  *clientLimiter
	started  time.Time
	log      zerolog.Logger
}

func New(cfg config.Config, registry *bridge.Registry) *Server {
	observability.RegisterMetrics()
	logger := observability.Component("server")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(cfg.CorsOrigins),
		AllowMethods:  []string{"GET", "POST", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies(cfg.TrustedProxies)
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))

	s := &Server{
		cfg:      cfg,
		registry: registry,
		router:   r,
		limiter:  newClientLimiter(cfg.RateLimit, cfg.RateBurst),
		started:  time.Now(),
		log:      logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Sweep drops idle per-client limiters.
func (s *Server) Sweep() {
	s.limiter.sweep()
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
