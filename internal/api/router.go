// Package api exposes attendance marking, summaries and report exports over HTTP.
package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"rollbook/internal/account"
	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/httpmiddleware"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Deps are the collaborators the router is built from.
type Deps struct {
	Attendance      *attendance.Service
	Accounts        *account.Service
	Tokens          *auth.Issuer
	Institution     string
	CORSOrigins     []string
	RateLimitPerMin int
	Checks          map[string]Check
	Logger          zerolog.Logger
}

// Server holds the handlers.
type Server struct {
	att         *attendance.Service
	accounts    *account.Service
	tokens      *auth.Issuer
	institution string
	checks      map[string]Check
	log         zerolog.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(d Deps) *gin.Engine {
	registerValidators()

	s := &Server{
		att:         d.Attendance,
		accounts:    d.Accounts,
		tokens:      d.Tokens,
		institution: d.Institution,
		checks:      d.Checks,
		log:         d.Logger.With().Str("component", "api").Logger(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Logger(s.log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(d.RateLimitPerMin, d.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.health)

	pub := r.Group("/auth")
	pub.POST("/signup", s.signup)
	pub.POST("/login", s.login)
	pub.POST("/refresh", s.refresh)

	protected := r.Group("/", auth.TeacherAuth(d.Tokens))
	protected.GET("/auth/me", s.me)

	protected.GET("/students", s.listStudents)
	protected.POST("/students", s.createStudent)

	att := protected.Group("/attendance")
	att.POST("/mark", s.mark)
	att.GET("/today", s.today)
	att.GET("/month-summary/:month", s.monthSummary)
	att.GET("/export/:month", s.export)
	att.GET("/student/:enrollment/:month", s.studentMonth)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": results})
}
