package sandbox

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/MarkLin1511/MedBridge/internal/platform/middleware"
)

const tokenTTL = 4 * time.Hour

// Config configures the demo server.
type Config struct {
	Port      int
	JWTSecret string
	Logger    zerolog.Logger
}

// Server is the in-memory demo API server.
type Server struct {
	echo   *echo.Echo
	state  *state
	secret []byte
	logger zerolog.Logger
	port   int
}

// New builds a seeded server. Routes mirror the hosted backend exactly so
// the client cannot tell them apart.
func New(cfg Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("sandbox: jwt secret is required")
	}

	st := newState()
	if err := st.Seed(); err != nil {
		return nil, fmt.Errorf("sandbox: seed: %w", err)
	}

	s := &Server{
		state:  st,
		secret: []byte(cfg.JWTSecret),
		logger: cfg.Logger,
		port:   cfg.Port,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Recovery(cfg.Logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(cfg.Logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Sanitize())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	api := e.Group("/api")
	api.POST("/auth/signup", s.signup)
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.requireAuth)
	authed.GET("/auth/me", s.me)
	authed.POST("/auth/change-password", s.changePassword)
	authed.GET("/dashboard", s.dashboard)
	authed.GET("/records", s.records)
	authed.GET("/providers", s.providers)
	authed.POST("/providers/:id/approve", s.approveProvider)
	authed.POST("/providers/:id/deny", s.denyProvider)
	authed.POST("/providers/:id/revoke", s.revokeProvider)
	authed.GET("/portals", s.portals)
	authed.POST("/portals/:id/connect", s.connectPortal)
	authed.POST("/portals/:id/disconnect", s.disconnectPortal)
	authed.GET("/fhir/authorize", s.fhirAuthorize)
	authed.GET("/fhir/connections", s.fhirConnections)
	authed.POST("/fhir/connections/:id/sync", s.fhirSync)
	authed.DELETE("/fhir/connections/:id", s.fhirDisconnect)
	authed.GET("/fhir/sync-history", s.fhirSyncHistory)
	authed.GET("/notifications", s.notifications)
	authed.PUT("/notifications/read-all", s.markAllNotificationsRead)
	authed.PUT("/notifications/:id/read", s.markNotificationRead)
	authed.GET("/settings", s.getSettings)
	authed.PUT("/settings", s.updateSettings)
	authed.GET("/export/fhir", s.exportFHIR)
	authed.GET("/audit-log", s.auditLog)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	s.echo = e
	return s, nil
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until the context is cancelled, then drains with a short
// shutdown grace period.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.port).Msg("sandbox listening")
		errCh <- s.echo.Start(fmt.Sprintf(":%d", s.port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// errorHandler renders errors as {"detail": "..."} the way the hosted
// backend does, so the client's detail extraction sees the same shape.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	detail := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = fmt.Sprintf("%v", he.Message)
		}
	}
	_ = c.JSON(status, map[string]string{"detail": detail})
}

func (s *Server) issueToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// requireAuth validates the bearer token and stashes the account on the
// context under "account".
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authentication credentials")
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(header[len(prefix):], claims, func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authentication credentials")
		}

		acct := s.state.findAccount(claims.Subject)
		if acct == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authentication credentials")
		}
		c.Set("account", acct)
		return next(c)
	}
}

func currentAccount(c echo.Context) *account {
	acct, _ := c.Get("account").(*account)
	return acct
}
