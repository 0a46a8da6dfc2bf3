package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/mediconnect/scheduler/internal/config"
	"github.com/mediconnect/scheduler/internal/domain/admin"
	"github.com/mediconnect/scheduler/internal/domain/scheduling"
	"github.com/mediconnect/scheduler/internal/platform/auth"
	"github.com/mediconnect/scheduler/internal/platform/db"
	"github.com/mediconnect/scheduler/internal/platform/middleware"
)

const version = "0.1.0"

type serverDeps struct {
	store     scheduling.Store
	auditLogs admin.AuditLogRepository
	clock     scheduling.Clock
	// pinger backs /health/db; nil reports the in-process store as healthy.
	pinger db.Pinger
}

type memoryPinger struct{}

func (memoryPinger) Ping(context.Context) error { return nil }

func newServer(cfg *config.Config, logger zerolog.Logger, deps serverDeps) (*echo.Echo, error) {
	loc, err := cfg.LoadLocation()
	if err != nil {
		return nil, err
	}
	cache, err := scheduling.NewBookedIndexCache(cfg.SlotCacheSize)
	if err != nil {
		return nil, err
	}

	svc := scheduling.NewService(deps.store, deps.clock)
	svc.SetLocation(loc)
	svc.SetBookedIndexCache(cache)
	adminSvc := admin.NewService(deps.store, deps.auditLogs)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.JWTSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger, adminSvc))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	pinger := deps.pinger
	if pinger == nil {
		pinger = memoryPinger{}
	}
	e.GET("/health/db", db.HealthHandler(pinger))

	apiV1 := e.Group("/api/v1")
	scheduling.NewHandler(scheduling.NewLoggingService(svc, logger), loc).RegisterRoutes(apiV1)
	admin.NewHandler(adminSvc).RegisterRoutes(apiV1)

	return e, nil
}
