package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/riskcheck/riskcheck/internal/config"
	"github.com/riskcheck/riskcheck/internal/domain/api"
	"github.com/riskcheck/riskcheck/internal/domain/assessment"
	"github.com/riskcheck/riskcheck/internal/domain/hospital"
	"github.com/riskcheck/riskcheck/internal/domain/precaution"
	"github.com/riskcheck/riskcheck/internal/domain/session"
	"github.com/riskcheck/riskcheck/internal/platform/db"
	"github.com/riskcheck/riskcheck/internal/platform/middleware"
	"github.com/riskcheck/riskcheck/internal/platform/notification"
	"github.com/riskcheck/riskcheck/internal/platform/openapi"
	"github.com/riskcheck/riskcheck/internal/platform/phi"
	"github.com/riskcheck/riskcheck/internal/platform/scoring"
	"github.com/riskcheck/riskcheck/internal/platform/telemetry"
	"github.com/riskcheck/riskcheck/internal/platform/web"
)

const purgeInterval = 10 * time.Minute

// checker is one readiness dependency.
type checker interface {
	Name() string
	Check(ctx context.Context) error
}

type scoringCheck struct{ client *scoring.Client }

func (s scoringCheck) Name() string                    { return "scoring" }
func (s scoringCheck) Check(ctx context.Context) error { return s.client.Ping(ctx) }

// deps are the long-lived collaborators the HTTP server is built from.
type deps struct {
	cfg     *config.Config
	logger  zerolog.Logger
	client  *scoring.Client
	metrics *telemetry.Provider
	store   session.Store
	checks  []checker
	sender  notification.EmailSender
}

func newScoringClient(cfg *config.Config, logger zerolog.Logger, obs scoring.Observer) (*scoring.Client, error) {
	opts := []scoring.Option{scoring.WithLogger(logger)}
	if obs != nil {
		opts = append(opts, scoring.WithObserver(obs))
	}
	return scoring.New(scoring.Config{
		BaseURL:    cfg.ScoringAPIURL,
		Timeout:    cfg.ScoringAPITimeout,
		APIKey:     cfg.ScoringAPIKey,
		MaxRetries: cfg.ScoringMaxRetries,
	}, opts...)
}

func newEmailSender(cfg *config.Config) notification.EmailSender {
	if !cfg.EnableNotifications {
		return nil
	}
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// newServer wires routes and middleware.
func newServer(d deps) (*echo.Echo, error) {
	cfg := d.cfg

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	tz, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	key, err := cfg.SessionKey()
	if err != nil {
		return nil, err
	}
	tokens, err := session.NewTokenIssuer(key, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	catalogue, err := precaution.DefaultCatalogue()
	if err != nil {
		return nil, err
	}

	opts := []assessment.Option{assessment.WithRecorder(d.metrics)}
	if d.sender != nil {
		mgr := notification.NewManager(d.sender, notification.NewTemplateEngine()).WithRecorder(d.metrics)
		opts = append(opts, assessment.WithAlerter(mgr))
	}
	svc := assessment.NewService(d.client.Health, opts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = web.ErrorHandler(d.logger)

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.logger))
	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(d.metrics.MetricsMiddleware())

	e.StaticFS("/static", web.Static())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/ready", readyHandler(d.checks))
	e.GET("/metrics", d.metrics.PrometheusHandler())

	session.NewHandler(session.Config{
		Store:        d.store,
		Tokens:       tokens,
		Service:      svc,
		Locator:      hospital.NewLocator(d.client.Hospitals, cfg.SearchRadiusKM),
		Tips:         d.client.Recommendations,
		Catalogue:    catalogue,
		Timezone:     tz,
		SecureCookie: cfg.IsProduction(),
	}).RegisterRoutes(e)

	apiGroup := e.Group("/api/v1")
	api.NewHandler(d.client.Health, d.client.Hospitals, d.client.Recommendations, cfg.SearchRadiusKM, d.metrics).
		RegisterRoutes(apiGroup)
	apiGroup.GET("/openapi.json", openapi.NewGenerator(e, "/api/v1", version, api.Operations("/api/v1")).Handler())

	return e, nil
}

// readyHandler runs every check concurrently and reports 503 if any fails.
func readyHandler(checks []checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		results := make([]string, len(checks))
		var g errgroup.Group
		for i, ch := range checks {
			i, ch := i, ch
			g.Go(func() error {
				if err := ch.Check(ctx); err != nil {
					results[i] = err.Error()
					return err
				}
				results[i] = "ok"
				return nil
			})
		}
		err := g.Wait()

		report := make(map[string]string, len(checks))
		details := make(map[string]any)
		for i, ch := range checks {
			report[ch.Name()] = results[i]
			if d, ok := ch.(interface{ Details() any }); ok {
				details[ch.Name()] = d.Details()
			}
		}
		body := map[string]interface{}{"status": "ready", "checks": report}
		if len(details) > 0 {
			body["details"] = details
		}
		if err != nil {
			body["status"] = "unavailable"
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		return c.JSON(http.StatusOK, body)
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewProvider(version)
	client, err := newScoringClient(cfg, logger, metrics)
	if err != nil {
		return err
	}

	d := deps{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		metrics: metrics,
		store:   session.NewMemoryStore(),
		checks:  []checker{scoringCheck{client: client}},
		sender:  newEmailSender(cfg),
	}

	// Database (optional)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info().Int("applied", applied).Msg("connected to database")

		key, err := cfg.EncryptionKeyBytes()
		if err != nil {
			return err
		}
		var enc *phi.Encryptor
		if key != nil {
			if enc, err = phi.NewEncryptor(key); err != nil {
				return err
			}
		} else {
			logger.Warn().Msg("ENCRYPTION_KEY is not set; session payloads are stored unencrypted")
		}
		d.store = session.NewPGStore(pool, enc)
		d.checks = append(d.checks, db.NewChecker(pool))
	}

	e, err := newServer(d)
	if err != nil {
		return err
	}

	go session.NewPurger(d.store, purgeInterval, metrics, logger).Run(ctx)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("scoring_api", client.BaseURL()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
