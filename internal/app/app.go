// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/activity"
	activitypostgres "github.com/lestari-foundation/forestgate/internal/activity/postgres"
	"github.com/lestari-foundation/forestgate/internal/carbon"
	carbonpostgres "github.com/lestari-foundation/forestgate/internal/carbon/postgres"
	"github.com/lestari-foundation/forestgate/internal/config"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/finance"
	financepostgres "github.com/lestari-foundation/forestgate/internal/finance/postgres"
	"github.com/lestari-foundation/forestgate/internal/forestry"
	forestrypostgres "github.com/lestari-foundation/forestgate/internal/forestry/postgres"
	"github.com/lestari-foundation/forestgate/internal/identity"
	"github.com/lestari-foundation/forestgate/internal/identity/jwt"
	identitypostgres "github.com/lestari-foundation/forestgate/internal/identity/postgres"
	"github.com/lestari-foundation/forestgate/internal/notifications"
	notificationspostgres "github.com/lestari-foundation/forestgate/internal/notifications/postgres"
	"github.com/lestari-foundation/forestgate/internal/pkg/ctxlog"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
	"github.com/lestari-foundation/forestgate/internal/pkg/metrics"
	"github.com/lestari-foundation/forestgate/internal/pkg/postgres"
	"github.com/lestari-foundation/forestgate/internal/programs"
	programspostgres "github.com/lestari-foundation/forestgate/internal/programs/postgres"
	"github.com/lestari-foundation/forestgate/internal/version"
	"github.com/lestari-foundation/forestgate/internal/workflow"
	workflowpostgres "github.com/lestari-foundation/forestgate/internal/workflow/postgres"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
	"golang.org/x/sync/errgroup"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
}

// New creates a new application instance. The database schema is expected
// to be migrated already.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:              cfg.Database.URL,
		MaxOpenConns:     cfg.Database.MaxOpenConns,
		MaxIdleConns:     cfg.Database.MaxIdleConns,
		ConnMaxLifetime:  cfg.Database.ConnMaxLifetime,
		ConnectAttempts:  cfg.Database.ConnectAttempts,
		StatementTimeout: cfg.Database.StatementTimeout,
		ApplicationName:  "forestgate",
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	metrics.TrackPool(db)

	app := &App{
		config: cfg,
		logger: logger,
		db:     db,
	}

	router, err := app.setupRouter(connectCtx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run serves the API and metrics listeners until either fails or ctx is
// cancelled, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting metrics server", "host", a.config.Server.Host, "port", a.config.Server.MetricsPort)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("starting server", "host", a.config.Server.Host, "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	var g errgroup.Group
	g.Go(func() error {
		if err := a.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	})
	err := g.Wait()

	a.db.Close()

	return err
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}).Handler)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	activityService := activity.NewService(activitypostgres.NewRepository(a.db))

	identityRepo := identitypostgres.NewRepository(a.db)
	jwtAuth := jwt.NewAuthenticator(jwt.Config{
		SecretKey:            a.config.JWT.SecretKey,
		AccessTokenDuration:  a.config.JWT.AccessTokenDuration,
		RefreshTokenDuration: a.config.JWT.RefreshTokenDuration,
	}, identityRepo)
	identityService := identity.NewService(identityRepo, jwtAuth, activityService)

	if email := a.config.Bootstrap.AdminEmail; email != "" {
		created, err := identityService.EnsureAdmin(ctx, email, a.config.Bootstrap.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			a.logger.Info("bootstrap admin created", "email", email)
		}
	}

	evaluator := access.NewEvaluator(identityService)

	renderer, err := notifications.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("create notification renderer: %w", err)
	}
	notificationsService := notifications.NewService(notificationspostgres.NewRepository(a.db), renderer)

	tracker := workflow.NewTracker(
		workflowpostgres.NewStore(a.db),
		evaluator,
		identityService,
		notificationsService,
		activityService,
	)

	identityHandler := identity.NewHandler(identityService)
	accessHandler := access.NewHandler(evaluator)
	notificationsHandler := notifications.NewHandler(notificationsService)
	activityHandler := activity.NewHandler(activityService)
	workflowHandler := workflow.NewHandler(tracker, evaluator, activityService)
	programsHandler := programs.NewHandler(programs.NewService(programspostgres.NewRepository(a.db), activityService))
	carbonHandler := carbon.NewHandler(carbon.NewService(carbonpostgres.NewRepository(a.db), activityService))
	forestryHandler := forestry.NewHandler(forestry.NewService(forestrypostgres.NewRepository(a.db), activityService))
	financeHandler := finance.NewHandler(finance.NewService(financepostgres.NewRepository(a.db), activityService))

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r, a.config.RateLimit.LoginPerMinute)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))

			identityHandler.RegisterProtectedRoutes(r, evaluator.Require)
			accessHandler.RegisterRoutes(r)
			notificationsHandler.RegisterRoutes(r)

			programsHandler.RegisterRoutes(r, evaluator.Require)
			carbonHandler.RegisterRoutes(r, evaluator.Require)
			forestryHandler.RegisterRoutes(r, evaluator.Require, a.config.RateLimit.ImportPerMinute)
			financeHandler.RegisterRoutes(r, evaluator.Require)

			workflowHandler.RegisterRoutes(r, "/programs", domain.KindProgram)
			workflowHandler.RegisterRoutes(r, "/carbon-projects", domain.KindCarbonProject)

			r.Group(func(r chi.Router) {
				r.Use(evaluator.Require(access.ActivityLogView))
				activityHandler.RegisterRoutes(r)
			})
		})
	})

	return r, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
