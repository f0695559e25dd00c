package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"evalhub/internal/domain/assignment"
	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/autoassign"
	"evalhub/internal/domain/events"
	"evalhub/internal/domain/hierarchy"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/domain/results"
	"evalhub/internal/domain/staff"
	"evalhub/internal/platform/config"
	"evalhub/internal/platform/db"
	"evalhub/internal/platform/jobs"
	"evalhub/internal/platform/logging"
	"evalhub/internal/platform/metrics"
	assignmenthandler "evalhub/internal/transport/http/handlers/assignments"
	audithandler "evalhub/internal/transport/http/handlers/audit"
	autoassignhandler "evalhub/internal/transport/http/handlers/autoassign"
	hierarchyhandler "evalhub/internal/transport/http/handlers/hierarchy"
	jobshandler "evalhub/internal/transport/http/handlers/jobs"
	resultshandler "evalhub/internal/transport/http/handlers/results"
	"evalhub/internal/transport/http/middleware"
)

const (
	rateLimitPerWindow = 120
	rateLimitWindow    = time.Minute
)

// Services groups the domain services behind the HTTP surface and the CLI.
type Services struct {
	Hierarchy   *hierarchy.Service
	Assignments *assignment.Service
	AutoAssign  *autoassign.Engine
	Results     *results.Service
	Audit       *audit.Store
	Jobs        *jobs.Service
}

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Log      *slog.Logger
	Services Services
	Router   http.Handler

	closers []func()
}

// Close releases the pool and any notification transport.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New connects to postgres, applies migrations when configured and wires every service.
// Background workers are not started; call Start for that.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log)

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	app := &App{Config: cfg, DB: pool, Log: log}
	app.closers = append(app.closers, pool.Close)

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	dispatcher, err := app.dispatcher(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	staffStore := staff.NewStore(pool)
	eventStore := events.NewStore(pool)
	auditStore := audit.NewStore(pool)
	recorder := audit.NewRecorder(auditStore, log)
	notifier := notifications.New(dispatcher, log)

	graph := hierarchy.NewService(hierarchy.NewStore(pool), staffStore, recorder, log)
	assignments := assignment.NewService(assignment.NewStore(pool), eventStore, staffStore, recorder, notifier, log)
	app.Services = Services{
		Hierarchy:   graph,
		Assignments: assignments,
		AutoAssign: autoassign.NewEngine(graph, staffStore, eventStore, assignments, autoassign.Options{
			Timeout:        cfg.Assign.Timeout,
			DefaultDueDays: cfg.Assign.DefaultDueDays,
		}, log),
		Results: results.NewService(results.NewStore(pool), eventStore, staffStore, graph, recorder, notifier, log),
		Audit:   auditStore,
		Jobs:    jobs.New(pool, cfg.Jobs, assignments, log),
	}
	app.Router = app.routes()
	return app, nil
}

func (a *App) dispatcher(ctx context.Context) (notifications.Dispatcher, error) {
	if a.Config.Notify.Backend != "redis" {
		return notifications.NewOutboxStore(a.DB), nil
	}
	client := notifications.NewRedisClient(a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.Log.Warn("redis close failed", "err", err)
		}
	})
	return notifications.NewRedisStream(client, a.Config.Notify.Stream), nil
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	perms := auth.NewStaticPermissions()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.SensitiveRateLimit(rateLimitPerWindow, rateLimitWindow))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", metrics.Handler())
	}

	svc := a.Services
	router.Route("/api/v1", func(r chi.Router) {
		assignmentHandler := assignmenthandler.NewHandler(svc.Assignments, perms)
		assignmentHandler.RegisterPublicRoutes(r)
		assignmentHandler.RegisterRoutes(r)

		hierarchyhandler.NewHandler(svc.Hierarchy, perms).RegisterRoutes(r)
		autoassignhandler.NewHandler(svc.AutoAssign, svc.Jobs, perms).RegisterRoutes(r)
		resultshandler.NewHandler(svc.Results, svc.Jobs, perms).RegisterRoutes(r)
		audithandler.NewHandler(svc.Audit, perms).RegisterRoutes(r)
		jobshandler.NewHandler(svc.Jobs, perms).RegisterRoutes(r)
	})
	return router
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Services.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		app.Log.Info("evaluation server listening", "addr", cfg.Addr, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	app.Log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
