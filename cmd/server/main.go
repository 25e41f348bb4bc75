package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"visita/internal/audit"
	churchhandler "visita/internal/church/handler"
	churchmetrics "visita/internal/church/metrics"
	"visita/internal/church/models"
	"visita/internal/church/service"
	pendingstore "visita/internal/church/store/pending"
	profilestore "visita/internal/church/store/profile"
	"visita/internal/church/store/published"
	jwttoken "visita/internal/jwt_token"
	"visita/internal/notify"
	"visita/internal/platform/config"
	"visita/internal/platform/httpserver"
	"visita/internal/platform/logger"
	"visita/internal/platform/metrics"
	"visita/internal/platform/middleware"
	redisplatform "visita/internal/platform/redis"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	var (
		profiles    service.ProfileStore
		pending     service.PendingStore
		txRunner    service.TxRunner
		notifyStore notify.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		profiles = profilestore.NewPostgres(db)
		pending = pendingstore.NewPostgres(db)
		txRunner = newChurchPostgresTx(db)
		notifyStore = notify.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		profiles = profilestore.NewInMemory()
		pending = pendingstore.NewInMemory()
		notifyStore = notify.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	// Published-view cache is optional; without Redis, reads hit the store.
	var cache service.PublishedCache
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = published.NewRedisCache(redisClient.Client, config.PublishedCacheTTL)
		log.Info("published view cache enabled")
	}

	// Background workers drain audit events and notifications off the request path.
	auditOutbox := make(chan audit.Event, 256)
	auditStore := audit.NewInMemoryStore()
	auditWorker := audit.NewWorker(auditStore, auditOutbox)

	notifyOutbox := make(chan notify.Notification, 256)
	notifyWorker := notify.NewWorker(notifyStore, notifyOutbox)

	httpMetrics := metrics.New()
	churchMetrics := churchmetrics.New()

	svc := service.New(profiles, pending,
		service.WithLogger(log),
		service.WithNotifier(notify.NewChannelDispatcher(notifyOutbox)),
		service.WithAuditPublisher(audit.NewChannelPublisher(auditOutbox)),
		service.WithMetrics(churchMetrics),
		service.WithPublishedCache(cache),
		serviceTxOption(txRunner),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	validator := jwttoken.NewJWTServiceAdapter(jwtService)
	handler := churchhandler.New(svc, log)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(httpMetrics))

	router.Group(handler.RegisterPublic)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		r.Use(middleware.RequireRole(log, string(models.RoleParishSecretary)))
		handler.RegisterParish(r)
	})
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		r.Use(middleware.RequireRole(log,
			string(models.RoleChanceryReviewer), string(models.RoleHeritageReviewer)))
		handler.RegisterChancery(r)
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return ignoreCancel(auditWorker.Run(groupCtx))
	})
	group.Go(func() error {
		return ignoreCancel(notifyWorker.Run(groupCtx))
	})
	group.Go(func() error {
		log.Info("starting visita server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func serviceTxOption(txRunner service.TxRunner) service.Option {
	if txRunner == nil {
		return func(*service.Service) {}
	}
	return service.WithTxRunner(txRunner)
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
