// Command server runs the trust evaluation service: HTTP API, websocket
// decision feed, and the policy/device/attempt stores behind them.
//
// Storage backends are selected by configuration. Without DATABASE_URL the
// process runs entirely in memory, which is the intended mode for local
// development.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	attempthandler "modzero/internal/attempt/handler"
	attemptservice "modzero/internal/attempt/service"
	attemptstore "modzero/internal/attempt/store"
	"modzero/internal/auth"
	authhandler "modzero/internal/auth/handler"
	authservice "modzero/internal/auth/service"
	"modzero/internal/auth/store/revocation"
	userstore "modzero/internal/auth/store/user"
	devicehandler "modzero/internal/device/handler"
	deviceservice "modzero/internal/device/service"
	devicestore "modzero/internal/device/store"
	"modzero/internal/jwttoken"
	"modzero/internal/live"
	"modzero/internal/platform/config"
	"modzero/internal/platform/httpserver"
	"modzero/internal/platform/logger"
	redisplatform "modzero/internal/platform/redis"
	policyhandler "modzero/internal/policy/handler"
	policyservice "modzero/internal/policy/service"
	policystore "modzero/internal/policy/store"
	httptransport "modzero/internal/transport/http"
	"modzero/internal/trust"
	trustmetrics "modzero/internal/trust/metrics"
	dErrors "modzero/pkg/domain-errors"
	"modzero/pkg/platform/audit"
	auditkafka "modzero/pkg/platform/audit/kafka"
	auditpublisher "modzero/pkg/platform/audit/publisher"
	auditmemory "modzero/pkg/platform/audit/store/memory"
	auditpostgres "modzero/pkg/platform/audit/store/postgres"
	authmw "modzero/pkg/platform/middleware/auth"
)

const (
	tokenIssuer   = "modzero"
	tokenAudience = "modzero"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage. A configured DATABASE_URL switches every store to Postgres;
	// otherwise everything lives in memory.
	var (
		db         *sql.DB
		users      authservice.UserStore
		policies   policyservice.Store
		devices    deviceservice.Store
		attempts   attemptservice.Store
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		users = userstore.NewPostgres(db)
		policies = policystore.NewPostgres(db)
		devices = devicestore.NewPostgres(db)
		attempts = attemptstore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		log.Info("storage configured", "backend", "postgres")
	} else {
		users = userstore.NewInMemoryStore()
		policies = policystore.NewInMemoryStore()
		devices = devicestore.NewInMemoryStore()
		attempts = attemptstore.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
		log.Info("storage configured", "backend", "memory")
	}

	// Token revocation. Redis when configured so revocations are shared
	// across instances, in-memory otherwise.
	var trl authservice.TokenRevocationList
	redisClient, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
		log.Info("token revocation configured", "backend", "redis")
	} else {
		trl = revocation.NewInMemoryTRL()
		log.Info("token revocation configured", "backend", "memory")
	}

	// Audit trail, optionally mirrored to Kafka.
	publisherOpts := []auditpublisher.Option{
		auditpublisher.WithAsyncBuffer(256),
		auditpublisher.WithLogger(log),
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := auditkafka.NewSink(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer sink.Close()
		publisherOpts = append(publisherOpts, auditpublisher.WithSink(sink))
		log.Info("audit sink configured", "brokers", cfg.KafkaBrokers)
	}
	publisher := auditpublisher.NewPublisher(auditStore, publisherOpts...)
	defer publisher.Close()

	// Services.
	tokens := jwttoken.New(cfg.JWTSigningKey, tokenIssuer, tokenAudience)
	authSvc := authservice.NewService(users, tokens, trl,
		authservice.WithAuditPublisher(publisher),
		authservice.WithLogger(log),
		authservice.WithTokenTTL(cfg.TokenTTL),
	)
	deviceSvc := deviceservice.NewService(devices,
		deviceservice.WithAuditPublisher(publisher),
		deviceservice.WithLogger(log),
	)
	policySvc := policyservice.NewService(policies, trust.DefaultRegistry(),
		policyservice.WithAuditPublisher(publisher),
		policyservice.WithLogger(log),
	)

	hub := live.NewHub(log)
	engine := trust.NewEngine(trust.WithMetrics(trustmetrics.New()))
	attemptSvc := attemptservice.NewService(engine, attempts, deviceSvc, policySvc,
		attemptservice.WithBroadcaster(hub),
		attemptservice.WithAuditPublisher(publisher),
		attemptservice.WithLogger(log),
	)

	if err := seedAdmin(ctx, cfg, authSvc, log); err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Handlers{
		Auth:    authhandler.New(authSvc, log),
		Device:  devicehandler.New(deviceSvc, log),
		Policy:  policyhandler.New(policySvc, log),
		Attempt: attempthandler.New(attemptSvc, log),
		Hub:     hub,
		AuthMW:  authmw.New(tokens, trl),
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedAdmin creates the configured administrator account if it does not
// exist yet. HTTP registration only produces employee accounts.
func seedAdmin(ctx context.Context, cfg config.Server, authSvc *authservice.Service, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := authSvc.Register(ctx, cfg.AdminEmail, cfg.AdminPassword, auth.RoleAdmin)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil
		}
		return err
	}
	log.Info("admin account seeded", "email", cfg.AdminEmail)
	return nil
}
