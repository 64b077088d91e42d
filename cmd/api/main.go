package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/medrec/clinic-api/internal/authz"
	"github.com/medrec/clinic-api/internal/config"
	authhandler "github.com/medrec/clinic-api/internal/handler/auth"
	canvashandler "github.com/medrec/clinic-api/internal/handler/canvas"
	filehandler "github.com/medrec/clinic-api/internal/handler/file"
	historyhandler "github.com/medrec/clinic-api/internal/handler/medicalhistory"
	patienthandler "github.com/medrec/clinic-api/internal/handler/patient"
	privilegehandler "github.com/medrec/clinic-api/internal/handler/privilege"
	userhandler "github.com/medrec/clinic-api/internal/handler/user"
	visithandler "github.com/medrec/clinic-api/internal/handler/visit"
	"github.com/medrec/clinic-api/internal/middleware"
	"github.com/medrec/clinic-api/internal/router"
	"github.com/medrec/clinic-api/internal/seed"
	"github.com/medrec/clinic-api/internal/service/audit"
	authsvc "github.com/medrec/clinic-api/internal/service/auth"
	canvassvc "github.com/medrec/clinic-api/internal/service/canvas"
	filesvc "github.com/medrec/clinic-api/internal/service/file"
	"github.com/medrec/clinic-api/internal/service/guard"
	historysvc "github.com/medrec/clinic-api/internal/service/medicalhistory"
	patientsvc "github.com/medrec/clinic-api/internal/service/patient"
	privilegesvc "github.com/medrec/clinic-api/internal/service/privilege"
	usersvc "github.com/medrec/clinic-api/internal/service/user"
	visitsvc "github.com/medrec/clinic-api/internal/service/visit"
	"github.com/medrec/clinic-api/internal/session"
	"github.com/medrec/clinic-api/internal/store"
	"github.com/medrec/clinic-api/internal/store/fsblob"
	"github.com/medrec/clinic-api/internal/store/memory"
	"github.com/medrec/clinic-api/internal/store/postgres"
	pkgauth "github.com/medrec/clinic-api/pkg/auth"
	"github.com/medrec/clinic-api/pkg/logger"
	"github.com/medrec/clinic-api/pkg/messaging"
	redisbroker "github.com/medrec/clinic-api/pkg/messaging/redis"
	"github.com/medrec/clinic-api/pkg/metrics"
	"github.com/medrec/clinic-api/pkg/security"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	if err := run(log, cfg); err != nil {
		log.Fatal(err, "server exited")
	}
}

func run(log *logger.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rawStore, cleanup, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer cleanup()

	m := metrics.NewMetrics("clinic", "api")
	st := store.Instrument(rawStore, m)
	hasher := security.NewBcryptHasher(0)

	sessionTTL := time.Duration(cfg.Session.TTLSeconds) * time.Second
	sessions := session.NewStore(sessionTTL)
	tokens := pkgauth.NewJWTService(cfg.Session.JWTSecret, sessionTTL)

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.Redis.URL}, log.Zerolog())
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer broker.Close()
	}

	privilegesColl := st.Collection(store.CollPrivileges)
	usersColl := st.Collection(store.CollUsers)

	authzSvc := authz.NewService(privilegesColl, cfg.Registry.CacheTTL, broker, log)
	if broker != nil {
		go func() {
			if err := authzSvc.ListenInvalidations(ctx); err != nil {
				log.Error(err, "privilege invalidation listener stopped")
			}
		}()
	}

	seeder := seed.New(usersColl, privilegesColl, hasher, log)
	if err := seeder.Run(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		return fmt.Errorf("seed bootstrap state: %w", err)
	}

	g := guard.New(authzSvc, log, m)
	auditor := audit.NewService(st.Collection(store.CollAudit), log)

	blobCache, err := fsblob.NewCache(cfg.Blob.CacheDir, cfg.Blob.CacheQuota)
	if err != nil {
		return fmt.Errorf("open blob cache: %w", err)
	}

	patientsColl := st.Collection(store.CollPatients)
	visitsColl := st.Collection(store.CollVisits)
	historiesColl := st.Collection(store.CollHistories)

	authSvc := authsvc.NewService(usersColl, sessions, tokens, hasher, log, m)
	patientSvc := patientsvc.NewService(patientsColl, visitsColl, historiesColl, g, auditor, log)
	visitSvc := visitsvc.NewService(visitsColl, patientsColl, g, auditor, log)
	historySvc := historysvc.NewService(historiesColl, patientsColl, g, auditor, log)
	userSvc := usersvc.NewService(usersColl, g, hasher, auditor, log)
	privilegeSvc := privilegesvc.NewService(privilegesColl, authzSvc, g, auditor, log)
	fileSvc := filesvc.NewService(st.Collection(store.CollFiles), patientsColl, st.Blobs(), blobCache, g, auditor, log, m)
	canvasSvc := canvassvc.NewService(st.Collection(store.CollCanvases), st.Blobs(), g, auditor, log)

	authMW := middleware.NewAuthMiddleware(tokens, sessions)
	r := router.New(log, authMW, router.Config{
		RateLimit: rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst: cfg.RateLimit.Burst,
	},
		authhandler.NewHandler(authSvc),
		patienthandler.NewHandler(patientSvc),
		visithandler.NewHandler(visitSvc),
		historyhandler.NewHandler(historySvc),
		userhandler.NewHandler(userSvc),
		privilegehandler.NewHandler(privilegeSvc),
		filehandler.NewHandler(fileSvc),
		canvashandler.NewHandler(canvasSvc),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, func(), error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		st, err := postgres.New(postgres.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Name:     cfg.Name,
			SSLMode:  cfg.SSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
