package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"mttsite/cmd/buildCFG"
	"mttsite/internal/api/api"
	"mttsite/internal/auth"
	rabbitReader "mttsite/internal/consumerWorker"
	"mttsite/internal/docstore"
	"mttsite/internal/docstore/mongo"
	"mttsite/internal/docstore/postgres"
	"mttsite/internal/docstore/surreal"
	"mttsite/internal/imageupload"
	"mttsite/internal/localstore"
	"mttsite/internal/mailer"
	"mttsite/internal/model"
	"mttsite/internal/rabbit"
	"mttsite/internal/resilient"
	"mttsite/internal/service"
	"mttsite/internal/telemetry"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", ""); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	shutdownTelemetry, err := telemetry.Init(rootCtx, buildCFG.BuildTelemetryConfig(cfg), &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise telemetry")
	}

	storeCfg, err := buildCFG.BuildStoreConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build store config")
	}
	remote, err := openStore(rootCtx, storeCfg, &log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", storeCfg.Driver).Msg("failed to open document store")
	}
	defer remote.Close()
	store := docstore.NewBreaker(remote, storeCfg.Breaker, &log)
	log.Info().Str("driver", storeCfg.Driver).Msg("Document store connected")

	var kv localstore.KV
	localCfg := buildCFG.BuildLocalStoreConfig(cfg, &log)
	if localCfg.Enabled {
		bolt, err := localstore.OpenBolt(localCfg.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", localCfg.Path).Msg("failed to open local store")
		}
		defer bolt.Close()
		kv = bolt
	}

	events := resilient.NewCollection(model.EventsCollection, store, kv, service.EventSearchFields, &log)
	registrations := resilient.NewCollection(model.RegistrationsCollection, store, kv, service.RegistrationSearchFields, &log,
		resilient.References("eventId", events))
	blogs := resilient.NewCollection(model.BlogsCollection, store, kv, service.BlogSearchFields, &log)

	workerCtx, cancelWorkers := context.WithCancel(rootCtx)

	var syncer *resilient.Syncer
	if syncCfg := buildCFG.BuildSyncConfig(cfg); syncCfg.Enabled && kv != nil {
		syncer = resilient.NewSyncer(syncCfg.Interval, &log, events, registrations, blogs)
		syncer.Start(workerCtx)
	}

	var notifier service.Notifier
	var rabbitReaderer *rabbitReader.Reader
	if rabbitCfg, ok := buildCFG.BuildRabbitConfig(cfg, &log); ok {
		rmq, err := rabbit.Dial(rabbitCfg, &log)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rmq.Close()
		notifier = rmq

		mail := mailer.New(buildCFG.BuildSMTPConfig(cfg), &log)
		rabbitReaderer = rabbitReader.NewReader(rmq, mail, &log)
		rabbitReaderer.Start(workerCtx)
	}

	authCfg, err := buildCFG.BuildAuthConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build auth config")
	}
	tokens, err := auth.NewTokens(authCfg.Secret, authCfg.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token issuer")
	}

	var uploader imageupload.Uploader = imageupload.Unconfigured{}
	if cld, err := imageupload.NewCloudinary(buildCFG.BuildCloudinaryConfig(cfg), &log); err == nil {
		uploader = cld
	} else {
		log.Warn().Err(err).Msg("image uploads disabled")
	}

	serviceInstance := service.NewService(service.Deps{
		Events:        events,
		Registrations: registrations,
		Blogs:         blogs,
		Users:         store,
		Tokens:        tokens,
		Uploader:      uploader,
		Notifier:      notifier,
		AdminEmails:   authCfg.AdminEmails,
		Log:           &log,
	})
	if n, err := serviceInstance.SeedAdmins(rootCtx, authCfg.AdminPassword); err != nil {
		log.Warn().Err(err).Msg("failed to seed admin accounts")
	} else if n > 0 {
		log.Info().Int("created", n).Msg("admin accounts seeded")
	}
	app := api.NewRouters(&api.Routers{
		Service:        serviceInstance,
		Log:            &log,
		RateLimitRPS:   float64(serverCfg.RateLimitPerMinute) / 60,
		RateLimitBurst: serverCfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	cancelWorkers()
	if rabbitReaderer != nil {
		rabbitReaderer.Stop()
	}
	if syncer != nil {
		syncer.Stop()
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown failed")
	}
	log.Info().Msg("Shutdown complete")
}

func openStore(ctx context.Context, sc buildCFG.StoreConfig, log *zerolog.Logger) (docstore.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, sc.Timeout)
	defer cancel()

	switch sc.Driver {
	case buildCFG.DriverPostgres:
		db, err := dbpg.New(sc.Postgres.MasterDSN, sc.Postgres.SlaveDSNs, sc.Postgres.Pool)
		if err != nil {
			return nil, fmt.Errorf("connect to DB: %w", err)
		}
		if err := db.Master.PingContext(connectCtx); err != nil {
			return nil, fmt.Errorf("DB ping failed: %w", err)
		}
		pg, err := postgres.New(db, log)
		if err != nil {
			return nil, err
		}
		migrations := sc.Postgres.Migrations
		if !filepath.IsAbs(migrations) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("cannot get working directory: %w", err)
			}
			migrations = filepath.Join(cwd, migrations)
		}
		if err := pg.MigrateUp(migrations); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Msg("Migrations applied successfully")
		return pg, nil
	case buildCFG.DriverSurreal:
		return surreal.New(connectCtx, sc.Surreal, log)
	case buildCFG.DriverMongo:
		return mongo.New(connectCtx, sc.Mongo, log)
	default:
		return docstore.NewMemoryStore(), nil
	}
}
