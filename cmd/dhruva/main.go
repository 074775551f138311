package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"dhruva/internal/audit"
	auditstore "dhruva/internal/audit/store"
	credhandler "dhruva/internal/credential/handler"
	credservice "dhruva/internal/credential/service"
	credstore "dhruva/internal/credential/store"
	issuancehandler "dhruva/internal/issuance/handler"
	issuanceservice "dhruva/internal/issuance/service"
	issuancestore "dhruva/internal/issuance/store"
	"dhruva/internal/platform/config"
	"dhruva/internal/platform/httpserver"
	"dhruva/internal/platform/logger"
	"dhruva/internal/platform/metrics"
	"dhruva/internal/platform/postgres"
	platformredis "dhruva/internal/platform/redis"
	"dhruva/internal/registry"
	"dhruva/internal/registry/cache"
	registryhandler "dhruva/internal/registry/handler"
	transport "dhruva/internal/transport/http"
	"dhruva/internal/uploads"
	userhandler "dhruva/internal/user/handler"
	userservice "dhruva/internal/user/service"
	userstore "dhruva/internal/user/store"
	"dhruva/internal/user/token"
	"dhruva/internal/verify"
)

// devOwner anchors the mock registry when no chain is configured.
const devOwner = "0x0000000000000000000000000000000000000001"

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "dhruva",
		Usage: "verifiable credential issuance and verification service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return serve(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Value: "migrations", Usage: "migrations directory"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return migrate(ctx, c.String("dir"))
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrate(ctx context.Context, dir string) error {
	cfg := config.FromEnv()
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrations")
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.Migrate(db, dir)
}

func serve(ctx context.Context) error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		log.Info("postgres connected")
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
	}

	rdb, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	var factCache *cache.FactCache
	if rdb != nil {
		defer rdb.Close()
		factCache = cache.New(rdb.Client, cfg.RegistryCacheTTL)
		log.Info("redis connected", "cache_ttl", cfg.RegistryCacheTTL)
	}

	var reg registry.Registry
	if cfg.ChainRPCURL != "" {
		eth, err := registry.NewEthereum(ctx, registry.EthereumConfig{
			RPCURL:          cfg.ChainRPCURL,
			ContractAddress: cfg.ContractAddress,
			ABI:             cfg.ContractABI,
			PrivateKey:      cfg.ChainPrivateKey,
			ChainID:         cfg.ChainID,
		})
		if err != nil {
			return err
		}
		reg = eth
		log.Info("registry gateway connected", "contract", cfg.ContractAddress)
	} else {
		reg = registry.NewMock(devOwner, "0x000000000000000000000000000000000000dEaD")
		log.Warn("no CHAIN_RPC_URL configured, using mock registry")
	}

	var auditStore audit.Store
	var credStore credstore.Store
	var usrStore userstore.Store
	var intentStore issuancestore.Store
	if db != nil {
		auditStore = auditstore.NewPostgres(db)
		credStore = credstore.NewPostgres(db)
		usrStore = userstore.NewPostgres(db)
		intentStore = issuancestore.NewPostgres(db)
	} else {
		auditStore = auditstore.NewMemory()
		credStore = credstore.NewMemory()
		usrStore = userstore.NewMemory()
		intentStore = issuancestore.NewMemory()
	}

	sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
	if err != nil {
		return err
	}
	var auditSink audit.Sink
	if sink != nil {
		defer sink.Close(context.Background())
		auditSink = sink
		log.Info("audit events streaming to kafka", "topic", cfg.AuditTopic)
	}
	auditPub := audit.NewPublisher(auditStore, auditSink, log)

	uploadStore, err := uploads.New(cfg.UploadDir)
	if err != nil {
		return err
	}

	tokens := token.NewIssuer(cfg.JWTSigningKey)

	credSvc := credservice.New(credStore, auditPub, m, log, cfg.FrontendURL)
	usrSvc := userservice.New(usrStore, tokens, auditPub, m, log)
	issuanceSvc := issuanceservice.New(intentStore, credStore, reg, factCache, auditPub, m, log)
	verifySvc := verify.New(reg, factCache, credStore, m, log)

	reconciler := issuanceservice.NewReconciler(
		intentStore, credStore, reg, auditPub, log,
		cfg.IntentSweepInterval, cfg.IntentStuckAfter, cfg.IntentMaxAttempts,
	)

	checks := map[string]transport.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = rdb.Health
	}

	router := transport.NewRouter(
		transport.Config{FrontendURL: cfg.FrontendURL, UploadDir: cfg.UploadDir},
		transport.Handlers{
			Credentials: credhandler.New(credSvc, uploadStore, log),
			Users:       userhandler.New(usrSvc, tokens, log),
			Issuance:    issuancehandler.New(issuanceSvc, uploadStore, log),
			Verify:      verify.NewHandler(verifySvc),
			Registry:    registryhandler.New(reg),
		},
		m, log, checks,
	)

	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reconciler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
