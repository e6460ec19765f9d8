package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/blockedby/media-indexer/internal/bot"
	"github.com/blockedby/media-indexer/internal/config"
	"github.com/blockedby/media-indexer/internal/database"
	"github.com/blockedby/media-indexer/internal/indexer"
	"github.com/blockedby/media-indexer/internal/logger"
	"github.com/blockedby/media-indexer/internal/migrator"
	"github.com/blockedby/media-indexer/internal/mongostore"
	"github.com/blockedby/media-indexer/internal/nats"
	"github.com/blockedby/media-indexer/internal/publisher"
	"github.com/blockedby/media-indexer/internal/repository"
	"github.com/blockedby/media-indexer/internal/telegram"
	"github.com/blockedby/media-indexer/migrations"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Info().Str("db", cfg.DatabaseDriver).Str("resume", cfg.ResumeBackend).Msg("starting media indexer")

	// 3. Setup context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Connect to database
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	// 5. Resume store
	var resume indexer.ResumeStore = repository.NewResumeRepository(db.GORM)
	if cfg.ResumeBackend == config.ResumeBackendMongo {
		store, mc, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mongo")
		}
		defer disconnect(mc)
		resume = store
	}

	// 6. Connect to NATS
	var (
		pub    indexer.EventPublisher
		events indexer.Connector
	)
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL, "media-indexer")
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureStream(ctx, nats.Stream, nats.Subjects); err != nil {
				log.Warn().Err(err).Msg("failed to ensure stream")
			}
			pub = publisher.NewNATSPublisher(nc)
			events = nc
		}
	}

	// 7. Telegram bot
	tgManager := telegram.NewManager(cfg, db.GORM)
	if err := tgManager.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("telegram manager init failed")
	}
	defer tgManager.Stop()

	burst := int(cfg.TGRateLimit / 4)
	tgClient := telegram.NewClient(tgManager, telegram.NewRateLimiter(cfg.TGRateLimit, burst))

	// 8. Indexer
	media := repository.NewMediaRepository(db.GORM)
	scanner := indexer.NewScanner(tgClient, resume, media, pub, cfg.ProgressEvery)
	reporter := indexer.NewStatusReporter(tgClient, indexer.ReporterConfig{
		LogChannel:  cfg.IndexLogChannel,
		DeleteAfter: cfg.AutoDeleteAfter,
	})
	controller := indexer.NewController(scanner, reporter, pub)

	b := bot.New(cfg, tgClient, indexer.NewResolver(tgClient), controller)
	b.Register(tgManager.GetClient().Dispatcher, tgClient)

	// 9. Admin HTTP api
	var server *http.Server
	if cfg.HTTPPort > 0 {
		handler := indexer.NewHandler(controller, resume, tgClient, db).
			WithStats(repository.NewStatsRepository(db.GORM)).
			WithMedia(media)
		if events != nil {
			handler.WithEvents(events)
		}
		server = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           indexer.NewRouter(handler),
			ReadHeaderTimeout: 10 * time.Second,
		}

		log.Info().Int("port", cfg.HTTPPort).Msg("starting http server")
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("server error")
				cancel()
			}
		}()
	}

	// 10. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	controller.Stop()
	controller.Wait()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}

	log.Info().Msg("shutdown complete")
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	if cfg.DatabaseDriver == config.DriverSQLite {
		return database.NewSQLite(cfg.SQLitePath)
	}

	m, err := migrator.NewWithFS(migrations.FS)
	if err != nil {
		return nil, err
	}
	if err := m.Up(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}
	if version, dirty, err := m.Version(ctx, cfg.DatabaseURL); err == nil {
		logger.Get().Info().Uint("version", version).Bool("dirty", dirty).Msg("database schema ready")
	}
	return database.New(ctx, cfg.DatabaseURL)
}

func disconnect(c *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Disconnect(ctx); err != nil {
		logger.Get().Warn().Err(err).Msg("mongo disconnect")
	}
}
