// Command server runs the sequencer API together with an embedded
// dispatcher.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/sequencer/internal/api"
	"github.com/ignite/sequencer/internal/config"
	"github.com/ignite/sequencer/internal/pkg/distlock"
	"github.com/ignite/sequencer/internal/pkg/logger"
	"github.com/ignite/sequencer/internal/repository/postgres"
	"github.com/ignite/sequencer/internal/service/events"
	"github.com/ignite/sequencer/internal/service/journal"
	"github.com/ignite/sequencer/internal/service/sequence"
	"github.com/ignite/sequencer/internal/service/suppression"
	"github.com/ignite/sequencer/internal/service/template"
	"github.com/ignite/sequencer/internal/tracking"
	"github.com/ignite/sequencer/internal/transport"
	"github.com/ignite/sequencer/internal/worker"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyLogging(cfg.Logging)

	if cfg.Database.URL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "error", err.Error())
		os.Exit(1)
	}

	registry, err := template.NewRegistry(cfg.Templates)
	if err != nil {
		logger.Error("template registry", "error", err.Error())
		os.Exit(1)
	}

	journalSvc := journal.NewService(postgres.NewJournalRepo(db))
	suppSvc := suppression.NewService(postgres.NewSuppressionRepo(db), journalSvc)
	eventsSvc := events.NewService(postgres.NewEventRepo(db), suppSvc)
	seqRepo := postgres.NewSequenceRepo(db)
	seqSvc := sequence.NewService(seqRepo, postgres.NewProspectDirectory(db), suppSvc, journalSvc, eventsSvc, registry)

	signer := tracking.NewSigner(cfg.Sender.TrackingSecret)

	sender := buildTransport(cfg)
	var lock worker.Locker
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		lock = distlock.NewRedisLock(client, "sequencer:dispatch", 2*time.Minute)
	}

	dispatcher := worker.NewDispatcher(
		seqRepo, suppSvc, journalSvc, eventsSvc,
		registry, template.NewRenderer(), signer, sender, lock,
		worker.DispatcherConfig{
			FromName:     cfg.Sender.FromName,
			FromEmail:    cfg.Sender.FromEmail,
			ReplyTo:      cfg.Sender.ReplyTo,
			BaseURL:      cfg.Sender.BaseURL,
			BatchSize:    cfg.Dispatch.BatchSize,
			PollInterval: cfg.Dispatch.PollInterval(),
			SendTimeout:  cfg.Dispatch.SendTimeout(),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	handlers := api.NewHandlers(suppSvc, journalSvc, seqSvc, eventsSvc, dispatcher, tracking.NewHandler(signer, suppSvc))
	server := api.NewServer(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil {
			logger.Error("server exited", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err.Error())
	}
}

func applyLogging(cfg config.LoggingConfig) {
	switch cfg.Level {
	case "debug":
		logger.SetLevel(logger.DEBUG)
	case "warn":
		logger.SetLevel(logger.WARN)
	case "error":
		logger.SetLevel(logger.ERROR)
	default:
		logger.SetLevel(logger.INFO)
	}
	logger.SetRedactPII(cfg.RedactEnabled())
}

func buildTransport(cfg *config.Config) transport.Transport {
	if cfg.SES.AccessKey != "" && cfg.SES.SecretKey != "" {
		ses, err := transport.NewSESTransport(context.Background(), cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region)
		if err == nil {
			logger.Info("using SES transport", "region", cfg.SES.Region)
			return ses
		}
		logger.Warn("SES transport unavailable, falling back to log transport", "error", err.Error())
	}
	logger.Info("using log-only transport")
	return transport.NewLogTransport()
}
