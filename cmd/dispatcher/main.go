// Command dispatcher runs a standalone dispatch worker. Multiple
// replicas can run against the same database; the claim query and the
// optional Redis lock keep them from double-sending.
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

	"github.com/ignite/sequencer/internal/config"
	"github.com/ignite/sequencer/internal/pkg/distlock"
	"github.com/ignite/sequencer/internal/pkg/logger"
	"github.com/ignite/sequencer/internal/repository/postgres"
	"github.com/ignite/sequencer/internal/service/events"
	"github.com/ignite/sequencer/internal/service/journal"
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

	var sender transport.Transport = transport.NewLogTransport()
	if cfg.SES.AccessKey != "" && cfg.SES.SecretKey != "" {
		if ses, err := transport.NewSESTransport(context.Background(), cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region); err == nil {
			sender = ses
		}
	}

	var lock worker.Locker
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		lock = distlock.NewRedisLock(client, "sequencer:dispatch", 2*time.Minute)
	}

	dispatcher := worker.NewDispatcher(
		seqRepo, suppSvc, journalSvc, eventsSvc,
		registry, template.NewRenderer(), tracking.NewSigner(cfg.Sender.TrackingSecret), sender, lock,
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
	<-ctx.Done()
	dispatcher.Stop()
}
