// Command filingwatch ingests insider ownership filings from the public
// filing archive and emails subscribers a digest of new matches.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/filingwatch/internal/adapters/driven/mail"
	"github.com/custodia-labs/filingwatch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/filingwatch/internal/adapters/driving/cli"
	"github.com/custodia-labs/filingwatch/internal/archive"
	"github.com/custodia-labs/filingwatch/internal/config"
	"github.com/custodia-labs/filingwatch/internal/core/services"
	"github.com/custodia-labs/filingwatch/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version, bootstrap); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap wires the adapters and services from configuration.
func bootstrap(configPath string) (cli.Services, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cli.Services{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cli.Services{}, nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("FILINGWATCH_LOG_LEVEL: %w", err)
	}
	logger.SetLevel(level)

	fetcher, err := archive.NewClient(archive.Options{
		BaseURL:   cfg.ArchiveURL,
		UserAgent: cfg.UserAgent,
		RateLimit: archive.RateLimitConfig{Requests: cfg.RateLimit, Window: cfg.RateWindow.Std()},
		Timeout:   cfg.HTTPTimeout.Std(),
	})
	if err != nil {
		return cli.Services{}, nil, err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("Using database %s", store.Path())

	mailer := mail.NewMailer(mail.Config{
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
		ServerName:  cfg.Mail.ServerName,
		Username:    cfg.Mail.Username,
		Password:    cfg.Mail.Password,
		Timeout:     cfg.HTTPTimeout.Std(),
	})
	if missing := mailer.Missing(); len(missing) > 0 {
		logger.Warn("Mail relay not configured (missing SMTP %s); digests will not be sent",
			strings.Join(missing, ", "))
	}

	matcher := services.NewSubscriptionMatcher(
		store.SubscriptionStore(),
		store.UserStore(),
		store.FilingStore(),
		mailer,
		services.NewDigestComposer(cfg.ArchiveURL),
	)
	orchestrator := services.NewIngestionOrchestrator(fetcher, store.FilingStore(), matcher, services.IngestionOptions{
		FormTypes:   cfg.FormTypes,
		Concurrency: cfg.FetchConcurrency,
	})

	schedulerConfig, err := cfg.SchedulerConfig()
	if err != nil {
		_ = store.Close()
		return cli.Services{}, nil, err
	}
	scheduler := services.NewScheduler(schedulerConfig, store.SchedulerStore(), orchestrator)

	return cli.Services{
		Scheduler:     scheduler,
		Subscriptions: services.NewSubscriptionService(store.SubscriptionStore(), store.UserStore()),
	}, store.Close, nil
}
