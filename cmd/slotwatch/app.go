package main

import (
	"fmt"
	"os"

	"github.com/aleister1102/slotwatch/internal/config"
	"github.com/aleister1102/slotwatch/internal/datastore"
	"github.com/aleister1102/slotwatch/internal/fetcher"
	"github.com/aleister1102/slotwatch/internal/logger"
	"github.com/aleister1102/slotwatch/internal/monitor"
	"github.com/aleister1102/slotwatch/internal/notifier"
	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"
)

// app holds what every command needs: configuration, logger, store and the
// page fetcher. Telegram and NATS are created on demand by the commands that
// deliver notifications.
type app struct {
	cfg       *config.GlobalConfig
	logger    zerolog.Logger
	store     *datastore.SQLStore
	browser   *fetcher.BrowserManager
	fetcher   *fetcher.NeedleFetcher
	formatter *notifier.Formatter
}

func newApp(cli *CLI) (*app, error) {
	bootLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.LoadGlobalConfig(cli.Config, cli.EnvFile, bootLogger)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogConfig)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}

	store, err := datastore.NewSQLStoreFromConfig(cfg.StorageConfig, log)
	if err != nil {
		return nil, fmt.Errorf("could not open store: %w", err)
	}

	browser := fetcher.NewBrowserManager(cfg.BrowserConfig, log)
	return &app{
		cfg:       cfg,
		logger:    log,
		store:     store,
		browser:   browser,
		fetcher:   fetcher.NewNeedleFetcher(cfg.BrowserConfig, browser, log),
		formatter: notifier.NewFormatter(cfg.SchedulerConfig.IntervalMinutes),
	}, nil
}

func (a *app) close() {
	a.browser.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close store")
	}
}

func (a *app) tracker() *monitor.Tracker {
	return monitor.NewTracker(a.store, a.fetcher, a.logger)
}

// telegram creates the bot client. The token is required.
func (a *app) telegram() (*telego.Bot, error) {
	if err := a.cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	bot, err := telego.NewBot(a.cfg.TelegramConfig.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// sweeper builds a sweeper delivering through tg. The returned cleanup closes
// the NATS connection when one was opened.
func (a *app) sweeper(tg *telego.Bot) (*monitor.Sweeper, *notifier.TelegramNotifier, func()) {
	tn := notifier.NewTelegramNotifier(tg, a.formatter, a.logger)
	sw := monitor.NewSweeper(a.store, a.fetcher, tn, monitor.SweeperOptions{
		ResourceDelay:   a.cfg.MonitorConfig.ResourceDelay(),
		RetryUnnotified: a.cfg.MonitorConfig.RetryUnnotified,
	}, a.logger)

	cleanup := func() {}
	if a.cfg.NATSConfig.Enabled {
		pub, err := notifier.NewNATSPublisher(a.cfg.NATSConfig, a.logger)
		if err != nil {
			a.logger.Error().Err(err).Msg("NATS unavailable, slot change events will not be published")
		} else {
			sw.WithEventPublisher(pub)
			cleanup = pub.Close
		}
	}
	return sw, tn, cleanup
}
