// Copyright (c) 2024, 0x0BSoD. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/0x0BSoD/chatfeed/internal/bot"
	"github.com/0x0BSoD/chatfeed/internal/bot/middleware"
	"github.com/0x0BSoD/chatfeed/internal/botkit"
	"github.com/0x0BSoD/chatfeed/internal/config"
	"github.com/0x0BSoD/chatfeed/internal/fetcher"
	"github.com/0x0BSoD/chatfeed/internal/notifier"
	"github.com/0x0BSoD/chatfeed/internal/reporter"
	"github.com/0x0BSoD/chatfeed/internal/scheduler"
	"github.com/0x0BSoD/chatfeed/internal/source"
	"github.com/0x0BSoD/chatfeed/internal/storage"
	"github.com/0x0BSoD/chatfeed/internal/summary"
	"github.com/0x0BSoD/chatfeed/internal/telegram"
)

const dbConnectWait = time.Minute

func main() {
	app := &cli.App{
		Name:  "chatfeed",
		Usage: "Relay new RSS items into Telegram chats",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the bot and poll feeds on schedule",
				Action: serve,
			},
			{
				Name:   "poll",
				Usage:  "Run a single poll cycle and exit",
				Action: pollOnce,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("chatfeed failed", "err", err)
		os.Exit(1)
	}
}

type relay struct {
	botAPI        *tgbotapi.BotAPI
	db            *sqlx.DB
	feeds         *storage.FeedStorage
	subscriptions *storage.SubscriptionStorage
	fetcher       *fetcher.Fetcher
}

func newRelay(ctx context.Context) (*relay, error) {
	cfg := config.Get()

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	db, err := storage.Connect(ctx, cfg.DatabaseDSN, dbConnectWait)
	if err != nil {
		return nil, err
	}

	summarizer, err := summary.New(cfg.AIType, cfg.AIBaseURL, cfg.AIKey, cfg.AIPrompt, cfg.AIModel, cfg.AITimeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	if summarizer != nil {
		slog.Info("digest summarizing enabled", "ai_type", cfg.AIType, "model", cfg.AIModel)
	}

	var (
		log           = slog.Default()
		feeds         = storage.NewFeedStorage(db)
		subscriptions = storage.NewSubscriptionStorage(db)
		notifier      = notifier.New(
			subscriptions,
			telegram.NewChannel(botAPI, cfg.SendRate),
			notifier.NewFormatter(summarizer, log),
			reporter.New(botAPI, cfg.TelegramAdminChatID),
			log,
		)
		fetcher = fetcher.New(
			feeds,
			source.NewRSSSource(cfg.FeedEntryLimit, cfg.FetchTimeout),
			notifier,
			cfg.Workers,
			cfg.Lookback,
			log,
		)
	)

	return &relay{
		botAPI:        botAPI,
		db:            db,
		feeds:         feeds,
		subscriptions: subscriptions,
		fetcher:       fetcher,
	}, nil
}

func (r *relay) cycle(ctx context.Context) fetcher.CycleReport {
	feeds, err := r.feeds.ActiveFeeds(ctx)
	if err != nil {
		slog.Error("failed to list active feeds", "err", err)
		return fetcher.CycleReport{}
	}
	return r.fetcher.RunCycle(ctx, feeds)
}

func serve(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r, err := newRelay(ctx)
	if err != nil {
		return err
	}
	defer r.db.Close()

	newsBot := botkit.New(r.botAPI)
	newsBot.RegisterCmdView("addurl", middleware.AdminsOnlyInGroups(bot.ViewCmdAddURL(r.subscriptions)))
	newsBot.RegisterCmdView("removeurl", middleware.AdminsOnlyInGroups(bot.ViewCmdRemoveURL(r.subscriptions)))
	newsBot.RegisterCmdView("listurl", middleware.AdminsOnlyInGroups(bot.ViewCmdListURL(r.subscriptions)))
	newsBot.RegisterCmdView("allurl", middleware.ChatOnly(config.Get().TelegramAdminChatID, bot.ViewCmdAllURL(r.feeds)))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: config.Get().HealthAddr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to run http server", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		r.fetcher.Stop()
		_ = srv.Shutdown(context.Background())
	}()

	triggerDone := make(chan struct{})
	go func(ctx context.Context) {
		defer close(triggerDone)

		trigger := scheduler.New(slog.Default())
		err := trigger.Run(ctx, config.Get().PollSchedule, func(ctx context.Context) { r.cycle(ctx) })
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("failed to run poll trigger", "err", err)
			cancel()
			return
		}
		slog.Info("poll trigger stopped")
	}(ctx)

	err = newsBot.Run(ctx)
	cancel()
	<-triggerDone

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run bot: %w", err)
	}
	return nil
}

func pollOnce(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r, err := newRelay(ctx)
	if err != nil {
		return err
	}
	defer r.db.Close()

	context.AfterFunc(ctx, r.fetcher.Stop)

	report := r.cycle(ctx)
	for _, f := range report.Feeds {
		slog.Info("feed processed",
			"feed", f.FeedURL,
			"delivered", f.Delivered,
			"deactivated", f.Deactivated,
			"skipped", f.Skipped,
			"err", f.Err,
		)
	}
	return nil
}
