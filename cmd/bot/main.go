package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jessevdk/go-flags"
	"nuclight.org/suggest-tg-bot/app/registry"
	"nuclight.org/suggest-tg-bot/app/relay"
	"nuclight.org/suggest-tg-bot/app/storage"
	"nuclight.org/suggest-tg-bot/app/telegram"
	"nuclight.org/suggest-tg-bot/pkg/logger"
)

var opts struct {
	TelegramAPIToken   string        `long:"telegram-api-token" env:"TELEGRAM_API_TOKEN" required:"true" description:"telegram api token"`
	TelegramWorkersNum int           `long:"telegram-workers-num" env:"TELEGRAM_WORKERS_NUM" default:"5" description:"number of workers for telegram bot"`
	ChannelID          int64         `long:"channel-id" env:"CHANNEL_ID" required:"true" description:"id of the destination channel"`
	AdminID            int64         `long:"admin-id" env:"ADMIN_ID" required:"true" description:"telegram id of the administrator"`
	DBPath             string        `long:"db-path" env:"DB_PATH" default:"./db/suggest.sqlite" description:"path to the sqlite database file"`
	SettleDelay        time.Duration `long:"settle-delay" env:"SETTLE_DELAY" default:"1500ms" description:"quiet period before a media group is finalized"`
	ConfirmTimeout     time.Duration `long:"confirm-timeout" env:"CONFIRM_TIMEOUT" default:"30s" description:"time the user has to confirm a submission"`
	SentryDSN          string        `long:"sentry-dsn" env:"SENTRY_DSN" description:"sentry dsn, error reporting is disabled when empty"`
	Debug              bool          `long:"debug" env:"DEBUG" description:"enable debug logging"`
}

var Revision = "dev"

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	log := logger.NewLogger(opts.Debug)
	log.Info("starting bot", "revision", Revision)

	if opts.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:     opts.SentryDSN,
			Release: Revision,
		})
		if err != nil {
			log.Error("initializing sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := storage.NewSQLite(ctx, opts.DBPath)
	if err != nil {
		log.Error("creating sqlite3 database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("closing sqlite3 database", "error", err)
		}
	}()

	svc := &relay.Service{
		Log:            log,
		Store:          db,
		Bans:           &registry.Registry{Store: db},
		ChannelID:      opts.ChannelID,
		AdminID:        opts.AdminID,
		SettleDelay:    opts.SettleDelay,
		ConfirmTimeout: opts.ConfirmTimeout,
	}

	bot := &telegram.Client{
		Log:        log,
		APIToken:   opts.TelegramAPIToken,
		WorkersNum: opts.TelegramWorkersNum,
		Handler:    svc,
	}
	svc.Gateway = bot

	err = bot.Start(ctx)
	if err != nil {
		log.Error("starting bot", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("stopping bot")

	bot.Wait()

	os.Exit(0)
}
