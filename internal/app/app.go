package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/config"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/location"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/retry"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/scheduler"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/store"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/telegram"
	"github.com/AlekseyNushtaev/Test-Namaz/internal/timings"
)

// Long polling holds a request for up to pollTimeout seconds, so the Telegram
// HTTP client needs a longer deadline than the other external calls.
const pollTimeout = 30

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI // long polling and replies
	sendBot *tgbotapi.BotAPI // scheduler deliveries, bounded by CallTimeout
	httpSrv *http.Server
	repo    store.Repo
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	client := &http.Client{Timeout: time.Duration(pollTimeout)*time.Second + cfg.CallTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	sendBot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, &http.Client{Timeout: cfg.CallTimeout})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, sendBot: sendBot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting namaz-bot",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("http", a.cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	timingsClient, err := timings.NewClient(timings.Options{
		BaseURL:           a.cfg.TimingsURL,
		Method:            a.cfg.TimingsMethod,
		RequestsPerMinute: a.cfg.TimingsRPM,
		CacheSize:         a.cfg.TimingsCacheSize,
		Timeout:           a.cfg.CallTimeout,
	}, a.log.Named("timings"))
	if err != nil {
		_ = a.repo.Close()
		return err
	}

	resolver, err := location.NewResolver(location.Options{
		GeocodeURL: a.cfg.GeocodeURL,
		TomTomKey:  a.cfg.TomTomAPIKey,
		Timeout:    a.cfg.CallTimeout,
		Retry:      retry.Policy{Attempts: 3, Delay: 300 * time.Millisecond, Timeout: a.cfg.CallTimeout},
	}, a.log.Named("location"))
	if err != nil {
		_ = a.repo.Close()
		return err
	}

	notifier := telegram.NewNotifier(a.sendBot)
	sched := scheduler.New(a.repo, a.log.Named("scheduler"), notifier, timingsClient, scheduler.Options{
		NotifyInterval:   a.cfg.NotifyInterval,
		RolloverInterval: a.cfg.RolloverInterval,
		CallTimeout:      a.cfg.CallTimeout,
		FetchRetry:       retry.Policy{Attempts: 3, Delay: 500 * time.Millisecond, Timeout: a.cfg.CallTimeout},
		DefaultLocation: domain.Location{
			Name: a.cfg.DefaultCity,
			Lat:  a.cfg.DefaultLat,
			Lon:  a.cfg.DefaultLon,
		},
		DefaultOffset:    a.cfg.DefaultUTCOffset,
		AnnounceRollover: true,
	})

	router, err := telegram.NewRouter(a.bot, a.log.Named("telegram"), sched, resolver)
	if err != nil {
		_ = a.repo.Close()
		return err
	}

	a.prepareBot()
	if a.cfg.AdminID != 0 {
		if err := notifier.SendText(a.cfg.AdminID, "Bot started"); err != nil {
			a.log.Warn("admin notice failed", zap.Error(err))
		}
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()
			wg.Wait()

			// Create a short-lived shutdown context and cancel it immediately after use.
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if err := a.repo.Close(); err != nil {
				a.log.Warn("sqlite close error", zap.Error(err))
			}
			return nil

		case upd, ok := <-updCh:
			if !ok {
				// Channel closed by StopReceivingUpdates; wait for ctx.
				updCh = nil
				continue
			}
			router.HandleUpdate(ctx, upd)
		}
	}
}

// prepareBot registers the command list and drops updates queued while the bot was down.
func (a *App) prepareBot() {
	cmds := tgbotapi.NewSetMyCommands(tgbotapi.BotCommand{Command: "start", Description: "Start the bot"})
	if _, err := a.bot.Request(cmds); err != nil {
		a.log.Warn("set commands failed", zap.Error(err))
	}
	if _, err := a.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		a.log.Warn("delete webhook failed", zap.Error(err))
	}
}
