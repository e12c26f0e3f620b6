package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NasaVasa/aptwatch/internal/config"
	"github.com/NasaVasa/aptwatch/internal/delivery/rest"
	"github.com/NasaVasa/aptwatch/internal/delivery/telegram"
	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/NasaVasa/aptwatch/internal/infra/complexdir"
	"github.com/NasaVasa/aptwatch/internal/infra/db"
	"github.com/NasaVasa/aptwatch/internal/infra/feed"
	"github.com/NasaVasa/aptwatch/internal/infra/log"
	"github.com/NasaVasa/aptwatch/internal/infra/templates"
	"github.com/NasaVasa/aptwatch/internal/usecase"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	bot       *telegram.Bot
	server    *http.Server
	alerting  *usecase.AlertingManager
	logger    *zap.Logger
	cleanupFn func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	cooldown := domain.Period(cfg.CooldownPeriod)
	if !cooldown.Valid() {
		return nil, fmt.Errorf("invalid COOLDOWN_PERIOD %q", cfg.CooldownPeriod)
	}
	templateOverrides, err := templates.Load(cfg.NotificationTemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("load notification templates: %w", err)
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	userRepo := db.NewUserRepository(dbConn)
	alertRepo := db.NewAlertRuleRepository(dbConn)
	snapshotRepo := db.NewSnapshotRepository(dbConn)
	gateRepo := db.NewGateStateRepository(dbConn)
	notificationRepo := db.NewNotificationRepository(dbConn)
	settingsRepo := db.NewNotificationSettingRepository(dbConn)
	sheetRepo := db.NewSheetRepository(dbConn)

	var complexes domain.ComplexDirectory
	if cfg.ComplexAPIBaseURL != "" {
		complexes = complexdir.NewClient(cfg.ComplexAPIBaseURL, cfg.ComplexAPITimeout, logger)
	}
	var feeds domain.TransactionFeedFactory
	if cfg.TransactionFeedURL != "" {
		feeds = feed.NewWSFactory(cfg.TransactionFeedURL, cfg.TransactionFeedReadTimeout, logger)
	}

	dispatchers := usecase.MultiDispatcher{}
	var api *tgbotapi.BotAPI
	if cfg.TelegramBotToken != "" {
		api, err = telegram.NewAPI(cfg.TelegramBotToken)
		if err != nil {
			if sqlDB, dbErr := dbConn.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
		dispatchers[domain.ChannelPush] = telegram.NewPushDispatcher(api, userRepo, logger)
	} else {
		logger.Info("telegram bot token not set, bot and push channel disabled")
	}

	retrying := usecase.NewRetryingDispatcher(dispatchers, usecase.RetryPolicy{
		MaxTries:       cfg.DispatchMaxTries,
		InitialBackoff: cfg.DispatchInitialBackoff,
		MaxBackoff:     cfg.DispatchMaxBackoff,
	}, logger)
	dispatchQueue := usecase.NewDispatchQueue(retrying, notificationRepo, cfg.DispatchWorkers, cfg.DispatchQueueSize, time.Now, logger)

	alerting := usecase.NewAlertingManager(usecase.AlertingConfig{
		Shards:          cfg.WorkerShards,
		QueueSize:       cfg.ShardQueueSize,
		RefreshInterval: cfg.RuleRefreshInterval,
		FlushSchedule:   cfg.FlushSchedule,
		FeedRegions:     cfg.TransactionFeedRegions,
	}, usecase.AlertingDeps{
		Rules:         alertRepo,
		Settings:      settingsRepo,
		Notifications: notificationRepo,
		Matcher:       usecase.NewCriteriaMatcher(logger),
		Evaluator:     usecase.NewPriceChangeEvaluator(snapshotRepo, cfg.NewListingLookback, logger),
		Gate:          usecase.NewTriggerGate(gateRepo, cooldown, time.Now, logger),
		Composer:      usecase.NewNotificationComposer(templateOverrides, cfg.NotificationTTL, nil),
		Dispatch:      dispatchQueue,
		Feeds:         feeds,
		Clock:         time.Now,
		Logger:        logger,
	})

	userUC := usecase.NewUserUsecase(userRepo)
	alertUC := usecase.NewAlertUsecase(userRepo, alertRepo, complexes, alerting)
	notificationUC := usecase.NewNotificationUsecase(notificationRepo, settingsRepo, time.Now)
	sheetUC := usecase.NewSheetUsecase(sheetRepo, cfg.SheetFoldRetries, time.Now, logger)
	complexUC := usecase.NewComplexUsecase(complexes)

	var bot *telegram.Bot
	if api != nil {
		bot = telegram.NewBot(api, telegram.NewHandlers(userUC, alertUC, notificationUC, complexUC, logger), cfg.TelegramPollTimeout)
	}

	gin.SetMode(gin.ReleaseMode)
	router := rest.NewRouter(rest.NewHandler(rest.HandlerDeps{
		Users:         userUC,
		Alerts:        alertUC,
		Notifications: notificationUC,
		Sheets:        sheetUC,
		Submitter:     alerting,
		Snapshots:     snapshotRepo,
		Logger:        logger,
	}), cfg.HTTPAllowOrigins, logger)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanup := func() error {
		sqlDB, err := dbConn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return &App{bot: bot, server: server, alerting: alerting, logger: logger, cleanupFn: cleanup}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("aptwatch service starting")
	if err := a.alerting.Start(ctx); err != nil {
		return fmt.Errorf("start alerting: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.bot != nil {
		g.Go(func() error {
			return a.bot.Start(gctx)
		})
	}

	a.logger.Info("aptwatch service started")
	return g.Wait()
}

func (a *App) Shutdown() {
	a.logger.Info("aptwatch service shutting down")
	a.alerting.Stop()
	if a.cleanupFn != nil {
		if err := a.cleanupFn(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
