package cmd

import (
	"context"
	"fmt"
	"snaptrade/config"
	"snaptrade/internal/service"
	"snaptrade/pkg/cache"
	"snaptrade/pkg/logger"
	"snaptrade/pkg/ratelimit"
	"snaptrade/pkg/telegram"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/telebot.v3"
)

type AppDependency struct {
	cfg         *config.Config
	log         *logger.Logger
	validator   *service.Validator
	echo        *echo.Echo
	cache       cache.Cache
	limiter     *ratelimit.FixedWindow
	telegram    *telegram.TelegramRateLimiter
	telegramBot *telebot.Bot
}

// newCoreDependency builds what every command needs: config, logger and validator.
func newCoreDependency() (*config.Config, *logger.Logger, *service.Validator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	var opts []zap.Option
	if cfg.Telegram.Enabled() && cfg.Telegram.AlertChatID != "" {
		opts = append(opts, logger.WithTelegramAlert(cfg.Telegram.BotToken, cfg.Telegram.AlertChatID, zapcore.WarnLevel))
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding, opts...)
	if err != nil {
		return nil, nil, nil, err
	}

	validator, err := service.NewValidator()
	if err != nil {
		log.Error("Failed to create validator", zap.Error(err))
		return nil, nil, nil, err
	}
	return cfg, log, validator, nil
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, log, validator, err := newCoreDependency()
	if err != nil {
		return nil, err
	}

	inmemoryCache := cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval)
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	dep := &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: validator,
		echo:      e,
		cache:     inmemoryCache,
		limiter:   ratelimit.NewFixedWindow(inmemoryCache, cfg.RateLimit.Max, cfg.RateLimit.Window),
	}

	if !cfg.Telegram.Enabled() {
		log.Info("Telegram bot token not set, bot disabled")
		return dep, nil
	}

	pref := telebot.Settings{
		Token:  cfg.Telegram.BotToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			log.Error("Telegram bot error", zap.Error(err))
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Error("Failed to create telegram bot", zap.Error(err))
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	dep.telegramBot = bot
	dep.telegram = telegram.NewTelegramRateLimiter(&cfg.Telegram, log, bot)

	return dep, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	d.cache.Flush()
	// Sync fails on stderr/stdout on some platforms; nothing to do about it here.
	_ = d.log.Sync()
	return nil
}
