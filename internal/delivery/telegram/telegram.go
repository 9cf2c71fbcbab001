package telegram

import (
	"context"
	"crypto/subtle"
	"net/http"
	"snaptrade/config"
	"snaptrade/internal/dto"
	"snaptrade/internal/service"
	"snaptrade/pkg/cache"
	"snaptrade/pkg/logger"
	"snaptrade/pkg/telegram"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"gopkg.in/telebot.v3"
)

const (
	webhookPath         = "/api/v1/telegram/webhook"
	webhookBodyLimit    = "1M"
	headerWebhookSecret = "X-Telegram-Bot-Api-Secret-Token"
)

type TelegramBotHandler struct {
	ctx      context.Context
	cfg      *config.Config
	bot      *telebot.Bot
	log      *logger.Logger
	telegram *telegram.TelegramRateLimiter
	echo     *echo.Echo
	service  *service.Service
	cache    cache.Cache
	allowed  map[int64]struct{}
	polling  bool
}

func NewTelegramBotHandler(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	bot *telebot.Bot,
	telegram *telegram.TelegramRateLimiter,
	echo *echo.Echo,
	service *service.Service,
	cache cache.Cache) *TelegramBotHandler {
	return &TelegramBotHandler{
		ctx:      ctx,
		cfg:      cfg,
		log:      log,
		bot:      bot,
		telegram: telegram,
		echo:     echo,
		service:  service,
		cache:    cache,
		allowed:  newAllowList(cfg.Telegram.AllowedChatIDs),
		polling:  cfg.Telegram.WebhookURL == "",
	}
}

func newAllowList(ids []int64) map[int64]struct{} {
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return allowed
}

// RegisterWebhookRoute mounts the update endpoint on the HTTP server. It has to run
// before the server starts listening.
func (t *TelegramBotHandler) RegisterWebhookRoute() {
	if t.cfg.Telegram.WebhookURL == "" {
		return
	}

	t.echo.POST(webhookPath, t.webhook,
		t.WebhookSecretMiddleware(),
		echoMiddleware.BodyLimit(webhookBodyLimit),
	)
}

func (t *TelegramBotHandler) webhook(c echo.Context) error {
	var update telebot.Update
	if err := c.Bind(&update); err != nil {
		t.log.ErrorContext(c.Request().Context(), "Cannot bind Telegram update", logger.ErrorField(err))
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse("Update inválido"))
	}
	t.bot.ProcessUpdate(update)
	return c.NoContent(http.StatusOK)
}

// WebhookSecretMiddleware only lets through requests carrying the secret registered
// with setWebhook.
func (t *TelegramBotHandler) WebhookSecretMiddleware() echo.MiddlewareFunc {
	expected := []byte(t.cfg.Telegram.WebhookSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := []byte(c.Request().Header.Get(headerWebhookSecret))
			if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
				t.log.Warn("Refused Telegram webhook call with a bad secret", logger.StringField("remote_ip", c.RealIP()))
				return c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("Token inválido"))
			}
			return next(c)
		}
	}
}

// Start registers the bot handlers and begins receiving updates. With a webhook URL
// updates arrive through the HTTP server; otherwise Start blocks on long polling until
// Stop is called.
func (t *TelegramBotHandler) Start() error {
	t.log.Info("Starting Telegram bot...", logger.IntField("allowed_chats", len(t.allowed)))
	if len(t.allowed) == 0 {
		t.log.Warn("Telegram allow-list is empty, every chat will be refused")
	}

	t.RegisterHandlers()
	t.telegram.StartCleanupExpired(t.ctx)

	if t.cfg.Telegram.WebhookURL != "" {
		t.log.Info("Setting webhook URL", logger.StringField("webhook_url", t.cfg.Telegram.WebhookURL))
		return t.bot.SetWebhook(&telebot.Webhook{
			Endpoint: &telebot.WebhookEndpoint{
				PublicURL: t.cfg.Telegram.WebhookURL,
			},
			SecretToken: t.cfg.Telegram.WebhookSecret,
		})
	}

	t.log.Info("Telegram webhook is disabled, using long polling")
	t.bot.Start()
	return nil
}

func (t *TelegramBotHandler) Stop() {
	t.log.Info("Stopping Telegram bot...")

	if t.polling {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		stopDone := make(chan struct{})
		go func() {
			t.bot.Stop()
			close(stopDone)
		}()

		select {
		case <-stopDone:
			t.log.Info("Telegram bot stopped successfully")
		case <-ctx.Done():
			t.log.Warn("Timeout while stopping bot, forcing shutdown")
		}
	}

	t.telegram.StopCleanupExpired()
	t.log.Info("Telegram bot shutdown completed")
}
