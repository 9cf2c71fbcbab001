package telegram

import (
	"context"
	"snaptrade/config"
	"snaptrade/pkg/logger"
	"snaptrade/pkg/ratelimit"
	"snaptrade/pkg/utils"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// TelegramRateLimiter wraps outgoing bot calls with the Bot API limits: a global send
// budget shared by every chat and one token bucket per chat for incoming work.
type TelegramRateLimiter struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
	chatLimiters  *ratelimit.LimiterStore
	editMu        sync.Mutex
	wg            sync.WaitGroup
}

func NewTelegramRateLimiter(cfg *config.TelegramConfig, log *logger.Logger, bot *telebot.Bot) *TelegramRateLimiter {
	return &TelegramRateLimiter{
		cfg:           cfg,
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(cfg.MaxGlobalRequestPerSecond), cfg.MaxGlobalRequestPerSecond),
		chatLimiters:  ratelimit.NewLimiterStore(rate.Limit(cfg.MaxUserRequestPerSecond), cfg.MaxUserRequestPerSecond),
	}
}

// AllowChat reports, without blocking, whether chatID may start another analysis.
func (t *TelegramRateLimiter) AllowChat(chatID int64) bool {
	return t.chatLimiters.Allow(strconv.FormatInt(chatID, 10))
}

func (t *TelegramRateLimiter) Send(ctx context.Context, c telebot.Context, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.bot.Send(c.Chat(), what, opts...)
}

func (t *TelegramRateLimiter) Edit(ctx context.Context, msg *telebot.Message, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}

	t.editMu.Lock()
	defer t.editMu.Unlock()
	return t.bot.Edit(msg, what, opts...)
}

func (t *TelegramRateLimiter) wait(ctx context.Context) error {
	if err := t.globalLimiter.Wait(ctx); err != nil {
		t.log.ErrorContext(ctx, "Failed to wait for global rate limit", logger.ErrorField(err))
		return err
	}
	return nil
}

// StartCleanupExpired periodically drops chat buckets idle for RatelimitExpireDuration.
func (t *TelegramRateLimiter) StartCleanupExpired(ctx context.Context) {
	t.wg.Add(1)
	utils.GoSafe(func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.cfg.RatelimitExpireDuration)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				t.log.Info("Received signal to stop Telegram rate limiter cleanup")
				return
			case <-ticker.C:
				if removed := t.chatLimiters.Prune(t.cfg.RatelimitExpireDuration); removed > 0 {
					t.log.Debug("Pruned idle chat limiters", logger.IntField("removed", removed))
				}
			}
		}
	}).OnPanic(func(r interface{}) {
		t.log.Error("panic in Telegram rate limiter cleanup", logger.Field("panic", r))
	}).Run()
}

func (t *TelegramRateLimiter) StopCleanupExpired() {
	t.wg.Wait()
	t.log.Info("Telegram rate limiter stopped")
}
