package logger

import (
	"context"
	"fmt"
	"snaptrade/pkg/common"
	"snaptrade/pkg/httpclient"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const telegramAPIBaseURL = "https://api.telegram.org"

// AlertCore tees entries flagged with AlertField to a Telegram chat.
type AlertCore struct {
	core     zapcore.Core
	minLevel zapcore.Level
	client   httpclient.HTTPClient
	botToken string
	chatID   string
	fields   []zapcore.Field
}

// WithTelegramAlert wraps the logger core so flagged entries at minLevel or above are
// also delivered to chatID. Delivery is asynchronous and best effort.
func WithTelegramAlert(botToken, chatID string, minLevel zapcore.Level) zap.Option {
	client := httpclient.New(telegramAPIBaseURL, 10*time.Second, "")
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return NewAlertCore(core, client, botToken, chatID, minLevel)
	})
}

func NewAlertCore(core zapcore.Core, client httpclient.HTTPClient, botToken, chatID string, minLevel zapcore.Level) *AlertCore {
	return &AlertCore{
		core:     core,
		minLevel: minLevel,
		client:   client,
		botToken: botToken,
		chatID:   chatID,
	}
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	all := make([]zapcore.Field, 0, len(a.fields)+len(fields))
	all = append(all, a.fields...)
	all = append(all, fields...)
	return &AlertCore{
		core:     a.core.With(fields),
		minLevel: a.minLevel,
		client:   a.client,
		botToken: a.botToken,
		chatID:   a.chatID,
		fields:   all,
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, a)
	}
	return checkedEntry
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= a.minLevel && shouldAlert(fields) {
		all := make([]zapcore.Field, 0, len(a.fields)+len(fields))
		all = append(all, a.fields...)
		all = append(all, fields...)
		go a.sendTelegramAlert(entry, all)
	}
	return a.core.Write(entry, fields)
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}

func shouldAlert(fields []zapcore.Field) bool {
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT && f.Type == zapcore.BoolType && f.Integer == 1 {
			return true
		}
	}
	return false
}

// formatAlert renders the entry as a plain text Telegram message.
func formatAlert(entry zapcore.Entry, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT {
			continue
		}
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚨 %s Alert\n\nMessage: %s\n\n", entry.Level.CapitalString(), entry.Message))
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("• %s: %v\n", k, enc.Fields[k]))
	}
	sb.WriteString(fmt.Sprintf("\nTime: %s", entry.Time.Format("2006-01-02 15:04:05")))
	return sb.String()
}

func (a *AlertCore) sendTelegramAlert(entry zapcore.Entry, fields []zapcore.Field) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload := map[string]interface{}{
		"chat_id": a.chatID,
		"text":    formatAlert(entry, fields),
	}
	// Errors are swallowed: logging here would recurse into this core.
	_, _ = a.client.Post(ctx, fmt.Sprintf("/bot%s/sendMessage", a.botToken), payload, nil, nil)
}
