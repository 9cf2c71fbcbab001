package telegram

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"snaptrade/internal/dto"
	"snaptrade/pkg/cache"
	"snaptrade/pkg/common"
	"snaptrade/pkg/decoder"
	"snaptrade/pkg/logger"
	"snaptrade/pkg/utils"
	"strings"
	"time"

	"gopkg.in/telebot.v3"
)

const (
	chatSymbolTTL = 24 * time.Hour
	maxSymbolLen  = 32
)

const (
	msgNotAllowed  = "🚫 Este chat não está autorizado a usar o bot."
	msgRateLimited = "⏳ Muitas análises seguidas. Aguarde um instante e envie de novo."
	msgAnalyzing   = "🔎 Analisando o gráfico..."
	msgNotImage    = "📎 Envie uma imagem PNG, JPEG ou WEBP do gráfico."
	msgUnknownText = "Envie um print do gráfico de 1 minuto. Use /help para ver os comandos."
)

const msgStart = `👋 <b>Bem-vindo ao SnapTrade!</b>

Envie um print do gráfico de <b>1 minuto</b> e eu devolvo um sinal: COMPRAR, VENDER ou AGUARDAR.

📝 Dica: escreva o ativo na legenda da foto (ex.: <code>EURUSD</code>) ou fixe um com /ativo.

Use /help para ver todos os comandos.`

const msgHelp = `❓ <b>Como usar</b>

📷 Envie a foto do gráfico (ou a imagem como arquivo). A legenda é usada como ativo.

<b>Comandos</b>
/start - Mensagem de boas-vindas
/help - Esta ajuda
/ativo SIMBOLO - Fixa o ativo usado quando a foto vem sem legenda
/ativo - Mostra o ativo fixado

📌 O sinal é apenas uma referência. A decisão é sempre sua.`

func (t *TelegramBotHandler) WithContext(handler func(ctx context.Context, c telebot.Context) error) func(c telebot.Context) error {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(t.ctx, t.cfg.Telegram.TimeoutDuration)
		defer cancel()

		if chat := c.Chat(); chat != nil {
			ctx = logger.NewContext(ctx, t.log.With(logger.Field("chat_id", chat.ID)))
		}
		return handler(ctx, c)
	}
}

func (t *TelegramBotHandler) RegisterHandlers() {
	t.bot.Use(t.AllowListMiddleware())

	t.bot.Handle("/start", t.WithContext(t.handleStart))
	t.bot.Handle("/help", t.WithContext(t.handleHelp))
	t.bot.Handle("/ativo", t.WithContext(t.handleSymbol))
	t.bot.Handle(telebot.OnPhoto, t.WithContext(t.handlePhoto))
	t.bot.Handle(telebot.OnDocument, t.WithContext(t.handleDocument))
	t.bot.Handle(telebot.OnText, t.WithContext(t.handleText))
}

// AllowListMiddleware drops updates from chats outside the configured allow-list.
func (t *TelegramBotHandler) AllowListMiddleware() telebot.MiddlewareFunc {
	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}
			if !t.isAllowed(chat.ID) {
				t.log.Warn("Refused update from chat outside allow-list", logger.Field("chat_id", chat.ID))
				return c.Send(msgNotAllowed)
			}
			return next(c)
		}
	}
}

func (t *TelegramBotHandler) isAllowed(chatID int64) bool {
	_, ok := t.allowed[chatID]
	return ok
}

func (t *TelegramBotHandler) handleStart(ctx context.Context, c telebot.Context) error {
	_, err := t.telegram.Send(ctx, c, msgStart, telebot.ModeHTML)
	return err
}

func (t *TelegramBotHandler) handleHelp(ctx context.Context, c telebot.Context) error {
	_, err := t.telegram.Send(ctx, c, msgHelp, telebot.ModeHTML)
	return err
}

func (t *TelegramBotHandler) handleText(ctx context.Context, c telebot.Context) error {
	if strings.HasPrefix(c.Text(), "/") {
		return nil
	}
	_, err := t.telegram.Send(ctx, c, msgUnknownText)
	return err
}

// handleSymbol pins the symbol used for captionless charts of this chat.
func (t *TelegramBotHandler) handleSymbol(ctx context.Context, c telebot.Context) error {
	chatID := c.Chat().ID
	args := c.Args()
	if len(args) == 0 {
		symbol := t.pinnedSymbol(chatID)
		if symbol == "" {
			symbol = dto.UnknownSymbol
		}
		_, err := t.telegram.Send(ctx, c, fmt.Sprintf("📌 Ativo atual: <code>%s</code>", escape(symbol)), telebot.ModeHTML)
		return err
	}

	symbol := normalizeSymbol(args[0])
	if symbol == "" {
		_, err := t.telegram.Send(ctx, c, "Ativo inválido.")
		return err
	}
	t.cache.Set(fmt.Sprintf(common.KEY_CHAT_SYMBOL, chatID), symbol, chatSymbolTTL)

	_, err := t.telegram.Send(ctx, c, fmt.Sprintf("✅ Ativo fixado: <code>%s</code>", escape(symbol)), telebot.ModeHTML)
	return err
}

func (t *TelegramBotHandler) handlePhoto(ctx context.Context, c telebot.Context) error {
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}
	return t.analyzeFile(ctx, c, &photo.File, int64(photo.FileSize))
}

func (t *TelegramBotHandler) handleDocument(ctx context.Context, c telebot.Context) error {
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	if !strings.HasPrefix(strings.ToLower(doc.MIME), "image/") {
		_, err := t.telegram.Send(ctx, c, msgNotImage)
		return err
	}
	return t.analyzeFile(ctx, c, &doc.File, int64(doc.FileSize))
}

func (t *TelegramBotHandler) analyzeFile(ctx context.Context, c telebot.Context, file *telebot.File, size int64) error {
	chatID := c.Chat().ID
	if !t.telegram.AllowChat(chatID) {
		_, err := t.telegram.Send(ctx, c, msgRateLimited)
		return err
	}

	maxBytes := t.cfg.Image.MaxBytes
	if size > maxBytes {
		_, err := t.telegram.Send(ctx, c, userMessage(decoder.ErrImageTooLarge))
		return err
	}

	loading, err := t.telegram.Send(ctx, c, msgAnalyzing)
	if err != nil {
		return err
	}

	symbol := t.resolveSymbol(chatID, c.Message().Caption)
	result, err := t.runAnalysis(ctx, file, symbol)
	if err != nil {
		t.log.WarnContext(ctx, "Telegram analysis failed", logger.ErrorField(err))
		_, editErr := t.telegram.Edit(ctx, loading, userMessage(err))
		return editErr
	}

	_, err = t.telegram.Edit(ctx, loading, FormatAnalysis(symbol, result), telebot.ModeHTML)
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to send analysis", logger.ErrorField(err))
	}
	return err
}

func (t *TelegramBotHandler) runAnalysis(ctx context.Context, file *telebot.File, symbol string) (*dto.AnalysisResult, error) {
	rc, err := t.bot.File(file)
	if err != nil {
		return nil, fmt.Errorf("failed to download telegram file: %w", err)
	}
	defer rc.Close()

	data, err := readLimited(rc, t.cfg.Image.MaxBytes)
	if err != nil {
		return nil, err
	}

	req := dto.AnalyzeRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		Context: &dto.AnalyzeContext{
			Timeframe: utils.ToPointer(dto.Timeframe1Min),
		},
	}
	if symbol != dto.UnknownSymbol {
		req.Context.Symbol = symbol
	}
	return t.service.AnalyzerService.Analyze(ctx, req)
}

// resolveSymbol prefers the photo caption, then the symbol pinned with /ativo.
func (t *TelegramBotHandler) resolveSymbol(chatID int64, caption string) string {
	if symbol := normalizeSymbol(caption); symbol != "" {
		return symbol
	}
	if symbol := t.pinnedSymbol(chatID); symbol != "" {
		return symbol
	}
	return dto.UnknownSymbol
}

func (t *TelegramBotHandler) pinnedSymbol(chatID int64) string {
	symbol, _ := cache.GetFromCache[string](t.cache, fmt.Sprintf(common.KEY_CHAT_SYMBOL, chatID))
	return symbol
}

// normalizeSymbol keeps the first word of s, upper-cased and cut to the symbol limit.
func normalizeSymbol(s string) string {
	fields := strings.Fields(utils.CleanToValidUTF8(s))
	if len(fields) == 0 {
		return ""
	}
	symbol := []rune(strings.ToUpper(fields[0]))
	if len(symbol) > maxSymbolLen {
		symbol = symbol[:maxSymbolLen]
	}
	return string(symbol)
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read telegram file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, decoder.ErrImageTooLarge
	}
	return data, nil
}
