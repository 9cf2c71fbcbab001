package telegram

import (
	"errors"
	"fmt"
	"html"
	"snaptrade/internal/dto"
	"snaptrade/internal/repository"
	"snaptrade/internal/service"
	"snaptrade/pkg/decoder"
	"snaptrade/pkg/utils"
	"strings"
)

func escape(s string) string {
	return html.EscapeString(s)
}

// FormatAnalysis renders a result as a Telegram HTML card.
func FormatAnalysis(symbol string, result *dto.AnalysisResult) string {
	insight := dto.NewInsight(*result)

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("<b>%s %s</b>\n", dto.SignalEmoji(result.Sinal), escape(result.Sinal)))
	sb.WriteString(fmt.Sprintf("<i>%s · %s</i>\n", escape(symbol), dto.Timeframe1Min))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("<b>🎯 Entrada:</b> %s\n", insight.Bet))
	sb.WriteString(fmt.Sprintf("<b>🤖 Confiança:</b> %s | <b>✅ Acerto:</b> %s\n", escape(result.Confianca), insight.SuccessRate))
	sb.WriteString(fmt.Sprintf("<b>📈 Tendência:</b> %s | <b>🌊 Volatilidade:</b> %s\n", insight.Trend, insight.Volatility))
	sb.WriteString("\n")
	sb.WriteString("<b>🧠 Análise</b>\n")
	sb.WriteString(escape(utils.CapitalizeSentence(result.Explicacao)))
	sb.WriteString("\n\n")
	sb.WriteString("<i>Use como referência. A decisão é sempre sua.</i>")
	return sb.String()
}

// userMessage turns a pipeline error into a short chat notice.
func userMessage(err error) string {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		return "❌ Dados inválidos: " + strings.Join(vErr.Details, "; ")
	case errors.Is(err, decoder.ErrImageTooLarge):
		return "❌ A imagem excede o tamanho máximo permitido."
	case errors.Is(err, decoder.ErrUnsupportedImage), errors.Is(err, decoder.ErrInvalidBase64):
		return "❌ Formato de imagem não suportado (permitido: PNG, JPEG, WEBP)."
	case errors.Is(err, service.ErrContractViolation):
		return "⚠️ O modelo respondeu fora do formato esperado. Tente novamente."
	case errors.Is(err, repository.ErrUpstreamTimeout):
		return "⌛ O modelo demorou demais para responder. Tente novamente."
	default:
		return "❌ Erro interno. Tente novamente mais tarde."
	}
}
