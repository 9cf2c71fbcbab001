package dto

// Insight holds presentational labels derived from a result. No analysis happens here:
// every label is a direct lookup on the signal or the confidence.
type Insight struct {
	Bet         string `json:"bet"`
	Trend       string `json:"trend"`
	Volatility  string `json:"volatility"`
	SuccessRate string `json:"successRate"`
}

func NewInsight(result AnalysisResult) Insight {
	return Insight{
		Bet:         BetLabel(result.Sinal),
		Trend:       trendLabel(result.Sinal),
		Volatility:  volatilityLabel(result.Confianca),
		SuccessRate: successRateLabel(result.Confianca),
	}
}

func BetLabel(sinal string) string {
	switch sinal {
	case SignalBuy:
		return "Apostar para cima"
	case SignalSell:
		return "Apostar para baixo"
	default:
		return "Aguardar"
	}
}

func trendLabel(sinal string) string {
	switch sinal {
	case SignalBuy:
		return "Alta"
	case SignalSell:
		return "Baixa"
	default:
		return "Lateral"
	}
}

func volatilityLabel(confianca string) string {
	switch confianca {
	case ConfidenceHigh:
		return "Baixa"
	case ConfidenceMedium:
		return "Moderada"
	default:
		return "Elevada"
	}
}

func successRateLabel(confianca string) string {
	switch confianca {
	case ConfidenceHigh:
		return "85%"
	case ConfidenceMedium:
		return "65%"
	default:
		return "45%"
	}
}

// SignalEmoji is used by chat deliveries.
func SignalEmoji(sinal string) string {
	switch sinal {
	case SignalBuy:
		return "🟢"
	case SignalSell:
		return "🔴"
	default:
		return "🟡"
	}
}
