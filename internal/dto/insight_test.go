package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInsight(t *testing.T) {
	tests := []struct {
		name   string
		result AnalysisResult
		want   Insight
	}{
		{
			name:   "buy with high confidence",
			result: AnalysisResult{Sinal: SignalBuy, Confianca: ConfidenceHigh},
			want:   Insight{Bet: "Apostar para cima", Trend: "Alta", Volatility: "Baixa", SuccessRate: "85%"},
		},
		{
			name:   "sell with medium confidence",
			result: AnalysisResult{Sinal: SignalSell, Confianca: ConfidenceMedium},
			want:   Insight{Bet: "Apostar para baixo", Trend: "Baixa", Volatility: "Moderada", SuccessRate: "65%"},
		},
		{
			name:   "wait with low confidence",
			result: AnalysisResult{Sinal: SignalWait, Confianca: ConfidenceLow},
			want:   Insight{Bet: "Aguardar", Trend: "Lateral", Volatility: "Elevada", SuccessRate: "45%"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewInsight(tt.result))
		})
	}
}

func TestAnalyzeRequest_Defaults(t *testing.T) {
	req := AnalyzeRequest{ImageBase64: "x"}
	assert.Equal(t, UnknownSymbol, req.SymbolOrDefault())
	assert.Equal(t, DefaultTimeframe, req.TimeframeOrDefault())

	tf := "1m"
	req.Context = &AnalyzeContext{Symbol: "BTCUSDT", Timeframe: &tf}
	assert.Equal(t, "BTCUSDT", req.SymbolOrDefault())
	assert.Equal(t, "1m", req.TimeframeOrDefault())
}
