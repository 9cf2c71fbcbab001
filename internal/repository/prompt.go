package repository

import (
	"fmt"
	"snaptrade/internal/dto"
	"strings"
)

const systemPrompt = `Você é um analista técnico sênior de gráficos de candles (timeframe 1 minuto).
Objetivo: decidir ação imediata com alta assertividade.
Considere: padrões (engulfing, doji, hammer, shooting star), direção da tendência, zonas de suporte/resistência e contexto do último movimento.
Regras de saída:
- Retorne SOMENTE JSON: {"sinal":"COMPRAR|VENDER|AGUARDAR","confianca":"alta|media|baixa","explicacao":"..."}
- "alta": múltiplas confirmações (padrão forte + tendência + nível técnico)
- "media": algumas confirmações, risco moderado
- "baixa": sinais ambíguos; prefira "AGUARDAR" quando conflito for significativo
- Explicação deve citar padrões/níveis observados e racional objetivo.
Não inclua texto fora do JSON.`

// BuildPrompt renders the instruction pair for one chart.
func BuildPrompt(symbol, timeframe string) dto.Prompt {
	if strings.TrimSpace(symbol) == "" {
		symbol = dto.UnknownSymbol
	}
	if timeframe == "" {
		timeframe = dto.DefaultTimeframe
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Contexto: símbolo=%s, timeframe=%s.\n", symbol, timeframe))
	sb.WriteString("Analise os últimos candles e forneça decisão imediata conforme regras de saída.")

	return dto.Prompt{
		System: systemPrompt,
		User:   sb.String(),
	}
}
