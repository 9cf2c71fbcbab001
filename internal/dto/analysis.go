package dto

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	ImageBase64 string          `json:"imageBase64" validate:"required"`
	Context     *AnalyzeContext `json:"context,omitempty" validate:"omitempty"`
}

type AnalyzeContext struct {
	Symbol    string  `json:"symbol,omitempty" validate:"omitempty,max=32"`
	Timeframe *string `json:"timeframe,omitempty" validate:"omitempty,oneof=1m"`
}

// SymbolOrDefault returns the caller's symbol or a placeholder the prompt understands.
func (r *AnalyzeRequest) SymbolOrDefault() string {
	if r.Context == nil || r.Context.Symbol == "" {
		return UnknownSymbol
	}
	return r.Context.Symbol
}

func (r *AnalyzeRequest) TimeframeOrDefault() string {
	if r.Context == nil || r.Context.Timeframe == nil {
		return DefaultTimeframe
	}
	return *r.Context.Timeframe
}

// JSON keys of AnalysisResult, matched exactly when reading model replies.
const (
	FieldSinal      = "sinal"
	FieldConfianca  = "confianca"
	FieldExplicacao = "explicacao"
)

// AnalysisResult is the only shape allowed to leave the service.
type AnalysisResult struct {
	Sinal      string `json:"sinal" validate:"required,oneof=COMPRAR VENDER AGUARDAR"`
	Confianca  string `json:"confianca" validate:"required,oneof=alta media baixa"`
	Explicacao string `json:"explicacao" validate:"required,min=10"`
}
