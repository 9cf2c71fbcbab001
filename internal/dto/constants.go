package dto

const (
	SignalBuy  = "COMPRAR"
	SignalSell = "VENDER"
	SignalWait = "AGUARDAR"

	ConfidenceHigh   = "alta"
	ConfidenceMedium = "media"
	ConfidenceLow    = "baixa"

	Timeframe1Min = "1m"

	// DefaultTimeframe is applied when the caller omits context.timeframe.
	DefaultTimeframe = Timeframe1Min

	UnknownSymbol = "desconhecido"
)
