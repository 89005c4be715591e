package models

// Position is one open contract from a portfolio snapshot.
type Position struct {
	ContractType string  `json:"contract_type"`
	Underlying   string  `json:"underlying"`
	Symbol       string  `json:"symbol"`
	BuyPrice     float64 `json:"buy_price"`
	DateStart    int64   `json:"date_start"` // epoch seconds, 0 = undefined
	Duration     int     `json:"duration"`
	DurationUnit string  `json:"duration_unit"`
	Currency     string  `json:"currency"`
	Barrier      *string `json:"barrier,omitempty"`
	Barrier2     *string `json:"barrier2,omitempty"`
	Prediction   *int    `json:"prediction,omitempty"`
}

// SymbolCode returns the instrument code, preferring underlying over symbol.
func (p Position) SymbolCode() string {
	if p.Underlying != "" {
		return p.Underlying
	}
	return p.Symbol
}

// TradeSignal is the normalized description of a detected trade, ready for
// replication. Immutable once constructed; produced at most once per snapshot.
type TradeSignal struct {
	ContractType string  `json:"contract_type"`
	Symbol       string  `json:"symbol"`
	Amount       float64 `json:"amount"`
	Duration     int     `json:"duration"`
	DurationUnit string  `json:"duration_unit"`
	Basis        string  `json:"basis"`
	Currency     string  `json:"currency"`
	Barrier      *string `json:"barrier,omitempty"`
	Barrier2     *string `json:"barrier2,omitempty"`
	Prediction   *int    `json:"prediction,omitempty"`
}
