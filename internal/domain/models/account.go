package models

// Account is the result of authorizing a token on a connection.
type Account struct {
	LoginID  string  `json:"loginid"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// Quote is a price proposal for a trade signal.
type Quote struct {
	ProposalID string  `json:"id"`
	AskPrice   float64 `json:"ask_price"`
}

// Execution confirms a bought contract.
type Execution struct {
	ContractID int64  `json:"contract_id"`
	Shortcode  string `json:"shortcode"`
}
