package deriv

import (
	"encoding/json"
	"fmt"

	"CopyFlow/internal/domain/models"
)

// APIError is an API-level rejection carried in a response frame.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}

// envelope is the part of every response frame needed for dispatch.
type envelope struct {
	MsgType string          `json:"msg_type"`
	ReqID   int64           `json:"req_id"`
	Error   *APIError       `json:"error"`
	Balance json.RawMessage `json:"balance"`
}

type authorizeRequest struct {
	Authorize string `json:"authorize"`
	ReqID     int64  `json:"req_id"`
}

type authorizeResponse struct {
	Authorize *struct {
		LoginID  string  `json:"loginid"`
		Balance  float64 `json:"balance"`
		Currency string  `json:"currency"`
	} `json:"authorize"`
}

type balanceRequest struct {
	Balance   int   `json:"balance"`
	Subscribe int   `json:"subscribe"`
	ReqID     int64 `json:"req_id"`
}

type balancePayload struct {
	Balance float64 `json:"balance"`
}

type portfolioRequest struct {
	Portfolio int   `json:"portfolio"`
	ReqID     int64 `json:"req_id"`
}

type portfolioResponse struct {
	Portfolio struct {
		Contracts []models.Position `json:"contracts"`
	} `json:"portfolio"`
}

type proposalRequest struct {
	Proposal     int               `json:"proposal"`
	ContractType string            `json:"contract_type"`
	Symbol       string            `json:"symbol"`
	Amount       float64           `json:"amount"`
	Duration     int               `json:"duration"`
	DurationUnit string            `json:"duration_unit"`
	Basis        string            `json:"basis"`
	Currency     string            `json:"currency"`
	Barrier      *string           `json:"barrier,omitempty"`
	Barrier2     *string           `json:"barrier2,omitempty"`
	Prediction   *int              `json:"prediction,omitempty"`
	Passthrough  map[string]string `json:"passthrough,omitempty"`
	ReqID        int64             `json:"req_id"`
}

type proposalResponse struct {
	Proposal *struct {
		ID       string  `json:"id"`
		AskPrice float64 `json:"ask_price"`
	} `json:"proposal"`
}

type buyRequest struct {
	Buy   string  `json:"buy"`
	Price float64 `json:"price"`
	ReqID int64   `json:"req_id"`
}

type buyResponse struct {
	Buy *struct {
		ContractID int64  `json:"contract_id"`
		Shortcode  string `json:"shortcode"`
	} `json:"buy"`
}

// MaskToken hides all but the last four characters of a credential.
func MaskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
