package models

// CredentialRequest registers an account (master or client) by API token.
// The application identifier must come from the enumerated allow-list.
type CredentialRequest struct {
	Token string `json:"token" validate:"required,min=8"`
	AppID int    `json:"app_id" default:"1089" validate:"oneof=1089 36930"`
}

// ClientCreatedResponse returns the locally generated client id.
type ClientCreatedResponse struct {
	ID string `json:"id"`
}

// StatusResponse is the UI-facing view of the whole engine.
type StatusResponse struct {
	Active  bool         `json:"active"`
	Master  MasterInfo   `json:"master"`
	Clients []ClientInfo `json:"clients"`
}
