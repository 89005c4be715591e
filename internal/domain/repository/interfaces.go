package repository

import (
	"context"

	"CopyFlow/internal/domain/models"
)

// Conn is one persistent bidirectional connection to the trading API.
// Each account (master or client) owns exactly one Conn; the owner is the
// only caller of its mutating methods. Proposal and Buy block until the
// correlated response arrives or the connection closes.
type Conn interface {
	Dial(ctx context.Context) error
	Authorize(ctx context.Context, token string) (*models.Account, error)
	SubscribeBalance(ctx context.Context, handler func(balance float64)) error
	Portfolio(ctx context.Context) ([]models.Position, error)
	Proposal(ctx context.Context, sig *models.TradeSignal, passthrough string) (*models.Quote, error)
	Buy(ctx context.Context, proposalID string, price float64) (*models.Execution, error)
	// NotifyClose registers a handler invoked once when the connection drops,
	// with the transport error that caused it (nil on clean close). Must be
	// called before Dial.
	NotifyClose(handler func(err error))
	Close() error
}

// ConnFactory creates a fresh connection for one account, bound to an
// application identifier from the configured allow-list.
type ConnFactory func(appID int) Conn

// Metrics records engine activity for scraping.
type Metrics interface {
	RecordSignalDetected()
	RecordTradeReplicated(loginid string)
	RecordReplicationFailed(kind string)
	RecordConnectionStatus(role, loginid string, status models.ConnectionStatus)
	RecordBalance(role, loginid string, balance float64)
	RecordRoundTrip(op string, seconds float64)
}

// TraceSink mirrors journal entries to an external trace destination.
type TraceSink interface {
	Trace(ctx context.Context, e models.LogEntry)
	Close() error
}
