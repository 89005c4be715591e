package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
	applogger "CopyFlow/pkg/logger"
)

// fakeConn is a scriptable repository.Conn for exercising the engine without
// a network.
type fakeConn struct {
	mu sync.Mutex

	dialErr      error
	authErr      error
	subscribeErr error
	portfolioErr error
	proposalErr  error
	buyErr       error

	account   models.Account
	positions []models.Position
	quote     models.Quote
	exec      models.Execution

	onBalance func(float64)
	onClose   func(error)

	portfolioCalls atomic.Int32
	proposalCalls  atomic.Int32
	buyCalls       atomic.Int32
	lastBuyPrice   float64
	lastBuyID      string
	closed         atomic.Bool
}

func (f *fakeConn) Dial(ctx context.Context) error { return f.dialErr }

func (f *fakeConn) Authorize(ctx context.Context, token string) (*models.Account, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	acct := f.account
	return &acct, nil
}

func (f *fakeConn) SubscribeBalance(ctx context.Context, handler func(balance float64)) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.mu.Lock()
	f.onBalance = handler
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Portfolio(ctx context.Context) ([]models.Position, error) {
	f.portfolioCalls.Add(1)
	if f.portfolioErr != nil {
		return nil, f.portfolioErr
	}
	return f.positions, nil
}

func (f *fakeConn) Proposal(ctx context.Context, sig *models.TradeSignal, passthrough string) (*models.Quote, error) {
	f.proposalCalls.Add(1)
	if f.proposalErr != nil {
		return nil, f.proposalErr
	}
	q := f.quote
	return &q, nil
}

func (f *fakeConn) Buy(ctx context.Context, proposalID string, price float64) (*models.Execution, error) {
	f.buyCalls.Add(1)
	if f.buyErr != nil {
		return nil, f.buyErr
	}
	f.mu.Lock()
	f.lastBuyID = proposalID
	f.lastBuyPrice = price
	f.mu.Unlock()
	e := f.exec
	return &e, nil
}

func (f *fakeConn) NotifyClose(handler func(err error)) {
	f.mu.Lock()
	f.onClose = handler
	f.mu.Unlock()
}

func (f *fakeConn) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	f.mu.Lock()
	handler := f.onClose
	f.mu.Unlock()
	if handler != nil {
		handler(nil)
	}
	return nil
}

// pushBalance simulates a balance frame arriving on the stream.
func (f *fakeConn) pushBalance(balance float64) {
	f.mu.Lock()
	handler := f.onBalance
	f.mu.Unlock()
	if handler != nil {
		handler(balance)
	}
}

// dropConn simulates the transport failing underneath the connection.
func (f *fakeConn) dropConn(err error) {
	f.mu.Lock()
	handler := f.onClose
	f.mu.Unlock()
	if handler != nil {
		handler(err)
	}
}

func fixedFactory(conns ...*fakeConn) drepo.ConnFactory {
	var i int
	var mu sync.Mutex
	return func(appID int) drepo.Conn {
		mu.Lock()
		defer mu.Unlock()
		c := conns[i%len(conns)]
		i++
		return c
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordSignalDetected()                       {}
func (nopMetrics) RecordTradeReplicated(loginid string)        {}
func (nopMetrics) RecordReplicationFailed(kind string)         {}
func (nopMetrics) RecordConnectionStatus(role, loginid string, status models.ConnectionStatus) {
}
func (nopMetrics) RecordBalance(role, loginid string, balance float64) {}
func (nopMetrics) RecordRoundTrip(op string, seconds float64)          {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}
