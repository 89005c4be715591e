package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"CopyFlow/internal/domain/models"
)

func newTestRegistry(t *testing.T, conns ...*fakeConn) *ClientRegistry {
	t.Helper()
	return NewClientRegistry(fixedFactory(conns...), NewJournal(20), nopMetrics{}, testLogger(t))
}

func clientByID(r *ClientRegistry, id string) (models.ClientInfo, bool) {
	for _, c := range r.Snapshot() {
		if c.ID == id {
			return c, true
		}
	}
	return models.ClientInfo{}, false
}

func TestRegisterConnectsAsynchronously(t *testing.T) {
	conn := &fakeConn{account: models.Account{LoginID: "CR100", Balance: 250, Currency: "USD"}}
	r := newTestRegistry(t, conn)

	id := r.Register(context.Background(), "secret-token-1", 1089)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		c, ok := clientByID(r, id)
		return ok && c.Status == models.StatusConnected
	}, time.Second, 5*time.Millisecond)

	c, _ := clientByID(r, id)
	require.Equal(t, "CR100", c.LoginID)
	require.Equal(t, 250.0, c.Balance)
	require.Zero(t, c.TotalCopied)
}

func TestRegisterDialFailureParksInError(t *testing.T) {
	conn := &fakeConn{dialErr: errors.New("connection refused")}
	r := newTestRegistry(t, conn)

	id := r.Register(context.Background(), "secret-token-1", 1089)
	require.Eventually(t, func() bool {
		c, ok := clientByID(r, id)
		return ok && c.Status == models.StatusError
	}, time.Second, 5*time.Millisecond)
}

func TestRegisterAuthFailureParksInError(t *testing.T) {
	conn := &fakeConn{authErr: errors.New("InvalidToken")}
	r := newTestRegistry(t, conn)

	id := r.Register(context.Background(), "bad-token-0000", 1089)
	require.Eventually(t, func() bool {
		c, ok := clientByID(r, id)
		return ok && c.Status == models.StatusError
	}, time.Second, 5*time.Millisecond)
}

func TestRegisterSubscribeFailureParksInError(t *testing.T) {
	conn := &fakeConn{
		account:      models.Account{LoginID: "CR100", Balance: 250},
		subscribeErr: errors.New("MarketIsClosed"),
	}
	r := newTestRegistry(t, conn)

	id := r.Register(context.Background(), "secret-token-1", 1089)
	require.Eventually(t, func() bool {
		c, ok := clientByID(r, id)
		return ok && c.Status == models.StatusError
	}, time.Second, 5*time.Millisecond)

	// Without a balance stream the client can never be eligible.
	require.Empty(t, r.Eligible(&models.TradeSignal{Amount: 1}))
}

func TestEligibleRequiresConnectedAndFunded(t *testing.T) {
	funded := &fakeConn{account: models.Account{LoginID: "CR1", Balance: 100}}
	broke := &fakeConn{account: models.Account{LoginID: "CR2", Balance: 3}}
	failing := &fakeConn{dialErr: errors.New("refused")}
	r := newTestRegistry(t, funded, broke, failing)

	r.Register(context.Background(), "token-funded-1", 1089)
	r.Register(context.Background(), "token-broke-22", 1089)
	r.Register(context.Background(), "token-failing3", 1089)

	require.Eventually(t, func() bool {
		connected := 0
		for _, c := range r.Snapshot() {
			if c.Status == models.StatusConnected {
				connected++
			}
		}
		return connected == 2
	}, time.Second, 5*time.Millisecond)

	eligible := r.Eligible(&models.TradeSignal{Amount: 10})
	require.Len(t, eligible, 1)
	require.Equal(t, "CR1", eligible[0].LoginID)

	// A balance exactly equal to the stake is still eligible.
	eligible = r.Eligible(&models.TradeSignal{Amount: 3})
	require.Len(t, eligible, 2)
}

func TestEligibilityTracksStreamedBalance(t *testing.T) {
	conn := &fakeConn{account: models.Account{LoginID: "CR1", Balance: 100}}
	r := newTestRegistry(t, conn)

	r.Register(context.Background(), "secret-token-1", 1089)
	require.Eventually(t, func() bool {
		return len(r.Eligible(&models.TradeSignal{Amount: 50})) == 1
	}, time.Second, 5*time.Millisecond)

	// The stream handler registers just after the status flips; retry the
	// push until it lands.
	require.Eventually(t, func() bool {
		conn.pushBalance(20)
		return len(r.Eligible(&models.TradeSignal{Amount: 50})) == 0
	}, time.Second, 5*time.Millisecond)
	require.Len(t, r.Eligible(&models.TradeSignal{Amount: 20}), 1)
}

func TestDroppedConnectionLeavesRegistryEntry(t *testing.T) {
	conn := &fakeConn{account: models.Account{LoginID: "CR1", Balance: 100}}
	r := newTestRegistry(t, conn)

	id := r.Register(context.Background(), "secret-token-1", 1089)
	require.Eventually(t, func() bool {
		c, ok := clientByID(r, id)
		return ok && c.Status == models.StatusConnected
	}, time.Second, 5*time.Millisecond)

	conn.dropConn(errors.New("read: connection reset"))

	c, ok := clientByID(r, id)
	require.True(t, ok, "entry stays in the registry after a drop")
	require.Equal(t, models.StatusError, c.Status)
	require.Empty(t, r.Eligible(&models.TradeSignal{Amount: 1}))
}

func TestCleanCloseBecomesDisconnected(t *testing.T) {
	conn := &fakeConn{account: models.Account{LoginID: "CR1", Balance: 100}}
	r := newTestRegistry(t, conn)

	id := r.Register(context.Background(), "secret-token-1", 1089)
	require.Eventually(t, func() bool {
		c, ok := clientByID(r, id)
		return ok && c.Status == models.StatusConnected
	}, time.Second, 5*time.Millisecond)

	conn.dropConn(nil)

	c, _ := clientByID(r, id)
	require.Equal(t, models.StatusDisconnected, c.Status)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	conn := &fakeConn{account: models.Account{LoginID: "CR1", Balance: 100}}
	r := newTestRegistry(t, conn)

	id := r.Register(context.Background(), "secret-token-1", 1089)
	require.Eventually(t, func() bool {
		c, ok := clientByID(r, id)
		return ok && c.Status == models.StatusConnected
	}, time.Second, 5*time.Millisecond)

	r.Unregister(id)
	require.True(t, conn.closed.Load())
	_, ok := clientByID(r, id)
	require.False(t, ok)

	r.Unregister(id) // second removal is a no-op
	r.Unregister("no-such-id")
}
