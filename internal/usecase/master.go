package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
	"CopyFlow/internal/service/deriv"
	applogger "CopyFlow/pkg/logger"
)

const (
	// DefaultDebounceDelay is how long a snapshot fetch waits after the last
	// qualifying balance event.
	DefaultDebounceDelay = 500 * time.Millisecond

	// balanceEpsilon is the minimum absolute balance move that counts as a
	// trade-relevant event.
	balanceEpsilon = 0.01
)

// MasterSession owns the single upstream connection that observes the master
// account. Balance moves above the epsilon schedule a debounced portfolio
// snapshot; scheduling cancels any pending fetch, so only the most recent
// event within the window triggers one (last-write-wins, not batching).
type MasterSession struct {
	mu          sync.Mutex
	conn        drepo.Conn
	status      models.ConnectionStatus
	loginID     string
	currency    string
	lastBalance float64
	debounce    *time.Timer

	factory       drepo.ConnFactory
	debounceDelay time.Duration
	onSnapshot    func(positions []models.Position)
	journal       *Journal
	metrics       drepo.Metrics
	log           *applogger.Logger
}

// NewMasterSession creates an idle session. onSnapshot receives every fetched
// portfolio snapshot; the caller decides whether replication is active.
func NewMasterSession(
	factory drepo.ConnFactory,
	debounceDelay time.Duration,
	onSnapshot func(positions []models.Position),
	journal *Journal,
	metrics drepo.Metrics,
	log *applogger.Logger,
) *MasterSession {
	if debounceDelay <= 0 {
		debounceDelay = DefaultDebounceDelay
	}
	return &MasterSession{
		status:        models.StatusIdle,
		factory:       factory,
		debounceDelay: debounceDelay,
		onSnapshot:    onSnapshot,
		journal:       journal,
		metrics:       metrics,
		log:           log,
	}
}

// Connect dials, authorizes and subscribes to balance updates. Runs
// asynchronously; failures park the session in Error state. Returns an error
// only when a connect is attempted from a non-restartable state.
func (m *MasterSession) Connect(ctx context.Context, token string, appID int) error {
	m.mu.Lock()
	if m.status == models.StatusConnecting || m.status == models.StatusConnected {
		m.mu.Unlock()
		return fmt.Errorf("master already %s", m.status)
	}
	m.status = models.StatusConnecting
	m.conn = m.factory(appID)
	conn := m.conn
	m.mu.Unlock()

	conn.NotifyClose(func(err error) { m.onConnClosed(err) })
	m.journal.Info(fmt.Sprintf("master: connecting (token %s)", deriv.MaskToken(token)))

	go m.open(ctx, conn, token)
	return nil
}

func (m *MasterSession) open(ctx context.Context, conn drepo.Conn, token string) {
	if err := conn.Dial(ctx); err != nil {
		m.fail(fmt.Sprintf("master: connection failed: %v", err))
		return
	}

	acct, err := conn.Authorize(ctx, token)
	if err != nil {
		m.fail(fmt.Sprintf("master: authorization failed: %v", err))
		return
	}

	m.mu.Lock()
	m.status = models.StatusConnected
	m.loginID = acct.LoginID
	m.currency = acct.Currency
	m.lastBalance = acct.Balance
	m.mu.Unlock()

	m.metrics.RecordConnectionStatus("master", acct.LoginID, models.StatusConnected)
	m.metrics.RecordBalance("master", acct.LoginID, acct.Balance)
	m.journal.Info(fmt.Sprintf("master %s connected (balance %.2f %s)", acct.LoginID, acct.Balance, acct.Currency))

	if err := conn.SubscribeBalance(ctx, m.onBalanceUpdate); err != nil {
		m.fail(fmt.Sprintf("master: balance subscribe failed: %v", err))
	}
}

func (m *MasterSession) fail(msg string) {
	m.mu.Lock()
	m.status = models.StatusError
	loginID := m.loginID
	m.mu.Unlock()
	m.metrics.RecordConnectionStatus("master", loginID, models.StatusError)
	m.journal.Error(msg)
}

// onBalanceUpdate applies the balance-delta gate and the debounce. A new
// qualifying delta cancels and replaces the pending fetch; amounts are never
// coalesced.
func (m *MasterSession) onBalanceUpdate(newBalance float64) {
	m.mu.Lock()
	delta := newBalance - m.lastBalance
	if math.Abs(delta) <= balanceEpsilon {
		m.mu.Unlock()
		return
	}
	m.lastBalance = newBalance
	loginID := m.loginID
	if m.debounce != nil {
		m.debounce.Stop()
	}
	m.debounce = time.AfterFunc(m.debounceDelay, m.fetchSnapshot)
	m.mu.Unlock()

	m.metrics.RecordBalance("master", loginID, newBalance)
	m.log.Debug("master: balance moved",
		applogger.String("loginid", loginID),
		applogger.Any("delta", delta),
	)
}

// fetchSnapshot runs when the debounce window elapses with no newer event.
func (m *MasterSession) fetchSnapshot() {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	start := time.Now()
	positions, err := conn.Portfolio(context.Background())
	if err != nil {
		m.journal.Error(fmt.Sprintf("master: portfolio fetch failed: %v", err))
		return
	}
	m.metrics.RecordRoundTrip("portfolio", time.Since(start).Seconds())

	m.onSnapshot(positions)
}

func (m *MasterSession) onConnClosed(err error) {
	m.mu.Lock()
	if m.debounce != nil {
		m.debounce.Stop()
		m.debounce = nil
	}
	m.conn = nil
	if err != nil {
		m.status = models.StatusError
	} else {
		m.status = models.StatusDisconnected
	}
	status := m.status
	loginID := m.loginID
	m.mu.Unlock()

	m.metrics.RecordConnectionStatus("master", loginID, status)
	if err != nil {
		m.journal.Error(fmt.Sprintf("master: connection error: %v", err))
	} else {
		m.journal.Warn("master: disconnected")
	}
}

// Disconnect closes the upstream connection. Reconnection is a fresh,
// explicit Connect call; it is never attempted automatically.
func (m *MasterSession) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Connected reports whether the session currently holds a live connection.
func (m *MasterSession) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == models.StatusConnected
}

// Currency returns the master account currency once authorized.
func (m *MasterSession) Currency() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currency
}

// Snapshot returns the UI-facing view of the session.
func (m *MasterSession) Snapshot() models.MasterInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.MasterInfo{
		LoginID: m.loginID,
		Status:  m.status,
		Balance: m.lastBalance,
	}
}
