package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
	"CopyFlow/internal/service/deriv"
	applogger "CopyFlow/pkg/logger"

	"github.com/google/uuid"
)

// ClientConnection is one subscriber account and its connection. All fields
// except the copy counter are guarded by the registry mutex; the connection
// handle is owned exclusively by this entry and cleared when it closes.
type ClientConnection struct {
	id      string
	token   string
	conn    drepo.Conn
	status  models.ConnectionStatus
	loginID string
	balance float64

	totalCopied atomic.Uint64
}

func (c *ClientConnection) ID() string { return c.id }

// IncCopied bumps the per-client monotonic copy counter.
func (c *ClientConnection) IncCopied() { c.totalCopied.Add(1) }

// ClientRegistry owns every client connection. It is the live shared
// structure the replicator reads at fan-out time: eligibility is always
// evaluated against current state, never a captured snapshot.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*ClientConnection

	factory drepo.ConnFactory
	journal *Journal
	metrics drepo.Metrics
	log     *applogger.Logger
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry(factory drepo.ConnFactory, journal *Journal, metrics drepo.Metrics, log *applogger.Logger) *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*ClientConnection),
		factory: factory,
		journal: journal,
		metrics: metrics,
		log:     log,
	}
}

// Register creates a client entry in Connecting state and returns its id
// immediately. Dialing and authorization complete asynchronously; failures
// park the entry in Error state rather than propagating. Reconnection is
// never automatic: a terminal entry must be removed and registered again.
func (r *ClientRegistry) Register(ctx context.Context, token string, appID int) string {
	id := uuid.NewString()
	cc := &ClientConnection{
		id:     id,
		token:  token,
		conn:   r.factory(appID),
		status: models.StatusConnecting,
	}

	r.mu.Lock()
	r.clients[id] = cc
	r.mu.Unlock()

	cc.conn.NotifyClose(func(err error) { r.onConnClosed(id, err) })

	r.journal.Info(fmt.Sprintf("client %s: connecting (token %s)", shortID(id), deriv.MaskToken(token)))
	go r.open(ctx, cc)
	return id
}

func (r *ClientRegistry) open(ctx context.Context, cc *ClientConnection) {
	if err := cc.conn.Dial(ctx); err != nil {
		r.fail(cc, fmt.Sprintf("client %s: connection failed: %v", shortID(cc.id), err))
		return
	}

	acct, err := cc.conn.Authorize(ctx, cc.token)
	if err != nil {
		r.fail(cc, fmt.Sprintf("client %s: authorization failed: %v", shortID(cc.id), err))
		return
	}

	r.mu.Lock()
	cc.status = models.StatusConnected
	cc.loginID = acct.LoginID
	cc.balance = acct.Balance
	r.mu.Unlock()

	r.metrics.RecordConnectionStatus("client", acct.LoginID, models.StatusConnected)
	r.metrics.RecordBalance("client", acct.LoginID, acct.Balance)
	r.journal.Info(fmt.Sprintf("client %s connected (balance %.2f %s)", acct.LoginID, acct.Balance, acct.Currency))

	// Eligibility depends on a live balance; a client that cannot stream it
	// is parked in Error, same as the master session.
	if err := cc.conn.SubscribeBalance(ctx, func(balance float64) {
		r.mu.Lock()
		cc.balance = balance
		loginID := cc.loginID
		r.mu.Unlock()
		r.metrics.RecordBalance("client", loginID, balance)
	}); err != nil {
		r.fail(cc, fmt.Sprintf("client %s: balance subscribe failed: %v", acct.LoginID, err))
	}
}

func (r *ClientRegistry) fail(cc *ClientConnection, msg string) {
	r.mu.Lock()
	cc.status = models.StatusError
	loginID := cc.loginID
	r.mu.Unlock()
	r.metrics.RecordConnectionStatus("client", loginID, models.StatusError)
	r.journal.Error(msg)
}

// onConnClosed handles a dropped connection: transport errors park the entry
// in Error, a clean close parks it in Disconnected. Either way the handle is
// cleared and never redialed.
func (r *ClientRegistry) onConnClosed(id string, err error) {
	r.mu.Lock()
	cc, ok := r.clients[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	cc.conn = nil
	if err != nil {
		cc.status = models.StatusError
	} else {
		cc.status = models.StatusDisconnected
	}
	status := cc.status
	loginID := cc.loginID
	r.mu.Unlock()

	r.metrics.RecordConnectionStatus("client", loginID, status)
	if err != nil {
		r.journal.Error(fmt.Sprintf("client %s: connection error: %v", shortID(id), err))
	} else {
		r.journal.Warn(fmt.Sprintf("client %s: disconnected", shortID(id)))
	}
}

// Unregister closes and removes a client. Idempotent.
func (r *ClientRegistry) Unregister(id string) {
	r.mu.Lock()
	cc, ok := r.clients[id]
	var conn drepo.Conn
	if ok {
		delete(r.clients, id)
		conn = cc.conn
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	if conn != nil {
		_ = conn.Close()
	}
	r.journal.Info(fmt.Sprintf("client %s: removed", shortID(id)))
}

// EligibleClient is one fan-out target: the client's identity and its
// connection handle as captured at eligibility time. If the connection drops
// mid round trip, requests on the captured handle fail and are journaled.
type EligibleClient struct {
	ID      string
	LoginID string
	Conn    drepo.Conn

	entry *ClientConnection
}

// IncCopied bumps the client's monotonic copy counter.
func (e EligibleClient) IncCopied() { e.entry.IncCopied() }

// Eligible returns every client that can receive the signal right now:
// Connected and with a balance covering the stake.
func (r *ClientRegistry) Eligible(sig *models.TradeSignal) []EligibleClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []EligibleClient
	for _, cc := range r.clients {
		if cc.status == models.StatusConnected && cc.balance >= sig.Amount && cc.conn != nil {
			out = append(out, EligibleClient{
				ID:      cc.id,
				LoginID: cc.loginID,
				Conn:    cc.conn,
				entry:   cc,
			})
		}
	}
	return out
}

// Snapshot returns the UI-facing view of every client.
func (r *ClientRegistry) Snapshot() []models.ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ClientInfo, 0, len(r.clients))
	for _, cc := range r.clients {
		out = append(out, models.ClientInfo{
			ID:          cc.id,
			LoginID:     cc.loginID,
			Status:      cc.status,
			Balance:     cc.balance,
			TotalCopied: cc.totalCopied.Load(),
		})
	}
	return out
}

// CloseAll tears down every client connection, for shutdown.
func (r *ClientRegistry) CloseAll() {
	r.mu.Lock()
	conns := make([]drepo.Conn, 0, len(r.clients))
	for _, cc := range r.clients {
		if cc.conn != nil {
			conns = append(conns, cc.conn)
		}
	}
	r.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
