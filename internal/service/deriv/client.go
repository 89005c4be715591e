package deriv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
	applogger "CopyFlow/pkg/logger"

	"github.com/gorilla/websocket"
)

// ErrConnClosed is returned to callers whose request was in flight when the
// connection dropped.
var ErrConnClosed = errors.New("deriv: connection closed")

// Client is one persistent WebSocket connection to the trading API. It owns
// request-id correlation: every request carries a req_id, the counterpart
// echoes it, and the waiting caller is resumed with the matching frame.
// Subscription frames (balance stream) have no waiter and are dispatched to
// the registered handler instead.
type Client struct {
	endpoint string
	appID    int
	log      *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	nextReqID int64
	pending   map[int64]chan json.RawMessage
	onBalance func(float64)
	onClose   func(error)
	closed    bool
	closeReq  bool
}

// New creates an unconnected client for one account.
func New(endpoint string, appID int, log *applogger.Logger) drepo.Conn {
	return &Client{
		endpoint: endpoint,
		appID:    appID,
		log:      log,
		pending:  make(map[int64]chan json.RawMessage),
	}
}

// NotifyClose registers the close handler. Must be called before Dial.
func (c *Client) NotifyClose(handler func(err error)) {
	c.mu.Lock()
	c.onClose = handler
	c.mu.Unlock()
}

// Dial opens the WebSocket connection and starts the read loop.
func (c *Client) Dial(ctx context.Context) error {
	u := fmt.Sprintf("%s?app_id=%d", c.endpoint, c.appID)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("deriv dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.closeReq = false
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// readLoop dispatches frames until the connection drops, then fails every
// pending correlation and fires the close handler exactly once.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.teardown(err)
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("deriv: dropping unparseable frame", applogger.Error(err))
			continue
		}

		if env.ReqID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[env.ReqID]
			if ok {
				delete(c.pending, env.ReqID)
			}
			c.mu.Unlock()
			if ok {
				ch <- raw
				continue
			}
		}

		// Subscription frame: recurring balance update.
		if env.MsgType == "balance" && len(env.Balance) > 0 {
			var p balancePayload
			if err := json.Unmarshal(env.Balance, &p); err != nil {
				continue
			}
			c.mu.Lock()
			handler := c.onBalance
			c.mu.Unlock()
			if handler != nil {
				handler(p.Balance)
			}
		}
	}
}

func (c *Client) teardown(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.conn = nil
	waiters := c.pending
	c.pending = make(map[int64]chan json.RawMessage)
	handler := c.onClose
	requested := c.closeReq
	c.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
	if handler != nil {
		if requested || errors.Is(cause, websocket.ErrCloseSent) ||
			websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			cause = nil
		}
		handler(cause)
	}
}

// call writes a request frame and blocks until the correlated response frame
// arrives or the connection closes. There is deliberately no per-request
// timeout: a hung reply parks the caller until teardown.
func (c *Client) call(ctx context.Context, build func(reqID int64) interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	if c.conn == nil || c.closed {
		c.mu.Unlock()
		return nil, ErrConnClosed
	}
	c.nextReqID++
	reqID := c.nextReqID
	ch := make(chan json.RawMessage, 1)
	c.pending[reqID] = ch
	conn := c.conn
	err := conn.WriteJSON(build(reqID))
	if err != nil {
		delete(c.pending, reqID)
		c.mu.Unlock()
		return nil, fmt.Errorf("deriv write: %w", err)
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
		return nil, ctx.Err()
	case raw, ok := <-ch:
		if !ok {
			return nil, ErrConnClosed
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("deriv response: %w", err)
		}
		if env.Error != nil {
			return nil, env.Error
		}
		return raw, nil
	}
}

// Authorize submits the account credential and returns the account identity.
func (c *Client) Authorize(ctx context.Context, token string) (*models.Account, error) {
	raw, err := c.call(ctx, func(reqID int64) interface{} {
		return authorizeRequest{Authorize: token, ReqID: reqID}
	})
	if err != nil {
		return nil, err
	}

	var resp authorizeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("deriv authorize: %w", err)
	}
	if resp.Authorize == nil {
		return nil, fmt.Errorf("deriv authorize: empty payload")
	}
	c.log.Debug("deriv: authorized",
		applogger.String("loginid", resp.Authorize.LoginID),
		applogger.String("token", MaskToken(token)),
	)
	return &models.Account{
		LoginID:  resp.Authorize.LoginID,
		Balance:  resp.Authorize.Balance,
		Currency: resp.Authorize.Currency,
	}, nil
}

// SubscribeBalance registers the stream handler and subscribes to balance
// updates. The handler runs on the connection's read goroutine; within one
// connection, updates are delivered in arrival order.
func (c *Client) SubscribeBalance(ctx context.Context, handler func(balance float64)) error {
	c.mu.Lock()
	c.onBalance = handler
	c.mu.Unlock()

	_, err := c.call(ctx, func(reqID int64) interface{} {
		return balanceRequest{Balance: 1, Subscribe: 1, ReqID: reqID}
	})
	return err
}

// Portfolio fetches the open-position snapshot.
func (c *Client) Portfolio(ctx context.Context) ([]models.Position, error) {
	raw, err := c.call(ctx, func(reqID int64) interface{} {
		return portfolioRequest{Portfolio: 1, ReqID: reqID}
	})
	if err != nil {
		return nil, err
	}

	var resp portfolioResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("deriv portfolio: %w", err)
	}
	return resp.Portfolio.Contracts, nil
}

// Proposal requests a price quote for the signal.
func (c *Client) Proposal(ctx context.Context, sig *models.TradeSignal, passthrough string) (*models.Quote, error) {
	raw, err := c.call(ctx, func(reqID int64) interface{} {
		req := proposalRequest{
			Proposal:     1,
			ContractType: sig.ContractType,
			Symbol:       sig.Symbol,
			Amount:       sig.Amount,
			Duration:     sig.Duration,
			DurationUnit: sig.DurationUnit,
			Basis:        sig.Basis,
			Currency:     sig.Currency,
			Barrier:      sig.Barrier,
			Barrier2:     sig.Barrier2,
			Prediction:   sig.Prediction,
			ReqID:        reqID,
		}
		if passthrough != "" {
			req.Passthrough = map[string]string{"correlation_id": passthrough}
		}
		return req
	})
	if err != nil {
		return nil, err
	}

	var resp proposalResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("deriv proposal: %w", err)
	}
	if resp.Proposal == nil {
		return nil, fmt.Errorf("deriv proposal: empty payload")
	}
	return &models.Quote{ProposalID: resp.Proposal.ID, AskPrice: resp.Proposal.AskPrice}, nil
}

// Buy executes a quoted proposal at the quoted price.
func (c *Client) Buy(ctx context.Context, proposalID string, price float64) (*models.Execution, error) {
	raw, err := c.call(ctx, func(reqID int64) interface{} {
		return buyRequest{Buy: proposalID, Price: price, ReqID: reqID}
	})
	if err != nil {
		return nil, err
	}

	var resp buyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("deriv buy: %w", err)
	}
	if resp.Buy == nil {
		return nil, fmt.Errorf("deriv buy: empty payload")
	}
	return &models.Execution{ContractID: resp.Buy.ContractID, Shortcode: resp.Buy.Shortcode}, nil
}

// Close closes the connection. The close handler observes a nil cause.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.closeReq = true
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}
