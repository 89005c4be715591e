package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
	"CopyFlow/internal/usecase"
	applogger "CopyFlow/pkg/logger"
)

type stubConn struct {
	account models.Account
}

func (s *stubConn) Dial(ctx context.Context) error { return nil }
func (s *stubConn) Authorize(ctx context.Context, token string) (*models.Account, error) {
	acct := s.account
	return &acct, nil
}
func (s *stubConn) SubscribeBalance(ctx context.Context, handler func(balance float64)) error {
	return nil
}
func (s *stubConn) Portfolio(ctx context.Context) ([]models.Position, error) { return nil, nil }
func (s *stubConn) Proposal(ctx context.Context, sig *models.TradeSignal, passthrough string) (*models.Quote, error) {
	return &models.Quote{}, nil
}
func (s *stubConn) Buy(ctx context.Context, proposalID string, price float64) (*models.Execution, error) {
	return &models.Execution{}, nil
}
func (s *stubConn) NotifyClose(handler func(err error)) {}
func (s *stubConn) Close() error                        { return nil }

type stubMetrics struct{}

func (stubMetrics) RecordSignalDetected()                {}
func (stubMetrics) RecordTradeReplicated(loginid string) {}
func (stubMetrics) RecordReplicationFailed(kind string)  {}
func (stubMetrics) RecordConnectionStatus(role, loginid string, status models.ConnectionStatus) {
}
func (stubMetrics) RecordBalance(role, loginid string, balance float64) {}
func (stubMetrics) RecordRoundTrip(op string, seconds float64)          {}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	factory := func(appID int) drepo.Conn {
		return &stubConn{account: models.Account{LoginID: "CR1", Balance: 100, Currency: "USD"}}
	}
	engine := usecase.NewEngine(factory, 10*time.Millisecond, 30, usecase.NewJournal(20), stubMetrics{}, log)

	e := echo.New()
	NewReplicationHandler(log, engine).RegisterRoutes(e)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
}

func TestAddClientRejectsShortToken(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/clients", `{"token":"abc"}`)
	require.Contains(t, rec.Body.String(), `"status":400`)
	require.Contains(t, rec.Body.String(), "ERR_MIN")
}

func TestAddClientRejectsUnknownAppID(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/clients", `{"token":"secret-token-1","app_id":4242}`)
	require.Contains(t, rec.Body.String(), `"status":400`)
	require.Contains(t, rec.Body.String(), "ERR_ONEOF")
}

func TestAddClientDefaultsAppID(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/clients", `{"token":"secret-token-1"}`)
	require.Contains(t, rec.Body.String(), `"status":201`)
	require.Contains(t, rec.Body.String(), `"id"`)
}

func TestStatusStartsIdle(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"active":false`)
	require.Contains(t, rec.Body.String(), `"idle"`)
}

func TestStartReplicationWithoutMaster(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/replication/start", "")
	require.Contains(t, rec.Body.String(), `"status":400`)
}

func TestMasterConnectAndStart(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/master", `{"token":"master-token-9","app_id":36930}`)
	require.Contains(t, rec.Body.String(), `"status":200`)

	// Connection completes asynchronously; poll status.
	require.Eventually(t, func() bool {
		rec := doJSON(e, http.MethodGet, "/api/status", "")
		return strings.Contains(rec.Body.String(), `"connected"`)
	}, time.Second, 10*time.Millisecond)

	rec = doJSON(e, http.MethodPost, "/api/replication/start", "")
	require.Contains(t, rec.Body.String(), `"status":200`)

	rec = doJSON(e, http.MethodGet, "/api/status", "")
	require.Contains(t, rec.Body.String(), `"active":true`)

	rec = doJSON(e, http.MethodPost, "/api/replication/stop", "")
	require.Contains(t, rec.Body.String(), `"status":200`)
}

func TestRemoveClientIsIdempotent(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodDelete, "/api/clients/no-such-id", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogsAndStats(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"detected":0`)

	rec = doJSON(e, http.MethodGet, "/api/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
