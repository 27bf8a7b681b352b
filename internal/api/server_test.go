package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"order_gateway/internal/domain"
	"order_gateway/internal/event"
	"order_gateway/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	result event.ActionResult
	err    error

	lastNew    domain.NewOrderRequest
	lastModify domain.ModifyOrderRequest
	lastCancel domain.CancelOrderRequest
}

func (f *fakeGateway) PlaceOrder(_ context.Context, req domain.NewOrderRequest) (event.ActionResult, error) {
	f.lastNew = req
	return f.result, f.err
}

func (f *fakeGateway) ModifyOrder(_ context.Context, req domain.ModifyOrderRequest) (event.ActionResult, error) {
	f.lastModify = req
	return f.result, f.err
}

func (f *fakeGateway) CancelOrder(_ context.Context, req domain.CancelOrderRequest) (event.ActionResult, error) {
	f.lastCancel = req
	return f.result, f.err
}

func (f *fakeGateway) GetSymbol(_ context.Context, symbol string) (*domain.SymbolReference, error) {
	if symbol != "ABC" {
		return nil, nil
	}
	return &domain.SymbolReference{Symbol: "ABC", LimitDown: decimal.NewFromInt(10), LimitUp: decimal.NewFromInt(20)}, nil
}

func (f *fakeGateway) GetPendingOrder(_ context.Context, id string) (*domain.PendingOrder, error) {
	if id != "7" {
		return nil, nil
	}
	return &domain.PendingOrder{ClientOrderID: "7", Symbol: "ABC", Side: "BUY"}, nil
}

func (f *fakeGateway) ListSymbols(context.Context) ([]domain.SymbolReference, error) {
	return []domain.SymbolReference{{Symbol: "ABC"}, {Symbol: "XYZ"}}, nil
}

func (f *fakeGateway) ListPendingOrders(context.Context) ([]domain.PendingOrder, error) {
	return nil, errors.New("database is locked")
}

func (f *fakeGateway) ListOrderHistory(context.Context) ([]domain.OrderHistoryRecord, error) {
	return []domain.OrderHistoryRecord{{ClientOrderID: "3", Status: "FILLED"}}, nil
}

func newTestServer(t *testing.T, gw *fakeGateway) (*Server, *infra.Metrics) {
	t.Helper()
	m := &infra.Metrics{}
	s := NewServer(gw, m, []string{"http://localhost:3000"})
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlaceOrder_Committed(t *testing.T) {
	gw := &fakeGateway{result: event.ActionResult{
		Action: domain.ActionNew, Status: event.StatusCommitted, ClientOrderID: "1", Line: "NEW,1,ABC,15.00,1,100",
	}}
	s, _ := newTestServer(t, gw)

	rec := do(t, s.Handler(), "POST", "/api/v1/orders", `{"symbol":"ABC","price":"15","quantity":"100","side":"BUY"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var res event.ActionResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "NEW,1,ABC,15.00,1,100", res.Line)
	assert.Equal(t, domain.NewOrderRequest{Symbol: "ABC", Price: "15", Quantity: "100", Side: "BUY"}, gw.lastNew)
}

func TestPlaceOrder_BadBody(t *testing.T) {
	s, _ := newTestServer(t, &fakeGateway{})
	rec := do(t, s.Handler(), "POST", "/api/v1/orders", `{"symbol":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmission_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		res  event.ActionResult
		err  error
		want int
	}{
		{"rejected", event.ActionResult{Status: event.StatusRejected, ErrorKind: domain.KindPriceOutOfRange}, domain.ErrPriceOutOfRange, http.StatusUnprocessableEntity},
		{"not found", event.ActionResult{Status: event.StatusRejected, ErrorKind: domain.KindOrderNotFound}, domain.ErrOrderNotFound, http.StatusNotFound},
		{"io failure", event.ActionResult{Status: event.StatusFailed, ErrorKind: domain.KindIoFailure}, &domain.LogWriteError{Op: "sync", Err: errors.New("eio")}, http.StatusServiceUnavailable},
		{"stopped", event.ActionResult{Status: event.StatusFailed, ErrorKind: domain.KindInternal}, domain.ErrSequencerStopped, http.StatusServiceUnavailable},
		{"internal", event.ActionResult{Status: event.StatusFailed, ErrorKind: domain.KindInternal}, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, &fakeGateway{result: tt.res, err: tt.err})
			rec := do(t, s.Handler(), "POST", "/api/v1/orders/7/cancel", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestModifyAndCancel_UsePathID(t *testing.T) {
	gw := &fakeGateway{result: event.ActionResult{Status: event.StatusCommitted}}
	s, _ := newTestServer(t, gw)
	h := s.Handler()

	rec := do(t, h, "POST", "/api/v1/orders/7/modify", `{"symbol":"ABC","price":"18","quantity":"50","side":"SELL"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", gw.lastModify.ClientOrderID)
	assert.Equal(t, "18", gw.lastModify.Price)

	rec = do(t, h, "POST", "/api/v1/orders/8/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "8", gw.lastCancel.ClientOrderID)
}

func TestReadEndpoints(t *testing.T) {
	s, _ := newTestServer(t, &fakeGateway{})
	h := s.Handler()

	rec := do(t, h, "GET", "/api/v1/symbols", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var symbols []domain.SymbolReference
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&symbols))
	assert.Len(t, symbols, 2)

	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/symbols/ABC", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/v1/symbols/QQQ", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/orders/pending/7", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/v1/orders/pending/9", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, h, "GET", "/api/v1/orders/pending", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/v1/orders/history", "").Code)
}

func TestMetricsAndHealth(t *testing.T) {
	s, m := newTestServer(t, &fakeGateway{})
	h := s.Handler()

	m.RecordCommit(time.Millisecond)
	rec := do(t, h, "GET", "/api/v1/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap infra.MetricsSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, uint64(1), snap.Committed)

	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/health", "").Code)
	m.SetLogPoisoned(true)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "GET", "/health", "").Code)
}

func TestRequestID_Propagated(t *testing.T) {
	s, _ := newTestServer(t, &fakeGateway{})

	req := httptest.NewRequest("GET", "/api/v1/symbols", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestWebSocket_BroadcastsResults(t *testing.T) {
	s, _ := newTestServer(t, &fakeGateway{})

	// Served without Start: the hub must already be running
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	s.Hub().PublishResult(event.ActionResult{
		Action: domain.ActionCancel, Status: event.StatusCommitted, ClientOrderID: "7", Line: "CANCEL,7,ABC,1",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var res event.ActionResult
	require.NoError(t, json.Unmarshal(msg, &res))
	assert.Equal(t, "CANCEL,7,ABC,1", res.Line)
}

func TestWebSocket_OriginCheck(t *testing.T) {
	s, _ := newTestServer(t, &fakeGateway{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestShutdown_StopsHub(t *testing.T) {
	s, _ := newTestServer(t, &fakeGateway{})

	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case <-s.hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub still running after Shutdown")
	}
}
