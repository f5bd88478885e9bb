package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrmang/db/memory"
	"qrmang/entity"
	qrmangHTTP "qrmang/http"
	"qrmang/qr"
	"qrmang/scanner"
	"qrmang/verification"
)

const (
	testQRSecret  = "door-secret"
	testJWTSecret = "jwt-secret"
)

type commandBusStub struct {
	lock sync.Mutex
	sent []any
}

func (c *commandBusStub) Send(ctx context.Context, cmd any) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.sent = append(c.sent, cmd)
	return nil
}

type testServer struct {
	handler    http.Handler
	store      *memory.Store
	commandBus *commandBusStub
	codec      qr.Codec
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	store := memory.NewStore()
	codec := qr.NewCodec(testQRSecret)
	verifier := verification.NewService(store, store, time.UTC)
	commandBus := &commandBusStub{}

	server := qrmangHTTP.NewServer(
		":0",
		commandBus,
		store.Events(),
		store,
		verifier,
		scanner.NewPipeline(codec, verifier),
		codec,
		qr.NewRenderer(256),
		testJWTSecret,
	)

	return testServer{
		handler:    server.Handler(),
		store:      store,
		commandBus: commandBus,
		codec:      codec,
	}
}

func (s testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func scannerToken(t *testing.T, role string) string {
	t.Helper()

	token, err := qrmangHTTP.IssueScannerToken(testJWTSecret, "door-1", role, time.Hour)
	require.NoError(t, err)
	return token
}

func createEventAndBooking(t *testing.T, s testServer, eventStart time.Time) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/events", map[string]any{
		"event_id":    "event-1",
		"title":       "Jazz Night",
		"venue":       "Blue Hall",
		"event_start": eventStart,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/bookings", map[string]any{
		"event_id":    "event-1",
		"ticket_type": "VIP",
		"attendees": []map[string]any{
			{"name": "Ada", "age": 36},
		},
		"total": map[string]string{"amount": "50.00", "currency": "EUR"},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		BookingID        string `json:"booking_id"`
		BookingReference string `json:"booking_reference"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NoError(t, qr.ValidateReference(resp.BookingReference))

	return resp.BookingReference
}

func TestServer_event_validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/events", map[string]any{
		"title":          "Jazz Night",
		"event_start":    time.Now(),
		"venue_timezone": "Mars/Olympus_Mons",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/bookings", map[string]any{
		"event_id": "missing",
	}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/bookings", map[string]any{
		"booking_reference": "has:colon",
		"event_id":          "missing",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_payment_status(t *testing.T) {
	s := newTestServer(t)
	reference := createEventAndBooking(t, s, time.Now())

	rec := s.do(t, http.MethodGet, "/bookings/"+reference+"/qr", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPut, "/bookings/"+reference+"/payment-status", map[string]string{"status": "refunded"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/bookings/BR-MISSING/payment-status", map[string]string{"status": "completed"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/bookings/"+reference+"/payment-status", map[string]string{"status": "failed"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/bookings/"+reference+"/payment-status", map[string]string{"status": "completed"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_qr_and_verify(t *testing.T) {
	s := newTestServer(t)
	reference := createEventAndBooking(t, s, time.Now())

	rec := s.do(t, http.MethodPut, "/bookings/"+reference+"/payment-status", map[string]string{"status": "completed"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/bookings/"+reference+"/qr", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)

	token := scannerToken(t, qrmangHTTP.RoleOrganiser)

	// the ticket is issued asynchronously, so it is not there yet
	rec = s.do(t, http.MethodPost, "/bookings/"+reference+"/verify", nil, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	booking, err := s.store.GetByReference(context.Background(), reference)
	require.NoError(t, err)
	_, err = s.store.Issue(context.Background(), entity.Ticket{BookingID: booking.BookingID, EventID: booking.EventID})
	require.NoError(t, err)

	code, err := s.codec.EncodeForDisplay(reference)
	require.NoError(t, err)

	rec = s.do(t, http.MethodPost, "/scan", map[string]string{"code": code}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome scanner.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.NotNil(t, outcome.Result)
	assert.Equal(t, entity.VerificationSuccess, outcome.Result.Status)
	assert.Equal(t, reference, outcome.Reference)

	rec = s.do(t, http.MethodPost, "/bookings/"+reference+"/verify", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result entity.VerificationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Ticket already verified", result.Message)
	assert.Equal(t, 1, s.store.VerificationUpdates())
}

func TestServer_scan_rejects_garbage(t *testing.T) {
	s := newTestServer(t)
	token := scannerToken(t, qrmangHTTP.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/scan", map[string]string{"code": "https://example.com"}, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPost, "/scan", map[string]string{}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/bookings/BR-MISSING/verify", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_scanner_auth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/bookings/BR-1/verify", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/bookings/BR-1/verify", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrongSecret, err := qrmangHTTP.IssueScannerToken("other", "door-1", qrmangHTTP.RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/bookings/BR-1/verify", nil, wrongSecret)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := qrmangHTTP.IssueScannerToken(testJWTSecret, "door-1", qrmangHTTP.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/bookings/BR-1/verify", nil, expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/bookings/BR-1/verify", nil, scannerToken(t, "attendee"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_cancel_ticket(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/bookings/BR-AB12CD34/ticket/cancel", nil, scannerToken(t, qrmangHTTP.RoleAdmin))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Len(t, s.commandBus.sent, 1)
	cmd, ok := s.commandBus.sent[0].(entity.CancelTicket)
	require.True(t, ok)
	assert.Equal(t, "BR-AB12CD34", cmd.BookingReference)
}
