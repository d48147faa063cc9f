package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() http.Handler {
	holds := &stubHolds{}
	return NewRouter(RouterConfig{
		Logger:       quietLogger(),
		CORSOrigins:  []string{"http://localhost:5173"},
		DB:           pingFunc(func(context.Context) error { return nil }),
		Availability: holds,
		Holds:        holds,
		Orders:       &stubOrders{},
		Cash:         &stubCash{},
		Gateway:      &stubGateway{},
		Board:        &stubBoard{},
		Status:       &stubStatus{},
		Inventory:    &stubInventory{},
	})
}

func TestNewRouter_Routes(t *testing.T) {
	t.Parallel()

	router := newTestRouter()
	tests := []struct {
		method   string
		target   string
		body     string
		expected int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/properties/p1/availability?room_ids=r1&from=2025-03-10&to=2025-03-11", "", http.StatusOK},
		{http.MethodPost, "/holds/release", `{"record_ids":["a"]}`, http.StatusOK},
		{http.MethodPost, "/webhooks/payments", `{"event":"payment_link.paid","payload":{}}`, http.StatusOK},
		{http.MethodGet, "/properties/p1/board", "", http.StatusOK},
		{http.MethodGet, "/properties/p1/room-types", "", http.StatusOK},
		{http.MethodPost, "/properties/p1/room-types", `{"name":"Deluxe"}`, http.StatusCreated},
		{http.MethodDelete, "/properties/p1/room-status/rec-1?status=blocked", "", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.expected, rec.Code, rec.Body.String())
		})
	}
}

func TestNewRouter_NotFound(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, codeNotFound, decodeError(t, rec).Code)
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/holds/release", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, codeMethodNotAllowed, decodeError(t, rec).Code)
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{
		Logger: quietLogger(),
		Board:  panicBoard{},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties/p1/board", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
