package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/app"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// serve routes req through chi so URL params resolve.
func serve(t *testing.T, method, pattern, target, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

type stubHolds struct {
	check      domain.RangeCheck
	hold       domain.Hold
	release    app.ReleaseResult
	extended   int64
	err        error
	lastCreate app.CreateHoldInput
	lastQuery  app.RangeQuery
	lastIDs    []string
	lastExpiry time.Time
}

func (s *stubHolds) CheckRange(_ context.Context, q app.RangeQuery) (domain.RangeCheck, error) {
	s.lastQuery = q
	return s.check, s.err
}

func (s *stubHolds) CreateHold(_ context.Context, in app.CreateHoldInput) (domain.Hold, error) {
	s.lastCreate = in
	return s.hold, s.err
}

func (s *stubHolds) ExtendHold(_ context.Context, ids []string, expiresAt time.Time) (int64, error) {
	s.lastIDs = ids
	s.lastExpiry = expiresAt
	return s.extended, s.err
}

func (s *stubHolds) ReleaseHold(_ context.Context, ids []string) (app.ReleaseResult, error) {
	s.lastIDs = ids
	return s.release, s.err
}

type stubOrders struct {
	order domain.Order
	err   error
	last  app.CreateOrderInput
}

func (s *stubOrders) CreateOrder(_ context.Context, in app.CreateOrderInput) (domain.Order, error) {
	s.last = in
	return s.order, s.err
}

type stubCash struct {
	res  app.FinalizeResult
	err  error
	last app.CashConfirmInput
}

func (s *stubCash) ConfirmCash(_ context.Context, in app.CashConfirmInput) (app.FinalizeResult, error) {
	s.last = in
	return s.res, s.err
}

type stubGateway struct {
	res   app.GatewayResult
	err   error
	calls int
	last  app.GatewayEvent
}

func (s *stubGateway) HandleGatewayEvent(_ context.Context, evt app.GatewayEvent) (app.GatewayResult, error) {
	s.calls++
	s.last = evt
	return s.res, s.err
}

type stubDeduper struct {
	seen      map[string]bool
	claimErr  error
	forgotten []string
}

func newStubDeduper() *stubDeduper {
	return &stubDeduper{seen: map[string]bool{}}
}

func (d *stubDeduper) Claim(_ context.Context, id string) (bool, error) {
	if d.claimErr != nil {
		return false, d.claimErr
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *stubDeduper) Forget(_ context.Context, id string) error {
	delete(d.seen, id)
	d.forgotten = append(d.forgotten, id)
	return nil
}

type stubBoard struct {
	board app.Board
	err   error
	last  app.BoardQuery
}

func (s *stubBoard) Board(_ context.Context, q app.BoardQuery) (app.Board, error) {
	s.last = q
	return s.board, s.err
}

type stubStatus struct {
	rec         domain.AvailabilityRecord
	err         error
	lastPlace   app.PlaceStatusInput
	lastRelease []string
}

func (s *stubStatus) PlaceStatus(_ context.Context, in app.PlaceStatusInput) (domain.AvailabilityRecord, error) {
	s.lastPlace = in
	return s.rec, s.err
}

func (s *stubStatus) ReleaseStatus(_ context.Context, propertyID, recordID string, status domain.AvailabilityStatus) error {
	s.lastRelease = []string{propertyID, recordID, string(status)}
	return s.err
}

type stubInventory struct {
	roomTypes []domain.RoomType
	room      domain.Room
	err       error
	lastType  app.CreateRoomTypeInput
	lastRoom  app.AddRoomInput
}

func (s *stubInventory) CreateRoomType(_ context.Context, in app.CreateRoomTypeInput) (domain.RoomType, error) {
	s.lastType = in
	if s.err != nil {
		return domain.RoomType{}, s.err
	}
	return domain.RoomType{ID: "rt-1", PropertyID: in.PropertyID, Name: in.Name, Active: true}, nil
}

func (s *stubInventory) ListRoomTypes(_ context.Context, _ string) ([]domain.RoomType, error) {
	return s.roomTypes, s.err
}

func (s *stubInventory) AddRoom(_ context.Context, in app.AddRoomInput) (domain.Room, error) {
	s.lastRoom = in
	return s.room, s.err
}

type panicBoard struct{}

func (panicBoard) Board(context.Context, app.BoardQuery) (app.Board, error) {
	panic("board exploded")
}
