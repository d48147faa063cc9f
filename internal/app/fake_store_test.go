package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/clock"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/events"
)

var errInjected = errors.New("injected failure")

type txMarker struct{}

type memState struct {
	roomTypes map[string]domain.RoomType
	records   map[string]domain.AvailabilityRecord
	orders    map[string]domain.Order
	bookings  map[string]domain.Booking
	payments  map[string]domain.Payment
}

func (s memState) clone() memState {
	out := memState{
		roomTypes: make(map[string]domain.RoomType, len(s.roomTypes)),
		records:   make(map[string]domain.AvailabilityRecord, len(s.records)),
		orders:    make(map[string]domain.Order, len(s.orders)),
		bookings:  make(map[string]domain.Booking, len(s.bookings)),
		payments:  make(map[string]domain.Payment, len(s.payments)),
	}
	for k, v := range s.roomTypes {
		v.Rooms = append([]domain.Room(nil), v.Rooms...)
		out.roomTypes[k] = v
	}
	for k, v := range s.records {
		out.records[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.bookings {
		out.bookings[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	return out
}

// memStore is a transactional in-memory implementation of every repository.
// WithTx serializes transactions and restores the snapshot on error.
type memStore struct {
	mu sync.Mutex
	st memState

	// failInsertAfter makes InsertRecords fail once this many rows went in.
	failInsertAfter int
	inserted        int
}

func newMemStore() *memStore {
	return &memStore{st: memState{}.clone()}
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

func (m *memStore) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (m *memStore) seedRoomType(rt domain.RoomType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.roomTypes[rt.ID] = rt
}

func (m *memStore) seedRecord(r domain.AvailabilityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.records[r.ID] = r
}

func (m *memStore) seedOrder(o domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.orders[o.ID] = o
}

func (m *memStore) allRecords() []domain.AvailabilityRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedRecords(m.st.records, func(domain.AvailabilityRecord) bool { return true })
}

func (m *memStore) record(id string) (domain.AvailabilityRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.st.records[id]
	return r, ok
}

func (m *memStore) order(id string) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.orders[id]
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.bookings)
}

func (m *memStore) paymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.payments)
}

func sortedRecords(all map[string]domain.AvailabilityRecord, keep func(domain.AvailabilityRecord) bool) []domain.AvailabilityRecord {
	out := make([]domain.AvailabilityRecord, 0)
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].RoomID < out[j].RoomID
	})
	return out
}

func (m *memStore) findByKey(k domain.SlotKey) (domain.AvailabilityRecord, bool) {
	for _, r := range m.st.records {
		if r.Key() == k {
			return r, true
		}
	}
	return domain.AvailabilityRecord{}, false
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (m *memStore) ListRecords(ctx context.Context, roomIDs []string, from, toExclusive time.Time) ([]domain.AvailabilityRecord, error) {
	defer m.lock(ctx)()
	rooms := toSet(roomIDs)
	return sortedRecords(m.st.records, func(r domain.AvailabilityRecord) bool {
		_, ok := rooms[r.RoomID]
		return ok && !r.Date.Before(from) && r.Date.Before(toExclusive)
	}), nil
}

func (m *memStore) GetRecord(ctx context.Context, id string) (domain.AvailabilityRecord, error) {
	defer m.lock(ctx)()
	r, ok := m.st.records[id]
	if !ok {
		return domain.AvailabilityRecord{}, domain.ErrRecordNotFound
	}
	return r, nil
}

func (m *memStore) GetRecordsForUpdate(ctx context.Context, ids []string) ([]domain.AvailabilityRecord, error) {
	defer m.lock(ctx)()
	var out []domain.AvailabilityRecord
	for _, id := range ids {
		if r, ok := m.st.records[id]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetRecordByKeyForUpdate(ctx context.Context, roomID string, date time.Time) (*domain.AvailabilityRecord, error) {
	defer m.lock(ctx)()
	if r, ok := m.findByKey(domain.NewSlotKey(roomID, date)); ok {
		return &r, nil
	}
	return nil, nil
}

func (m *memStore) ListHeldByOwner(ctx context.Context, owner string) ([]domain.AvailabilityRecord, error) {
	defer m.lock(ctx)()
	return sortedRecords(m.st.records, func(r domain.AvailabilityRecord) bool {
		return r.Status == domain.StatusBlocked && r.BlockedBy == owner
	}), nil
}

func (m *memStore) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.AvailabilityRecord, error) {
	defer m.lock(ctx)()
	out := sortedRecords(m.st.records, func(r domain.AvailabilityRecord) bool { return r.Expired(now) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) InsertRecords(ctx context.Context, records []domain.AvailabilityRecord) error {
	defer m.lock(ctx)()
	for _, r := range records {
		if _, ok := m.findByKey(r.Key()); ok {
			return domain.ErrDuplicateRecord
		}
		if m.failInsertAfter > 0 && m.inserted >= m.failInsertAfter {
			return errInjected
		}
		m.st.records[r.ID] = r
		m.inserted++
	}
	return nil
}

func (m *memStore) UpsertStatus(ctx context.Context, record domain.AvailabilityRecord) (domain.AvailabilityRecord, error) {
	defer m.lock(ctx)()
	if existing, ok := m.findByKey(record.Key()); ok {
		existing.Status = record.Status
		existing.Reason = record.Reason
		existing.BlockedBy = record.BlockedBy
		existing.HoldExpiresAt = record.HoldExpiresAt
		existing.UpdatedAt = record.UpdatedAt
		m.st.records[existing.ID] = existing
		return existing, nil
	}
	m.st.records[record.ID] = record
	return record, nil
}

func (m *memStore) PurgeExpiredHolds(ctx context.Context, roomIDs []string, from, toExclusive, now time.Time) (int64, error) {
	defer m.lock(ctx)()
	rooms := toSet(roomIDs)
	var n int64
	for id, r := range m.st.records {
		if _, ok := rooms[r.RoomID]; !ok || r.Date.Before(from) || !r.Date.Before(toExclusive) {
			continue
		}
		if r.Expired(now) {
			delete(m.st.records, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) RetargetHolds(ctx context.Context, ids []string, owner string, expiresAt time.Time) error {
	defer m.lock(ctx)()
	for _, id := range ids {
		r, ok := m.st.records[id]
		if !ok || r.Status != domain.StatusBlocked {
			continue
		}
		r.BlockedBy = owner
		exp := expiresAt
		if r.HoldExpiresAt != nil && r.HoldExpiresAt.After(exp) {
			exp = *r.HoldExpiresAt
		}
		r.HoldExpiresAt = &exp
		m.st.records[id] = r
	}
	return nil
}

func (m *memStore) ExtendHolds(ctx context.Context, ids []string, expiresAt time.Time) (int64, error) {
	defer m.lock(ctx)()
	var n int64
	for _, id := range ids {
		r, ok := m.st.records[id]
		if !ok || !r.IsHold() {
			continue
		}
		exp := expiresAt
		r.HoldExpiresAt = &exp
		m.st.records[id] = r
		n++
	}
	return n, nil
}

func (m *memStore) MarkBooked(ctx context.Context, owner, bookingID, reason string) (int64, error) {
	defer m.lock(ctx)()
	var n int64
	for id, r := range m.st.records {
		if r.Status != domain.StatusBlocked || r.BlockedBy != owner {
			continue
		}
		r.Status = domain.StatusBooked
		r.BlockedBy = bookingID
		r.Reason = reason
		r.HoldExpiresAt = nil
		m.st.records[id] = r
		n++
	}
	return n, nil
}

func (m *memStore) DeleteRecords(ctx context.Context, ids []string) (int64, error) {
	defer m.lock(ctx)()
	var n int64
	for _, id := range ids {
		if r, ok := m.st.records[id]; ok && r.Status != domain.StatusBooked {
			delete(m.st.records, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteRecordWithStatus(ctx context.Context, propertyID, id string, status domain.AvailabilityStatus) (int64, error) {
	defer m.lock(ctx)()
	r, ok := m.st.records[id]
	if !ok || r.Status != status {
		return 0, nil
	}
	for _, rt := range m.st.roomTypes {
		if rt.PropertyID != propertyID {
			continue
		}
		for _, room := range rt.Rooms {
			if room.ID == r.RoomID {
				delete(m.st.records, id)
				return 1, nil
			}
		}
	}
	return 0, nil
}

func (m *memStore) DeleteHeldByOwner(ctx context.Context, owner string) (int64, error) {
	defer m.lock(ctx)()
	var n int64
	for id, r := range m.st.records {
		if r.Status == domain.StatusBlocked && r.BlockedBy == owner {
			delete(m.st.records, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteExpiredHolds(ctx context.Context, ids []string, now time.Time) (int64, error) {
	defer m.lock(ctx)()
	var n int64
	for _, id := range ids {
		if r, ok := m.st.records[id]; ok && r.Expired(now) {
			delete(m.st.records, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetRoomType(ctx context.Context, propertyID, roomTypeID string) (domain.RoomType, error) {
	defer m.lock(ctx)()
	rt, ok := m.st.roomTypes[roomTypeID]
	if !ok || rt.PropertyID != propertyID {
		return domain.RoomType{}, domain.ErrRoomTypeNotFound
	}
	return rt, nil
}

func (m *memStore) ListRoomTypes(ctx context.Context, propertyID string) ([]domain.RoomType, error) {
	defer m.lock(ctx)()
	var out []domain.RoomType
	for _, rt := range m.st.roomTypes {
		if rt.PropertyID == propertyID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) CreateRoomType(ctx context.Context, rt domain.RoomType) error {
	defer m.lock(ctx)()
	m.st.roomTypes[rt.ID] = rt
	return nil
}

func (m *memStore) CreateRoom(ctx context.Context, room domain.Room) error {
	defer m.lock(ctx)()
	rt, ok := m.st.roomTypes[room.RoomTypeID]
	if !ok {
		return domain.ErrRoomTypeNotFound
	}
	rt.Rooms = append(append([]domain.Room(nil), rt.Rooms...), room)
	m.st.roomTypes[rt.ID] = rt
	return nil
}

func (m *memStore) CreateOrder(ctx context.Context, order domain.Order) error {
	defer m.lock(ctx)()
	for _, o := range m.st.orders {
		if o.ExternalRef == order.ExternalRef {
			return domain.ErrIdempotencyConflict
		}
	}
	m.st.orders[order.ID] = order
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	defer m.lock(ctx)()
	o, ok := m.st.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *memStore) GetOrderByExternalRef(ctx context.Context, ref string) (domain.Order, error) {
	defer m.lock(ctx)()
	for _, o := range m.st.orders {
		if o.ExternalRef == ref {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (m *memStore) ListOrdersByIDs(ctx context.Context, ids []string) ([]domain.Order, error) {
	defer m.lock(ctx)()
	var out []domain.Order
	for _, id := range ids {
		if o, ok := m.st.orders[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, method domain.PaymentMethod, gatewayPaymentID string, at time.Time) error {
	defer m.lock(ctx)()
	o, ok := m.st.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	o.PaymentMethod = method
	o.GatewayPaymentID = gatewayPaymentID
	o.UpdatedAt = at
	m.st.orders[id] = o
	return nil
}

func (m *memStore) CreateBooking(ctx context.Context, booking domain.Booking) error {
	defer m.lock(ctx)()
	for _, b := range m.st.bookings {
		if b.OrderID == booking.OrderID || b.Number == booking.Number {
			return domain.ErrIdempotencyConflict
		}
	}
	m.st.bookings[booking.ID] = booking
	return nil
}

func (m *memStore) GetBookingByOrderID(ctx context.Context, orderID string) (domain.Booking, error) {
	defer m.lock(ctx)()
	for _, b := range m.st.bookings {
		if b.OrderID == orderID {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrBookingNotFound
}

func (m *memStore) ListActiveBookings(ctx context.Context, propertyID string, from, toExclusive time.Time) ([]domain.Booking, error) {
	defer m.lock(ctx)()
	var out []domain.Booking
	for _, b := range m.st.bookings {
		if b.PropertyID != propertyID || !b.Status.Active() {
			continue
		}
		if b.StartDate.Before(toExclusive) && b.EndDate.After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) CreatePayment(ctx context.Context, payment domain.Payment) error {
	defer m.lock(ctx)()
	if _, ok := m.st.payments[payment.TransactionID]; ok {
		return domain.ErrIdempotencyConflict
	}
	m.st.payments[payment.TransactionID] = payment
	return nil
}

func (m *memStore) PaymentExists(ctx context.Context, transactionID string) (bool, error) {
	defer m.lock(ctx)()
	_, ok := m.st.payments[transactionID]
	return ok, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

const (
	testProperty = "prop-1"
	deluxeType   = "rt-deluxe"
	suiteType    = "rt-suite"
	roomR1       = "room-r1"
	roomR2       = "room-r2"
	roomR3       = "room-r3"
	roomS1       = "room-s1"
	roomClosed   = "room-closed"
)

var testNow = time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// harness wires every service against one memStore and a manual clock.
type harness struct {
	store     *memStore
	clock     *clock.Manual
	published *recordingPublisher
	holds     *HoldService
	orders    *OrderService
	recon     *ReconciliationService
	status    *StatusService
	board     *BoardService
	reaper    *HoldReaper
	admin     *AdminService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newMemStore()
	store.seedRoomType(domain.RoomType{
		ID: deluxeType, PropertyID: testProperty, Name: "Deluxe", Active: true,
		Rooms: []domain.Room{
			{ID: roomR1, RoomTypeID: deluxeType, Label: "R1", Active: true},
			{ID: roomR2, RoomTypeID: deluxeType, Label: "R2", Active: true},
			{ID: roomR3, RoomTypeID: deluxeType, Label: "R3", Active: true},
			{ID: roomClosed, RoomTypeID: deluxeType, Label: "R9", Active: false},
		},
	})
	store.seedRoomType(domain.RoomType{
		ID: suiteType, PropertyID: testProperty, Name: "Suite", Active: true,
		Rooms: []domain.Room{{ID: roomS1, RoomTypeID: suiteType, Label: "S1", Active: true}},
	})

	clk := clock.NewManual(testNow)
	pub := &recordingPublisher{}
	recon := NewReconciliationService(store, store, store, store, store, clk, WithPublisher(pub))
	return &harness{
		store:     store,
		clock:     clk,
		published: pub,
		holds:     NewHoldService(store, store, store, clk),
		orders:    NewOrderService(store, store, store, store, clk),
		recon:     recon,
		status:    NewStatusService(store, store, store, store, clk, nil),
		board:     NewBoardService(store, store, store, clk),
		reaper:    NewHoldReaper(store, store, recon, clk),
		admin:     NewAdminService(store, clk),
	}
}

func (h *harness) hold(t *testing.T, rooms []string, from, to string) domain.Hold {
	t.Helper()
	hold, err := h.holds.CreateHold(context.Background(), CreateHoldInput{
		PropertyID: testProperty,
		RoomTypeID: deluxeType,
		RoomIDs:    rooms,
		From:       day(from),
		To:         day(to),
	})
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}
	return hold
}

func (h *harness) order(t *testing.T, hold domain.Hold, ref string) domain.Order {
	t.Helper()
	order, err := h.orders.CreateOrder(context.Background(), CreateOrderInput{
		PropertyID:    testProperty,
		ExternalRef:   ref,
		HoldRecordIDs: hold.RecordIDs(),
		Guest:         domain.Guest{Name: "Asha Rao", Email: "asha@example.com"},
		Adults:        2,
		Amount:        1_200_000,
		CheckIn:       hold.From,
		CheckOut:      hold.To,
		Selections: []SelectionInput{{
			RoomTypeID: deluxeType,
			RoomIDs:    hold.RoomIDs,
			Guests:     2,
			Price:      1_000_000,
			Tax:        200_000,
		}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}
