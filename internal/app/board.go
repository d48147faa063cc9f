package app

import (
	"context"
	"time"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/clock"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// BoardService projects the front-desk calendar for a property. It never writes.
type BoardService struct {
	rooms    RoomRepository
	ledger   LedgerRepository
	bookings BookingRepository
	clock    clock.Clock
}

func NewBoardService(rooms RoomRepository, ledger LedgerRepository, bookings BookingRepository, clk clock.Clock) *BoardService {
	return &BoardService{rooms: rooms, ledger: ledger, bookings: bookings, clock: clk}
}

type BoardQuery struct {
	PropertyID string
	From       *time.Time
	// To is inclusive.
	To *time.Time
}

type Board struct {
	PropertyID string
	From       time.Time
	To         time.Time
	TotalRooms int
	Days       []BoardDay
	Summary    []DayCounts
	RoomTypes  []BoardRoomType
}

type BoardDay struct {
	Date    time.Time
	Weekday string
}

type DayCounts struct {
	Date         time.Time
	TotalRooms   int
	Booked       int
	Blocked      int
	Maintenance  int
	OutOfService int
	Available    int
}

func (c *DayCounts) add(status domain.AvailabilityStatus) {
	switch status {
	case domain.StatusBooked:
		c.Booked++
	case domain.StatusBlocked:
		c.Blocked++
	case domain.StatusMaintenance:
		c.Maintenance++
	case domain.StatusOutOfService:
		c.OutOfService++
	default:
		c.Available++
	}
}

type BoardRoomType struct {
	ID           string
	Name         string
	Availability []DayCounts
	Rooms        []BoardRoom
}

type BoardRoom struct {
	ID    string
	Label string
	Slots []BoardSlot
}

type BoardSlot struct {
	Date          time.Time
	Status        domain.AvailabilityStatus
	BookingID     string
	BookingNumber string
	GuestName     string
	StayStart     time.Time
	StayEnd       time.Time
	RecordID      string
	Reason        string
	BlockedBy     string
	HoldExpiresAt *time.Time
}

func (s *BoardService) Board(ctx context.Context, q BoardQuery) (Board, error) {
	now := s.clock.Now()
	from := domain.StartOfISOWeek(now)
	if q.From != nil {
		from = domain.DateOnly(*q.From)
	}
	to := domain.AddDays(from, 6)
	if q.To != nil {
		to = domain.DateOnly(*q.To)
	}
	if to.Before(from) {
		return Board{}, domain.Invalid("to", domain.ErrInvalidDateRange)
	}
	to = domain.ClampRange(from, to, domain.MaxBoardSpanDays)
	end := domain.AddDays(to, 1)
	days := domain.DateRange(from, end)

	roomTypes, err := s.rooms.ListRoomTypes(ctx, q.PropertyID)
	if err != nil {
		return Board{}, err
	}
	var roomIDs []string
	for _, rt := range roomTypes {
		if !rt.Active {
			continue
		}
		for _, r := range rt.ActiveRooms() {
			roomIDs = append(roomIDs, r.ID)
		}
	}

	board := Board{PropertyID: q.PropertyID, From: from, To: to, TotalRooms: len(roomIDs)}
	for _, d := range days {
		board.Days = append(board.Days, BoardDay{Date: d, Weekday: d.Weekday().String()[:3]})
		board.Summary = append(board.Summary, DayCounts{Date: d, TotalRooms: len(roomIDs)})
	}
	if len(roomIDs) == 0 {
		return board, nil
	}

	records, err := s.ledger.ListRecords(ctx, roomIDs, from, end)
	if err != nil {
		return Board{}, err
	}
	overrides := keySet(records)

	bookings, err := s.bookings.ListActiveBookings(ctx, q.PropertyID, from, end)
	if err != nil {
		return Board{}, err
	}

	for _, rt := range roomTypes {
		if !rt.Active {
			continue
		}
		active := rt.ActiveRooms()
		brt := BoardRoomType{ID: rt.ID, Name: rt.Name}
		for _, d := range days {
			brt.Availability = append(brt.Availability, DayCounts{Date: d, TotalRooms: len(active)})
		}
		for _, room := range active {
			br := BoardRoom{ID: room.ID, Label: room.Label}
			for i, d := range days {
				slot := resolveSlot(room.ID, d, bookings, overrides, now)
				br.Slots = append(br.Slots, slot)
				brt.Availability[i].add(slot.Status)
				board.Summary[i].add(slot.Status)
			}
			brt.Rooms = append(brt.Rooms, br)
		}
		board.RoomTypes = append(board.RoomTypes, brt)
	}
	return board, nil
}

// resolveSlot layers booking coverage over ledger overrides over available.
func resolveSlot(roomID string, day time.Time, bookings []domain.Booking, overrides map[domain.SlotKey]domain.AvailabilityRecord, now time.Time) BoardSlot {
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		for _, sel := range b.Selections {
			if sel.Covers(roomID, day) {
				return BoardSlot{
					Date:          day,
					Status:        domain.StatusBooked,
					BookingID:     b.ID,
					BookingNumber: b.Number,
					GuestName:     b.Guest.Name,
					StayStart:     sel.CheckIn,
					StayEnd:       sel.CheckOut,
				}
			}
		}
	}
	if rec, ok := overrides[domain.NewSlotKey(roomID, day)]; ok && rec.Blocks(now) {
		return BoardSlot{
			Date:          day,
			Status:        rec.Status,
			RecordID:      rec.ID,
			Reason:        rec.Reason,
			BlockedBy:     rec.BlockedBy,
			HoldExpiresAt: rec.HoldExpiresAt,
		}
	}
	return BoardSlot{Date: day, Status: domain.StatusAvailable}
}
