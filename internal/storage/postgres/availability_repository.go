package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// AvailabilityRepository stores the sparse (room, date) ledger.
type AvailabilityRepository struct {
	conn
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{conn{pool: pool}}
}

const availabilityColumns = `id, room_id, date, status, reason, blocked_by, hold_expires_at, created_at, updated_at`

const expiredHoldPredicate = `status = 'blocked' AND hold_expires_at IS NOT NULL AND hold_expires_at <= `

func scanRecord(row pgx.Row) (domain.AvailabilityRecord, error) {
	var (
		r      domain.AvailabilityRecord
		status string
	)
	err := row.Scan(&r.ID, &r.RoomID, &r.Date, &status, &r.Reason, &r.BlockedBy, &r.HoldExpiresAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.AvailabilityRecord{}, err
	}
	r.Status = domain.AvailabilityStatus(status)
	r.Date = domain.DateOnly(r.Date)
	if r.HoldExpiresAt != nil {
		exp := r.HoldExpiresAt.UTC()
		r.HoldExpiresAt = &exp
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func (r *AvailabilityRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.AvailabilityRecord, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var records []domain.AvailabilityRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate availability: %w", err)
	}
	return records, nil
}

func (r *AvailabilityRepository) affected(ctx context.Context, op, stmt string, args ...any) (int64, error) {
	tag, err := r.exec(ctx, stmt, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

func (r *AvailabilityRepository) ListRecords(ctx context.Context, roomIDs []string, from, toExclusive time.Time) ([]domain.AvailabilityRecord, error) {
	query := `
SELECT ` + availabilityColumns + `
FROM availability
WHERE room_id = ANY($1::text[]::uuid[]) AND date >= $2 AND date < $3
ORDER BY date, room_id`
	return r.list(ctx, "list availability", query, roomIDs, from, toExclusive)
}

func (r *AvailabilityRepository) GetRecord(ctx context.Context, id string) (domain.AvailabilityRecord, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability WHERE id = $1`
	rec, err := scanRecord(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.AvailabilityRecord{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AvailabilityRecord{}, domain.ErrRecordNotFound
		}
		return domain.AvailabilityRecord{}, fmt.Errorf("get availability: %w", err)
	}
	return rec, nil
}

// GetRecordsForUpdate locks rows in id order. Missing ids are simply absent.
func (r *AvailabilityRepository) GetRecordsForUpdate(ctx context.Context, ids []string) ([]domain.AvailabilityRecord, error) {
	query := `
SELECT ` + availabilityColumns + `
FROM availability
WHERE id = ANY($1::text[]::uuid[])
ORDER BY id
FOR UPDATE`
	return r.list(ctx, "lock availability", query, ids)
}

func (r *AvailabilityRepository) GetRecordByKeyForUpdate(ctx context.Context, roomID string, date time.Time) (*domain.AvailabilityRecord, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability WHERE room_id = $1 AND date = $2 FOR UPDATE`
	rec, err := scanRecord(r.queryRow(ctx, query, roomID, domain.DateOnly(date)))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock availability by key: %w", err)
	}
	return &rec, nil
}

func (r *AvailabilityRepository) ListHeldByOwner(ctx context.Context, owner string) ([]domain.AvailabilityRecord, error) {
	query := `
SELECT ` + availabilityColumns + `
FROM availability
WHERE status = 'blocked' AND blocked_by = $1
ORDER BY id
FOR UPDATE`
	return r.list(ctx, "list held rows", query, owner)
}

func (r *AvailabilityRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.AvailabilityRecord, error) {
	query := `
SELECT ` + availabilityColumns + `
FROM availability
WHERE ` + expiredHoldPredicate + `$1
ORDER BY hold_expires_at, id
LIMIT $2`
	return r.list(ctx, "list expired holds", query, now, limit)
}

// InsertRecords writes rows one by one in the caller's transaction.
// A taken (room, date) surfaces as ErrDuplicateRecord.
func (r *AvailabilityRepository) InsertRecords(ctx context.Context, records []domain.AvailabilityRecord) error {
	const stmt = `
INSERT INTO availability (id, room_id, date, status, reason, blocked_by, hold_expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, rec := range records {
		_, err := r.exec(ctx, stmt,
			rec.ID,
			rec.RoomID,
			domain.DateOnly(rec.Date),
			string(rec.Status),
			rec.Reason,
			rec.BlockedBy,
			rec.HoldExpiresAt,
			rec.CreatedAt,
			rec.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateRecord
			}
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			if isForeignKeyViolation(err) {
				return domain.ErrRoomNotInRoomType
			}
			if isCheckViolation(err, "availability_hold_expiry_check") {
				return domain.ErrInvalidHoldExpiry
			}
			return fmt.Errorf("insert availability: %w", err)
		}
	}
	return nil
}

// UpsertStatus writes a staff status over any non-booked row for the same key.
func (r *AvailabilityRepository) UpsertStatus(ctx context.Context, rec domain.AvailabilityRecord) (domain.AvailabilityRecord, error) {
	query := `
INSERT INTO availability (id, room_id, date, status, reason, blocked_by, hold_expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (room_id, date) DO UPDATE
SET status = EXCLUDED.status,
	reason = EXCLUDED.reason,
	blocked_by = EXCLUDED.blocked_by,
	hold_expires_at = EXCLUDED.hold_expires_at,
	updated_at = EXCLUDED.updated_at
WHERE availability.status <> 'booked'
RETURNING ` + availabilityColumns

	saved, err := scanRecord(r.queryRow(ctx, query,
		rec.ID,
		rec.RoomID,
		domain.DateOnly(rec.Date),
		string(rec.Status),
		rec.Reason,
		rec.BlockedBy,
		rec.HoldExpiresAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.AvailabilityRecord{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AvailabilityRecord{}, domain.ErrRoomBooked
		}
		if isForeignKeyViolation(err) {
			return domain.AvailabilityRecord{}, domain.ErrRoomNotInRoomType
		}
		return domain.AvailabilityRecord{}, fmt.Errorf("upsert availability: %w", err)
	}
	return saved, nil
}

func (r *AvailabilityRepository) PurgeExpiredHolds(ctx context.Context, roomIDs []string, from, toExclusive, now time.Time) (int64, error) {
	stmt := `
DELETE FROM availability
WHERE room_id = ANY($1::text[]::uuid[]) AND date >= $2 AND date < $3
	AND ` + expiredHoldPredicate + `$4`
	return r.affected(ctx, "purge expired holds", stmt, roomIDs, from, toExclusive, now)
}

// RetargetHolds hands rows to a new owner, never shortening their expiry.
func (r *AvailabilityRepository) RetargetHolds(ctx context.Context, ids []string, owner string, expiresAt time.Time) error {
	const stmt = `
UPDATE availability
SET blocked_by = $2,
	hold_expires_at = GREATEST(COALESCE(hold_expires_at, $3), $3),
	updated_at = NOW()
WHERE id = ANY($1::text[]::uuid[]) AND status = 'blocked'`
	_, err := r.affected(ctx, "retarget holds", stmt, ids, owner, expiresAt)
	return err
}

func (r *AvailabilityRepository) ExtendHolds(ctx context.Context, ids []string, expiresAt time.Time) (int64, error) {
	const stmt = `
UPDATE availability
SET hold_expires_at = $2, updated_at = NOW()
WHERE id = ANY($1::text[]::uuid[]) AND status = 'blocked' AND hold_expires_at IS NOT NULL`
	return r.affected(ctx, "extend holds", stmt, ids, expiresAt)
}

func (r *AvailabilityRepository) MarkBooked(ctx context.Context, owner, bookingID, reason string) (int64, error) {
	const stmt = `
UPDATE availability
SET status = 'booked', blocked_by = $2, reason = $3, hold_expires_at = NULL, updated_at = NOW()
WHERE status = 'blocked' AND blocked_by = $1`
	return r.affected(ctx, "mark booked", stmt, owner, bookingID, reason)
}

func (r *AvailabilityRepository) DeleteRecords(ctx context.Context, ids []string) (int64, error) {
	const stmt = `DELETE FROM availability WHERE id = ANY($1::text[]::uuid[]) AND status <> 'booked'`
	return r.affected(ctx, "delete availability", stmt, ids)
}

func (r *AvailabilityRepository) DeleteRecordWithStatus(ctx context.Context, propertyID, id string, status domain.AvailabilityStatus) (int64, error) {
	const stmt = `
DELETE FROM availability a
USING rooms r, room_types rt
WHERE a.id = $1 AND a.status = $3
	AND r.id = a.room_id AND rt.id = r.room_type_id AND rt.property_id = $2`
	return r.affected(ctx, "delete room status", stmt, id, propertyID, string(status))
}

func (r *AvailabilityRepository) DeleteHeldByOwner(ctx context.Context, owner string) (int64, error) {
	const stmt = `DELETE FROM availability WHERE status = 'blocked' AND blocked_by = $1`
	return r.affected(ctx, "release held rows", stmt, owner)
}

// DeleteExpiredHolds re-checks expiry so a concurrent extension wins.
func (r *AvailabilityRepository) DeleteExpiredHolds(ctx context.Context, ids []string, now time.Time) (int64, error) {
	stmt := `DELETE FROM availability WHERE id = ANY($1::text[]::uuid[]) AND ` + expiredHoldPredicate + `$2`
	return r.affected(ctx, "delete expired holds", stmt, ids, now)
}
