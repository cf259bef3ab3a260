package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"slotsniper/internal/model"
	"slotsniper/libs/db"
)

// Records persists the durable trail of orchestration runs.
type Records struct {
	q querier
}

func NewRecords(pool *db.Pool) *Records { return &Records{q: pool} }

// Begin opens a pending record for a run. The recorded time is the top
// desired time; Finalize overwrites it with the actually booked time.
func (r *Records) Begin(ctx context.Context, req model.BookingRequest) (int64, error) {
	var account any
	if req.AccountID > 0 {
		account = req.AccountID
	}

	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO booking_records (account_id, booking_date, time_minutes, location, sub_location, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id`,
		account, req.Date, int(req.DesiredTimes[0]), req.Location, req.SubLocation,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("storage: open booking record: %w", err)
	}
	r.appendEvent(ctx, id, "created", fmt.Sprintf("run opened for %s", req.Location))
	return id, nil
}

// Finalize settles a pending record with the run's terminal outcome.
func (r *Records) Finalize(ctx context.Context, id int64, outcome model.BookingOutcome) error {
	status := model.RecordFailed
	reference := ""
	errMsg := outcome.Reason
	var bookedMinutes any

	switch outcome.Kind {
	case model.OutcomeBooked:
		status = model.RecordConfirmed
		reference = outcome.ConfirmationRef
		errMsg = ""
		if outcome.Slot != nil {
			bookedMinutes = int(outcome.Slot.Time)
		}
	case model.OutcomeAborted:
		if outcome.Reason == "cancelled" {
			status = model.RecordCancelled
		}
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE booking_records
		SET status = $2,
		    reference = $3,
		    error_message = $4,
		    time_minutes = COALESCE($5, time_minutes),
		    updated_at = now()
		WHERE id = $1`,
		id, string(status), reference, errMsg, bookedMinutes)
	if err != nil {
		return fmt.Errorf("storage: finalize booking record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.appendEvent(ctx, id, string(outcome.Kind), outcome.Reason)
	return nil
}

// appendEvent adds an audit entry. Audit failures are swallowed; the record
// itself is the source of truth.
func (r *Records) appendEvent(ctx context.Context, recordID int64, eventType, message string) {
	_, _ = r.q.Exec(ctx, `
		INSERT INTO booking_record_events (record_id, event_type, message)
		VALUES ($1, $2, $3)`,
		recordID, eventType, message)
}

func (r *Records) Get(ctx context.Context, id int64) (model.BookingRecord, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, COALESCE(account_id, 0), booking_date, time_minutes, location, sub_location,
		       status, reference, error_message, created_at, updated_at
		FROM booking_records
		WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.BookingRecord{}, ErrNotFound
	}
	if err != nil {
		return model.BookingRecord{}, fmt.Errorf("storage: get booking record: %w", err)
	}
	return rec, nil
}

// List returns records newest first, optionally filtered by status.
func (r *Records) List(ctx context.Context, status model.RecordStatus, limit int) ([]model.BookingRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, COALESCE(account_id, 0), booking_date, time_minutes, location, sub_location,
		       status, reference, error_message, created_at, updated_at
		FROM booking_records
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list booking records: %w", err)
	}
	defer rows.Close()

	var out []model.BookingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan booking record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Cancel marks a pending record cancelled. Settled records cannot be
// cancelled.
func (r *Records) Cancel(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE booking_records
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("storage: cancel booking record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.appendEvent(ctx, id, "cancelled", "cancelled by operator")
	return nil
}

// Stats aggregates outcomes across all records.
func (r *Records) Stats(ctx context.Context) (model.RecordStats, error) {
	rows, err := r.q.Query(ctx, `
		SELECT status, COUNT(*) FROM booking_records GROUP BY status`)
	if err != nil {
		return model.RecordStats{}, fmt.Errorf("storage: record stats: %w", err)
	}
	defer rows.Close()

	var stats model.RecordStats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return model.RecordStats{}, fmt.Errorf("storage: scan record stats: %w", err)
		}
		stats.Total += n
		switch model.RecordStatus(status) {
		case model.RecordPending:
			stats.Pending = n
		case model.RecordConfirmed:
			stats.Confirmed = n
		case model.RecordFailed:
			stats.Failed = n
		case model.RecordCancelled:
			stats.Cancelled = n
		}
	}
	if err := rows.Err(); err != nil {
		return model.RecordStats{}, err
	}
	if settled := stats.Confirmed + stats.Failed; settled > 0 {
		stats.SuccessRate = 100 * float64(stats.Confirmed) / float64(settled)
	}
	return stats, nil
}

// Events returns the audit trail for one record, oldest first.
func (r *Records) Events(ctx context.Context, recordID int64) ([]model.RecordEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, record_id, event_type, message, created_at
		FROM booking_record_events
		WHERE record_id = $1
		ORDER BY id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("storage: record events: %w", err)
	}
	defer rows.Close()

	var out []model.RecordEvent
	for rows.Next() {
		var ev model.RecordEvent
		if err := rows.Scan(&ev.ID, &ev.RecordID, &ev.EventType, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan record event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (model.BookingRecord, error) {
	var rec model.BookingRecord
	var minutes int
	var status string
	err := row.Scan(&rec.ID, &rec.AccountID, &rec.Date, &minutes, &rec.Location, &rec.SubLocation,
		&status, &rec.Reference, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return model.BookingRecord{}, err
	}
	rec.Time = model.TimeOfDay(minutes)
	rec.Status = model.RecordStatus(status)
	return rec, nil
}
