package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"slotsniper/internal/cache"
	"slotsniper/internal/model"
	"slotsniper/libs/db"
)

// Slots mirrors availability snapshots so a restarted process starts from
// the last known state instead of an empty cache.
type Slots struct {
	q querier
}

func NewSlots(pool *db.Pool) *Slots { return &Slots{q: pool} }

func (s *Slots) WriteSlots(ctx context.Context, location string, date time.Time, slots []model.Slot, observedAt time.Time) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO slot_snapshots (location, snapshot_on, slots, observed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (location, snapshot_on)
		DO UPDATE SET slots = EXCLUDED.slots, observed_at = EXCLUDED.observed_at`,
		location, date, payload, observedAt)
	if err != nil {
		return fmt.Errorf("storage: write snapshot: %w", err)
	}
	return nil
}

// ReadSlots returns the mirrored snapshot. A missing row is not an error;
// it returns a zero observation time, which the cache treats as a miss.
func (s *Slots) ReadSlots(ctx context.Context, location string, date time.Time) ([]model.Slot, time.Time, error) {
	var payload []byte
	var observedAt time.Time
	err := s.q.QueryRow(ctx, `
		SELECT slots, observed_at FROM slot_snapshots
		WHERE location = $1 AND snapshot_on = $2`,
		location, date).Scan(&payload, &observedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("storage: read snapshot: %w", err)
	}

	var slots []model.Slot
	if err := json.Unmarshal(payload, &slots); err != nil {
		return nil, time.Time{}, fmt.Errorf("storage: unmarshal snapshot: %w", err)
	}
	return slots, observedAt, nil
}

var _ cache.Store = (*Slots)(nil)
