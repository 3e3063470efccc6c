package datastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aleister1102/slotwatch/internal/differ"
	"github.com/aleister1102/slotwatch/internal/models"
)

// markNotifiedChunk bounds the IN-list of a single MarkNotified statement.
const markNotifiedChunk = 500

// UpsertSlots writes each slot keyed by (resourceID, StartTime). Existing rows get
// their end time, notified flag and detection time overwritten. It returns the
// number of rows written.
func (s *SQLStore) UpsertSlots(ctx context.Context, resourceID int64, slots []models.Slot, notified bool) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	detectedAt := s.now().UnixNano()
	written := 0
	err := s.withTx(ctx, "upsert slots", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(`
			INSERT INTO time_slots (tracked_resource_id, start_time, end_time, notified, detected_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (tracked_resource_id, start_time) DO UPDATE SET
				end_time = excluded.end_time,
				notified = excluded.notified,
				detected_at = excluded.detected_at`))
		if err != nil {
			return storeErr("upsert slots", err)
		}
		defer stmt.Close()

		for _, slot := range slots {
			if _, err := stmt.ExecContext(ctx, resourceID, slot.StartTime, slot.EndTime, notified, detectedAt); err != nil {
				return storeErr("upsert slots", err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("resource_id", resourceID).Msg("Failed to upsert slots")
		return 0, err
	}
	return written, nil
}

// ListSlots returns the stored slots of a resource ordered by start time.
func (s *SQLStore) ListSlots(ctx context.Context, resourceID int64) ([]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSlots(ctx, resourceID)
}

func (s *SQLStore) listSlots(ctx context.Context, resourceID int64) ([]models.Slot, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT start_time, end_time, notified, detected_at
		FROM time_slots
		WHERE tracked_resource_id = ?
		ORDER BY start_time ASC`), resourceID)
	if err != nil {
		return nil, storeErr("list slots", err)
	}
	defer rows.Close()

	var out []models.Slot
	for rows.Next() {
		var (
			slot       models.Slot
			detectedAt int64
		)
		if err := rows.Scan(&slot.StartTime, &slot.EndTime, &slot.Notified, &detectedAt); err != nil {
			return nil, storeErr("list slots", err)
		}
		slot.DetectedAt = time.Unix(0, detectedAt)
		out = append(out, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list slots", err)
	}
	return out, nil
}

// Classify reads the stored set once and splits fetched into changed and
// pending-unnotified slots.
func (s *SQLStore) Classify(ctx context.Context, resourceID int64, fetched []models.Slot) (differ.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, err := s.listSlots(ctx, resourceID)
	if err != nil {
		return differ.Result{}, err
	}
	return differ.Classify(stored, fetched), nil
}

// DiffNew returns the fetched slots whose (start, end) pair is not stored.
func (s *SQLStore) DiffNew(ctx context.Context, resourceID int64, fetched []models.Slot) ([]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, err := s.listSlots(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return differ.NewOrChanged(stored, fetched), nil
}

// MarkNotified flags the given start times of a resource as notified. End times
// are left alone. Empty input is a no-op.
func (s *SQLStore) MarkNotified(ctx context.Context, resourceID int64, startTimes []string) error {
	if len(startTimes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(ctx, "mark notified", func(tx *sql.Tx) error {
		for begin := 0; begin < len(startTimes); begin += markNotifiedChunk {
			end := min(begin+markNotifiedChunk, len(startTimes))
			chunk := startTimes[begin:end]

			args := make([]interface{}, 0, len(chunk)+1)
			args = append(args, resourceID)
			for _, st := range chunk {
				args = append(args, st)
			}

			query := s.q(`UPDATE time_slots SET notified = TRUE WHERE tracked_resource_id = ? AND start_time IN (` + placeholders(len(chunk)) + `)`)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return storeErr("mark notified", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("resource_id", resourceID).Int("count", len(startTimes)).Msg("Failed to mark slots notified")
	}
	return err
}
