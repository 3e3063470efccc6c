package datastore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aleister1102/slotwatch/internal/common"
	"github.com/aleister1102/slotwatch/internal/models"
)

const trackedColumns = `id, owner_id, url, label, created_at`

// AddTracked registers url for owner and returns the new resource id.
// ErrAlreadyTracked is returned when the pair exists.
func (s *SQLStore) AddTracked(ctx context.Context, ownerID int64, url, label string) (int64, error) {
	if strings.TrimSpace(url) == "" {
		return 0, common.NewValidationError("url", url, "url cannot be empty")
	}
	if strings.TrimSpace(label) == "" {
		label = models.UnknownLabel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO tracked_resources (owner_id, url, label, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id, url) DO NOTHING
		RETURNING id`),
		ownerID, url, label, s.now().UnixNano(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAlreadyTracked
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("owner_id", ownerID).Str("url", url).Msg("Failed to add tracked resource")
		return 0, storeErr("add tracked", err)
	}

	s.logger.Debug().Int64("id", id).Int64("owner_id", ownerID).Str("url", url).Msg("Tracked resource added")
	return id, nil
}

// RemoveTracked deletes the owner's resource and its slots. It reports whether a
// row existed.
func (s *SQLStore) RemoveTracked(ctx context.Context, ownerID int64, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	err := s.withTx(ctx, "remove tracked", func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, s.q(`SELECT id FROM tracked_resources WHERE owner_id = ? AND url = ?`), ownerID, url).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return storeErr("remove tracked", err)
		}

		// Slots go first so removal never depends on the connection's foreign key mode.
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM time_slots WHERE tracked_resource_id = ?`), id); err != nil {
			return storeErr("remove tracked", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM tracked_resources WHERE id = ?`), id); err != nil {
			return storeErr("remove tracked", err)
		}
		removed = true
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("owner_id", ownerID).Str("url", url).Msg("Failed to remove tracked resource")
		return false, err
	}
	return removed, nil
}

// ListTracked returns the owner's resources, most recently created first.
func (s *SQLStore) ListTracked(ctx context.Context, ownerID int64) ([]models.TrackedResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+trackedColumns+` FROM tracked_resources WHERE owner_id = ? ORDER BY created_at DESC, id DESC`), ownerID)
	if err != nil {
		return nil, storeErr("list tracked", err)
	}
	defer rows.Close()
	return scanTracked(rows, "list tracked")
}

// ListAll returns every tracked resource in id order.
func (s *SQLStore) ListAll(ctx context.Context) ([]models.TrackedResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+trackedColumns+` FROM tracked_resources ORDER BY id`))
	if err != nil {
		return nil, storeErr("list all", err)
	}
	defer rows.Close()
	return scanTracked(rows, "list all")
}

// GetTracked loads one resource by id. A missing id yields common.ErrNotFound.
func (s *SQLStore) GetTracked(ctx context.Context, id int64) (*models.TrackedResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r         models.TrackedResource
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT `+trackedColumns+` FROM tracked_resources WHERE id = ?`), id).
		Scan(&r.ID, &r.OwnerID, &r.URL, &r.Label, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.WrapErrorf(common.ErrNotFound, "tracked resource %d", id)
	}
	if err != nil {
		return nil, storeErr("get tracked", err)
	}
	r.CreatedAt = time.Unix(0, createdAt)
	return &r, nil
}

func scanTracked(rows *sql.Rows, op string) ([]models.TrackedResource, error) {
	var out []models.TrackedResource
	for rows.Next() {
		var (
			r         models.TrackedResource
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.URL, &r.Label, &createdAt); err != nil {
			return nil, storeErr(op, err)
		}
		r.CreatedAt = time.Unix(0, createdAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}
