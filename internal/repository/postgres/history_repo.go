package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov-dev/authguard/internal/model"
)

// HistoryRepo implements HistoryRepository using PostgreSQL.
type HistoryRepo struct{ db *DB }

// NewHistoryRepo constructs a history repository.
func NewHistoryRepo(db *DB) *HistoryRepo { return &HistoryRepo{db: db} }

// Append records one lifecycle outcome. Rows are never updated or deleted.
func (r *HistoryRepo) Append(ctx context.Context, e *model.HistoryEntry) error {
	const q = `
INSERT INTO history (user_id, user_agent, event_type, result)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, e.UserID, e.UserAgent, string(e.EventType), e.Result)
	return err
}

// ListByUser returns a page of the user's history, newest first.
func (r *HistoryRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]model.HistoryEntry, error) {
	if page < 1 {
		page = 1
	}
	const q = `
SELECT id, user_id, user_agent, event_type, result, created_at
FROM history
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, q, userID, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var (
			e  model.HistoryEntry
			et string
		)
		if err = rows.Scan(&e.ID, &e.UserID, &e.UserAgent, &et, &e.Result, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EventType = model.EventType(et)
		out = append(out, e)
	}
	return out, rows.Err()
}
