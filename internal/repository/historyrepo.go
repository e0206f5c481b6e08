package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov-dev/authguard/internal/model"
)

// HistoryRepository is the append-only audit sink for lifecycle events.
type HistoryRepository interface {
	// Append records one login/refresh/logout outcome.
	Append(ctx context.Context, e *model.HistoryEntry) error
	// ListByUser returns a page of the user's history, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]model.HistoryEntry, error)
}
