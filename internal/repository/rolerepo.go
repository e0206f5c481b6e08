package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov-dev/authguard/internal/model"
)

// RoleRepository provides access to the ordered role table.
type RoleRepository interface {
	// Create inserts a new role.
	Create(ctx context.Context, r *model.Role) error
	// GetByID loads a role by primary key.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	// GetByLevel loads the single role at the given ordinal level.
	GetByLevel(ctx context.Context, lvl int) (*model.Role, error)
	// Any reports whether the role table has at least one row.
	Any(ctx context.Context) (bool, error)
	// Update persists role attribute changes.
	Update(ctx context.Context, r *model.Role) error
	// Delete removes a role by primary key.
	Delete(ctx context.Context, id uuid.UUID) error
}
