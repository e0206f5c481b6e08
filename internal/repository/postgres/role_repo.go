package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov-dev/authguard/internal/errs"
	"github.com/avolkov-dev/authguard/internal/model"
)

// RoleRepo implements RoleRepository using PostgreSQL.
type RoleRepo struct{ db *DB }

// NewRoleRepo constructs a role repository.
func NewRoleRepo(db *DB) *RoleRepo { return &RoleRepo{db: db} }

// Create inserts a new role row. A lvl collision maps to AlreadyExists(Role).
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	const q = `
INSERT INTO roles (id, lvl, name, description, max_year)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, role.ID, role.Lvl, role.Name, role.Description, role.MaxYear)
	if isUniqueViolation(err, "") {
		return errs.AlreadyExists(errs.EntityRole)
	}
	return err
}

// GetByID selects a role by primary key.
func (r *RoleRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	const q = `SELECT id, lvl, name, description, max_year FROM roles WHERE id=$1`
	return r.scanRole(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByLevel selects the single role at the given ordinal level.
func (r *RoleRepo) GetByLevel(ctx context.Context, lvl int) (*model.Role, error) {
	const q = `SELECT id, lvl, name, description, max_year FROM roles WHERE lvl=$1`
	return r.scanRole(r.db.Pool.QueryRow(ctx, q, lvl))
}

// Any reports whether the role table has at least one row.
func (r *RoleRepo) Any(ctx context.Context) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM roles)`
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, q).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Update persists role attribute changes.
func (r *RoleRepo) Update(ctx context.Context, role *model.Role) error {
	const q = `
UPDATE roles SET lvl=$2, name=$3, description=$4, max_year=$5 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, role.ID, role.Lvl, role.Name, role.Description, role.MaxYear)
	if isUniqueViolation(err, "") {
		return errs.AlreadyExists(errs.EntityRole)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.EntityRole)
	}
	return nil
}

// Delete removes a role by primary key.
func (r *RoleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM roles WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.EntityRole)
	}
	return nil
}

func (r *RoleRepo) scanRole(row interface{ Scan(dest ...any) error }) (*model.Role, error) {
	var role model.Role
	err := row.Scan(&role.ID, &role.Lvl, &role.Name, &role.Description, &role.MaxYear)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.NotFound(errs.EntityRole)
	}
	return &role, nil
}
