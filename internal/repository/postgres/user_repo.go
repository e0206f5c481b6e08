package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov-dev/authguard/internal/errs"
	"github.com/avolkov-dev/authguard/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, login, email, pwd_hash, pwd_salt, first_name, last_name, is_admin, role_id, created_at`

// Create inserts a new user row. Unique violations are mapped to the field
// that collided so the HTTP layer can name it.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, login, email, pwd_hash, pwd_salt, first_name, last_name, is_admin, role_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Pool.Exec(ctx, q,
		u.ID, u.Login, u.Email, u.PwdHash, u.PwdSalt, u.FirstName, u.LastName, u.IsAdmin, u.RoleID)
	switch {
	case isUniqueViolation(err, "users_login_key"):
		return errs.AlreadyExists(errs.EntityLogin)
	case isUniqueViolation(err, "users_email_key"):
		return errs.AlreadyExists(errs.EntityEmail)
	case isUniqueViolation(err, ""):
		return errs.AlreadyExists(errs.EntityUser)
	}
	return err
}

// GetByID selects a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByLogin selects a user by login.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE login=$1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, login))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// UpdateProfile persists login/email/name changes.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	const q = `
UPDATE users SET login=$2, email=$3, first_name=$4, last_name=$5 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, u.ID, u.Login, u.Email, u.FirstName, u.LastName)
	switch {
	case isUniqueViolation(err, "users_login_key"):
		return errs.AlreadyExists(errs.EntityLogin)
	case isUniqueViolation(err, "users_email_key"):
		return errs.AlreadyExists(errs.EntityEmail)
	case err != nil:
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.EntityUser)
	}
	return nil
}

// UpdatePassword replaces the stored hash and salt.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	const q = `UPDATE users SET pwd_hash=$2, pwd_salt=$3 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, hash, salt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.EntityUser)
	}
	return nil
}

// UpdateRole reassigns the user's role.
func (r *UserRepo) UpdateRole(ctx context.Context, id, roleID uuid.UUID) error {
	const q = `UPDATE users SET role_id=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(errs.EntityUser)
	}
	return nil
}

func (r *UserRepo) scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.Email, &u.PwdHash, &u.PwdSalt,
		&u.FirstName, &u.LastName, &u.IsAdmin, &u.RoleID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.NotFound(errs.EntityUser)
	}
	return &u, nil
}
