package service

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/avolkov-dev/authguard/internal/crypto"
	"github.com/avolkov-dev/authguard/internal/errs"
	"github.com/avolkov-dev/authguard/internal/model"
	"github.com/avolkov-dev/authguard/internal/repository"
)

// Profile is the account view returned to its owner.
type Profile struct {
	ID        uuid.UUID
	Login     string
	Email     string
	FirstName string
	LastName  string
	Role      model.Role
}

// ProfileChanges carries the editable account fields. Nil means unchanged.
type ProfileChanges struct {
	Login     *string
	Email     *string
	FirstName *string
	LastName  *string
}

// AccountService defines the operations a principal performs on its own account.
type AccountService interface {
	Profile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	ChangeProfile(ctx context.Context, userID uuid.UUID, in ProfileChanges) (*Profile, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	History(ctx context.Context, userID uuid.UUID, page, size int) ([]model.HistoryEntry, error)
	// ChangeLevel moves the principal exactly one role level up or down.
	ChangeLevel(ctx context.Context, userID uuid.UUID, up bool) (*model.Role, error)
}

// AccountServiceImpl implements AccountService.
type AccountServiceImpl struct {
	users   repository.UserRepository
	roles   repository.RoleRepository
	history repository.HistoryRepository
	log     *zap.Logger
}

// NewAccountService constructs AccountService.
func NewAccountService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	history repository.HistoryRepository,
	log *zap.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{users: users, roles: roles, history: history, log: log}
}

// Profile returns the account view with its role resolved.
func (s *AccountServiceImpl) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.GetByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:        u.ID,
		Login:     u.Login,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      *role,
	}, nil
}

// ChangeProfile applies the submitted field changes. Login and email keep
// their uniqueness: a changed value is checked against other principals
// before the write, with the database constraints as the backstop.
func (s *AccountServiceImpl) ChangeProfile(ctx context.Context, userID uuid.UUID, in ProfileChanges) (*Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Login != nil && *in.Login != u.Login {
		if other, err := s.users.GetByLogin(ctx, *in.Login); err == nil && other.ID != userID {
			return nil, errs.AlreadyExists(errs.EntityLogin)
		} else if err != nil && !errs.IsNotFound(err) {
			return nil, err
		}
		u.Login = *in.Login
	}
	if in.Email != nil && *in.Email != u.Email {
		if other, err := s.users.GetByEmail(ctx, *in.Email); err == nil && other.ID != userID {
			return nil, errs.AlreadyExists(errs.EntityEmail)
		} else if err != nil && !errs.IsNotFound(err) {
			return nil, err
		}
		u.Email = *in.Email
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}

	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// ChangePassword verifies the current password and stores a fresh hash and salt.
func (s *AccountServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !pkgcrypto.VerifyPassword(oldPassword, u.PwdSalt, u.PwdHash) {
		return errs.ErrInvalidPassword
	}

	hash, salt, err := pkgcrypto.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash, salt)
}

// History returns one page of the principal's lifecycle trail, newest first.
func (s *AccountServiceImpl) History(ctx context.Context, userID uuid.UUID, page, size int) ([]model.HistoryEntry, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.history.ListByUser(ctx, userID, page, size)
}

// ChangeLevel reassigns the principal to the role exactly one level above or
// below its current one. There is no clamping: when no role sits at the
// target level, the move fails with a role not-found error.
func (s *AccountServiceImpl) ChangeLevel(ctx context.Context, userID uuid.UUID, up bool) (*model.Role, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	current, err := s.roles.GetByID(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}

	target := current.Lvl - 1
	if up {
		target = current.Lvl + 1
	}
	next, err := s.roles.GetByLevel(ctx, target)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateRole(ctx, userID, next.ID); err != nil {
		return nil, err
	}
	s.log.Info("role level changed",
		zap.String("user_id", userID.String()),
		zap.Int("from", current.Lvl),
		zap.Int("to", next.Lvl),
	)
	return next, nil
}
