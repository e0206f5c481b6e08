package service

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/avolkov-dev/authguard/internal/errs"
	"github.com/avolkov-dev/authguard/internal/model"
	"github.com/avolkov-dev/authguard/internal/repository"
)

// RoleInput carries the editable role fields.
type RoleInput struct {
	Lvl         int
	Name        string
	Description string
	MaxYear     int
}

// AdminService defines the role administration operations.
type AdminService interface {
	CreateRole(ctx context.Context, in RoleInput) (*model.Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, in RoleInput) (*model.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	AssignRole(ctx context.Context, userID, roleID uuid.UUID) error
}

// AdminServiceImpl implements AdminService.
type AdminServiceImpl struct {
	users repository.UserRepository
	roles repository.RoleRepository
	log   *zap.Logger
}

// NewAdminService constructs AdminService.
func NewAdminService(users repository.UserRepository, roles repository.RoleRepository, log *zap.Logger) *AdminServiceImpl {
	return &AdminServiceImpl{users: users, roles: roles, log: log}
}

// CreateRole adds a role at a level not yet taken.
func (s *AdminServiceImpl) CreateRole(ctx context.Context, in RoleInput) (*model.Role, error) {
	if _, err := s.roles.GetByLevel(ctx, in.Lvl); err == nil {
		return nil, errs.AlreadyExists(errs.EntityRole)
	} else if !errs.IsNotFound(err) {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	role := &model.Role{
		ID:          id,
		Lvl:         in.Lvl,
		Name:        in.Name,
		Description: in.Description,
		MaxYear:     in.MaxYear,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	s.log.Info("role created", zap.String("role_id", id.String()), zap.Int("lvl", in.Lvl))
	return role, nil
}

// UpdateRole rewrites an existing role's attributes.
func (s *AdminServiceImpl) UpdateRole(ctx context.Context, id uuid.UUID, in RoleInput) (*model.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role.Lvl = in.Lvl
	role.Name = in.Name
	role.Description = in.Description
	role.MaxYear = in.MaxYear

	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole removes a role. Principals still assigned to it keep the
// foreign key, so the delete surfaces a database error in that case.
func (s *AdminServiceImpl) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return s.roles.Delete(ctx, id)
}

// AssignRole moves a principal onto an arbitrary role, bypassing the
// one-step level walk. Both sides must exist.
func (s *AdminServiceImpl) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}
	if err := s.users.UpdateRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.log.Info("role assigned",
		zap.String("user_id", userID.String()),
		zap.String("role_id", roleID.String()),
	)
	return nil
}
