package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/avolkov-dev/authguard/internal/errs"
	"github.com/avolkov-dev/authguard/internal/model"
)

type fakeUsers struct {
	users     map[uuid.UUID]model.User
	createErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uuid.UUID]model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, e := range f.users {
		if e.Login == u.Login {
			return errs.AlreadyExists(errs.EntityLogin)
		}
		if e.Email == u.Email {
			return errs.AlreadyExists(errs.EntityEmail)
		}
	}
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errs.NotFound(errs.EntityUser)
	}
	cp := u
	return &cp, nil
}

func (f *fakeUsers) GetByLogin(_ context.Context, login string) (*model.User, error) {
	for _, u := range f.users {
		if u.Login == login {
			cp := u
			return &cp, nil
		}
	}
	return nil, errs.NotFound(errs.EntityUser)
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, errs.NotFound(errs.EntityUser)
}

func (f *fakeUsers) UpdateProfile(_ context.Context, u *model.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return errs.NotFound(errs.EntityUser)
	}
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash, salt []byte) error {
	u, ok := f.users[id]
	if !ok {
		return errs.NotFound(errs.EntityUser)
	}
	u.PwdHash, u.PwdSalt = hash, salt
	f.users[id] = u
	return nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, id, roleID uuid.UUID) error {
	u, ok := f.users[id]
	if !ok {
		return errs.NotFound(errs.EntityUser)
	}
	u.RoleID = roleID
	f.users[id] = u
	return nil
}

type fakeRoles struct {
	roles map[uuid.UUID]model.Role
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{roles: map[uuid.UUID]model.Role{}}
}

func (f *fakeRoles) add(r model.Role) { f.roles[r.ID] = r }

func (f *fakeRoles) Create(_ context.Context, r *model.Role) error {
	for _, e := range f.roles {
		if e.Lvl == r.Lvl {
			return errs.AlreadyExists(errs.EntityRole)
		}
	}
	f.roles[r.ID] = *r
	return nil
}

func (f *fakeRoles) GetByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return nil, errs.NotFound(errs.EntityRole)
	}
	cp := r
	return &cp, nil
}

func (f *fakeRoles) GetByLevel(_ context.Context, lvl int) (*model.Role, error) {
	for _, r := range f.roles {
		if r.Lvl == lvl {
			cp := r
			return &cp, nil
		}
	}
	return nil, errs.NotFound(errs.EntityRole)
}

func (f *fakeRoles) Any(_ context.Context) (bool, error) {
	return len(f.roles) > 0, nil
}

func (f *fakeRoles) Update(_ context.Context, r *model.Role) error {
	if _, ok := f.roles[r.ID]; !ok {
		return errs.NotFound(errs.EntityRole)
	}
	f.roles[r.ID] = *r
	return nil
}

func (f *fakeRoles) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.roles[id]; !ok {
		return errs.NotFound(errs.EntityRole)
	}
	delete(f.roles, id)
	return nil
}

type fakeHistory struct {
	entries   []model.HistoryEntry
	appendErr error
}

func (f *fakeHistory) Append(_ context.Context, e *model.HistoryEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeHistory) ListByUser(_ context.Context, userID uuid.UUID, page, size int) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(out) {
		return nil, nil
	}
	if end := start + size; end < len(out) {
		out = out[:end]
	}
	return out[start:], nil
}

func (f *fakeHistory) byEvent(event model.EventType) []model.HistoryEntry {
	var out []model.HistoryEntry
	for _, e := range f.entries {
		if e.EventType == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeLimiter struct {
	allow          bool
	blockOnFailure bool

	failures  int
	successes int
}

func (f *fakeLimiter) Allow(_ context.Context, _ string, _ []byte) (bool, time.Duration, error) {
	if !f.allow {
		return false, time.Minute, nil
	}
	return true, 0, nil
}

func (f *fakeLimiter) Success(_ context.Context, _ string, _ []byte) error {
	f.successes++
	return nil
}

func (f *fakeLimiter) Failure(_ context.Context, _ string, _ []byte) (bool, time.Duration, error) {
	f.failures++
	if f.blockOnFailure {
		return true, time.Minute, nil
	}
	return false, 0, nil
}
