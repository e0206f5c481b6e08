// Package errs contains the error taxonomy shared across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Entity names the subject of a not-found or already-exists failure.
type Entity string

// Entities referenced by the taxonomy.
const (
	EntityUser  Entity = "User"
	EntityRole  Entity = "Role"
	EntityLogin Entity = "Login"
	EntityEmail Entity = "Email"
)

// TokenKind tells which credential of the access/refresh pair failed validation.
type TokenKind string

const (
	// TokenAccess marks an access token rejected by signature, expiry or blacklist.
	TokenAccess TokenKind = "access"
	// TokenRefresh marks a refresh token that is not the live member of any session.
	TokenRefresh TokenKind = "refresh"
	// TokenBoth marks structurally valid tokens presented from two different sessions.
	TokenBoth TokenKind = "both"
)

// Common sentinels across repo/service layers.
var (
	// ErrInvalidPassword indicates a credential check failure on a known principal.
	ErrInvalidPassword = errors.New("wrong password")

	// ErrSuspiciousEntry indicates a user-agent mismatch on an otherwise valid token.
	// The session engine blacklists the token before returning it.
	ErrSuspiciousEntry = errors.New("suspicious entry attempt")

	// ErrDefaultRoleMissing indicates sign-up cannot resolve the level-0 role.
	ErrDefaultRoleMissing = errors.New("no default role, can't create user")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// NotFoundError reports a missing entity.
type NotFoundError struct{ Entity Entity }

func (e *NotFoundError) Error() string { return fmt.Sprintf("no such %s", e.Entity) }

// NotFound builds a NotFoundError for the given entity.
func NotFound(entity Entity) error { return &NotFoundError{Entity: entity} }

// IsNotFound reports whether err is a NotFoundError of any entity.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// AlreadyExistsError reports a uniqueness conflict.
type AlreadyExistsError struct{ Entity Entity }

func (e *AlreadyExistsError) Error() string { return fmt.Sprintf("%s already exists", e.Entity) }

// AlreadyExists builds an AlreadyExistsError for the given entity.
func AlreadyExists(entity Entity) error { return &AlreadyExistsError{Entity: entity} }

// IsAlreadyExists reports whether err is an AlreadyExistsError of any entity.
func IsAlreadyExists(err error) bool {
	var e *AlreadyExistsError
	return errors.As(err, &e)
}

// TokenInvalidError reports a rejected credential token.
type TokenInvalidError struct{ Kind TokenKind }

func (e *TokenInvalidError) Error() string {
	if e.Kind == TokenBoth {
		return "access token does not belong to refresh token"
	}
	return "signature has expired"
}

// TokenInvalid builds a TokenInvalidError of the given kind.
func TokenInvalid(kind TokenKind) error { return &TokenInvalidError{Kind: kind} }

// IsTokenInvalid reports whether err is a TokenInvalidError of the given kind.
func IsTokenInvalid(err error, kind TokenKind) bool {
	var e *TokenInvalidError
	return errors.As(err, &e) && e.Kind == kind
}
