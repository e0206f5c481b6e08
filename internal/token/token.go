// Package token mints and verifies the paired access/refresh credentials.
//
// The two tokens of a pair are cross-bound by value: the access token carries
// a unique jti, and the refresh token embeds the trailing dot-segment of the
// access token it was issued with. Verifying the linkage is a string
// comparison, no lookup involved.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/avolkov-dev/authguard/internal/errs"
	"github.com/avolkov-dev/authguard/internal/model"
)

// AccessClaims is the claim set carried by an access token.
type AccessClaims struct {
	UserAgent string `json:"user_agent"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set carried by a refresh token. AccessTail binds
// the refresh token to its paired access token.
type RefreshClaims struct {
	UserAgent  string `json:"user_agent"`
	IsAdmin    bool   `json:"is_admin"`
	AccessTail string `json:"access_tail"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 token pairs.
type Issuer struct {
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer constructs an Issuer. An empty signing key is a wiring bug and is
// rejected at startup, not at issue time.
func NewIssuer(signKey []byte, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(signKey) == 0 {
		return nil, errors.New("empty signing key")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("non-positive token lifetime")
	}
	return &Issuer{signKey: signKey, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// RefreshTTL returns the configured refresh token lifetime. The allow-list
// entry registered for a fresh refresh token must use the same TTL.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Issue mints a new access/refresh pair for the subject. The pair shares a
// session lineage via the refresh token's access_tail claim. No side effects:
// registering the refresh token in the revocation cache is the caller's job.
func (i *Issuer) Issue(subject uuid.UUID, userAgent string, isAdmin bool) (model.TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(i.accessTTL)

	jti, err := uuid.NewV4()
	if err != nil {
		return model.TokenPair{}, err
	}

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		UserAgent: userAgent,
		IsAdmin:   isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	accessRaw, err := access.SignedString(i.signKey)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		UserAgent:  userAgent,
		IsAdmin:    isAdmin,
		AccessTail: Tail(accessRaw),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
	})
	refreshRaw, err := refresh.SignedString(i.signKey)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:     accessRaw,
		RefreshToken:    refreshRaw,
		AccessExpiresAt: accessExp,
	}, nil
}

// VerifyAccess checks signature and expiry of an access token and returns its
// claims. Any failure maps to TokenInvalid(access).
func (i *Issuer) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(raw, claims); err != nil {
		return nil, errs.TokenInvalid(errs.TokenAccess)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errs.TokenInvalid(errs.TokenAccess)
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry of a refresh token and returns its
// claims. Any failure maps to TokenInvalid(refresh).
func (i *Issuer) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.verify(raw, claims); err != nil {
		return nil, errs.TokenInvalid(errs.TokenRefresh)
	}
	if claims.Subject == "" || claims.AccessTail == "" {
		return nil, errs.TokenInvalid(errs.TokenRefresh)
	}
	return claims, nil
}

func (i *Issuer) verify(raw string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.signKey, nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid token")
	}
	return nil
}

// Tail returns the trailing dot-segment of a compact token (its signature),
// the stable identity segment used for access/refresh cross-binding.
func Tail(raw string) string {
	idx := strings.LastIndexByte(raw, '.')
	if idx < 0 {
		return raw
	}
	return raw[idx+1:]
}
