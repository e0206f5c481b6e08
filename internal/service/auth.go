// Package service contains the application services built around the
// authenticated-session lifecycle.
package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/avolkov-dev/authguard/internal/crypto"
	"github.com/avolkov-dev/authguard/internal/errs"
	"github.com/avolkov-dev/authguard/internal/limiter"
	"github.com/avolkov-dev/authguard/internal/model"
	"github.com/avolkov-dev/authguard/internal/obs"
	"github.com/avolkov-dev/authguard/internal/repository"
	"github.com/avolkov-dev/authguard/internal/token"
)

// RevocationCache is the TTL-bounded presence store shared by the allow-list
// of live refresh tokens and the deny-list of blacklisted access token ids.
type RevocationCache interface {
	MarkSessionLive(ctx context.Context, refreshToken string, ttl time.Duration) error
	ConsumeSession(ctx context.Context, refreshToken string) (bool, error)
	DropSession(ctx context.Context, refreshToken string) error
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// SignUpInput carries the fields needed to create a principal.
type SignUpInput struct {
	Login     string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService defines the session lifecycle operations.
type AuthService interface {
	// SignUp creates a new principal on the default role.
	SignUp(ctx context.Context, in SignUpInput) (*model.User, error)
	// Login authenticates credentials and issues a token pair.
	Login(ctx context.Context, login, password, userAgent, ip string) (model.TokenPair, error)
	// Validate is the gatekeeper every authenticated operation passes through.
	Validate(ctx context.Context, accessToken, userAgent string) (*token.AccessClaims, error)
	// Refresh exchanges a live refresh token for a fresh pair.
	Refresh(ctx context.Context, refreshToken, accessToken, userAgent string) (model.TokenPair, error)
	// Logout revokes both tokens of the presented session.
	Logout(ctx context.Context, claims *token.AccessClaims, refreshToken, userAgent string) error
}

// AuthServiceImpl implements AuthService over injected collaborators.
type AuthServiceImpl struct {
	users   repository.UserRepository
	roles   repository.RoleRepository
	history repository.HistoryRepository
	cache   RevocationCache
	issuer  *token.Issuer
	lim     limiter.Limiter
	log     *zap.Logger

	recordFailedLogins bool
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	history repository.HistoryRepository,
	cache RevocationCache,
	issuer *token.Issuer,
	lim limiter.Limiter,
	log *zap.Logger,
	recordFailedLogins bool,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:              users,
		roles:              roles,
		history:            history,
		cache:              cache,
		issuer:             issuer,
		lim:                lim,
		log:                log,
		recordFailedLogins: recordFailedLogins,
	}
}

// SignUp creates a new principal. Duplicates are checked login before email;
// the unique constraints remain the backstop for concurrent sign-ups.
func (s *AuthServiceImpl) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	if _, err := s.users.GetByLogin(ctx, in.Login); err == nil {
		return nil, errs.AlreadyExists(errs.EntityLogin)
	} else if !errs.IsNotFound(err) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, errs.AlreadyExists(errs.EntityEmail)
	} else if !errs.IsNotFound(err) {
		return nil, err
	}

	role, err := s.defaultRole(ctx)
	if err != nil {
		return nil, err
	}

	hash, salt, err := pkgcrypto.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:        uid,
		Login:     in.Login,
		Email:     in.Email,
		PwdHash:   hash,
		PwdSalt:   salt,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		RoleID:    role.ID,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// defaultRole resolves the level-0 role. On the very first sign-up, when no
// roles exist at all, it is created lazily; a non-empty role table without a
// level 0 is a configuration error, not something to guess around.
func (s *AuthServiceImpl) defaultRole(ctx context.Context) (*model.Role, error) {
	role, err := s.roles.GetByLevel(ctx, 0)
	if err == nil {
		return role, nil
	}
	if !errs.IsNotFound(err) {
		return nil, err
	}

	any, err := s.roles.Any(ctx)
	if err != nil {
		return nil, err
	}
	if any {
		return nil, errs.ErrDefaultRoleMissing
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	role = &model.Role{
		ID:          id,
		Lvl:         0,
		Name:        "default_role",
		Description: "basic role, created automatically",
		MaxYear:     1980,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		if errs.IsAlreadyExists(err) {
			// lost a concurrent bootstrap, the winner's row is the default
			return s.roles.GetByLevel(ctx, 0)
		}
		return nil, err
	}
	return role, nil
}

// Login authenticates with rate limiting by (login, ip), issues a pair and
// registers the refresh token as the live member of the new session.
func (s *AuthServiceImpl) Login(ctx context.Context, login, password, userAgent, ip string) (model.TokenPair, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, login, ipHash)
	if err != nil {
		return model.TokenPair{}, err
	}
	if !allowed {
		return model.TokenPair{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errs.IsNotFound(err) {
			// unknown login still counts against the limiter; no history
			// entry, there is no principal to attribute it to
			if blocked, _, ferr := s.lim.Failure(ctx, login, ipHash); ferr == nil && blocked {
				return model.TokenPair{}, errs.ErrRateLimited
			}
			obs.ObserveLogin(false)
		}
		return model.TokenPair{}, err
	}
	if !pkgcrypto.VerifyPassword(password, u.PwdSalt, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, login, ipHash); ferr == nil && blocked {
			return model.TokenPair{}, errs.ErrRateLimited
		}
		if s.recordFailedLogins {
			s.appendHistory(ctx, u.ID, userAgent, model.EventLogin, false)
		}
		obs.ObserveLogin(false)
		return model.TokenPair{}, errs.ErrInvalidPassword
	}

	// best-effort counter reset
	_ = s.lim.Success(ctx, login, ipHash)

	pair, err := s.issuer.Issue(u.ID, userAgent, u.IsAdmin)
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := s.cache.MarkSessionLive(ctx, pair.RefreshToken, s.issuer.RefreshTTL()); err != nil {
		return model.TokenPair{}, err
	}

	s.appendHistory(ctx, u.ID, userAgent, model.EventLogin, true)
	obs.ObserveLogin(true)
	return pair, nil
}

// Validate checks an inbound access token against signature, expiry, the
// deny-list and the device binding, in that order. The blacklist check must
// run before the user-agent branch: that branch mutates the cache, and an
// already-revoked token must never reach it.
func (s *AuthServiceImpl) Validate(ctx context.Context, accessToken, userAgent string) (*token.AccessClaims, error) {
	claims, err := s.issuer.VerifyAccess(accessToken)
	if err != nil {
		obs.ObserveTokenRejection(obs.ReasonExpired)
		return nil, err
	}

	black, err := s.cache.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if black {
		obs.ObserveTokenRejection(obs.ReasonBlacklisted)
		return nil, errs.TokenInvalid(errs.TokenAccess)
	}

	if claims.UserAgent != userAgent {
		// hijack signal: burn the token for the rest of its lifetime
		if err := s.cache.Blacklist(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			return nil, err
		}
		obs.ObserveTokenRejection(obs.ReasonUserAgent)
		return nil, errs.ErrSuspiciousEntry
	}

	return claims, nil
}

// Refresh rotates a live refresh token into a fresh pair. The allow-list
// entry is consumed atomically before any validation, so the old token is
// dead for good from that point on, success or not.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken, accessToken, userAgent string) (model.TokenPair, error) {
	ok, err := s.cache.ConsumeSession(ctx, refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	if !ok {
		// not a live session; the caller never had standing, no history entry
		obs.ObserveRefresh(false)
		return model.TokenPair{}, errs.TokenInvalid(errs.TokenRefresh)
	}

	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		// was present in the cache but does not decode; nothing trustworthy
		// to attribute a history entry to
		obs.ObserveRefresh(false)
		return model.TokenPair{}, err
	}
	subject, err := uuid.FromString(claims.Subject)
	if err != nil {
		obs.ObserveRefresh(false)
		return model.TokenPair{}, errs.TokenInvalid(errs.TokenRefresh)
	}

	if claims.UserAgent != userAgent {
		s.appendHistory(ctx, subject, userAgent, model.EventRefresh, false)
		obs.ObserveRefresh(false)
		return model.TokenPair{}, errs.ErrSuspiciousEntry
	}

	if claims.AccessTail != token.Tail(accessToken) {
		// structurally valid tokens from two different sessions
		s.appendHistory(ctx, subject, userAgent, model.EventRefresh, false)
		obs.ObserveRefresh(false)
		return model.TokenPair{}, errs.TokenInvalid(errs.TokenBoth)
	}

	pair, err := s.issuer.Issue(subject, userAgent, claims.IsAdmin)
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := s.cache.MarkSessionLive(ctx, pair.RefreshToken, s.issuer.RefreshTTL()); err != nil {
		return model.TokenPair{}, err
	}

	s.appendHistory(ctx, subject, userAgent, model.EventRefresh, true)
	obs.ObserveRefresh(true)
	return pair, nil
}

// Logout blacklists the access token for its remaining lifetime and revokes
// the session's refresh token. The claims have already passed Validate.
func (s *AuthServiceImpl) Logout(ctx context.Context, claims *token.AccessClaims, refreshToken, userAgent string) error {
	if err := s.cache.Blacklist(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return err
	}
	if err := s.cache.DropSession(ctx, refreshToken); err != nil {
		return err
	}

	uid, err := uuid.FromString(claims.Subject)
	if err != nil {
		return errs.TokenInvalid(errs.TokenAccess)
	}
	s.appendHistory(ctx, uid, userAgent, model.EventLogout, true)
	return nil
}

// appendHistory records a lifecycle outcome. The audit trail is best-effort:
// a failed append is logged, not surfaced to the caller.
func (s *AuthServiceImpl) appendHistory(ctx context.Context, userID uuid.UUID, userAgent string, event model.EventType, result bool) {
	err := s.history.Append(ctx, &model.HistoryEntry{
		UserID:    userID,
		UserAgent: userAgent,
		EventType: event,
		Result:    result,
	})
	if err != nil {
		s.log.Warn("history append failed",
			zap.String("user_id", userID.String()),
			zap.String("event", string(event)),
			zap.Error(err),
		)
	}
}
