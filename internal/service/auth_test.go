package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	pkgcrypto "github.com/avolkov-dev/authguard/internal/crypto"
	"github.com/avolkov-dev/authguard/internal/errs"
	"github.com/avolkov-dev/authguard/internal/model"
	"github.com/avolkov-dev/authguard/internal/session"
	"github.com/avolkov-dev/authguard/internal/token"
)

const (
	testUA      = "Mozilla/5.0 test"
	testOtherUA = "curl/8.0"
	testIP      = "192.0.2.10"
)

type authFixture struct {
	users   *fakeUsers
	roles   *fakeRoles
	history *fakeHistory
	lim     *fakeLimiter
	cache   *session.Store
	issuer  *token.Issuer
	svc     *AuthServiceImpl
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	issuer, err := token.NewIssuer([]byte("test-key"), 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	fx := &authFixture{
		users:   newFakeUsers(),
		roles:   newFakeRoles(),
		history: &fakeHistory{},
		lim:     &fakeLimiter{allow: true},
		cache:   session.NewStore(rdb),
		issuer:  issuer,
	}
	fx.svc = NewAuthService(fx.users, fx.roles, fx.history, fx.cache, fx.issuer, fx.lim, zap.NewNop(), false)
	return fx
}

func (fx *authFixture) seedUser(t *testing.T, login, email, password string) *model.User {
	t.Helper()

	hash, salt, err := pkgcrypto.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("NewV4: %v", err)
	}
	u := model.User{
		ID:      id,
		Login:   login,
		Email:   email,
		PwdHash: hash,
		PwdSalt: salt,
	}
	fx.users.users[id] = u
	return &u
}

func TestSignUp_BootstrapsDefaultRole(t *testing.T) {
	fx := newAuthFixture(t)

	u, err := fx.svc.SignUp(context.Background(), SignUpInput{
		Login: "bob", Email: "bob@example.com", Password: "secret",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	role, err := fx.roles.GetByLevel(context.Background(), 0)
	if err != nil {
		t.Fatalf("default role not created: %v", err)
	}
	if role.Name != "default_role" {
		t.Errorf("default role name = %q", role.Name)
	}
	if u.RoleID != role.ID {
		t.Errorf("user not assigned to default role")
	}
	if len(u.PwdHash) == 0 || len(u.PwdSalt) == 0 {
		t.Errorf("password not hashed")
	}
}

func TestSignUp_DuplicateLogin(t *testing.T) {
	fx := newAuthFixture(t)
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	_, err := fx.svc.SignUp(context.Background(), SignUpInput{
		Login: "bob", Email: "other@example.com", Password: "secret",
	})
	if !errs.IsAlreadyExists(err) {
		t.Fatalf("want already-exists, got %v", err)
	}
	var ae *errs.AlreadyExistsError
	if errors.As(err, &ae) && ae.Entity != errs.EntityLogin {
		t.Errorf("entity = %q, want login", ae.Entity)
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	fx := newAuthFixture(t)
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	_, err := fx.svc.SignUp(context.Background(), SignUpInput{
		Login: "alice", Email: "bob@example.com", Password: "secret",
	})
	if !errs.IsAlreadyExists(err) {
		t.Fatalf("want already-exists, got %v", err)
	}
	var ae *errs.AlreadyExistsError
	if errors.As(err, &ae) && ae.Entity != errs.EntityEmail {
		t.Errorf("entity = %q, want email", ae.Entity)
	}
}

func TestSignUp_DefaultRoleMissing(t *testing.T) {
	fx := newAuthFixture(t)
	id, _ := uuid.NewV4()
	fx.roles.add(model.Role{ID: id, Lvl: 2, Name: "moderator"})

	_, err := fx.svc.SignUp(context.Background(), SignUpInput{
		Login: "bob", Email: "bob@example.com", Password: "secret",
	})
	if !errors.Is(err, errs.ErrDefaultRoleMissing) {
		t.Fatalf("want default-role-missing, got %v", err)
	}
}

func TestLogin_IssuesPairAndMarksSessionLive(t *testing.T) {
	fx := newAuthFixture(t)
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	pair, err := fx.svc.Login(context.Background(), "bob", "secret", testUA, testIP)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty token pair")
	}

	live, err := fx.cache.ConsumeSession(context.Background(), pair.RefreshToken)
	if err != nil || !live {
		t.Errorf("refresh token not registered live: %v %v", live, err)
	}
	if got := fx.history.byEvent(model.EventLogin); len(got) != 1 || !got[0].Result {
		t.Errorf("login history = %+v", got)
	}
	if fx.lim.successes != 1 {
		t.Errorf("limiter successes = %d", fx.lim.successes)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	fx := newAuthFixture(t)
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	_, err := fx.svc.Login(context.Background(), "bob", "wrong", testUA, testIP)
	if !errors.Is(err, errs.ErrInvalidPassword) {
		t.Fatalf("want invalid password, got %v", err)
	}
	if fx.lim.failures != 1 {
		t.Errorf("limiter failures = %d", fx.lim.failures)
	}
	if len(fx.history.entries) != 0 {
		t.Errorf("failed login recorded while disabled: %+v", fx.history.entries)
	}
}

func TestLogin_WrongPasswordRecordedWhenEnabled(t *testing.T) {
	fx := newAuthFixture(t)
	fx.svc.recordFailedLogins = true
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	_, err := fx.svc.Login(context.Background(), "bob", "wrong", testUA, testIP)
	if !errors.Is(err, errs.ErrInvalidPassword) {
		t.Fatalf("want invalid password, got %v", err)
	}
	got := fx.history.byEvent(model.EventLogin)
	if len(got) != 1 || got[0].Result {
		t.Fatalf("failure history = %+v", got)
	}
}

func TestLogin_UnknownLogin(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.Login(context.Background(), "nobody", "secret", testUA, testIP)
	if !errs.IsNotFound(err) {
		t.Fatalf("want not-found, got %v", err)
	}
	if fx.lim.failures != 1 {
		t.Errorf("limiter failures = %d", fx.lim.failures)
	}
	if len(fx.history.entries) != 0 {
		t.Errorf("history recorded for unknown login: %+v", fx.history.entries)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	fx := newAuthFixture(t)
	fx.lim.allow = false
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	_, err := fx.svc.Login(context.Background(), "bob", "secret", testUA, testIP)
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want rate limited, got %v", err)
	}
}

func TestLogin_BlockedAfterFailure(t *testing.T) {
	fx := newAuthFixture(t)
	fx.lim.blockOnFailure = true
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	_, err := fx.svc.Login(context.Background(), "bob", "wrong", testUA, testIP)
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want rate limited, got %v", err)
	}
}

func TestValidate_AcceptsFreshToken(t *testing.T) {
	fx := newAuthFixture(t)
	u := fx.seedUser(t, "bob", "bob@example.com", "secret")

	pair, err := fx.svc.Login(context.Background(), "bob", "secret", testUA, testIP)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := fx.svc.Validate(context.Background(), pair.AccessToken, testUA)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != u.ID.String() {
		t.Errorf("subject = %q, want %q", claims.Subject, u.ID)
	}
}

func TestValidate_Garbage(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.Validate(context.Background(), "not.a.token", testUA)
	if !errs.IsTokenInvalid(err, errs.TokenAccess) {
		t.Fatalf("want invalid access token, got %v", err)
	}
}

func TestValidate_UserAgentMismatchBlacklists(t *testing.T) {
	fx := newAuthFixture(t)
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	pair, err := fx.svc.Login(context.Background(), "bob", "secret", testUA, testIP)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := fx.svc.Validate(context.Background(), pair.AccessToken, testOtherUA); !errors.Is(err, errs.ErrSuspiciousEntry) {
		t.Fatalf("want suspicious entry, got %v", err)
	}

	// the token is burned even for the device it was issued to
	if _, err := fx.svc.Validate(context.Background(), pair.AccessToken, testUA); !errs.IsTokenInvalid(err, errs.TokenAccess) {
		t.Fatalf("want invalid access token after blacklist, got %v", err)
	}
}

func TestRefresh_RotatesOnce(t *testing.T) {
	fx := newAuthFixture(t)
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	pair, err := fx.svc.Login(context.Background(), "bob", "secret", testUA, testIP)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	next, err := fx.svc.Refresh(context.Background(), pair.RefreshToken, pair.AccessToken, testUA)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Errorf("refresh token not rotated")
	}
	if got := fx.history.byEvent(model.EventRefresh); len(got) != 1 || !got[0].Result {
		t.Errorf("refresh history = %+v", got)
	}

	// single use: the consumed token never rotates again
	if _, err := fx.svc.Refresh(context.Background(), pair.RefreshToken, pair.AccessToken, testUA); !errs.IsTokenInvalid(err, errs.TokenRefresh) {
		t.Fatalf("want invalid refresh token on reuse, got %v", err)
	}

	// the new pair is fully operative
	if _, err := fx.svc.Validate(context.Background(), next.AccessToken, testUA); err != nil {
		t.Errorf("Validate(rotated access): %v", err)
	}
	if _, err := fx.svc.Refresh(context.Background(), next.RefreshToken, next.AccessToken, testUA); err != nil {
		t.Errorf("Refresh(rotated pair): %v", err)
	}
}

func TestRefresh_UserAgentMismatchConsumes(t *testing.T) {
	fx := newAuthFixture(t)
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	pair, err := fx.svc.Login(context.Background(), "bob", "secret", testUA, testIP)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := fx.svc.Refresh(context.Background(), pair.RefreshToken, pair.AccessToken, testOtherUA); !errors.Is(err, errs.ErrSuspiciousEntry) {
		t.Fatalf("want suspicious entry, got %v", err)
	}
	if got := fx.history.byEvent(model.EventRefresh); len(got) != 1 || got[0].Result {
		t.Errorf("failure history = %+v", got)
	}

	// consumed during the failed attempt, the legitimate device loses too
	if _, err := fx.svc.Refresh(context.Background(), pair.RefreshToken, pair.AccessToken, testUA); !errs.IsTokenInvalid(err, errs.TokenRefresh) {
		t.Fatalf("want invalid refresh token, got %v", err)
	}
}

func TestRefresh_CrossSessionPair(t *testing.T) {
	fx := newAuthFixture(t)
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	first, err := fx.svc.Login(context.Background(), "bob", "secret", testUA, testIP)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := fx.svc.Login(context.Background(), "bob", "secret", testUA, testIP)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err = fx.svc.Refresh(context.Background(), first.RefreshToken, second.AccessToken, testUA)
	if !errs.IsTokenInvalid(err, errs.TokenBoth) {
		t.Fatalf("want pair mismatch, got %v", err)
	}
	if got := fx.history.byEvent(model.EventRefresh); len(got) != 1 || got[0].Result {
		t.Errorf("failure history = %+v", got)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.Refresh(context.Background(), "never-issued", "whatever", testUA)
	if !errs.IsTokenInvalid(err, errs.TokenRefresh) {
		t.Fatalf("want invalid refresh token, got %v", err)
	}
	if len(fx.history.entries) != 0 {
		t.Errorf("history recorded without a live session: %+v", fx.history.entries)
	}
}

func TestLogout_RevokesBoth(t *testing.T) {
	fx := newAuthFixture(t)
	fx.seedUser(t, "bob", "bob@example.com", "secret")

	pair, err := fx.svc.Login(context.Background(), "bob", "secret", testUA, testIP)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := fx.svc.Validate(context.Background(), pair.AccessToken, testUA)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if err := fx.svc.Logout(context.Background(), claims, pair.RefreshToken, testUA); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := fx.svc.Validate(context.Background(), pair.AccessToken, testUA); !errs.IsTokenInvalid(err, errs.TokenAccess) {
		t.Fatalf("access token survives logout: %v", err)
	}
	if _, err := fx.svc.Refresh(context.Background(), pair.RefreshToken, pair.AccessToken, testUA); !errs.IsTokenInvalid(err, errs.TokenRefresh) {
		t.Fatalf("refresh token survives logout: %v", err)
	}
	if got := fx.history.byEvent(model.EventLogout); len(got) != 1 || !got[0].Result {
		t.Errorf("logout history = %+v", got)
	}
}
