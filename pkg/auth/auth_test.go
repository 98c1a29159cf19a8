package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureMailer struct {
	email string
	link  string
	sent  int
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.email = email
	m.link = link
	m.sent++
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *captureMailer, *clock) {
	t.Helper()
	mailer := &captureMailer{}
	clk := &clock{t: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
	svc, err := NewService(Options{
		Store:       NewMemoryStore(),
		Domain:      "@Example.com",
		Secret:      []byte(strings.Repeat("s", 32)),
		Mailer:      mailer,
		RecoveryURL: "https://portal.example.com/portal/auth/recovery",
		BcryptCost:  bcrypt.MinCost,
		Now:         clk.Now,
	})
	require.NoError(t, err)
	return svc, mailer, clk
}

func TestGate(t *testing.T) {
	gate, err := NewGate("example.com")
	require.NoError(t, err)

	assert.NoError(t, gate.Allow("Ana@EXAMPLE.com "))
	assert.ErrorIs(t, gate.Allow("ana@sub.example.com"), ErrDomainNotAllowed)
	assert.ErrorIs(t, gate.Allow("ana@example.com.evil.io"), ErrDomainNotAllowed)
	assert.ErrorIs(t, gate.Allow("ana@other.com"), ErrDomainNotAllowed)
	assert.ErrorIs(t, gate.Allow("example.com"), ErrInvalidInput)

	_, err = NewGate("")
	assert.Error(t, err)
	_, err = NewGate("localhost")
	assert.Error(t, err)
}

func TestNewServiceRejectsShortSecret(t *testing.T) {
	_, err := NewService(Options{Store: NewMemoryStore(), Domain: "example.com", Secret: []byte("short")})
	assert.Error(t, err)
}

func TestSignUpAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	pair, err := svc.SignUp(ctx, "Ana@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, "ana@example.com", pair.User.Email)
	assert.Equal(t, 900, pair.ExpiresIn)

	claims, err := svc.Authenticate(ctx, "Bearer "+pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pair.User.ID, claims.UserID())
	assert.Equal(t, "ana@example.com", claims.Email)

	_, err = svc.Authenticate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.SignUp(ctx, "ana@example.com", "another password")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignUpValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.SignUp(ctx, "ana@gmail.com", "correct horse")
	assert.ErrorIs(t, err, ErrDomainNotAllowed)

	_, err = svc.SignUp(ctx, "ana@example.com", "short")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "password must be at least 8 characters")

	_, err = svc.SignUp(ctx, "not-an-email", "correct horse")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "email must be a valid email address")
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.CreateUser(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "ana@example.com", "wrong horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "bob@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "ana@sub.example.com", "correct horse")
	assert.ErrorIs(t, err, ErrDomainNotAllowed)

	pair, err := svc.SignIn(ctx, " ANA@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	first, err := svc.SignUp(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.Authenticate(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
	_, err = svc.Authenticate(ctx, second.AccessToken)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	_, err = svc.Authenticate(ctx, second.AccessToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

// gatedStore holds the first pending Session reads until all of them arrived,
// so concurrent refreshes both see the session as active.
type gatedStore struct {
	*MemoryStore
	mu      sync.Mutex
	pending int
	release chan struct{}
}

func (g *gatedStore) Session(ctx context.Context, id string) (Session, error) {
	session, err := g.MemoryStore.Session(ctx, id)
	g.mu.Lock()
	if g.pending == 0 {
		g.mu.Unlock()
		return session, err
	}
	g.pending--
	if g.pending == 0 {
		close(g.release)
	}
	g.mu.Unlock()
	<-g.release
	return session, err
}

func TestConcurrentRefreshRotatesOnce(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{MemoryStore: NewMemoryStore()}
	svc, err := NewService(Options{
		Store:      store,
		Domain:     "example.com",
		Secret:     []byte(strings.Repeat("s", 32)),
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	pair, err := svc.SignUp(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	store.mu.Lock()
	store.pending = 2
	store.release = make(chan struct{})
	store.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSessionRevoked)
	}
	assert.Equal(t, 1, succeeded)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestAuthenticateRechecksDomain(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	secret := []byte(strings.Repeat("s", 32))
	before, err := NewService(Options{Store: store, Domain: "example.com", Secret: secret, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	pair, err := before.SignUp(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	after, err := NewService(Options{Store: store, Domain: "acme.com", Secret: secret, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	_, err = after.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrDomainNotAllowed)
	_, err = after.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrDomainNotAllowed)

	_, err = before.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	pair, err := svc.SignUp(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, pair.RefreshToken))
	require.NoError(t, svc.SignOut(ctx, pair.RefreshToken))

	_, err = svc.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	assert.ErrorIs(t, svc.SignOut(ctx, "garbage"), ErrInvalidToken)
}

func TestAccessTokenExpires(t *testing.T) {
	ctx := context.Background()
	svc, _, clk := newTestService(t)
	pair, err := svc.SignUp(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	clk.Advance(16 * time.Minute)
	_, err = svc.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, refreshed.AccessToken)
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc, mailer, _ := newTestService(t)
	_, err := svc.CreateUser(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Equal(t, 0, mailer.sent)
	assert.ErrorIs(t, svc.RequestPasswordReset(ctx, "ana@elsewhere.com"), ErrDomainNotAllowed)

	require.NoError(t, svc.RequestPasswordReset(ctx, "ana@example.com"))
	require.Equal(t, 1, mailer.sent)
	assert.Equal(t, "ana@example.com", mailer.email)

	link, err := url.Parse(mailer.link)
	require.NoError(t, err)
	assert.Equal(t, "/portal/auth/recovery", link.Path)
	params, err := ParseRecoveryParams(link.Query())
	require.NoError(t, err)
	assert.NotEmpty(t, params.RefreshToken)

	_, err = svc.Authenticate(ctx, params.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.ResetPassword(ctx, params.AccessToken, "battery staple"))

	_, err = svc.SignIn(ctx, "ana@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "ana@example.com", "battery staple")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.ResetPassword(ctx, params.AccessToken, "another one"), ErrSessionRevoked)
	_, err = svc.Refresh(ctx, params.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestParseRecoveryParams(t *testing.T) {
	_, err := ParseRecoveryParams(url.Values{"access_token": {"x"}, "type": {"signup"}})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseRecoveryParams(url.Values{"type": {"recovery"}})
	assert.ErrorIs(t, err, ErrInvalidToken)

	params, err := ParseRecoveryParams(url.Values{"access_token": {" a "}, "refresh_token": {"r"}, "type": {"recovery"}})
	require.NoError(t, err)
	assert.Equal(t, RecoveryParams{AccessToken: "a", RefreshToken: "r"}, params)
}
