package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAccessTTL   = 15 * time.Minute
	defaultRefreshTTL  = 7 * 24 * time.Hour
	defaultRecoveryTTL = time.Hour
	defaultIssuer      = "go-portal-metrics"
	minSecretLength    = 32
)

// Options configures the auth Service.
type Options struct {
	Store       Store
	Domain      string
	Secret      []byte
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	RecoveryTTL time.Duration
	Mailer      Mailer
	RecoveryURL string
	BcryptCost  int
	Now         func() time.Time
}

// TokenPair is returned on sign-in and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// RecoveryParams are read from a password reset link.
type RecoveryParams struct {
	AccessToken  string
	RefreshToken string
}

// Service implements domain-gated email/password authentication.
type Service struct {
	store       Store
	gate        Gate
	signer      signer
	accessTTL   time.Duration
	refreshTTL  time.Duration
	recoveryTTL time.Duration
	mailer      Mailer
	recoveryURL string
	cost        int
	now         func() time.Time
}

// NewService validates options and applies defaults.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("auth: store not configured")
	}
	gate, err := NewGate(opts.Domain)
	if err != nil {
		return nil, err
	}
	if len(opts.Secret) < minSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", minSecretLength)
	}
	if opts.Issuer == "" {
		opts.Issuer = defaultIssuer
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = defaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = defaultRefreshTTL
	}
	if opts.RecoveryTTL <= 0 {
		opts.RecoveryTTL = defaultRecoveryTTL
	}
	if opts.Mailer == nil {
		opts.Mailer = LogMailer{}
	}
	if opts.RecoveryURL == "" {
		opts.RecoveryURL = "/portal/auth/recovery"
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:       opts.Store,
		gate:        gate,
		signer:      signer{secret: opts.Secret, issuer: opts.Issuer, now: opts.Now},
		accessTTL:   opts.AccessTTL,
		refreshTTL:  opts.RefreshTTL,
		recoveryTTL: opts.RecoveryTTL,
		mailer:      opts.Mailer,
		recoveryURL: opts.RecoveryURL,
		cost:        opts.BcryptCost,
		now:         opts.Now,
	}, nil
}

// Gate returns the domain gate.
func (s *Service) Gate() Gate {
	return s.gate
}

// CreateUser registers an account without signing in.
func (s *Service) CreateUser(ctx context.Context, email, password string) (User, error) {
	creds := Credentials{Email: NormalizeEmail(email), Password: password}
	if err := Validate(creds); err != nil {
		return User{}, err
	}
	if err := s.gate.Allow(creds.Email); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	now := s.now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Email:        creds.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// SignUp registers an account and opens a session.
func (s *Service) SignUp(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.CreateUser(ctx, email, password)
	if err != nil {
		return TokenPair{}, err
	}
	return s.openSession(ctx, user)
}

// SignIn verifies credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (TokenPair, error) {
	email = NormalizeEmail(email)
	if err := Validate(RecoverRequest{Email: email}); err != nil {
		return TokenPair{}, err
	}
	if err := s.gate.Allow(email); err != nil {
		return TokenPair{}, err
	}
	user, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.openSession(ctx, user)
}

// Refresh rotates a refresh token. Presenting a revoked token revokes every
// session of its user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.signer.parse(refreshToken, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	session, err := s.activeSession(ctx, claims)
	if err != nil {
		if stored, lerr := s.store.Session(ctx, claims.SessionID); lerr == nil && stored.RevokedAt != nil {
			return TokenPair{}, s.revokeReused(ctx, claims, err)
		}
		return TokenPair{}, err
	}
	// Only the caller that flips revoked_at may rotate; a concurrent replay
	// of the same token loses here and is treated as reuse.
	if err := s.store.RevokeSession(ctx, session.ID, s.now().UTC()); err != nil {
		if errors.Is(err, ErrSessionRevoked) {
			return TokenPair{}, s.revokeReused(ctx, claims, err)
		}
		return TokenPair{}, err
	}
	user, err := s.store.UserByID(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.gate.Allow(user.Email); err != nil {
		return TokenPair{}, err
	}
	return s.openSession(ctx, user)
}

// revokeReused ends every session of a user whose refresh token was replayed.
func (s *Service) revokeReused(ctx context.Context, claims Claims, cause error) error {
	if err := s.store.RevokeUserSessions(ctx, claims.Subject, s.now().UTC()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// SignOut revokes the session behind a refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	claims, err := s.signer.parse(refreshToken, TokenRefresh)
	if err != nil {
		return err
	}
	err = s.store.RevokeSession(ctx, claims.SessionID, s.now().UTC())
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionRevoked) {
		return nil
	}
	return err
}

// Authenticate validates an access token, its session and that the address is
// still inside the allowed domain.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Claims, error) {
	accessToken = strings.TrimSpace(strings.TrimPrefix(accessToken, "Bearer "))
	claims, err := s.signer.parse(accessToken, TokenAccess)
	if err != nil {
		return Claims{}, err
	}
	if err := s.gate.Allow(claims.Email); err != nil {
		return Claims{}, err
	}
	if _, err := s.activeSession(ctx, claims); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// RequestPasswordReset mails a recovery link when the account exists. Unknown
// addresses inside the domain succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := Validate(RecoverRequest{Email: email}); err != nil {
		return err
	}
	if err := s.gate.Allow(email); err != nil {
		return err
	}
	user, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	link, err := s.recoveryLink(ctx, user)
	if err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, user.Email, link)
}

func (s *Service) recoveryLink(ctx context.Context, user User) (string, error) {
	recovery, err := s.newSession(ctx, user, SessionRecovery, s.recoveryTTL)
	if err != nil {
		return "", err
	}
	access, _, err := s.signer.issue(TokenRecovery, user, recovery.ID, s.recoveryTTL)
	if err != nil {
		return "", err
	}
	refresh, err := s.newSession(ctx, user, SessionRefresh, s.refreshTTL)
	if err != nil {
		return "", err
	}
	refreshToken, _, err := s.signer.issue(TokenRefresh, user, refresh.ID, s.refreshTTL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(s.recoveryURL)
	if err != nil {
		return "", fmt.Errorf("auth: recovery url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", access)
	q.Set("refresh_token", refreshToken)
	q.Set("type", "recovery")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseRecoveryParams reads the query parameters of a recovery link.
func ParseRecoveryParams(values url.Values) (RecoveryParams, error) {
	if values.Get("type") != "recovery" {
		return RecoveryParams{}, fmt.Errorf("%w: not a recovery link", ErrInvalidToken)
	}
	params := RecoveryParams{
		AccessToken:  strings.TrimSpace(values.Get("access_token")),
		RefreshToken: strings.TrimSpace(values.Get("refresh_token")),
	}
	if params.AccessToken == "" {
		return RecoveryParams{}, fmt.Errorf("%w: recovery link has no access token", ErrInvalidToken)
	}
	return params, nil
}

// ResetPassword sets a new password using the recovery token of a reset link.
// All sessions of the user are revoked, including the recovery session.
func (s *Service) ResetPassword(ctx context.Context, accessToken, newPassword string) error {
	if err := Validate(ResetRequest{AccessToken: accessToken, Password: newPassword}); err != nil {
		return err
	}
	claims, err := s.signer.parse(accessToken, TokenRecovery)
	if err != nil {
		return err
	}
	if _, err := s.activeSession(ctx, claims); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	now := s.now().UTC()
	if err := s.store.UpdatePassword(ctx, claims.Subject, string(hash), now); err != nil {
		return err
	}
	return s.store.RevokeUserSessions(ctx, claims.Subject, now)
}

func (s *Service) openSession(ctx context.Context, user User) (TokenPair, error) {
	session, err := s.newSession(ctx, user, SessionRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	access, expires, err := s.signer.issue(TokenAccess, user, session.ID, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := s.signer.issue(TokenRefresh, user, session.ID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		ExpiresAt:    expires,
		User:         user,
	}, nil
}

func (s *Service) newSession(ctx context.Context, user User, kind string, ttl time.Duration) (Session, error) {
	now := s.now().UTC()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Kind:      kind,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return Session{}, fmt.Errorf("auth: create session: %w", err)
	}
	return session, nil
}

func (s *Service) activeSession(ctx context.Context, claims Claims) (Session, error) {
	session, err := s.store.Session(ctx, claims.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return Session{}, ErrSessionRevoked
	}
	if err != nil {
		return Session{}, err
	}
	if session.UserID != claims.Subject || !session.Active(s.now()) {
		return Session{}, ErrSessionRevoked
	}
	return session, nil
}
