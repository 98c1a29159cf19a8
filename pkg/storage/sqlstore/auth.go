package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-portal-metrics/pkg/auth"
)

const userColumns = "id, email, password_hash, created_at, updated_at"

func (s *Store) CreateUser(ctx context.Context, user auth.User) error {
	const q = `INSERT INTO users (id, email, password_hash, created_at, updated_at)
VALUES (:id, :email, :password_hash, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, q, user); err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("sqlstore: create user: %w", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	return s.user(ctx, "email", email)
}

func (s *Store) UserByID(ctx context.Context, id string) (auth.User, error) {
	return s.user(ctx, "id", id)
}

func (s *Store) user(ctx context.Context, column, value string) (auth.User, error) {
	var user auth.User
	q := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + column + " = ?")
	err := s.db.GetContext(ctx, &user, q, value)
	if notFound(err) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("sqlstore: get user: %w", err)
	}
	return user, nil
}

// Users lists accounts ordered by email.
func (s *Store) Users(ctx context.Context) ([]auth.User, error) {
	var users []auth.User
	if err := s.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY email"); err != nil {
		return nil, fmt.Errorf("sqlstore: list users: %w", err)
	}
	return users, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID, hash string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?"), hash, at, userID)
	if err != nil {
		return fmt.Errorf("sqlstore: update password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, session auth.Session) error {
	const q = `INSERT INTO sessions (id, user_id, kind, expires_at, revoked_at, created_at)
VALUES (:id, :user_id, :kind, :expires_at, :revoked_at, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, q, session); err != nil {
		return fmt.Errorf("sqlstore: create session: %w", err)
	}
	return nil
}

func (s *Store) Session(ctx context.Context, id string) (auth.Session, error) {
	var session auth.Session
	err := s.db.GetContext(ctx, &session,
		s.db.Rebind("SELECT id, user_id, kind, expires_at, revoked_at, created_at FROM sessions WHERE id = ?"), id)
	if notFound(err) {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	if err != nil {
		return auth.Session{}, fmt.Errorf("sqlstore: get session: %w", err)
	}
	return session, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL"), at, id)
	if err != nil {
		return fmt.Errorf("sqlstore: revoke session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := s.Session(ctx, id); err != nil {
			return err
		}
		return auth.ErrSessionRevoked
	}
	return nil
}

func (s *Store) RevokeUserSessions(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL"), at, userID)
	if err != nil {
		return fmt.Errorf("sqlstore: revoke user sessions: %w", err)
	}
	return nil
}

var _ auth.Store = (*Store)(nil)
