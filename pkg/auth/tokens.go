package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds carried in the "typ" claim.
const (
	TokenAccess   = "access"
	TokenRefresh  = "refresh"
	TokenRecovery = "recovery"
)

// Claims are the JWT claims issued by the Service.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Kind      string `json:"typ"`
	SessionID string `json:"sid"`
}

// UserID returns the subject.
func (c Claims) UserID() string {
	return c.Subject
}

type signer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func (s signer) issue(kind string, user User, sessionID string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email:     user.Email,
		Kind:      kind,
		SessionID: sessionID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign %s token: %w", kind, err)
	}
	return signed, expires, nil
}

func (s signer) parse(raw string, kinds ...string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	for _, k := range kinds {
		if claims.Kind == k {
			return claims, nil
		}
	}
	return Claims{}, fmt.Errorf("%w: unexpected %s token", ErrInvalidToken, claims.Kind)
}
