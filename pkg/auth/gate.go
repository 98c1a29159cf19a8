package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Gate restricts accounts to a single email domain.
type Gate struct {
	domain string
}

// NewGate builds a Gate for domain. A leading "@" is ignored.
func NewGate(domain string) (Gate, error) {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
	if domain == "" || strings.ContainsAny(domain, "@ ") || !strings.Contains(domain, ".") {
		return Gate{}, errors.New("auth: allowed domain must look like example.com")
	}
	return Gate{domain: domain}, nil
}

// Domain returns the allowed domain.
func (g Gate) Domain() string {
	return g.domain
}

// Allow accepts addresses whose domain equals the gate domain. Subdomains are rejected.
func (g Gate) Allow(email string) error {
	email = NormalizeEmail(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: %q is not an email address", ErrInvalidInput, email)
	}
	if email[at+1:] != g.domain {
		return fmt.Errorf("%w: only @%s addresses may sign in", ErrDomainNotAllowed, g.domain)
	}
	return nil
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
