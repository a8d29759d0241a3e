// Package auth defines how the server asks its caller to verify credentials.
package auth

import (
	"context"
	"errors"
	"net/http"
	"regexp"
)

var (
	// ErrInvalidCredentials is returned when the credentials do not identify a user
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoCredentials is returned when the request carries no credentials at all
	ErrNoCredentials = errors.New("no credentials")
)

// Credentials represents authentication credentials. PrincipalID is the principal
// named in the request path, empty when the path does not name one.
type Credentials struct {
	Username    string
	Password    string
	PrincipalID string
}

// Principal represents an authenticated user
type Principal struct {
	PrincipalID   string
	PrincipalName string
}

// Authenticator verifies credentials. Implementations return ErrInvalidCredentials,
// or a wrapped error, when access must be refused.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, creds Credentials) (*Principal, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, creds Credentials) (*Principal, error) {
	return f(ctx, creds)
}

// FromRequest extracts credentials. When pattern is set and matches principalID,
// its first two capture groups are the username and password, which lets clients
// without Basic auth support embed them in the URL. Such a segment names no
// principal, so PrincipalID is left empty. Otherwise HTTP Basic auth is used.
func FromRequest(r *http.Request, principalID string, pattern *regexp.Regexp) (Credentials, error) {
	creds := Credentials{PrincipalID: principalID}
	if pattern != nil && principalID != "" {
		if m := pattern.FindStringSubmatch(principalID); len(m) >= 3 {
			return Credentials{Username: m[1], Password: m[2]}, nil
		}
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		return creds, ErrNoCredentials
	}
	creds.Username, creds.Password = username, password
	return creds, nil
}

type contextKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext retrieves the authenticated principal from the context
func FromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(contextKey{}).(*Principal); ok {
		return p
	}
	return nil
}
