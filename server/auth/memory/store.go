// Package memory is an in-memory user table for auth.Authenticator, with bcrypt
// password hashes.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cyp0633/caldora/server/auth"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// User represents a user in the memory store
type User struct {
	Username     string
	PasswordHash []byte
	PrincipalID  string
	DisplayName  string
}

// Store implements an in-memory authentication store
type Store struct {
	mu     sync.RWMutex
	users  map[string]User // map[username]User
	logger zerolog.Logger
}

// New creates a new in-memory authentication store
func New(opts ...Option) *Store {
	s := &Store{
		users:  make(map[string]User),
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "auth").Logger()
	}
}

// AddUser hashes password and adds the user. An empty principalID defaults to the
// username.
func (s *Store) AddUser(username, password, principalID, displayName string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", username, err)
	}
	return s.AddUserHash(username, hash, principalID, displayName)
}

// AddUserHash adds a user whose password is already bcrypt-hashed.
func (s *Store) AddUserHash(username string, hash []byte, principalID, displayName string) error {
	if username == "" {
		return errors.New("empty username")
	}
	if _, err := bcrypt.Cost(hash); err != nil {
		return fmt.Errorf("invalid password hash for %s: %w", username, err)
	}
	if principalID == "" {
		principalID = username
	}
	if displayName == "" {
		displayName = username
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		s.logger.Warn().Str("username", username).Msg("failed to add user: already exists")
		return fmt.Errorf("user already exists: %s", username)
	}
	s.users[username] = User{
		Username:     username,
		PasswordHash: hash,
		PrincipalID:  principalID,
		DisplayName:  displayName,
	}
	s.logger.Info().Str("username", username).Msg("user added")
	return nil
}

// Authenticate implements auth.Authenticator. A user may only act as its own
// principal.
func (s *Store) Authenticate(_ context.Context, creds auth.Credentials) (*auth.Principal, error) {
	s.mu.RLock()
	user, exists := s.users[creds.Username]
	s.mu.RUnlock()

	if !exists {
		s.logger.Info().Str("username", creds.Username).Msg("authentication failed: user not found")
		return nil, auth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		s.logger.Info().Str("username", creds.Username).Msg("authentication failed: invalid password")
		return nil, auth.ErrInvalidCredentials
	}
	if creds.PrincipalID != "" && creds.PrincipalID != user.PrincipalID {
		s.logger.Warn().
			Str("username", creds.Username).
			Str("requested_principal", creds.PrincipalID).
			Msg("authentication failed: foreign principal")
		return nil, auth.ErrInvalidCredentials
	}

	s.logger.Debug().Str("username", creds.Username).Msg("authentication successful")
	return &auth.Principal{PrincipalID: user.PrincipalID, PrincipalName: user.DisplayName}, nil
}

// ParseUsers loads a comma separated list of "username:bcrypt-hash[:display name]"
// entries, the format of the CALDAV_USERS setting.
func (s *Store) ParseUsers(spec string) error {
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return fmt.Errorf("malformed user entry %q", entry)
		}
		display := ""
		if len(parts) == 3 {
			display = parts[2]
		}
		if err := s.AddUserHash(parts[0], []byte(parts[1]), "", display); err != nil {
			return err
		}
	}
	return nil
}
