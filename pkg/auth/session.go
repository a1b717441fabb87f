// Package auth stores the Instagram web session used by the feed client.
//
// Sessions are saved to the system keyring when one is available and to an
// AES-GCM encrypted file otherwise. A session id set through configuration or
// the environment always takes precedence over a stored one.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"igcrawler/pkg/config"
	"igcrawler/pkg/logger"
)

// DefaultProfile names the session used when none is given
const DefaultProfile = "default"

var (
	ErrNotFound = errors.New("session not found")
	ErrInvalid  = errors.New("invalid session")
)

// Session is a saved Instagram web session
type Session struct {
	Profile   string    `json:"profile"`
	SessionID string    `json:"session_id"`
	CSRFToken string    `json:"csrf_token"`
	UserAgent string    `json:"user_agent,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// Validate checks the fields the feed client needs
func (s *Session) Validate() error {
	switch {
	case s == nil:
		return ErrInvalid
	case s.Profile == "":
		return fmt.Errorf("%w: profile is required", ErrInvalid)
	case s.SessionID == "":
		return fmt.Errorf("%w: session id is required", ErrInvalid)
	case s.CSRFToken == "":
		return fmt.Errorf("%w: csrf token is required", ErrInvalid)
	}
	return nil
}

// Masked returns a copy safe for display
func (s *Session) Masked() Session {
	m := *s
	m.SessionID = Mask(s.SessionID)
	m.CSRFToken = Mask(s.CSRFToken)
	return m
}

// Store persists sessions by profile name
type Store interface {
	Name() string
	Save(s *Session) error
	Load(profile string) (*Session, error)
	Delete(profile string) error
}

// Chain tries stores in order
type Chain struct {
	stores []Store
	logger logger.Logger
}

// NewChain creates a Chain over stores
func NewChain(log logger.Logger, stores ...Store) *Chain {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Chain{stores: stores, logger: log}
}

// DefaultChain uses the keyring if it works on this machine, then the
// encrypted file under the user's config directory.
func DefaultChain(log logger.Logger) (*Chain, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	var stores []Store
	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	} else {
		log.WithError(err).Debug("Keyring unavailable, using encrypted file")
	}

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	fs, err := NewEncryptedFileStore(filepath.Join(dir, "sessions.enc"))
	if err != nil {
		return nil, err
	}
	stores = append(stores, fs)

	return NewChain(log, stores...), nil
}

// Save writes s to the first store that accepts it and returns that store's name
func (c *Chain) Save(s *Session) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	s.SavedAt = time.Now()

	var errs []error
	for _, st := range c.stores {
		if err := st.Save(s); err != nil {
			c.logger.WithError(err).WithField("store", st.Name()).Debug("Session store rejected save")
			errs = append(errs, fmt.Errorf("%s: %w", st.Name(), err))
			continue
		}
		return st.Name(), nil
	}
	if len(errs) == 0 {
		return "", errors.New("no session stores configured")
	}
	return "", fmt.Errorf("failed to save session: %w", errors.Join(errs...))
}

// Load returns the session from the first store holding it, with that store's name
func (c *Chain) Load(profile string) (*Session, string, error) {
	for _, st := range c.stores {
		s, err := st.Load(profile)
		if err == nil {
			return s, st.Name(), nil
		}
		if !errors.Is(err, ErrNotFound) {
			c.logger.WithError(err).WithField("store", st.Name()).Warn("Failed to read session")
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNotFound, profile)
}

// Delete removes the profile from every store. It fails only when no store held it.
func (c *Chain) Delete(profile string) error {
	deleted := false
	for _, st := range c.stores {
		err := st.Delete(profile)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrNotFound):
		default:
			c.logger.WithError(err).WithField("store", st.Name()).Warn("Failed to delete session")
		}
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrNotFound, profile)
	}
	return nil
}

// Apply fills the session fields of cfg from the stored profile unless a
// session id is already configured. It reports whether a stored session was used.
func Apply(cfg *config.InstagramConfig, c *Chain, profile string) (bool, error) {
	if cfg.SessionID != "" {
		return false, nil
	}

	s, source, err := c.Load(profile)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	cfg.SessionID = s.SessionID
	cfg.CSRFToken = s.CSRFToken
	if s.UserAgent != "" {
		cfg.UserAgent = s.UserAgent
	}
	c.logger.WithFields(map[string]interface{}{
		"profile": profile,
		"store":   source,
	}).Debug("Using stored session")
	return true, nil
}

// ConfigDir returns the per-user directory for crawler state, creating it
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	dir := filepath.Join(base, "igcrawler")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Mask hides all but the first and last four characters
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
