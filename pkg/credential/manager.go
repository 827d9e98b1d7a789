// Package credential tracks whether the current user has a custom API key
// registered with the backend, and mediates setting and removing it.
//
// Only presence and origin are held locally. The raw key value passes
// through SetKey into one request and is never retained.
package credential

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/emerjence/billctl/pkg/api"
	"github.com/emerjence/billctl/pkg/session"
)

const keyPrefix = "sk-"

var (
	// ErrNotSignedIn is returned when no authenticated session exists.
	ErrNotSignedIn = errors.New("sign in before managing the API key")

	// ErrEmptyKey is returned for blank key input.
	ErrEmptyKey = errors.New("API key must not be empty")

	// ErrInvalidKeyFormat is returned when the key does not start with "sk-".
	ErrInvalidKeyFormat = errors.New(`invalid API key format: keys start with "sk-"`)
)

// Origin says where the effective key comes from.
type Origin string

const (
	// OriginDefault means the backend's environment key is in effect.
	OriginDefault Origin = "default"
	// OriginCustom means the user registered their own key.
	OriginCustom Origin = "custom"
)

// Status is the locally cached view of the credential. The backend is
// authoritative; this is refreshed, never inferred.
type Status struct {
	Present bool
	Origin  Origin
}

// Remote is the slice of the backend the manager needs.
type Remote interface {
	SetKey(ctx context.Context, username, key string) (api.SetKeyResult, error)
	RemoveKey(ctx context.Context, username string) error
	KeyStatus(ctx context.Context, username string) (api.KeyStatus, error)
}

// Manager owns credential state for the current session identity.
type Manager struct {
	remote  Remote
	session session.View

	mu     sync.Mutex
	status Status
}

// NewManager creates a manager bound to the given session view.
func NewManager(remote Remote, sess session.View) *Manager {
	return &Manager{remote: remote, session: sess, status: Status{Origin: OriginDefault}}
}

// Status returns the cached credential status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Reset clears local credential state. Registered with the session
// controller so logout reverts to the default origin.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.status = Status{Origin: OriginDefault}
	m.mu.Unlock()
}

// SetKey validates and registers an API key for the current identity.
// Blank keys and keys without the "sk-" prefix fail locally, without a
// network call; anything else is forwarded unchanged. On success the status
// is re-fetched and signedUp reports whether this was a first-time
// association. On remote rejection local state is untouched and the remote
// detail is returned to the caller.
func (m *Manager) SetKey(ctx context.Context, value string) (signedUp bool, err error) {
	if !m.session.Authenticated() {
		return false, ErrNotSignedIn
	}
	if strings.TrimSpace(value) == "" {
		return false, ErrEmptyKey
	}
	if !strings.HasPrefix(value, keyPrefix) {
		return false, ErrInvalidKeyFormat
	}

	identity := m.session.Identity()
	epoch := m.session.Epoch()

	res, err := m.remote.SetKey(ctx, identity, value)
	if err != nil {
		return false, err
	}
	if m.session.Epoch() != epoch {
		slog.Debug("discarding stale set-key response", "identity", identity)
		return false, nil
	}

	// The set succeeded; record that before the refresh so a failed refresh
	// cannot roll back the primary action.
	m.mu.Lock()
	m.status = Status{Present: true, Origin: OriginCustom}
	m.mu.Unlock()

	if err := m.Refresh(ctx); err != nil {
		slog.Warn("status refresh after set-key failed", "identity", identity, "error", err)
	}
	slog.Info("API key registered", "identity", identity, "new_user", res.IsNewUser)
	return res.IsNewUser, nil
}

// RemoveKey deletes the stored key for the current identity. The status is
// re-fetched afterwards whether or not the deletion succeeded, so local
// state tracks remote truth rather than assuming the call worked.
func (m *Manager) RemoveKey(ctx context.Context) error {
	if !m.session.Authenticated() {
		return ErrNotSignedIn
	}
	identity := m.session.Identity()

	removeErr := m.remote.RemoveKey(ctx, identity)
	if err := m.Refresh(ctx); err != nil {
		slog.Warn("status refresh after remove-key failed", "identity", identity, "error", err)
	}
	if removeErr != nil {
		return removeErr
	}
	slog.Info("API key removed", "identity", identity)
	return nil
}

// Refresh re-fetches the credential status from the backend. Responses that
// arrive after a logout are discarded.
func (m *Manager) Refresh(ctx context.Context) error {
	identity := m.session.Identity()
	if identity == "" {
		return nil
	}
	epoch := m.session.Epoch()

	status, err := m.remote.KeyStatus(ctx, identity)
	if err != nil {
		return err
	}
	if m.session.Epoch() != epoch {
		slog.Debug("discarding stale key-status response", "identity", identity)
		return nil
	}
	m.ApplyStatus(status)
	return nil
}

// ApplyStatus records a status snapshot fetched elsewhere (for example by
// the session controller's reconcile on startup).
func (m *Manager) ApplyStatus(status api.KeyStatus) {
	origin := OriginDefault
	if status.UsingCustomKey {
		origin = OriginCustom
	}
	m.mu.Lock()
	m.status = Status{Present: status.HasAPIKey, Origin: origin}
	m.mu.Unlock()
}
