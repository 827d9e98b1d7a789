// Package session owns who the user is and whether they are signed in.
//
// The identity is a plain username with no secret behind it. The backend
// uses it purely to partition state ("same string = same bucket"), so a
// session here is a namespace, not an authenticated principal.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emerjence/billctl/pkg/api"
)

// ErrEmptyIdentity is returned by Login for blank or whitespace-only input.
var ErrEmptyIdentity = errors.New("identity must not be empty")

// View is the read-only window other components get on the session. They
// never receive the mutable fields directly.
type View interface {
	// Identity returns the current username, or "" when signed out.
	Identity() string

	// Authenticated reports whether the session is live.
	Authenticated() bool

	// Epoch increments on every logout. A component that captured the epoch
	// before a remote call must discard the response if the epoch moved.
	Epoch() uint64
}

// Remote is the slice of the backend the controller needs.
type Remote interface {
	KeyStatus(ctx context.Context, username string) (api.KeyStatus, error)
	CleanupSession(ctx context.Context, username string) error
}

// ProfileStore remembers the identity between runs.
type ProfileStore interface {
	Save(identity string) error
	Clear() error
}

// Controller is the single owner of session state. All mutation goes
// through its methods; everyone else sees a View.
type Controller struct {
	remote  Remote
	profile ProfileStore // may be nil

	mu            sync.Mutex
	identity      string
	authenticated bool
	epoch         uint64

	resets   []func()
	onStatus func(api.KeyStatus)
}

var _ View = (*Controller)(nil)

// NewController creates a signed-out controller. profile may be nil when
// nothing should persist between runs.
func NewController(remote Remote, profile ProfileStore) *Controller {
	return &Controller{remote: remote, profile: profile}
}

func (c *Controller) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Controller) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *Controller) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// OnReset registers a callback run after logout has cleared session state.
// Components register their own clearing here instead of handing the
// controller references to their internals.
func (c *Controller) OnReset(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets = append(c.resets, f)
}

// OnStatus registers the callback that receives key-status snapshots fetched
// by CheckStatus.
func (c *Controller) OnStatus(f func(api.KeyStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = f
}

// Login establishes a session for identity. The identity is trimmed;
// empty or whitespace-only input fails without touching the network.
// Persisting the identity to the profile is best-effort.
func (c *Controller) Login(identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return ErrEmptyIdentity
	}

	c.mu.Lock()
	c.identity = identity
	c.authenticated = true
	c.mu.Unlock()

	if c.profile != nil {
		if err := c.profile.Save(identity); err != nil {
			slog.Warn("failed to persist identity", "error", err)
		}
	}
	slog.Info("session started", "identity", identity)
	return nil
}

// Resume restores a remembered identity without marking it authenticated.
// CheckStatus confirms it against the backend.
func (c *Controller) Resume(identity string) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return
	}
	c.mu.Lock()
	c.identity = identity
	c.authenticated = false
	c.mu.Unlock()
}

// CheckStatus fetches the backend's key status for the current identity.
// If a key exists the session is implicitly authenticated (a returning user
// whose identity was remembered). The snapshot is handed to the OnStatus
// callback. Responses that arrive after a logout are discarded.
func (c *Controller) CheckStatus(ctx context.Context) (api.KeyStatus, error) {
	c.mu.Lock()
	identity := c.identity
	epoch := c.epoch
	c.mu.Unlock()
	if identity == "" {
		return api.KeyStatus{}, nil
	}

	status, err := c.remote.KeyStatus(ctx, identity)
	if err != nil {
		return api.KeyStatus{}, err
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		slog.Debug("discarding stale status response", "identity", identity)
		return api.KeyStatus{}, nil
	}
	if status.Exists {
		c.authenticated = true
	}
	cb := c.onStatus
	c.mu.Unlock()

	if cb != nil {
		cb(status)
	}
	return status, nil
}

// Logout ends the session. The remote cleanup is best-effort: failures are
// logged, never surfaced, and never block the local teardown. Local state is
// always cleared, the epoch bumped, and every registered reset callback run.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	identity := c.identity
	c.mu.Unlock()

	if identity != "" {
		if err := c.remote.CleanupSession(ctx, identity); err != nil {
			slog.Warn("remote session cleanup failed", "identity", identity, "error", err)
		}
	}

	c.mu.Lock()
	c.identity = ""
	c.authenticated = false
	c.epoch++
	resets := make([]func(), len(c.resets))
	copy(resets, c.resets)
	c.mu.Unlock()

	if c.profile != nil {
		if err := c.profile.Clear(); err != nil {
			slog.Warn("failed to clear profile", "error", err)
		}
	}
	for _, f := range resets {
		f()
	}
	slog.Info("session ended", "identity", identity)
}

// NotifyShutdown makes one bounded attempt to tell the backend the session
// is ending: a single cleanup request, no retry, no acknowledgement needed.
// The timeout caps how long shutdown can be delayed; a failure is logged
// and otherwise ignored.
func (c *Controller) NotifyShutdown() {
	c.mu.Lock()
	identity := c.identity
	c.mu.Unlock()
	if identity == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.remote.CleanupSession(ctx, identity); err != nil {
		slog.Debug("teardown notice not delivered", "identity", identity, "error", err)
	}
}
