// Package catalog maintains the client-side snapshot of uploaded files and
// which one the user is asking questions about.
package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/emerjence/billctl/pkg/api"
	"github.com/emerjence/billctl/pkg/session"
)

// ErrNotSignedIn is returned when no authenticated session exists.
var ErrNotSignedIn = errors.New("sign in before browsing files")

// Remote is the slice of the backend the catalog needs.
type Remote interface {
	ListFiles(ctx context.Context) ([]api.FileInfo, error)
	Upload(ctx context.Context, username, filename string, r io.Reader) (string, error)
	DeleteFile(ctx context.Context, filename string) error
}

// Client holds the file snapshot and the current selection. An empty
// selection is the "all files" sentinel unless RequireSelection is set, in
// which case Refresh keeps the selection valid against every new snapshot.
type Client struct {
	remote  Remote
	session session.View

	// RequireSelection switches from lazy staleness resolution (stale
	// selections are caught at submit time) to strict: Refresh resets a
	// selection that disappeared from the catalog.
	RequireSelection bool

	mu       sync.Mutex
	files    []api.FileInfo
	selected string
}

// NewClient creates a catalog bound to the given session view.
func NewClient(remote Remote, sess session.View) *Client {
	return &Client{remote: remote, session: sess}
}

// Files returns the current snapshot.
func (c *Client) Files() []api.FileInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.FileInfo, len(c.files))
	copy(out, c.files)
	return out
}

// Selected returns the selected filename, or "" for no selection.
func (c *Client) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Select records a selection. No validation against the snapshot happens
// here; a transient mismatch is resolved at refresh (strict mode) or at
// submit time (lazy mode).
func (c *Client) Select(filename string) {
	c.mu.Lock()
	c.selected = filename
	c.mu.Unlock()
}

// Reset drops the snapshot and selection. Registered with the session
// controller's logout.
func (c *Client) Reset() {
	c.mu.Lock()
	c.files = nil
	c.selected = ""
	c.mu.Unlock()
}

// Refresh fetches the file list and replaces the snapshot wholesale. With no
// prior selection and a non-empty catalog, the first entry is auto-selected.
// An existing selection is kept as-is in lazy mode; in strict mode a
// selection missing from the new snapshot resets to the first entry, or to
// empty when the catalog is empty. Responses arriving after logout are
// discarded.
func (c *Client) Refresh(ctx context.Context) error {
	if !c.session.Authenticated() {
		return ErrNotSignedIn
	}
	epoch := c.session.Epoch()

	files, err := c.remote.ListFiles(ctx)
	if err != nil {
		return err
	}
	if c.session.Epoch() != epoch {
		slog.Debug("discarding stale file list")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = files

	switch {
	case c.selected == "":
		if len(files) > 0 {
			c.selected = files[0].Filename
		}
	case c.RequireSelection && !contains(files, c.selected):
		if len(files) > 0 {
			c.selected = files[0].Filename
		} else {
			c.selected = ""
		}
	}
	slog.Debug("catalog refreshed", "files", len(files), "selected", c.selected)
	return nil
}

// Upload sends a file to the backend and refreshes the snapshot.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if !c.session.Authenticated() {
		return "", ErrNotSignedIn
	}
	msg, err := c.remote.Upload(ctx, c.session.Identity(), filename, r)
	if err != nil {
		return "", err
	}
	if err := c.Refresh(ctx); err != nil {
		slog.Warn("catalog refresh after upload failed", "error", err)
	}
	return msg, nil
}

// Delete removes a file from the backend and refreshes the snapshot.
func (c *Client) Delete(ctx context.Context, filename string) error {
	if !c.session.Authenticated() {
		return ErrNotSignedIn
	}
	if err := c.remote.DeleteFile(ctx, filename); err != nil {
		return err
	}
	if err := c.Refresh(ctx); err != nil {
		slog.Warn("catalog refresh after delete failed", "error", err)
	}
	return nil
}

func contains(files []api.FileInfo, name string) bool {
	for _, f := range files {
		if f.Filename == name {
			return true
		}
	}
	return false
}
