package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/emerjence/billctl/pkg/api"
)

type fakeSession struct {
	identity string
	auth     bool
	epoch    uint64
}

func (f *fakeSession) Identity() string    { return f.identity }
func (f *fakeSession) Authenticated() bool { return f.auth }
func (f *fakeSession) Epoch() uint64       { return f.epoch }

type fakeRemote struct {
	files   []api.FileInfo
	listErr error

	uploads  []string
	deleted  []string
	uploaded string

	// beforeListReturn runs while ListFiles is "in flight".
	beforeListReturn func()
}

func (f *fakeRemote) ListFiles(ctx context.Context) ([]api.FileInfo, error) {
	if f.beforeListReturn != nil {
		f.beforeListReturn()
	}
	return f.files, f.listErr
}

func (f *fakeRemote) Upload(ctx context.Context, username, filename string, r io.Reader) (string, error) {
	data, _ := io.ReadAll(r)
	f.uploads = append(f.uploads, filename)
	f.uploaded = string(data)
	return "uploaded " + filename, nil
}

func (f *fakeRemote) DeleteFile(ctx context.Context, filename string) error {
	f.deleted = append(f.deleted, filename)
	return nil
}

func names(ns ...string) []api.FileInfo {
	out := make([]api.FileInfo, len(ns))
	for i, n := range ns {
		out[i] = api.FileInfo{Filename: n}
	}
	return out
}

func TestRefreshRequiresSession(t *testing.T) {
	c := NewClient(&fakeRemote{}, &fakeSession{})
	if err := c.Refresh(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("Refresh = %v, want ErrNotSignedIn", err)
	}
}

func TestRefreshAutoSelectsFirst(t *testing.T) {
	remote := &fakeRemote{files: names("a.xlsx", "b.xlsx")}
	c := NewClient(remote, &fakeSession{identity: "ana", auth: true})

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := c.Selected(); got != "a.xlsx" {
		t.Errorf("Selected = %q, want auto-selected first entry", got)
	}
	if len(c.Files()) != 2 {
		t.Errorf("Files = %d entries, want 2", len(c.Files()))
	}
}

func TestRefreshEmptyCatalogKeepsNoSelection(t *testing.T) {
	c := NewClient(&fakeRemote{}, &fakeSession{identity: "ana", auth: true})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := c.Selected(); got != "" {
		t.Errorf("Selected = %q, want empty", got)
	}
}

func TestLazyModeKeepsMissingSelection(t *testing.T) {
	remote := &fakeRemote{files: names("a.xlsx", "b.xlsx")}
	c := NewClient(remote, &fakeSession{identity: "ana", auth: true})
	c.Select("gone.xlsx")

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	// Staleness is resolved at submit time, not here.
	if got := c.Selected(); got != "gone.xlsx" {
		t.Errorf("Selected = %q, want selection preserved", got)
	}
}

func TestStrictModeResetsMissingSelection(t *testing.T) {
	remote := &fakeRemote{files: names("a.xlsx", "b.xlsx")}
	c := NewClient(remote, &fakeSession{identity: "ana", auth: true})
	c.RequireSelection = true
	c.Select("gone.xlsx")

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := c.Selected(); got != "a.xlsx" {
		t.Errorf("Selected = %q, want reset to first entry", got)
	}
}

func TestStrictModeEmptyCatalogClearsSelection(t *testing.T) {
	remote := &fakeRemote{files: names("a.xlsx")}
	c := NewClient(remote, &fakeSession{identity: "ana", auth: true})
	c.RequireSelection = true

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	remote.files = nil
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := c.Selected(); got != "" {
		t.Errorf("Selected = %q, want cleared", got)
	}
}

func TestStrictModeKeepsValidSelection(t *testing.T) {
	remote := &fakeRemote{files: names("a.xlsx", "b.xlsx")}
	c := NewClient(remote, &fakeSession{identity: "ana", auth: true})
	c.RequireSelection = true
	c.Select("b.xlsx")

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := c.Selected(); got != "b.xlsx" {
		t.Errorf("Selected = %q, want valid selection kept", got)
	}
}

func TestStaleListResponseDiscarded(t *testing.T) {
	sess := &fakeSession{identity: "ana", auth: true}
	remote := &fakeRemote{files: names("a.xlsx")}
	c := NewClient(remote, sess)

	remote.beforeListReturn = func() { sess.epoch++ }

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(c.Files()) != 0 || c.Selected() != "" {
		t.Error("stale list applied after logout")
	}
}

func TestUploadRefreshesSnapshot(t *testing.T) {
	remote := &fakeRemote{}
	c := NewClient(remote, &fakeSession{identity: "ana", auth: true})

	msg, err := c.Upload(context.Background(), "new.xlsx", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if msg != "uploaded new.xlsx" {
		t.Errorf("message = %q", msg)
	}
	if remote.uploaded != "data" {
		t.Errorf("uploaded body = %q", remote.uploaded)
	}
}

func TestDeleteRefreshesSnapshot(t *testing.T) {
	remote := &fakeRemote{files: names("a.xlsx", "b.xlsx")}
	c := NewClient(remote, &fakeSession{identity: "ana", auth: true})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	remote.files = names("b.xlsx")
	if err := c.Delete(context.Background(), "a.xlsx"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "a.xlsx" {
		t.Errorf("deleted = %v", remote.deleted)
	}
	if got := c.Files(); len(got) != 1 || got[0].Filename != "b.xlsx" {
		t.Errorf("Files = %v, want refreshed snapshot", got)
	}
}

func TestResetDropsEverything(t *testing.T) {
	remote := &fakeRemote{files: names("a.xlsx")}
	c := NewClient(remote, &fakeSession{identity: "ana", auth: true})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	c.Reset()
	if len(c.Files()) != 0 || c.Selected() != "" {
		t.Error("Reset left state behind")
	}
}
