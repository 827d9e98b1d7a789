package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/emerjence/billctl/pkg/api"
	"github.com/emerjence/billctl/pkg/catalog"
	"github.com/emerjence/billctl/pkg/config"
	"github.com/emerjence/billctl/pkg/credential"
	"github.com/emerjence/billctl/pkg/history"
	"github.com/emerjence/billctl/pkg/profile"
	"github.com/emerjence/billctl/pkg/query"
	"github.com/emerjence/billctl/pkg/session"
)

// App wires the client components together. The session controller owns all
// session state; the other components hold its read-only view and register
// reset callbacks for logout.
type App struct {
	Config      config.Config
	API         *api.Client
	Session     *session.Controller
	Credentials *credential.Manager
	Catalog     *catalog.Client
	Queries     *query.Orchestrator
	History     *history.Store
	Profile     *profile.Store
}

// NewApp loads configuration and assembles everything. A remembered identity
// from the profile is resumed unauthenticated; CheckStatus confirms it.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	client := api.New(cfg.APIBaseURL, cfg.RequestTimeout)
	prof := profile.NewStore(cfg.ProfilePath())
	sess := session.NewController(client, prof)
	creds := credential.NewManager(client, sess)

	cat := catalog.NewClient(client, sess)
	cat.RequireSelection = cfg.RequireFileSelection

	var recorder query.Recorder
	hist, err := history.New(cfg.HistoryPath())
	if err != nil {
		// History is a convenience; the client works without it.
		slog.Warn("history store unavailable", "error", err)
		hist = nil
	} else {
		recorder = hist
	}

	queries := query.New(client, sess, cat, recorder)
	queries.RequireFileSelection = cfg.RequireFileSelection

	sess.OnReset(creds.Reset)
	sess.OnReset(cat.Reset)
	sess.OnReset(queries.Reset)
	sess.OnStatus(creds.ApplyStatus)

	if id, err := prof.Load(); err == nil && id != "" {
		sess.Resume(id)
	}

	return &App{
		Config:      cfg,
		API:         client,
		Session:     sess,
		Credentials: creds,
		Catalog:     cat,
		Queries:     queries,
		History:     hist,
		Profile:     prof,
	}, nil
}

// Close releases local resources.
func (a *App) Close() {
	if a.History != nil {
		a.History.Close()
	}
}

// RequireIdentity signs in with the --user flag value, or the remembered
// identity when the flag is empty. Providing a name IS signing in: the
// backend keys state on the bare string, nothing stronger.
func (a *App) RequireIdentity(flagUser string) error {
	identity := flagUser
	if identity == "" {
		identity = a.Session.Identity()
	}
	if identity == "" {
		return fmt.Errorf("no identity: run `billctl login <name>` or pass --user")
	}
	return a.Session.Login(identity)
}
