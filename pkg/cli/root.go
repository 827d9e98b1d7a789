// Package cli defines the billctl command tree. The bare command runs the
// interactive TUI; subcommands cover the same operations one-shot.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/emerjence/billctl/pkg/config"
	"github.com/emerjence/billctl/pkg/tui"
)

// NewRootCmd builds the command tree. Constructed fresh per invocation so
// tests can drive it with SetArgs/SetOut.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "billctl",
		Short: "Terminal client for the billing analysis service",
		Long: `billctl talks to a remote billing-analysis backend: upload spreadsheets,
manage the API key the engine uses on your behalf, and ask free-text
questions about the data.

Identities are plain usernames used to partition server-side state. The
same name always reaches the same workspace; there is no password.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
	}

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newAskCmd(),
		newFilesCmd(),
		newKeyCmd(),
		newHistoryCmd(),
	)
	return root
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func runTUI() error {
	app, err := NewApp()
	if err != nil {
		return err
	}
	defer app.Close()

	// The TUI owns the terminal; logs go to a file.
	closeLog, err := logToFile(app.Config)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	m := tui.New(ctx, app.Session, app.Credentials, app.Catalog, app.Queries)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func logToFile(cfg config.Config) (func(), error) {
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel})
	slog.SetDefault(slog.New(handler))
	return func() { f.Close() }, nil
}

func logToStderr(cfg config.Config) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	slog.SetDefault(slog.New(handler))
}
