package cli

import (
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <name>",
		Short: "Sign in and remember the identity for future runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()
			logToStderr(app.Config)

			if err := app.Session.Login(args[0]); err != nil {
				return err
			}

			status, err := app.Session.CheckStatus(cmd.Context())
			if err != nil {
				cmd.Printf("Signed in as %s (backend unreachable: status unknown)\n", app.Session.Identity())
				return nil
			}
			switch {
			case status.UsingCustomKey:
				cmd.Printf("Signed in as %s, using your API key.\n", app.Session.Identity())
			case status.Exists:
				cmd.Printf("Signed in as %s, using the default API key.\n", app.Session.Identity())
			default:
				cmd.Printf("Signed in as %s. Set an API key with `billctl key set`.\n", app.Session.Identity())
			}
			return nil
		},
	}
}
