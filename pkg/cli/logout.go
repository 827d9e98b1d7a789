package cli

import (
	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the remembered identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()
			logToStderr(app.Config)

			identity := app.Session.Identity()
			if identity == "" {
				cmd.Println("Not signed in.")
				return nil
			}
			// Cleanup is best-effort inside Logout; local state always clears.
			app.Session.Logout(cmd.Context())
			cmd.Printf("Signed out %s.\n", identity)
			return nil
		},
	}
}
