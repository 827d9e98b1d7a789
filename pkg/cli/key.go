package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emerjence/billctl/pkg/credential"
)

func newKeyCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the API key used for your questions",
	}
	cmd.PersistentFlags().StringVarP(&user, "user", "u", "", "identity to act as (default: remembered identity)")

	set := &cobra.Command{
		Use:   "set [key]",
		Short: "Register an API key (reads stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()
			logToStderr(app.Config)

			if err := app.RequireIdentity(user); err != nil {
				return err
			}

			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				// Piping the key in keeps it out of shell history.
				r := bufio.NewReader(cmd.InOrStdin())
				line, err := r.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key from stdin: %w", err)
				}
				key = strings.TrimSpace(line)
			}

			signedUp, err := app.Credentials.SetKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			if signedUp {
				cmd.Println("Welcome! API key registered for a new account.")
			} else {
				cmd.Println("API key updated.")
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm",
		Short: "Remove the registered key and fall back to the default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()
			logToStderr(app.Config)

			if err := app.RequireIdentity(user); err != nil {
				return err
			}
			if err := app.Credentials.RemoveKey(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("API key removed; the default key is in effect.")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show which key is in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()
			logToStderr(app.Config)

			if err := app.RequireIdentity(user); err != nil {
				return err
			}
			if err := app.Credentials.Refresh(cmd.Context()); err != nil {
				return err
			}

			st := app.Credentials.Status()
			switch {
			case st.Origin == credential.OriginCustom:
				cmd.Println("Using your own API key.")
			case st.Present:
				cmd.Println("Using the default API key.")
			default:
				fmt.Fprintln(os.Stderr, "No API key available. Set one with `billctl key set`.")
			}
			return nil
		},
	}

	cmd.AddCommand(set, rm, status)
	return cmd
}
