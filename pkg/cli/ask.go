package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var user, file string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
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
			if _, err := app.Session.CheckStatus(cmd.Context()); err != nil {
				// Status is informational here; the query itself decides.
				cmd.PrintErrln("warning: could not check key status")
			}
			if file != "" {
				app.Catalog.Select(file)
			} else if app.Queries.RequireFileSelection {
				if err := app.Catalog.Refresh(cmd.Context()); err != nil {
					return err
				}
			}

			question := strings.Join(args, " ")
			if err := app.Queries.Submit(cmd.Context(), question); err != nil {
				return fmt.Errorf("%s", app.Queries.Failure())
			}

			res := app.Queries.Result()
			cmd.Println(res.Answer)
			if res.Reasoning != "" {
				cmd.Println()
				cmd.Println(res.Reasoning)
			}
			cmd.Printf("\n(%.2fs)\n", res.ExecutionTime)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "identity to ask as (default: remembered identity)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file to ask about (default: all files)")
	return cmd
}
