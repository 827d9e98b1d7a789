package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		user  string
		limit int
		clear bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past questions and answers",
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
			if app.History == nil {
				return fmt.Errorf("history store unavailable")
			}

			identity := app.Session.Identity()
			if clear {
				if err := app.History.Clear(cmd.Context(), identity); err != nil {
					return err
				}
				cmd.Println("History cleared.")
				return nil
			}

			exchanges, err := app.History.List(cmd.Context(), identity, limit)
			if err != nil {
				return err
			}
			if len(exchanges) == 0 {
				cmd.Println("No history yet.")
				return nil
			}
			for _, e := range exchanges {
				cmd.Printf("%s", e.CreatedAt.Local().Format("2006-01-02 15:04"))
				if e.FileName != "" {
					cmd.Printf("  [%s]", e.FileName)
				}
				cmd.Printf("\n  Q: %s\n  A: %s\n\n", e.Question, e.Answer)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "identity to act as (default: remembered identity)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&clear, "clear", false, "delete all history for this identity")
	return cmd
}
