package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newFilesCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage uploaded spreadsheets",
	}
	cmd.PersistentFlags().StringVarP(&user, "user", "u", "", "identity to act as (default: remembered identity)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List files available to query",
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
			if err := app.Catalog.Refresh(cmd.Context()); err != nil {
				return err
			}

			files := app.Catalog.Files()
			if len(files) == 0 {
				cmd.Println("No files uploaded.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%d\t%s\n", f.Filename, f.Size, formatModified(f.Modified))
			}
			return w.Flush()
		},
	}

	upload := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a spreadsheet",
		Args:  cobra.ExactArgs(1),
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

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			msg, err := app.Catalog.Upload(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			cmd.Println(msg)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <filename>",
		Short: "Delete an uploaded file",
		Args:  cobra.ExactArgs(1),
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
			if err := app.Catalog.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted %s.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, upload, rm)
	return cmd
}

// formatModified renders the backend's epoch-seconds mtime for the listing.
func formatModified(epoch float64) string {
	if epoch == 0 {
		return "-"
	}
	return time.Unix(int64(epoch), 0).Format("2006-01-02 15:04")
}
