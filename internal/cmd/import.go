package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/evolutecode/leaddesk/internal/account"
	"github.com/evolutecode/leaddesk/internal/importer"
	"github.com/evolutecode/leaddesk/internal/lead"
)

var (
	importFilePath string
	importDryRun   bool
)

func init() {
	importCmd.Flags().StringVarP(&importFilePath, "file", "f", "", "export file to import (HOCON or JSON)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "only show what would be imported")
	_ = importCmd.MarkFlagRequired("file")
}

func dateOrDefault(t time.Time) string {
	if t.IsZero() {
		return "<now>"
	}
	return t.Format(time.DateTime)
}

func renderImport(out io.Writer, r *importer.Results) {
	accountTable := table.NewWriter()
	accountTable.SetOutputMirror(out)
	accountTable.AppendHeader(table.Row{"#", "Username", "Name", "Email", "Role", "Active", "Created"})
	for i, curr := range r.Accounts {
		accountTable.AppendRow(table.Row{
			i + 1,
			curr.Username,
			curr.FullName,
			curr.Email,
			curr.Role,
			curr.Active,
			dateOrDefault(curr.CreatedAt),
		})
	}
	accountTable.Render()

	leadTable := table.NewWriter()
	leadTable.SetOutputMirror(out)
	leadTable.AppendHeader(table.Row{"#", "Name", "Email", "Message", "Received"})
	leadTable.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Message", WidthMax: 40, WidthMaxEnforcer: text.Trim},
	})
	for i, curr := range r.Leads {
		leadTable.AppendRow(table.Row{
			i + 1,
			curr.Submission.Name,
			curr.Submission.Email,
			curr.Submission.Message,
			dateOrDefault(curr.CreatedAt),
		})
	}
	leadTable.Render()
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "import accounts and leads exported from the previous system",
	RunE: func(cmd *cobra.Command, args []string) error {
		contents, err := os.ReadFile(importFilePath)
		if err != nil {
			return fmt.Errorf("could not read %s: %w", importFilePath, err)
		}

		r, err := importer.Parse(string(contents))
		if err != nil {
			return err
		}

		renderImport(os.Stdout, r)

		if importDryRun {
			log.Info().Msg("dry run, nothing written")
			return nil
		}

		database, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(database)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		s, err := importer.Apply(ctx, r, account.NewVerifierFromConfig(database), lead.NewService(database))
		if err != nil {
			return err
		}

		fmt.Printf("imported %d account(s) (%d skipped) and %d lead(s) (%d skipped)\n",
			s.AccountsImported, s.AccountsSkipped, s.LeadsImported, s.LeadsSkipped)
		return nil
	},
}
