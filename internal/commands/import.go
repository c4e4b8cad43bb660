package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/staffing-engine/factory"
	"github.com/warp/staffing-engine/internal/config"
)

func newImportCmd(app *config.Application) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import people, projects and activity from a JSON document",
		Long: `Reads a document with people, projects, leave, time_entries, approvals,
holidays and bonuses and writes it in one transaction. Records with ids are
upserted, so re-running an import is harmless.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			doc, err := factory.NewRosterFactory().ParseDocument(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			e, err := openEngine(app)
			if err != nil {
				return err
			}
			defer e.Close()

			stats, err := e.store.Import(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "document to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
