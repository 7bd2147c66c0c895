package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/recall/internal/core/domain"
)

var removeJSON bool

var removeCmd = &cobra.Command{
	Use:   "remove [doc-ids...]",
	Short: "Remove documents from the store",
	Long: `Removes the given documents and their chunks. A snapshot is captured
first, so the removed documents can be brought back with 'recall backup
restore'. Each ID is reported individually; a document whose chunks
could not be deleted keeps its registry entry so the store stays
consistent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeJSON, "json", false, "output the removal report as JSON")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if memoryService == nil {
		return errNotConfigured
	}

	report, err := memoryService.RemoveDocuments(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("removing documents: %w", err)
	}

	if removeJSON {
		return outputJSON(cmd, report)
	}

	for _, outcome := range report.Outcomes {
		switch outcome.Status {
		case domain.RemovalRemoved:
			cmd.Printf("Removed %s\n", outcome.DocumentID)
		case domain.RemovalNotFound:
			cmd.Printf("Not found: %s\n", outcome.DocumentID)
		case domain.RemovalFailed:
			cmd.Printf("Failed: %s (%s)\n", outcome.DocumentID, outcome.Reason)
		}
	}
	cmd.Printf("Removed %d of %d documents.\n", report.Removed, len(args))
	if report.SnapshotID != "" {
		cmd.Printf("Snapshot %s holds the previous contents.\n", report.SnapshotID)
	}

	failed := 0
	for _, outcome := range report.Outcomes {
		if outcome.Status == domain.RemovalFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d documents could not be removed", failed)
	}
	return nil
}
