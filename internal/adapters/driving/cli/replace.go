package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/recall/internal/core/domain"
)

var (
	replaceYes  bool
	replaceJSON bool
)

var replaceCmd = &cobra.Command{
	Use:   "replace [files...]",
	Short: "Replace the entire store contents",
	Long: `Snapshots the current store, wipes it, and ingests the given files
in order. A file that fails to ingest is reported and the rest of the
batch continues; files ingested before a cancellation stay committed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplace,
}

func init() {
	replaceCmd.Flags().BoolVarP(&replaceYes, "yes", "y", false, "skip the confirmation prompt")
	replaceCmd.Flags().BoolVar(&replaceJSON, "json", false, "output the replace report as JSON")
	rootCmd.AddCommand(replaceCmd)
}

func runReplace(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if memoryService == nil {
		return errNotConfigured
	}

	if !replaceYes && !confirm(cmd, fmt.Sprintf("Replace ALL stored documents with %d new files?", len(args))) {
		cmd.Println("Aborted.")
		return nil
	}

	// Read everything up front so an unreadable path is reported in
	// the batch outcome instead of aborting a half-wiped store.
	files := make([]domain.FileUpload, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			files = append(files, domain.FileUpload{Filename: filepath.Base(path)})
			continue
		}
		files = append(files, domain.FileUpload{Filename: filepath.Base(path), Content: content})
	}

	report, err := memoryService.ReplaceAll(cmd.Context(), files)
	if err != nil {
		return fmt.Errorf("replacing store contents: %w", err)
	}

	if replaceJSON {
		return outputJSON(cmd, report)
	}

	for _, file := range report.Files {
		switch {
		case file.Receipt != nil:
			cmd.Printf("Ingested %s: %d chunks\n", file.Filename, file.Receipt.ChunkCount)
		case file.Skipped:
			cmd.Printf("Skipped %s: cancelled\n", file.Filename)
		default:
			cmd.Printf("Failed %s: %s\n", file.Filename, file.Err)
		}
	}
	cmd.Printf("Replaced store contents: %d ingested, %d failed.\n", report.Ingested, report.Failed)
	cmd.Printf("Snapshot %s holds the previous contents.\n", report.SnapshotID)
	return nil
}
