package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every document from the store",
	Long: `Wipes the index and the registry. A snapshot is captured first, so
the previous contents can be brought back with 'recall backup restore'.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if memoryService == nil {
		return errNotConfigured
	}

	if !clearYes && !confirm(cmd, "Remove ALL documents from the store?") {
		cmd.Println("Aborted.")
		return nil
	}

	report, err := memoryService.ClearAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}

	cmd.Printf("Cleared %d documents (%d chunks).\n", report.DocumentsRemoved, report.ChunksRemoved)
	cmd.Printf("Snapshot %s holds the previous contents.\n", report.SnapshotID)
	return nil
}

// confirm asks a yes/no question on the command's input stream.
// Anything but an explicit yes declines.
func confirm(cmd *cobra.Command, question string) bool {
	cmd.Printf("%s [y/N]: ", question)

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
