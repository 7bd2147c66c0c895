package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/recall/internal/adapters/driving/watch"
)

var (
	watchDebounce time.Duration
	watchInitial  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Auto-ingest documents from a directory",
	Long: `Watches a directory and keeps the store in sync with it: supported
files (PDF, TXT, DOCX) are ingested when created or changed and their
documents removed when the files are deleted. Duplicate content is
skipped as usual.

Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce,
		"quiet period before a changed file is ingested")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false,
		"ingest files already in the directory before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if memoryService == nil {
		return errNotConfigured
	}

	watcher, err := watch.New(memoryService, args[0],
		watch.WithDebounce(watchDebounce),
		watch.WithInitialScan(watchInitial),
	)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return watcher.Run(cmd.Context())
}
