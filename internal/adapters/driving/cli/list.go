package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/recall/internal/core/domain"
)

var (
	listType   string
	listSearch string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Long:  `Lists all active documents, oldest first. Filter by type or filename.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "filter by file type (pdf, txt, docx)")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "filter by filename substring")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if memoryService == nil {
		return errNotConfigured
	}

	filter := domain.ListFilter{NameContains: listSearch}
	if listType != "" {
		ft := domain.FileType(listType)
		if !ft.IsValid() {
			return fmt.Errorf("unknown file type %q (want pdf, txt, or docx): %w", listType, domain.ErrInvalidInput)
		}
		filter.FileType = ft
	}

	docs, err := memoryService.ListDocuments(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if listJSON {
		return outputJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Name:     %s (%s)\n", docs[i].Filename, docs[i].FileType)
		cmd.Printf("    Chunks:   %d\n", len(docs[i].ChunkIDs))
		cmd.Printf("    Ingested: %s\n", docs[i].IngestedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}
