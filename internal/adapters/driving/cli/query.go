package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/recall/internal/core/domain"
)

var (
	queryLimit int
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search the memory store",
	Long: `Embeds the query text and returns the most similar stored chunks,
each with its similarity score and source document.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "k", 5, "maximum number of results")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

// queryResult is the JSON form of one hit.
type queryResult struct {
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
	Filename    string  `json:"filename"`
	FileType    string  `json:"file_type"`
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if memoryService == nil {
		return errNotConfigured
	}

	hits, err := memoryService.Query(cmd.Context(), args[0], queryLimit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		results := make([]queryResult, len(hits))
		for i, hit := range hits {
			results[i] = queryResult{
				Text:        hit.Chunk.Content,
				Score:       hit.Score,
				Filename:    hit.Filename,
				FileType:    hit.FileType.String(),
				StartOffset: hit.Chunk.StartOffset,
				EndOffset:   hit.Chunk.EndOffset,
			}
		}
		return outputJSON(cmd, results)
	}

	return outputQueryText(cmd, hits)
}

func outputQueryText(cmd *cobra.Command, hits []domain.QueryHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%d):\n\n", len(hits))
	for i, hit := range hits {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, hit.Filename, hit.Score)
		cmd.Printf("      %s\n", snippet(hit.Chunk.Content, 160))
		cmd.Println()
	}
	return nil
}

// snippet flattens whitespace and truncates for one-line display.
func snippet(text string, maxLen int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= maxLen {
		return flat
	}
	return string(runes[:maxLen]) + "..."
}
