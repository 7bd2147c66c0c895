package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/recall/internal/core/domain"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Add documents to the memory store",
	Long: `Reads the given files, extracts their text, and stores them as
searchable chunks. Supported formats: PDF, TXT, DOCX.

Content is deduplicated: a file whose text matches an already stored
document is rejected and the existing document is reported instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output receipts as JSON")
	rootCmd.AddCommand(ingestCmd)
}

// ingestResult is the JSON form of one file's outcome.
type ingestResult struct {
	Filename string                `json:"filename"`
	Receipt  *domain.IngestReceipt `json:"receipt,omitempty"`
	Error    string                `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if memoryService == nil {
		return errNotConfigured
	}

	ctx := cmd.Context()
	results := make([]ingestResult, 0, len(args))
	failed := 0

	for _, path := range args {
		result := ingestResult{Filename: filepath.Base(path)}

		content, err := os.ReadFile(path)
		if err != nil {
			result.Error = fmt.Sprintf("reading file: %v", err)
			results = append(results, result)
			failed++
			continue
		}

		receipt, err := memoryService.Ingest(ctx, domain.FileUpload{
			Filename: filepath.Base(path),
			Content:  content,
		})
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			// Duplicates are expected steady-state behaviour, not
			// failures worth a non-zero exit.
			if !errors.Is(err, domain.ErrDuplicateContent) {
				failed++
			}
			continue
		}

		result.Receipt = receipt
		results = append(results, result)
	}

	if ingestJSON {
		if err := outputJSON(cmd, results); err != nil {
			return err
		}
	} else {
		outputIngestText(cmd, results)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(args))
	}
	return nil
}

func outputIngestText(cmd *cobra.Command, results []ingestResult) {
	for _, r := range results {
		switch {
		case r.Receipt != nil:
			cmd.Printf("Ingested %s: %d chunks (doc %s)\n",
				r.Receipt.Filename, r.Receipt.ChunkCount, r.Receipt.DocumentID)
		default:
			cmd.Printf("Skipped %s: %s\n", r.Filename, r.Error)
		}
	}
}

// outputJSON pretty-prints v on the command's stdout.
func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
