// Package cli provides the cobra command tree for the recall binary.
// It is a driving adapter: commands translate flags and arguments into
// calls on the core memory service and render the results. All wiring
// of concrete adapters happens here, at the composition root.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/recall/internal/adapters/driven/backup/local"
	cfgfile "github.com/quarry-labs/recall/internal/adapters/driven/config/file"
	"github.com/quarry-labs/recall/internal/adapters/driven/embedding/hash"
	"github.com/quarry-labs/recall/internal/adapters/driven/embedding/ollama"
	"github.com/quarry-labs/recall/internal/adapters/driven/embedding/openai"
	docindex "github.com/quarry-labs/recall/internal/adapters/driven/index/document"
	"github.com/quarry-labs/recall/internal/adapters/driven/index/flat"
	regfile "github.com/quarry-labs/recall/internal/adapters/driven/registry/file"
	regmemory "github.com/quarry-labs/recall/internal/adapters/driven/registry/memory"
	"github.com/quarry-labs/recall/internal/chunker"
	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driven"
	"github.com/quarry-labs/recall/internal/core/ports/driving"
	"github.com/quarry-labs/recall/internal/core/services"
	"github.com/quarry-labs/recall/internal/extractors/docx"
	"github.com/quarry-labs/recall/internal/extractors/pdf"
	"github.com/quarry-labs/recall/internal/extractors/plaintext"
	"github.com/quarry-labs/recall/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Package-level services, wired by ensureServices (or injected by
// tests). Commands guard against nil so a partially wired binary fails
// with a clear message instead of a panic.
var (
	memoryService driving.MemoryService
	configStore   driven.ConfigStore
	probeStore    *cfgfile.ProbeStore

	// closeMemory tears down the wired store. Set when ensureServices
	// built a real manager; left nil when tests injected a fake.
	closeMemory func() error
)

// verboseFlag enables debug logging on stderr.
var verboseFlag bool

// configDirFlag overrides the default ~/.recall directory.
var configDirFlag string

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Document memory with semantic search",
	Long: `Recall turns your study documents (PDF, TXT, DOCX) into a
deduplicated, searchable vector memory.

Ingested files are split into overlapping chunks, embedded, and
indexed for similarity search. Identical content is stored once no
matter how often or under which name it is uploaded. Destructive
operations snapshot the store first, so a clear or replace can
always be undone with 'recall backup restore'.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "config directory (default ~/.recall)")
}

// Execute runs the root command and returns the process exit code.
// The context cancels long-running commands (watch, mcp serve) on
// SIGINT or SIGTERM.
func Execute(ctx context.Context) int {
	defer func() {
		if closeMemory != nil {
			if err := closeMemory(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: closing store: %v\n", err)
			}
		}
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// configBaseDir resolves the directory holding config, data, and
// backups. The --config-dir flag wins over the default.
func configBaseDir() (string, error) {
	if configDirFlag != "" {
		return configDirFlag, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".recall"), nil
}

// ensureConfig wires the config store and probe store once.
func ensureConfig() error {
	if configStore != nil {
		return nil
	}

	base, err := configBaseDir()
	if err != nil {
		return err
	}
	store, err := cfgfile.NewConfigStore(base)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	configStore = store
	probeStore = cfgfile.NewProbeStore(base)
	return nil
}

// ensureServices wires the full memory stack from configuration. It is
// a no-op when a service is already present (tests inject fakes).
// Commands that mutate or read the store call this first; version and
// config commands do not, so they work without touching the store.
func ensureServices(cmd *cobra.Command) error {
	if memoryService != nil {
		return nil
	}
	if err := ensureConfig(); err != nil {
		return err
	}

	base, err := configBaseDir()
	if err != nil {
		return err
	}

	index, registry, err := buildStore(base)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder()
	if err != nil {
		return err
	}

	backupDir := configStore.GetString("backup.dir")
	if backupDir == "" {
		backupDir = filepath.Join(base, "backups")
	}
	backups, err := local.New(backupDir)
	if err != nil {
		return fmt.Errorf("opening backup store: %w", err)
	}

	split, err := buildChunker()
	if err != nil {
		return err
	}

	var opts []services.Option
	if threshold := configStore.GetFloat("health.threshold"); threshold > 0 {
		opts = append(opts, services.WithHealthThreshold(threshold))
	}
	if keep := configStore.GetInt("backup.retention"); keep > 0 {
		opts = append(opts, services.WithBackupRetention(keep))
	}

	manager := services.NewManager(
		index,
		registry,
		embedder,
		backups,
		split,
		[]driven.Extractor{plaintext.New(), docx.New(), pdf.New()},
		opts...,
	)

	report, err := manager.Open(cmd.Context())
	if report != nil && report.Corrupted {
		if report.Restored {
			cmd.PrintErrf("Warning: store was corrupted and restored from snapshot %s\n", report.SnapshotID)
		} else {
			cmd.PrintErrf("Store corrupted: %s\n", report.Detail)
		}
	}
	if err != nil {
		closeErr := manager.Close()
		if closeErr != nil {
			logger.Warn("Closing store after failed open: %v", closeErr)
		}
		return err
	}

	memoryService = manager
	closeMemory = manager.Close
	return nil
}

// buildStore creates the index backend and the registry it pairs with.
// The flat backend is ephemeral, so it pairs with the in-memory
// registry; the document backend pairs with the durable file registry.
// Mixing them would make every startup look like corruption.
func buildStore(base string) (driven.VectorIndex, driven.RegistryStore, error) {
	backend := domain.BackendType(configStore.GetString("store.backend"))
	if backend == "" {
		backend = domain.BackendDocument
	}

	dataDir := configStore.GetString("store.data_dir")
	if dataDir == "" {
		dataDir = filepath.Join(base, "data")
	}

	switch backend {
	case domain.BackendFlat:
		return flat.New(), regmemory.New(), nil
	case domain.BackendDocument:
		index, err := docindex.New(dataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening document index: %w", err)
		}
		registry, err := regfile.New(dataDir)
		if err != nil {
			closeErr := index.Close()
			if closeErr != nil {
				logger.Warn("Closing index after registry failure: %v", closeErr)
			}
			return nil, nil, fmt.Errorf("opening registry: %w", err)
		}
		return index, registry, nil
	default:
		return nil, nil, fmt.Errorf("unknown store.backend %q (want flat or document): %w",
			backend, domain.ErrInvalidInput)
	}
}

// buildEmbedder creates the embedding service named by configuration.
// The hashing embedder is the default: deterministic, offline, no key.
func buildEmbedder() (driven.EmbeddingService, error) {
	provider := configStore.GetString("embedding.provider")
	dims := configStore.GetInt("embedding.dimensions")

	switch provider {
	case "", "hash":
		var opts []hash.Option
		if dims > 0 {
			opts = append(opts, hash.WithDimensions(dims))
		}
		return hash.NewEmbeddingService(opts...), nil
	case "openai":
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:            configStore.GetString("embedding.api_key"),
			BaseURL:           configStore.GetString("embedding.base_url"),
			Model:             configStore.GetString("embedding.model"),
			Dimensions:        dims,
			RequestsPerSecond: configStore.GetFloat("embedding.requests_per_second"),
		})
		if err != nil {
			return nil, fmt.Errorf("configuring openai embeddings: %w", err)
		}
		return svc, nil
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    configStore.GetString("embedding.base_url"),
			Model:      configStore.GetString("embedding.model"),
			Dimensions: dims,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding.provider %q (want hash, openai, or ollama): %w",
			provider, domain.ErrInvalidInput)
	}
}

// buildChunker creates the text splitter from configuration.
func buildChunker() (*chunker.Chunker, error) {
	var opts []chunker.Option
	if size := configStore.GetInt("chunker.size"); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap := configStore.GetInt("chunker.overlap"); overlap > 0 {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	split, err := chunker.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("configuring chunker: %w", err)
	}
	return split, nil
}

// errNotConfigured is returned when a command runs without its service.
var errNotConfigured = errors.New("memory service not configured")
