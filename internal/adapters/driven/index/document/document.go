// Package document provides the persistent vector index backend. Chunks
// live in a SQLite database with their embeddings stored as raw float32
// blobs, so the index survives restarts and supports native delete by
// chunk ID. Similarity search scans the table and scores in process,
// which keeps the backend dependency-free and fully portable.
package document

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/quarry-labs/recall/internal/adapters/driven/index/document/migrations"
	"github.com/quarry-labs/recall/internal/core/domain"
	"github.com/quarry-labs/recall/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// snapshotVersion identifies the snapshot blob layout.
const snapshotVersion = 1

// Index is the SQLite-backed persistent vector index.
type Index struct {
	db   *sql.DB
	path string
}

// New creates a document index at the specified data directory.
// If dataDir is empty, defaults to ~/.recall/data.
func New(dataDir string) (*Index, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode keeps concurrent readers cheap.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := &Index{
		db:   db,
		path: dbPath,
	}

	if err := idx.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return idx, nil
}

// Path returns the database file path.
func (i *Index) Path() string {
	return i.path
}

// migrate runs all pending migrations.
func (i *Index) migrate(fsys embed.FS) error {
	_, err := i.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := i.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := i.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := i.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// snapshot is the serialised form of the index state.
type snapshot struct {
	Version int            `json:"version"`
	Dims    int            `json:"dims"`
	Chunks  []domain.Chunk `json:"chunks"`
}

// Add inserts a batch of chunks in a single transaction, so a failed
// batch leaves nothing behind.
func (i *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	dims, err := i.Dimensions(ctx)
	if err != nil {
		return err
	}
	for _, ch := range chunks {
		if ch.ID == "" {
			return fmt.Errorf("chunk without ID: %w", domain.ErrInvalidInput)
		}
		if len(ch.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding: %w", ch.ID, domain.ErrInvalidInput)
		}
		if dims == 0 {
			dims = len(ch.Embedding)
		} else if len(ch.Embedding) != dims {
			return fmt.Errorf("chunk %s has %d dims, index has %d: %w",
				ch.ID, len(ch.Embedding), dims, domain.ErrDimensionMismatch)
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, start_offset, end_offset, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		embeddingBlob := float32SliceToBytes(ch.Embedding)
		if _, err := stmt.ExecContext(ctx, ch.ID, ch.DocumentID, ch.Content,
			ch.Position, ch.StartOffset, ch.EndOffset, embeddingBlob); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search scans the chunk table in insertion order and scores every
// vector against the query. The stable sort preserves that order for
// equal scores.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d: %w", k, domain.ErrInvalidInput)
	}

	dims, err := i.Dimensions(ctx)
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != dims {
		return nil, fmt.Errorf("query has %d dims, index has %d: %w",
			len(query), dims, domain.ErrDimensionMismatch)
	}

	rows, err := i.db.QueryContext(ctx, `
		SELECT id, document_id, content, position, start_offset, end_offset, embedding
		FROM chunks ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	queryNorm := vectorNorm(query)

	var hits []driven.VectorHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ch domain.Chunk
		var blob []byte
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Content,
			&ch.Position, &ch.StartOffset, &ch.EndOffset, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		vec := bytesToFloat32Slice(blob)
		hits = append(hits, driven.VectorHit{
			Chunk:      ch,
			Similarity: cosine(query, queryNorm, vec, vectorNorm(vec)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Similarity > hits[b].Similarity
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Delete removes the given chunk IDs natively. Unknown IDs are ignored.
func (i *Index) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunkIDs)), ",")
	args := make([]any, len(chunkIDs))
	for n, id := range chunkIDs {
		args[n] = id
	}

	query := fmt.Sprintf("DELETE FROM chunks WHERE id IN (%s)", placeholders)
	if _, err := i.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// Clear drops every chunk and returns how many rows were removed.
func (i *Index) Clear(ctx context.Context) (int, error) {
	result, err := i.db.ExecContext(ctx, "DELETE FROM chunks")
	if err != nil {
		return 0, fmt.Errorf("clearing chunks: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared chunks: %w", err)
	}
	return int(removed), nil
}

// Snapshot serialises the full index state in insertion order.
func (i *Index) Snapshot(ctx context.Context) ([]byte, error) {
	dims, err := i.Dimensions(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := i.db.QueryContext(ctx, `
		SELECT id, document_id, content, position, start_offset, end_offset, embedding
		FROM chunks ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var ch domain.Chunk
		var blob []byte
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Content,
			&ch.Position, &ch.StartOffset, &ch.EndOffset, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		ch.Embedding = bytesToFloat32Slice(blob)
		chunks = append(chunks, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	blob, err := json.Marshal(snapshot{
		Version: snapshotVersion,
		Dims:    dims,
		Chunks:  chunks,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding index snapshot: %w", err)
	}
	return blob, nil
}

// Restore replaces the index contents with the snapshot inside one
// transaction. A failed restore rolls back to the pre-restore state.
func (i *Index) Restore(ctx context.Context, blob []byte) error {
	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return fmt.Errorf("decoding index snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d: %w", snap.Version, domain.ErrInvalidInput)
	}
	for pos, ch := range snap.Chunks {
		if ch.ID == "" || len(ch.Embedding) == 0 {
			return fmt.Errorf("snapshot chunk %d is malformed: %w", pos, domain.ErrInvalidInput)
		}
		if snap.Dims != 0 && len(ch.Embedding) != snap.Dims {
			return fmt.Errorf("snapshot chunk %s has %d dims, snapshot has %d: %w",
				ch.ID, len(ch.Embedding), snap.Dims, domain.ErrDimensionMismatch)
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, start_offset, end_offset, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, ch := range snap.Chunks {
		embeddingBlob := float32SliceToBytes(ch.Embedding)
		if _, err := stmt.ExecContext(ctx, ch.ID, ch.DocumentID, ch.Content,
			ch.Position, ch.StartOffset, ch.EndOffset, embeddingBlob); err != nil {
			return fmt.Errorf("restoring chunk %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing restore: %w", err)
	}
	return nil
}

// Count returns the number of indexed chunks.
func (i *Index) Count(ctx context.Context) (int, error) {
	var count int
	row := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// StorageBytes reports the database file size.
func (i *Index) StorageBytes(_ context.Context) (int64, error) {
	info, err := os.Stat(i.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("statting database: %w", err)
	}
	return info.Size(), nil
}

// Dimensions returns the vector dimensionality, 0 when empty.
func (i *Index) Dimensions(ctx context.Context) (int, error) {
	var byteLen sql.NullInt64
	row := i.db.QueryRowContext(ctx, "SELECT length(embedding) FROM chunks LIMIT 1")
	if err := row.Scan(&byteLen); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("reading embedding length: %w", err)
	}
	if !byteLen.Valid {
		return 0, nil
	}
	return int(byteLen.Int64) / 4, nil
}

// BackendType identifies this implementation.
func (i *Index) BackendType() domain.BackendType {
	return domain.BackendDocument
}

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for n, f := range floats {
		binary.LittleEndian.PutUint32(buf[n*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for n := range floats {
		floats[n] = math.Float32frombits(binary.LittleEndian.Uint32(data[n*4:]))
	}
	return floats
}

// cosine computes cosine similarity given precomputed norms.
// Zero-norm vectors score 0 against everything.
func cosine(query []float32, queryNorm float64, vec []float32, vecNorm float64) float64 {
	if queryNorm == 0 || vecNorm == 0 || len(query) != len(vec) {
		return 0
	}
	var dot float64
	for n, q := range query {
		dot += float64(q) * float64(vec[n])
	}
	return dot / (queryNorm * vecNorm)
}

// vectorNorm computes the L2 norm.
func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
