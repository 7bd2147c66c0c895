// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - VectorIndex: Chunk vector storage and similarity search. Two
//     backends exist (flat in-memory, persistent document store); the
//     core never branches on which one it holds.
//   - RegistryStore: Document registry persistence
//   - EmbeddingService: Generates vector embeddings
//   - BackupStore: Snapshot persistence for backup and recovery
//   - Extractor: Per-format raw text extraction
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
