// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - VectorStore: memory chunks and their embeddings
//   - TurnStore: append-only conversation history
//   - HeartbeatLog: proactive notification dedup log
//   - SchedulerStore: background task state and history
//
// # Schema
//
// The database schema is managed through named migrations stored in the
// migrations/ directory. Applied names are recorded in schema_migrations and
// each migration runs at most once, inside its own transaction.
//
// Embeddings are stored as little-endian float32 BLOBs in memory_vec, keyed by
// the id of the owning memory_chunks row. Deleting a chunk cascades to its vector.
//
// # Data Location
//
// By default, the database is stored at ~/.recall/data/recall.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
