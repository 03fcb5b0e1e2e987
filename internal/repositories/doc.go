// Package repositories implements local persistence for client state.
//
// Key Implementations:
//   - [KeyValueRepository] : SQLite-backed [models.Store] over the kv_store table
//   - [MemoryStore] : In-process [models.Store] used by tests and ephemeral sessions
//   - [SessionRepository] : Reads and writes the persisted API token on top of any [models.Store]
//
// Values are opaque strings; callers own their encoding (the notification read overlay stores a JSON array).
package repositories
