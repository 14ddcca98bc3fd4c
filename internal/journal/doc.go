// Package journal persists exported commits to SQLite for inspection.
//
// A journal is a diagnostic trace: commits are written after export and can
// be listed, read back and re-digested, but they are never replayed from the
// database. Entities are referenced by their diagnostic keys ("label#id").
//
// Writes are idempotent on commit ID. Reads are ordered by the journal's own
// sequence column so two journals of the same run list commits identically.
//
// Thread-safety: Store is safe for concurrent use. The connection pool is
// limited to one connection, which serializes writers.
package journal
