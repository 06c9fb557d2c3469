// Package store persists project snapshots across three tiers: a bounded
// in-memory LRU cache, a primary SQLite database, and a JSON-file fallback
// directory. Restores check the tiers in that order; writes go to the
// primary and fall back to the file tier when the primary fails.
package store
