// Package store implements the embedded write-back persistence layer shared
// by all oddjob commands.
//
// The store keeps two tables in a single SQLite file: an append-only logs
// table fed by the logging hook, and an upsertable settings table used for
// durable key/value state such as the config fingerprint. Producers enqueue
// records into in-memory queues; a periodic flush cycle drains both queues
// into one transaction and checkpoints the WAL. Durability is bounded by the
// flush interval: records buffered when the process is killed are lost, which
// is an accepted trade-off for observability data.
package store
