// Package sqlite implements the persistent store on SQLite via the
// pure-Go modernc.org/sqlite driver. One database file holds the
// record partitions, the HTTP cache and the sync queue; WAL mode and
// record-level last-write-wins tolerate several engine instances
// sharing it. Schema changes ship as embedded, numbered migrations.
package sqlite
