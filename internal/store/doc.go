// Package store persists tiles in a single-file SQLite cache.
//
// The schema follows the GeoPackage tile-table convention (a gpkg_tiles
// table keyed by (zoom_level, tile_column, tile_row) with the payload in a
// tile_data BLOB), so cache files written by other GeoPackage tooling
// remain readable, plus the metadata columns (content type, size, fetch
// time) an external eviction policy needs.
//
// # Concurrency
//
// The store runs SQLite in WAL mode: readers see a consistent snapshot
// while a batch commits and are never blocked for longer than one commit.
// [Store.PutBatch] writes all records in one transaction: all rows become
// durable together or none do. An internal mutex serializes logical
// writers, so concurrent PutBatch calls queue rather than contend inside
// SQLite.
//
// # Point, batch and range access
//
//   - [Store.GetMissing] answers "which of these tiles do I still need"
//     with indexed point lookups.
//   - [Store.GetRange] scans a rectangle at one zoom level in row-major
//     order for bulk consumption.
//   - [Store.DeleteOlderThan], [Store.Vacuum] and [Store.Analyze] support
//     cache maintenance; the last_modified index keeps eviction scans off
//     the table itself.
package store
