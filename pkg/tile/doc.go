// Package tile provides value types for addressing map tiles.
//
// A tile is a fixed-size raster image addressed by zoom level, column and
// row. [Key] identifies one tile, [Record] carries a cached tile payload
// with its metadata, and [Range] describes a rectangular set of tiles at a
// single zoom level, the unit in which seeding requests are expressed.
//
// # URL templates
//
// Tile services publish URL templates with substitutable placeholders:
//
//	https://tile.example.org/{z}/{x}/{y}.png?key={api_key}
//
// Use [URL] to expand a template for a concrete key. The {api_key}
// placeholder is optional and resolved by the caller's credential provider.
package tile
