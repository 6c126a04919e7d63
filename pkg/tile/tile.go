package tile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidKey is returned for keys with negative coordinates.
var ErrInvalidKey = errors.New("tile: invalid key")

// Key identifies a single tile within one logical layer.
type Key struct {
	Z int // zoom level
	X int // column
	Y int // row
}

// Valid reports whether all coordinates are non-negative.
func (k Key) Valid() error {
	if k.Z < 0 || k.X < 0 || k.Y < 0 {
		return fmt.Errorf("%w: %d/%d/%d", ErrInvalidKey, k.Z, k.X, k.Y)
	}
	return nil
}

// String returns the key in z/x/y form.
func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Z, k.X, k.Y)
}

// Record is a cached tile payload with the metadata needed for eviction
// decisions. Records are immutable; a re-fetch replaces the record.
type Record struct {
	Key         Key
	Data        []byte
	ContentType string
	FetchedAt   time.Time
	Size        int64
}

// Range is a rectangular set of tiles at one zoom level. Bounds are
// inclusive.
type Range struct {
	Z    int
	MinX int
	MaxX int
	MinY int
	MaxY int
}

// Valid reports whether the range is well-formed and non-empty.
func (r Range) Valid() error {
	if r.Z < 0 || r.MinX < 0 || r.MinY < 0 {
		return fmt.Errorf("%w: negative bounds in range z=%d", ErrInvalidKey, r.Z)
	}
	if r.MaxX < r.MinX || r.MaxY < r.MinY {
		return fmt.Errorf("%w: empty range z=%d x=[%d,%d] y=[%d,%d]",
			ErrInvalidKey, r.Z, r.MinX, r.MaxX, r.MinY, r.MaxY)
	}
	return nil
}

// Count returns the number of tiles in the range.
func (r Range) Count() int64 {
	return int64(r.MaxX-r.MinX+1) * int64(r.MaxY-r.MinY+1)
}

// Keys enumerates every key in the range in row-major order.
func (r Range) Keys() []Key {
	keys := make([]Key, 0, r.Count())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			keys = append(keys, Key{Z: r.Z, X: x, Y: y})
		}
	}
	return keys
}

// URL expands a tile URL template for key. The placeholders {z}, {x} and
// {y} are required; {api_key} is replaced when present (with an empty
// apiKey the placeholder is removed, so templates work without credentials).
func URL(template string, key Key, apiKey string) string {
	rep := strings.NewReplacer(
		"{z}", strconv.Itoa(key.Z),
		"{x}", strconv.Itoa(key.X),
		"{y}", strconv.Itoa(key.Y),
		"{api_key}", apiKey,
	)
	return rep.Replace(template)
}
