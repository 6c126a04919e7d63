package tile

import (
	"errors"
	"testing"
)

func TestKeyValid(t *testing.T) {
	tests := []struct {
		key Key
		ok  bool
	}{
		{Key{0, 0, 0}, true},
		{Key{18, 137421, 89234}, true},
		{Key{-1, 0, 0}, false},
		{Key{0, -1, 0}, false},
		{Key{0, 0, -1}, false},
	}

	for _, tt := range tests {
		err := tt.key.Valid()
		if tt.ok && err != nil {
			t.Errorf("Valid(%v): unexpected error %v", tt.key, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Valid(%v): expected ErrInvalidKey, got %v", tt.key, err)
		}
	}
}

func TestKeyString(t *testing.T) {
	k := Key{Z: 12, X: 654, Y: 1583}
	if got := k.String(); got != "12/654/1583" {
		t.Errorf("String() = %q, want %q", got, "12/654/1583")
	}
}

func TestRangeCount(t *testing.T) {
	tests := []struct {
		r     Range
		count int64
	}{
		{Range{Z: 0, MinX: 0, MaxX: 0, MinY: 0, MaxY: 0}, 1},
		{Range{Z: 3, MinX: 0, MaxX: 7, MinY: 0, MaxY: 7}, 64},
		{Range{Z: 10, MinX: 5, MaxX: 14, MinY: 3, MaxY: 12}, 100},
	}

	for _, tt := range tests {
		if got := tt.r.Count(); got != tt.count {
			t.Errorf("Count(%+v) = %d, want %d", tt.r, got, tt.count)
		}
	}
}

func TestRangeKeys(t *testing.T) {
	r := Range{Z: 2, MinX: 1, MaxX: 2, MinY: 0, MaxY: 1}
	keys := r.Keys()

	want := []Key{{2, 1, 0}, {2, 2, 0}, {2, 1, 1}, {2, 2, 1}}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
}

func TestRangeValid(t *testing.T) {
	if err := (Range{Z: 4, MinX: 0, MaxX: 15, MinY: 0, MaxY: 15}).Valid(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Range{Z: 4, MinX: 8, MaxX: 3, MinY: 0, MaxY: 15}).Valid(); err == nil {
		t.Error("expected error for inverted x bounds")
	}
	if err := (Range{Z: -1, MinX: 0, MaxX: 0, MinY: 0, MaxY: 0}).Valid(); err == nil {
		t.Error("expected error for negative zoom")
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		template string
		key      Key
		apiKey   string
		want     string
	}{
		{
			"https://tile.openstreetmap.org/{z}/{x}/{y}.png",
			Key{5, 16, 10}, "",
			"https://tile.openstreetmap.org/5/16/10.png",
		},
		{
			"https://api.example.com/tiles/{z}/{x}/{y}?key={api_key}",
			Key{1, 0, 1}, "secret",
			"https://api.example.com/tiles/1/0/1?key=secret",
		},
		{
			"https://api.example.com/tiles/{z}/{x}/{y}?key={api_key}",
			Key{1, 0, 1}, "",
			"https://api.example.com/tiles/1/0/1?key=",
		},
	}

	for _, tt := range tests {
		if got := URL(tt.template, tt.key, tt.apiKey); got != tt.want {
			t.Errorf("URL(%q, %v) = %q, want %q", tt.template, tt.key, got, tt.want)
		}
	}
}
