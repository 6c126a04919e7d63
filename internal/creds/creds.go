package creds

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// envPrefix is prepended to the upper-cased service name for Env lookups.
const envPrefix = "TILESEED_API_KEY_"

// DefaultKeyFile is the key file name used by [HomeFile].
const DefaultKeyFile = ".tileseed-keys.json"

// Provider resolves the API key for a tile service.
type Provider interface {
	// APIKey returns the key for service and whether one is configured.
	APIKey(service string) (string, bool)
}

// Static is a fixed service-to-key mapping.
type Static map[string]string

// APIKey implements Provider.
func (s Static) APIKey(service string) (string, bool) {
	key, ok := s[service]
	return key, ok && key != ""
}

// Env resolves keys from TILESEED_API_KEY_<SERVICE> environment variables.
// Non-alphanumeric characters in the service name map to underscores, so
// "open-topography" reads TILESEED_API_KEY_OPEN_TOPOGRAPHY.
type Env struct{}

// APIKey implements Provider.
func (Env) APIKey(service string) (string, bool) {
	key := os.Getenv(envPrefix + envSuffix(service))
	return key, key != ""
}

func envSuffix(service string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(service) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// File resolves keys from a JSON file mapping service names to keys:
//
//	{"osm": "", "open-topography": "abc123"}
//
// A missing or unreadable file resolves nothing; it is not an error, so a
// File can sit at the end of a [Chain] unconditionally.
type File struct {
	Path string
}

// HomeFile returns a File pointing at the default key file in the user's
// home directory.
func HomeFile() File {
	home, err := os.UserHomeDir()
	if err != nil {
		return File{}
	}
	return File{Path: filepath.Join(home, DefaultKeyFile)}
}

// APIKey implements Provider.
func (f File) APIKey(service string) (string, bool) {
	if f.Path == "" {
		return "", false
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", false
	}
	var keys map[string]string
	if err := json.Unmarshal(data, &keys); err != nil {
		return "", false
	}
	key, ok := keys[service]
	return key, ok && key != ""
}

// Chain tries each provider in order and returns the first configured key.
type Chain []Provider

// APIKey implements Provider.
func (c Chain) APIKey(service string) (string, bool) {
	for _, p := range c {
		if key, ok := p.APIKey(service); ok {
			return key, true
		}
	}
	return "", false
}

// Default is the provider used by the CLI: environment variables first,
// then the home-directory key file.
func Default() Provider {
	return Chain{Env{}, HomeFile()}
}
