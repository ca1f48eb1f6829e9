package source

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"
)

// ============================================================================
// SOURCE — Where client configs and extracts are read from
// ============================================================================
// Layout under a root (directory or base URL):
//   configs/clients.json        client registry
//   configs/<clientId>.json     client config (or .yaml / .yml)
//   data/<clientId>/<filename>  extracts named by config.dataSources
//
// Fetchers never interpret content. A missing object is reported as
// ErrNotFound so callers can tell "absent" apart from transport failure.
// ============================================================================

// ErrNotFound reports that the requested object does not exist (file absent, HTTP 404).
var ErrNotFound = errors.New("source: not found")

// Fetcher reads one named object from a source root.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, name string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, name string) ([]byte, error) {
	return f(ctx, name)
}

// New picks a fetcher for root: http(s) URLs use HTTPFetcher, anything else is a directory.
func New(root string) Fetcher {
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
		return NewHTTPFetcher(root)
	}
	return NewDirFetcher(root)
}

const (
	configDir    = "configs"
	dataDir      = "data"
	registryFile = "clients.json"
)

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidClientID reports whether id is safe to use as a path segment.
func ValidClientID(id string) bool {
	return clientIDPattern.MatchString(id)
}

// ConfigPaths returns candidate config document names for a client, in lookup order.
func ConfigPaths(clientID string) []string {
	base := path.Join(configDir, clientID)
	return []string{base + ".json", base + ".yaml", base + ".yml"}
}

// RegistryPath is the name of the client registry document.
func RegistryPath() string {
	return path.Join(configDir, registryFile)
}

// DataPath returns the object name of one extract for a client.
func DataPath(clientID, filename string) string {
	return path.Join(dataDir, clientID, path.Clean("/" + filename)[1:])
}
