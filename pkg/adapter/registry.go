package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory creates an adapter that logs to the given logger.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// normalize maps a source type to its registry key: "DuckDB " and "duckdb"
// name the same adapter.
func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register makes an adapter available under name. It is called from the
// init function of each adapter package and panics on an empty name, a nil
// factory, or a second registration of the same name.
func Register(name string, factory Factory) {
	key := normalize(name)
	if key == "" {
		panic("adapter: Register with empty name")
	}
	if factory == nil {
		panic("adapter: Register factory is nil for " + key)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	registry[key] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[normalize(name)]
	return f, ok
}

// NewAdapter creates the adapter named by cfg.Type, or DefaultType when the
// type is empty. A nil logger discards output.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	typ := normalize(cfg.Type)
	if typ == "" {
		typ = DefaultType
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	factory, ok := Get(typ)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger.With("source", typ)), nil
}

// ListAdapters returns the registered source types, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a source type is registered.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when an unknown source type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown source type %q (available: %s); check source.type in scoreprep.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
