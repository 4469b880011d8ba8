package core

import "context"

// Adapter defines the interface that all tabular source adapters must implement.
type Adapter interface {
	// Connect prepares the adapter for reading.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close releases resources held by the adapter.
	Close() error

	// ReadTable reads the delimited file at path into a table with the given name.
	ReadTable(ctx context.Context, name, path string) (*Table, error)
}

// AdapterConfig holds configuration for a source adapter.
type AdapterConfig struct {
	Type string
	// Path is the adapter's backing database, if it has one (":memory:" or empty
	// for in-memory).
	Path      string
	Delimiter string
	Options   map[string]string
	Params    map[string]any
}
