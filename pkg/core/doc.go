// Package core defines the shared language of the scoreprep system.
//
// This package contains:
//   - Tabular data (Table, Column)
//   - Service interfaces (Adapter, Store)
//   - Configuration types (AdapterConfig, Schema)
//   - The error taxonomy surfaced at the process boundary (Error, ErrorKind)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
