// Package adapter provides the tabular source adapter contract, the adapter
// registry, and a database/sql base that SQL-backed adapters embed.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves from init().
package adapter

import (
	"github.com/leapstack-labs/scoreprep/pkg/core"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter
)

// DefaultType is the adapter used when no source type is configured.
const DefaultType = "csv"
