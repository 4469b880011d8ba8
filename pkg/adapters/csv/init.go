package csv

import (
	"log/slog"

	"github.com/leapstack-labs/scoreprep/pkg/adapter"
)

func init() {
	adapter.Register("csv", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
