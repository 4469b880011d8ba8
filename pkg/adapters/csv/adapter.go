// Package csv provides a delimited-file source adapter backed by encoding/csv.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/scoreprep/pkg/adapter"
	"github.com/leapstack-labs/scoreprep/pkg/core"
)

const utf8BOM = "\uFEFF"

// Adapter reads delimited files straight from disk.
type Adapter struct {
	cfg    core.AdapterConfig
	comma  rune
	opts   readerOptions
	logger *slog.Logger
}

// readerOptions are the encoding/csv reader settings exposed as source
// options.
type readerOptions struct {
	comment          rune
	lazyQuotes       bool
	trimLeadingSpace bool
}

// New creates a new CSV adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{comma: ',', logger: logger}
}

// Connect validates the configuration. No resources are held.
func (a *Adapter) Connect(_ context.Context, cfg adapter.Config) error {
	a.cfg = cfg
	a.comma = ','
	if cfg.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(cfg.Delimiter)
		if size != len(cfg.Delimiter) || r == '"' || r == '\n' || r == '\r' {
			return fmt.Errorf("invalid delimiter %q", cfg.Delimiter)
		}
		a.comma = r
	}
	opts, err := parseOptions(cfg.Options)
	if err != nil {
		return err
	}
	if opts.comment != 0 && opts.comment == a.comma {
		return fmt.Errorf("comment character %q equals the delimiter", opts.comment)
	}
	a.opts = opts
	return nil
}

// parseOptions reads comment, lazy_quotes and trim_leading_space.
func parseOptions(options map[string]string) (readerOptions, error) {
	var opts readerOptions
	for k, v := range options {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "comment":
			r, size := utf8.DecodeRuneInString(v)
			if v == "" || size != len(v) || r == '"' || r == '\n' || r == '\r' {
				return opts, fmt.Errorf("invalid comment character %q", v)
			}
			opts.comment = r
		case "lazy_quotes":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, fmt.Errorf("option lazy_quotes: %w", err)
			}
			opts.lazyQuotes = b
		case "trim_leading_space":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, fmt.Errorf("option trim_leading_space: %w", err)
			}
			opts.trimLeadingSpace = b
		default:
			return opts, fmt.Errorf("unknown csv option %q (want comment, lazy_quotes or trim_leading_space)", k)
		}
	}
	return opts, nil
}

// Close is a no-op.
func (a *Adapter) Close() error {
	return nil
}

// ReadTable reads the file at path. The first record is the header. A column
// whose present values all parse as numbers becomes numeric.
func (a *Adapter) ReadTable(ctx context.Context, name, path string) (*core.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := stdcsv.NewReader(f)
	r.Comma = a.comma
	r.Comment = a.opts.comment
	r.LazyQuotes = a.opts.lazyQuotes
	r.TrimLeadingSpace = a.opts.trimLeadingSpace
	r.ReuseRecord = false

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: file is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", path, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cells := make([][]string, len(header))
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for i, v := range rec {
			cells[i] = append(cells[i], v)
		}
	}

	cols := make([]core.Column, len(header))
	for i, h := range header {
		cols[i] = inferColumn(h, cells[i])
	}
	a.logger.Debug("read csv", "table", name, "path", path, "columns", len(cols), "rows", len(cells[0]))
	return core.NewTable(name, cols...)
}

func inferColumn(name string, raw []string) core.Column {
	floats := make([]float64, len(raw))
	valid := make([]bool, len(raw))
	numeric := true
	for i, v := range raw {
		v = strings.TrimSpace(v)
		if core.IsMissingToken(v) {
			floats[i] = math.NaN()
			continue
		}
		valid[i] = true
		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			numeric = false
			continue
		}
		floats[i] = f
	}
	if numeric {
		return core.NewNumericColumn(name, floats)
	}
	return core.NewTextColumn(name, raw, valid)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
