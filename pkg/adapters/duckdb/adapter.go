package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/leapstack-labs/scoreprep/pkg/adapter"
	"github.com/leapstack-labs/scoreprep/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params  *Params
	csvOpts []string
}

// optionName matches a read_csv_auto named parameter.
var optionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// numberLiteral matches option values passed to DuckDB unquoted.
var numberLiteral = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// reservedOptions are set by the adapter itself.
var reservedOptions = map[string]string{
	"header":      "the header row is always read",
	"delim":       "use source.delimiter",
	"sep":         "use source.delimiter",
	"sample_size": "use source.params.sample_size",
}

// New creates a new DuckDB adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}
	csvOpts, err := csvOptions(cfg.Options)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	// Session settings live on a connection; keep a single one.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.params = params
	a.csvOpts = csvOpts

	keys := make([]string, 0, len(params.Settings))
	for k := range params.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		stmt := fmt.Sprintf("SET %s = %s", k, quoteLiteral(params.Settings[k]))
		if err := a.Exec(ctx, stmt); err != nil {
			_ = a.Close()
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}

	a.Logger.Debug("duckdb connected", "path", path, "settings", len(keys))
	return nil
}

// ReadTable loads the CSV at path into a table named name and reads it back.
// DuckDB infers the column types from the file.
func (a *Adapter) ReadTable(ctx context.Context, name, path string) (*core.Table, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	opts := []string{"header=true"}
	if a.Cfg.Delimiter != "" {
		opts = append(opts, "delim="+quoteLiteral(a.Cfg.Delimiter))
	}
	if a.params != nil && a.params.SampleSize != 0 {
		opts = append(opts, fmt.Sprintf("sample_size=%d", a.params.SampleSize))
	}
	opts = append(opts, a.csvOpts...)

	//nolint:gosec // table name is quoted, path is a quoted literal
	load := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, %s)",
		quoteIdent(name), quoteLiteral(absPath), strings.Join(opts, ", "),
	)
	if err := a.Exec(ctx, load); err != nil {
		return nil, fmt.Errorf("failed to load CSV %s: %w", path, err)
	}

	tbl, err := a.QueryTable(ctx, name, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", name, err)
	}
	a.Logger.Debug("read csv", "table", name, "path", absPath, "columns", len(tbl.Columns), "rows", tbl.NumRows())
	return tbl, nil
}

// csvOptions renders source options as read_csv_auto named parameters,
// sorted by name. Booleans and numbers are passed bare, anything else as a
// string literal.
func csvOptions(options map[string]string) ([]string, error) {
	names := make([]string, 0, len(options))
	for k := range options {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, k := range names {
		name := strings.ToLower(strings.TrimSpace(k))
		if !optionName.MatchString(name) {
			return nil, fmt.Errorf("invalid duckdb csv option name %q", k)
		}
		if why, ok := reservedOptions[name]; ok {
			return nil, fmt.Errorf("duckdb csv option %q cannot be set: %s", k, why)
		}
		out = append(out, name+"="+optionValue(options[k]))
	}
	return out, nil
}

func optionValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "true") || strings.EqualFold(v, "false") {
		return strings.ToLower(v)
	}
	if numberLiteral.MatchString(v) {
		return v
	}
	return quoteLiteral(v)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
