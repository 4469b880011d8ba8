package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/scoreprep/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec and table scanning.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// QueryTable runs a query and collects every row into a table.
func (b *BaseSQLAdapter) QueryTable(ctx context.Context, name, sqlStr string) (*core.Table, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return ScanTable(name, rows)
}

// numericTypes are the database type names scanned into numeric columns.
var numericTypes = map[string]struct{}{
	"BIGINT": {}, "INTEGER": {}, "INT": {}, "SMALLINT": {}, "TINYINT": {}, "HUGEINT": {},
	"UBIGINT": {}, "UINTEGER": {}, "USMALLINT": {}, "UTINYINT": {},
	"DOUBLE": {}, "FLOAT": {}, "REAL": {}, "DECIMAL": {}, "NUMERIC": {},
}

// IsNumericType reports whether a database type name holds numbers.
// Parameterized names like DECIMAL(18,3) are matched on their base name.
func IsNumericType(typeName string) bool {
	base := strings.ToUpper(typeName)
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	_, ok := numericTypes[strings.TrimSpace(base)]
	return ok
}

// ScanTable reads every row of rows into a table. Column kinds follow the
// database column types; NULL becomes a missing value.
func ScanTable(name string, rows *sql.Rows) (*core.Table, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	n := len(types)
	numeric := make([]bool, n)
	floats := make([][]float64, n)
	texts := make([][]string, n)
	valid := make([][]bool, n)
	for i, ct := range types {
		numeric[i] = IsNumericType(ct.DatabaseTypeName())
	}

	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}

	row := 0
	for rows.Next() {
		row++
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", row, err)
		}
		for i, v := range values {
			if numeric[i] {
				f, err := toFloat(v)
				if err != nil {
					return nil, fmt.Errorf("column %q row %d: %w", types[i].Name(), row, err)
				}
				floats[i] = append(floats[i], f)
				continue
			}
			s, ok := toText(v)
			texts[i] = append(texts[i], s)
			valid[i] = append(valid[i], ok)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	cols := make([]core.Column, n)
	for i, ct := range types {
		if numeric[i] {
			if floats[i] == nil {
				floats[i] = []float64{}
			}
			cols[i] = core.NewNumericColumn(ct.Name(), floats[i])
		} else {
			if texts[i] == nil {
				texts[i], valid[i] = []string{}, []bool{}
			}
			cols[i] = core.NewTextColumn(ct.Name(), texts[i], valid[i])
		}
	}
	return core.NewTable(name, cols...)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case interface{ Float64() float64 }:
		return x.Float64(), nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unsupported numeric value of type %T", v)
	}
}

func toText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, !core.IsMissingToken(x)
	case []byte:
		return string(x), !core.IsMissingToken(string(x))
	default:
		return fmt.Sprint(x), true
	}
}
