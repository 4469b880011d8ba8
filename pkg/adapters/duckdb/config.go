package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`

	// SampleSize is the number of rows read_csv_auto samples to infer types.
	// Zero keeps DuckDB's default; -1 samples the whole file.
	SampleSize int `mapstructure:"sample_size"`
}

// ParseParams decodes the adapter params map. Scalar values are converted
// to the field types, so `threads: 2` and `threads: "2"` are equivalent.
func ParseParams(input map[string]any) (*Params, error) {
	p := &Params{}
	if len(input) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}
