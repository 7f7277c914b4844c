// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.


package runner

import (
	"fmt"
	"runtime"

	"github.com/cardinalhq/partseq/internal/partseq"
	"github.com/cardinalhq/partseq/internal/rowwriter"
	"github.com/cardinalhq/partseq/internal/storage"
	"github.com/cardinalhq/partseq/pipeline"
)

// Config controls a run. Keys use the "name[:kind]" form.
type Config struct {
	Keys         []string `mapstructure:"keys"`
	OutputColumn string   `mapstructure:"output_column"`
	// Format is the output format. Empty keeps the input's format when it
	// is writable, and falls back to jsonl.
	Format string `mapstructure:"format"`
	// InputFormat overrides extension based input detection.
	InputFormat string `mapstructure:"input_format"`
	// Output is a single destination, only valid with one input.
	Output string `mapstructure:"output"`
	// OutputDir receives "<input>.numbered.<ext>" files. It may be an
	// s3:// prefix. Empty writes next to local inputs.
	OutputDir string `mapstructure:"output_dir"`
	Workers   int    `mapstructure:"workers"`
	BatchSize int    `mapstructure:"batch_size"`
	TmpDir    string `mapstructure:"tmp_dir"`
	// CheckOnly validates ordering without writing output.
	CheckOnly bool `mapstructure:"check_only"`

	DuckDB  DuckDBConfig   `mapstructure:"duckdb"`
	Storage storage.Config `mapstructure:"storage"`
}

type DuckDBConfig struct {
	MemoryLimitMB int64    `mapstructure:"memory_limit_mb"`
	Threads       int      `mapstructure:"threads"`
	Extensions    []string `mapstructure:"extensions"`
}

func DefaultConfig() Config {
	return Config{
		OutputColumn: "row_number",
		Workers:      runtime.GOMAXPROCS(0),
		BatchSize:    pipeline.DefaultBatchSize,
		DuckDB: DuckDBConfig{
			MemoryLimitMB: 1024,
		},
		Storage: storage.DefaultConfig(),
	}
}

// Validate checks settings that would fail every stream.
func (c Config) Validate() error {
	if len(c.Keys) == 0 {
		return &partseq.ConfigurationError{Column: -1, Reason: "at least one partition key is required"}
	}
	cols, err := partseq.ParseColumnSpecs(c.Keys)
	if err != nil {
		return err
	}
	if _, err := partseq.New(cols...); err != nil {
		return err
	}
	if c.Format != "" {
		if _, err := rowwriter.ParseFormat(c.Format); err != nil {
			return err
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize)
	}
	return nil
}
