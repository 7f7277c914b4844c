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


package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/partseq/config"
	"github.com/cardinalhq/partseq/internal/partseq"
	"github.com/cardinalhq/partseq/internal/runner"
)

func init() {
	rootCmd.AddCommand(newNumberCmd())
	rootCmd.AddCommand(newCheckCmd())
}

func newNumberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "number [flags] INPUT...",
		Short: "Add a partition row number column to each input",
		Long: `Number rows within partitions. Every INPUT (a local file or s3://bucket/key)
and every --sql query is an independent stream with its own numbering.`,
		Example: `  partseq number --key region --key ts:timestamp events.parquet
  partseq number --key user --output-dir s3://bucket/numbered/ s3://bucket/raw/a.csv.gz
  partseq number --key k --output out.jsonl --sql "SELECT * FROM read_csv('in.csv') ORDER BY k"`,
		RunE: func(c *cobra.Command, args []string) error {
			return runCommand(c, args, false)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().String("format", "", "Output format: csv, jsonl or parquet (default: input format)")
	cmd.Flags().StringP("output", "o", "", "Output path or s3:// URI (single input only)")
	cmd.Flags().String("output-dir", "", "Directory or s3:// prefix for <input>.numbered.<ext> files")
	cmd.Flags().String("output-column", "", "Name of the row number column (default row_number)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] INPUT...",
		Short: "Verify inputs are consistently sorted by the partition keys",
		Long: `Read every input through the sequencer without writing output, and report
the inferred sort direction of each key column.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runCommand(c, args, true)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("key", "k", nil, "Partition key column as name[:kind]; repeat for more columns")
	cmd.Flags().StringArray("sql", nil, "DuckDB query to use as an input stream; may be repeated")
	cmd.Flags().String("input-format", "", "Input format override: csv, jsonl or parquet")
	cmd.Flags().Int("workers", 0, "Number of inputs processed concurrently (default GOMAXPROCS)")
	cmd.Flags().Int("batch-size", 0, "Rows per batch")
	cmd.Flags().String("tmp-dir", "", "Directory for staging and spill files")
	cmd.Flags().String("s3-endpoint", "", "Custom S3 endpoint, eg MinIO")
	cmd.Flags().String("s3-region", "", "S3 region override")
	cmd.Flags().Bool("s3-path-style", false, "Use path-style S3 addressing")
}

// applyFlags overlays flags that were explicitly set on top of cfg.
func applyFlags(c *cobra.Command, cfg *runner.Config) error {
	flags := c.Flags()
	var errs []error
	str := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			v, err := flags.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			v, err := flags.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	if f := flags.Lookup("key"); f != nil && f.Changed {
		keys, err := flags.GetStringArray("key")
		errs = append(errs, err)
		cfg.Keys = keys
	}
	str("format", &cfg.Format)
	str("input-format", &cfg.InputFormat)
	str("output", &cfg.Output)
	str("output-dir", &cfg.OutputDir)
	str("output-column", &cfg.OutputColumn)
	str("tmp-dir", &cfg.TmpDir)
	str("s3-endpoint", &cfg.Storage.Endpoint)
	str("s3-region", &cfg.Storage.Region)
	num("workers", &cfg.Workers)
	num("batch-size", &cfg.BatchSize)
	if f := flags.Lookup("s3-path-style"); f != nil && f.Changed {
		v, err := flags.GetBool("s3-path-style")
		errs = append(errs, err)
		cfg.Storage.PathStyle = v
	}
	return errors.Join(errs...)
}

func sourcesFromArgs(c *cobra.Command, args []string) ([]runner.Source, error) {
	queries, err := c.Flags().GetStringArray("sql")
	if err != nil {
		return nil, err
	}
	sources := make([]runner.Source, 0, len(args)+len(queries))
	for _, a := range args {
		sources = append(sources, runner.Source{URI: a})
	}
	for _, q := range queries {
		sources = append(sources, runner.Source{SQL: q})
	}
	if len(sources) == 0 {
		return nil, errors.New("no inputs: pass files or s3:// URIs as arguments, or use --sql")
	}
	return sources, nil
}

func runCommand(c *cobra.Command, args []string, checkOnly bool) error {
	appcfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := appcfg.Runner
	if err := applyFlags(c, &cfg); err != nil {
		return err
	}
	cfg.CheckOnly = checkOnly

	sources, err := sourcesFromArgs(c, args)
	if err != nil {
		return err
	}

	ctx, doneFx, err := setupTelemetry("partseq")
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		if err := doneFx(); err != nil {
			slog.Error("Error shutting down telemetry", slog.Any("error", err))
		}
	}()

	results, err := runner.Run(ctx, cfg, sources)
	for _, res := range results {
		if res.Err == nil {
			reportResult(res, checkOnly)
		}
	}
	return err
}

func reportResult(res runner.Result, checkOnly bool) {
	attrs := []any{
		slog.String("input", res.Source.Name()),
		slog.Int64("rows", res.Rows),
		slog.Int64("partitions", res.Partitions),
		slog.String("directions", formatDirections(res.Columns, res.Directions)),
	}
	if checkOnly {
		slog.Info("Input is consistently sorted", attrs...)
		return
	}
	slog.Info("Numbered input", append(attrs, slog.String("output", res.Output))...)
}

func formatDirections(cols []partseq.ColumnSpec, dirs []partseq.Direction) string {
	parts := make([]string, len(dirs))
	for i, d := range dirs {
		name := fmt.Sprintf("_%d", i)
		if i < len(cols) {
			name = cols[i].Name
		}
		parts[i] = name + "=" + d.String()
	}
	return strings.Join(parts, ",")
}
