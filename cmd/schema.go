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
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/partseq/internal/filereader"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

func init() {
	cmd := &cobra.Command{
		Use:   "schema FILE",
		Short: "Print the columns and inferred types of an input file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			format, err := c.Flags().GetString("input-format")
			if err != nil {
				return fmt.Errorf("failed to get input-format flag: %w", err)
			}
			return runSchema(c, args[0], format)
		},
	}

	rootCmd.AddCommand(cmd)

	cmd.Flags().String("input-format", "", "Input format override: csv, jsonl or parquet")
}

func runSchema(c *cobra.Command, filename, format string) error {
	reader, err := filereader.ReaderForFile(filename, filereader.ReaderOptions{Format: format})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	sr, ok := reader.(filereader.SchemaReader)
	if !ok || sr.GetSchema() == nil {
		return fmt.Errorf("%s: schema is not known before reading", filename)
	}

	tw := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLS ONLY")
	for _, col := range sr.GetSchema().Columns() {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", wkk.RowKeyValue(col.Name), col.DataType, !col.HasNonNull)
	}
	return tw.Flush()
}
