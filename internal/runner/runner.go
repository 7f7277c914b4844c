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


// Package runner numbers many independent inputs concurrently. Every
// input is its own stream with its own reader, Sequencer and writer.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/partseq/internal/duckdbx"
	"github.com/cardinalhq/partseq/internal/filereader"
	"github.com/cardinalhq/partseq/internal/helpers"
	"github.com/cardinalhq/partseq/internal/idgen"
	"github.com/cardinalhq/partseq/internal/logctx"
	"github.com/cardinalhq/partseq/internal/partseq"
	"github.com/cardinalhq/partseq/internal/rowwriter"
	"github.com/cardinalhq/partseq/internal/storage"
	"github.com/cardinalhq/partseq/pipeline"
)

// Source is one input stream: a file (local or s3://) or a DuckDB query.
type Source struct {
	URI string
	SQL string
}

// Name is how the source appears in logs and results.
func (s Source) Name() string {
	if s.SQL != "" {
		return "sql"
	}
	return s.URI
}

// Result describes one finished stream.
type Result struct {
	Source     Source
	StreamID   string
	Output     string
	Rows       int64
	Partitions int64
	Directions []partseq.Direction
	Columns    []partseq.ColumnSpec
	Duration   time.Duration
	Err        error
}

// Run numbers every source. Streams never share state, so one stream's
// failure does not stop or alter the others; all failures are returned
// together. The result slice is in source order.
func Run(ctx context.Context, cfg Config, sources []Source) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.New("no inputs")
	}
	if cfg.Output != "" && len(sources) > 1 {
		return nil, fmt.Errorf("a single output path cannot be used with %d inputs; use an output directory", len(sources))
	}
	columns, err := partseq.ParseColumnSpecs(cfg.Keys)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	ctx = logctx.With(ctx, slog.String("runID", runID))
	logger := logctx.FromContext(ctx)

	r := &run{cfg: cfg, columns: columns}
	if !cfg.CheckOnly {
		if err := r.planOutputs(sources); err != nil {
			return nil, err
		}
	}
	defer r.close()
	if err := r.setup(ctx, sources); err != nil {
		return nil, err
	}

	logger.Info("Starting run",
		slog.Int("inputs", len(sources)),
		slog.String("keys", partseq.DisplayString(columnNames(columns))),
		slog.Int("workers", cfg.Workers),
		slog.Bool("checkOnly", cfg.CheckOnly))

	results := make([]Result, len(sources))
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i, src := range sources {
		g.Go(func() error {
			res := r.stream(ctx, i, src)
			results[i] = res
			if res.Err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", src.Name(), res.Err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, errs.ErrorOrNil()
}

func columnNames(cols []partseq.ColumnSpec) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

type run struct {
	cfg     Config
	columns []partseq.ColumnSpec
	outputs []output
	store   *storage.Client
	db      *duckdbx.DB
}

type output struct {
	dest   string
	format rowwriter.Format
}

// planOutputs resolves every destination up front and rejects runs where
// two streams would write the same file.
func (r *run) planOutputs(sources []Source) error {
	seen := mapset.NewThreadUnsafeSet[string]()
	r.outputs = make([]output, len(sources))
	for i, src := range sources {
		dest, format, err := r.destination(i, src)
		if err != nil {
			return fmt.Errorf("%s: %w", src.Name(), err)
		}
		if seen.Contains(dest) {
			return fmt.Errorf("%s: output %s is also the output of another input", src.Name(), dest)
		}
		seen.Add(dest)
		r.outputs[i] = output{dest: dest, format: format}
	}
	return nil
}

// setup creates the shared clients only when a source or destination
// needs them.
func (r *run) setup(ctx context.Context, sources []Source) error {
	needStore, needDB := false, false
	for _, src := range sources {
		if src.SQL != "" {
			needDB = true
			continue
		}
		u, err := storage.ParseURI(src.URI)
		if err != nil {
			return err
		}
		needStore = needStore || u.IsRemote()
	}
	for _, dest := range []string{r.cfg.Output, r.cfg.OutputDir} {
		if dest == "" || r.cfg.CheckOnly {
			continue
		}
		if u, err := storage.ParseURI(dest); err == nil && u.IsRemote() {
			needStore = true
		}
	}

	if needStore {
		sc := r.cfg.Storage
		if sc.TmpDir == "" {
			sc.TmpDir = r.cfg.TmpDir
		}
		client, err := storage.NewClient(ctx, sc)
		if err != nil {
			return err
		}
		r.store = client
	}
	if needDB {
		opts := []duckdbx.Option{duckdbx.WithMemoryLimitMB(r.cfg.DuckDB.MemoryLimitMB)}
		if r.cfg.DuckDB.Threads > 0 {
			opts = append(opts, duckdbx.WithThreads(r.cfg.DuckDB.Threads))
		}
		if r.cfg.TmpDir != "" {
			opts = append(opts, duckdbx.WithTempDirectory(r.cfg.TmpDir))
		}
		for _, ext := range r.cfg.DuckDB.Extensions {
			opts = append(opts, duckdbx.WithExtension(ext))
		}
		db, err := duckdbx.Open("", opts...)
		if err != nil {
			return fmt.Errorf("open duckdb: %w", err)
		}
		r.db = db
	}
	return nil
}

func (r *run) close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

func (r *run) stream(ctx context.Context, index int, src Source) (res Result) {
	start := time.Now()
	res = Result{Source: src, StreamID: idgen.NextBase32ID()}
	ctx = logctx.With(ctx,
		slog.String("streamID", res.StreamID),
		slog.String("input", src.Name()))
	logger := logctx.FromContext(ctx)

	defer func() {
		res.Duration = time.Since(start)
		status := "ok"
		if res.Err != nil {
			status = "error"
			logger.Error("Stream failed", slog.Any("error", res.Err))
		} else {
			logger.Info("Stream complete",
				slog.Int64("rows", res.Rows),
				slog.Int64("partitions", res.Partitions),
				slog.String("output", res.Output),
				slog.Duration("duration", res.Duration))
		}
		attrs := metric.WithAttributes(attribute.String("status", status))
		streamDuration.Record(ctx, res.Duration.Seconds(), attrs)
		streamsCounter.Add(ctx, 1, attrs)
	}()

	reader, cleanup, err := r.openSource(ctx, src)
	if err != nil {
		res.Err = err
		return res
	}
	defer cleanup()

	res.Columns = resolveKinds(r.columns, reader)
	numbered, err := partseq.NewNumberingReader(reader, res.Columns, r.cfg.OutputColumn)
	if err != nil {
		_ = reader.Close()
		res.Err = err
		return res
	}
	defer func() {
		if err := numbered.Close(); err != nil && res.Err == nil {
			res.Err = err
		}
	}()

	if r.cfg.CheckOnly {
		res.Err = pipeline.Drain(ctx, numbered, func(pipeline.Row) error { return nil })
	} else {
		res.Output, res.Err = r.write(ctx, r.outputs[index], numbered, r.outputColumns(reader))
	}

	stats := numbered.Stats()
	res.Rows = stats.Rows
	res.Partitions = stats.Partitions
	res.Directions = stats.Directions
	return res
}

func noop() {}

func (r *run) openSource(ctx context.Context, src Source) (filereader.Reader, func(), error) {
	if src.SQL != "" {
		reader, err := filereader.NewDuckDBQueryReader(ctx, r.db, src.SQL, r.cfg.BatchSize)
		if err != nil {
			return nil, noop, err
		}
		return reader, noop, nil
	}

	u, err := storage.ParseURI(src.URI)
	if err != nil {
		return nil, noop, err
	}
	local, cleanup, err := storage.Localize(ctx, r.store, u)
	if err != nil {
		return nil, noop, err
	}
	reader, err := filereader.ReaderForFile(local, filereader.ReaderOptions{
		BatchSize: r.cfg.BatchSize,
		Format:    r.cfg.InputFormat,
	})
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return reader, cleanup, nil
}

// write streams numbered rows into a staging file, then publishes it to
// the destination. Nothing appears at the destination unless the whole
// stream succeeded.
func (r *run) write(ctx context.Context, out output, reader pipeline.Reader, columns []string) (string, error) {
	dest, format := out.dest, out.format
	destURI, err := storage.ParseURI(dest)
	if err != nil {
		return "", err
	}

	stageDir := r.cfg.TmpDir
	if !destURI.IsRemote() {
		stageDir = filepath.Dir(destURI.Path)
		if err := os.MkdirAll(stageDir, 0o755); err != nil {
			return "", err
		}
	}
	staging, err := os.CreateTemp(stageDir, ".partseq-*"+format.Extension())
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	stagingPath := staging.Name()
	_ = staging.Close()
	// a no-op once a local publish has renamed the file away
	defer func() { _ = os.Remove(stagingPath) }()

	w, err := rowwriter.Create(stagingPath, rowwriter.Config{
		Format:  format,
		TmpDir:  r.cfg.TmpDir,
		Columns: columns,
	})
	if err != nil {
		return "", err
	}

	for {
		batch, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = w.Close(ctx)
			return "", err
		}
		err = w.WriteBatch(ctx, batch)
		pipeline.ReturnBatch(batch)
		if err != nil {
			_ = w.Close(ctx)
			return "", err
		}
	}
	if err := w.Close(ctx); err != nil {
		return "", err
	}

	if err := storage.Publish(ctx, r.store, stagingPath, destURI); err != nil {
		return "", err
	}
	return dest, nil
}

type columnLister interface {
	Columns() []string
}

// outputColumns keeps the input's column order for CSV output, with the
// number column appended, when the reader knows its columns up front.
func (r *run) outputColumns(reader filereader.Reader) []string {
	cl, ok := reader.(columnLister)
	if !ok {
		return nil
	}
	output := r.cfg.OutputColumn
	if output == "" {
		output = "row_number"
	}
	cols := slices.DeleteFunc(slices.Clone(cl.Columns()), func(c string) bool { return c == output })
	return append(cols, output)
}

// destination picks the output path and format for a source.
func (r *run) destination(index int, src Source) (string, rowwriter.Format, error) {
	var format rowwriter.Format
	if r.cfg.Format != "" {
		f, err := rowwriter.ParseFormat(r.cfg.Format)
		if err != nil {
			return "", "", err
		}
		format = f
	}

	if r.cfg.Output != "" {
		if format == "" {
			f, err := rowwriter.FormatForPath(r.cfg.Output)
			if err != nil {
				return "", "", err
			}
			format = f
		}
		return r.cfg.Output, format, nil
	}

	base := fmt.Sprintf("query-%d", index)
	if src.SQL == "" {
		base = helpers.StripExtension(src.URI)
		if format == "" {
			if f, err := rowwriter.FormatForPath(src.URI); err == nil {
				format = f
			}
		}
	}
	if format == "" {
		format = rowwriter.FormatJSONL
	}
	name := base + ".numbered" + format.Extension()

	dir := r.cfg.OutputDir
	if dir == "" {
		if src.SQL != "" {
			return name, format, nil
		}
		u, err := storage.ParseURI(src.URI)
		if err != nil {
			return "", "", err
		}
		if u.IsRemote() {
			return u.Scheme + "://" + u.Bucket + "/" + path.Join(path.Dir(u.Key), name), format, nil
		}
		return filepath.Join(filepath.Dir(u.Path), name), format, nil
	}
	if u, err := storage.ParseURI(strings.TrimSuffix(dir, "/") + "/" + name); err == nil && u.IsRemote() {
		return u.String(), format, nil
	}
	return filepath.Join(dir, name), format, nil
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	return slices.DeleteFunc(slices.Clone(results), func(r Result) bool { return r.Err == nil })
}
