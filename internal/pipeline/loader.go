package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"songplaydw/internal/catalog"
	"songplaydw/internal/catalog/jsonpaths"
	"songplaydw/internal/observability"
	"songplaydw/internal/staging"
	"songplaydw/internal/storage"
	"songplaydw/pkg/errors"
)

// StageLoader bulk-loads staging_events and staging_songs. Loads append; the
// tables are cleared only by a schema reset.
type StageLoader struct {
	catalog *catalog.Catalog
	wh      Warehouse
	store   ObjectStore
	run     runner
}

// NewStageLoader creates a stage loader. store may be nil for dialects whose
// engine reads S3 itself.
func NewStageLoader(cat *catalog.Catalog, wh Warehouse, store ObjectStore, opts Options) *StageLoader {
	return &StageLoader{catalog: cat, wh: wh, store: store, run: newRunner(cat, opts)}
}

// Load runs the copies for staging_events then staging_songs. Rows loaded
// before a failure are governed by the engine's bulk-load semantics.
func (l *StageLoader) Load(ctx context.Context) error {
	var mapping *jsonpaths.Mapping
	if l.catalog.NeedsPathMapping() {
		if l.store == nil {
			return errors.New(errors.ErrCodeInternal, "No object store for a dialect that reads S3 client-side").
				WithContext("dialect", l.run.dialect)
		}
		m, err := l.store.FetchMapping(ctx, l.catalog.Sources().LogJSONPath)
		if err != nil {
			return err
		}
		mapping = m
		l.run.logger.Debug("Fetched jsonpaths", zap.String("location", l.catalog.Sources().LogJSONPath), zap.Int("paths", len(m.Paths)))
	}

	stmts, err := l.catalog.Copies(mapping)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		if stmt.Kind == catalog.KindClientCopy {
			err = l.clientCopy(ctx, stmt)
		} else {
			err = l.run.exec(ctx, l.wh, stmt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// clientCopy streams every object under stmt.Source through COPY FROM STDIN.
func (l *StageLoader) clientCopy(ctx context.Context, stmt catalog.Statement) error {
	if l.run.dryRun() {
		l.run.write(stmt)
		return nil
	}

	table, ok := catalog.TableByName(stmt.Table)
	if !ok {
		return errors.New(errors.ErrCodeInternal, fmt.Sprintf("Unknown staging table %s", stmt.Table))
	}
	loc, err := storage.ParseLocation(stmt.Source)
	if err != nil {
		return err
	}

	objects, err := l.store.List(ctx, loc)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return errors.New(errors.ErrCodeObjectNotFound, "No objects to load").
			WithContext("location", stmt.Source).
			WithContext("table", stmt.Table)
	}

	extract := staging.ByColumn(table)
	if stmt.Mapping != nil {
		extract = staging.ByMapping(stmt.Mapping)
	}

	src := staging.NewSource(ctx, l.store, loc.Bucket, objects, table, extract)
	defer src.Close()

	l.run.logger.Debug("Running "+stmt.Name,
		zap.String("table", stmt.Table),
		zap.String("location", stmt.Source),
		zap.Int("objects", len(objects)))

	start := time.Now()
	rows, err := l.wh.CopyFrom(ctx, stmt, table.ColumnNames(), src)
	elapsed := time.Since(start)
	l.run.metrics.Timer("statement_duration").Observe(elapsed)
	if err != nil {
		l.run.metrics.Counter(observability.StatementsFailed).Inc()
		// a malformed record says more than the aborted COPY
		if srcErr := src.Err(); srcErr != nil {
			return l.run.annotate(srcErr)
		}
		return l.run.annotate(err)
	}

	l.run.metrics.Counter(observability.StatementsExecuted).Inc()
	l.run.metrics.Counter(observability.RowsCopied).Add(rows)
	l.run.metrics.Counter(observability.ObjectsRead).Add(int64(len(objects)))
	l.run.logger.Info("Completed "+stmt.Name,
		zap.String("table", stmt.Table),
		zap.Int64("rows", rows),
		zap.Int("objects", len(objects)),
		zap.Duration("elapsed", elapsed))
	return nil
}
