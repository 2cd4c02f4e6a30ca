// Package pipeline runs the ELT stages: schema reset, staging load, transforms
// and the row-count audit. Each stage executes its statements one at a time on
// the warehouse's single connection and stops at the first failure.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"songplaydw/internal/catalog"
	"songplaydw/internal/catalog/jsonpaths"
	"songplaydw/internal/observability"
	"songplaydw/internal/storage"
	"songplaydw/internal/warehouse"
	"songplaydw/pkg/errors"
)

// Warehouse is the session the stages run against.
type Warehouse interface {
	Exec(ctx context.Context, stmt catalog.Statement) error
	Atomic(ctx context.Context, fn func(tx warehouse.Execer) error) error
	Count(ctx context.Context, stmt catalog.Statement) (int64, error)
	CopyFrom(ctx context.Context, stmt catalog.Statement, columns []string, src pgx.CopyFromSource) (int64, error)
}

// ObjectStore reads the raw data.
type ObjectStore interface {
	List(ctx context.Context, loc storage.Location) ([]storage.Object, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, loc storage.Location) (bool, error)
	HasObjects(ctx context.Context, loc storage.Location) (bool, error)
	FetchMapping(ctx context.Context, raw string) (*jsonpaths.Mapping, error)
}

// Options are shared by every stage.
type Options struct {
	Logger  *zap.Logger
	Metrics *observability.Registry
	// Plan receives the statements instead of the warehouse when set.
	Plan io.Writer
}

// runner executes statements with logging and metrics.
type runner struct {
	dialect string
	logger  *zap.Logger
	metrics *observability.Registry
	plan    io.Writer
}

func newRunner(cat *catalog.Catalog, opts Options) runner {
	r := runner{
		dialect: cat.Dialect().Name(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		plan:    opts.Plan,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.metrics == nil {
		r.metrics = observability.NewRegistry()
	}
	return r
}

func (r runner) dryRun() bool {
	return r.plan != nil
}

func (r runner) write(stmt catalog.Statement) {
	fmt.Fprintf(r.plan, "-- %s\n%s;\n\n", stmt.Name, stmt.SQL)
}

func (r runner) exec(ctx context.Context, ex warehouse.Execer, stmt catalog.Statement) error {
	if r.dryRun() {
		r.write(stmt)
		return nil
	}

	elapsed, err := r.execute(ctx, ex, stmt)
	if err != nil {
		return err
	}
	r.logger.Info("Completed "+stmt.Name, zap.String("table", stmt.Table), zap.Duration("elapsed", elapsed))
	return nil
}

// execute runs stmt and records its metrics. The caller logs completion.
func (r runner) execute(ctx context.Context, ex warehouse.Execer, stmt catalog.Statement) (time.Duration, error) {
	r.logger.Debug("Running "+stmt.Name, zap.String("table", stmt.Table), zap.String("sql", stmt.SQL))
	start := time.Now()
	err := ex.Exec(ctx, stmt)
	elapsed := time.Since(start)
	r.metrics.Timer("statement_duration").Observe(elapsed)
	if err != nil {
		r.metrics.Counter(observability.StatementsFailed).Inc()
		return elapsed, r.annotate(err)
	}

	r.metrics.Counter(observability.StatementsExecuted).Inc()
	return elapsed, nil
}

// annotate adds the dialect to a statement error.
func (r runner) annotate(err error) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		appErr.WithContext("dialect", r.dialect)
	}
	return err
}
