package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"songplaydw/internal/catalog"
	"songplaydw/internal/warehouse"
)

// TransformEngine populates the fact and dimension tables from staging.
type TransformEngine struct {
	catalog *catalog.Catalog
	wh      Warehouse
	run     runner
}

// NewTransformEngine creates a transform engine
func NewTransformEngine(cat *catalog.Catalog, wh Warehouse, opts Options) *TransformEngine {
	return &TransformEngine{catalog: cat, wh: wh, run: newRunner(cat, opts)}
}

// Run executes the five inserts in order. By default each insert commits on its
// own and a failure leaves the earlier inserts applied. With atomic set all five
// share one transaction and a failure rolls every one of them back.
func (e *TransformEngine) Run(ctx context.Context, atomic bool) error {
	stmts := e.catalog.Inserts()

	if !atomic {
		for _, stmt := range stmts {
			if err := e.run.exec(ctx, e.wh, stmt); err != nil {
				return err
			}
		}
		return nil
	}

	if e.run.dryRun() {
		fmt.Fprint(e.run.plan, "begin;\n\n")
		for _, stmt := range stmts {
			e.run.write(stmt)
		}
		fmt.Fprint(e.run.plan, "commit;\n\n")
		return nil
	}

	elapsed := make([]time.Duration, len(stmts))
	err := e.wh.Atomic(ctx, func(tx warehouse.Execer) error {
		for i, stmt := range stmts {
			d, err := e.run.execute(ctx, tx, stmt)
			if err != nil {
				return err
			}
			elapsed[i] = d
			e.run.logger.Debug("Executed "+stmt.Name+" in transaction", zap.String("table", stmt.Table), zap.Duration("elapsed", d))
		}
		return nil
	})
	if err != nil {
		e.run.logger.Warn("Transforms rolled back", zap.Int("statements", len(stmts)))
		return err
	}

	for i, stmt := range stmts {
		e.run.logger.Info("Completed "+stmt.Name, zap.String("table", stmt.Table), zap.Duration("elapsed", elapsed[i]))
	}
	e.run.logger.Info("Transforms committed", zap.Int("statements", len(stmts)))
	return nil
}
