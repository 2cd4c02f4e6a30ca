package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"songplaydw/internal/catalog"
)

// TableCount is one row of the audit.
type TableCount struct {
	Table   string        `json:"table"`
	Role    string        `json:"role"`
	Count   int64         `json:"count"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Report is the result of an audit, in catalog order.
type Report struct {
	Dialect string       `json:"dialect"`
	Counts  []TableCount `json:"counts"`
}

// Count returns the row count recorded for table.
func (r *Report) Count(table string) (int64, bool) {
	for _, c := range r.Counts {
		if c.Table == table {
			return c.Count, true
		}
	}
	return 0, false
}

// Auditor counts the rows of every table. It never writes.
type Auditor struct {
	catalog *catalog.Catalog
	wh      Warehouse
	run     runner
}

// NewAuditor creates an auditor
func NewAuditor(cat *catalog.Catalog, wh Warehouse, opts Options) *Auditor {
	return &Auditor{catalog: cat, wh: wh, run: newRunner(cat, opts)}
}

// Run executes the seven counts. The first failing query aborts the audit.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	report := &Report{Dialect: a.run.dialect}

	for _, stmt := range a.catalog.Counts() {
		if a.run.dryRun() {
			a.run.write(stmt)
			continue
		}

		a.run.logger.Debug("Running "+stmt.SQL, zap.String("table", stmt.Table))
		start := time.Now()
		n, err := a.wh.Count(ctx, stmt)
		if err != nil {
			return nil, a.run.annotate(err)
		}

		role := ""
		if t, ok := catalog.TableByName(stmt.Table); ok {
			role = string(t.Role)
		}
		report.Counts = append(report.Counts, TableCount{
			Table:   stmt.Table,
			Role:    role,
			Count:   n,
			Elapsed: time.Since(start),
		})
	}
	return report, nil
}
