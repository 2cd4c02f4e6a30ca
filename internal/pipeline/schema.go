package pipeline

import (
	"context"

	"go.uber.org/zap"

	"songplaydw/internal/catalog"
)

// SchemaManager drops and creates the seven tables.
type SchemaManager struct {
	catalog *catalog.Catalog
	wh      Warehouse
	run     runner
}

// NewSchemaManager creates a schema manager
func NewSchemaManager(cat *catalog.Catalog, wh Warehouse, opts Options) *SchemaManager {
	return &SchemaManager{catalog: cat, wh: wh, run: newRunner(cat, opts)}
}

// Drop runs "drop table if exists" for every table. Missing tables are not an error.
func (m *SchemaManager) Drop(ctx context.Context) error {
	return m.apply(ctx, m.catalog.Drops())
}

// Create creates every table.
func (m *SchemaManager) Create(ctx context.Context) error {
	return m.apply(ctx, m.catalog.Creates())
}

// Reset drops then creates. Statements committed before a failure stay committed.
func (m *SchemaManager) Reset(ctx context.Context) error {
	if err := m.Drop(ctx); err != nil {
		return err
	}
	if err := m.Create(ctx); err != nil {
		return err
	}
	m.run.logger.Info("Schema reset", zap.Int("tables", len(catalog.Tables())))
	return nil
}

func (m *SchemaManager) apply(ctx context.Context, stmts []catalog.Statement) error {
	for _, stmt := range stmts {
		if err := m.run.exec(ctx, m.wh, stmt); err != nil {
			return err
		}
	}
	return nil
}
