package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"songplaydw/internal/catalog"
	"songplaydw/internal/config"
	"songplaydw/internal/observability"
	"songplaydw/internal/pipeline"
	"songplaydw/internal/storage"
	"songplaydw/internal/warehouse"
	"songplaydw/pkg/models"
)

// session is what every pipeline command works with: validated configuration,
// the catalog, a run-tagged logger and, outside dry runs, a warehouse connection.
type session struct {
	config  *models.Config
	catalog *catalog.Catalog
	logger  *zap.Logger
	metrics *observability.Registry
	service *warehouse.Service
}

// loadConfig reads the configuration. --dialect takes precedence over the file
// and the environment.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	v, err := config.NewViper(config.ResolveConfigFile(cfgFile))
	if err != nil {
		return nil, err
	}
	if err := v.BindPFlag("warehouse.dialect", cmd.Root().PersistentFlags().Lookup("dialect")); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// openSession loads and validates the configuration. It does not connect.
func openSession(cmd *cobra.Command) (*session, error) {
	logger, err := observability.NewLogger(observability.LoggerConfig{Level: logLevel, Format: logFormat})
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{
		config:  cfg,
		catalog: cat,
		logger:  observability.WithRun(logger, observability.NewRunID(), cfg.Warehouse.Dialect),
		metrics: observability.NewRegistry(),
	}

	return s, nil
}

// connect opens the warehouse connection. A dry run never connects.
func (s *session) connect(ctx context.Context) error {
	if dryRun {
		return nil
	}
	if err := config.ValidateCluster(s.config); err != nil {
		return err
	}
	service := warehouse.NewService(warehouse.ConfigFrom(s.config))
	if err := service.Connect(ctx); err != nil {
		return err
	}
	s.service = service
	s.logger.Debug("Connected", zap.String("target", service.Config().Target()))
	return nil
}

// options returns the stage options. A dry run writes the statements to the
// command's output.
func (s *session) options(cmd *cobra.Command) pipeline.Options {
	opts := pipeline.Options{Logger: s.logger, Metrics: s.metrics}
	if dryRun {
		opts.Plan = cmd.OutOrStdout()
	}
	return opts
}

// warehouse returns the connection as a stage dependency, nil during a dry run.
func (s *session) warehouse() pipeline.Warehouse {
	if s.service == nil {
		return nil
	}
	return s.service
}

// objectStore opens an S3 client in the configured region.
func (s *session) objectStore(ctx context.Context) (*storage.Store, error) {
	return storage.New(ctx, s.config.S3.Region)
}

func (s *session) Close() {
	if s.service != nil {
		if err := s.service.Close(); err != nil {
			s.logger.Warn("Failed to close warehouse connection", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}
