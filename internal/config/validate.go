package config

import (
	"fmt"
	"strings"

	"songplaydw/pkg/errors"
	"songplaydw/pkg/models"
)

// ValidateDialect reports whether name is a supported warehouse dialect.
func ValidateDialect(name string) error {
	switch name {
	case models.DialectRedshift, models.DialectSnowflake, models.DialectPostgres:
		return nil
	}
	return errors.ConfigError(fmt.Sprintf("Unsupported warehouse dialect %q", name), "warehouse.dialect").
		WithSuggestions("Use one of: redshift, snowflake, postgres")
}

// ValidateSources checks the keys the bulk-load statements are built from. The role
// ARN is only needed by dialects whose engine reads S3 itself.
func ValidateSources(cfg *models.Config) error {
	if err := ValidateDialect(cfg.Warehouse.Dialect); err != nil {
		return err
	}

	required := []struct {
		key   string
		value string
	}{
		{"s3.log_data", cfg.S3.LogData},
		{"s3.log_jsonpath", cfg.S3.LogJSONPath},
		{"s3.song_data", cfg.S3.SongData},
	}
	if cfg.Warehouse.Dialect != models.DialectPostgres {
		required = append(required, struct {
			key   string
			value string
		}{"iam_role.arn", cfg.IAMRole.ARN})
	}

	for _, r := range required {
		if r.value == "" {
			return errors.MissingConfig(r.key)
		}
	}

	for _, loc := range []struct{ key, value string }{
		{"s3.log_data", cfg.S3.LogData},
		{"s3.log_jsonpath", cfg.S3.LogJSONPath},
		{"s3.song_data", cfg.S3.SongData},
	} {
		if !strings.HasPrefix(loc.value, "s3://") {
			return errors.ConfigError(fmt.Sprintf("%s must be an s3:// location, got %q", loc.key, loc.value), loc.key)
		}
	}

	return nil
}

// ValidateCluster checks the connection settings. It runs before any connection is attempted.
func ValidateCluster(cfg *models.Config) error {
	if err := ValidateDialect(cfg.Warehouse.Dialect); err != nil {
		return err
	}

	c := cfg.Cluster
	if cfg.Warehouse.Dialect == models.DialectSnowflake {
		if cfg.Warehouse.Account == "" {
			return errors.MissingConfig("warehouse.account")
		}
	} else {
		if c.Host == "" {
			return errors.MissingConfig("cluster.host")
		}
		if c.DBPort <= 0 || c.DBPort > 65535 {
			return errors.ConfigError(fmt.Sprintf("Invalid port %d", c.DBPort), "cluster.db_port")
		}
	}
	if c.DBName == "" {
		return errors.MissingConfig("cluster.db_name")
	}
	if c.DBUser == "" {
		return errors.MissingConfig("cluster.db_user")
	}
	if c.DBPassword == "" {
		return errors.MissingConfig("cluster.db_password").
			WithSuggestions("Run 'songplaydw credentials set' to store the password in the OS keyring")
	}
	if c.StatementTimeout < 0 {
		return errors.ConfigError("statement_timeout must not be negative", "cluster.statement_timeout")
	}
	return nil
}
