package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"songplaydw/pkg/errors"
	"songplaydw/pkg/models"
)

const (
	filePermissionSecure = 0600
	dirPermissionSecure  = 0700
)

const iniTemplate = `[CLUSTER]
HOST=
DB_NAME=dev
DB_USER=awsuser
DB_PASSWORD=
DB_PORT=5439
STATEMENT_TIMEOUT=0s

[IAM_ROLE]
ARN=

[S3]
LOG_DATA='s3://udacity-dend/log_data'
LOG_JSONPATH='s3://udacity-dend/log_json_path.json'
SONG_DATA='s3://udacity-dend/song_data'
REGION=us-west-2

[WAREHOUSE]
DIALECT=redshift
`

// Template returns the configuration written by 'config init' in YAML form.
func Template() models.Config {
	return models.Config{
		Cluster: models.Cluster{
			DBName: "dev",
			DBUser: "awsuser",
			DBPort: 5439,
		},
		S3: models.S3{
			LogData:     "s3://udacity-dend/log_data",
			LogJSONPath: "s3://udacity-dend/log_json_path.json",
			SongData:    "s3://udacity-dend/song_data",
			Region:      DefaultRegion,
		},
		Warehouse: models.Warehouse{Dialect: models.DialectRedshift},
	}
}

// WriteTemplate writes a template configuration to path in the given format (ini or yaml).
// An existing file is only replaced when overwrite is set.
func WriteTemplate(path, format string, overwrite bool) error {
	var data []byte
	switch format {
	case "ini", "":
		data = []byte(iniTemplate)
	case "yaml", "yml":
		out, err := yaml.Marshal(Template())
		if err != nil {
			return fmt.Errorf("failed to marshal template: %w", err)
		}
		data = out
	default:
		return errors.ConfigError(fmt.Sprintf("Unsupported template format %q", format), "format").
			WithSuggestions("Use ini or yaml")
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return errors.New(errors.ErrCodeConfigInvalid, "Configuration file already exists").
			WithContext("path", path).
			WithSuggestions("Pass --force to overwrite it")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPermissionSecure); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, filePermissionSecure); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Render returns the effective configuration as YAML with the password redacted.
func Render(cfg *models.Config) ([]byte, error) {
	return yaml.Marshal(cfg.Redacted())
}
