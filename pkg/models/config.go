package models

import "time"

// Config is the full pipeline configuration. Section and key names follow the
// classic dwh.cfg layout so an existing INI file loads unchanged.
type Config struct {
	Cluster   Cluster   `yaml:"cluster" mapstructure:"cluster"`
	IAMRole   IAMRole   `yaml:"iam_role" mapstructure:"iam_role"`
	S3        S3        `yaml:"s3" mapstructure:"s3"`
	Warehouse Warehouse `yaml:"warehouse" mapstructure:"warehouse"`
}

// Cluster holds the warehouse connection settings.
type Cluster struct {
	Host             string        `yaml:"host" mapstructure:"host"`
	DBName           string        `yaml:"db_name" mapstructure:"db_name"`
	DBUser           string        `yaml:"db_user" mapstructure:"db_user"`
	DBPassword       string        `yaml:"db_password" mapstructure:"db_password"`
	DBPort           int           `yaml:"db_port" mapstructure:"db_port"`
	SSLMode          string        `yaml:"sslmode,omitempty" mapstructure:"sslmode"`
	StatementTimeout time.Duration `yaml:"statement_timeout,omitempty" mapstructure:"statement_timeout"`
}

// IAMRole identifies the role the warehouse assumes to read from S3.
type IAMRole struct {
	ARN string `yaml:"arn" mapstructure:"arn"`
}

// S3 holds the object-storage locations of the raw data.
type S3 struct {
	LogData     string `yaml:"log_data" mapstructure:"log_data"`
	LogJSONPath string `yaml:"log_jsonpath" mapstructure:"log_jsonpath"`
	SongData    string `yaml:"song_data" mapstructure:"song_data"`
	Region      string `yaml:"region" mapstructure:"region"`
}

// Warehouse selects the target engine and carries engine-specific settings.
// Account, Warehouse and Role are only read by the snowflake dialect.
type Warehouse struct {
	Dialect   string `yaml:"dialect" mapstructure:"dialect"`
	Account   string `yaml:"account,omitempty" mapstructure:"account"`
	Warehouse string `yaml:"warehouse,omitempty" mapstructure:"warehouse"`
	Role      string `yaml:"role,omitempty" mapstructure:"role"`
	Schema    string `yaml:"schema,omitempty" mapstructure:"schema"`
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Cluster.DBPassword != "" {
		c.Cluster.DBPassword = "********"
	}
	return c
}

// Supported warehouse dialects.
const (
	DialectRedshift  = "redshift"
	DialectSnowflake = "snowflake"
	DialectPostgres  = "postgres"
)
