package warehouse

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/snowflakedb/gosnowflake"

	"songplaydw/pkg/models"
)

// Config holds warehouse connection configuration
type Config struct {
	Dialect  string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Snowflake only
	Account   string
	Warehouse string
	Role      string
	Schema    string

	// StatementTimeout bounds each statement; zero means no bound.
	StatementTimeout time.Duration
}

// ConfigFrom maps the loaded configuration onto connection settings.
func ConfigFrom(cfg *models.Config) Config {
	return Config{
		Dialect:          cfg.Warehouse.Dialect,
		Host:             cfg.Cluster.Host,
		Port:             cfg.Cluster.DBPort,
		Database:         cfg.Cluster.DBName,
		Username:         cfg.Cluster.DBUser,
		Password:         cfg.Cluster.DBPassword,
		SSLMode:          cfg.Cluster.SSLMode,
		Account:          cfg.Warehouse.Account,
		Warehouse:        cfg.Warehouse.Warehouse,
		Role:             cfg.Warehouse.Role,
		Schema:           cfg.Warehouse.Schema,
		StatementTimeout: cfg.Cluster.StatementTimeout,
	}
}

// DriverName is the database/sql driver for the dialect. Redshift speaks the
// Postgres wire protocol.
func (c Config) DriverName() string {
	if c.Dialect == models.DialectSnowflake {
		return "snowflake"
	}
	return "pgx"
}

// DSN renders the connection string for DriverName.
func (c Config) DSN() (string, error) {
	if c.Dialect == models.DialectSnowflake {
		return gosnowflake.DSN(&gosnowflake.Config{
			Account:   c.Account,
			User:      c.Username,
			Password:  c.Password,
			Database:  c.Database,
			Schema:    c.Schema,
			Warehouse: c.Warehouse,
			Role:      c.Role,
		})
	}

	if c.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	q.Set("sslmode", c.sslMode())
	q.Set("application_name", "songplaydw")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Target identifies the warehouse in logs without exposing credentials.
func (c Config) Target() string {
	if c.Dialect == models.DialectSnowflake {
		return c.Account + "/" + c.Database
	}
	return c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.Database
}

func (c Config) sslMode() string {
	if c.SSLMode != "" {
		return c.SSLMode
	}
	if c.Dialect == models.DialectRedshift {
		return "require"
	}
	return "prefer"
}
