package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/encoding/ini"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"songplaydw/pkg/errors"
	"songplaydw/pkg/models"
)

const (
	// EnvPrefix prefixes every environment override, e.g. DWH_CLUSTER_HOST.
	EnvPrefix = "DWH"
	// DefaultRegion is the S3 region the bulk loaders use when none is configured.
	DefaultRegion = "us-west-2"
	// DefaultConfigEnv names the variable that points at a config file.
	DefaultConfigEnv = "SONGPLAYDW_CONFIG"
)

// keys lists every configuration key so environment overrides are visible to Unmarshal.
var keys = []string{
	"cluster.host",
	"cluster.db_name",
	"cluster.db_user",
	"cluster.db_password",
	"cluster.db_port",
	"cluster.sslmode",
	"cluster.statement_timeout",
	"iam_role.arn",
	"s3.log_data",
	"s3.log_jsonpath",
	"s3.song_data",
	"s3.region",
	"warehouse.dialect",
	"warehouse.account",
	"warehouse.warehouse",
	"warehouse.role",
	"warehouse.schema",
}

// GetConfigPath returns the per-user configuration directory.
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".songplaydw")
}

// SearchPaths returns the candidate config files, in lookup order.
func SearchPaths() []string {
	return []string{
		"dwh.cfg",
		"songplaydw.yaml",
		filepath.Join(GetConfigPath(), "config.yaml"),
	}
}

// ResolveConfigFile picks the config file to read: the explicit path, then
// $SONGPLAYDW_CONFIG, then the first existing search path. An empty result means
// configuration comes from the environment only.
func ResolveConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(DefaultConfigEnv); env != "" {
		return env
	}
	for _, candidate := range SearchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// configType maps a file extension to a viper config type. The classic dwh.cfg is INI.
func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return "ini"
	}
}

// NewViper builds a viper instance reading configFile (may be empty) with DWH_*
// environment overrides. A .env file in the working directory is loaded first when present.
func NewViper(configFile string) (*viper.Viper, error) {
	_ = godotenv.Load()

	codecs := viper.NewCodecRegistry()
	if err := codecs.RegisterCodec("ini", ini.Codec{}); err != nil {
		return nil, fmt.Errorf("failed to register ini codec: %w", err)
	}

	v := viper.NewWithOptions(viper.WithCodecRegistry(codecs))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	v.SetDefault("s3.region", DefaultRegion)
	v.SetDefault("warehouse.dialect", models.DialectRedshift)
	v.SetDefault("cluster.db_port", 5439)

	if configFile == "" {
		return v, nil
	}

	cleaned := filepath.Clean(configFile)
	if _, err := os.Stat(cleaned); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigNotFound, "Configuration file not found").
			WithContext("path", cleaned).
			WithSuggestions("Run 'songplaydw config init' to write a template")
	}

	v.SetConfigFile(cleaned)
	v.SetConfigType(configType(cleaned))
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to parse configuration file").
			WithContext("path", cleaned)
	}

	return v, nil
}

// Load decodes the configuration held by v, strips the quotes dwh.cfg values
// traditionally carry, and fills an empty password from the OS keyring.
func Load(v *viper.Viper) (*models.Config, error) {
	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to decode configuration")
	}

	normalize(&cfg)

	if cfg.Cluster.DBPassword == "" && cfg.Cluster.DBUser != "" {
		password, err := LookupPassword(cfg.Cluster)
		if err != nil {
			return nil, err
		}
		cfg.Cluster.DBPassword = password
	}

	return &cfg, nil
}

func normalize(cfg *models.Config) {
	for _, field := range []*string{
		&cfg.Cluster.Host,
		&cfg.Cluster.DBName,
		&cfg.Cluster.DBUser,
		&cfg.Cluster.DBPassword,
		&cfg.Cluster.SSLMode,
		&cfg.IAMRole.ARN,
		&cfg.S3.LogData,
		&cfg.S3.LogJSONPath,
		&cfg.S3.SongData,
		&cfg.S3.Region,
		&cfg.Warehouse.Account,
		&cfg.Warehouse.Warehouse,
		&cfg.Warehouse.Role,
		&cfg.Warehouse.Schema,
	} {
		*field = Unquote(*field)
	}
	cfg.Warehouse.Dialect = strings.ToLower(Unquote(cfg.Warehouse.Dialect))
	if cfg.S3.Region == "" {
		cfg.S3.Region = DefaultRegion
	}
}

// Unquote trims whitespace and one pair of matching surrounding quotes.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
