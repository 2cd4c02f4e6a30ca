package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigYAMLKeys(t *testing.T) {
	config := Config{
		Cluster: Cluster{
			Host:             "dwh.abc123.us-west-2.redshift.amazonaws.com",
			DBName:           "dev",
			DBUser:           "awsuser",
			DBPassword:       "secret",
			DBPort:           5439,
			StatementTimeout: 5 * time.Minute,
		},
		IAMRole: IAMRole{ARN: "arn:aws:iam::123456789012:role/dwhRole"},
		S3: S3{
			LogData:     "s3://udacity-dend/log_data",
			LogJSONPath: "s3://udacity-dend/log_json_path.json",
			SongData:    "s3://udacity-dend/song_data",
			Region:      "us-west-2",
		},
		Warehouse: Warehouse{Dialect: "redshift"},
	}

	data, err := yaml.Marshal(config)
	require.NoError(t, err)

	text := string(data)
	for _, key := range []string{"cluster:", "db_name:", "iam_role:", "log_jsonpath:", "song_data:", "dialect:"} {
		assert.Contains(t, text, key)
	}
	assert.NotContains(t, text, "account:", "snowflake-only keys are omitted when empty")
}

func TestRedacted(t *testing.T) {
	config := Config{Cluster: Cluster{DBPassword: "secret", DBUser: "awsuser"}}

	redacted := config.Redacted()

	assert.Equal(t, "********", redacted.Cluster.DBPassword)
	assert.Equal(t, "awsuser", redacted.Cluster.DBUser)
	assert.Equal(t, "secret", config.Cluster.DBPassword, "original must be untouched")
	assert.Empty(t, Config{}.Redacted().Cluster.DBPassword)
}
