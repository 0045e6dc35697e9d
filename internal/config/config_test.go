package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:               "8080",
		Env:                "development",
		StoreBackend:       BackendPostgres,
		DBPassword:         "secure-password",
		DBSSLMode:          "require",
		MongoURL:           "mongodb://localhost:27017",
		TracingSampleRatio: 1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown backend", func(c *Config) { c.StoreBackend = "cassandra" }, true},
		{"mongo without url", func(c *Config) { c.StoreBackend = BackendMongo; c.MongoURL = "" }, true},
		{"sqlite in development", func(c *Config) { c.StoreBackend = BackendSQLite }, false},
		{"sqlite in production", func(c *Config) { c.Env = "production"; c.StoreBackend = BackendSQLite }, true},
		{"production with default password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"production with ssl disabled", func(c *Config) { c.Env = "prod"; c.DBSSLMode = "disable" }, true},
		{"production with ssl required", func(c *Config) { c.Env = "production" }, false},
		{"production mongo ignores db password", func(c *Config) {
			c.Env = "production"
			c.StoreBackend = BackendMongo
			c.DBPassword = ""
		}, false},
		{"sample ratio above one", func(c *Config) { c.TracingSampleRatio = 1.5 }, true},
		{"negative parallelism", func(c *Config) { c.GatherParallelism = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	defer viper.Reset()
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_BACKEND", "  SQLite ")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("CASCADE_TRANSACTIONS", "true")
	t.Setenv("CACHE_TTL_SECONDS", "42")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, c.StoreBackend)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.True(t, c.CascadeTransactions)
	assert.Equal(t, 42, c.CacheTTLSeconds)
	assert.Equal(t, 4, c.GatherParallelism)
	assert.False(t, c.IsProduction())
}

func TestLoadConfig_MissingProfileFile(t *testing.T) {
	defer viper.Reset()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()
	t.Setenv("APP_ENV", "staging")

	_, err = LoadConfig()
	assert.Error(t, err)
}
