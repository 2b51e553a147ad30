package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults_AreValid(t *testing.T) {
	cfg := defaultConfig(t)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "INR", cfg.Checkout.Currency)
	assert.Equal(t, "memory", cfg.Pending.Store)
	assert.Equal(t, uint(20), cfg.Loader.PollAttempts)
}

func TestValidate_RejectsBadCurrency(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Checkout.Currency = "RUPEES"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout.currency")
}

func TestValidate_RejectsUnknownPendingStore(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Pending.Store = "dynamo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending.store")
}

func TestValidate_PostgresStoreNeedsDatabase(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Pending.Store = "postgres"
	cfg.Database.Host = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestValidate_RequiresScriptURL(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Loader.ScriptURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader.script_url")
}

func TestScriptTimeout_LongerForEmbedded(t *testing.T) {
	cfg := defaultConfig(t)
	assert.Equal(t, 12*time.Second, cfg.Loader.ScriptTimeout(true))
	assert.Equal(t, 8*time.Second, cfg.Loader.ScriptTimeout(false))
	assert.Greater(t, cfg.Loader.ScriptTimeout(true), cfg.Loader.ScriptTimeout(false))
}

func TestBackendURLs(t *testing.T) {
	cfg := defaultConfig(t)
	assert.Equal(t, "http://localhost:8080/api/payments/order", cfg.Backend.OrderURL())
	assert.Equal(t, "http://localhost:8080/api/payments/verify", cfg.Backend.VerifyURL())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := defaultConfig(t)
	dsn := cfg.Database.DatabaseDSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=checkout")
	assert.Contains(t, dsn, "sslmode=disable")
}
