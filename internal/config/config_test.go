package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_ENV_PATH", "TELEGRAM_ADMIN_BOT_TOKEN", "ADMIN_CHAT_IDS", "FIRESTORE_PROJECT_ID",
		"MYSQL_DSN", "TON_NETWORK", "SESSION_TTL_MINUTES", "MINT_SIMULATION_DELAY_MS",
		"S3_BUCKET", "S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_PUBLIC_BASE_URL",
		"MAX_CONCURRENT_UPDATES", "NFT_MONITOR_ENABLED",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("STORE_BACKEND", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "testnet", cfg.TonNetwork)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 2*time.Second, cfg.MintSimulationDelay)
	assert.Equal(t, 30*time.Second, cfg.NftMonitorInterval)
	assert.True(t, cfg.NftMonitorEnabled)
	assert.Equal(t, 16, cfg.MaxConcurrentUpdates)
	assert.Equal(t, ":8080", cfg.AdminListenAddr)
}

func TestLoadReadsEnvFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "bot.env")
	require.NoError(t, os.WriteFile(path, []byte("ADMIN_CHAT_IDS=1, 2,3\nTON_NETWORK=MAINNET\nMINT_SIMULATION_DELAY_MS=150\n"), 0o600))
	t.Setenv("CONFIG_ENV_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, cfg.AdminChatIDs)
	assert.Equal(t, "mainnet", cfg.TonNetwork)
	assert.Equal(t, 150*time.Millisecond, cfg.MintSimulationDelay)
}

func TestLoadAggregatesErrors(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("STORE_BACKEND", "firestore")
	t.Setenv("S3_BUCKET", "media")
	t.Setenv("TON_NETWORK", "devnet")

	_, err := Load()
	require.Error(t, err)
	for _, want := range []string{"TELEGRAM_BOT_TOKEN", "FIRESTORE_PROJECT_ID", "S3_REGION", "S3_PUBLIC_BASE_URL", "TON_NETWORK=devnet"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadBackendRequirements(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_BACKEND", "mysql")
	_, err := Load()
	assert.ErrorContains(t, err, "MYSQL_DSN")

	t.Setenv("STORE_BACKEND", "cassandra")
	_, err = Load()
	assert.ErrorContains(t, err, "STORE_BACKEND=cassandra")

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("TELEGRAM_ADMIN_BOT_TOKEN", "admin-token")
	_, err = Load()
	assert.ErrorContains(t, err, "ADMIN_CHAT_IDS")
}

func TestLoadRejectsBadAdminIDs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_CHAT_IDS", "12,abc")
	_, err := Load()
	assert.ErrorContains(t, err, "ADMIN_CHAT_IDS")
}
