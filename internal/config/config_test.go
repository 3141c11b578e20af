package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alexbotov/spw/pkg/spworlds"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SPW_PORT", "SPW_DB_DSN", "SPW_BASE_URL", "SPW_REQUEST_DELAY", "SPW_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, spworlds.DefaultBaseURL, cfg.SPWorlds.BaseURL)
	assert.Equal(t, spworlds.DefaultRequestDelay, cfg.SPWorlds.RequestDelay)
	assert.Equal(t, 30*time.Second, cfg.SPWorlds.Timeout)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SPW_PORT", "9090")
	t.Setenv("SPW_DB_DSN", "host=localhost dbname=spw sslmode=disable")
	t.Setenv("SPW_CARD_ID", "card")
	t.Setenv("SPW_CARD_TOKEN", "token")
	t.Setenv("SPW_REQUEST_DELAY", "250ms")
	t.Setenv("SPW_TIMEOUT", "not-a-duration")
	t.Setenv("SPW_LOG_DEV", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 250*time.Millisecond, cfg.SPWorlds.RequestDelay)
	assert.Equal(t, 30*time.Second, cfg.SPWorlds.Timeout, "invalid durations fall back to the default")
	assert.True(t, cfg.Log.Development)
}

func TestSPWorldsConfig_ClientConfig(t *testing.T) {
	c := SPWorldsConfig{BaseURL: "http://localhost:1", CardID: "card", Token: "token", Timeout: time.Second}
	logger := zap.NewNop()

	cc := c.ClientConfig(logger)
	require.NotNil(t, cc)
	assert.Equal(t, "http://localhost:1", cc.BaseURL)
	assert.Equal(t, spworlds.Credentials{CardID: "card", Token: "token"}, cc.Credentials)
	assert.Equal(t, time.Second, cc.Timeout)
	assert.Same(t, logger, cc.Logger)
	assert.Equal(t, spworlds.DefaultUserAgent, cc.UserAgent)
}
