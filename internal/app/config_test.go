package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("GOLD_CHANNEL_ID", "-1001")
	t.Setenv("GOLD_INVITE_LINK", "https://t.me/+gold")
	t.Setenv("POPIT_CODE_HASH", "c0ffee")
}

func TestParseConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := parseConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "https://mainnet.ackinacki.org/graphql", cfg.GraphQLURL)
	assert.Equal(t, 8*time.Second, cfg.GraphQLTimeout)
	assert.Zero(t, cfg.GraphQLRPS)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 2000, cfg.MaxMessages)
	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, 20, cfg.CodeHashBatch)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.BotPolling)
	assert.Equal(t, "c0ffee", cfg.PopitCodeHash)
}

func TestParseConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GRAPHQL_TIMEOUT", "3s")
	t.Setenv("GRAPHQL_RPS", "2.5")
	t.Setenv("MAX_ITERATIONS", "5")
	t.Setenv("ALLOW_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("INIT_DATA_MAX_AGE", "24h")
	t.Setenv("BOT_POLLING", "true")
	t.Setenv("WEBAPP_URL", "https://tracker.example")

	cfg, err := parseConfig()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.GraphQLTimeout)
	assert.Equal(t, 2.5, cfg.GraphQLRPS)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
	assert.Equal(t, 24*time.Hour, cfg.InitDataMaxAge)
	assert.True(t, cfg.BotPolling)
}

func TestParseConfigRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("POPIT_CODE_HASH", "")

	_, err := parseConfig()
	assert.Error(t, err)
}

func TestParseConfigBotNeedsWebApp(t *testing.T) {
	setRequired(t)
	t.Setenv("BOT_POLLING", "true")

	_, err := parseConfig()
	assert.ErrorContains(t, err, "WEBAPP_URL")
}
