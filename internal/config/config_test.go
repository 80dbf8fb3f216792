package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ASSISTANT_BACKEND", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_URI", "")
	t.Setenv("PG_DSN", "")
	t.Setenv("PG_ENABLED", "")
	t.Setenv("EXPORT_BUCKET", "")
	t.Setenv("R2_BUCKET_NAME", "")
	t.Setenv("NAV_DEFERRED_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, cfg.Assistant.Backend)
	assert.Equal(t, 15*time.Second, cfg.Assistant.Timeout)
	assert.Equal(t, "chained", cfg.Navigation.DeferredMode)
	assert.Equal(t, time.Second, cfg.Navigation.SettleDelay)
	assert.Equal(t, 5*time.Second, cfg.Questions.Timeout)
	assert.False(t, cfg.PostgreSQL.Enabled)
	assert.False(t, cfg.Export.Enabled)
	assert.False(t, cfg.OpenAI.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ASSISTANT_BACKEND", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/rebot")
	t.Setenv("R2_BUCKET_NAME", "chats")
	t.Setenv("EXPORT_BUCKET", "")
	t.Setenv("NAV_DEFERRED_MODE", "fixed_delay")
	t.Setenv("NAV_SETTLE_DELAY", "250ms")
	t.Setenv("ASSISTANT_TIMEOUT", "20")
	t.Setenv("SESSION_MAX", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendOpenAI, cfg.Assistant.Backend)
	assert.True(t, cfg.OpenAI.Enabled)
	assert.True(t, cfg.PostgreSQL.Enabled)
	assert.Equal(t, "postgres://u:p@db/rebot", cfg.GetPostgreSQLDSN())
	assert.True(t, cfg.Export.Enabled)
	assert.Equal(t, "chats", cfg.Export.Bucket)
	assert.Equal(t, "fixed_delay", cfg.Navigation.DeferredMode)
	assert.Equal(t, 250*time.Millisecond, cfg.Navigation.SettleDelay)
	assert.Equal(t, 20*time.Second, cfg.Assistant.Timeout)
	assert.Equal(t, 1000, cfg.Session.MaxSessions)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: 8080},
		Assistant: AssistantConfig{Backend: BackendOpenAI},
	}
	assert.Error(t, cfg.Validate())

	cfg.Assistant.Backend = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg.Assistant = AssistantConfig{Backend: BackendRemote, RemoteURL: "http://x"}
	assert.NoError(t, cfg.Validate())
}

func TestGetPostgreSQLDSN_FromParts(t *testing.T) {
	cfg := &Config{PostgreSQL: PostgreSQLConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Database: "rebot", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=rebot sslmode=disable", cfg.GetPostgreSQLDSN())
}
