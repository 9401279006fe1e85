package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	LLM       LLMConfig       `yaml:"llm"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfigMergesLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: ":8080"
db:
  host: localhost
  port: 5432
  password: "${DB_SECRET}"
llm:
  model: gemini-1.5-flash
  timeout: 15s
scheduler:
  timezone: Asia/Kolkata
  default_budget_minutes: 240
  draft_ttl: 24h
`)
	writeFile(t, dir, "staging.yaml", `
db:
  host: db.staging
scheduler:
  default_budget_minutes: 120
`)
	writeFile(t, dir, "secrets.env", "# comment\nDB_SECRET=\"s3cret\"\n")

	var cfg testConfig
	require.NoError(t, LoadConfig("staging", dir, &cfg))

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "db.staging", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "s3cret", cfg.DB.Password)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 120, cfg.Scheduler.DefaultBudgetMinutes)
	assert.Equal(t, "Asia/Kolkata", cfg.Scheduler.Timezone)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.DraftTTL)
}

func TestLoadConfigSystemEnvWinsOverSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "db:\n  password: \"${DB_SECRET}\"\n")
	writeFile(t, dir, "secrets.env", "DB_SECRET=from-file\n")
	t.Setenv("DB_SECRET", "from-env")

	var cfg testConfig
	require.NoError(t, LoadConfig("", dir, &cfg))
	assert.Equal(t, "from-env", cfg.DB.Password)
}

func TestLoadConfigMissingBase(t *testing.T) {
	var cfg testConfig
	assert.Error(t, LoadConfig("local", t.TempDir(), &cfg))
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("LLM_API_KEY", "key-1")
	t.Setenv("LLM_MODEL", "gemini-2.0-flash")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")
	t.Setenv("DB_PORT", "not-a-number")

	llm := LLMConfig{Model: "gemini-1.5-flash"}
	OverrideLLMFromEnv(&llm)
	assert.Equal(t, "key-1", llm.APIKey)
	assert.Equal(t, "gemini-2.0-flash", llm.Model)

	sched := SchedulerConfig{Timezone: "Asia/Kolkata"}
	OverrideSchedulerFromEnv(&sched)
	assert.Equal(t, "UTC", sched.Timezone)

	db := DBConfig{Port: 5432}
	OverrideDBFromEnv(&db)
	assert.Equal(t, 5432, db.Port)
}
