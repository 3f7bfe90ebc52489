package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"reconciliation-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "segredo")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
  cors_origins: ["http://localhost:5173"]
auth:
  pin: "1234"
  jwt_secret: ${TEST_JWT_SECRET}
  token_ttl: 2h
matching:
  strategies: [value_date, value_words]
  min_partial_id_length: 4
extraction:
  include_credits: true
  statement_layout:
    first_data_row: 3
    columns:
      date: A
      description: C
      amount: E
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, int64(20), cfg.Server.MaxUploadMB)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "segredo", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"value_date", "value_words"}, cfg.Matching.Strategies)
	assert.Equal(t, 4, cfg.Matching.MinPartialIDLength)
	assert.Equal(t, 0.01, cfg.Matching.Tolerance)
	assert.True(t, cfg.Extraction.IncludeCredits)

	require.NotNil(t, cfg.Extraction.StatementLayout)
	assert.Equal(t, 3, cfg.Extraction.StatementLayout.FirstDataRow)
	assert.Equal(t, "E", cfg.Extraction.StatementLayout.Columns[domain.FieldAmount])
	assert.Nil(t, cfg.Extraction.ReportLayout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nao-existe.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("APP_PIN", "0000")
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "http://a, http://b")
	t.Setenv("MATCH_STRATEGIES", "exact_id,value_words")
	t.Setenv("MATCH_TOLERANCE", "0.02")
	t.Setenv("NEAR_MISS_LIMIT", "3")
	t.Setenv("INCLUDE_CREDITS", "true")

	cfg := LoadFromEnv()
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "0000", cfg.Auth.PIN)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, []string{"exact_id", "value_words"}, cfg.Matching.Strategies)
	assert.Equal(t, 0.02, cfg.Matching.Tolerance)
	assert.Equal(t, 3, cfg.Matching.NearMissLimit)
	assert.True(t, cfg.Extraction.IncludeCredits)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "MAX_UPLOAD_MB", "MATCH_STRATEGIES", "JWT_SECRET", "APP_PIN", "APP_PIN_HASH"} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes())
	assert.Len(t, cfg.Matching.Strategies, 6)
	assert.Error(t, cfg.Validate())
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	t.Setenv("PORT", "6060")
	cfg, err := LoadOrEnv(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Server.Port)
}

func TestLoadOrEnv_BrokenFile(t *testing.T) {
	t.Setenv("PORT", "6060")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: [8080\n"), 0o600))

	cfg, err := LoadOrEnv(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("DOTENV_KEEP", "original")
	t.Setenv("DOTENV_NEW", "")
	os.Unsetenv("DOTENV_NEW")
	t.Setenv("DOTENV_QUOTED", "")
	os.Unsetenv("DOTENV_QUOTED")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# comentário
DOTENV_KEEP=sobrescrito
DOTENV_NEW=valor
export DOTENV_QUOTED="com aspas"
linha-invalida
`), 0o600))

	n, err := LoadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "original", os.Getenv("DOTENV_KEEP"))
	assert.Equal(t, "valor", os.Getenv("DOTENV_NEW"))
	assert.Equal(t, "com aspas", os.Getenv("DOTENV_QUOTED"))

	_, err = LoadDotEnv(filepath.Join(t.TempDir(), "ausente.env"))
	assert.True(t, os.IsNotExist(err))
}
