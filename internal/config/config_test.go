// ABOUTME: Tests for configuration loading, env expansion, and validation.
// ABOUTME: Uses temp YAML files; env vars are scoped with t.Setenv.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalConfig = `
server:
  http_addr: ":8080"
auth:
  jwt_secret: "sekrit"
storage:
  credentials_path: "/tmp/wa/credentials.db"
  identity_cache_path: "/tmp/wa/identities.json"
`

func TestLoad_MinimalWithDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "sekrit", cfg.Auth.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, "loopback", cfg.Transport.Backend)
	assert.Equal(t, "51", cfg.Phone.DefaultCountryCode)
	assert.False(t, cfg.Deployment.Production)
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
transport:
  backend: "loopback"
webhook:
  timeout: "10s"
phone:
  default_country_code: "55"
deployment:
  production: true
logging:
  level: "debug"
  format: "json"
`))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, "55", cfg.Phone.DefaultCountryCode)
	assert.True(t, cfg.Deployment.Production)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("WA_TEST_SECRET", "from-env")

	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
auth:
  jwt_secret: "${WA_TEST_SECRET}"
storage:
  credentials_path: "/tmp/wa/credentials.db"
  identity_cache_path: "/tmp/wa/identities.json"
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
webhook:
  timeout: "soon"
`))
	assert.ErrorContains(t, err, "parsing webhook timeout")
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   string
	}{
		{
			name: "missing http addr",
			config: `
auth:
  jwt_secret: "s"
storage:
  credentials_path: "/tmp/c.db"
  identity_cache_path: "/tmp/i.json"
`,
			want: "server.http_addr",
		},
		{
			name: "missing jwt secret",
			config: `
server:
  http_addr: ":8080"
storage:
  credentials_path: "/tmp/c.db"
  identity_cache_path: "/tmp/i.json"
`,
			want: "auth.jwt_secret",
		},
		{
			name:   "missing storage paths",
			config: "server:\n  http_addr: \":8080\"\nauth:\n  jwt_secret: \"s\"\n",
			want:   "storage.credentials_path",
		},
		{
			name:   "unknown transport backend",
			config: minimalConfig + "transport:\n  backend: \"carrier-pigeon\"\n",
			want:   "transport.backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
