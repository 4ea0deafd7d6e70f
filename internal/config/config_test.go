package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "*", cfg.Server.AllowedOrigin)
	assert.Equal(t, "admin@anandpandey.in", cfg.AdminEmail)
	assert.Equal(t, "local", cfg.Messaging.Mode)
	assert.Equal(t, 800*time.Millisecond, cfg.Messaging.LocalDelay)
	assert.True(t, cfg.Messaging.FailOpen)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "memory", cfg.Assets.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Redis.PendingTTL)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
	assert.False(t, cfg.Inference.Enabled())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
log:
  format: console
messaging:
  mode: relay
  relay_url: https://example.com/api/send
  fail_open: false
inference:
  provider: vertex
  project_id: akp-site
store:
  backend: postgres
  database_url: postgres://localhost/site
`)
	t.Setenv("SITE_SERVER_PORT", "9100")
	t.Setenv("JWT_SECRET", "from-legacy-env")
	t.Setenv("ADMIN_EMAIL", "partner@anandpandey.in")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "relay", cfg.Messaging.Mode)
	assert.False(t, cfg.Messaging.FailOpen)
	assert.True(t, cfg.Inference.Enabled())
	assert.Equal(t, "us-central1", cfg.Inference.Location)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "from-legacy-env", cfg.JWT.Secret)
	assert.Equal(t, "partner@anandpandey.in", cfg.AdminEmail)
	assert.NoError(t, cfg.RequireJWT())
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "relay without url", body: "messaging:\n  mode: relay\n", wantErr: "relay_url"},
		{name: "unknown mode", body: "messaging:\n  mode: carrier-pigeon\n", wantErr: "messaging.mode"},
		{name: "unknown provider", body: "messaging:\n  provider: mailgun\n", wantErr: "messaging.provider"},
		{name: "firestore without project", body: "store:\n  backend: firestore\n", wantErr: "project_id"},
		{name: "gcs without bucket", body: "assets:\n  backend: gcs\n", wantErr: "assets.bucket"},
		{name: "bad log format", body: "log:\n  format: xml\n", wantErr: "log.format"},
		{name: "bcrypt cost", body: "password:\n  bcrypt_cost: 4\n", wantErr: "bcrypt cost"},
		{name: "inference provider", body: "inference:\n  provider: openai\n", wantErr: "inference.provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequireJWT(t *testing.T) {
	cfg := &Config{JWT: JWTConfig{ExpirationHours: 24}}
	assert.Error(t, cfg.RequireJWT())
	cfg.JWT.Secret = "x"
	assert.NoError(t, cfg.RequireJWT())
}

func TestWatch_ReloadsSwitches(t *testing.T) {
	path := writeConfig(t, "messaging:\n  fail_open: true\nlog:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Switches, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(s Switches) {
			select {
			case changes <- s:
			default:
			}
		}, func(error) {})
	}()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Rewrite until the watcher is observed to be running.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("messaging:\n  fail_open: false\nlog:\n  level: debug\n"), 0o644)
		select {
		case s := <-changes:
			return !s.FailOpen && s.LogLevel == "debug"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatch_RequiresPath(t *testing.T) {
	err := Watch(context.Background(), "", func(Switches) {}, func(error) {})
	assert.Error(t, err)
}
