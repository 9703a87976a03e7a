package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func load(t *testing.T, args []string, env map[string]string) (Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	return Load(fs, args, envFrom(env))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "choreboard.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, time.Minute, cfg.JoinRateWindow.Duration)
	assert.False(t, cfg.Backup.Enabled())
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, `{
		// comments and trailing commas are allowed
		"port": "9000",
		"db_path": "/var/lib/choreboard/file.db",
		"log_level": "debug",
		"join_rate_window": "30s",
		"backup": {"bucket": "snapshots", "retention_days": 7},
	}`)

	cfg, err := load(t, []string{"--config", path, "--port", "9300"}, map[string]string{
		"CHOREBOARD_PORT":      "9200",
		"CHOREBOARD_LOG_LEVEL": "warn",
	})
	require.NoError(t, err)

	assert.Equal(t, "9300", cfg.Port, "flag beats env and file")
	assert.Equal(t, "warn", cfg.LogLevel, "env beats file")
	assert.Equal(t, "/var/lib/choreboard/file.db", cfg.DBPath, "file beats default")
	assert.Equal(t, 30*time.Second, cfg.JoinRateWindow.Duration)
	assert.Equal(t, "snapshots", cfg.Backup.Bucket)
	assert.Equal(t, 7, cfg.Backup.RetentionDays)
	assert.Equal(t, "choreboard/", cfg.Backup.Prefix, "unset file keys keep defaults")
}

func TestConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, `{"jwt_issuer": "idp.example"}`)

	cfg, err := load(t, nil, map[string]string{"CHOREBOARD_CONFIG": path})
	require.NoError(t, err)
	assert.Equal(t, "idp.example", cfg.JWTIssuer)
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := load(t, nil, map[string]string{
		"CHOREBOARD_JWT_SECRET":            "0123456789abcdef",
		"CHOREBOARD_JOIN_RATE_LIMIT":       "3",
		"CHOREBOARD_JOIN_RATE_WINDOW":      "2m",
		"CHOREBOARD_ALLOWED_ORIGINS":       "app.example.com, *.example.org ,",
		"CHOREBOARD_S3_BUCKET":             "b",
		"CHOREBOARD_S3_ACCESS_KEY":         "ak",
		"CHOREBOARD_S3_SECRET_KEY":         "sk",
		"CHOREBOARD_BACKUP_RETENTION_DAYS": "14",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.JoinRateLimit)
	assert.Equal(t, 2*time.Minute, cfg.JoinRateWindow.Duration)
	assert.Equal(t, []string{"app.example.com", "*.example.org"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Backup.Enabled())
	assert.Equal(t, 14, cfg.Backup.RetentionDays)
	assert.NoError(t, cfg.ValidateServe())
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		file string
	}{
		{name: "bad log level", args: []string{"--log-level", "loud"}},
		{name: "bad log format", env: map[string]string{"CHOREBOARD_LOG_FORMAT": "xml"}},
		{name: "zero join limit", args: []string{"--join-rate-limit", "0"}},
		{name: "bad env number", env: map[string]string{"CHOREBOARD_JOIN_RATE_LIMIT": "many"}},
		{name: "bad env duration", env: map[string]string{"CHOREBOARD_JOIN_RATE_WINDOW": "soon"}},
		{name: "bad file duration", file: `{"join_rate_window": 60}`},
		{name: "malformed file", file: `{"port": `},
		{name: "unknown flag", args: []string{"--nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.file != "" {
				args = append(args, "--config", writeConfig(t, tt.file))
			}
			_, err := load(t, args, tt.env)
			assert.Error(t, err)
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := load(t, []string{"--config", filepath.Join(t.TempDir(), "nope.jsonc")}, nil)
	assert.ErrorIs(t, err, errConfigFileNotFound)
}

func TestValidateServeRequiresSecret(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.ValidateServe(), errConfigInvalid)

	cfg.JWTSecret = "short"
	assert.ErrorIs(t, cfg.ValidateServe(), errConfigInvalid)
}
