// Package config loads choreboard settings. Sources are applied in order,
// later ones winning: built-in defaults, a JSONC file, CHOREBOARD_*
// environment variables, then command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"
)

const envPrefix = "CHOREBOARD_"

var (
	errConfigInvalid      = errors.New("invalid config")
	errConfigFileNotFound = errors.New("config file not found")
)

// Duration is a time.Duration written as a string such as "90s" in config files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

type BackupConfig struct {
	Endpoint      string `json:"endpoint,omitempty"`
	Bucket        string `json:"bucket,omitempty"`
	Region        string `json:"region,omitempty"`
	AccessKey     string `json:"access_key,omitempty"`
	SecretKey     string `json:"secret_key,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty"`
}

// Enabled reports whether enough is set to reach a bucket.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != "" && b.AccessKey != "" && b.SecretKey != ""
}

type Config struct {
	Port           string       `json:"port"`
	DBPath         string       `json:"db_path"`
	LogLevel       string       `json:"log_level"`
	LogFormat      string       `json:"log_format"`
	JWTSecret      string       `json:"jwt_secret,omitempty"`
	JWTIssuer      string       `json:"jwt_issuer,omitempty"`
	JoinRateLimit  int          `json:"join_rate_limit"`
	JoinRateWindow Duration     `json:"join_rate_window"`
	AllowedOrigins []string     `json:"allowed_origins,omitempty"`
	Backup         BackupConfig `json:"backup"`
}

func Default() Config {
	return Config{
		Port:           "8080",
		DBPath:         "choreboard.db",
		LogLevel:       "info",
		LogFormat:      "text",
		JoinRateLimit:  10,
		JoinRateWindow: Duration{time.Minute},
		Backup: BackupConfig{
			Region:        "auto",
			Prefix:        "choreboard/",
			RetentionDays: 30,
		},
	}
}

// flagValues holds the flag targets until we know which were set.
type flagValues struct {
	configPath     string
	port           string
	dbPath         string
	logLevel       string
	logFormat      string
	jwtIssuer      string
	joinRateLimit  int
	joinRateWindow time.Duration
}

// Load registers the config flags on fs, parses args, and merges every
// source. Callers may register their own flags on fs first.
func Load(fs *flag.FlagSet, args []string, getenv func(string) string) (Config, error) {
	def := Default()
	var fv flagValues
	fs.StringVarP(&fv.configPath, "config", "c", "", "path to a JSONC config file")
	fs.StringVar(&fv.port, "port", def.Port, "HTTP listen port")
	fs.StringVar(&fv.dbPath, "db", def.DBPath, "path to the SQLite database")
	fs.StringVar(&fv.logLevel, "log-level", def.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&fv.logFormat, "log-format", def.LogFormat, "log format: text or json")
	fs.StringVar(&fv.jwtIssuer, "jwt-issuer", "", "required issuer of identity tokens")
	fs.IntVar(&fv.joinRateLimit, "join-rate-limit", def.JoinRateLimit, "join attempts allowed per user per window")
	fs.DurationVar(&fv.joinRateWindow, "join-rate-window", def.JoinRateWindow.Duration, "join rate limit window")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := def

	path := fv.configPath
	if path == "" {
		path = getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	applyFlags(&cfg, fs, fv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errConfigFileNotFound, path)
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w %s: invalid JSONC: %w", errConfigInvalid, path, err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("DB_PATH", &cfg.DBPath)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("JWT_ISSUER", &cfg.JWTIssuer)
	str("S3_ENDPOINT", &cfg.Backup.Endpoint)
	str("S3_BUCKET", &cfg.Backup.Bucket)
	str("S3_REGION", &cfg.Backup.Region)
	str("S3_ACCESS_KEY", &cfg.Backup.AccessKey)
	str("S3_SECRET_KEY", &cfg.Backup.SecretKey)
	str("S3_PREFIX", &cfg.Backup.Prefix)

	if v := getenv(envPrefix + "ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if v := getenv(envPrefix + "JOIN_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sJOIN_RATE_LIMIT: %w", errConfigInvalid, envPrefix, err)
		}
		cfg.JoinRateLimit = n
	}
	if v := getenv(envPrefix + "JOIN_RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sJOIN_RATE_WINDOW: %w", errConfigInvalid, envPrefix, err)
		}
		cfg.JoinRateWindow = Duration{d}
	}
	if v := getenv(envPrefix + "BACKUP_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sBACKUP_RETENTION_DAYS: %w", errConfigInvalid, envPrefix, err)
		}
		cfg.Backup.RetentionDays = n
	}
	return nil
}

func applyFlags(cfg *Config, fs *flag.FlagSet, fv flagValues) {
	if fs.Changed("port") {
		cfg.Port = fv.port
	}
	if fs.Changed("db") {
		cfg.DBPath = fv.dbPath
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if fs.Changed("jwt-issuer") {
		cfg.JWTIssuer = fv.jwtIssuer
	}
	if fs.Changed("join-rate-limit") {
		cfg.JoinRateLimit = fv.joinRateLimit
	}
	if fs.Changed("join-rate-window") {
		cfg.JoinRateWindow = Duration{fv.joinRateWindow}
	}
}

func (c Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", errConfigInvalid, c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", errConfigInvalid, c.LogFormat)
	}
	if c.Port == "" {
		return fmt.Errorf("%w: port is required", errConfigInvalid)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db path is required", errConfigInvalid)
	}
	if c.JoinRateLimit < 1 {
		return fmt.Errorf("%w: join rate limit must be positive", errConfigInvalid)
	}
	if c.JoinRateWindow.Duration <= 0 {
		return fmt.Errorf("%w: join rate window must be positive", errConfigInvalid)
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("%w: backup retention must not be negative", errConfigInvalid)
	}
	return nil
}

// ValidateServe checks what the HTTP server needs beyond Validate.
func (c Config) ValidateServe() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("%w: %sJWT_SECRET must be at least 16 bytes", errConfigInvalid, envPrefix)
	}
	return nil
}
