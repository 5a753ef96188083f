// Package config holds the planner runtime settings: defaults, an optional
// YAML file, and PLANNER_* environment overrides. Command-line flags are
// applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"planner/internal/util"
)

// DevSessionSecret is the built-in secret. Validate accepts it only so that a
// fresh checkout starts; deployments must override it.
const DevSessionSecret = "planner-dev-secret-change-me"

// BlobConfig selects where document bytes are kept.
//
// Driver "fs" stores files under Dir and serves them from /api/blobs.
// Driver "s3" talks to an S3-compatible endpoint and hands out presigned URLs
// valid for PresignTTL.
type BlobConfig struct {
	Driver     string        `yaml:"driver"`
	Dir        string        `yaml:"dir"`
	Bucket     string        `yaml:"bucket"`
	Region     string        `yaml:"region"`
	Endpoint   string        `yaml:"endpoint"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// Config holds runtime settings for the planner server.
type Config struct {
	Addr          string        `yaml:"addr"`
	DBPath        string        `yaml:"db_path"`
	StaticDir     string        `yaml:"static_dir"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	SeedUsers     bool          `yaml:"seed_users"`
	Blob          BlobConfig    `yaml:"blob"`
}

// Default returns development defaults.
func Default() *Config {
	return &Config{
		Addr:          ":8080",
		DBPath:        "data/planner.db",
		StaticDir:     "web/dist",
		LogLevel:      "info",
		LogFormat:     "text",
		SessionSecret: DevSessionSecret,
		SessionTTL:    12 * time.Hour,
		BcryptCost:    bcrypt.DefaultCost,
		SeedUsers:     true,
		Blob: BlobConfig{
			Driver:     "fs",
			Dir:        "data/blobs",
			Region:     "us-east-1",
			PresignTTL: 15 * time.Minute,
		},
	}
}

// Load applies defaults, then the YAML file at path (skipped when empty),
// then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = util.EnvOrDefault("PLANNER_ADDR", c.Addr)
	c.DBPath = util.EnvOrDefault("PLANNER_DB_PATH", c.DBPath)
	c.StaticDir = util.EnvOrDefault("PLANNER_STATIC_DIR", c.StaticDir)
	c.LogLevel = util.EnvOrDefault("PLANNER_LOG_LEVEL", c.LogLevel)
	c.LogFormat = util.EnvOrDefault("PLANNER_LOG_FORMAT", c.LogFormat)
	c.SessionSecret = util.EnvOrDefault("PLANNER_SESSION_SECRET", c.SessionSecret)
	c.SessionTTL = util.EnvDuration("PLANNER_SESSION_TTL", c.SessionTTL)
	c.CookieSecure = util.EnvBool("PLANNER_COOKIE_SECURE", c.CookieSecure)
	c.BcryptCost = util.EnvInt("PLANNER_BCRYPT_COST", c.BcryptCost)
	c.CORSOrigins = util.EnvList("PLANNER_CORS_ORIGINS", c.CORSOrigins)
	c.SeedUsers = util.EnvBool("PLANNER_SEED_USERS", c.SeedUsers)

	c.Blob.Driver = util.EnvOrDefault("PLANNER_BLOB_DRIVER", c.Blob.Driver)
	c.Blob.Dir = util.EnvOrDefault("PLANNER_BLOB_DIR", c.Blob.Dir)
	c.Blob.Bucket = util.EnvOrDefault("PLANNER_S3_BUCKET", c.Blob.Bucket)
	c.Blob.Region = util.EnvOrDefault("PLANNER_S3_REGION", c.Blob.Region)
	c.Blob.Endpoint = util.EnvOrDefault("PLANNER_S3_ENDPOINT", c.Blob.Endpoint)
	c.Blob.AccessKey = util.EnvOrDefault("PLANNER_S3_ACCESS_KEY", c.Blob.AccessKey)
	c.Blob.SecretKey = util.EnvOrDefault("PLANNER_S3_SECRET_KEY", c.Blob.SecretKey)
	c.Blob.PresignTTL = util.EnvDuration("PLANNER_S3_PRESIGN_TTL", c.Blob.PresignTTL)
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path must not be empty"))
	}
	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("session_secret must be at least 16 bytes"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt_cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	switch c.Blob.Driver {
	case "fs":
		if c.Blob.Dir == "" {
			errs = append(errs, errors.New("blob.dir is required for the fs driver"))
		}
	case "s3":
		if c.Blob.Bucket == "" {
			errs = append(errs, errors.New("blob.bucket is required for the s3 driver"))
		}
		if c.Blob.PresignTTL <= 0 {
			errs = append(errs, errors.New("blob.presign_ttl must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob.driver %q", c.Blob.Driver))
	}
	return errors.Join(errs...)
}
