package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Session Session `yaml:"session"`
	Uploads Uploads `yaml:"uploads"`
	Admin   Admin   `yaml:"admin"`
	Log     Log     `yaml:"log"`
}

type Server struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Storage selects the durable store. Driver is one of memory, postgres, pgx,
// mysql, sqlite or mongo. Database names the mongo database.
type Storage struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
}

type Session struct {
	Secret string `yaml:"secret"`
	TTL    string `yaml:"ttl"`
}

type Uploads struct {
	MaxFileMB int `yaml:"max_file_mb"`
}

// Admin holds the shared token for the backup and debug routes. Those routes
// answer 403 while it is empty.
type Admin struct {
	Token string `yaml:"token"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var drivers = map[string]bool{
	"memory":   true,
	"postgres": true,
	"pgx":      true,
	"mysql":    true,
	"sqlite":   true,
	"mongo":    true,
}

func Default() *Config {
	return &Config{
		Server: Server{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
		},
		Storage: Storage{
			Driver:   "memory",
			Database: "tailorfinder",
		},
		Session: Session{
			TTL: "12h",
		},
		Uploads: Uploads{
			MaxFileMB: 8,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load layers defaults, the YAML file at path, a .env file and the process
// environment, in that order. Missing files are skipped.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "SERVER_ADDR")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	setString(&c.Storage.Driver, "DATABASE_DRIVER")
	setString(&c.Storage.DSN, "DATABASE_CONNECTION_STR")
	setString(&c.Storage.Database, "DATABASE_NAME")
	setString(&c.Session.Secret, "SESSION_SECRET")
	setString(&c.Session.TTL, "SESSION_TTL")
	setString(&c.Admin.Token, "ADMIN_TOKEN")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	if v := os.Getenv("UPLOAD_MAX_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UPLOAD_MAX_MB: %w", err)
		}
		c.Uploads.MaxFileMB = n
	}
	return nil
}

func (c *Config) Validate() error {
	if !drivers[c.Storage.Driver] {
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver != "memory" && c.Storage.DSN == "" {
		return fmt.Errorf("DATABASE_CONNECTION_STR not set for driver %s", c.Storage.Driver)
	}
	if c.Storage.Driver == "mongo" && c.Storage.Database == "" {
		return errors.New("DATABASE_NAME not set for driver mongo")
	}
	if c.Session.Secret == "" {
		return errors.New("SESSION_SECRET not set")
	}
	if ttl, err := c.SessionTTL(); err != nil || ttl <= 0 {
		return fmt.Errorf("invalid session ttl %q", c.Session.TTL)
	}
	if c.Uploads.MaxFileMB <= 0 {
		return fmt.Errorf("invalid upload ceiling %d MB", c.Uploads.MaxFileMB)
	}
	return nil
}

func (c *Config) SessionTTL() (time.Duration, error) {
	return time.ParseDuration(c.Session.TTL)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Uploads.MaxFileMB) << 20
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
