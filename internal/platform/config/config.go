package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	ModeDev     = "dev"
	ModeRelease = "release"

	DefaultPath = "config/config.yaml"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	MaxOpen  int    `yaml:"max_open_conns"`
	MaxIdle  int    `yaml:"max_idle_conns"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	CertFile string `yaml:"cert"`
	KeyFile  string `yaml:"key"`
	// Origins allowed by CORS in dev mode.
	AllowOrigins []string `yaml:"allow_origins"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	MaxFailedLogins int           `yaml:"max_failed_logins"`
	LockoutWindow   time.Duration `yaml:"lockout_window"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	Version string         `yaml:"version"`
	Mode    string         `yaml:"mode"`
	Server  ServerConfig   `yaml:"server"`
	DB      DatabaseConfig `yaml:"database"`
	Auth    AuthConfig     `yaml:"auth"`
	Redis   RedisConfig    `yaml:"redis"`
	Log     LogConfig      `yaml:"log"`
}

// Default returns the values used for anything the file leaves out.
func Default() Config {
	return Config{
		Mode: ModeDev,
		Server: ServerConfig{
			Addr:         ":8080",
			AllowOrigins: []string{"http://localhost:3000"},
		},
		DB: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    3306,
			DBName:  "library",
			MaxOpen: 40,
			MaxIdle: 10,
		},
		Auth: AuthConfig{
			TokenTTL:        7 * 24 * time.Hour,
			MaxFailedLogins: 5,
			LockoutWindow:   15 * time.Minute,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path on top of Default, then applies .env and
// environment overrides. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Mode = getEnv("LIBRARY_MODE", cfg.Mode)
	cfg.Server.Addr = getEnv("LIBRARY_ADDR", cfg.Server.Addr)

	cfg.DB.Host = getEnv("LIBRARY_DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnvInt("LIBRARY_DB_PORT", cfg.DB.Port)
	cfg.DB.Username = getEnv("LIBRARY_DB_USER", cfg.DB.Username)
	cfg.DB.Password = getEnv("LIBRARY_DB_PASSWORD", cfg.DB.Password)
	cfg.DB.DBName = getEnv("LIBRARY_DB_NAME", cfg.DB.DBName)

	cfg.Auth.JWTSecret = getEnv("LIBRARY_JWT_SECRET", cfg.Auth.JWTSecret)

	cfg.Redis.Addr = getEnv("LIBRARY_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("LIBRARY_REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Log.Level = getEnv("LIBRARY_LOG_LEVEL", cfg.Log.Level)
}

func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Auth.MaxFailedLogins < 1 {
		return errors.New("auth.max_failed_logins must be at least 1")
	}
	if c.Auth.LockoutWindow <= 0 {
		return errors.New("auth.lockout_window must be positive")
	}
	if c.DB.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return errors.New("server.cert and server.key must be set together")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
