package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Minio    MinioConfig    `yaml:"minio"`
	Store    StoreConfig    `yaml:"store"`
	Resolver ResolverConfig `yaml:"resolver"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	AccessExpireHours  int    `yaml:"access_expire_hours"`
	RefreshExpireHours int    `yaml:"refresh_expire_hours"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type StoreConfig struct {
	Driver       string `yaml:"driver"` // memory, postgres
	DSN          string `yaml:"dsn"`
	MaxContracts int    `yaml:"max_contracts"` // memory driver only, 0 = unlimited
}

type ResolverConfig struct {
	IntervalSeconds      int `yaml:"interval_seconds"`
	AutoApproveAfterHour int `yaml:"auto_approve_after_hours"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Nickname string `yaml:"nickname"`
}

func Load(path string) (*Config, error) {
	// .env is optional; environment wins over the YAML file for secrets.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Auth.AccessExpireHours == 0 {
		cfg.Auth.AccessExpireHours = 1
	}
	if cfg.Auth.RefreshExpireHours == 0 {
		cfg.Auth.RefreshExpireHours = 24 * 14
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Resolver.IntervalSeconds == 0 {
		cfg.Resolver.IntervalSeconds = 60
	}
	if cfg.Resolver.AutoApproveAfterHour == 0 {
		cfg.Resolver.AutoApproveAfterHour = 24
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Minio.SecretKey = v
	}
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
