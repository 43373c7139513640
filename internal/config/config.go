package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Minio    MinioConfig    `toml:"minio"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Events   EventsConfig   `toml:"events"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	JWTSecret string `toml:"jwt_secret"`
}

type DatabaseConfig struct {
	URL string `toml:"url"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	Bucket    string `toml:"bucket"`
}

// CatalogConfig points at the module/workflow catalog file validated at
// startup.
type CatalogConfig struct {
	Path string `toml:"path"`
}

type EventsConfig struct {
	Stream     string `toml:"stream"`
	BufferSize int    `toml:"buffer_size"`
}

// Load reads the TOML config file when present and applies environment
// overrides on top, so deployments can run file-less.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:  ServerConfig{Addr: ":8080"},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Minio:   MinioConfig{Endpoint: "localhost:9000", AccessKey: "minioadmin", SecretKey: "minioadmin", Bucket: "entitlement-audit"},
		Catalog: CatalogConfig{Path: "configs/catalog.toml"},
		Events:  EventsConfig{Stream: "wealthdesk:events", BufferSize: 1024},
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	applyEnv(&cfg.Server.Addr, "SERVER_ADDR")
	applyEnv(&cfg.Server.JWTSecret, "JWT_SECRET")
	applyEnv(&cfg.Database.URL, "DATABASE_URL")
	applyEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	applyEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
	applyEnv(&cfg.Minio.Endpoint, "MINIO_ENDPOINT")
	applyEnv(&cfg.Minio.AccessKey, "MINIO_ACCESS_KEY")
	applyEnv(&cfg.Minio.SecretKey, "MINIO_SECRET_KEY")
	applyEnv(&cfg.Catalog.Path, "CATALOG_PATH")

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required (DATABASE_URL)")
	}
	return cfg, nil
}

func applyEnv(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}
