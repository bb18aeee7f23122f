package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	Env     string `mapstructure:"env" validate:"oneof=development production test"`
	Debug   bool   `mapstructure:"debug"`
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Type         string `mapstructure:"type" validate:"oneof=postgres mysql sqlite"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"min=0"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret" validate:"required,min=8"`
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	// Users maps user names onto bcrypt password hashes.
	Users map[string]string `mapstructure:"users"`
}

type StorageConfig struct {
	Provider      string          `mapstructure:"provider" validate:"oneof=local s3 seaweedfs minio"`
	Path          string          `mapstructure:"path"`
	MaxUploadSize int64           `mapstructure:"max_upload_size" validate:"gt=0"`
	S3            S3Config        `mapstructure:"s3"`
	SeaweedFS     SeaweedFSConfig `mapstructure:"seaweedfs"`
	Minio         MinioConfig     `mapstructure:"minio"`
	Breaker       BreakerConfig   `mapstructure:"breaker"`
}

type S3Config struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	Endpoint        string `mapstructure:"endpoint"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

type SeaweedFSConfig struct {
	FilerURL string `mapstructure:"filer_url"`
	Prefix   string `mapstructure:"prefix"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// BreakerConfig tunes the circuit breaker in front of remote blob stores.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"gt=0"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	EnableFile bool   `mapstructure:"enable_file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads an optional .env file, an optional config file at path and the
// ALBUM_* environment on top of the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ALBUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.base_url", "")

	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "album_center")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "album_center.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.secret", "change-me-please")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.users", map[string]string{})

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.path", "./storage/media")
	v.SetDefault("storage.max_upload_size", 10485760)
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.seaweedfs.filer_url", "http://localhost:8888")
	v.SetDefault("storage.seaweedfs.prefix", "/media")
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.bucket", "media")
	v.SetDefault("storage.breaker.max_requests", 1)
	v.SetDefault("storage.breaker.interval", time.Minute)
	v.SetDefault("storage.breaker.timeout", 30*time.Second)
	v.SetDefault("storage.breaker.failure_threshold", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.enable_file", false)
	v.SetDefault("log.file_path", "logs/album-center.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
}

// Validate checks the struct tags and the cross-field requirements of the
// selected providers.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Storage.Provider {
	case "s3":
		if c.Storage.S3.BucketName == "" {
			return errors.New("invalid config: storage.s3.bucket_name is required")
		}
	case "minio":
		if c.Storage.Minio.Bucket == "" || c.Storage.Minio.Endpoint == "" {
			return errors.New("invalid config: storage.minio endpoint and bucket are required")
		}
	}
	return nil
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (d *DatabaseConfig) DSN() string {
	switch d.Type {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite":
		return d.Path
	default:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
}
