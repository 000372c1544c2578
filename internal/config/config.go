package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BlobBackendMemory = "memory"
	BlobBackendMinio  = "minio"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	DBDSN string `mapstructure:"DB_DSN"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	GrantDefaultDays    int           `mapstructure:"GRANT_DEFAULT_DAYS"`
	ExpirySweepInterval time.Duration `mapstructure:"EXPIRY_SWEEP_INTERVAL"`

	BlobBackend    string        `mapstructure:"BLOB_BACKEND"`
	BlobSigningKey string        `mapstructure:"BLOB_SIGNING_KEY"`
	MinioEndpoint  string        `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string        `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string        `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string        `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool          `mapstructure:"MINIO_USE_SSL"`
	DownloadURLTTL time.Duration `mapstructure:"DOWNLOAD_URL_TTL"`
	MaxUploadBytes int64         `mapstructure:"MAX_UPLOAD_BYTES"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	AppName   string `mapstructure:"APP_NAME"`
}

var keys = []string{
	"PORT", "ENV", "DB_DSN", "JWT_SECRET", "JWT_TTL",
	"GRANT_DEFAULT_DAYS", "EXPIRY_SWEEP_INTERVAL",
	"BLOB_BACKEND", "BLOB_SIGNING_KEY",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"DOWNLOAD_URL_TTL", "MAX_UPLOAD_BYTES",
	"LOG_LEVEL", "LOG_FORMAT", "APP_NAME",
}

// Load lee .env (si existe) y luego variables de entorno. El entorno gana.
func Load() (*Config, error) {
	// godotenv no pisa variables ya definidas.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("GRANT_DEFAULT_DAYS", 30)
	v.SetDefault("EXPIRY_SWEEP_INTERVAL", "1h")
	v.SetDefault("BLOB_BACKEND", BlobBackendMemory)
	v.SetDefault("MINIO_BUCKET", "medical-records")
	v.SetDefault("DOWNLOAD_URL_TTL", "30m")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("APP_NAME", "consent-records")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.BlobBackend = strings.ToLower(strings.TrimSpace(cfg.BlobBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.GrantDefaultDays < 1 || c.GrantDefaultDays > 365 {
		errs = append(errs, fmt.Errorf("GRANT_DEFAULT_DAYS must be between 1 and 365, got %d", c.GrantDefaultDays))
	}
	if c.ExpirySweepInterval <= 0 {
		errs = append(errs, errors.New("EXPIRY_SWEEP_INTERVAL must be positive"))
	}
	if c.DownloadURLTTL <= 0 {
		errs = append(errs, errors.New("DOWNLOAD_URL_TTL must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	switch c.BlobBackend {
	case BlobBackendMemory:
	case BlobBackendMinio:
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for BLOB_BACKEND=minio"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend))
	}
	if !c.IsDev() && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// DevAuth indica si se aceptan los headers X-Debug-* en lugar de JWT.
func (c *Config) DevAuth() bool {
	return c.IsDev() && c.JWTSecret == ""
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// SigningKey para URLs del blob store en memoria; cae a JWT_SECRET.
func (c *Config) SigningKey() string {
	if c.BlobSigningKey != "" {
		return c.BlobSigningKey
	}
	if c.JWTSecret != "" {
		return c.JWTSecret
	}
	return "dev-blob-signing-key"
}
