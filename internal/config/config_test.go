package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.GrantDefaultDays != 30 {
		t.Errorf("expected 30 default days, got %d", cfg.GrantDefaultDays)
	}
	if cfg.ExpirySweepInterval != time.Hour {
		t.Errorf("expected hourly sweep, got %s", cfg.ExpirySweepInterval)
	}
	if cfg.DownloadURLTTL != 30*time.Minute {
		t.Errorf("expected 30m download ttl, got %s", cfg.DownloadURLTTL)
	}
	if cfg.BlobBackend != BlobBackendMemory {
		t.Errorf("expected memory blob backend, got %s", cfg.BlobBackend)
	}
	if !cfg.DevAuth() {
		t.Errorf("expected dev auth without JWT_SECRET")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("GRANT_DEFAULT_DAYS", "14")
	t.Setenv("JWT_TTL", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr() != ":9090" {
		t.Errorf("addr = %s", cfg.Addr())
	}
	if cfg.GrantDefaultDays != 14 || cfg.JWTTTL != 2*time.Hour {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.DevAuth() {
		t.Errorf("dev auth must be off in production")
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing in production")
	}
}

func TestValidate_Minio(t *testing.T) {
	c := &Config{
		Env:                 "development",
		GrantDefaultDays:    30,
		ExpirySweepInterval: time.Hour,
		DownloadURLTTL:      time.Minute,
		MaxUploadBytes:      1,
		BlobBackend:         BlobBackendMinio,
	}
	if err := c.Validate(); err == nil {
		t.Fatal("expected minio credentials error")
	}
	c.MinioEndpoint, c.MinioAccessKey, c.MinioSecretKey = "localhost:9000", "a", "b"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
