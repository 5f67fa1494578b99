package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// inTempDir keeps a stray .env or config.yaml out of Load.
func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	for _, k := range []string{"APP_PORT", "JWT_TTL", "AUTH_RATE_LIMIT", "WORKER_CONCURRENCY"} {
		t.Setenv(k, "")
	}
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE", "Memory")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AppPort != "8080" || cfg.Store != "memory" || cfg.JWTTTL != 72*time.Hour {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.JWTSecret == "" {
		t.Fatal("development secret not filled in")
	}
	if cfg.AuthRateLimit != 20 || cfg.WorkerConcurrency != 5 {
		t.Fatalf("limits = %d/%d", cfg.AuthRateLimit, cfg.WorkerConcurrency)
	}
}

func TestLoadFromEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("ENV", "development")
	t.Setenv("STORE", "memory")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("AUTH_RATE_LIMIT", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AppPort != "9090" || cfg.JWTTTL != 15*time.Minute || cfg.AuthRateLimit != 7 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{Env: "production", Store: "postgres", JWTTTL: time.Hour}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("production without secret: %v", err)
	}

	cfg = Config{Store: "mongo", JWTSecret: "x", JWTTTL: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown store accepted")
	}

	cfg = Config{Store: "postgres", JWTSecret: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero ttl accepted")
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: "5432", DBUser: "app", DBPassword: "p@ss", DBName: "masterhub"}
	if got := cfg.DSN(); got != "postgres://app:p%40ss@db:5432/masterhub" {
		t.Fatalf("dsn = %q", got)
	}
	cfg.DatabaseURL = "postgres://override"
	if cfg.DSN() != "postgres://override" {
		t.Fatal("DATABASE_URL not preferred")
	}
}
