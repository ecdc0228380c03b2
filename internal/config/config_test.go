package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("MEDBRIDGE_API_URL")
	os.Unsetenv("MEDBRIDGE_TOKEN_FILE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("expected default API URL, got %s", cfg.APIURL)
	}
	if cfg.HTTPTimeoutSeconds != 30 {
		t.Errorf("expected default timeout 30s, got %d", cfg.HTTPTimeoutSeconds)
	}
	if !strings.HasSuffix(cfg.TokenFile, ".medbridge/token") {
		t.Errorf("expected token file under ~/.medbridge, got %s", cfg.TokenFile)
	}
	if cfg.SandboxPort != "8000" {
		t.Errorf("expected default sandbox port 8000, got %s", cfg.SandboxPort)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("MEDBRIDGE_API_URL", "https://api.medbridge.example.com")
	os.Setenv("MEDBRIDGE_TOKEN_FILE", "/tmp/medbridge-test-token")
	defer os.Unsetenv("MEDBRIDGE_API_URL")
	defer os.Unsetenv("MEDBRIDGE_TOKEN_FILE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIURL != "https://api.medbridge.example.com" {
		t.Errorf("expected API URL override, got %s", cfg.APIURL)
	}
	if cfg.TokenFile != "/tmp/medbridge-test-token" {
		t.Errorf("expected token file override, got %s", cfg.TokenFile)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func TestConfig_HTTPTimeout(t *testing.T) {
	c := &Config{HTTPTimeoutSeconds: 5}
	if c.HTTPTimeout() != 5*time.Second {
		t.Errorf("expected 5s, got %v", c.HTTPTimeout())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid dev", Config{Env: "development", APIURL: "http://localhost:8000", HTTPTimeoutSeconds: 30}, false},
		{"bad scheme", Config{Env: "development", APIURL: "ftp://x", HTTPTimeoutSeconds: 30}, true},
		{"zero timeout", Config{Env: "development", APIURL: "http://localhost:8000"}, true},
		{"production needs secret", Config{Env: "production", APIURL: "https://api.example.com", HTTPTimeoutSeconds: 30}, true},
		{"production with secret", Config{Env: "production", APIURL: "https://api.example.com", HTTPTimeoutSeconds: 30, SandboxJWTSecret: "s3cret"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
