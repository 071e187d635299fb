package config

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validConfig() *Config {
	return &Config{
		Port:            "8080",
		ShutdownTimeout: 5 * time.Second,
		DBPath:          "./data/test.db",
		JWTSecret:       strings.Repeat("s", 32),
		LogFormat:       "text",
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REMOTE_PRE_MEETING", "true")
	t.Setenv("DEFAULT_QUORUM_PERCENT", "60")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if !cfg.RemotePreMeeting {
		t.Error("expected RemotePreMeeting to be enabled")
	}
	if !cfg.DefaultQuorumPercent.Valid || !cfg.DefaultQuorumPercent.Decimal.Equal(decimal.NewFromInt(60)) {
		t.Errorf("DefaultQuorumPercent = %+v, want 60", cfg.DefaultQuorumPercent)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 3s", cfg.ShutdownTimeout)
	}

	t.Setenv("DEFAULT_QUORUM_PERCENT", "most")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric quorum")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Port = "http" }, wantErr: "invalid port"},
		{name: "port out of range", mutate: func(c *Config) { c.Port = "70000" }, wantErr: "between 1 and 65535"},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: "JWT_SECRET"},
		{name: "bad amqp scheme", mutate: func(c *Config) { c.AMQPURL = "http://broker" }, wantErr: "scheme"},
		{
			name:    "quorum above 100",
			mutate:  func(c *Config) { c.DefaultQuorumPercent = decimal.NewNullDecimal(decimal.NewFromInt(120)) },
			wantErr: "default quorum",
		},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	t.Run("problems are collected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Port = "0"
		cfg.DBPath = ""
		err := cfg.Validate()
		if err == nil || strings.Count(err.Error(), "\n- ") != 2 {
			t.Errorf("expected two problems, got %v", err)
		}
	})
}
