package config

import (
	"strings"
	"testing"
	"time"
)

// envMap returns a LookupFunc backed by a map.
func envMap(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 5000)
	}
	if cfg.Storage.UploadDir != "uploads" {
		t.Errorf("Storage.UploadDir = %q, want %q", cfg.Storage.UploadDir, "uploads")
	}
	if cfg.Storage.OutputDir != "outputs" {
		t.Errorf("Storage.OutputDir = %q, want %q", cfg.Storage.OutputDir, "outputs")
	}
	if cfg.Storage.Retention != 720*time.Hour {
		t.Errorf("Storage.Retention = %v, want %v", cfg.Storage.Retention, 720*time.Hour)
	}
	if cfg.Conversion.MaxFileSize != 33554432 {
		t.Errorf("Conversion.MaxFileSize = %d, want %d", cfg.Conversion.MaxFileSize, 33554432)
	}
	if cfg.Conversion.MaxConcurrent != 4 {
		t.Errorf("Conversion.MaxConcurrent = %d, want %d", cfg.Conversion.MaxConcurrent, 4)
	}
	if cfg.History.Driver != "memory" {
		t.Errorf("History.Driver = %q, want %q", cfg.History.Driver, "memory")
	}
	if !cfg.Rate.Enabled {
		t.Error("Rate.Enabled = false, want true")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"SERVER_PORT":            "9090",
		"CONVERT_MAX_CONCURRENT": "10",
		"LOG_LEVEL":              "debug",
		"TRUSTED_PROXIES":        "10.0.0.0/8, 127.0.0.1,",
		"OUTPUT_RETENTION":       "0s",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Conversion.MaxConcurrent != 10 {
		t.Errorf("Conversion.MaxConcurrent = %d, want %d", cfg.Conversion.MaxConcurrent, 10)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if len(cfg.Security.TrustedProxies) != 2 {
		t.Errorf("Security.TrustedProxies = %v, want 2 entries", cfg.Security.TrustedProxies)
	}
	if cfg.Storage.Retention != 0 {
		t.Errorf("Storage.Retention = %v, want 0", cfg.Storage.Retention)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"PORT":           "7000",
		"HISTORY_DRIVER": "postgres",
		"DATABASE_URL":   "postgres://localhost/fichas",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 7000)
	}
	if cfg.History.DSN != "postgres://localhost/fichas" {
		t.Errorf("History.DSN = %q, want %q", cfg.History.DSN, "postgres://localhost/fichas")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	_, err := LoadFrom(envMap(map[string]string{"CONVERT_TIMEOUT": "soon"}))
	if err == nil {
		t.Fatal("LoadFrom() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "CONVERT_TIMEOUT") {
		t.Errorf("error %q should name the variable", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bad port",
			env:     map[string]string{"SERVER_PORT": "70000"},
			wantErr: "SERVER_PORT",
		},
		{
			name:    "unknown history driver",
			env:     map[string]string{"HISTORY_DRIVER": "mysql"},
			wantErr: "HISTORY_DRIVER",
		},
		{
			name:    "sqlite without dsn",
			env:     map[string]string{"HISTORY_DRIVER": "sqlite"},
			wantErr: "HISTORY_DSN",
		},
		{
			name:    "api key required but none configured",
			env:     map[string]string{"REQUIRE_API_KEY": "true"},
			wantErr: "API_KEYS",
		},
		{
			name:    "bad log format",
			env:     map[string]string{"LOG_FORMAT": "xml"},
			wantErr: "LOG_FORMAT",
		},
		{
			name:    "zero file size",
			env:     map[string]string{"CONVERT_MAX_FILE_SIZE": "0"},
			wantErr: "CONVERT_MAX_FILE_SIZE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(envMap(tt.env))
			if err == nil {
				t.Fatalf("LoadFrom() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"HISTORY_DRIVER":  "postgres",
		"HISTORY_DSN":     "postgres://user:hunter2@db/fichas",
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "k1,k2",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	s := cfg.String()
	if strings.Contains(s, "hunter2") {
		t.Errorf("String() leaked DSN password: %s", s)
	}
	if strings.Contains(s, "k1") {
		t.Errorf("String() leaked API key: %s", s)
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s, want masked fields", s)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 5000}
	if got := c.Addr(); got != "127.0.0.1:5000" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:5000")
	}
	c.Host = ""
	if got := c.Addr(); got != ":5000" {
		t.Errorf("Addr() = %q, want %q", got, ":5000")
	}
}
