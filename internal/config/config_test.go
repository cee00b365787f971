package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Configuration {
	return &Configuration{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Providers: map[string]ProviderDescriptor{
			"openai": {Kind: "openai", Keys: []string{"sk-one", "sk-two"}},
			"gemini": {Kind: "gemini", Keys: []string{"AIza-one"}},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Configuration)
		wantErr string // substring expected in the validation report, "" = valid
	}{
		{
			name:   "valid config",
			mutate: func(*Configuration) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Configuration) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "no providers",
			mutate:  func(c *Configuration) { c.Providers = nil },
			wantErr: "providers cannot be empty",
		},
		{
			name: "missing kind",
			mutate: func(c *Configuration) {
				d := c.Providers["openai"]
				d.Kind = ""
				c.Providers["openai"] = d
			},
			wantErr: "providers.openai.kind",
		},
		{
			name: "empty credential pool",
			mutate: func(c *Configuration) {
				d := c.Providers["gemini"]
				d.Keys = []string{"", ""}
				c.Providers["gemini"] = d
			},
			wantErr: "providers.gemini.keys",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Configuration) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Configuration) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Validate() error = %T, want *ValidationError", err)
			}
			if !verr.HasError(tt.wantErr) {
				t.Errorf("validation report missing %q: %v", tt.wantErr, verr.Errors)
			}
		})
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
providers:
  openai:
    kind: openai
    keys: [sk-file-one, sk-file-two]
    default_model: gpt-4o-mini
  gemini:
    kind: gemini
    keys: [AIza-file]
    strict_emulation: true
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	openai := cfg.Providers["openai"]
	if openai.Kind != "openai" || len(openai.Keys) != 2 || openai.DefaultModel != "gpt-4o-mini" {
		t.Errorf("openai descriptor = %+v", openai)
	}
	if !cfg.Providers["gemini"].StrictEmulation {
		t.Error("gemini strict_emulation not parsed")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("logging format = %s, want text", cfg.Logging.Format)
	}
	if cfg.TotalKeyCount() != 3 {
		t.Errorf("TotalKeyCount() = %d, want 3", cfg.TotalKeyCount())
	}
}

func TestLoadConfig_EnvCredentialsOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
providers:
  my-gateway:
    kind: openai
    keys: [file-key]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("MODELGATE_KEYS_MY_GATEWAY", "env-one, env-two,,env-three")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	keys := cfg.Providers["my-gateway"].Keys
	if len(keys) != 3 || keys[0] != "env-one" || keys[2] != "env-three" {
		t.Errorf("env keys not applied: %v", keys)
	}
}

func TestLoadConfig_MissingProvidersFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	_, err := loadConfig(path)
	if !IsValidationError(err) {
		t.Fatalf("loadConfig() error = %v, want validation error", err)
	}
}
