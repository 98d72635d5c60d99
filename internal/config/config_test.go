package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("OFFICEBOT_BOT_TOKEN", "xoxb-test")
	t.Setenv("OFFICEBOT_SIGNING_SECRET", "sig-test")
}

// TestDefaults verifies default values survive an empty config file.
func TestDefaults(t *testing.T) {
	setRequiredSecrets(t)
	path := writeTempConfig(t, `{}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Platform.BaseURL != "https://slack.com/api" {
		t.Errorf("Platform.BaseURL = %q", cfg.Platform.BaseURL)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

// TestFileValues verifies keys are read from the config file.
func TestFileValues(t *testing.T) {
	setRequiredSecrets(t)
	path := writeTempConfig(t, `{
		"server.port": 8080,
		"platform.base_url": "https://chat.example.com/api",
		"storage.backend": "sqlite",
		"storage.data_dir": "/tmp/officebot-test",
		"log.level": "debug"
	}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Platform.BaseURL != "https://chat.example.com/api" {
		t.Errorf("Platform.BaseURL = %q", cfg.Platform.BaseURL)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.DataDir != "/tmp/officebot-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

// TestEnvOverride verifies environment variables override file values.
func TestEnvOverride(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("OFFICEBOT_SERVER_PORT", "9999")
	path := writeTempConfig(t, `{"server.port": 8080}`)

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want env override 9999", cfg.Server.Port)
	}
}

// TestMissingBotToken verifies a clear fatal error when credentials are absent.
func TestMissingBotToken(t *testing.T) {
	t.Setenv("OFFICEBOT_BOT_TOKEN", "")
	t.Setenv("OFFICEBOT_SIGNING_SECRET", "sig-test")
	path := writeTempConfig(t, `{}`)

	_, err := loadWith(newFileBackend(path))
	if err == nil {
		t.Fatal("expected error for missing bot token")
	}
	if !strings.Contains(err.Error(), "OFFICEBOT_BOT_TOKEN") {
		t.Errorf("error = %q, want mention of OFFICEBOT_BOT_TOKEN", err)
	}
}

func TestMissingSigningSecret(t *testing.T) {
	t.Setenv("OFFICEBOT_BOT_TOKEN", "xoxb-test")
	t.Setenv("OFFICEBOT_SIGNING_SECRET", "")
	path := writeTempConfig(t, `{}`)

	if _, err := loadWith(newFileBackend(path)); err == nil {
		t.Fatal("expected error for missing signing secret")
	}
}

func TestInvalidStorageBackend(t *testing.T) {
	setRequiredSecrets(t)
	path := writeTempConfig(t, `{"storage.backend": "postgres"}`)

	if _, err := loadWith(newFileBackend(path)); err == nil {
		t.Fatal("expected error for unsupported storage backend")
	}
}

func TestSetKeyRejectsSecrets(t *testing.T) {
	path := writeTempConfig(t, `{}`)
	b := newFileBackend(path)

	if err := setKeyWith(b, "platform.bot_token", "xoxb-leak"); err == nil {
		t.Error("expected refusal to store a secret in the config file")
	}
	if err := setKeyWith(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := setKeyWith(b, "server.port", "not-a-number"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, "server.port", "4001"); err != nil {
		t.Errorf("SetKey(server.port): %v", err)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	setRequiredSecrets(t)
	path := writeTempConfig(t, `{}`)
	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, ki := range ShowAll(cfg) {
		if ki.Key == "platform.bot_token" || ki.Key == "platform.signing_secret" {
			t.Errorf("secret key %s exposed by ShowAll", ki.Key)
		}
	}
}
