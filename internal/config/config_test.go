package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockBackend is an in-memory SettingsStore.
type mockBackend struct {
	strs map[string]string
	ints map[string]int
}

func newMockBackend() *mockBackend {
	return &mockBackend{strs: map[string]string{}, ints: map[string]int{}}
}

func (m *mockBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strs[key]
	return v, ok, nil
}

func (m *mockBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *mockBackend) SetString(key, val string) error { m.strs[key] = val; return nil }
func (m *mockBackend) SetInt(key string, val int) error { m.ints[key] = val; return nil }

func (m *mockBackend) Delete(key string) error {
	delete(m.strs, key)
	delete(m.ints, key)
	return nil
}

// mockKeychain is a test double for the secret store.
type mockKeychain struct {
	values map[string]string
	getErr error
	setErr error
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[service+"/"+account] = value
	return nil
}

// clearEnv blanks every STUDYD_* variable for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
	t.Setenv(tokenEnv, "")
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMockBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://127.0.0.1:5000/api" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutDuration() != 30*time.Second {
		t.Errorf("Backend.Timeout = %q", cfg.Backend.Timeout)
	}
	if cfg.Timer.BreakMinutes != 5 {
		t.Errorf("Timer.BreakMinutes = %d, want 5", cfg.Timer.BreakMinutes)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.ints["server.port"] = 5100
	b.ints["timer.break_minutes"] = 10
	b.strs["backend.base_url"] = "http://planner.local:8080/api"
	b.strs["backend.timeout"] = "45s"
	b.strs["storage.data_dir"] = "/tmp/studyd-test"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5100 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Timer.BreakMinutes != 10 {
		t.Errorf("Timer.BreakMinutes = %d", cfg.Timer.BreakMinutes)
	}
	if cfg.Backend.BaseURL != "http://planner.local:8080/api" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutDuration() != 45*time.Second {
		t.Errorf("Backend.Timeout = %q", cfg.Backend.Timeout)
	}
	if cfg.Storage.DataDir != "/tmp/studyd-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestBackendBadDurationKeepsDefault(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.strs["backend.timeout"] = "soon"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.Timeout != "30s" {
		t.Errorf("Backend.Timeout = %q, want default", cfg.Backend.Timeout)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.ints["server.port"] = 5100
	t.Setenv("STUDYD_SERVER_PORT", "6200")
	t.Setenv("STUDYD_LOG_LEVEL", "debug")
	t.Setenv("STUDYD_BACKEND_TIMEOUT", "5s")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6200 {
		t.Errorf("Server.Port = %d, want 6200", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Backend.TimeoutDuration() != 5*time.Second {
		t.Errorf("Backend.Timeout = %q", cfg.Backend.Timeout)
	}
}

func TestEnvOverride_InvalidIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("STUDYD_SERVER_PORT", "not-a-port")
	t.Setenv("STUDYD_BACKEND_TIMEOUT", "later")

	cfg, err := loadWith(newMockBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4100 || cfg.Backend.Timeout != "30s" {
		t.Errorf("invalid env applied: port=%d timeout=%q", cfg.Server.Port, cfg.Backend.Timeout)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		set  func(b *mockBackend)
		want string
	}{
		{"port", func(b *mockBackend) { b.ints["server.port"] = 70000 }, "server.port"},
		{"base url", func(b *mockBackend) { b.strs["backend.base_url"] = "planner" }, "backend.base_url"},
		{"break", func(b *mockBackend) { b.ints["timer.break_minutes"] = 0 }, "timer.break_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			b := newMockBackend()
			tt.set(b)
			_, err := loadWith(b)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	b := newMockBackend()

	if err := setKeyWith(b, "server.port", "4200"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if b.ints["server.port"] != 4200 {
		t.Errorf("server.port = %d", b.ints["server.port"])
	}
	if err := setKeyWith(b, "backend.timeout", "1m"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}

	if err := setKeyWith(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, "backend.timeout", "abc"); err == nil {
		t.Error("expected error for bad duration")
	}
	if err := setKeyWith(b, "nope", "1"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllAndValidKeys(t *testing.T) {
	keys := ValidKeys()
	infos := ShowAll(defaults())
	if len(keys) != len(specs) || len(infos) != len(specs) {
		t.Fatalf("keys = %d, infos = %d, specs = %d", len(keys), len(infos), len(specs))
	}
	for _, info := range infos {
		if !strings.HasPrefix(info.EnvVar, "STUDYD_") {
			t.Errorf("%s env var = %q", info.Key, info.EnvVar)
		}
	}
}

func TestGetAPIToken_GeneratesAndPersists(t *testing.T) {
	clearEnv(t)
	kc := &mockKeychain{}

	first, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}

	second, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if first != second {
		t.Error("token regenerated instead of read back")
	}
}

func TestGetAPIToken_EnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(tokenEnv, "env-token")

	tok, err := GetAPIToken(&mockKeychain{getErr: errors.New("locked")})
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if tok != "env-token" {
		t.Errorf("token = %q, want env-token", tok)
	}
}

func TestGetAPIToken_StoreFailure(t *testing.T) {
	clearEnv(t)

	_, err := GetAPIToken(&mockKeychain{setErr: errors.New("read-only")})
	if err == nil {
		t.Fatal("expected error when the token cannot be stored")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("STUDYD_LOG_LEVEL")
	t.Setenv("STUDYD_SERVER_PORT", "4200")

	path := filepath.Join(t.TempDir(), ".env")
	data := "STUDYD_LOG_LEVEL=debug\nSTUDYD_SERVER_PORT=4300\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("STUDYD_LOG_LEVEL") })

	cfg, err := loadWith(newMockBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug from file", cfg.Log.Level)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("Server.Port = %d, want 4200 from environment", cfg.Server.Port)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file: %v", err)
	}
}
