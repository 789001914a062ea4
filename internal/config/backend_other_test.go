//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newPlatformBackend()
	if err := b.SetInt("server.port", 4300); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := b.SetString("backend.base_url", "http://example.test/api"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	// A fresh backend reads what the first one saved.
	b2 := newPlatformBackend()
	port, ok, err := b2.GetInt("server.port")
	if err != nil || !ok || port != 4300 {
		t.Errorf("GetInt = %d, %v, %v", port, ok, err)
	}
	url, ok, err := b2.GetString("backend.base_url")
	if err != nil || !ok || url != "http://example.test/api" {
		t.Errorf("GetString = %q, %v, %v", url, ok, err)
	}

	if err := b2.Delete("server.port"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := newPlatformBackend().GetInt("server.port"); ok {
		t.Error("deleted key still present")
	}
}

func TestFileBackend_RejectsFractionalInt(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "studyd"), 0o700); err != nil {
		t.Fatal(err)
	}
	raw := []byte(`{"server.port": 4300.5, "log.level": 3}`)
	if err := os.WriteFile(filepath.Join(dir, "studyd", "config.json"), raw, 0o600); err != nil {
		t.Fatal(err)
	}

	b := newPlatformBackend()
	if _, ok, err := b.GetInt("server.port"); !ok || err == nil {
		t.Errorf("GetInt(4300.5) = ok %v, err %v; want a range error", ok, err)
	}
	if s, ok, err := b.GetString("log.level"); !ok || err != nil || s != "3" {
		t.Errorf("GetString(3) = %q, %v, %v", s, ok, err)
	}
}

func TestFileKeychain_ReplacesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "studyd"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "studyd", "secrets.json"), []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	kc := NewKeychain()
	if _, err := kc.Get("studyd", "api_token"); err == nil {
		t.Fatal("expected error reading a corrupt secrets file")
	}
	if err := kc.Set("studyd", "api_token", "fresh"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := kc.Get("studyd", "api_token"); err != nil || got != "fresh" {
		t.Errorf("Get = %q, %v", got, err)
	}
}

func TestFileKeychain_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	kc := NewKeychain()
	if _, err := kc.Get("studyd", "api_token"); err == nil {
		t.Fatal("expected error before anything is stored")
	}
	if err := kc.Set("studyd", "api_token", "secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := kc.Get("studyd", "api_token")
	if err != nil || got != "secret" {
		t.Errorf("Get = %q, %v", got, err)
	}

	info, err := os.Stat(filepath.Join(dir, "studyd", "secrets.json"))
	if err != nil {
		t.Fatalf("stat secrets file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("secrets file mode = %o, want 600", perm)
	}
}
