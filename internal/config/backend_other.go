//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// xdgDir returns the studyd directory under the XDG base named by env. When
// env is unset the base is the home directory joined with home. ok is false
// when there is no home directory either.
func xdgDir(env string, home ...string) (string, bool) {
	base := os.Getenv(env)
	if base == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		base = filepath.Join(append([]string{h}, home...)...)
	}
	return filepath.Join(base, "studyd"), true
}

// defaultDataDir holds the sqlite store, the XP journal and the secrets file.
func defaultDataDir() string {
	if dir, ok := xdgDir("XDG_DATA_HOME", ".local", "share"); ok {
		return dir
	}
	return "studyd-data"
}

func settingsPath() string {
	if dir, ok := xdgDir("XDG_CONFIG_HOME", ".config"); ok {
		return filepath.Join(dir, "config.json")
	}
	return filepath.Join("studyd", "config.json")
}

// jsonSettings keeps every key in one flat JSON object and rewrites the
// whole file on each change. Numbers come back from the file as float64.
type jsonSettings struct {
	path   string
	values map[string]any
}

func newPlatformBackend() SettingsStore {
	s := &jsonSettings{path: settingsPath(), values: map[string]any{}}
	s.read()
	return s
}

// read loads the file once at startup. A missing file is a fresh install;
// a broken one is reported and ignored so the defaults still apply.
func (s *jsonSettings) read() {
	raw, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		return
	case err != nil:
		fmt.Fprintf(os.Stderr, "[WARN] studyd settings %s unreadable (%v), using defaults\n", s.path, err)
		return
	}
	if err := json.Unmarshal(raw, &s.values); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] studyd settings %s is not valid JSON (%v), using defaults\n", s.path, err)
	}
}

func (s *jsonSettings) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return os.WriteFile(s.path, raw, 0o600)
}

func (s *jsonSettings) GetString(key string) (string, bool, error) {
	v, ok := s.values[key]
	if !ok {
		return "", false, nil
	}
	if str, isStr := v.(string); isStr {
		return str, true, nil
	}
	return fmt.Sprint(v), true, nil
}

func (s *jsonSettings) GetInt(key string) (int, bool, error) {
	v, ok := s.values[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n > math.MaxInt {
			return 0, true, fmt.Errorf("%s: %v is not a whole number in range", key, n)
		}
		return int(n), true, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, true, fmt.Errorf("%s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s: unexpected %T", key, v)
	}
}

func (s *jsonSettings) SetString(key, val string) error {
	s.values[key] = val
	return s.write()
}

func (s *jsonSettings) SetInt(key string, val int) error {
	s.values[key] = val
	return s.write()
}

func (s *jsonSettings) Delete(key string) error {
	delete(s.values, key)
	return s.write()
}
