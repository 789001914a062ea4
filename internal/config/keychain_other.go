//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Without a system keychain, secrets such as the local API token live in
// secrets.json next to the rest of studyd's data, readable only by the
// owner. The file maps service to account to value.
type secretFile map[string]map[string]string

func secretsPath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

func readSecrets(path string) (secretFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf secretFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return sf, nil
}

func keychainGet(service, account string) ([]byte, error) {
	sf, err := readSecrets(secretsPath())
	if err != nil {
		return nil, fmt.Errorf("no stored secrets: %w", err)
	}
	val, ok := sf[service][account]
	if !ok {
		return nil, fmt.Errorf("no secret stored for %s/%s", service, account)
	}
	return []byte(val), nil
}

// keychainSet adds or replaces one secret. An unreadable file is replaced
// rather than blocking a fresh token from being stored.
func keychainSet(service, account, value string) error {
	path := secretsPath()
	sf, err := readSecrets(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[WARN] replacing unreadable secrets file: %v\n", err)
	}
	if sf == nil {
		sf = secretFile{}
	}
	if sf[service] == nil {
		sf[service] = map[string]string{}
	}
	sf[service][account] = value

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	raw, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding secrets: %w", err)
	}
	return os.WriteFile(path, raw, 0o600)
}
