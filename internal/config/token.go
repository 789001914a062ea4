package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const (
	keychainService = "studyd"
	tokenAccount    = "api_token"
	tokenEnv        = "STUDYD_API_TOKEN"
)

// Keychain is the platform secret store: macOS Keychain, or a 0600
// secrets file under the data directory elsewhere.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

type platformKeychain struct{}

// NewKeychain returns the platform secret store.
func NewKeychain() Keychain {
	return platformKeychain{}
}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// GetAPIToken returns the bearer token guarding the local API. The first
// call generates a random token and stores it in kc; STUDYD_API_TOKEN
// overrides the stored one.
func GetAPIToken(kc Keychain) (string, error) {
	if tok := os.Getenv(tokenEnv); tok != "" {
		return tok, nil
	}
	if tok, err := kc.Get(keychainService, tokenAccount); err == nil && tok != "" {
		return tok, nil
	}

	tok, err := newToken()
	if err != nil {
		return "", err
	}
	if err := kc.Set(keychainService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
