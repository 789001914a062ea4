package config

// SettingsStore is where studyd persists the keys listed in specs between
// runs. On macOS that is the com.studyd.app defaults domain; elsewhere it
// is $XDG_CONFIG_HOME/studyd/config.json.
//
// Getters report ok=false for a key that was never set. An error means the
// stored value exists but cannot be read as the requested type.
type SettingsStore interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
