// Package config loads the project configuration document and the secrets
// a bot needs to talk to Discord.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// FileName is the configuration document looked up in the project root.
	FileName = "fastiscord.config.json"

	// RootToken is replaced by the project root in file patterns.
	RootToken = "@root"

	DefaultCommandFilePattern = "@root/src/commands/**/*.c.@(yaml|yml|json|toml)"
	DefaultEventFilePattern   = "@root/src/events/**/*.e.@(yaml|yml|json|toml)"
)

const (
	keyCommandFilePattern = "commandFilePattern"
	keyEventFilePattern   = "eventFilePattern"
)

// Config holds the handler file patterns.
type Config struct {
	CommandFilePattern string `json:"commandFilePattern"`
	EventFilePattern   string `json:"eventFilePattern"`
}

// Default returns the unresolved default configuration.
func Default() Config {
	return Config{
		CommandFilePattern: DefaultCommandFilePattern,
		EventFilePattern:   DefaultEventFilePattern,
	}
}

// metaEscaper escapes the characters doublestar unescapes when it splits the
// static base off a pattern.
var metaEscaper = strings.NewReplacer("*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`, "{", `\{`, "}", `\}`)

// EscapeRoot quotes glob meta characters in root so it matches itself
// literally. Backslash is the path separator on Windows, where doublestar
// has no escaping and root is returned as is.
func EscapeRoot(root string) string {
	if filepath.Separator == '\\' {
		return root
	}
	return metaEscaper.Replace(root)
}

// Resolve replaces every RootToken in pattern with root, escaped by EscapeRoot.
func Resolve(pattern, root string) string {
	return strings.ReplaceAll(pattern, RootToken, EscapeRoot(root))
}

// Resolved returns a copy of c with both patterns resolved against root.
func (c Config) Resolved(root string) Config {
	return Config{
		CommandFilePattern: Resolve(c.CommandFilePattern, root),
		EventFilePattern:   Resolve(c.EventFilePattern, root),
	}
}

// Load reads FileName from root. A missing document yields the defaults and is
// not created. Absent or empty fields fall back to defaults; unknown fields are
// ignored. The returned patterns are resolved against root.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default().Resolved(root)
			return &cfg, nil
		}
		return nil, &Error{Path: path, Err: err}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	defaults := Default()
	cmdPattern, err := stringField(v, keyCommandFilePattern, defaults.CommandFilePattern)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	evtPattern, err := stringField(v, keyEventFilePattern, defaults.EventFilePattern)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	cfg := Config{CommandFilePattern: cmdPattern, EventFilePattern: evtPattern}.Resolved(root)
	return &cfg, nil
}

func stringField(v *viper.Viper, key, fallback string) (string, error) {
	if !v.IsSet(key) {
		return fallback, nil
	}
	raw := v.Get(key)
	if raw == nil {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, raw)
	}
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return s, nil
}
