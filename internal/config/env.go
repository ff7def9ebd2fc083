package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// EnvFileName is the secrets file looked up in the project root.
const EnvFileName = ".env"

// Env keys written by `fastiscord init` and read by the runtime.
const (
	EnvToken    = "DISCORD_TOKEN"
	EnvClientID = "DISCORD_CLIENT_ID"
	EnvGuildID  = "DISCORD_GUILD_ID"
	EnvLedger   = "FASTISCORD_LEDGER"
)

// DefaultLedgerPath is where sync results are kept unless FASTISCORD_LEDGER says otherwise.
const DefaultLedgerPath = ".fastiscord/ledger.json"

// Secrets carries the credentials read from the environment.
type Secrets struct {
	Token      string `env:"DISCORD_TOKEN"`
	ClientID   string `env:"DISCORD_CLIENT_ID"`
	GuildID    string `env:"DISCORD_GUILD_ID"`
	LedgerPath string `env:"FASTISCORD_LEDGER" envDefault:".fastiscord/ledger.json"`
}

// LoadEnv loads root/.env into the process environment (existing variables win)
// and parses the secrets from it. A missing .env file is not an error.
func LoadEnv(root string) (*Secrets, error) {
	path := filepath.Join(root, EnvFileName)
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Path: path, Err: err}
		}
		log.Debug().Str("path", path).Msg("No .env file found, falling back to system environment variables")
	}
	return ParseEnv()
}

// ParseEnv parses the secrets from the process environment.
func ParseEnv() (*Secrets, error) {
	s, err := env.ParseAs[Secrets]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &s, nil
}

// Require checks that the token and client ID are set.
func (s *Secrets) Require() error {
	var missing []string
	if s == nil || s.Token == "" {
		missing = append(missing, EnvToken)
	}
	if s == nil || s.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if len(missing) > 0 {
		return &EnvError{Missing: missing}
	}
	return nil
}

// Ledger returns the ledger path, relative paths taken from root.
func (s *Secrets) Ledger(root string) string {
	p := s.LedgerPath
	if p == "" {
		p = DefaultLedgerPath
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
