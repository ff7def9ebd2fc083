package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		root    string
		want    string
	}{
		{"leading token", "@root/src/commands/**/*.c.@(ts|js)", "/proj", "/proj/src/commands/**/*.c.@(ts|js)"},
		{"every occurrence", "@root/a/{@root,b}", "/p", "/p/a/{/p,b}"},
		{"no token", "/abs/**/*.yaml", "/proj", "/abs/**/*.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.pattern, tt.root)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Resolve(got, tt.root), "resolving twice must not change the result")
		})
	}
}

func TestResolve_EscapesMetaInRoot(t *testing.T) {
	if filepath.Separator == '\\' {
		t.Skip("doublestar has no escaping when backslash is the separator")
	}
	got := Resolve("@root/src/**/*.c.yaml", "/home/me/bot[1]/{dev}*?")
	assert.Equal(t, `/home/me/bot\[1\]/\{dev\}\*\?/src/**/*.c.yaml`, got)
	assert.Equal(t, got, Resolve(got, "/ignored"))
	assert.Equal(t, "/plain/dir", EscapeRoot("/plain/dir"))
}

func TestLoad_MissingDocumentUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir+"/src/commands/**/*.c.@(yaml|yml|json|toml)", cfg.CommandFilePattern)
	assert.Equal(t, dir+"/src/events/**/*.e.@(yaml|yml|json|toml)", cfg.EventFilePattern)

	_, statErr := os.Stat(filepath.Join(dir, FileName))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "Load must not create the document")
}

func TestLoad_FillsOnlyAbsentFields(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"commandFilePattern": "@root/bot/cmds/*.yaml", "extra": true}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir+"/bot/cmds/*.yaml", cfg.CommandFilePattern)
	assert.Equal(t, Resolve(DefaultEventFilePattern, dir), cfg.EventFilePattern)
}

func TestLoad_EmptyFieldFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"commandFilePattern": "", "eventFilePattern": "@root/ev/*.yaml"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, Resolve(DefaultCommandFilePattern, dir), cfg.CommandFilePattern)
	assert.Equal(t, dir+"/ev/*.yaml", cfg.EventFilePattern)
}

func TestLoad_WrongTypeIsConfigError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"commandFilePattern": 42}`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "commandFilePattern")
}

func TestLoad_MalformedJSONIsConfigError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"commandFilePattern": `)

	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, filepath.Join(dir, FileName), cfgErr.Path)
}

// clearEnv registers cleanup for key and unsets it so godotenv may fill it.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadEnv_ReadsDotEnv(t *testing.T) {
	clearEnv(t, EnvToken, EnvClientID, EnvGuildID, EnvLedger)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFileName),
		[]byte("DISCORD_TOKEN=tok\nDISCORD_CLIENT_ID=app\n"), 0o600))

	s, err := LoadEnv(dir)
	require.NoError(t, err)

	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, "app", s.ClientID)
	assert.Empty(t, s.GuildID)
	assert.NoError(t, s.Require())
	assert.Equal(t, filepath.Join(dir, DefaultLedgerPath), s.Ledger(dir))
}

func TestLoadEnv_MissingFileFallsBackToEnvironment(t *testing.T) {
	clearEnv(t, EnvToken, EnvClientID, EnvGuildID)
	t.Setenv(EnvToken, "from-env")

	s, err := LoadEnv(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "from-env", s.Token)
	err = s.Require()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEnvironment)

	var envErr *EnvError
	require.ErrorAs(t, err, &envErr)
	assert.Equal(t, []string{EnvClientID}, envErr.Missing)
	assert.Contains(t, err.Error(), "fastiscord init")
}

func TestSecrets_RequireNamesBothKeys(t *testing.T) {
	var s *Secrets
	err := s.Require()

	var envErr *EnvError
	require.ErrorAs(t, err, &envErr)
	assert.Equal(t, []string{EnvToken, EnvClientID}, envErr.Missing)
}
