package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/fastiscord/internal/config"
	"github.com/keshon/fastiscord/pkg/cmd"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testCatalog registers command handlers that report their key into calls.
func testCatalog(calls *[]string, commandKeys, eventKeys []string) *cmd.Catalog {
	c := cmd.NewCatalog()
	for _, k := range commandKeys {
		c.RegisterCommand(k, func(context.Context, *cmd.Interaction) error {
			*calls = append(*calls, k)
			return nil
		})
	}
	for _, k := range eventKeys {
		c.RegisterEvent(k, func(context.Context, cmd.Conn, any) error {
			*calls = append(*calls, k)
			return nil
		})
	}
	return c
}

func commandPattern(dir string) string {
	return config.Resolve("@root/commands/**/*.c.@(yaml|yml|json|toml)", dir)
}

func eventPattern(dir string) string {
	return config.Resolve("@root/events/**/*.e.@(yaml|yml|json|toml)", dir)
}

func TestCommands_KeySetEqualsManifestNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "commands", "ping.c.yaml"), "data:\n  name: ping\n  description: Replies with Pong!\nrun: ping\n")
	writeFile(t, filepath.Join(dir, "commands", "fun", "roll.c.json"), `{"data":{"name":"roll","description":"Roll","options":[{"type":4,"name":"sides","description":"Sides","required":true}]},"run":"roll"}`)
	writeFile(t, filepath.Join(dir, "commands", "admin", "kick.c.toml"), "run = \"kick\"\n[data]\nname = \"kick\"\ndescription = \"Kick someone\"\ntype = 1\n")
	writeFile(t, filepath.Join(dir, "commands", "notes.md"), "not a manifest")

	var calls []string
	d := New(testCatalog(&calls, []string{"ping", "roll", "kick"}, nil), WithLogger(zerolog.Nop()))

	table, collisions, err := d.Commands(context.Background(), commandPattern(dir))
	require.NoError(t, err)
	assert.Empty(t, collisions)

	assert.ElementsMatch(t, []string{"ping", "roll", "kick"}, table.Names())

	roll, ok := table.Get("roll")
	require.True(t, ok)
	require.Len(t, roll.Data.Options, 1)
	assert.True(t, roll.Data.Options[0].Required)

	kick, ok := table.Get("kick")
	require.True(t, ok)
	assert.EqualValues(t, 1, kick.Data.Type)
	assert.Equal(t, filepath.Join(dir, "commands", "admin", "kick.c.toml"), kick.Source)
}

func TestCommands_RootWithGlobMetaCharacters(t *testing.T) {
	if filepath.Separator == '\\' {
		t.Skip("doublestar has no escaping when backslash is the separator")
	}
	dir := filepath.Join(t.TempDir(), "bot[1] {dev}")
	path := filepath.Join(dir, "commands", "ping.c.yaml")
	writeFile(t, path, "data:\n  name: ping\n  description: Replies with Pong!\nrun: ping\n")

	var calls []string
	d := New(testCatalog(&calls, []string{"ping"}, nil), WithLogger(zerolog.Nop()))

	pattern := commandPattern(dir)
	table, _, err := d.Commands(context.Background(), pattern)
	require.NoError(t, err)
	assert.Equal(t, []string{"ping"}, table.Names())

	ping, ok := table.Get("ping")
	require.True(t, ok)
	assert.Equal(t, path, ping.Source)

	assert.Equal(t, filepath.Join(dir, "commands"), Base(pattern))
	assert.True(t, Match(pattern, path))
}

func TestCommands_SameNameLastMatchWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "commands", "1-ping.c.yaml")
	second := filepath.Join(dir, "commands", "2-ping.c.yaml")
	writeFile(t, first, "data:\n  name: ping\nrun: ping-first\n")
	writeFile(t, second, "data:\n  name: ping\nrun: ping-second\n")

	var calls []string
	d := New(testCatalog(&calls, []string{"ping-first", "ping-second"}, nil), WithLogger(zerolog.Nop()))

	table, collisions, err := d.Commands(context.Background(), commandPattern(dir))
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	ping, ok := table.Get("ping")
	require.True(t, ok)
	assert.Equal(t, second, ping.Source)

	require.NoError(t, ping.Run(context.Background(), &cmd.Interaction{}))
	assert.Equal(t, []string{"ping-second"}, calls)

	require.Len(t, collisions, 1)
	assert.Equal(t, Collision{Name: "ping", Previous: first, Current: second}, collisions[0])
}

func TestCommands_NoMatchesIsEmpty(t *testing.T) {
	d := New(cmd.NewCatalog(), WithLogger(zerolog.Nop()))

	table, _, err := d.Commands(context.Background(), commandPattern(t.TempDir()))
	require.NoError(t, err)
	assert.Zero(t, table.Len())
}

func TestCommands_MalformedModuleAbortsPass(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"missing name", "data:\n  description: x\nrun: ping\n", ErrMissingName},
		{"missing run", "data:\n  name: ping\n", ErrMissingRun},
		{"unknown handler", "data:\n  name: ping\nrun: nope\n", ErrUnknownHandler},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "commands", "a-good.c.yaml"), "data:\n  name: good\nrun: ping\n")
			bad := filepath.Join(dir, "commands", "b-bad.c.yaml")
			writeFile(t, bad, tt.content)

			var calls []string
			d := New(testCatalog(&calls, []string{"ping"}, nil), WithLogger(zerolog.Nop()))

			table, _, err := d.Commands(context.Background(), commandPattern(dir))
			require.Error(t, err)
			assert.Nil(t, table)
			assert.ErrorIs(t, err, ErrDiscovery)
			assert.ErrorIs(t, err, tt.want)

			var derr *Error
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, bad, derr.Path)
			assert.Contains(t, err.Error(), bad)
		})
	}
}

func TestCommands_UndecodableFileNamesPath(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "commands", "broken.c.json")
	writeFile(t, bad, `{"data": `)

	d := New(cmd.NewCatalog(), WithLogger(zerolog.Nop()))
	_, _, err := d.Commands(context.Background(), commandPattern(dir))

	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, bad, derr.Path)
}

func TestEvents_KeepsDuplicatesInDiscoveryOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "events", "1-ready.e.yaml"), "name: ready\nonce: true\nrun: first\n")
	writeFile(t, filepath.Join(dir, "events", "2-ready.e.yaml"), "name: ready\nrun: second\n")
	writeFile(t, filepath.Join(dir, "events", "3-interaction.e.json"), `{"name":"interactionCreate","run":"third"}`)

	var calls []string
	d := New(testCatalog(&calls, nil, []string{"first", "second", "third"}), WithLogger(zerolog.Nop()))

	events, err := d.Events(context.Background(), eventPattern(dir))
	require.NoError(t, err)

	require.Len(t, events[cmd.EventReady], 2)
	assert.True(t, events[cmd.EventReady][0].Once)
	assert.False(t, events[cmd.EventReady][1].Once)
	require.Len(t, events[cmd.EventInteractionCreate], 1)

	for _, ev := range events[cmd.EventReady] {
		require.NoError(t, ev.Run(context.Background(), nil, nil))
	}
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestEvents_UnsupportedNameIsDiscoveryError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "events", "x.e.yaml"), "name: clientReady\nrun: first\n")

	var calls []string
	d := New(testCatalog(&calls, nil, []string{"first"}), WithLogger(zerolog.Nop()))

	_, err := d.Events(context.Background(), eventPattern(dir))
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.ErrorIs(t, err, ErrDiscovery)
}

func TestDiscover_RunsBothPasses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "commands", "ping.c.yaml"), "data:\n  name: ping\nrun: ping\n")
	writeFile(t, filepath.Join(dir, "events", "ready.e.yaml"), "name: ready\nrun: ready\n")

	var calls []string
	d := New(testCatalog(&calls, []string{"ping"}, []string{"ready"}), WithLogger(zerolog.Nop()))

	snap, err := d.Discover(context.Background(), config.Config{
		CommandFilePattern: commandPattern(dir),
		EventFilePattern:   eventPattern(dir),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Commands.Len())
	assert.Equal(t, 1, snap.Events.Len())
}

func TestDiscover_EventFailureFailsRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "commands", "ping.c.yaml"), "data:\n  name: ping\nrun: ping\n")
	writeFile(t, filepath.Join(dir, "events", "ready.e.yaml"), "name: ready\nrun: missing\n")

	var calls []string
	d := New(testCatalog(&calls, []string{"ping"}, nil), WithLogger(zerolog.Nop()))

	snap, err := d.Discover(context.Background(), config.Config{
		CommandFilePattern: commandPattern(dir),
		EventFilePattern:   eventPattern(dir),
	})
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, ErrUnknownHandler)
}

type stubLoader struct {
	commands map[string]*CommandManifest
}

func (s stubLoader) LoadCommand(path string) (*CommandManifest, error) {
	return s.commands[filepath.Base(path)], nil
}

func (stubLoader) LoadEvent(string) (*EventManifest, error) {
	return nil, errors.New("no events")
}

func TestCommands_CustomLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "commands", "x.c.yaml"), "ignored")

	var calls []string
	d := New(testCatalog(&calls, []string{"ping"}, nil),
		WithLogger(zerolog.Nop()),
		WithLoader(stubLoader{commands: map[string]*CommandManifest{
			"x.c.yaml": {Data: cmd.Data{Name: "from-loader"}, Run: "ping"},
		}}),
	)

	table, _, err := d.Commands(context.Background(), commandPattern(dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"from-loader"}, table.Names())
}
