package discord

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/keshon/fastiscord/internal/config"
	"github.com/keshon/fastiscord/internal/discovery"
	"github.com/keshon/fastiscord/internal/testutil"
	"github.com/keshon/fastiscord/pkg/cmd"
)

type project struct {
	root    string
	catalog *cmd.Catalog
	tr      *testutil.Transport
	reg     *testutil.Registrar
	gw      *testutil.Gateway
	calls   []string
}

func newProject(t *testing.T) *project {
	t.Helper()
	p := &project{
		root:    t.TempDir(),
		catalog: cmd.NewCatalog(),
		tr:      testutil.NewTransport(),
		reg:     testutil.NewRegistrar(),
		gw:      testutil.NewGateway(),
	}
	p.catalog.RegisterCommand("ping", func(context.Context, *cmd.Interaction) error {
		p.calls = append(p.calls, "ping")
		return nil
	})
	p.catalog.RegisterEvent("on-ready", func(context.Context, cmd.Conn, any) error {
		p.calls = append(p.calls, "ready")
		return nil
	})
	p.write(t, "src/commands/ping.c.yaml", "data:\n  name: ping\n  description: Pong\nrun: ping\n")
	p.write(t, "src/events/ready.e.yaml", "name: ready\nonce: true\nrun: on-ready\n")
	return p
}

func (p *project) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(p.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (p *project) client(t *testing.T, secrets *config.Secrets) *Client {
	t.Helper()
	c, err := NewClient(p.root,
		WithSecrets(secrets),
		WithCatalog(p.catalog),
		WithTransport(p.tr),
		WithRegistrar(p.reg),
		WithGateway(p.gw),
		WithLogger(zerolog.Nop()),
		WithSyncOptions(WithPacing(rate.Inf, 1)),
	)
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingSecrets(t *testing.T) {
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvClientID, "")

	_, err := NewClient(t.TempDir(), WithLogger(zerolog.Nop()))
	assert.ErrorIs(t, err, config.ErrEnvironment)
	assert.Contains(t, err.Error(), "fastiscord init")
}

func TestClient_StartBeforeLoad(t *testing.T) {
	p := newProject(t)
	c := p.client(t, testSecrets)

	assert.ErrorIs(t, c.Start(), ErrNotLoaded)
	assert.ErrorIs(t, c.Run(context.Background()), ErrNotLoaded)

	_, err := c.RegisterGlobalCommands(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Nil(t, c.Commands())
}

func TestClient_RunOpensAndClosesGateway(t *testing.T) {
	p := newProject(t)
	c := p.client(t, testSecrets)
	_, err := c.Load(context.Background())
	require.NoError(t, err)
	require.NotZero(t, p.tr.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 1, p.gw.Opens())
	assert.Equal(t, 1, p.gw.Closes())
	assert.Zero(t, p.tr.Len())
}

func TestClient_StartReportsGatewayFailure(t *testing.T) {
	p := newProject(t)
	p.gw.OpenErr = errors.New("websocket: bad handshake")
	c := p.client(t, testSecrets)
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	err = c.Run(context.Background())
	assert.ErrorIs(t, err, p.gw.OpenErr)
	assert.Contains(t, err.Error(), "failed to open Discord session")
	assert.Zero(t, p.gw.Closes())
}

func TestClient_LoadExposesCommandsAndBindsEvents(t *testing.T) {
	p := newProject(t)
	c := p.client(t, testSecrets)

	snap, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Loaded())
	assert.Same(t, snap, c.Snapshot())

	ping, ok := c.Commands().Get("ping")
	require.True(t, ok)
	assert.Equal(t, "Pong", ping.Data.Description)

	p.tr.Emit(&discordgo.Ready{})
	p.tr.Emit(&discordgo.Ready{})
	assert.Equal(t, []string{"ready"}, p.calls)

	require.NoError(t, c.Close())
}

func TestClient_LoadFailsOnBadManifest(t *testing.T) {
	p := newProject(t)
	p.write(t, "src/commands/broken.c.yaml", "data:\n  name: broken\nrun: missing\n")
	c := p.client(t, testSecrets)

	_, err := c.Load(context.Background())
	assert.ErrorIs(t, err, discovery.ErrDiscovery)
	assert.False(t, c.Loaded())
	assert.Zero(t, p.tr.Len())
}

func TestClient_RegisterCommands(t *testing.T) {
	p := newProject(t)
	c := p.client(t, &config.Secrets{Token: "t", ClientID: "app", GuildID: "home"})

	_, err := c.Load(context.Background())
	require.NoError(t, err)

	res, err := c.RegisterGlobalCommands(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, []string{"ping"}, p.reg.Remote(""))

	res, err = c.RegisterGuildCommands(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "home", res.GuildID)
	assert.Equal(t, []string{"ping"}, p.reg.Remote("home"))
}

func TestClient_RegisterGuildWithoutGuildID(t *testing.T) {
	p := newProject(t)
	c := p.client(t, testSecrets)
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	_, err = c.RegisterGuildCommands(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestClient_RefreshCommandsPicksUpChanges(t *testing.T) {
	p := newProject(t)
	p.catalog.RegisterCommand("roll", func(context.Context, *cmd.Interaction) error { return nil })
	c := p.client(t, testSecrets)
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	p.write(t, "src/commands/roll.c.yaml", "data:\n  name: roll\nrun: roll\n")

	res, err := c.RefreshCommands(context.Background(), "g1")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.ElementsMatch(t, []string{"ping", "roll"}, p.reg.Remote("g1"))
	assert.Equal(t, 2, c.Commands().Len())
}

func TestClient_PublishSystemEventDropsWhenFull(t *testing.T) {
	p := newProject(t)
	c := p.client(t, testSecrets)

	for range cap(c.systemEvents) {
		require.True(t, c.PublishSystemEvent(SystemEvent{Type: SystemEventRefreshCommands}))
	}
	assert.False(t, c.PublishSystemEvent(SystemEvent{Type: SystemEventRefreshCommands}))
}

func commandInteraction(name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: name},
	}}
}

func TestDispatchCommand(t *testing.T) {
	var calls []string
	tbl := cmd.NewTable(
		&cmd.Command{Data: cmd.Data{Name: "ping"}, Run: func(_ context.Context, in *cmd.Interaction) error {
			calls = append(calls, in.CommandName())
			return nil
		}},
		&cmd.Command{Data: cmd.Data{Name: "fail"}, Run: func(context.Context, *cmd.Interaction) error {
			return errors.New("nope")
		}},
		&cmd.Command{Data: cmd.Data{Name: "panic"}, Run: func(context.Context, *cmd.Interaction) error {
			panic("bad")
		}},
	)
	conn := fakeConn{table: tbl}

	DispatchCommand(context.Background(), conn, commandInteraction("ping"), zerolog.Nop())
	DispatchCommand(context.Background(), conn, commandInteraction("unknown"), zerolog.Nop())
	assert.NotPanics(t, func() {
		DispatchCommand(context.Background(), conn, commandInteraction("fail"), zerolog.Nop())
		DispatchCommand(context.Background(), conn, commandInteraction("panic"), zerolog.Nop())
	})
	DispatchCommand(context.Background(), conn, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionPing,
	}}, zerolog.Nop())

	assert.Equal(t, []string{"ping"}, calls)
}
