package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/fastiscord/internal/config"
	"github.com/keshon/fastiscord/internal/discovery"
	"github.com/keshon/fastiscord/pkg/cmd"
)

// Client is a Discord bot whose commands and events come from handler
// manifests in a project directory.
type Client struct {
	root    string
	cfg     *config.Config
	secrets *config.Secrets
	catalog *cmd.Catalog
	log     zerolog.Logger

	dg        *discordgo.Session
	gateway   Gateway
	transport Transport
	sync      *Synchronizer
	syncOpts  []SyncOption
	registrar Registrar

	mu       sync.RWMutex
	commands *cmd.Table
	snapshot *discovery.Snapshot
	bindings *Bindings
	loaded   bool

	systemEvents chan SystemEvent
}

// Gateway is the websocket connection a running client holds open.
// *discordgo.Session satisfies it.
type Gateway interface {
	Open() error
	Close() error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCatalog resolves manifests against c instead of cmd.DefaultCatalog.
func WithCatalog(c *cmd.Catalog) ClientOption {
	return func(cl *Client) { cl.catalog = c }
}

// WithLogger sets the client's logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(cl *Client) { cl.log = l }
}

// WithSecrets skips reading .env and uses s.
func WithSecrets(s *config.Secrets) ClientOption {
	return func(cl *Client) { cl.secrets = s }
}

// WithConfig skips reading the config document and uses cfg.
func WithConfig(cfg *config.Config) ClientOption {
	return func(cl *Client) { cl.cfg = cfg }
}

// WithTransport binds events through t instead of the gateway session.
func WithTransport(t Transport) ClientOption {
	return func(cl *Client) { cl.transport = t }
}

// WithGateway connects through g instead of the session's websocket.
func WithGateway(g Gateway) ClientOption {
	return func(cl *Client) { cl.gateway = g }
}

// WithRegistrar registers commands through r instead of the REST session.
func WithRegistrar(r Registrar) ClientOption {
	return func(cl *Client) { cl.registrar = r }
}

// WithSyncOptions passes opts to the client's Synchronizer.
func WithSyncOptions(opts ...SyncOption) ClientOption {
	return func(cl *Client) { cl.syncOpts = append(cl.syncOpts, opts...) }
}

// NewClient prepares a client for the project in root. Missing credentials
// fail here with a *config.EnvError, before any connection is attempted.
func NewClient(root string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		root:         root,
		catalog:      cmd.DefaultCatalog,
		log:          log.Logger,
		systemEvents: make(chan SystemEvent, 16),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.secrets == nil {
		secrets, err := config.LoadEnv(root)
		if err != nil {
			return nil, err
		}
		c.secrets = secrets
	}
	if err := c.secrets.Require(); err != nil {
		return nil, err
	}

	if c.cfg == nil {
		cfg, err := config.Load(root)
		if err != nil {
			return nil, err
		}
		c.cfg = cfg
	}

	dg, err := discordgo.New("Bot " + c.secrets.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.MaxRestRetries = 0
	dg.ShouldRetryOnRateLimit = false
	c.dg = dg
	c.configureIntents()

	if c.gateway == nil {
		c.gateway = dg
	}
	if c.transport == nil {
		c.transport = dg
	}
	if c.registrar == nil {
		c.registrar = dg
	}
	c.sync = NewSynchronizer(c.registrar, c.secrets,
		append([]SyncOption{WithSyncLogger(c.log)}, c.syncOpts...)...)

	return c, nil
}

// configureIntents configures the Discord intents
func (c *Client) configureIntents() {
	c.dg.Identify.Intents = discordgo.IntentsAllWithoutPrivileged
}

// Session returns the gateway session.
func (c *Client) Session() *discordgo.Session { return c.dg }

// Commands returns the command table exposed by Load, or nil before it.
func (c *Client) Commands() *cmd.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commands
}

// Config returns the resolved project configuration.
func (c *Client) Config() *config.Config { return c.cfg }

// Secrets returns the credentials the client was built with.
func (c *Client) Secrets() *config.Secrets { return c.secrets }

// Synchronizer returns the client's command synchronizer.
func (c *Client) Synchronizer() *Synchronizer { return c.sync }

// ExposeCommands makes table the command set served by the client.
func (c *Client) ExposeCommands(table *cmd.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = table
}

// Load discovers commands and events, exposes the commands and binds the
// events. It must complete before Start. Calling it again replaces the
// previous bindings.
func (c *Client) Load(ctx context.Context) (*discovery.Snapshot, error) {
	snap, err := discovery.New(c.catalog, discovery.WithLogger(c.log)).Discover(ctx, *c.cfg)
	if err != nil {
		return nil, err
	}

	c.ExposeCommands(snap.Commands)

	bindings, err := BindEvents(context.WithoutCancel(ctx), c.transport, c, snap.Events, c.log)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.bindings != nil {
		c.bindings.Close()
	}
	c.bindings = bindings
	c.snapshot = snap
	c.loaded = true
	c.mu.Unlock()

	c.log.Info().
		Int("commands", snap.Commands.Len()).
		Int("events", snap.Events.Len()).
		Int("collisions", len(snap.Collisions)).
		Msg("Handlers loaded")
	return snap, nil
}

// Snapshot returns the result of the last Load.
func (c *Client) Snapshot() *discovery.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Loaded reports whether Load has completed.
func (c *Client) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Start opens the gateway connection. It refuses to run before Load.
func (c *Client) Start() error {
	if !c.Loaded() {
		return ErrNotLoaded
	}
	if err := c.gateway.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	return nil
}

// Run starts the client and blocks until ctx is done, serving command refresh
// requests in the meantime.
func (c *Client) Run(ctx context.Context) error {
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Close()

	c.log.Info().Msg("Discord bot is running")
	for {
		select {
		case evt := <-c.systemEvents:
			c.handleSystemEvent(ctx, evt)
		case <-ctx.Done():
			c.log.Info().Msg("Shutdown signal received, cleaning up")
			return nil
		}
	}
}

// Close detaches bound events and closes the gateway connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.bindings != nil {
		c.bindings.Close()
		c.bindings = nil
	}
	c.mu.Unlock()

	if c.gateway == nil {
		return nil
	}
	return c.gateway.Close()
}

// RegisterGlobalCommands pushes the loaded command table to global scope.
func (c *Client) RegisterGlobalCommands(ctx context.Context) (*SyncResult, error) {
	if !c.Loaded() {
		return nil, ErrNotLoaded
	}
	return c.sync.SyncGlobal(ctx, c.Commands())
}

// RegisterGuildCommands pushes the loaded command table to guildID, or to the
// configured DISCORD_GUILD_ID when guildID is empty.
func (c *Client) RegisterGuildCommands(ctx context.Context, guildID string) (*SyncResult, error) {
	if !c.Loaded() {
		return nil, ErrNotLoaded
	}
	if guildID == "" {
		guildID = c.secrets.GuildID
	}
	return c.sync.SyncGuild(ctx, c.Commands(), guildID)
}

// RefreshCommands rediscovers commands and re-registers them in guildID, or
// globally when guildID is empty. Event bindings are left as they are.
func (c *Client) RefreshCommands(ctx context.Context, guildID string) (*SyncResult, error) {
	table, _, err := discovery.New(c.catalog, discovery.WithLogger(c.log)).
		Commands(ctx, c.cfg.CommandFilePattern)
	if err != nil {
		return nil, err
	}
	c.ExposeCommands(table)

	if guildID == "" {
		return c.sync.SyncGlobal(ctx, table)
	}
	return c.sync.SyncGuild(ctx, table, guildID)
}

func (c *Client) handleSystemEvent(ctx context.Context, evt SystemEvent) {
	switch evt.Type {
	case SystemEventRefreshCommands:
		start := time.Now()
		res, err := c.RefreshCommands(ctx, evt.GuildID)
		switch {
		case errors.Is(err, discovery.ErrDiscovery):
			c.log.Error().Err(err).Msg("Refresh skipped, handler modules are invalid")
		case err != nil:
			c.log.Error().Err(err).Msg("Failed to refresh commands")
		case !res.OK():
			c.log.Warn().Err(res.Err).Msg("Command refresh did not reach Discord")
		default:
			c.log.Info().Dur("took", time.Since(start)).Str("guild", evt.GuildID).Msg("Commands refreshed")
		}
	}
}
