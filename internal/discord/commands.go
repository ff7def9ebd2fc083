package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/keshon/fastiscord/internal/config"
	"github.com/keshon/fastiscord/internal/storage"
	"github.com/keshon/fastiscord/pkg/cmd"
)

// Registrar performs Discord's replace-all command registration.
// *discordgo.Session satisfies it.
type Registrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Ledger stores sync outcomes.
type Ledger interface {
	RecordSync(rec storage.SyncRecord) error
}

// SyncState is the progress of one sync call.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncCredentialsChecked
	SyncSent
	SyncSucceeded
	SyncFailed
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncCredentialsChecked:
		return "credentials-checked"
	case SyncSent:
		return "sent"
	case SyncSucceeded:
		return "succeeded"
	case SyncFailed:
		return "failed"
	}
	return fmt.Sprintf("SyncState(%d)", int(s))
}

// SyncResult describes one finished sync call. A remote failure ends in
// SyncFailed with Err wrapping ErrRemoteSync.
type SyncResult struct {
	ID       string
	Scope    string
	GuildID  string
	Commands []string
	Hash     string
	State    SyncState
	Err      error
	Started  time.Time
	Duration time.Duration
}

// OK reports whether the remote manifest now matches the local table.
func (r *SyncResult) OK() bool {
	return r != nil && r.State == SyncSucceeded
}

// Record converts r to its ledger form.
func (r *SyncResult) Record() storage.SyncRecord {
	rec := storage.SyncRecord{
		ID:       r.ID,
		Scope:    r.Scope,
		GuildID:  r.GuildID,
		Count:    len(r.Commands),
		Commands: r.Commands,
		Hash:     r.Hash,
		State:    r.State.String(),
		At:       r.Started,
		Duration: r.Duration,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}

// Synchronizer pushes a command table to Discord, replacing whatever is
// registered in the target scope.
type Synchronizer struct {
	registrar Registrar
	secrets   *config.Secrets
	timeout   time.Duration
	ledger    Ledger
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithTimeout bounds each remote call. Zero means no bound.
func WithTimeout(d time.Duration) SyncOption {
	return func(s *Synchronizer) { s.timeout = d }
}

// WithLedger records every finished sync in l.
func WithLedger(l Ledger) SyncOption {
	return func(s *Synchronizer) { s.ledger = l }
}

// WithSyncLogger sets the synchronizer's logger.
func WithSyncLogger(l zerolog.Logger) SyncOption {
	return func(s *Synchronizer) { s.log = l }
}

// WithPacing sets how fast SyncGuilds issues its calls.
func WithPacing(limit rate.Limit, burst int) SyncOption {
	return func(s *Synchronizer) { s.limiter = rate.NewLimiter(limit, burst) }
}

// NewSynchronizer returns a Synchronizer registering through r with the
// application id and token in secrets.
func NewSynchronizer(r Registrar, secrets *config.Secrets, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		registrar: r,
		secrets:   secrets,
		limiter:   rate.NewLimiter(rate.Every(time.Second/2), 1),
		log:       log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncGlobal replaces the application's global commands with table.
func (s *Synchronizer) SyncGlobal(ctx context.Context, table *cmd.Table) (*SyncResult, error) {
	return s.sync(ctx, table, storage.ScopeGlobal, "")
}

// SyncGuild replaces the commands registered in guildID with table.
func (s *Synchronizer) SyncGuild(ctx context.Context, table *cmd.Table, guildID string) (*SyncResult, error) {
	return s.sync(ctx, table, storage.ScopeGuild, guildID)
}

// SyncGuilds syncs each guild in turn. A failing guild does not stop the
// others; an error is returned only for credentials, parameters or ctx.
func (s *Synchronizer) SyncGuilds(ctx context.Context, table *cmd.Table, guildIDs []string) ([]*SyncResult, error) {
	results := make([]*SyncResult, 0, len(guildIDs))
	for _, id := range guildIDs {
		if err := s.limiter.Wait(ctx); err != nil {
			return results, err
		}
		res, err := s.SyncGuild(ctx, table, id)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Synchronizer) sync(ctx context.Context, table *cmd.Table, scope, guildID string) (*SyncResult, error) {
	res := &SyncResult{
		ID:      uuid.NewString(),
		Scope:   scope,
		GuildID: guildID,
		State:   SyncIdle,
		Started: time.Now(),
	}

	if err := s.secrets.Require(); err != nil {
		return nil, err
	}
	res.State = SyncCredentialsChecked

	if scope == storage.ScopeGuild && guildID == "" {
		return nil, fmt.Errorf("%w: guild id must not be empty", ErrInvalidParameter)
	}

	defs := table.Definitions()
	res.Commands = table.Names()
	if res.Commands == nil {
		res.Commands = []string{}
	}
	res.Hash = manifestHash(defs)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	l := s.log.With().Str("scope", scope).Str("guild", guildID).Str("sync", res.ID).Logger()
	l.Info().Int("commands", len(defs)).Msg("Replacing application commands")

	res.State = SyncSent
	_, err := s.registrar.ApplicationCommandBulkOverwrite(s.secrets.ClientID, guildID, defs, discordgo.WithContext(callCtx))
	res.Duration = time.Since(res.Started)

	if err != nil {
		res.State = SyncFailed
		res.Err = fmt.Errorf("%w: %w", ErrRemoteSync, err)
		l.Error().Err(err).Dur("took", res.Duration).Msg("Failed to register commands")
	} else {
		res.State = SyncSucceeded
		l.Info().Dur("took", res.Duration).Msg("Commands registered")
	}

	if s.ledger != nil {
		if err := s.ledger.RecordSync(res.Record()); err != nil {
			l.Warn().Err(err).Msg("Failed to record sync result")
		}
	}
	return res, nil
}
