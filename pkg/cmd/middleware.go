package cmd

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Middleware wraps a command handler (guild checks, logging, recovery).
type Middleware func(CommandFunc) CommandFunc

// Apply wraps fn with mws; the first in the list is the outermost.
func Apply(fn CommandFunc, mws ...Middleware) CommandFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		fn = mws[i](fn)
	}
	return fn
}

// PanicError is returned in place of a panic caught by Guard.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Guard runs fn and turns a panic into a *PanicError.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// WithRecover converts panics in the wrapped command into errors.
func WithRecover() Middleware {
	return func(next CommandFunc) CommandFunc {
		return func(ctx context.Context, in *Interaction) error {
			return Guard(func() error { return next(ctx, in) })
		}
	}
}

// WithGuildOnly rejects invocations from direct messages.
func WithGuildOnly() Middleware {
	return func(next CommandFunc) CommandFunc {
		return func(ctx context.Context, in *Interaction) error {
			if in.Event != nil && in.Event.GuildID == "" {
				return in.ReplyEphemeral("This command can only be used in a server.")
			}
			return next(ctx, in)
		}
	}
}

// WithCommandLogger logs every invocation of the wrapped command with the
// invoking user, the guild, how long it took and the error it returned.
// logger is read on every call, so &log.Logger follows later reconfiguration.
func WithCommandLogger(logger *zerolog.Logger) Middleware {
	return func(next CommandFunc) CommandFunc {
		return func(ctx context.Context, in *Interaction) error {
			start := time.Now()
			err := next(ctx, in)

			var ev *zerolog.Event
			if err != nil {
				ev = logger.Warn().Err(err)
			} else {
				ev = logger.Info()
			}
			if in.Event != nil {
				ev = ev.Str("guild", in.Event.GuildID).Str("channel", in.Event.ChannelID)
				if u := resolveUser(in.Event); u != nil {
					ev = ev.Str("user", u.ID).Str("username", u.Username)
				}
			}
			ev.Str("command", in.CommandName()).Dur("took", time.Since(start)).Msg("Command executed")
			return err
		}
	}
}

// resolveUser returns the member's user in guilds and the user in DMs.
func resolveUser(e *discordgo.InteractionCreate) *discordgo.User {
	if e.Interaction == nil {
		return nil
	}
	if e.Member != nil && e.Member.User != nil {
		return e.Member.User
	}
	return e.User
}
