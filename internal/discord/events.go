package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/fastiscord/pkg/cmd"
)

// Transport is the part of a gateway session events are bound through.
// *discordgo.Session satisfies it.
type Transport interface {
	AddHandler(handler interface{}) func()
}

// typedHandler returns a discordgo handler for kind that forwards its payload
// to fire, or nil for an unsupported kind.
func typedHandler(kind string, fire func(payload any)) interface{} {
	switch kind {
	case cmd.EventReady:
		return func(_ *discordgo.Session, e *discordgo.Ready) { fire(e) }
	case cmd.EventResumed:
		return func(_ *discordgo.Session, e *discordgo.Resumed) { fire(e) }
	case cmd.EventConnect:
		return func(_ *discordgo.Session, e *discordgo.Connect) { fire(e) }
	case cmd.EventDisconnect:
		return func(_ *discordgo.Session, e *discordgo.Disconnect) { fire(e) }
	case cmd.EventRateLimit:
		return func(_ *discordgo.Session, e *discordgo.RateLimit) { fire(e) }
	case cmd.EventInteractionCreate:
		return func(_ *discordgo.Session, e *discordgo.InteractionCreate) { fire(e) }
	case cmd.EventMessageCreate:
		return func(_ *discordgo.Session, e *discordgo.MessageCreate) { fire(e) }
	case cmd.EventMessageUpdate:
		return func(_ *discordgo.Session, e *discordgo.MessageUpdate) { fire(e) }
	case cmd.EventMessageDelete:
		return func(_ *discordgo.Session, e *discordgo.MessageDelete) { fire(e) }
	case cmd.EventMessageReactionAdd:
		return func(_ *discordgo.Session, e *discordgo.MessageReactionAdd) { fire(e) }
	case cmd.EventMessageReactionRemove:
		return func(_ *discordgo.Session, e *discordgo.MessageReactionRemove) { fire(e) }
	case cmd.EventGuildCreate:
		return func(_ *discordgo.Session, e *discordgo.GuildCreate) { fire(e) }
	case cmd.EventGuildDelete:
		return func(_ *discordgo.Session, e *discordgo.GuildDelete) { fire(e) }
	case cmd.EventGuildMemberAdd:
		return func(_ *discordgo.Session, e *discordgo.GuildMemberAdd) { fire(e) }
	case cmd.EventGuildMemberRemove:
		return func(_ *discordgo.Session, e *discordgo.GuildMemberRemove) { fire(e) }
	case cmd.EventChannelCreate:
		return func(_ *discordgo.Session, e *discordgo.ChannelCreate) { fire(e) }
	case cmd.EventChannelDelete:
		return func(_ *discordgo.Session, e *discordgo.ChannelDelete) { fire(e) }
	case cmd.EventThreadCreate:
		return func(_ *discordgo.Session, e *discordgo.ThreadCreate) { fire(e) }
	case cmd.EventVoiceStateUpdate:
		return func(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) { fire(e) }
	case cmd.EventPresenceUpdate:
		return func(_ *discordgo.Session, e *discordgo.PresenceUpdate) { fire(e) }
	case cmd.EventTypingStart:
		return func(_ *discordgo.Session, e *discordgo.TypingStart) { fire(e) }
	}
	return nil
}

// Bindings holds the transport handlers installed by BindEvents.
type Bindings struct {
	mu    sync.Mutex
	kinds map[string]*binding
}

// Active reports whether a handler for kind is still attached.
func (b *Bindings) Active(kind string) bool {
	b.mu.Lock()
	bd, ok := b.kinds[kind]
	b.mu.Unlock()
	return ok && !bd.detached.Load()
}

// Close detaches every handler.
func (b *Bindings) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bd := range b.kinds {
		bd.detach()
	}
}

type subscription struct {
	event *cmd.Event
	spent atomic.Bool
}

// binding is the single transport handler for one event kind.
type binding struct {
	ctx       context.Context
	kind      string
	conn      cmd.Conn
	subs      []*subscription
	onceLeft  atomic.Int32
	permanent bool
	log       zerolog.Logger

	removeMu sync.Mutex
	remove   func()
	detached atomic.Bool
}

func (bd *binding) fire(payload any) {
	if bd.detached.Load() {
		return
	}
	for _, sub := range bd.subs {
		if sub.event.Once {
			if !sub.spent.CompareAndSwap(false, true) {
				continue
			}
			if bd.onceLeft.Add(-1) == 0 && !bd.permanent {
				bd.detach()
			}
		}
		bd.invoke(sub.event, payload)
	}
}

// invoke runs one handler inside an error boundary. Returned errors and
// panics are logged, never propagated to the transport.
func (bd *binding) invoke(ev *cmd.Event, payload any) {
	err := cmd.Guard(func() error { return ev.Run(bd.ctx, bd.conn, payload) })
	if err == nil {
		return
	}

	l := bd.log.Error().Err(err).Str("event", bd.kind).Str("source", ev.Source)
	var perr *cmd.PanicError
	if errors.As(err, &perr) {
		l = l.Bytes("stack", perr.Stack)
	}
	l.Msg("Event handler failed")
}

func (bd *binding) attach(remove func()) {
	bd.removeMu.Lock()
	defer bd.removeMu.Unlock()
	bd.remove = remove
	if bd.detached.Load() {
		remove()
	}
}

func (bd *binding) detach() {
	bd.removeMu.Lock()
	defer bd.removeMu.Unlock()
	if bd.detached.Swap(true) {
		return
	}
	if bd.remove != nil {
		bd.remove()
	}
	bd.log.Debug().Str("event", bd.kind).Msg("Event handler detached")
}

// BindEvents attaches one handler per event kind to t. Each occurrence runs the
// kind's subscriptions in order, handing them conn and the payload. Once
// subscriptions fire a single time; a kind whose subscriptions are all spent is
// removed from the transport. ctx is passed to every handler call.
func BindEvents(ctx context.Context, t Transport, conn cmd.Conn, events cmd.EventMap, logger zerolog.Logger) (*Bindings, error) {
	for kind := range events {
		if !cmd.IsEventKind(kind) {
			return nil, fmt.Errorf("unsupported event %q", kind)
		}
	}

	b := &Bindings{kinds: make(map[string]*binding, len(events))}

	for _, kind := range cmd.EventKinds {
		evs := events[kind]
		if len(evs) == 0 {
			continue
		}

		bd := &binding{ctx: ctx, kind: kind, conn: conn, log: logger}
		for _, ev := range evs {
			bd.subs = append(bd.subs, &subscription{event: ev})
			if ev.Once {
				bd.onceLeft.Add(1)
			} else {
				bd.permanent = true
			}
		}

		h := typedHandler(kind, bd.fire)
		bd.attach(t.AddHandler(h))
		b.kinds[kind] = bd

		logger.Debug().Str("event", kind).Int("handlers", len(evs)).Msg("Event bound")
	}

	return b, nil
}
