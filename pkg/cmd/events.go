package cmd

import "slices"

// Event names a manifest may subscribe to. Each one maps to a discordgo event type.
const (
	EventReady                 = "ready"
	EventResumed               = "resumed"
	EventConnect               = "connect"
	EventDisconnect            = "disconnect"
	EventRateLimit             = "rateLimit"
	EventInteractionCreate     = "interactionCreate"
	EventMessageCreate         = "messageCreate"
	EventMessageUpdate         = "messageUpdate"
	EventMessageDelete         = "messageDelete"
	EventMessageReactionAdd    = "messageReactionAdd"
	EventMessageReactionRemove = "messageReactionRemove"
	EventGuildCreate           = "guildCreate"
	EventGuildDelete           = "guildDelete"
	EventGuildMemberAdd        = "guildMemberAdd"
	EventGuildMemberRemove     = "guildMemberRemove"
	EventChannelCreate         = "channelCreate"
	EventChannelDelete         = "channelDelete"
	EventThreadCreate          = "threadCreate"
	EventVoiceStateUpdate      = "voiceStateUpdate"
	EventPresenceUpdate        = "presenceUpdate"
	EventTypingStart           = "typingStart"
)

// EventKinds lists every supported event name.
var EventKinds = []string{
	EventReady,
	EventResumed,
	EventConnect,
	EventDisconnect,
	EventRateLimit,
	EventInteractionCreate,
	EventMessageCreate,
	EventMessageUpdate,
	EventMessageDelete,
	EventMessageReactionAdd,
	EventMessageReactionRemove,
	EventGuildCreate,
	EventGuildDelete,
	EventGuildMemberAdd,
	EventGuildMemberRemove,
	EventChannelCreate,
	EventChannelDelete,
	EventThreadCreate,
	EventVoiceStateUpdate,
	EventPresenceUpdate,
	EventTypingStart,
}

// IsEventKind reports whether name is a supported event name.
func IsEventKind(name string) bool {
	return slices.Contains(EventKinds, name)
}
