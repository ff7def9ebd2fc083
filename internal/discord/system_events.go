package discord

type SystemEventType string

const (
	SystemEventRefreshCommands SystemEventType = "refresh_commands"
)

// SystemEvent is an internal request handled by the client's Run loop.
// An empty GuildID targets global scope.
type SystemEvent struct {
	Type    SystemEventType
	GuildID string
}

// PublishSystemEvent queues evt for the Run loop. It reports false when the
// queue is full and the event was dropped.
func (c *Client) PublishSystemEvent(evt SystemEvent) bool {
	select {
	case c.systemEvents <- evt:
		return true
	default:
		c.log.Warn().Str("type", string(evt.Type)).Msg("System event dropped, queue full")
		return false
	}
}
