package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keshon/fastiscord/pkg/cmd"
)

func init() {
	cmd.RegisterCommand(KeyPing, pingHandler, cmd.WithRecover(), cmd.WithCommandLogger(&log.Logger))
}

func buildPingMessage(latency time.Duration) string {
	return fmt.Sprintf("🏓 Pong! Response time: `%dms`", latency.Milliseconds())
}

func pingHandler(_ context.Context, in *cmd.Interaction) error {
	var latency time.Duration
	if in.Session != nil {
		latency = in.Session.HeartbeatLatency()
	}
	return in.Reply(buildPingMessage(latency))
}
