package builtin

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/fastiscord/internal/discord"
	"github.com/keshon/fastiscord/pkg/cmd"
)

func init() {
	cmd.RegisterEvent(KeyLogReady, logReady)
	cmd.RegisterEvent(KeyDispatchCommands, dispatchCommands)
}

// logReady reports the connected account and the size of the command table.
func logReady(_ context.Context, conn cmd.Conn, payload any) error {
	r, ok := payload.(*discordgo.Ready)
	if !ok {
		return fmt.Errorf("log-ready: unexpected payload %T", payload)
	}

	username := "unknown"
	if r.User != nil {
		username = r.User.Username
	}
	log.Info().
		Str("user", username).
		Int("guilds", len(r.Guilds)).
		Int("commands", conn.Commands().Len()).
		Msg("Ready")
	return nil
}

// dispatchCommands routes slash command interactions to the command table.
func dispatchCommands(ctx context.Context, conn cmd.Conn, payload any) error {
	i, ok := payload.(*discordgo.InteractionCreate)
	if !ok {
		return fmt.Errorf("dispatch-commands: unexpected payload %T", payload)
	}
	discord.DispatchCommand(ctx, conn, i, log.Logger)
	return nil
}
