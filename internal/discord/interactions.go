package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/fastiscord/pkg/cmd"
)

const EmbedColor = 0xb01e66

// DispatchCommand looks up the invoked slash command in conn's table and runs
// it. Unknown commands are logged and ignored; a failing command gets an
// ephemeral error embed. Non-command interactions are skipped.
func DispatchCommand(ctx context.Context, conn cmd.Conn, i *discordgo.InteractionCreate, logger zerolog.Logger) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	c, ok := conn.Commands().Get(name)
	if !ok {
		logger.Warn().Str("command", name).Msg("Unknown command")
		return
	}

	in := &cmd.Interaction{Session: conn.Session(), Event: i}
	err := cmd.Guard(func() error { return c.Run(ctx, in) })
	if err == nil {
		return
	}

	l := logger.Error().Err(err).Str("command", name).Str("source", c.Source)
	var perr *cmd.PanicError
	if errors.As(err, &perr) {
		l = l.Bytes("stack", perr.Stack)
	}
	l.Msg("Error running slash command")

	if in.Session == nil {
		return
	}
	if rerr := RespondEmbedEphemeral(in.Session, i, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("Error running slash command: %v", err),
		Color:       EmbedColor,
	}); rerr != nil {
		logger.Warn().Err(rerr).Str("command", name).Msg("Failed to report command error")
	}
}

// RespondEmbedEphemeral sends an ephemeral embed response to an interaction.
func RespondEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:  discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}
