// Package cmd provides the handler contracts a bot is built from: commands and
// event subscriptions declared by manifest files, and the compiled-in functions
// those manifests point at. How manifests are found and how handlers are wired
// to a gateway session is up to the runtime; this package only defines the shapes.
package cmd

import (
	"github.com/bwmarrin/discordgo"
)

// Conn is the owning connection handed to every event handler. It gives access
// to the live session and to the command table discovered at load time.
type Conn interface {
	Session() *discordgo.Session
	Commands() *Table
}

// Interaction is what a command handler receives when its slash command is used.
type Interaction struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
}

// CommandName returns the name of the invoked application command.
func (in *Interaction) CommandName() string {
	if in.Event == nil || in.Event.Type != discordgo.InteractionApplicationCommand {
		return ""
	}
	return in.Event.ApplicationCommandData().Name
}

// Option returns the top-level option with the given name, or nil.
func (in *Interaction) Option(name string) *discordgo.ApplicationCommandInteractionDataOption {
	if in.Event == nil || in.Event.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	for _, o := range in.Event.ApplicationCommandData().Options {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Reply answers the interaction with a plain message.
func (in *Interaction) Reply(content string) error {
	return in.respond(content, 0)
}

// ReplyEphemeral answers the interaction with a message only the invoker sees.
func (in *Interaction) ReplyEphemeral(content string) error {
	return in.respond(content, discordgo.MessageFlagsEphemeral)
}

func (in *Interaction) respond(content string, flags discordgo.MessageFlags) error {
	return in.Session.InteractionRespond(in.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}
