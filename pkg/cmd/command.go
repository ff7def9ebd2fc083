package cmd

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// CommandFunc runs a slash command.
type CommandFunc func(ctx context.Context, in *Interaction) error

// EventFunc handles one gateway event. payload is the discordgo event value,
// e.g. *discordgo.Ready for "ready".
type EventFunc func(ctx context.Context, conn Conn, payload any) error

// Choice is a fixed value offered for an option.
type Choice struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Value any    `json:"value" yaml:"value" toml:"value"`
}

// Option describes one parameter of a command, possibly nested for subcommands.
type Option struct {
	Type         discordgo.ApplicationCommandOptionType `json:"type" yaml:"type" toml:"type"`
	Name         string                                 `json:"name" yaml:"name" toml:"name"`
	Description  string                                 `json:"description" yaml:"description" toml:"description"`
	Required     bool                                   `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
	Autocomplete bool                                   `json:"autocomplete,omitempty" yaml:"autocomplete,omitempty" toml:"autocomplete,omitempty"`
	Choices      []Choice                               `json:"choices,omitempty" yaml:"choices,omitempty" toml:"choices,omitempty"`
	Options      []Option                               `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
}

// Data is the part of a command that is registered with Discord.
type Data struct {
	Name        string                           `json:"name" yaml:"name" toml:"name"`
	Description string                           `json:"description" yaml:"description" toml:"description"`
	Type        discordgo.ApplicationCommandType `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
	Options     []Option                         `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
}

// ApplicationCommand converts d to the discordgo wire type.
func (d Data) ApplicationCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        d.Name,
		Description: d.Description,
		Type:        d.Type,
		Options:     convertOptions(d.Options),
	}
}

func convertOptions(opts []Option) []*discordgo.ApplicationCommandOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]*discordgo.ApplicationCommandOption, len(opts))
	for i, o := range opts {
		opt := &discordgo.ApplicationCommandOption{
			Type:         o.Type,
			Name:         o.Name,
			Description:  o.Description,
			Required:     o.Required,
			Autocomplete: o.Autocomplete,
			Options:      convertOptions(o.Options),
		}
		for _, c := range o.Choices {
			opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  c.Name,
				Value: c.Value,
			})
		}
		out[i] = opt
	}
	return out
}

// Command is a discovered command: its definition, its handler and the
// manifest it came from.
type Command struct {
	Data   Data
	Run    CommandFunc
	Source string
}

// Event is a discovered event subscription. Once handlers fire a single time.
type Event struct {
	Name   string
	Once   bool
	Run    EventFunc
	Source string
}

// EventMap groups event subscriptions by event name, in discovery order.
type EventMap map[string][]*Event

// Len returns the total number of subscriptions.
func (m EventMap) Len() int {
	n := 0
	for _, evs := range m {
		n += len(evs)
	}
	return n
}
