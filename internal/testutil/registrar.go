package testutil

import (
	"encoding/json"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Overwrite is one recorded bulk overwrite call.
type Overwrite struct {
	AppID    string
	GuildID  string
	Commands []*discordgo.ApplicationCommand
	Body     string
}

// Registrar keeps the remote command manifest per scope and applies bulk
// overwrites with replace-all semantics. Set Err to make calls fail.
type Registrar struct {
	mu     sync.Mutex
	remote map[string][]*discordgo.ApplicationCommand
	calls  []Overwrite

	Err error
}

// NewRegistrar returns a registrar with empty remote state.
func NewRegistrar() *Registrar {
	return &Registrar{remote: make(map[string][]*discordgo.ApplicationCommand)}
}

func (r *Registrar) ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	body, _ := json.Marshal(cmds)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Overwrite{AppID: appID, GuildID: guildID, Commands: cmds, Body: string(body)})
	if r.Err != nil {
		return nil, r.Err
	}
	r.remote[guildID] = append([]*discordgo.ApplicationCommand(nil), cmds...)
	return cmds, nil
}

// Remote returns the command names registered for guildID ("" is global).
func (r *Registrar) Remote(guildID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.remote[guildID]))
	for _, c := range r.remote[guildID] {
		names = append(names, c.Name)
	}
	return names
}

// Calls returns every overwrite made so far.
func (r *Registrar) Calls() []Overwrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Overwrite(nil), r.calls...)
}
