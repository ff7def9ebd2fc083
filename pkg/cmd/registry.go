package cmd

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// DefaultCatalog is the catalog manifests are resolved against unless a runtime
// is given another one. Handler packages fill it from init().
var DefaultCatalog = NewCatalog()

// Catalog stores compiled-in handler functions by key. A manifest's "run" field
// names one of these keys. It does not know about manifests or sessions.
type Catalog struct {
	mu       sync.RWMutex
	commands map[string]CommandFunc
	events   map[string]EventFunc
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		commands: make(map[string]CommandFunc),
		events:   make(map[string]EventFunc),
	}
}

// RegisterCommand adds a command handler under key, wrapped by mws (first is outermost).
// Registering the same key twice replaces the earlier handler.
func (c *Catalog) RegisterCommand(key string, fn CommandFunc, mws ...Middleware) {
	if key == "" || fn == nil {
		panic(fmt.Sprintf("cmd: invalid command registration %q", key))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[key] = Apply(fn, mws...)
}

// RegisterEvent adds an event handler under key.
func (c *Catalog) RegisterEvent(key string, fn EventFunc) {
	if key == "" || fn == nil {
		panic(fmt.Sprintf("cmd: invalid event registration %q", key))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[key] = fn
}

// Command returns the command handler registered under key.
func (c *Catalog) Command(key string) (CommandFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.commands[key]
	return fn, ok
}

// Event returns the event handler registered under key.
func (c *Catalog) Event(key string) (EventFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.events[key]
	return fn, ok
}

// CommandKeys returns all command handler keys, sorted.
func (c *Catalog) CommandKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.commands)
}

// EventKeys returns all event handler keys, sorted.
func (c *Catalog) EventKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.events)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisterCommand registers a command handler in DefaultCatalog.
func RegisterCommand(key string, fn CommandFunc, mws ...Middleware) {
	DefaultCatalog.RegisterCommand(key, fn, mws...)
}

// RegisterEvent registers an event handler in DefaultCatalog.
func RegisterEvent(key string, fn EventFunc) {
	DefaultCatalog.RegisterEvent(key, fn)
}

// Table is the command lookup built at load time. It never changes after
// construction. Names keep the position of their first appearance; a later
// command with the same name replaces the earlier one in place.
type Table struct {
	order  []string
	byName map[string]*Command
}

// NewTable builds a table from cmds in order.
func NewTable(cmds ...*Command) *Table {
	t := &Table{byName: make(map[string]*Command, len(cmds))}
	for _, c := range cmds {
		name := c.Data.Name
		if _, seen := t.byName[name]; !seen {
			t.order = append(t.order, name)
		}
		t.byName[name] = c
	}
	return t
}

// Get returns the command with the given name.
func (t *Table) Get(name string) (*Command, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.byName[name]
	return c, ok
}

// Len returns the number of distinct command names.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Names returns command names in table order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// All returns the commands in table order.
func (t *Table) All() []*Command {
	if t == nil {
		return nil
	}
	list := make([]*Command, 0, len(t.order))
	for _, name := range t.order {
		list = append(list, t.byName[name])
	}
	return list
}

// Definitions returns the wire definitions of every command in table order.
// The result is never nil, so an empty table serializes to [].
func (t *Table) Definitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, t.Len())
	for _, c := range t.All() {
		defs = append(defs, c.Data.ApplicationCommand())
	}
	return defs
}
