// Package discovery resolves file patterns into the command table and event
// map a bot runs with. Each matched file is a manifest whose "run" key names a
// handler compiled into the binary and registered in a cmd.Catalog.
package discovery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/fastiscord/internal/config"
	"github.com/keshon/fastiscord/pkg/cmd"
)

// Collision records a command name declared by more than one manifest.
// The Current manifest is the one kept.
type Collision struct {
	Name     string
	Previous string
	Current  string
}

// Snapshot is the result of one discovery run.
type Snapshot struct {
	Commands   *cmd.Table
	Events     cmd.EventMap
	Collisions []Collision
}

// Discoverer loads handler modules matched by file patterns.
type Discoverer struct {
	catalog *cmd.Catalog
	loader  Loader
	log     zerolog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithLoader replaces the default FileLoader.
func WithLoader(l Loader) Option {
	return func(d *Discoverer) { d.loader = l }
}

// WithLogger sets the logger used for collisions and summaries.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Discoverer) { d.log = l }
}

// New returns a Discoverer resolving handlers against catalog
// (cmd.DefaultCatalog when nil).
func New(catalog *cmd.Catalog, opts ...Option) *Discoverer {
	if catalog == nil {
		catalog = cmd.DefaultCatalog
	}
	d := &Discoverer{
		catalog: catalog,
		loader:  FileLoader{},
		log:     log.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover runs command and event discovery concurrently. The passes share no
// state; the first failure cancels the other.
func (d *Discoverer) Discover(ctx context.Context, cfg config.Config) (*Snapshot, error) {
	var snap Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		table, collisions, err := d.Commands(gctx, cfg.CommandFilePattern)
		if err != nil {
			return err
		}
		snap.Commands, snap.Collisions = table, collisions
		return nil
	})
	g.Go(func() error {
		events, err := d.Events(gctx, cfg.EventFilePattern)
		if err != nil {
			return err
		}
		snap.Events = events
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Commands loads every command manifest matched by pattern, one at a time in
// match order. A later manifest with an already-seen name replaces the earlier
// one; each such collision is logged and returned. Any malformed manifest
// aborts the whole pass.
func (d *Discoverer) Commands(ctx context.Context, pattern string) (*cmd.Table, []Collision, error) {
	paths, err := Glob(pattern)
	if err != nil {
		return nil, nil, &Error{Path: pattern, Err: err}
	}

	var (
		cmds       = make([]*cmd.Command, 0, len(paths))
		collisions []Collision
		seen       = make(map[string]string, len(paths))
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		c, err := d.loadCommand(path)
		if err != nil {
			return nil, nil, &Error{Path: path, Err: err}
		}
		if prev, dup := seen[c.Data.Name]; dup {
			collisions = append(collisions, Collision{Name: c.Data.Name, Previous: prev, Current: path})
			d.log.Warn().
				Str("command", c.Data.Name).
				Str("previous", prev).
				Str("current", path).
				Msg("Duplicate command name, the later manifest wins")
		}
		seen[c.Data.Name] = path
		cmds = append(cmds, c)
	}

	table := cmd.NewTable(cmds...)
	d.log.Debug().Int("count", table.Len()).Str("pattern", pattern).Msg("Commands discovered")
	return table, collisions, nil
}

func (d *Discoverer) loadCommand(path string) (*cmd.Command, error) {
	m, err := d.loader.LoadCommand(path)
	if err != nil {
		return nil, err
	}
	if m.Data.Name == "" {
		return nil, ErrMissingName
	}
	if m.Run == "" {
		return nil, ErrMissingRun
	}
	run, ok := d.catalog.Command(m.Run)
	if !ok {
		return nil, fmt.Errorf("%w: command %q", ErrUnknownHandler, m.Run)
	}
	return &cmd.Command{Data: m.Data, Run: run, Source: path}, nil
}

// Events loads every event manifest matched by pattern. Subscriptions sharing
// a name are all kept, in match order.
func (d *Discoverer) Events(ctx context.Context, pattern string) (cmd.EventMap, error) {
	paths, err := Glob(pattern)
	if err != nil {
		return nil, &Error{Path: pattern, Err: err}
	}

	events := make(cmd.EventMap)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := d.loadEvent(path)
		if err != nil {
			return nil, &Error{Path: path, Err: err}
		}
		events[ev.Name] = append(events[ev.Name], ev)
	}

	d.log.Debug().Int("count", events.Len()).Str("pattern", pattern).Msg("Events discovered")
	return events, nil
}

func (d *Discoverer) loadEvent(path string) (*cmd.Event, error) {
	m, err := d.loader.LoadEvent(path)
	if err != nil {
		return nil, err
	}
	if !cmd.IsEventKind(m.Name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, m.Name)
	}
	if m.Run == "" {
		return nil, ErrMissingRun
	}
	run, ok := d.catalog.Event(m.Run)
	if !ok {
		return nil, fmt.Errorf("%w: event %q", ErrUnknownHandler, m.Run)
	}
	return &cmd.Event{Name: m.Name, Once: m.Once, Run: run, Source: path}, nil
}
