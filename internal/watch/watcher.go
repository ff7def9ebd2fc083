// Package watch re-runs a callback when files matching handler manifest
// patterns change. Events inside the debounce window are coalesced.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keshon/fastiscord/internal/discovery"
)

const defaultDebounce = 500 * time.Millisecond

var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Patterns are absolute manifest patterns, as resolved by config.Load.
	Patterns []string
	// Debounce defaults to 500ms.
	Debounce time.Duration
	// OnChange receives the changed paths, deduplicated. Its error is logged.
	OnChange func(ctx context.Context, changed []string) error
	Logger   *zerolog.Logger
}

// Watcher monitors the directories under each pattern's base.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	log      zerolog.Logger
	debounce time.Duration
	started  atomic.Bool
}

// New validates the patterns and registers every directory below their bases.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Patterns) == 0 {
		return nil, errors.New("watch: no patterns")
	}
	for _, p := range cfg.Patterns {
		if !doublestar.ValidatePathPattern(discovery.Normalize(p)) {
			return nil, fmt.Errorf("watch: invalid pattern %q", p)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		log:      log.Logger,
		debounce: cfg.Debounce,
	}
	if cfg.Logger != nil {
		w.log = *cfg.Logger
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}

	for _, p := range cfg.Patterns {
		base := discovery.Base(p)
		if err := w.ensureDir(base); err != nil {
			fsw.Close()
			return nil, err
		}
		if err := w.addTree(base); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// ensureDir creates a missing pattern base so manifests added to it later
// are seen.
func (w *Watcher) ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("watch: create directory %q: %w", dir, err)
		}
		w.log.Info().Str("dir", dir).Msg("Created missing watch directory")
		return nil
	case err != nil:
		return fmt.Errorf("watch: stat %q: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("watch: %q is not a directory", dir)
	}
	return nil
}

// Run blocks until ctx is cancelled. Callbacks never overlap; changes seen
// while one is running are delivered in the next.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}
	defer w.fsw.Close()

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			timer.Reset(w.debounce)
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		if len(changed) == 0 || w.cfg.OnChange == nil {
			return
		}

		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.log.Error().Err(err).Msg("Watch callback failed")
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if evt.Has(fsnotify.Chmod) || w.ignored(evt.Name) || !w.matches(evt.Name) {
				continue
			}

			w.log.Debug().Str("path", evt.Name).Str("op", evt.Op.String()).Msg("Manifest changed")

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			w.log.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.log.Warn().Err(err).Str("path", path).Msg("Skipping inaccessible path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path + "/") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch: add directory tree %q: %w", root, err)
	}
	return nil
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addTree(path); err != nil {
		w.log.Warn().Err(err).Msg("Failed to watch new directory")
	}
}

func (w *Watcher) ignored(path string) bool {
	p := filepath.ToSlash(path)
	for _, pat := range defaultIgnores {
		if ok, _ := doublestar.Match(pat, p); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) matches(path string) bool {
	for _, p := range w.cfg.Patterns {
		if discovery.Match(p, path) {
			return true
		}
	}
	return false
}
