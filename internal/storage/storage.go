// /internal/storage/storage.go
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/keshon/fastiscord/internal/datastore"
)

const syncHistoryLimit int = 20

const (
	ScopeGlobal = "global"
	ScopeGuild  = "guild"
)

const keyPrefix = "sync:"

// SyncRecord is one command synchronization attempt.
type SyncRecord struct {
	ID       string        `json:"id"`
	Scope    string        `json:"scope"`
	GuildID  string        `json:"guild_id,omitempty"`
	Count    int           `json:"count"`
	Commands []string      `json:"commands"`
	Hash     string        `json:"hash"`
	State    string        `json:"state"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
}

// Target returns the ledger key the record is filed under.
func (r SyncRecord) Target() string {
	return TargetKey(r.Scope, r.GuildID)
}

// TargetKey names a sync target: "global" or "guild:<id>".
func TargetKey(scope, guildID string) string {
	if scope == ScopeGuild {
		return ScopeGuild + ":" + guildID
	}
	return ScopeGlobal
}

type Storage struct {
	ds *datastore.DataStore
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// RecordSync appends rec to its target's history and saves the ledger.
func (s *Storage) RecordSync(rec SyncRecord) error {
	key := keyPrefix + rec.Target()

	history, err := s.history(key)
	if err != nil {
		return err
	}
	history = append(history, rec)
	if len(history) > syncHistoryLimit {
		history = history[len(history)-syncHistoryLimit:]
	}

	if err := s.ds.Put(key, history); err != nil {
		return err
	}
	return s.ds.SaveToFile()
}

// LastSync returns the most recent record for target.
func (s *Storage) LastSync(target string) (*SyncRecord, bool, error) {
	history, err := s.history(keyPrefix + target)
	if err != nil || len(history) == 0 {
		return nil, false, err
	}
	last := history[len(history)-1]
	return &last, true, nil
}

// History returns the records for target, oldest first.
func (s *Storage) History(target string) ([]SyncRecord, error) {
	return s.history(keyPrefix + target)
}

// Targets lists every target with at least one record, sorted.
func (s *Storage) Targets() []string {
	var targets []string
	for _, k := range s.ds.Keys() {
		if t, ok := strings.CutPrefix(k, keyPrefix); ok {
			targets = append(targets, t)
		}
	}
	return targets
}

func (s *Storage) history(key string) ([]SyncRecord, error) {
	var history []SyncRecord
	if _, err := s.ds.Get(key, &history); err != nil {
		return nil, fmt.Errorf("error reading sync history: %w", err)
	}
	return history, nil
}
