// Package testutil provides in-memory stand-ins for the Discord session used
// by the runtime's tests.
package testutil

import (
	"reflect"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Transport records typed handlers the way discordgo.Session.AddHandler does
// and lets a test emit payloads to them synchronously.
type Transport struct {
	mu       sync.Mutex
	next     int
	handlers map[int]any
	order    []int
}

// NewTransport returns an empty transport.
func NewTransport() *Transport {
	return &Transport{handlers: make(map[int]any)}
}

// AddHandler stores handler, which must be a func(*discordgo.Session, *T).
func (t *Transport) AddHandler(handler any) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	t.handlers[id] = handler
	t.order = append(t.order, id)

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.handlers, id)
	}
}

// Emit calls every live handler whose payload type matches payload. It
// returns how many handlers ran.
func (t *Transport) Emit(payload any) int {
	pv := reflect.ValueOf(payload)

	t.mu.Lock()
	var matched []reflect.Value
	for _, id := range t.order {
		h, ok := t.handlers[id]
		if !ok {
			continue
		}
		hv := reflect.ValueOf(h)
		ht := hv.Type()
		if ht.Kind() != reflect.Func || ht.NumIn() != 2 || ht.In(1) != pv.Type() {
			continue
		}
		matched = append(matched, hv)
	}
	t.mu.Unlock()

	session := reflect.ValueOf((*discordgo.Session)(nil))
	for _, hv := range matched {
		hv.Call([]reflect.Value{session, pv})
	}
	return len(matched)
}

// Len returns the number of live handlers.
func (t *Transport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers)
}
