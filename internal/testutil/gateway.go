package testutil

import "sync"

// Gateway counts Open and Close calls instead of dialing Discord.
type Gateway struct {
	// OpenErr, when set, is returned by Open.
	OpenErr error

	mu     sync.Mutex
	opens  int
	closes int
}

// NewGateway returns a gateway whose Open succeeds.
func NewGateway() *Gateway {
	return &Gateway{}
}

func (g *Gateway) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opens++
	return g.OpenErr
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closes++
	return nil
}

// Opens returns how many times Open was called.
func (g *Gateway) Opens() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opens
}

// Closes returns how many times Close was called.
func (g *Gateway) Closes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closes
}
