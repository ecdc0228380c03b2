// Package store holds the per-page view-state stores: resource loaders,
// action dispatchers with per-item pending tracking, debounced search, and
// the settings dirty-state tracker. Stores are safe for concurrent use.
package store

import "sync"

// PendingMap tracks in-flight operations keyed by item id. A row's controls
// are disabled while its own entry is set; other rows stay interactive.
type PendingMap struct {
	mu  sync.RWMutex
	ops map[int]string
}

// NewPendingMap creates an empty map.
func NewPendingMap() *PendingMap {
	return &PendingMap{ops: make(map[int]string)}
}

// Set records op as the pending operation for id.
func (p *PendingMap) Set(id int, op string) {
	p.mu.Lock()
	p.ops[id] = op
	p.mu.Unlock()
}

// Clear removes id's pending entry. Safe when no entry exists.
func (p *PendingMap) Clear(id int) {
	p.mu.Lock()
	delete(p.ops, id)
	p.mu.Unlock()
}

// Op returns the pending operation name for id, or "".
func (p *PendingMap) Op(id int) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ops[id]
}

// IsPending reports whether id has an operation in flight.
func (p *PendingMap) IsPending(id int) bool {
	return p.Op(id) != ""
}

// Len returns the number of in-flight operations.
func (p *PendingMap) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ops)
}

// Confirm is the two-step guard for destructive actions. At most one id is
// armed per list; arming a second id displaces the first.
type Confirm struct {
	mu    sync.Mutex
	armed int
	set   bool
}

// Arm marks id as awaiting confirmation.
func (c *Confirm) Arm(id int) {
	c.mu.Lock()
	c.armed = id
	c.set = true
	c.mu.Unlock()
}

// Disarm clears any armed id.
func (c *Confirm) Disarm() {
	c.mu.Lock()
	c.set = false
	c.mu.Unlock()
}

// IsArmed reports whether id is the currently armed id.
func (c *Confirm) IsArmed(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set && c.armed == id
}

// Armed returns the armed id, if any.
func (c *Confirm) Armed() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed, c.set
}
