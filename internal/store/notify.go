package store

import "sync"

// notifier is the change-listener fanout embedded by each store.
type notifier struct {
	lmu       sync.Mutex
	listeners map[int]func()
	nextID    int
}

// Subscribe registers a change listener and returns its removal func.
func (n *notifier) Subscribe(fn func()) func() {
	n.lmu.Lock()
	if n.listeners == nil {
		n.listeners = make(map[int]func())
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.lmu.Unlock()
	return func() {
		n.lmu.Lock()
		delete(n.listeners, id)
		n.lmu.Unlock()
	}
}

func (n *notifier) notify() {
	n.lmu.Lock()
	fns := make([]func(), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
