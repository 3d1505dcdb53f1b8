package hub

import (
	"sync"
)

// Presence tracks which users have live connections. Implementations must
// be safe for concurrent use. The boolean results of Add and Remove report
// the 0->1 and 1->0 transitions so callers can broadcast online/offline
// events exactly once per edge.
type Presence interface {
	// Add registers a connection for a user and reports whether it is the
	// user's first live connection.
	Add(userID, connID string) bool
	// Remove deregisters a connection and reports whether it was the
	// user's last live connection.
	Remove(userID, connID string) bool
	IsOnline(userID string) bool
	OnlineUsers() []string
	// Connections returns the IDs of all live connections for a user.
	Connections(userID string) []string
}

// memoryPresence is the in-process Presence used by single-instance
// deployments. Multi-instance deployments need a shared store behind the
// same interface.
type memoryPresence struct {
	mu    sync.RWMutex
	users map[string]map[string]struct{}
}

// NewMemoryPresence creates an in-memory presence registry.
func NewMemoryPresence() Presence {
	return &memoryPresence{users: make(map[string]map[string]struct{})}
}

func (p *memoryPresence) Add(userID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.users[userID]
	if !ok {
		conns = make(map[string]struct{})
		p.users[userID] = conns
	}
	conns[connID] = struct{}{}
	return !ok
}

func (p *memoryPresence) Remove(userID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.users[userID]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) > 0 {
		return false
	}
	delete(p.users, userID)
	return true
}

func (p *memoryPresence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users[userID]) > 0
}

func (p *memoryPresence) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]string, 0, len(p.users))
	for userID := range p.users {
		users = append(users, userID)
	}
	return users
}

func (p *memoryPresence) Connections(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conns := make([]string, 0, len(p.users[userID]))
	for connID := range p.users[userID] {
		conns = append(conns, connID)
	}
	return conns
}
