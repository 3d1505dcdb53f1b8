package hub

import (
	"sync"
)

// Rooms maps conversations to the connections currently subscribed to
// them. Subscriptions are computed once per connection at connect time
// from persisted membership; they are not refreshed when membership
// changes later, so a member added to a group mid-session starts
// receiving live broadcasts only after reconnecting.
type Rooms interface {
	Join(conversationID, connID string)
	// LeaveAll removes a connection from every room; must be called on
	// disconnect to avoid unbounded growth.
	LeaveAll(connID string)
	Members(conversationID string) []string
}

type memoryRooms struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{}
	byConn map[string]map[string]struct{}
}

// NewMemoryRooms creates an in-memory room router.
func NewMemoryRooms() Rooms {
	return &memoryRooms{
		rooms:  make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

func (r *memoryRooms) Join(conversationID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[conversationID] == nil {
		r.rooms[conversationID] = make(map[string]struct{})
	}
	r.rooms[conversationID][connID] = struct{}{}

	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[string]struct{})
	}
	r.byConn[connID][conversationID] = struct{}{}
}

func (r *memoryRooms) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conversationID := range r.byConn[connID] {
		delete(r.rooms[conversationID], connID)
		if len(r.rooms[conversationID]) == 0 {
			delete(r.rooms, conversationID)
		}
	}
	delete(r.byConn, connID)
}

func (r *memoryRooms) Members(conversationID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.rooms[conversationID]))
	for connID := range r.rooms[conversationID] {
		members = append(members, connID)
	}
	return members
}
