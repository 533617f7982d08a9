// Package presence tracks which live connections have joined which rooms and
// which agent stands behind each connection. It holds no message content and
// is the only source used to pick broadcast targets.
package presence

import (
	"sort"
	"sync"
)

// TeamRoom is the room every connected agent is enrolled in on connect.
const TeamRoom = "team"

// Member is one connection's presence in a room.
type Member struct {
	ConnectionID string
	AgentID      string
	AgentName    string
}

// Registry maps rooms to joined connections. All methods are safe for
// concurrent use. Readers get snapshots, never live views.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Member   // room -> connection -> member
	conns map[string]map[string]struct{} // connection -> joined rooms
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]Member),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to room. Joining twice refreshes the member identity.
func (r *Registry) Join(room string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]Member)
		r.rooms[room] = members
	}
	members[m.ConnectionID] = m

	joined, ok := r.conns[m.ConnectionID]
	if !ok {
		joined = make(map[string]struct{})
		r.conns[m.ConnectionID] = joined
	}
	joined[room] = struct{}{}
}

// Leave removes the connection from room and reports whether it was a member.
func (r *Registry) Leave(room, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(room, connectionID)
}

func (r *Registry) leaveLocked(room, connectionID string) bool {
	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[connectionID]; !ok {
		return false
	}
	delete(members, connectionID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	if joined, ok := r.conns[connectionID]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.conns, connectionID)
		}
	}
	return true
}

// Disconnect removes the connection from every room it joined, including the
// team room, and returns the rooms it left in sorted order.
func (r *Registry) Disconnect(connectionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.conns[connectionID]
	left := make([]string, 0, len(joined))
	for room := range joined {
		left = append(left, room)
	}
	for _, room := range left {
		r.leaveLocked(room, connectionID)
	}
	delete(r.conns, connectionID)
	sort.Strings(left)
	return left
}

// Members returns a snapshot of room ordered by connection id.
func (r *Registry) Members(room string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]Member, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out
}

// Member returns the connection's presence in room.
func (r *Registry) Member(room, connectionID string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.rooms[room][connectionID]
	return m, ok
}

// IsMember reports whether the connection has joined room.
func (r *Registry) IsMember(room, connectionID string) bool {
	_, ok := r.Member(room, connectionID)
	return ok
}

// Rooms returns the rooms the connection has joined in sorted order.
func (r *Registry) Rooms(connectionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.conns[connectionID]
	out := make([]string, 0, len(joined))
	for room := range joined {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of connections in room.
func (r *Registry) Count(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// OnlineAgents returns the distinct agent ids present in the team room.
func (r *Registry) OnlineAgents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, m := range r.rooms[TeamRoom] {
		seen[m.AgentID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
