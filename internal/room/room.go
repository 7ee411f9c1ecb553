// internal/room/room.go
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gameroomio/gameroom/internal/events"
)

// Room is a short-lived group of connections sharing one game session. The
// room id is chosen by the client that creates it and stays opaque to the
// server. Members keeps join order; join order is turn order for the generic
// games and the seat order roles are dealt over for Palermo.
type Room struct {
	ID        string
	GameType  string
	CreatedAt time.Time

	Members []*Conn

	Mu sync.Mutex
}

// AddMember appends the connection unless the same connection id is already
// present, so a rejoin after a transport hiccup is idempotent. Reports
// whether the member set changed.
func (r *Room) AddMember(c *Conn) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	for _, m := range r.Members {
		if m.ID == c.ID {
			return false
		}
	}
	r.Members = append(r.Members, c)
	return true
}

// RemoveMember deletes the connection from the member list. Removal is keyed
// by connection id and idempotent: the implicit leave on disconnect and an
// explicit leave-room for the same player must not both report a removal.
func (r *Room) RemoveMember(id uuid.UUID) (*Conn, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	for i, m := range r.Members {
		if m.ID == id {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return m, true
		}
	}
	return nil, false
}

// Member returns the member with the given connection id.
func (r *Room) Member(id uuid.UUID) (*Conn, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	for _, m := range r.Members {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// MemberAt returns the member at the given join-order index.
func (r *Room) MemberAt(idx int) (*Conn, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if idx < 0 || idx >= len(r.Members) {
		return nil, false
	}
	return r.Members[idx], true
}

// MemberByUsername returns the first member with the given display name.
// Display names are not guaranteed unique; callers that care must dedupe at
// join time.
func (r *Room) MemberByUsername(name string) (*Conn, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	for _, m := range r.Members {
		if m.Username == name {
			return m, true
		}
	}
	return nil, false
}

// Usernames returns the member display names in join order.
func (r *Room) Usernames() []string {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	names := make([]string, len(r.Members))
	for i, m := range r.Members {
		names[i] = m.Username
	}
	return names
}

// Size returns the current member count.
func (r *Room) Size() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return len(r.Members)
}

// Snapshot returns the membership in join order for room-update broadcasts.
func (r *Room) Snapshot() []events.PlayerInfo {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	players := make([]events.PlayerInfo, len(r.Members))
	for i, m := range r.Members {
		players[i] = events.PlayerInfo{ID: m.ID.String(), Username: m.Username}
	}
	return players
}

// Broadcast sends the frame to every current member. The member list is
// snapshotted under the lock and the sends happen outside it, so a slow
// client cannot stall room mutation.
func (r *Room) Broadcast(msg interface{}) {
	r.Mu.Lock()
	members := make([]*Conn, len(r.Members))
	copy(members, r.Members)
	r.Mu.Unlock()

	for _, m := range members {
		m.Send(msg)
	}
}

// BroadcastExcept sends the frame to every member but the given connection.
// Used for relayed side channels where the sender already has the value.
func (r *Room) BroadcastExcept(id uuid.UUID, msg interface{}) {
	r.Mu.Lock()
	members := make([]*Conn, 0, len(r.Members))
	for _, m := range r.Members {
		if m.ID != id {
			members = append(members, m)
		}
	}
	r.Mu.Unlock()

	for _, m := range members {
		m.Send(msg)
	}
}
