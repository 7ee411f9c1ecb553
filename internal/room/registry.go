// internal/room/registry.go
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultRetention is how long a room may exist before the periodic sweep
// reclaims it regardless of activity.
const DefaultRetention = 24 * time.Hour

// Registry owns every live room. It is the only component that creates or
// destroys rooms; handlers reach rooms exclusively through it so the rest of
// the server stays testable without a live transport.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	retention time.Duration
	logger    *logrus.Logger

	// OnDestroy is invoked once per destroyed room, after the room has left
	// the registry. The coordinator hangs per-room state teardown (relay
	// blobs, palermo session, pending timers) off this callback.
	OnDestroy func(roomID string)
}

// NewRegistry returns an in-memory registry with the given retention
// ceiling; zero means DefaultRetention.
func NewRegistry(logger *logrus.Logger, retention time.Duration) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		rooms:     make(map[string]*Room),
		retention: retention,
		logger:    logger,
	}
}

// Join adds the connection to the room, creating the room lazily on first
// join. Rejoining with the same connection id is a no-op on membership.
func (reg *Registry) Join(roomID string, c *Conn, gameType string) *Room {
	reg.mu.Lock()
	r, ok := reg.rooms[roomID]
	if !ok {
		r = &Room{ID: roomID, GameType: gameType, CreatedAt: time.Now()}
		reg.rooms[roomID] = r
	}
	reg.mu.Unlock()

	if r.AddMember(c) {
		reg.logger.Infof("room %s: %s joined (%d members)", roomID, c.Username, r.Size())
	}
	return r
}

// Leave removes the connection from the room. When the last member leaves
// the room is destroyed and OnDestroy fires. Returns the removed member, the
// room, and whether the room was destroyed; a missing room or already-removed
// member returns ok=false so callers never double-broadcast a departure.
func (reg *Registry) Leave(roomID string, connID uuid.UUID) (c *Conn, r *Room, destroyed, ok bool) {
	reg.mu.Lock()
	r, exists := reg.rooms[roomID]
	reg.mu.Unlock()
	if !exists {
		return nil, nil, false, false
	}

	c, ok = r.RemoveMember(connID)
	if !ok {
		return nil, r, false, false
	}
	reg.logger.Infof("room %s: %s left (%d members)", roomID, c.Username, r.Size())

	if r.Size() == 0 {
		reg.destroy(roomID)
		destroyed = true
	}
	return c, r, destroyed, true
}

// Departure describes one room a disconnecting connection was removed from.
type Departure struct {
	Room      *Room
	Conn      *Conn
	Destroyed bool
}

// Disconnect performs an implicit leave from every room the connection
// belongs to. Racing an explicit leave-room for the same player is safe:
// whichever removal lands second finds nothing to remove.
func (reg *Registry) Disconnect(connID uuid.UUID) []Departure {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	var departures []Departure
	for _, r := range rooms {
		c, ok := r.RemoveMember(connID)
		if !ok {
			continue
		}
		reg.logger.Infof("room %s: %s disconnected (%d members)", r.ID, c.Username, r.Size())
		dep := Departure{Room: r, Conn: c}
		if r.Size() == 0 {
			reg.destroy(r.ID)
			dep.Destroyed = true
		}
		departures = append(departures, dep)
	}
	return departures
}

// Get retrieves a room if it exists.
func (reg *Registry) Get(roomID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	return r, ok
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// Sweep destroys rooms that are empty or older than the retention ceiling.
// This is the backstop against state leaked by abrupt network loss; an
// explicit leave is never required for reclamation.
func (reg *Registry) Sweep(now time.Time) []string {
	reg.mu.Lock()
	var stale []string
	for id, r := range reg.rooms {
		if r.Size() == 0 || now.Sub(r.CreatedAt) > reg.retention {
			stale = append(stale, id)
		}
	}
	reg.mu.Unlock()

	for _, id := range stale {
		reg.logger.Infof("room %s: swept", id)
		reg.destroy(id)
	}
	return stale
}

// RunSweeper sweeps on the given interval until stop is closed.
func (reg *Registry) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			reg.Sweep(time.Now())
		case <-stop:
			return
		}
	}
}

// destroy removes the room from the registry and fires OnDestroy exactly
// once. Safe to call for an id that was already destroyed.
func (reg *Registry) destroy(roomID string) {
	reg.mu.Lock()
	_, existed := reg.rooms[roomID]
	delete(reg.rooms, roomID)
	cb := reg.OnDestroy
	reg.mu.Unlock()

	if existed && cb != nil {
		cb(roomID)
	}
}
