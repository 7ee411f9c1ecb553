// internal/relay/relay.go
package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the stored snapshot for one room: an opaque field map replaced
// wholesale on every update, never merged, plus a server-side update stamp.
type State struct {
	Fields    map[string]interface{}
	UpdatedAt time.Time
}

// Store is the generic last-write-wins state relay. It does not interpret
// blobs beyond the two arbitration side channels (battleship grids, snake
// directions); anti-cheat validation of submitted state is explicitly not
// its job.
type Store struct {
	mu     sync.Mutex
	states map[string]*State
	grids  map[string]map[int][][]string

	logger *logrus.Logger
}

// NewStore returns an empty in-memory relay store.
func NewStore(logger *logrus.Logger) *Store {
	return &Store{
		states: make(map[string]*State),
		grids:  make(map[string]map[int][][]string),
		logger: logger,
	}
}

// SetState overwrites the room's blob and stamps the update time.
func (s *Store) SetState(roomID string, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[roomID] = &State{Fields: fields, UpdatedAt: time.Now()}
}

// GetState returns the room's current blob, if any.
func (s *Store) GetState(roomID string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[roomID]
	return st, ok
}

// SetDirection folds a snake direction update into the stored blob without
// replacing it. This is the one sanctioned partial write: the direction is a
// transient control value the next full snapshot producer reads, and it is
// not broadcast.
func (s *Store) SetDirection(roomID string, playerIndex int, direction json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[roomID]
	if !ok {
		st = &State{Fields: make(map[string]interface{})}
		s.states[roomID] = st
	}
	key := "direction1"
	if playerIndex != 0 {
		key = "direction2"
	}
	st.Fields[key] = direction
	st.UpdatedAt = time.Now()
}

// Reset clears the room's blob. The battleship grids go with it when the
// room was playing battleship; a reset mid-placement must not leak the old
// layouts into the next game.
func (s *Store) Reset(roomID string, gameType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, roomID)
	if gameType == "battleship" {
		delete(s.grids, roomID)
	}
}

// Purge drops everything the store holds for the room. Called on room
// destruction.
func (s *Store) Purge(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, roomID)
	delete(s.grids, roomID)
}
