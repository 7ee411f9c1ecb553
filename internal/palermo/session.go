// internal/palermo/session.go
package palermo

import (
	"math/rand"
	"sync"
)

// Role is a hidden role dealt once at game start.
type Role string

const (
	RoleMafia     Role = "MAFIA"
	RoleDoctor    Role = "DOCTOR"
	RoleDetective Role = "DETECTIVE"
	RoleVillager  Role = "VILLAGER"
)

// nightRoles are the roles expected to act during the night phase.
var nightRoles = map[Role]bool{
	RoleMafia:     true,
	RoleDoctor:    true,
	RoleDetective: true,
}

// Phase is a stage of the game's state machine. Phase is the single source
// of truth for which actions are currently legal.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseNight    Phase = "night"
	PhaseDay      Phase = "day"
	PhaseVoting   Phase = "voting"
	PhaseGameOver Phase = "gameOver"
)

// nightAction records one role-holder's chosen target. Seq orders actions
// within a night so that, should a role somehow have several holders, the
// most recent submission wins deterministically.
type nightAction struct {
	Target string
	Seq    int
}

// Session is one room's running game. Roles are assigned once and never
// change; Alive only shrinks. All fields are guarded by Mu.
type Session struct {
	RoomID string

	Roles map[string]Role
	Alive []string

	NightActions map[string]nightAction
	actionSeq    int

	Votes  map[string]int
	Voters map[string]string

	Phase Phase

	// Epoch increments on every phase transition. Timer callbacks and
	// delayed announcements capture it at schedule time and abort on
	// mismatch, which makes the all-acted early path and the timeout path
	// mutually exclusive.
	Epoch int

	Mu sync.Mutex
}

func newSession(roomID string, players []string) *Session {
	alive := make([]string, len(players))
	copy(alive, players)
	return &Session{
		RoomID:       roomID,
		Roles:        assignRoles(players),
		Alive:        alive,
		NightActions: make(map[string]nightAction),
		Votes:        make(map[string]int),
		Voters:       make(map[string]string),
		Phase:        PhaseNight,
		Epoch:        1,
	}
}

// assignRoles deals floor(n/4) mafia (minimum one), one doctor, one
// detective, villagers for the rest, shuffled over join order.
func assignRoles(players []string) map[string]Role {
	mafiaCount := len(players) / 4
	if mafiaCount < 1 {
		mafiaCount = 1
	}

	deck := make([]Role, 0, len(players))
	for i := 0; i < mafiaCount; i++ {
		deck = append(deck, RoleMafia)
	}
	deck = append(deck, RoleDoctor, RoleDetective)
	for len(deck) < len(players) {
		deck = append(deck, RoleVillager)
	}

	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	roles := make(map[string]Role, len(players))
	for i, name := range players {
		roles[name] = deck[i]
	}
	return roles
}

// isAlive reports whether the player is still in the game. Lock held.
func (s *Session) isAlive(name string) bool {
	for _, p := range s.Alive {
		if p == name {
			return true
		}
	}
	return false
}

// kill removes the player from the alive set. Lock held.
func (s *Session) kill(name string) {
	for i, p := range s.Alive {
		if p == name {
			s.Alive = append(s.Alive[:i], s.Alive[i+1:]...)
			return
		}
	}
}

// aliveHolders returns living players with the given role, in alive order.
// Lock held.
func (s *Session) aliveHolders(role Role) []string {
	var holders []string
	for _, p := range s.Alive {
		if s.Roles[p] == role {
			holders = append(holders, p)
		}
	}
	return holders
}

// aliveMafiaCount counts living mafia. Lock held.
func (s *Session) aliveMafiaCount() int {
	n := 0
	for _, p := range s.Alive {
		if s.Roles[p] == RoleMafia {
			n++
		}
	}
	return n
}

// alivePlayers returns a copy of the alive set for broadcasting. Lock held.
func (s *Session) alivePlayers() []string {
	out := make([]string, len(s.Alive))
	copy(out, s.Alive)
	return out
}

// allNightRolesActed reports whether every living night-action holder has
// submitted an action this night. Lock held.
func (s *Session) allNightRolesActed() bool {
	for _, p := range s.Alive {
		if nightRoles[s.Roles[p]] {
			if _, acted := s.NightActions[p]; !acted {
				return false
			}
		}
	}
	return true
}

// latestTargetFor returns the most recently recorded target among living
// holders of the role. Lock held.
func (s *Session) latestTargetFor(role Role) string {
	target := ""
	bestSeq := -1
	for actor, act := range s.NightActions {
		if s.Roles[actor] == role && s.isAlive(actor) && act.Seq > bestSeq {
			target = act.Target
			bestSeq = act.Seq
		}
	}
	return target
}
