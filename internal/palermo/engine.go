// internal/palermo/engine.go
package palermo

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gameroomio/gameroom/internal/events"
	"github.com/gameroomio/gameroom/internal/sched"
)

// MinPlayers is the smallest lobby a game can start from: one mafia, one
// doctor, one detective and at least one villager.
const MinPlayers = 4

// Engine runs every live Palermo session. It owns the session store and the
// phase timers; transport is injected through the broadcast functions so the
// engine is testable without a websocket in sight.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*Session

	sched  *sched.Scheduler
	logger *logrus.Logger

	// PhaseDuration is the auto-advance window for night, day and voting.
	PhaseDuration time.Duration
	// StartDelay separates the private role reveal from the first night
	// announcement so clients can render roles before the clock starts.
	StartDelay time.Duration

	// BroadcastFn sends an event to every member of the room.
	BroadcastFn func(roomID string, msg interface{})
	// BroadcastToPlayerFn sends an event to a single member by name.
	BroadcastToPlayerFn func(roomID, username string, msg interface{})
}

// NewEngine builds an engine with the standard 30s phases.
func NewEngine(logger *logrus.Logger, scheduler *sched.Scheduler) *Engine {
	return &Engine{
		sessions:      make(map[string]*Session),
		sched:         scheduler,
		logger:        logger,
		PhaseDuration: 30 * time.Second,
		StartDelay:    3 * time.Second,
	}
}

// Session returns the room's live session, if any.
func (e *Engine) Session(roomID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[roomID]
	return s, ok
}

// Delete tears down the room's session and any pending phase timer. Called
// on room destruction.
func (e *Engine) Delete(roomID string) {
	e.mu.Lock()
	delete(e.sessions, roomID)
	e.mu.Unlock()
	e.sched.Cancel(roomID)
}

// Start deals roles over the given join-order player list and enters the
// first night. Starting with fewer than MinPlayers is rejected. A start
// while a game is already running replaces it, which is how a finished table
// goes again.
func (e *Engine) Start(roomID string, players []string) bool {
	if len(players) < MinPlayers {
		e.logger.Debugf("palermo %s: start rejected, %d players", roomID, len(players))
		return false
	}

	s := newSession(roomID, players)

	e.mu.Lock()
	if old, ok := e.sessions[roomID]; ok {
		e.logger.Infof("palermo %s: replacing session in phase %s", roomID, old.Phase)
	}
	e.sessions[roomID] = s
	e.mu.Unlock()

	// Each player learns their own role and nothing else; the full role map
	// never crosses the wire.
	for name, role := range s.Roles {
		e.toPlayer(roomID, name, events.PalermoRoles{
			Type:  events.TypePalermoRoles,
			Roles: map[string]string{name: string(role)},
		})
	}
	e.logger.Infof("palermo %s: started with %d players (%d mafia)",
		roomID, len(players), len(s.aliveHolders(RoleMafia)))

	epoch := s.Epoch
	e.sched.Schedule(roomID, e.StartDelay, func() {
		e.announceFirstNight(roomID, epoch)
	})
	return true
}

// announceFirstNight broadcasts the opening night phase and arms its
// timeout. Runs on a timer goroutine, so it re-fetches and re-validates.
func (e *Engine) announceFirstNight(roomID string, epoch int) {
	s, ok := e.Session(roomID)
	if !ok {
		return
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Phase != PhaseNight || s.Epoch != epoch {
		e.logger.Debugf("palermo %s: stale first-night announcement dropped", roomID)
		return
	}
	e.broadcastPhase(s, "🌙 Night has begun...")
	e.armPhaseTimer(s)
}

// NightAction records a role-gated night choice. Wrong phase, dead actors
// and actionless roles are rejected silently; only the log sees them. The
// advance-on-completion check runs after every accepted action.
func (e *Engine) NightAction(roomID, username, action, target string) {
	s, ok := e.Session(roomID)
	if !ok {
		e.logger.Debugf("palermo %s: night action for unknown session", roomID)
		return
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Phase != PhaseNight {
		e.logger.Debugf("palermo %s: night action from %s in phase %s ignored", roomID, username, s.Phase)
		return
	}
	if !s.isAlive(username) {
		e.logger.Debugf("palermo %s: night action from dead player %s ignored", roomID, username)
		return
	}
	if !nightRoles[s.Roles[username]] {
		e.logger.Debugf("palermo %s: night action from %s without a night role ignored", roomID, username)
		return
	}

	s.actionSeq++
	s.NightActions[username] = nightAction{Target: target, Seq: s.actionSeq}
	e.logger.Debugf("palermo %s: %s (%s) targets %s", roomID, username, s.Roles[username], target)

	if s.allNightRolesActed() {
		e.resolveNight(s)
	}
}

// StartVoting ends the day discussion early on an explicit client request.
func (e *Engine) StartVoting(roomID string) {
	s, ok := e.Session(roomID)
	if !ok {
		return
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Phase != PhaseDay {
		e.logger.Debugf("palermo %s: start-voting in phase %s ignored", roomID, s.Phase)
		return
	}
	e.beginVoting(s)
}

// Vote records one ballot per living player per voting phase. A second
// ballot from the same player is rejected, not overwritten.
func (e *Engine) Vote(roomID, username, target string) {
	s, ok := e.Session(roomID)
	if !ok {
		e.logger.Debugf("palermo %s: vote for unknown session", roomID)
		return
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Phase != PhaseVoting {
		e.logger.Debugf("palermo %s: vote from %s in phase %s ignored", roomID, username, s.Phase)
		return
	}
	if !s.isAlive(username) {
		e.logger.Debugf("palermo %s: vote from dead player %s ignored", roomID, username)
		return
	}
	if _, voted := s.Voters[username]; voted {
		e.logger.Debugf("palermo %s: duplicate vote from %s ignored", roomID, username)
		return
	}

	s.Voters[username] = target
	s.Votes[target]++

	tally := make(map[string]int, len(s.Votes))
	for k, v := range s.Votes {
		tally[k] = v
	}
	e.broadcast(roomID, events.PalermoVoteUpdate{Type: events.TypePalermoVoteUpdate, Votes: tally})

	if len(s.Voters) >= len(s.Alive) {
		e.resolveVoting(s)
	}
}

// armPhaseTimer schedules the auto-advance for the session's current phase,
// replacing whatever was pending for the room. Lock held.
func (e *Engine) armPhaseTimer(s *Session) {
	roomID := s.RoomID
	epoch := s.Epoch
	phase := s.Phase
	e.sched.Schedule(roomID, e.PhaseDuration, func() {
		e.phaseTimeout(roomID, phase, epoch)
	})
}

// phaseTimeout is the timer-driven advance. It re-fetches the session and
// checks both phase and epoch before acting: a player-driven advance that
// raced the timer has already moved the epoch on, making this a no-op.
func (e *Engine) phaseTimeout(roomID string, phase Phase, epoch int) {
	s, ok := e.Session(roomID)
	if !ok {
		return
	}
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Phase != phase || s.Epoch != epoch {
		e.logger.Debugf("palermo %s: stale %s timer (epoch %d, now %s/%d) ignored",
			roomID, phase, epoch, s.Phase, s.Epoch)
		return
	}
	switch phase {
	case PhaseNight:
		e.resolveNight(s)
	case PhaseDay:
		e.beginVoting(s)
	case PhaseVoting:
		e.resolveVoting(s)
	}
}

// resolveNight computes the night outcome exactly once per night: at most
// one kill, one save and one investigation honored, most recent action per
// role winning. Lock held, phase is night.
func (e *Engine) resolveNight(s *Session) {
	victim := s.latestTargetFor(RoleMafia)
	saved := s.latestTargetFor(RoleDoctor)
	investigated := s.latestTargetFor(RoleDetective)

	e.logger.Debugf("palermo %s: night resolution victim=%q saved=%q investigated=%q",
		s.RoomID, victim, saved, investigated)

	if victim != "" {
		msg := fmt.Sprintf("🔪 You killed %s!", victim)
		if victim == saved {
			msg = fmt.Sprintf("🔪 You tried to kill %s but they were saved!", victim)
		}
		for _, mafia := range s.aliveHolders(RoleMafia) {
			e.toPlayer(s.RoomID, mafia, events.PalermoNightResult{Type: events.TypePalermoNightResult, Message: msg})
		}
	}

	if saved != "" {
		msg := fmt.Sprintf("💉 You protected %s (they were not attacked)", saved)
		if victim == saved {
			msg = fmt.Sprintf("💉 You saved %s from death!", saved)
		}
		for _, doctor := range s.aliveHolders(RoleDoctor) {
			e.toPlayer(s.RoomID, doctor, events.PalermoNightResult{Type: events.TypePalermoNightResult, Message: msg})
		}
	}

	// The public channel only ever learns about the death, never a living
	// player's role.
	public := "☀️ Day has begun. "
	switch {
	case victim != "" && victim != saved:
		s.kill(victim)
		public += fmt.Sprintf("💀 %s was found dead!", victim)
		e.broadcast(s.RoomID, events.PalermoDeath{
			Type:     events.TypePalermoDeath,
			Username: victim,
			Role:     string(s.Roles[victim]),
		})
	case victim != "":
		public += "Nobody died during the night!"
	default:
		public += "A quiet night..."
	}

	if investigated != "" {
		verdict := fmt.Sprintf("🔍 %s is 👤 Innocent", investigated)
		if s.Roles[investigated] == RoleMafia {
			verdict = fmt.Sprintf("🔍 %s is 🔪 MAFIA!", investigated)
		}
		for _, det := range s.aliveHolders(RoleDetective) {
			e.toPlayer(s.RoomID, det, events.PalermoNightResult{Type: events.TypePalermoNightResult, Message: verdict})
		}
	}

	if e.checkWin(s) {
		return
	}

	s.NightActions = make(map[string]nightAction)
	s.Phase = PhaseDay
	s.Epoch++
	e.broadcastPhase(s, public)
	e.armPhaseTimer(s)
}

// beginVoting opens the ballot. Lock held.
func (e *Engine) beginVoting(s *Session) {
	s.Votes = make(map[string]int)
	s.Voters = make(map[string]string)
	s.Phase = PhaseVoting
	s.Epoch++
	e.broadcastPhase(s, "🗳️ Vote for who you want to eliminate!")
	e.armPhaseTimer(s)
}

// resolveVoting eliminates the strict-majority target, if any. A tie among
// the maximum or an empty ballot eliminates nobody; the phase still
// advances. Lock held, phase is voting.
func (e *Engine) resolveVoting(s *Session) {
	executed := ""
	maxVotes := 0
	tied := false
	for target, n := range s.Votes {
		switch {
		case n > maxVotes:
			maxVotes = n
			executed = target
			tied = false
		case n == maxVotes:
			tied = true
		}
	}

	if executed != "" && maxVotes > 0 && !tied {
		s.kill(executed)
		e.broadcast(s.RoomID, events.PalermoDeath{
			Type:     events.TypePalermoDeath,
			Username: executed,
			Role:     string(s.Roles[executed]),
		})
		e.logger.Infof("palermo %s: %s voted out with %d votes", s.RoomID, executed, maxVotes)
		if e.checkWin(s) {
			return
		}
	} else {
		e.logger.Infof("palermo %s: vote resolved with no elimination (max=%d tied=%v)", s.RoomID, maxVotes, tied)
	}

	s.Votes = make(map[string]int)
	s.Voters = make(map[string]string)
	s.NightActions = make(map[string]nightAction)
	s.Phase = PhaseNight
	s.Epoch++
	e.broadcastPhase(s, "🌙 Night falls...")
	e.armPhaseTimer(s)
}

// checkWin runs after every death. Zero living mafia is the stronger
// condition and is checked before mafia majority, so a simultaneous
// mafia==non-mafia at zero mafia is a village win. Returns true when the
// game ended. Lock held.
func (e *Engine) checkWin(s *Session) bool {
	mafia := s.aliveMafiaCount()
	others := len(s.Alive) - mafia

	switch {
	case mafia == 0:
		e.endGame(s, "village", "The villagers eliminated all the Mafia!")
		return true
	case mafia >= others:
		e.endGame(s, "mafia", "The Mafia has taken over the village!")
		return true
	}
	return false
}

// endGame moves to the terminal phase and cancels the room's pending timer.
// Lock held.
func (e *Engine) endGame(s *Session, winner, message string) {
	s.Phase = PhaseGameOver
	s.Epoch++
	e.sched.Cancel(s.RoomID)
	e.broadcast(s.RoomID, events.PalermoGameOver{
		Type:    events.TypePalermoGameOver,
		Winner:  winner,
		Message: message,
	})
	e.logger.Infof("palermo %s: game over, %s wins", s.RoomID, winner)
}

// broadcastPhase emits the standard phase announcement with the alive set
// and the countdown. Lock held.
func (e *Engine) broadcastPhase(s *Session, message string) {
	e.broadcast(s.RoomID, events.PalermoPhase{
		Type:         events.TypePalermoPhase,
		Phase:        string(s.Phase),
		AlivePlayers: s.alivePlayers(),
		Message:      message,
		Timer:        int(e.PhaseDuration / time.Second),
	})
}

func (e *Engine) broadcast(roomID string, msg interface{}) {
	if e.BroadcastFn != nil {
		e.BroadcastFn(roomID, msg)
	}
}

func (e *Engine) toPlayer(roomID, username string, msg interface{}) {
	if e.BroadcastToPlayerFn != nil {
		e.BroadcastToPlayerFn(roomID, username, msg)
	}
}
