// internal/pictionary/pictionary.go
package pictionary

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gameroomio/gameroom/internal/events"
	"github.com/gameroomio/gameroom/internal/sched"
)

// DefaultRevealDelay is how long after a correct guess the round-end
// announcement waits, giving the table a beat to see the winning guess land.
const DefaultRevealDelay = 2 * time.Second

// Game is one room's running pictionary state. Round increments whenever
// the word or drawer changes; the delayed round-end reveal captures it and
// aborts if the table has already moved on.
type Game struct {
	DrawerIndex int
	CurrentWord string
	Scores      map[string]int
	Winner      string
	Round       int
}

// Store runs every live pictionary game. Transport is injected the same way
// the palermo engine does it.
type Store struct {
	mu    sync.Mutex
	games map[string]*Game

	sched  *sched.Scheduler
	logger *logrus.Logger

	// RevealDelay separates a correct guess from the round-end broadcast.
	RevealDelay time.Duration

	// BroadcastFn sends an event to every member of the room.
	BroadcastFn func(roomID string, msg interface{})
}

// NewStore returns an empty pictionary store.
func NewStore(logger *logrus.Logger, scheduler *sched.Scheduler) *Store {
	return &Store{
		games:       make(map[string]*Game),
		sched:       scheduler,
		logger:      logger,
		RevealDelay: DefaultRevealDelay,
	}
}

// Game returns the room's running game, if any.
func (st *Store) Game(roomID string) (*Game, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	g, ok := st.games[roomID]
	return g, ok
}

// Delete drops the room's game. Called on room destruction.
func (st *Store) Delete(roomID string) {
	st.mu.Lock()
	delete(st.games, roomID)
	st.mu.Unlock()
}

// StartGame resets the room to a fresh game with the first joiner drawing.
func (st *Store) StartGame(roomID string) {
	st.mu.Lock()
	st.games[roomID] = &Game{Scores: make(map[string]int)}
	st.mu.Unlock()

	st.broadcast(roomID, events.PictionaryStart{Type: events.TypePictionaryStart, DrawerIndex: 0})
}

// ChooseWord records the drawer's word and tells the table only its length.
func (st *Store) ChooseWord(roomID, word string) {
	st.mu.Lock()
	g, ok := st.games[roomID]
	if !ok {
		st.mu.Unlock()
		return
	}
	g.CurrentWord = strings.ToLower(word)
	g.Round++
	st.mu.Unlock()

	st.broadcast(roomID, events.PictionaryWordChosen{
		Type:       events.TypePictionaryWordChosen,
		WordLength: len(word),
	})
}

// Guess adjudicates one guess. The guess itself is echoed to the room,
// replaced by a confirmation when it matched. The first correct guess scores
// the guesser and the drawer and schedules the delayed round-end reveal.
// drawer is the current drawer's display name, resolved by the caller from
// room membership.
func (st *Store) Guess(roomID, username, drawer, guess string) {
	st.mu.Lock()
	g, ok := st.games[roomID]
	if !ok {
		st.mu.Unlock()
		st.logger.Debugf("pictionary %s: guess for unknown game", roomID)
		return
	}
	if g.Winner != "" {
		st.mu.Unlock()
		st.logger.Debugf("pictionary %s: guess from %s after round won ignored", roomID, username)
		return
	}

	correct := strings.TrimSpace(strings.ToLower(guess)) == strings.TrimSpace(g.CurrentWord)
	message := guess
	if correct {
		message = "✓ Correct!"
		g.Winner = username
		g.Scores[username] += 3
		if drawer != "" {
			g.Scores[drawer]++
		}
	}
	round := g.Round
	st.mu.Unlock()

	st.broadcast(roomID, events.PictionaryGuessResult{
		Type:     events.TypePictionaryGuess,
		Username: username,
		Message:  message,
		Correct:  correct,
	})

	if correct {
		st.sched.Schedule(roomID, st.RevealDelay, func() {
			st.revealRound(roomID, round)
		})
	}
}

// revealRound is the delayed announcement after a correct guess. It runs on
// a timer goroutine, so it re-fetches the game and re-checks that the round
// it was scheduled for is still the one on the table before announcing.
func (st *Store) revealRound(roomID string, round int) {
	st.mu.Lock()
	g, ok := st.games[roomID]
	if !ok || g.Round != round || g.Winner == "" {
		st.mu.Unlock()
		st.logger.Debugf("pictionary %s: stale round reveal dropped", roomID)
		return
	}
	msg := st.roundEndLocked(g, g.Winner)
	g.Winner = ""
	st.mu.Unlock()

	st.broadcast(roomID, msg)
}

// Timeout ends the round immediately with no winner.
func (st *Store) Timeout(roomID string) {
	st.mu.Lock()
	g, ok := st.games[roomID]
	if !ok {
		st.mu.Unlock()
		return
	}
	msg := st.roundEndLocked(g, "")
	st.mu.Unlock()

	st.broadcast(roomID, msg)
}

// NextRound rotates the drawer through join order and clears the word.
func (st *Store) NextRound(roomID string, memberCount int) {
	st.mu.Lock()
	g, ok := st.games[roomID]
	if !ok || memberCount == 0 {
		st.mu.Unlock()
		return
	}
	g.DrawerIndex = (g.DrawerIndex + 1) % memberCount
	g.CurrentWord = ""
	g.Winner = ""
	g.Round++
	drawerIndex := g.DrawerIndex
	st.mu.Unlock()

	st.broadcast(roomID, events.PictionaryStart{Type: events.TypePictionaryStart, DrawerIndex: drawerIndex})
}

// roundEndLocked builds the round-end payload with a copied score map.
// Store lock held.
func (st *Store) roundEndLocked(g *Game, winner string) events.PictionaryRoundEnd {
	scores := make(map[string]int, len(g.Scores))
	for k, v := range g.Scores {
		scores[k] = v
	}
	return events.PictionaryRoundEnd{
		Type:   events.TypePictionaryRoundEnd,
		Word:   g.CurrentWord,
		Scores: scores,
		Winner: winner,
	}
}

func (st *Store) broadcast(roomID string, msg interface{}) {
	if st.BroadcastFn != nil {
		st.BroadcastFn(roomID, msg)
	}
}
