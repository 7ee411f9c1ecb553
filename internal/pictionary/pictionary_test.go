// internal/pictionary/pictionary_test.go
package pictionary

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameroomio/gameroom/internal/events"
	"github.com/gameroomio/gameroom/internal/sched"
)

type recorder struct {
	mu     sync.Mutex
	frames []interface{}
}

func (r *recorder) record(roomID string, msg interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, msg)
}

func (r *recorder) all() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interface{}, len(r.frames))
	copy(out, r.frames)
	return out
}

func (r *recorder) roundEnds() []events.PictionaryRoundEnd {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.PictionaryRoundEnd
	for _, f := range r.frames {
		if e, ok := f.(events.PictionaryRoundEnd); ok {
			out = append(out, e)
		}
	}
	return out
}

func newTestStore() (*Store, *recorder) {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	st := NewStore(l, sched.New())
	st.RevealDelay = 10 * time.Millisecond
	rec := &recorder{}
	st.BroadcastFn = rec.record
	return st, rec
}

func waitForRoundEnd(t *testing.T, rec *recorder) events.PictionaryRoundEnd {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ends := rec.roundEnds(); len(ends) > 0 {
			return ends[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("round-end broadcast never arrived")
	return events.PictionaryRoundEnd{}
}

func TestStartGameResetsState(t *testing.T) {
	st, rec := newTestStore()
	st.StartGame("ABC123")

	g, ok := st.Game("ABC123")
	require.True(t, ok)
	assert.Equal(t, 0, g.DrawerIndex)
	assert.Empty(t, g.CurrentWord)

	frames := rec.all()
	require.Len(t, frames, 1)
	start, ok := frames[0].(events.PictionaryStart)
	require.True(t, ok)
	assert.Equal(t, 0, start.DrawerIndex)
}

func TestChooseWordBroadcastsLengthOnly(t *testing.T) {
	st, rec := newTestStore()
	st.StartGame("ABC123")
	st.ChooseWord("ABC123", "Giraffe")

	g, _ := st.Game("ABC123")
	assert.Equal(t, "giraffe", g.CurrentWord)
	assert.Equal(t, 1, g.Round)

	frames := rec.all()
	require.Len(t, frames, 2)
	chosen, ok := frames[1].(events.PictionaryWordChosen)
	require.True(t, ok)
	assert.Equal(t, 7, chosen.WordLength)
}

func TestWrongGuessEchoesVerbatim(t *testing.T) {
	st, rec := newTestStore()
	st.StartGame("ABC123")
	st.ChooseWord("ABC123", "giraffe")

	st.Guess("ABC123", "bob", "alice", "elephant")

	frames := rec.all()
	require.Len(t, frames, 3)
	res, ok := frames[2].(events.PictionaryGuessResult)
	require.True(t, ok)
	assert.Equal(t, "bob", res.Username)
	assert.Equal(t, "elephant", res.Message)
	assert.False(t, res.Correct)

	g, _ := st.Game("ABC123")
	assert.Empty(t, g.Winner)
	assert.Empty(t, g.Scores)
}

func TestCorrectGuessScoresAndReveals(t *testing.T) {
	st, rec := newTestStore()
	st.StartGame("ABC123")
	st.ChooseWord("ABC123", "giraffe")

	// matching is case and whitespace insensitive
	st.Guess("ABC123", "bob", "alice", "  GIRAFFE ")

	g, _ := st.Game("ABC123")
	st.mu.Lock()
	assert.Equal(t, "bob", g.Winner)
	assert.Equal(t, 3, g.Scores["bob"])
	assert.Equal(t, 1, g.Scores["alice"])
	st.mu.Unlock()

	frames := rec.all()
	res, ok := frames[len(frames)-1].(events.PictionaryGuessResult)
	require.True(t, ok)
	assert.Equal(t, "✓ Correct!", res.Message)
	assert.True(t, res.Correct)

	end := waitForRoundEnd(t, rec)
	assert.Equal(t, "giraffe", end.Word)
	assert.Equal(t, "bob", end.Winner)
	assert.Equal(t, map[string]int{"bob": 3, "alice": 1}, end.Scores)

	g, _ = st.Game("ABC123")
	st.mu.Lock()
	assert.Empty(t, g.Winner, "reveal must clear the winner latch")
	st.mu.Unlock()
}

func TestWinnerLatchBlocksLaterGuesses(t *testing.T) {
	st, rec := newTestStore()
	st.RevealDelay = time.Hour
	st.StartGame("ABC123")
	st.ChooseWord("ABC123", "giraffe")

	st.Guess("ABC123", "bob", "alice", "giraffe")
	st.Guess("ABC123", "carol", "alice", "giraffe")

	g, _ := st.Game("ABC123")
	assert.Equal(t, "bob", g.Winner)
	assert.Zero(t, g.Scores["carol"])
	assert.Equal(t, 1, g.Scores["alice"], "drawer scores once per round")

	// only bob's guess was broadcast after the latch closed
	count := 0
	for _, f := range rec.all() {
		if _, ok := f.(events.PictionaryGuessResult); ok {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestStaleRevealDroppedAfterNextRound(t *testing.T) {
	st, rec := newTestStore()
	st.RevealDelay = 30 * time.Millisecond
	st.StartGame("ABC123")
	st.ChooseWord("ABC123", "giraffe")

	st.Guess("ABC123", "bob", "alice", "giraffe")
	// the table moves on before the reveal timer fires
	st.NextRound("ABC123", 3)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.roundEnds(), "reveal for a finished round must be dropped")

	g, _ := st.Game("ABC123")
	assert.Equal(t, 1, g.DrawerIndex)
	assert.Empty(t, g.CurrentWord)
	assert.Equal(t, 3, g.Scores["bob"], "scores survive the rotation")
}

func TestTimeoutEndsRoundWithoutWinner(t *testing.T) {
	st, rec := newTestStore()
	st.StartGame("ABC123")
	st.ChooseWord("ABC123", "giraffe")

	st.Timeout("ABC123")

	ends := rec.roundEnds()
	require.Len(t, ends, 1)
	assert.Equal(t, "giraffe", ends[0].Word)
	assert.Empty(t, ends[0].Winner)
}

func TestNextRoundRotatesDrawer(t *testing.T) {
	st, _ := newTestStore()
	st.StartGame("ABC123")

	st.NextRound("ABC123", 3)
	g, _ := st.Game("ABC123")
	assert.Equal(t, 1, g.DrawerIndex)

	st.NextRound("ABC123", 3)
	st.NextRound("ABC123", 3)
	g, _ = st.Game("ABC123")
	assert.Equal(t, 0, g.DrawerIndex, "rotation wraps through join order")
}

func TestOperationsOnUnknownRoomAreNoOps(t *testing.T) {
	st, rec := newTestStore()
	st.ChooseWord("NOPE", "giraffe")
	st.Guess("NOPE", "bob", "alice", "giraffe")
	st.Timeout("NOPE")
	st.NextRound("NOPE", 3)
	assert.Empty(t, rec.all())
}

func TestDeleteDropsGame(t *testing.T) {
	st, _ := newTestStore()
	st.StartGame("ABC123")
	st.Delete("ABC123")
	_, ok := st.Game("ABC123")
	assert.False(t, ok)
}
