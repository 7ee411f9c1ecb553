// internal/relay/relay_test.go
package relay

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() *Store {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return NewStore(l)
}

func TestSetStateOverwritesWholesale(t *testing.T) {
	s := testStore()

	s.SetState("ABC123", map[string]interface{}{"board": "x", "turn": 0})
	s.SetState("ABC123", map[string]interface{}{"turn": 1})

	st, ok := s.GetState("ABC123")
	require.True(t, ok)
	assert.Equal(t, 1, st.Fields["turn"])
	_, stale := st.Fields["board"]
	assert.False(t, stale, "old fields must not survive an overwrite")
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestSetDirectionFoldsIntoBlob(t *testing.T) {
	s := testStore()
	s.SetState("ABC123", map[string]interface{}{"food": "5,5"})

	s.SetDirection("ABC123", 0, json.RawMessage(`"up"`))
	s.SetDirection("ABC123", 1, json.RawMessage(`"left"`))

	st, ok := s.GetState("ABC123")
	require.True(t, ok)
	assert.Equal(t, json.RawMessage(`"up"`), st.Fields["direction1"])
	assert.Equal(t, json.RawMessage(`"left"`), st.Fields["direction2"])
	assert.Contains(t, st.Fields, "food")
}

func TestSetDirectionBeforeAnyState(t *testing.T) {
	s := testStore()
	s.SetDirection("ABC123", 1, json.RawMessage(`"down"`))

	st, ok := s.GetState("ABC123")
	require.True(t, ok)
	assert.Equal(t, json.RawMessage(`"down"`), st.Fields["direction2"])
}

func TestBattleshipAttackAdjudication(t *testing.T) {
	s := testStore()

	// defender (index 1) has a ship at 0,1
	s.SetGrid("ABC123", 1, [][]string{
		{"", "ship"},
		{"", ""},
	})
	s.SetGrid("ABC123", 0, [][]string{
		{"ship", ""},
		{"", ""},
	})

	res, ok := s.Attack("ABC123", 0, 1, 0)
	require.True(t, ok)
	assert.True(t, res.Hit)
	assert.Equal(t, 1, res.DefenderIndex)
	assert.Equal(t, 0, res.Row)
	assert.Equal(t, 1, res.Col)

	res, ok = s.Attack("ABC123", 1, 1, 0)
	require.True(t, ok)
	assert.False(t, res.Hit)

	// attacks against the attacker's own grid never happen: index 1 shoots grid 0
	res, ok = s.Attack("ABC123", 0, 0, 1)
	require.True(t, ok)
	assert.True(t, res.Hit)
	assert.Equal(t, 0, res.DefenderIndex)
}

func TestAttackOutOfBoundsIsMiss(t *testing.T) {
	s := testStore()
	s.SetGrid("ABC123", 1, [][]string{{"ship"}})

	res, ok := s.Attack("ABC123", 5, 5, 0)
	require.True(t, ok)
	assert.False(t, res.Hit)
}

func TestAttackWithoutGrids(t *testing.T) {
	s := testStore()
	_, ok := s.Attack("NOPE", 0, 0, 0)
	assert.False(t, ok)
}

func TestResetClearsGridsOnlyForBattleship(t *testing.T) {
	s := testStore()
	s.SetState("ABC123", map[string]interface{}{"x": 1})
	s.SetGrid("ABC123", 0, [][]string{{"ship"}})

	// resetting a different game type keeps the grids
	s.Reset("ABC123", "tictactoe")
	_, ok := s.GetState("ABC123")
	assert.False(t, ok)
	_, ok = s.Attack("ABC123", 0, 0, 1)
	assert.True(t, ok)

	s.Reset("ABC123", "battleship")
	_, ok = s.Attack("ABC123", 0, 0, 1)
	assert.False(t, ok)
}

func TestPurgeDropsEverything(t *testing.T) {
	s := testStore()
	s.SetState("ABC123", map[string]interface{}{"x": 1})
	s.SetGrid("ABC123", 0, [][]string{{"ship"}})

	s.Purge("ABC123")
	_, ok := s.GetState("ABC123")
	assert.False(t, ok)
	_, ok = s.Attack("ABC123", 0, 0, 1)
	assert.False(t, ok)
}
