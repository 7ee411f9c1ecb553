// internal/events/events_test.go
package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeGameMoveStripsRouting(t *testing.T) {
	raw := []byte(`{"type":"game-move","roomId":"ABC123","gameType":"chess","board":["x"],"turn":1}`)

	mv, err := DecodeGameMove(raw)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", mv.RoomID)
	assert.Equal(t, "chess", mv.GameType)

	assert.NotContains(t, mv.Fields, "type")
	assert.NotContains(t, mv.Fields, "roomId")
	assert.NotContains(t, mv.Fields, "gameType")
	assert.Equal(t, float64(1), mv.Fields["turn"])
	assert.Equal(t, []interface{}{"x"}, mv.Fields["board"])
}

func TestDecodeGameMoveMalformed(t *testing.T) {
	_, err := DecodeGameMove([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeGameMoveMissingRouting(t *testing.T) {
	mv, err := DecodeGameMove([]byte(`{"type":"game-move","x":1}`))
	require.NoError(t, err)
	assert.Empty(t, mv.RoomID)
	assert.Empty(t, mv.GameType)
}

func TestRawTypeKeyWins(t *testing.T) {
	out := Raw("game-state", map[string]interface{}{"type": "sneaky", "x": 1})
	assert.Equal(t, "game-state", out["type"])
	assert.Equal(t, 1, out["x"])

	out = Raw("game-reset", nil)
	assert.Equal(t, map[string]interface{}{"type": "game-reset"}, out)
}
