// internal/relay/battleship.go
package relay

// Battleship is the one game whose state cannot be client-relayed: each
// side's ship layout must stay server-private, with only outcome booleans
// crossing the wire. The store keeps one grid per player index and
// adjudicates attacks against the opposing grid.

const shipCell = "ship"

// AttackResult is what an adjudicated shot reveals. The attacker and the
// defender both receive exactly these fields; neither ever sees the opposing
// layout.
type AttackResult struct {
	Row           int
	Col           int
	Hit           bool
	DefenderIndex int
}

// SetGrid stores a player's private ship placement for the room.
func (s *Store) SetGrid(roomID string, playerIndex int, grid [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grids[roomID]
	if !ok {
		g = make(map[int][][]string)
		s.grids[roomID] = g
	}
	g[playerIndex] = grid
}

// Attack resolves a shot by the attacker against the other player's stored
// grid. ok is false when no grids were registered for the room.
func (s *Store) Attack(roomID string, row, col, attackerIndex int) (AttackResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grids, ok := s.grids[roomID]
	if !ok {
		return AttackResult{}, false
	}

	defenderIndex := 1 - attackerIndex
	res := AttackResult{Row: row, Col: col, DefenderIndex: defenderIndex}

	grid := grids[defenderIndex]
	if row >= 0 && row < len(grid) {
		if col >= 0 && col < len(grid[row]) {
			res.Hit = grid[row][col] == shipCell
		}
	}
	return res, true
}
