// internal/events/events.go
package events

import (
	"encoding/json"
	"fmt"
)

// Event names shared by client and server. These are the wire contract;
// renaming one breaks every deployed client.
const (
	// Room lifecycle (client -> server).
	TypeJoinRoom  = "join-room"
	TypeLeaveRoom = "leave-room"

	// Room lifecycle (server -> client).
	TypeRoomUpdate   = "room-update"
	TypePlayerJoined = "player-joined"
	TypePlayerLeft   = "player-left"

	// Generic state relay.
	TypeGameMove  = "game-move"
	TypeGameState = "game-state"
	TypeGameReset = "game-reset"

	// Server-arbitrated side channels.
	TypeBattleshipReady  = "battleship-ready"
	TypeBattleshipAttack = "battleship-attack"
	TypeBattleshipResult = "battleship-result"
	TypeAirhockeyPaddle  = "airhockey-paddle"
	TypePaddleUpdate     = "paddle-update"
	TypeSnakeDirection   = "snake-direction"

	// Palermo (hidden-role) game.
	TypePalermoStart       = "palermo-start"
	TypePalermoRoles       = "palermo-roles"
	TypePalermoPhase       = "palermo-phase"
	TypePalermoNightAction = "palermo-night-action"
	TypePalermoNightResult = "palermo-night-result"
	TypePalermoStartVoting = "palermo-start-voting"
	TypePalermoVote        = "palermo-vote"
	TypePalermoVoteUpdate  = "palermo-vote-update"
	TypePalermoDeath       = "palermo-death"
	TypePalermoGameOver    = "palermo-game-over"

	// Pictionary rounds.
	TypePictionaryStartGame  = "pictionary-start-game"
	TypePictionaryStart      = "pictionary-start"
	TypePictionaryChooseWord = "pictionary-choose-word"
	TypePictionaryWordChosen = "pictionary-word-chosen"
	TypePictionaryDraw       = "pictionary-draw"
	TypePictionaryClear      = "pictionary-clear"
	TypePictionaryGuess      = "pictionary-guess"
	TypePictionaryTimeout    = "pictionary-timeout"
	TypePictionaryNextRound  = "pictionary-next-round"
	TypePictionaryRoundEnd   = "pictionary-round-end"
)

// Envelope is the minimal frame every inbound message must satisfy. The
// Type field selects the payload struct the rest of the frame decodes into.
type Envelope struct {
	Type string `json:"type"`
}

// --- Inbound payloads (client -> server) ---

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	GameType string `json:"gameType"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

type GameReset struct {
	RoomID   string `json:"roomId"`
	GameType string `json:"gameType"`
}

// GameMove carries an opaque state blob. RoomID and GameType are routing
// fields; everything else is relayed verbatim.
type GameMove struct {
	RoomID   string
	GameType string
	Fields   map[string]interface{}
}

// DecodeGameMove splits the routing fields off a game-move frame and keeps
// the remainder as the opaque blob.
func DecodeGameMove(raw []byte) (GameMove, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return GameMove{}, fmt.Errorf("decode game-move: %w", err)
	}
	mv := GameMove{Fields: fields}
	mv.RoomID, _ = fields["roomId"].(string)
	mv.GameType, _ = fields["gameType"].(string)
	delete(fields, "type")
	delete(fields, "roomId")
	delete(fields, "gameType")
	return mv, nil
}

type BattleshipReady struct {
	RoomID      string     `json:"roomId"`
	PlayerIndex int        `json:"playerIndex"`
	Grid        [][]string `json:"grid"`
}

type BattleshipAttack struct {
	RoomID        string `json:"roomId"`
	Row           int    `json:"row"`
	Col           int    `json:"col"`
	AttackerIndex int    `json:"attackerIndex"`
}

type AirhockeyPaddle struct {
	RoomID      string          `json:"roomId"`
	PlayerIndex int             `json:"playerIndex"`
	Paddle      json.RawMessage `json:"paddle"`
}

type SnakeDirection struct {
	RoomID      string          `json:"roomId"`
	PlayerIndex int             `json:"playerIndex"`
	Direction   json.RawMessage `json:"direction"`
}

type PalermoStart struct {
	RoomID string `json:"roomId"`
}

type PalermoNightAction struct {
	RoomID string `json:"roomId"`
	Action string `json:"action"`
	Target string `json:"target"`
}

type PalermoStartVoting struct {
	RoomID string `json:"roomId"`
}

type PalermoVote struct {
	RoomID string `json:"roomId"`
	Target string `json:"target"`
}

type PictionaryStartGame struct {
	RoomID string `json:"roomId"`
}

type PictionaryChooseWord struct {
	RoomID string `json:"roomId"`
	Word   string `json:"word"`
}

// PictionaryDraw relays a single stroke segment. Op is "begin", "draw" or
// "end"; the server never interprets the coordinates.
type PictionaryDraw struct {
	RoomID    string  `json:"roomId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
	Op        string  `json:"op"`
}

type PictionaryClear struct {
	RoomID string `json:"roomId"`
}

type PictionaryGuess struct {
	RoomID string `json:"roomId"`
	Guess  string `json:"guess"`
}

type PictionaryTimeout struct {
	RoomID string `json:"roomId"`
}

type PictionaryNextRound struct {
	RoomID string `json:"roomId"`
}

// --- Outbound payloads (server -> client) ---

// PlayerInfo identifies one room member in membership snapshots.
type PlayerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type RoomUpdate struct {
	Type    string       `json:"type"`
	Players []PlayerInfo `json:"players"`
}

type PlayerJoined struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type PlayerLeft struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type BattleshipReadyAck struct {
	Type        string `json:"type"`
	PlayerIndex int    `json:"playerIndex"`
}

type BattleshipResult struct {
	Type string `json:"type"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Hit  bool   `json:"hit"`
	Sunk bool   `json:"sunk"`
}

type PaddleUpdate struct {
	Type        string          `json:"type"`
	PlayerIndex int             `json:"playerIndex"`
	Paddle      json.RawMessage `json:"paddle"`
}

type PalermoRoles struct {
	Type  string            `json:"type"`
	Roles map[string]string `json:"roles"`
}

type PalermoPhase struct {
	Type         string   `json:"type"`
	Phase        string   `json:"phase"`
	AlivePlayers []string `json:"alivePlayers"`
	Message      string   `json:"message"`
	Timer        int      `json:"timer,omitempty"`
}

type PalermoNightResult struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type PalermoVoteUpdate struct {
	Type  string         `json:"type"`
	Votes map[string]int `json:"votes"`
}

type PalermoDeath struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type PalermoGameOver struct {
	Type    string `json:"type"`
	Winner  string `json:"winner"`
	Message string `json:"message"`
}

type PictionaryStart struct {
	Type        string `json:"type"`
	DrawerIndex int    `json:"drawerIndex"`
}

type PictionaryWordChosen struct {
	Type       string `json:"type"`
	WordLength int    `json:"wordLength"`
}

type PictionaryGuessResult struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Message  string `json:"message"`
	Correct  bool   `json:"correct"`
}

type PictionaryRoundEnd struct {
	Type   string         `json:"type"`
	Word   string         `json:"word"`
	Scores map[string]int `json:"scores"`
	Winner string         `json:"winner,omitempty"`
}

// Raw builds a loose outbound frame for blobs whose fields are not known to
// the server (the game-state echo). The type key always wins over a
// same-named blob field.
func Raw(eventType string, fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["type"] = eventType
	return out
}
