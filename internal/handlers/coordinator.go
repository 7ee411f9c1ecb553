// internal/handlers/coordinator.go
package handlers

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gameroomio/gameroom/internal/events"
	"github.com/gameroomio/gameroom/internal/palermo"
	"github.com/gameroomio/gameroom/internal/pictionary"
	"github.com/gameroomio/gameroom/internal/relay"
	"github.com/gameroomio/gameroom/internal/room"
	"github.com/gameroomio/gameroom/internal/sched"
)

// Coordinator is the single owner of all per-room state: the registry, the
// relay store, the game engines and the shared timer scheduler. Handlers go
// through it for everything; nothing in the server touches a global map.
type Coordinator struct {
	Logger *logrus.Logger

	Rooms      *room.Registry
	Relay      *relay.Store
	Sched      *sched.Scheduler
	Palermo    *palermo.Engine
	Pictionary *pictionary.Store
}

// NewCoordinator wires the stores and engines together: engines broadcast
// through the registry's rooms, and room destruction tears down every piece
// of state keyed by that room id.
func NewCoordinator(logger *logrus.Logger, retention time.Duration) *Coordinator {
	scheduler := sched.New()
	co := &Coordinator{
		Logger:     logger,
		Rooms:      room.NewRegistry(logger, retention),
		Relay:      relay.NewStore(logger),
		Sched:      scheduler,
		Palermo:    palermo.NewEngine(logger, scheduler),
		Pictionary: pictionary.NewStore(logger, scheduler),
	}

	co.Rooms.OnDestroy = co.purgeRoom

	co.Palermo.BroadcastFn = co.broadcastToRoom
	co.Palermo.BroadcastToPlayerFn = co.sendToPlayer
	co.Pictionary.BroadcastFn = co.broadcastToRoom

	return co
}

// purgeRoom destroys everything associated with a room id. Runs exactly once
// per destroyed room, from the registry's OnDestroy hook, so explicit leave,
// disconnect and the periodic sweep all converge here.
func (co *Coordinator) purgeRoom(roomID string) {
	co.Sched.Cancel(roomID)
	co.Relay.Purge(roomID)
	co.Palermo.Delete(roomID)
	co.Pictionary.Delete(roomID)
	co.Logger.Debugf("room %s: state purged", roomID)
}

func (co *Coordinator) broadcastToRoom(roomID string, msg interface{}) {
	if r, ok := co.Rooms.Get(roomID); ok {
		r.Broadcast(msg)
	}
}

func (co *Coordinator) sendToPlayer(roomID, username string, msg interface{}) {
	r, ok := co.Rooms.Get(roomID)
	if !ok {
		return
	}
	if m, ok := r.MemberByUsername(username); ok {
		m.Send(msg)
	}
}

// Dispatch routes one inbound frame. Payloads are decoded into their typed
// structs here, at the transport boundary, before any engine sees them.
// Malformed frames and events referencing unknown rooms are dropped with a
// log line; no error ever goes back to the client.
func (co *Coordinator) Dispatch(c *room.Conn, raw []byte) {
	var env events.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		co.Logger.Warnf("conn %s: undecodable frame: %v", c.ID, err)
		return
	}

	switch env.Type {
	case events.TypeJoinRoom:
		var p events.JoinRoom
		if !co.decode(c, raw, &p) {
			return
		}
		co.handleJoin(c, p)

	case events.TypeLeaveRoom:
		var p events.LeaveRoom
		if !co.decode(c, raw, &p) {
			return
		}
		co.handleLeave(c, p.RoomID)

	case events.TypeGameMove:
		mv, err := events.DecodeGameMove(raw)
		if err != nil {
			co.Logger.Warnf("conn %s: %v", c.ID, err)
			return
		}
		co.handleGameMove(mv)

	case events.TypeGameReset:
		var p events.GameReset
		if !co.decode(c, raw, &p) {
			return
		}
		if r, ok := co.Rooms.Get(p.RoomID); ok {
			co.Relay.Reset(p.RoomID, p.GameType)
			r.Broadcast(events.Raw(events.TypeGameReset, nil))
		}

	case events.TypeBattleshipReady:
		var p events.BattleshipReady
		if !co.decode(c, raw, &p) {
			return
		}
		if r, ok := co.Rooms.Get(p.RoomID); ok {
			co.Relay.SetGrid(p.RoomID, p.PlayerIndex, p.Grid)
			r.Broadcast(events.BattleshipReadyAck{
				Type:        events.TypeBattleshipReady,
				PlayerIndex: p.PlayerIndex,
			})
		}

	case events.TypeBattleshipAttack:
		var p events.BattleshipAttack
		if !co.decode(c, raw, &p) {
			return
		}
		co.handleBattleshipAttack(c, p)

	case events.TypeAirhockeyPaddle:
		var p events.AirhockeyPaddle
		if !co.decode(c, raw, &p) {
			return
		}
		// Unicast to the other member, skipping the store: for a paddle
		// position immediacy beats consistency.
		if r, ok := co.Rooms.Get(p.RoomID); ok {
			r.BroadcastExcept(c.ID, events.PaddleUpdate{
				Type:        events.TypePaddleUpdate,
				PlayerIndex: p.PlayerIndex,
				Paddle:      p.Paddle,
			})
		}

	case events.TypeSnakeDirection:
		var p events.SnakeDirection
		if !co.decode(c, raw, &p) {
			return
		}
		co.Relay.SetDirection(p.RoomID, p.PlayerIndex, p.Direction)

	case events.TypePalermoStart:
		var p events.PalermoStart
		if !co.decode(c, raw, &p) {
			return
		}
		if r, ok := co.Rooms.Get(p.RoomID); ok {
			co.Palermo.Start(p.RoomID, r.Usernames())
		}

	case events.TypePalermoNightAction:
		var p events.PalermoNightAction
		if !co.decode(c, raw, &p) {
			return
		}
		if co.isMember(p.RoomID, c) {
			co.Palermo.NightAction(p.RoomID, c.Username, p.Action, p.Target)
		}

	case events.TypePalermoStartVoting:
		var p events.PalermoStartVoting
		if !co.decode(c, raw, &p) {
			return
		}
		co.Palermo.StartVoting(p.RoomID)

	case events.TypePalermoVote:
		var p events.PalermoVote
		if !co.decode(c, raw, &p) {
			return
		}
		if co.isMember(p.RoomID, c) {
			co.Palermo.Vote(p.RoomID, c.Username, p.Target)
		}

	case events.TypePictionaryStartGame:
		var p events.PictionaryStartGame
		if !co.decode(c, raw, &p) {
			return
		}
		if _, ok := co.Rooms.Get(p.RoomID); ok {
			co.Pictionary.StartGame(p.RoomID)
		}

	case events.TypePictionaryChooseWord:
		var p events.PictionaryChooseWord
		if !co.decode(c, raw, &p) {
			return
		}
		co.Pictionary.ChooseWord(p.RoomID, p.Word)

	case events.TypePictionaryDraw:
		var p events.PictionaryDraw
		if !co.decode(c, raw, &p) {
			return
		}
		if r, ok := co.Rooms.Get(p.RoomID); ok {
			r.BroadcastExcept(c.ID, events.Raw(events.TypePictionaryDraw, map[string]interface{}{
				"x": p.X, "y": p.Y, "color": p.Color, "lineWidth": p.LineWidth, "op": p.Op,
			}))
		}

	case events.TypePictionaryClear:
		var p events.PictionaryClear
		if !co.decode(c, raw, &p) {
			return
		}
		if r, ok := co.Rooms.Get(p.RoomID); ok {
			r.BroadcastExcept(c.ID, events.Raw(events.TypePictionaryClear, nil))
		}

	case events.TypePictionaryGuess:
		var p events.PictionaryGuess
		if !co.decode(c, raw, &p) {
			return
		}
		co.handlePictionaryGuess(c, p)

	case events.TypePictionaryTimeout:
		var p events.PictionaryTimeout
		if !co.decode(c, raw, &p) {
			return
		}
		co.Pictionary.Timeout(p.RoomID)

	case events.TypePictionaryNextRound:
		var p events.PictionaryNextRound
		if !co.decode(c, raw, &p) {
			return
		}
		if r, ok := co.Rooms.Get(p.RoomID); ok {
			co.Pictionary.NextRound(p.RoomID, r.Size())
		}

	default:
		co.Logger.Warnf("conn %s: unknown event type %q", c.ID, env.Type)
	}
}

// HandleDisconnect performs the implicit leave from every room the
// connection belonged to. Called by the transport once the read loop exits.
func (co *Coordinator) HandleDisconnect(c *room.Conn) {
	for _, dep := range co.Rooms.Disconnect(c.ID) {
		dep.Room.Broadcast(events.PlayerLeft{Type: events.TypePlayerLeft, Username: dep.Conn.Username})
		dep.Room.Broadcast(events.RoomUpdate{Type: events.TypeRoomUpdate, Players: dep.Room.Snapshot()})
	}
}

func (co *Coordinator) handleJoin(c *room.Conn, p events.JoinRoom) {
	if p.RoomID == "" || p.Username == "" {
		co.Logger.Warnf("conn %s: join-room with empty roomId or username ignored", c.ID)
		return
	}
	c.Username = p.Username
	r := co.Rooms.Join(p.RoomID, c, p.GameType)
	r.Broadcast(events.RoomUpdate{Type: events.TypeRoomUpdate, Players: r.Snapshot()})
	r.Broadcast(events.PlayerJoined{Type: events.TypePlayerJoined, Username: p.Username})
}

func (co *Coordinator) handleLeave(c *room.Conn, roomID string) {
	left, r, _, ok := co.Rooms.Leave(roomID, c.ID)
	if !ok {
		return
	}
	r.Broadcast(events.PlayerLeft{Type: events.TypePlayerLeft, Username: left.Username})
	r.Broadcast(events.RoomUpdate{Type: events.TypeRoomUpdate, Players: r.Snapshot()})
}

func (co *Coordinator) handleGameMove(mv events.GameMove) {
	r, ok := co.Rooms.Get(mv.RoomID)
	if !ok {
		co.Logger.Debugf("game-move for unknown room %q dropped", mv.RoomID)
		return
	}
	co.Relay.SetState(mv.RoomID, mv.Fields)
	// Echo verbatim, routing fields already stripped, sender included.
	r.Broadcast(events.Raw(events.TypeGameState, mv.Fields))
}

func (co *Coordinator) handleBattleshipAttack(c *room.Conn, p events.BattleshipAttack) {
	r, ok := co.Rooms.Get(p.RoomID)
	if !ok {
		return
	}
	res, ok := co.Relay.Attack(p.RoomID, p.Row, p.Col, p.AttackerIndex)
	if !ok {
		co.Logger.Debugf("battleship attack in room %s before placement, dropped", p.RoomID)
		return
	}

	// Attacker learns the outcome, the defender learns where they were hit.
	// Neither side ever receives the opposing layout.
	c.Send(events.BattleshipResult{
		Type: events.TypeBattleshipResult,
		Row:  res.Row, Col: res.Col, Hit: res.Hit,
	})
	if defender, ok := r.MemberAt(res.DefenderIndex); ok {
		defender.Send(events.BattleshipResult{
			Type: events.TypeBattleshipAttack,
			Row:  res.Row, Col: res.Col, Hit: res.Hit,
		})
	}

	r.Broadcast(events.Raw(events.TypeGameState, map[string]interface{}{
		"currentPlayer": res.DefenderIndex,
	}))
}

func (co *Coordinator) handlePictionaryGuess(c *room.Conn, p events.PictionaryGuess) {
	r, ok := co.Rooms.Get(p.RoomID)
	if !ok {
		return
	}
	if _, ok := r.Member(c.ID); !ok {
		co.Logger.Debugf("pictionary %s: guess from non-member %s ignored", p.RoomID, c.ID)
		return
	}
	drawer := ""
	if g, ok := co.Pictionary.Game(p.RoomID); ok {
		if m, ok := r.MemberAt(g.DrawerIndex); ok {
			drawer = m.Username
		}
	}
	co.Pictionary.Guess(p.RoomID, c.Username, drawer, p.Guess)
}

// isMember checks the connection currently belongs to the room. Actions from
// connections that never joined are dropped like any other invalid action.
func (co *Coordinator) isMember(roomID string, c *room.Conn) bool {
	r, ok := co.Rooms.Get(roomID)
	if !ok {
		return false
	}
	_, ok = r.Member(c.ID)
	if !ok {
		co.Logger.Debugf("room %s: action from non-member conn %s ignored", roomID, c.ID)
	}
	return ok
}

func (co *Coordinator) decode(c *room.Conn, raw []byte, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		co.Logger.Warnf("conn %s: malformed payload: %v", c.ID, err)
		return false
	}
	return true
}
