// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gameroomio/gameroom/internal/room"
)

// WSHandler upgrades the HTTP connection and runs the read loop for one
// client. Every decoded frame is dispatched synchronously through the
// coordinator, which keeps per-room broadcast order aligned with the
// server's processing order of the triggering events.
func WSHandler(logger *logrus.Logger, co *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"gameroom"},
			OriginPatterns: []string{"*"}, // Adjust in production.
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "gameroom" {
			c.Close(websocket.StatusPolicyViolation, "client must speak the gameroom subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := room.NewConn(cancel)
		logger.Infof("conn %s connected from %s", conn.ID, r.RemoteAddr)

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, conn, co, logger)

		// readPump exited: the socket is gone. The implicit leave runs
		// regardless of whether the client said leave-room first.
		co.HandleDisconnect(conn)
		logger.Infof("conn %s disconnected", conn.ID)
	}
}

// readPump reads frames until the connection closes or the context is
// cancelled, handing each text frame to the coordinator.
func readPump(ctx context.Context, c *websocket.Conn, conn *room.Conn, co *Coordinator, logger *logrus.Logger) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("conn %s: websocket closed normally", conn.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				// Shutdown path, already logged by the caller.
			} else {
				logger.Warnf("conn %s: read error: %v (status %d)", conn.ID, err, status)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("conn %s: non-text message type %d ignored", conn.ID, typ)
			continue
		}
		co.Dispatch(conn, data)
	}
}

// writePump drains the connection's OutChan onto the socket and keeps the
// connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("conn %s: failed to marshal outbound frame: %v", conn.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: write failed: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: ping failed, assuming disconnect: %v", conn.ID, err)
				return
			}
		}
	}
}
