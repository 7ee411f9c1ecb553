// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// healthResponse is the body of GET /api/health.
type healthResponse struct {
	Status    string `json:"status"`
	Rooms     int    `json:"rooms"`
	Timestamp string `json:"timestamp"`
}

// roomInfoResponse is the body of GET /api/room/{roomId}.
type roomInfoResponse struct {
	Exists     bool   `json:"exists"`
	GameType   string `json:"gameType,omitempty"`
	Players    int    `json:"players,omitempty"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
}

// HealthHandler reports liveness and the live room count.
func HealthHandler(co *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, healthResponse{
			Status:    "ok",
			Rooms:     co.Rooms.Count(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// RoomInfoHandler reports whether a room exists, its game kind and member
// count. Clients use it to validate a room code before connecting; the
// two-player board games additionally gate on the capacity field.
func RoomInfoHandler(co *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := strings.TrimPrefix(r.URL.Path, "/api/room/")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		rm, ok := co.Rooms.Get(roomID)
		if !ok {
			writeJSON(w, roomInfoResponse{Exists: false})
			return
		}
		writeJSON(w, roomInfoResponse{
			Exists:     true,
			GameType:   rm.GameType,
			Players:    rm.Size(),
			MaxPlayers: 2,
		})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
