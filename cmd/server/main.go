// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/gameroomio/gameroom/internal/handlers"
	"github.com/gameroomio/gameroom/internal/middleware"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(lvl)
	}

	retention := time.Duration(getEnvInt("ROOM_RETENTION_HOURS", 24)) * time.Hour
	co := handlers.NewCoordinator(logger, retention)
	co.Palermo.PhaseDuration = time.Duration(getEnvInt("PALERMO_PHASE_SECONDS", 30)) * time.Second

	// Background sweep reclaims empty and expired rooms leaked by abrupt
	// disconnects.
	sweepEvery := time.Duration(getEnvInt("ROOM_SWEEP_INTERVAL_MINUTES", 60)) * time.Minute
	stop := make(chan struct{})
	defer close(stop)
	go co.Rooms.RunSweeper(sweepEvery, stop)

	mux := http.NewServeMux()

	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, co),
	)))

	mux.Handle("/api/health", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.HealthHandler(co),
	)))
	mux.Handle("/api/room/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RoomInfoHandler(co),
	)))

	addr := ":" + getEnv("PORT", "3001")
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
