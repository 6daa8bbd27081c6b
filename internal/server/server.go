package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/zwconsole/internal/config"
	"github.com/berfenger/zwconsole/internal/core/state"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

// Server exposes read-only network snapshots and the actor health check.
type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	state       *state.NetworkState
}

// NewServer builds the HTTP server. Callers skip it when cfg.Port is 0.
func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, st *state.NetworkState) *http.Server {
	s := &Server{
		port:        cfg.Port,
		httpLog:     cfg.HttpLog,
		rootContext: rootContext,
		masterActor: masterActor,
		state:       st,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}
