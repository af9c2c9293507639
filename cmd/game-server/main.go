package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"rummikub-server/internal/config"
	"rummikub-server/internal/logging"
	"rummikub-server/internal/rummikub"
	"rummikub-server/internal/ws"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("load server config failed")
	}

	adapter := rummikub.New(rummikub.Config{
		MaxPlayers:        cfg.MaxPlayers,
		InitialMeldPoints: cfg.InitialMeldPoints,
		MaxGroups:         cfg.MaxGroups,
		MaxTableTiles:     cfg.MaxTableTiles,
	})
	manager := ws.NewManager(ws.ManagerConfig{
		CodeLength: cfg.RoomCodeLength,
		IdleAfter:  time.Duration(cfg.RoomIdleMins) * time.Minute,
	}, adapter.CancelRoom)
	manager.StartJanitor(context.Background(), time.Duration(cfg.CleanupMins)*time.Minute)

	wsServer := ws.NewServer(manager, adapter, ws.ServerConfig{
		MaxMessageBytes: cfg.MaxMessageBytes,
		MaxNameLen:      cfg.MaxNameLen,
		MaxChatLen:      cfg.MaxChatLen,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(manager, wsServer),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}
