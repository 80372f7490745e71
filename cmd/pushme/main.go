package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pushme-server/internal/config"
	"pushme-server/internal/game"
	"pushme-server/internal/grid"
	"pushme-server/internal/logging"
	"pushme-server/internal/results"
	"pushme-server/internal/server"
	"pushme-server/internal/session"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	store, err := results.Open(cfg.DBType, cfg.DBPath, cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("open results store", "db", cfg.DBType, "err", err)
	}
	defer store.Close()
	recorder := results.NewRecorder(store, log)

	tickets, err := server.NewTickets(cfg.TicketSecret, cfg.TicketTTL)
	if err != nil {
		log.Fatalw("ticket signer", "err", err)
	}

	lobbyHazard := []grid.Position{}
	if cfg.LobbyHazard {
		lobbyHazard = game.CenterBlock(cfg.GridSize)
	}
	base := session.Config{
		GridSize:       cfg.GridSize,
		Skins:          cfg.Skins,
		BotSkin:        cfg.BotSkin,
		HazardInterval: cfg.HazardInterval,
		SpreadChance:   cfg.SpreadChance,
		BotInterval:    cfg.BotInterval,
		FlagWindow:     cfg.FlagWindow,
		RespawnDelay:   cfg.BotRespawnDelay,
		Seed:           cfg.Seed,
		Strict:         cfg.Strict,
	}
	lobbyCfg := base
	lobbyCfg.Bots = cfg.LobbyBots
	lobbyCfg.StaticHazard = lobbyHazard
	arenaCfg := base
	arenaCfg.Bots = cfg.ArenaBots
	arenaCfg.ResultsDelay = cfg.ResultsDelay
	if cfg.Seed != 0 {
		arenaCfg.Seed = cfg.Seed + 1
	}

	coord := session.NewCoordinator(lobbyCfg, arenaCfg, session.Deps{
		Logger:   log.Named("session"),
		Tickets:  tickets,
		Recorder: recorder,
	})

	ctx, cancel := context.WithCancel(context.Background())
	coordDone := make(chan struct{})
	go func() {
		coord.Run(ctx)
		close(coordDone)
	}()

	hub := server.NewHub(coord, tickets, store, log)
	go hub.Run(ctx)

	mux := server.SetupRoutes(hub, server.Options{
		ClientDir:         cfg.ClientDir,
		PublicURL:         cfg.PublicURL,
		AdminPasswordHash: cfg.AdminPasswordHash,
	})

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Infow("server starting", "addr", cfg.Addr, "grid", cfg.GridSize, "db", cfg.DBType)
		if cfg.ClientDir != "" {
			log.Infow("serving client files", "dir", cfg.ClientDir)
		}
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	<-stop
	log.Infow("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	srv.Shutdown(shutdownCtx)
	cancel()
	<-coordDone
	recorder.Stop()
}
