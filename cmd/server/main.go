package main

import (
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/mhracek/sweeper/db"
	"github.com/mhracek/sweeper/players"
	"github.com/mhracek/sweeper/server"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var config server.Config
	if err := env.Parse(&config); err != nil {
		log.Fatal("failed to parse config", zap.Error(err))
	}

	var accounts *players.Service
	var recorder server.GameRecorder
	if config.DBPath != "" {
		store, err := db.Open(config.DBPath)
		if err != nil {
			log.Fatal("failed to open database", zap.String("path", config.DBPath), zap.Error(err))
		}
		if err := store.InitializeTables(); err != nil {
			log.Fatal("failed to create tables", zap.Error(err))
		}
		accounts = &players.Service{Store: store}
		recorder = store
	} else if config.RequireAuth {
		log.Fatal("SWEEPER_REQUIRE_AUTH needs SWEEPER_DB to be set")
	}

	srv, err := server.Spawn(config, log, accounts, recorder)
	if err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
	log.Info("server started", zap.Uint16("port", srv.Port))
	select {}
}
