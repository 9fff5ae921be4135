package main

import (
	"go.uber.org/zap"

	"github.com/mhracek/sweeper/db"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	store, err := db.InitStore()
	if err != nil {
		log.Fatal("failed to create store", zap.Error(err))
	}
	defer store.DB.Close()
	if err := store.InitializeTables(); err != nil {
		log.Fatal("failed to create tables", zap.Error(err))
	}
	log.Info("tables created")
}
