package main

import (
	"log"
	"os"

	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/database"
	"github.com/aimastery/academy/backend/logging"
)

func main() {
	logger := logging.InitLogger(logging.LoggerConfig{Prefix: "ADMIN : "})

	cfg, err := config.LoadConfig()
	errAndDie(logger, err)

	db, err := database.Connect(cfg)
	errAndDie(logger, err)
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	cl := &commandLine{db: db, out: os.Stdout}
	if err := cl.app().Run(os.Args); err != nil {
		logger.Printf("error: %s", err)
		os.Exit(1)
	}
}

func errAndDie(logger *log.Logger, err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
