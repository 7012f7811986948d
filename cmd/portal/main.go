package main

import (
	"context"
	"log"
	"os"

	"schoolportal/internal/config"
	"schoolportal/internal/kv"
	"schoolportal/internal/view"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "PORTAL : ", log.LstdFlags)

	cfg := config.Load()
	store, err := kv.Open(context.Background(), kv.Options{
		Backend:       cfg.Store.Backend,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPrefix:   cfg.Store.RedisPrefix,
		DatabaseURL:   cfg.Store.DatabaseURL,
		SQLitePath:    cfg.Store.SQLitePath,
		MongoURI:      cfg.Store.MongoURI,
		MongoDatabase: cfg.Store.MongoDatabase,
	})
	errAndDie(err)

	cli := commandLine{
		store:  store,
		out:    os.Stdout,
		fmt:    view.NewFormatter(cfg.Currency, cfg.TimeZone),
		dedup:  cfg.DedupWindow,
		stdinF: os.Stdin,
	}
	err = cli.run(os.Args)
	_ = store.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("error: %s", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
