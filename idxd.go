// Copyright (c) 2022 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/project-illium/idxd/repo"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Configure the command line parser.
	var emptyCfg repo.Config
	parser := flags.NewNamedParser("idxd", flags.Default)
	parser.AddGroup("Indexer Options", "Configuration options for the indexer", &emptyCfg)
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Fatal("Invalid arguments", log.Args("error", err))
	}

	// Load the config file. There are three steps to this:
	// 1. Start with a config populated with default values.
	// 2. Override the default values with any provided config file options.
	// 3. Override the first two with any provided command line options.
	cfg, err := repo.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config", log.Args("error", err))
	}

	// Build and start the server.
	server, err := BuildServer(cfg)
	if err != nil {
		log.Fatal("Error starting indexer", log.Args("error", err))
	}

	// Listen for an exit signal and close. In one-shot mode the
	// indexer also exits once the blocks directory is ingested.
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-c:
		log.Info("idxd gracefully shutting down")
	case <-server.Done():
		if server.Err() != nil {
			exitCode = 1
		} else if cfg.BlocksDir == "" {
			// Nothing to ingest, serve queries and metrics until signalled.
			<-c
			log.Info("idxd gracefully shutting down")
		}
	}
	if err := server.Close(); err != nil {
		log.Error("Shutdown error", log.Args("error", err))
		exitCode = 1
	}
	os.Exit(exitCode)
}
