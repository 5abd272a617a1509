// Copyright (c) 2022 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"github.com/project-illium/idxd/blockchain"
	"github.com/project-illium/idxd/params"
	"github.com/project-illium/idxd/repo"
	"github.com/project-illium/idxd/repo/datastore"
	"github.com/project-illium/idxd/store"
	"github.com/project-illium/idxd/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"
	"net/http"
	"time"
)

const metricsShutdownTimeout = time.Second * 5

// Server is the main class that brings all the constituent parts together
// into a running indexer.
type Server struct {
	cancelFunc    context.CancelFunc
	ctx           context.Context
	config        *repo.Config
	params        *params.NetworkParams
	ds            repo.Datastore
	blockchain    *blockchain.Blockchain
	ingester      *ingester
	metricsServer *http.Server
	logRotator    *lumberjack.Logger

	// done is closed when ingestion stops. err holds the reason if
	// it stopped on an error.
	done chan struct{}
	err  error

	ready chan struct{}
}

// BuildServer is the constructor for the server. We pass in the config file
// here and use it to configure all the various parts of the Server.
func BuildServer(config *repo.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := Server{
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	defer close(s.ready)

	// Logging
	logRotator, err := setupLogging(config.LogDir, config.LogLevel)
	if err != nil {
		cancel()
		return nil, err
	}

	// Parameter selection
	netParams, err := params.NetworkParamsFromName(config.Network)
	if err != nil {
		cancel()
		return nil, err
	}

	// Setup up the datastore
	dsOpts := []datastore.Option{datastore.WithSyncWrites(config.Database.SyncWrites)}
	if config.InMemory {
		dsOpts = append(dsOpts, datastore.WithInMemory())
	}
	ds, err := datastore.NewIdxdDatastore(config.DataDir, dsOpts...)
	if err != nil {
		cancel()
		return nil, err
	}

	blockDB, err := store.NewBlockDB(ds, config.Database.BlockCacheSize)
	if err != nil {
		cancel()
		ds.Close()
		return nil, err
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Create the blockchain
	chainOpts := []blockchain.Option{
		blockchain.Params(netParams),
		blockchain.CanonicityStorage(store.NewCanonicityDB(ds)),
		blockchain.BlockStorage(blockDB),
		blockchain.PrometheusMetrics(blockchain.NewMetrics(reg)),
	}
	if config.CanonicalThreshold > 0 {
		chainOpts = append(chainOpts, blockchain.CanonicalThreshold(config.CanonicalThreshold))
	}
	chain, err := blockchain.NewBlockchain(chainOpts...)
	if err != nil {
		cancel()
		ds.Close()
		return nil, err
	}
	chain.Subscribe(s.handleBlockchainNotification)

	s.ctx = ctx
	s.cancelFunc = cancel
	s.config = config
	s.params = netParams
	s.ds = ds
	s.blockchain = chain
	s.logRotator = logRotator

	if config.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		s.metricsServer = &http.Server{
			Addr:              config.MetricsListen,
			Handler:           mux,
			ReadHeaderTimeout: time.Second * 10,
		}
		go func() {
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server stopped", log.Args("error", err))
			}
		}()
		log.Info("Serving metrics", log.Args("addr", config.MetricsListen))
	}

	s.printStartupInfo()

	if config.BlocksDir != "" {
		s.ingester = newIngester(chain, netParams, config.BlocksDir, config.MaxOrphans)
		go s.runIngester()
	} else {
		close(s.done)
	}

	return &s, nil
}

func (s *Server) runIngester() {
	<-s.ready
	defer close(s.done)

	start := time.Now()
	err := s.ingester.run(s.ctx, s.config.Watch, s.config.PollInterval)
	if err != nil && !errors.Is(err, context.Canceled) {
		if blockchain.IsFinalityViolation(err) {
			log.Error("Finality violation, stopping ingestion. The canonical threshold may be too low for this network.",
				log.Args("error", err))
		} else {
			log.Error("Ingestion failed", log.Args("error", err))
		}
		s.err = err
		return
	}
	log.Info("Ingestion finished", log.Args("blocks", s.ingester.connected, "orphans", len(s.ingester.orphans),
		"elapsed", PrettyPrintDuration(time.Since(start))))
}

// Done is closed when ingestion has stopped.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that stopped ingestion, if any. It must only
// be called after Done is closed.
func (s *Server) Err() error {
	return s.err
}

func (s *Server) handleBlockchainNotification(ntf *blockchain.Notification) {
	switch ntf.Type {
	case blockchain.NTBestTipChanged:
		if change, ok := ntf.Data.(*blockchain.BestTipChange); ok && change.Reorg {
			log.Debug("Best tip reorganized", log.Args("genesis", change.GenesisStateHash.String(),
				"old", change.OldTip.String(), "new", change.NewTip.String(), "height", change.Height))
		}
	case blockchain.NTCanonicityUpdate:
		if update, ok := ntf.Data.(types.CanonicityUpdate); ok {
			for _, t := range update {
				log.Trace("Canonicity changed", log.Args("block", t.StateHash.String(), "height", t.Height,
					"status", t.Status.String()))
			}
		}
	}
}

// Close shuts down all the parts of the server and blocks until
// they finish closing.
func (s *Server) Close() error {
	<-s.ready
	s.cancelFunc()
	<-s.done
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	if err := s.ds.Close(); err != nil {
		return err
	}
	if s.logRotator != nil {
		return s.logRotator.Close()
	}
	return nil
}

func (s *Server) printStartupInfo() {
	log.Info("Indexer started", log.Args(
		"network", s.params.Name,
		"canonical threshold", s.blockchain.CanonicalThreshold(),
		"datadir", s.config.DataDir,
		"blocksdir", s.config.BlocksDir,
	))
	for _, genesis := range s.blockchain.Lineages() {
		if tip, ok := s.blockchain.BestTip(genesis); ok {
			log.Info("Loaded lineage", log.Args("genesis", genesis.String(), "tip", tip.StateHash.String(), "height", tip.Height))
		}
	}
}
