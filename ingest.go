// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"github.com/project-illium/idxd/blockchain"
	"github.com/project-illium/idxd/params"
	"github.com/project-illium/idxd/repo"
	"github.com/project-illium/idxd/store"
	"github.com/project-illium/idxd/types"
	"github.com/project-illium/idxd/types/blocks"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	maxOrphanDuration = time.Hour
	maxStoreRetries   = 8
	blockFileExt      = ".json"
)

type orphanBlock struct {
	blk       *blocks.Block
	firstSeen time.Time
}

// blockFile is a block summary file named
// <network>-<height>-<statehash>.json.
type blockFile struct {
	path      string
	network   string
	height    uint32
	stateHash types.ID
}

// parseBlockFileName returns the parts of a block summary file name
// or false if the name does not have the expected form.
func parseBlockFileName(name string) (blockFile, bool) {
	if filepath.Ext(name) != blockFileExt {
		return blockFile{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, blockFileExt), "-")
	if len(parts) != 3 || parts[0] == "" {
		return blockFile{}, false
	}
	height, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return blockFile{}, false
	}
	stateHash, err := types.NewIDFromString(parts[2])
	if err != nil {
		return blockFile{}, false
	}
	return blockFile{
		path:      name,
		network:   parts[0],
		height:    uint32(height),
		stateHash: stateHash,
	}, true
}

// listBlockFiles returns the block files in dir for the network in
// ascending height order. Ties are broken by file name.
func listBlockFiles(dir, network string) ([]blockFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []blockFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		bf, ok := parseBlockFileName(entry.Name())
		if !ok {
			log.Trace("Skipping file with invalid name", log.Args("file", entry.Name()))
			continue
		}
		if bf.network != network {
			continue
		}
		bf.path = filepath.Join(dir, entry.Name())
		files = append(files, bf)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].height != files[j].height {
			return files[i].height < files[j].height
		}
		return files[i].path < files[j].path
	})
	return files, nil
}

// readBlockFile decodes a block summary file. The raw file contents
// are kept as the block data.
func readBlockFile(bf blockFile) (*blocks.Block, error) {
	data, err := os.ReadFile(bf.path)
	if err != nil {
		return nil, err
	}
	summary := new(blocks.BlockSummary)
	if err := json.Unmarshal(data, summary); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(bf.path), err)
	}
	if summary.StateHash != bf.stateHash {
		return nil, fmt.Errorf("file %s contains block %s", filepath.Base(bf.path), summary.StateHash)
	}
	if summary.Height != bf.height {
		return nil, fmt.Errorf("file %s contains a block at height %d", filepath.Base(bf.path), summary.Height)
	}
	return &blocks.Block{
		Summary: summary,
		Data:    data,
	}, nil
}

// ingester feeds block summary files from a directory to the chain.
// Blocks whose parent has not been seen yet are held as orphans and
// retried when the parent connects. Store failures are retried with
// exponential backoff.
//
// ingester is not safe for concurrent use.
type ingester struct {
	chain      *blockchain.Blockchain
	params     *params.NetworkParams
	dir        string
	maxOrphans int
	newBackOff func() backoff.BackOff

	orphans map[types.ID]*orphanBlock
	seen    map[string]struct{}

	connected  int
	lastLogged uint32
	startTime  time.Time
}

// newIngester returns an ingester for dir. A maxOrphans of zero or
// less uses repo.DefaultMaxOrphans.
func newIngester(chain *blockchain.Blockchain, netParams *params.NetworkParams, dir string, maxOrphans int) *ingester {
	if maxOrphans <= 0 {
		maxOrphans = repo.DefaultMaxOrphans
	}
	return &ingester{
		chain:      chain,
		params:     netParams,
		dir:        dir,
		maxOrphans: maxOrphans,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxStoreRetries)
		},
		orphans:   make(map[types.ID]*orphanBlock),
		seen:      make(map[string]struct{}),
		startTime: time.Now(),
	}
}

// run ingests the directory once and, in watch mode, keeps polling
// it until the context is done. Only errors that cannot be resolved
// by waiting, such as a finality violation, are returned.
func (in *ingester) run(ctx context.Context, watch bool, interval time.Duration) error {
	if err := in.ingestDir(ctx); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := in.ingestDir(ctx); err != nil {
				return err
			}
		}
	}
}

// ingestDir processes every file in the directory that has not been
// processed before.
func (in *ingester) ingestDir(ctx context.Context) error {
	files, err := listBlockFiles(in.dir, in.params.Name)
	if err != nil {
		return err
	}
	for _, bf := range files {
		if ctx.Err() != nil {
			return nil
		}
		if _, ok := in.seen[bf.path]; ok {
			continue
		}
		blk, err := readBlockFile(bf)
		if err != nil {
			log.Warn("Skipping unreadable block file", log.Args("file", bf.path, "error", err))
			in.seen[bf.path] = struct{}{}
			continue
		}
		if err := in.processBlock(ctx, blk); err != nil {
			return err
		}
		in.seen[bf.path] = struct{}{}
	}
	return nil
}

// processBlock connects the block and then any orphans that were
// waiting on it.
func (in *ingester) processBlock(ctx context.Context, blk *blocks.Block) error {
	connected, err := in.connect(ctx, blk)
	if err != nil || !connected {
		return err
	}

	queue := []types.ID{blk.ID()}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, orphan := range in.orphansOf(parent) {
			delete(in.orphans, orphan.ID())
			connected, err := in.connect(ctx, orphan)
			if err != nil {
				return err
			}
			if connected {
				queue = append(queue, orphan.ID())
			}
		}
	}
	return nil
}

// connect hands the block to the chain, retrying store failures. It
// returns true if the block is now part of the chain.
func (in *ingester) connect(ctx context.Context, blk *blocks.Block) (bool, error) {
	var outcome blockchain.InsertOutcome
	op := func() error {
		var err error
		outcome, err = in.chain.ProcessBlock(ctx, blk)
		if err != nil && !store.IsIOError(err) {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Warn("Store error, retrying", log.Args("block", blk.ID().String(), "error", err))
		}
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(in.newBackOff(), ctx))

	switch {
	case err == nil:
		if outcome == blockchain.Inserted {
			in.connected++
			in.logProgress(blk)
		}
		return true, nil
	case blockchain.ErrorIs(err, blockchain.ErrMissingParent):
		in.addOrphan(blk)
		return false, nil
	case blockchain.IsFinalityViolation(err):
		return false, err
	}
	var ruleErr blockchain.RuleError
	if errors.As(err, &ruleErr) {
		log.Warn("Rejected block", log.Args("block", blk.ID().String(), "height", blk.Summary.Height, "error", err))
		return false, nil
	}
	return false, err
}

func (in *ingester) orphansOf(parent types.ID) []*blocks.Block {
	var ret []*blocks.Block
	for _, orphan := range in.orphans {
		if orphan.blk.Summary.ParentHash == parent {
			ret = append(ret, orphan.blk)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ID().Compare(ret[j].ID()) < 0
	})
	return ret
}

func (in *ingester) addOrphan(blk *blocks.Block) {
	if _, ok := in.orphans[blk.ID()]; ok {
		return
	}
	in.limitOrphans()
	in.orphans[blk.ID()] = &orphanBlock{
		blk:       blk,
		firstSeen: time.Now(),
	}
	log.Debug("Holding orphan block", log.Args("block", blk.ID().String(), "parent", blk.Summary.ParentHash.String()))
}

// limitOrphans drops expired orphans and, if the pool is still full,
// the oldest one.
func (in *ingester) limitOrphans() {
	var (
		oldest     *orphanBlock
		oldestTime time.Time
	)
	for id, orphan := range in.orphans {
		if time.Since(orphan.firstSeen) > maxOrphanDuration {
			delete(in.orphans, id)
			continue
		}
		if oldest == nil || orphan.firstSeen.Before(oldestTime) {
			oldest, oldestTime = orphan, orphan.firstSeen
		}
	}
	if len(in.orphans) >= in.maxOrphans && oldest != nil {
		delete(in.orphans, oldest.blk.ID())
	}
}

func (in *ingester) logProgress(blk *blocks.Block) {
	tip, ok := in.chain.BestTip(blk.Summary.GenesisStateHash)
	if !ok || tip.Height < in.lastLogged+in.params.CanonicalUpdateThreshold {
		return
	}
	in.lastLogged = tip.Height
	log.Info("Ingest progress", log.Args(
		"blocks", in.connected,
		"tip", tip.StateHash.String(),
		"height", tip.Height,
		"orphans", len(in.orphans),
		"elapsed", PrettyPrintDuration(time.Since(in.startTime)),
	))
}

// PrettyPrintDuration formats a duration as days, hours, minutes and
// seconds, omitting zero units. Sub-second precision is dropped.
func PrettyPrintDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0s"
	}
	units := []struct {
		suffix string
		size   int64
	}{
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	}
	var parts []string
	for _, u := range units {
		if n := seconds / u.size; n > 0 {
			parts = append(parts, strconv.FormatInt(n, 10)+u.suffix)
			seconds %= u.size
		}
	}
	return strings.Join(parts, " ")
}
