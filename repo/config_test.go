// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package repo

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCreateDefaultConfigFile(t *testing.T) {
	testpath := filepath.Join(t.TempDir(), "nested", "test.conf")

	err := createDefaultConfigFile(testpath)
	if err != nil {
		t.Fatalf("Failed to create a default config file: %v", err)
	}

	b, err := os.ReadFile(testpath)
	if err != nil {
		t.Fatalf("Failed to read generated default config file: %v", err)
	}
	assert.Contains(t, string(b), "[Application Options]")
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadConfig([]string{"-C", filepath.Join(dir, "idxd.conf"), "-d", dir})
	require.NoError(t, err)

	assert.Equal(t, DefaultNetwork, cfg.Network)
	assert.Equal(t, filepath.Join(dir, "mainnet"), cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "logs", "mainnet"), cfg.LogDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint32(0), cfg.CanonicalThreshold)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultMaxOrphans, cfg.MaxOrphans)
	assert.Equal(t, DefaultBlockCacheSize, cfg.Database.BlockCacheSize)

	// The sample config is written on first run.
	_, err = os.Stat(filepath.Join(dir, "idxd.conf"))
	assert.NoError(t, err)
}

func TestLoadConfigFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "custom.conf")
	contents := "[Application Options]\nnetwork=devnet\ncanonicalthreshold=4\npollinterval=3s\n\n[Database Options]\nblockcachesize=12\n"
	require.NoError(t, os.WriteFile(configFile, []byte(contents), 0600))

	cfg, err := loadConfig([]string{"-C", configFile, "-d", dir})
	require.NoError(t, err)
	assert.Equal(t, "devnet", cfg.Network)
	assert.Equal(t, uint32(4), cfg.CanonicalThreshold)
	assert.Equal(t, time.Second*3, cfg.PollInterval)
	assert.Equal(t, 12, cfg.Database.BlockCacheSize)

	// Command line options take precedence over the file.
	cfg, err = loadConfig([]string{"-C", configFile, "-d", dir, "-n", "regtest", "-k", "2"})
	require.NoError(t, err)
	assert.Equal(t, "regtest", cfg.Network)
	assert.Equal(t, uint32(2), cfg.CanonicalThreshold)
	assert.Equal(t, filepath.Join(dir, "regtest"), cfg.DataDir)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "idxd.conf")

	_, err := loadConfig([]string{"-C", configFile, "-d", dir, "-n", "moonnet"})
	assert.Error(t, err)

	_, err = loadConfig([]string{"-C", configFile, "-d", dir, "--watch"})
	assert.Error(t, err)
}
