// Copyright (c) 2024 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package repo

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"github.com/gcash/bchutil"
	"github.com/jessevdk/go-flags"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

//go:embed sample-idxd.conf
var configFS embed.FS

const (
	DefaultLogFilename    = "idxd.log"
	defaultConfigFilename = "idxd.conf"

	DefaultNetwork        = "mainnet"
	DefaultPollInterval   = time.Second * 10
	DefaultMaxOrphans     = 1000
	DefaultBlockCacheSize = 5000
)

var (
	DefaultHomeDir    = bchutil.AppDataDir("idxd", false)
	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)

	knownNetworks = []string{"mainnet", "devnet", "regtest"}
)

// Config defines the configuration options for the indexer.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	ShowVersion        bool          `short:"v" long:"version" description:"Display version information and exit"`
	ConfigFile         string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir            string        `short:"d" long:"datadir" description:"Directory to store data"`
	LogDir             string        `long:"logdir" description:"Directory to log output"`
	LogLevel           string        `short:"l" long:"loglevel" description:"Set the logging level [trace, debug, info, warning, error, fatal]." default:"info"`
	Network            string        `short:"n" long:"network" description:"The network the indexed blocks belong to [mainnet, devnet, regtest]"`
	CanonicalThreshold uint32        `short:"k" long:"canonicalthreshold" description:"Number of confirmations before a block is canonical. Overrides the network default."`
	InMemory           bool          `long:"inmemory" description:"Keep the index in memory only. Nothing is persisted to disk."`
	BlocksDir          string        `short:"b" long:"blocksdir" description:"Directory of block summary files to ingest"`
	Watch              bool          `long:"watch" description:"Keep polling the blocks directory for new files after the initial pass"`
	PollInterval       time.Duration `long:"pollinterval" description:"How often to poll the blocks directory in watch mode"`
	MaxOrphans         int           `long:"maxorphans" description:"Maximum number of blocks held while waiting for their parent"`
	MetricsListen      string        `long:"metricslisten" description:"Interface/port to serve prometheus metrics on. Disabled if empty."`

	Database DatabaseOptions `group:"Database Options"`
}

type DatabaseOptions struct {
	SyncWrites     bool `long:"syncwrites" description:"Sync every write to disk before the commit returns"`
	BlockCacheSize int  `long:"blockcachesize" description:"Number of blocks to cache in memory for lookups by state hash"`
}

// LoadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in proper functionality without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	// Default config.
	cfg := Config{
		DataDir:    DefaultHomeDir,
		ConfigFile: defaultConfigFile,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, err
		}
	}
	if preCfg.ConfigFile == defaultConfigFile && preCfg.DataDir != DefaultHomeDir {
		preCfg.ConfigFile = filepath.Join(preCfg.DataDir, defaultConfigFilename)
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", VersionString())
		os.Exit(0)
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)

	if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
		err := createDefaultConfigFile(preCfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a "+
				"default config file: %v\n", err)
		}
	}

	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config "+
				"file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, err
		}
		configFileError = err
	}

	// Reparse command-line arguments to override config file settings
	_, err = parser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, err
		} else {
			fmt.Fprintf(os.Stderr, "Error parsing command line arguments: %v\n", err)
			return nil, err
		}
	}

	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}
	cfg.Network = strings.ToLower(cfg.Network)
	if !isKnownNetwork(cfg.Network) {
		return nil, fmt.Errorf("unknown network %q, must be one of %s", cfg.Network, strings.Join(knownNetworks, ", "))
	}
	if cfg.Watch && cfg.BlocksDir == "" {
		return nil, errors.New("watch mode requires a blocks directory")
	}

	if cfg.LogDir == "" {
		cfg.LogDir = CleanAndExpandPath(path.Join(cfg.DataDir, "logs", cfg.Network))
	}
	cfg.DataDir = CleanAndExpandPath(path.Join(cfg.DataDir, cfg.Network))
	if cfg.BlocksDir != "" {
		cfg.BlocksDir = CleanAndExpandPath(cfg.BlocksDir)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxOrphans <= 0 {
		cfg.MaxOrphans = DefaultMaxOrphans
	}
	if cfg.Database.BlockCacheSize <= 0 {
		cfg.Database.BlockCacheSize = DefaultBlockCacheSize
	}

	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid
	// options. Note this should go directly before the return.
	if configFileError != nil {
		log.Warn("Bad config file", log.Args("error", configFileError))
	}

	return &cfg, nil
}

func isKnownNetwork(network string) bool {
	for _, n := range knownNetworks {
		if n == network {
			return true
		}
	}
	return false
}

// createDefaultConfig copies the sample-idxd.conf content to the given destination path.
func createDefaultConfigFile(destinationPath string) error {
	// Create the destination directory if it does not exists
	err := os.MkdirAll(filepath.Dir(destinationPath), 0700)
	if err != nil {
		return err
	}

	sampleBytes, err := fs.ReadFile(configFS, "sample-idxd.conf")
	if err != nil {
		return err
	}
	src := bytes.NewReader(sampleBytes)

	dest, err := os.OpenFile(destinationPath,
		os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	reader := bufio.NewReader(src)
	for err != io.EOF {
		var line string
		line, err = reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}

		if _, err := dest.WriteString(line); err != nil {
			return err
		}
	}

	return nil
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func CleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
