// Copyright (c) 2022 Project Illium
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"github.com/project-illium/idxd/blockchain"
	"github.com/project-illium/idxd/repo"
	"github.com/project-illium/idxd/store"
	"github.com/pterm/pterm"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"os"
	"path"
	"strings"
)

var log = pterm.DefaultLogger.WithLevel(pterm.LogLevelInfo)

var LogLevelMap = map[string]pterm.LogLevel{
	"trace":   pterm.LogLevelTrace,
	"debug":   pterm.LogLevelDebug,
	"info":    pterm.LogLevelInfo,
	"warning": pterm.LogLevelWarn,
	"error":   pterm.LogLevelError,
	"fatal":   pterm.LogLevelFatal,
}

// setupLogging builds the daemon logger and hands it to every package.
// If logDir is set the output is also written to a rotated log file,
// which is returned so it can be closed on shutdown.
func setupLogging(logDir, level string) (*lumberjack.Logger, error) {
	logLevel, ok := LogLevelMap[strings.ToLower(level)]
	if !ok {
		return nil, errors.New("invalid log level")
	}
	logger := pterm.DefaultLogger.WithLevel(logLevel)

	var logRotator *lumberjack.Logger
	if logDir != "" {
		logRotator = &lumberjack.Logger{
			Filename:   path.Join(logDir, repo.DefaultLogFilename),
			MaxSize:    10, // Megabytes
			MaxBackups: 3,
			MaxAge:     30, // Days
		}
		logger = logger.WithWriter(io.MultiWriter(os.Stdout, logRotator))
	}

	log = logger
	repo.UseLogger(logger)
	store.UseLogger(logger)
	blockchain.UseLogger(logger)
	return logRotator, nil
}
