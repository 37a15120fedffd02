// Package utils provides utility functions for the application.
package utils

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger points the standard logger at a rotating file when a path is
// configured, mirroring stdout so container logs stay usable. An empty
// path leaves logging on stderr untouched.
func SetupLogger(filePath string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) {
	if filePath == "" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)
}
