// Package logging wires the process's logrus pipeline: a text formatter on
// stderr, a rotating log file, and any hooks the caller supplies (in
// practice the store's write-back hook). The logger is an explicit instance
// handed to subsystems; nothing here mutates the logrus global.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/oddjob-dev/oddjob/internal/config"
)

// New builds the process logger from the logging configuration and attaches
// the given hooks. An unrecognized level name is an error; callers treat it
// as a configuration failure, not a crash.
func New(cfg config.Logging, hooks ...logrus.Hook) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("unrecognized log level %q: %w", cfg.Level, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var out io.Writer = os.Stderr
	if cfg.Filename != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		})
	}
	logger.SetOutput(out)

	for _, hook := range hooks {
		logger.AddHook(hook)
	}

	return logger, nil
}

// Module returns the entry a subsystem logs through. The store hook reads
// the module field back out of every fired entry.
func Module(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("module", name)
}
