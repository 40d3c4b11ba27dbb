// Package logger provides a wrapper around logrus for structured logging.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configure a base logger
type Options struct {
	Level string
	// Environment "production" selects the JSON formatter
	Environment string
	// Output defaults to stdout
	Output io.Writer
}

// New creates a base logger. An unknown level falls back to info with a warning.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	log.SetOutput(out)

	if opts.Environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to info", opts.Level)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// NewLogger creates a stdout logger, JSON formatted when ENVIRONMENT=production
func NewLogger(logLevel string) *logrus.Logger {
	return New(Options{Level: logLevel, Environment: os.Getenv("ENVIRONMENT")})
}
