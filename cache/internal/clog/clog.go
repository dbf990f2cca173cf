// Package clog wraps logrus with the small amount of setup the builder
// needs: a single entry per build, tagged with the configured log prefix,
// handed down to every phase.
package clog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a *logrus.Entry tagged with prefix, ready to be embedded in
// a Builder and passed to every phase. development controls formatter
// choice: text for interactive development builds, JSON for batch/CI use.
func New(prefix string, development bool, out io.Writer) *logrus.Entry {
	if out == nil {
		out = os.Stderr
	}
	logger := logrus.New()
	logger.SetOutput(out)
	if development {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.SetLevel(logrus.InfoLevel)
	entry := logger.WithField("component", prefix)
	return entry
}

// Discard returns an entry that drops all output, used by callers that did
// not configure a logger (e.g. library embedders, tests).
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "dyldcache")
}
