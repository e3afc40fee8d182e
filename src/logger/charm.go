package logger

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// CharmLogger is a structured Logger implementation backed by
// charmbracelet/log. Used for long-running agents where leveled,
// timestamped output matters more than plain text.
type CharmLogger struct {
	l *charmlog.Logger
}

// NewCharmLogger creates a structured logger writing to stderr.
func NewCharmLogger(debug bool) *CharmLogger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	})
	if debug {
		l.SetLevel(charmlog.DebugLevel)
	}
	return &CharmLogger{l: l}
}

func (c *CharmLogger) Info(msg string, args ...interface{}) {
	c.l.Infof(msg, args...)
}

func (c *CharmLogger) Warn(msg string, args ...interface{}) {
	c.l.Warnf(msg, args...)
}

func (c *CharmLogger) Error(msg string, args ...interface{}) {
	c.l.Errorf(msg, args...)
}

func (c *CharmLogger) Debug(msg string, args ...interface{}) {
	c.l.Debugf(msg, args...)
}
