package logger

import (
	"github.com/rs/zerolog"
)

// LogTagProgress logs a periodic progress line while a tag is being crawled
func LogTagProgress(log Logger, tag string, collected int, lastSeen string) {
	log.InfoWithFields("Crawl progress", map[string]interface{}{
		"tag":       tag,
		"collected": collected,
		"last_seen": lastSeen,
	})
}

// LogComponentStart logs when a stage of the run starts
func LogComponentStart(log Logger, component string, fields map[string]interface{}) {
	l := log.WithField("component", component)
	if len(fields) > 0 {
		l = l.WithFields(fields)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a stage of the run finishes
func LogComponentStop(log Logger, component string, fields map[string]interface{}) {
	l := log.WithField("component", component)
	if len(fields) > 0 {
		l = l.WithFields(fields)
	}
	l.Info("Component finished")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	zl := zerolog.Nop()
	return &zl
}
