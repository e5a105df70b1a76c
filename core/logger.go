package core

// Logger is the logging service used across the app.
// args are extra values attached to the log entry (errors, maps, identities).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// DiscardLogger drops everything. Used where a caller supplied no logger.
type DiscardLogger struct{}

var _ Logger = DiscardLogger{}

func (DiscardLogger) Debug(string, ...interface{}) {}
func (DiscardLogger) Info(string, ...interface{})  {}
func (DiscardLogger) Warn(string, ...interface{})  {}
func (DiscardLogger) Error(string, ...interface{}) {}
func (DiscardLogger) Fatal(string, ...interface{}) {}

// LoggerOrDiscard returns l, or a DiscardLogger when l is nil.
func LoggerOrDiscard(l Logger) Logger {
	if l == nil {
		return DiscardLogger{}
	}
	return l
}
