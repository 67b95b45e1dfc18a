package swrcache

// Fields are the structured attributes attached to a log line.
type Fields map[string]any

// Logger receives the manager's diagnostic lines: store faults and dropped
// writes at Warn, self-heal and shared fetches at Debug. Adapters for zap,
// logrus and slog live under log/. A nil Options.Logger means NopLogger.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
