package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/swrcache"
)

var _ swrcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New wraps l, tagging every line with component=swrcache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "swrcache")}
}

func (l LogrusLogger) Debug(msg string, f swrcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f swrcache.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f swrcache.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f swrcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
