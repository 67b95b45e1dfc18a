package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/swrcache"
)

func TestSlogLoggerSortedAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug}))}

	l.Warn("store fault", swrcache.Fields{"op": "set", "key": "swr:r1:menu"})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `msg="store fault"`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Index(out, "key=") > strings.Index(out, "op=") {
		t.Fatalf("attrs not sorted: %s", out)
	}
}

func TestSlogLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}
	l.Debug("dropped entry on read", swrcache.Fields{"reason": "expired"})
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %s", buf.String())
	}
}
