package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/cellarcache"
)

func TestSlogLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo})
	l := Logger{L: stdslog.New(h)}

	l.Debug("hidden", cellarcache.Fields{"k": 1})
	l.Error("cache write dropped", cellarcache.Fields{"key": "cellar:card:a"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked: %s", out)
	}
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "key=cellar:card:a") {
		t.Fatalf("unexpected output: %s", out)
	}
}
