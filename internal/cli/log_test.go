package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerRespectsLevel(t *testing.T) {
	tests := []struct {
		level log.Level
		debug bool
		info  bool
	}{
		{log.InfoLevel, false, true},
		{log.DebugLevel, true, true},
		{log.WarnLevel, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var dbg, inf bytes.Buffer
			newLogger(&dbg, tt.level).Debug("d")
			newLogger(&inf, tt.level).Info("i")
			if got := dbg.Len() > 0; got != tt.debug {
				t.Errorf("debug written = %v, want %v", got, tt.debug)
			}
			if got := inf.Len() > 0; got != tt.info {
				t.Errorf("info written = %v, want %v", got, tt.info)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Resolved 3 units")

	out := buf.String()
	if !strings.Contains(out, "Resolved 3 units (") {
		t.Errorf("output %q missing message with duration", out)
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("empty context should yield log.Default()")
	}

	l := newLogger(&bytes.Buffer{}, log.InfoLevel)
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Error("attached logger not returned")
	}
}
