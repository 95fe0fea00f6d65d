package stderr

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestForward(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	forward(strings.NewReader("ALSA lib pcm.c:8545: underrun occurred\n\n   \nsecond line\n"), logger)

	out := buf.String()
	if got := strings.Count(out, "native output"); got != 2 {
		t.Errorf("logged %d lines, want 2:\n%s", got, out)
	}
	if !strings.Contains(out, "underrun occurred") || !strings.Contains(out, "second line") {
		t.Errorf("missing captured text:\n%s", out)
	}
}

func TestCaptureStop_NilSafe(t *testing.T) {
	var c *Capture
	c.Stop()
}
