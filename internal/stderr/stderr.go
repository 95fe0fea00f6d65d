//go:build !windows

// Package stderr redirects file descriptor 2 into the logger while the TUI
// owns the terminal. The speaker backend and ALSA write there directly,
// bypassing os.Stderr.
package stderr

import (
	"os"
	"syscall"

	"github.com/charmbracelet/log"
)

// Capture is an active redirection of fd 2.
type Capture struct {
	saved int
	r, w  *os.File
	done  chan struct{}
}

// Start points fd 2 at a pipe whose lines are logged at warn level. It
// must run before the audio backend is initialized. On error fd 2 is left
// untouched.
func Start(logger *log.Logger) (*Capture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	fd := int(os.Stderr.Fd())
	saved, err := syscall.Dup(fd)
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	if err := syscall.Dup2(int(w.Fd()), fd); err != nil {
		syscall.Close(saved)
		r.Close()
		w.Close()
		return nil, err
	}

	c := &Capture{saved: saved, r: r, w: w, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		forward(r, logger.With("component", "stderr"))
	}()
	return c, nil
}

// Stop restores fd 2 and waits for buffered lines to be logged. It is
// safe on a nil Capture.
func (c *Capture) Stop() {
	if c == nil {
		return
	}
	_ = syscall.Dup2(c.saved, int(os.Stderr.Fd()))
	_ = syscall.Close(c.saved)

	// Only our write end keeps the pipe open now.
	c.w.Close()
	<-c.done
	c.r.Close()
}
