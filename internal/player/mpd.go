package player

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fhs/gompd/v2/mpd"

	"github.com/llehouerou/hifz/internal/clip"
)

// MPDOptions configures an MPD engine.
type MPDOptions struct {
	Addr     string // host:port
	Password string
	Logger   *log.Logger
}

// MPD plays clips by URL on a Music Player Daemon. The queue is replaced
// with the single clip on every Play; the end of the clip is observed
// through an idle watcher on the player subsystem.
type MPD struct {
	addr     string
	password string
	logger   *log.Logger

	mu      sync.Mutex
	client  *mpd.Client
	watcher *mpd.Watcher
	state   State
	pending func(error)
	current clip.Ref
}

// NewMPD creates an MPD engine. Connections are opened on first use.
func NewMPD(opts MPDOptions) *MPD {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &MPD{
		addr:     opts.Addr,
		password: opts.Password,
		logger:   logger.With("engine", "mpd", "addr", opts.Addr),
		state:    Stopped,
	}
}

// ensureConnectedLocked dials or re-dials the command connection.
func (m *MPD) ensureConnectedLocked() error {
	if m.client != nil {
		if err := m.client.Ping(); err == nil {
			return nil
		}
		m.logger.Warn("connection lost, reconnecting")
		m.client.Close()
		m.client = nil
	}

	client, err := mpd.Dial("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("connect to mpd: %w", err)
	}
	if m.password != "" {
		if err := client.Command("password %s", m.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("mpd authentication: %w", err)
		}
	}
	m.client = client
	return nil
}

func (m *MPD) ensureWatcherLocked() error {
	if m.watcher != nil {
		return nil
	}
	w, err := mpd.NewWatcher("tcp", m.addr, m.password, "player")
	if err != nil {
		return fmt.Errorf("watch mpd: %w", err)
	}
	m.watcher = w
	go m.watch(w)
	return nil
}

func (m *MPD) watch(w *mpd.Watcher) {
	for {
		select {
		case _, ok := <-w.Event:
			if !ok {
				return
			}
			m.playerChanged()
		case err, ok := <-w.Error:
			if !ok {
				return
			}
			m.logger.Error("watcher error", "err", err)
			time.Sleep(time.Second)
		}
	}
}

func (m *MPD) playerChanged() {
	m.mu.Lock()
	if m.state != Playing || m.client == nil {
		m.mu.Unlock()
		return
	}
	attrs, err := m.client.Status()
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("status failed", "err", err)
		return
	}
	ended, clipErr := clipEnded(attrs)
	if !ended {
		m.mu.Unlock()
		return
	}
	done := m.pending
	m.pending = nil
	m.state = Stopped
	m.mu.Unlock()

	if done != nil {
		done(clipErr)
	}
}

// clipEnded interprets a status reply for a one-entry queue.
func clipEnded(attrs mpd.Attrs) (bool, error) {
	if msg := attrs["error"]; msg != "" {
		return true, errors.New(msg)
	}
	return attrs["state"] == "stop", nil
}

func (m *MPD) Play(c *clip.Clip, done func(error)) error {
	if c.URL == "" {
		return fmt.Errorf("clip %s: no url", c.Ref)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = nil
	m.state = Stopped

	if err := m.ensureConnectedLocked(); err != nil {
		return err
	}
	if err := m.ensureWatcherLocked(); err != nil {
		return err
	}

	if err := m.client.Clear(); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	if err := m.client.Add(c.URL); err != nil {
		return fmt.Errorf("add %s: %w", c.URL, err)
	}
	if err := m.client.Play(0); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	if attrs, err := m.client.Status(); err == nil {
		if msg := attrs["error"]; msg != "" {
			return errors.New(msg)
		}
	}

	m.pending = done
	m.current = c.Ref
	m.state = Playing
	m.logger.Debug("clip started", "ref", c.Ref, "url", c.URL)
	return nil
}

// Stop stops MPD playback. The pending done callback is dropped.
func (m *MPD) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = nil
	if m.state == Stopped {
		return
	}
	m.state = Stopped
	if m.client != nil {
		if err := m.client.Stop(); err != nil {
			m.logger.Warn("stop failed", "err", err)
		}
	}
}

func (m *MPD) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close stops playback and closes both connections.
func (m *MPD) Close() error {
	m.Stop()

	m.mu.Lock()
	w, client := m.watcher, m.client
	m.watcher, m.client = nil, nil
	m.mu.Unlock()

	// The watcher goroutine may be waiting on m.mu; close it unlocked.
	var errs []error
	if w != nil {
		errs = append(errs, w.Close())
	}
	if client != nil {
		errs = append(errs, client.Close())
	}
	return errors.Join(errs...)
}
