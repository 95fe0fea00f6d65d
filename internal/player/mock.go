// internal/player/mock.go
package player

import (
	"sync"
	"time"

	"github.com/llehouerou/hifz/internal/clip"
)

// Mock is a test double for an audio engine. Clips finish when the test
// calls Finish, or by themselves after SetClipDuration.
type Mock struct {
	mu        sync.Mutex
	state     State
	seq       uint64
	done      func(error)
	current   clip.Ref
	duration  time.Duration
	playErr   error
	refErrs   map[clip.Ref]error
	playCalls []clip.Ref
	stops     int
	closed    bool
}

// NewMock creates a new mock engine for testing.
func NewMock() *Mock {
	return &Mock{state: Stopped, refErrs: make(map[clip.Ref]error)}
}

func (m *Mock) Play(c *clip.Clip, done func(error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.playCalls = append(m.playCalls, c.Ref)
	m.seq++
	m.done = nil
	m.state = Stopped

	if err := m.refErrs[c.Ref]; err != nil {
		return err
	}
	if m.playErr != nil {
		return m.playErr
	}

	m.state = Playing
	m.done = done
	m.current = c.Ref

	if m.duration > 0 {
		seq := m.seq
		time.AfterFunc(m.duration, func() { m.finish(seq, nil) })
	}
	return nil
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.seq++
	m.done = nil
	m.state = Stopped
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) Close() error {
	m.Stop()
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *Mock) finish(seq uint64, err error) bool {
	m.mu.Lock()
	if seq != m.seq || m.done == nil {
		m.mu.Unlock()
		return false
	}
	done := m.done
	m.done = nil
	m.state = Stopped
	m.mu.Unlock()

	go done(err)
	return true
}

// Test helpers

// Finish ends the current clip with err, as a real engine would from its
// own goroutine. It returns false if nothing was playing.
func (m *Mock) Finish(err error) bool {
	m.mu.Lock()
	seq := m.seq
	m.mu.Unlock()
	return m.finish(seq, err)
}

// SetClipDuration makes every later clip finish by itself after d.
func (m *Mock) SetClipDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// SetPlayError makes every Play fail with err (nil clears it).
func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// FailRef makes Play fail with err for one clip only.
func (m *Mock) FailRef(ref clip.Ref, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refErrs[ref] = err
}

// PlayCalls returns every clip passed to Play, in order.
func (m *Mock) PlayCalls() []clip.Ref {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]clip.Ref, len(m.playCalls))
	copy(out, m.playCalls)
	return out
}

// Current returns the clip that is sounding, if any.
func (m *Mock) Current() (clip.Ref, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.state == Playing
}

func (m *Mock) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
