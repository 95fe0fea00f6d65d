package player

import (
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/llehouerou/hifz/internal/clip"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Stopped, "Stopped"},
		{Playing, "Playing"},
		{State(99), "Unknown"},
		{State(-1), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func testClip(ch, v int) *clip.Clip {
	return &clip.Clip{Ref: clip.Ref{Chapter: ch, Verse: v}, Format: "mp3", Data: []byte{0}}
}

// TestMock_StateTransitions validates the engine contract using the Mock.
func TestMock_StateTransitions(t *testing.T) {
	t.Run("Stopped to Playing via Play", func(t *testing.T) {
		m := NewMock()
		if m.State() != Stopped {
			t.Fatalf("initial state = %v, want Stopped", m.State())
		}

		_ = m.Play(testClip(1, 1), nil)

		if m.State() != Playing {
			t.Errorf("state after Play = %v, want Playing", m.State())
		}
	})

	t.Run("Playing to Stopped via Stop", func(t *testing.T) {
		m := NewMock()
		_ = m.Play(testClip(1, 1), nil)

		m.Stop()

		if m.State() != Stopped {
			t.Errorf("state after Stop = %v, want Stopped", m.State())
		}
	})

	t.Run("Stop when Stopped is no-op", func(t *testing.T) {
		m := NewMock()
		m.Stop()
		if m.State() != Stopped {
			t.Errorf("state = %v, want Stopped", m.State())
		}
	})

	t.Run("failed Play stays Stopped", func(t *testing.T) {
		m := NewMock()
		m.SetPlayError(errors.New("no device"))

		if err := m.Play(testClip(1, 1), nil); err == nil {
			t.Fatal("Play() should fail")
		}
		if m.State() != Stopped {
			t.Errorf("state = %v, want Stopped", m.State())
		}
	})
}

func TestMock_FinishInvokesDoneOnce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		m := NewMock()
		calls := 0
		var got error
		want := errors.New("stream broke")

		_ = m.Play(testClip(1, 1), func(err error) {
			calls++
			got = err
		})

		if !m.Finish(want) {
			t.Fatal("Finish() = false, want true")
		}
		if m.Finish(nil) {
			t.Error("second Finish() = true, want false")
		}
		synctest.Wait()

		if calls != 1 {
			t.Errorf("done called %d times, want 1", calls)
		}
		if !errors.Is(got, want) {
			t.Errorf("done(%v), want %v", got, want)
		}
		if m.State() != Stopped {
			t.Errorf("state = %v, want Stopped", m.State())
		}
	})
}

func TestMock_StopDropsDone(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		m := NewMock()
		m.SetClipDuration(time.Second)
		called := false

		_ = m.Play(testClip(1, 1), func(error) { called = true })
		m.Stop()

		time.Sleep(2 * time.Second)
		synctest.Wait()

		if called {
			t.Error("done called after Stop")
		}
	})
}

func TestMock_ClipDuration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		m := NewMock()
		m.SetClipDuration(time.Second)
		finished := make(chan struct{})

		_ = m.Play(testClip(2, 5), func(error) { close(finished) })

		time.Sleep(999 * time.Millisecond)
		synctest.Wait()
		select {
		case <-finished:
			t.Fatal("clip finished early")
		default:
		}

		time.Sleep(time.Millisecond)
		synctest.Wait()
		select {
		case <-finished:
		default:
			t.Fatal("clip did not finish after its duration")
		}

		if calls := m.PlayCalls(); len(calls) != 1 || calls[0] != (clip.Ref{Chapter: 2, Verse: 5}) {
			t.Errorf("PlayCalls() = %v", calls)
		}
	})
}
