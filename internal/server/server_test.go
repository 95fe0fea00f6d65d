package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/hifz/internal/broadcast"
	"github.com/llehouerou/hifz/internal/clip"
	"github.com/llehouerou/hifz/internal/logging"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/player"
	"github.com/llehouerou/hifz/internal/quran"
)

type fakeChapters struct {
	counts map[int]int
	err    error
}

func (f *fakeChapters) Chapter(_ context.Context, number int) (*quran.Chapter, error) {
	if f.err != nil {
		return nil, f.err
	}
	n, ok := f.counts[number]
	if !ok {
		return nil, fmt.Errorf("%w: %d", quran.ErrNotFound, number)
	}
	ch := &quran.Chapter{ChapterInfo: quran.ChapterInfo{Number: number, VerseCount: n}}
	for v := 1; v <= n; v++ {
		ch.Verses = append(ch.Verses, quran.Verse{Number: v, Text: fmt.Sprintf("verse %d", v)})
	}
	return ch, nil
}

type emitted struct {
	event   string
	payload any
}

type emitRecorder struct {
	mu     sync.Mutex
	events []emitted
	notify chan emitted
}

func (r *emitRecorder) emit(event string, payload any) {
	r.mu.Lock()
	r.events = append(r.events, emitted{event, payload})
	r.mu.Unlock()
	select {
	case r.notify <- emitted{event, payload}:
	default:
	}
}

func (r *emitRecorder) named(event string) []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []emitted
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	srv    *Server
	ctrl   *playback.Controller
	bus    *broadcast.Bus
	engine *player.Mock
	rec    *emitRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bus := broadcast.New()
	engine := player.NewMock()
	ctrl := playback.New(playback.Options{
		Loader: playback.LoaderFunc(func(_ context.Context, ref clip.Ref) (*clip.Clip, error) {
			return &clip.Clip{Ref: ref, URL: "https://clips.example/" + ref.String()}, nil
		}),
		Engine: engine,
		Bus:    bus,
		Logger: logging.Discard(),
	})
	srv := New(Options{
		Service:  ctrl,
		Bus:      bus,
		Chapters: &fakeChapters{counts: map[int]int{1: 7, 103: 3}},
		Logger:   logging.Discard(),
	})
	rec := &emitRecorder{notify: make(chan emitted, 64)}
	srv.emit = rec.emit

	t.Cleanup(func() {
		srv.Close()
		ctrl.Close()
	})
	return &fixture{srv: srv, ctrl: ctrl, bus: bus, engine: engine, rec: rec}
}

func obj(kv ...any) []any {
	m := map[string]any{}
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return []any{m}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		args    []any
		want    playRequest
		wantErr bool
	}{
		{
			name: "single",
			args: obj("chapter", 2.0, "verse", 255.0),
			want: playRequest{Chapter: 2, Verse: 255},
		},
		{
			name: "range",
			args: obj("chapter", 1.0, "start", 2.0, "end", 4.0, "loopTarget", 3.0),
			want: playRequest{Chapter: 1, Start: 2, End: 4, LoopTarget: 3},
		},
		{name: "no payload", args: nil, wantErr: true},
		{name: "not an object", args: []any{"1:1"}, wantErr: true},
		{name: "missing chapter", args: obj("verse", 1.0), wantErr: true},
		{name: "fractional verse", args: obj("chapter", 1.0, "verse", 1.5), wantErr: true},
		{name: "string verse", args: obj("chapter", 1.0, "verse", "3"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRequest(tt.args)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandle_PlayEvents(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.srv.handle("c1", "playSingle", obj("chapter", 1.0, "verse", 3.0)))
	assert.True(t, f.ctrl.IsPlaying(1, 3))
	assert.Equal(t, playback.ModeSingle, f.ctrl.Snapshot().Mode)

	require.NoError(t, f.srv.handle("c1", "playRange", obj("chapter", 103.0, "start", 2.0, "end", 3.0, "loopTarget", 2.0)))
	snap := f.ctrl.Snapshot()
	assert.Equal(t, playback.ModeRange, snap.Mode)
	assert.Equal(t, 103, snap.Chapter)
	assert.Equal(t, 3, snap.ChapterLength)
	assert.Equal(t, 2, snap.Verse)
	assert.Equal(t, 2, snap.LoopTarget)

	require.NoError(t, f.srv.handle("c1", "playSequential", obj("chapter", 1.0)))
	assert.True(t, f.ctrl.IsPlaying(1, 1))

	require.NoError(t, f.srv.handle("c1", "stop", nil))
	assert.False(t, f.ctrl.Snapshot().Active())
}

func TestHandle_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		event  string
		args   []any
		target error
	}{
		{"verse past end", "playSingle", obj("chapter", 103.0, "verse", 4.0), playback.ErrInvalidVerse},
		{"inverted range", "playRange", obj("chapter", 1.0, "start", 5.0, "end", 2.0), playback.ErrInvalidRange},
		{"negative loop", "playSequential", obj("chapter", 1.0, "loopTarget", -1.0), playback.ErrInvalidLoopTarget},
		{"chapter out of bounds", "playSingle", obj("chapter", 115.0, "verse", 1.0), playback.ErrInvalidChapter},
		{"unknown chapter", "playSingle", obj("chapter", 50.0, "verse", 1.0), quran.ErrNotFound},
		{"malformed", "playSingle", []any{42.0}, ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.srv.handle("c1", "playSingle", obj("chapter", 1.0, "verse", 1.0)))

			err := f.srv.handle("c1", tt.event, tt.args)
			require.ErrorIs(t, err, tt.target)

			name, payload := f.srv.errorReply(tt.event, err)
			assert.Equal(t, EventValidationError, name)
			assert.Equal(t, tt.event, payload.Event)

			// The running session is untouched.
			assert.True(t, f.ctrl.IsPlaying(1, 1))
		})
	}
}

func TestHandle_LookupFailureIsPlaybackError(t *testing.T) {
	f := newFixture(t)
	f.srv.chapters = &fakeChapters{err: errors.New("connection refused")}

	err := f.srv.handle("c1", "playSingle", obj("chapter", 1.0, "verse", 1.0))
	require.Error(t, err)

	name, payload := f.srv.errorReply("playSingle", err)
	assert.Equal(t, EventPlaybackError, name)
	assert.Contains(t, payload.Message, "connection refused")
}

func TestHandle_StopAllAudioRelays(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.srv.handle("c1", "playSequential", obj("chapter", 1.0)))
	require.NoError(t, f.srv.handle("c2", "stopAllAudio", obj("reason", "tab hidden")))

	assert.False(t, f.ctrl.Snapshot().Active(), "StopAll should leave the controller idle")

	relayed := f.rec.named(EventStopAllAudio)
	require.Len(t, relayed, 1)
	assert.Equal(t, stopAllPayload{Source: "socket:c2", Reason: "tab hidden"}, relayed[0].payload)
}

func TestBusStopAllFromElsewhereRelays(t *testing.T) {
	f := newFixture(t)

	f.bus.StopAll("tui", "chapter change")

	relayed := f.rec.named(EventStopAllAudio)
	require.Len(t, relayed, 1)
	assert.Equal(t, stopAllPayload{Source: "tui", Reason: "chapter change"}, relayed[0].payload)

	f.srv.Close()
	f.bus.StopAll("tui", "again")
	assert.Len(t, f.rec.named(EventStopAllAudio), 1, "closed server must not relay")
}

func TestForward_PushesStateAndErrors(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sub := f.ctrl.Subscribe()
	go func() {
		defer close(done)
		f.srv.forward(ctx, sub)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, f.srv.handle("c1", "playSingle", obj("chapter", 103.0, "verse", 2.0)))

	waitFor := func(event string, match func(any) bool) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case e := <-f.rec.notify:
				if e.event == event && match(e.payload) {
					return
				}
			case <-deadline:
				t.Fatalf("no %s received", event)
			}
		}
	}

	waitFor(EventPushState, func(p any) bool {
		snap, ok := p.(playback.Snapshot)
		return ok && snap.Active() && snap.Chapter == 103 && snap.Verse == 2
	})

	require.Eventually(t, func() bool {
		return f.ctrl.Snapshot().Status == playback.StatusSounding
	}, 5*time.Second, 5*time.Millisecond)
	require.True(t, f.engine.Finish(errors.New("decoder exploded")))
	waitFor(EventPlaybackError, func(p any) bool {
		e, ok := p.(errorPayload)
		return ok && e.Chapter == 103 && e.Verse == 2 && e.Message != ""
	})
	waitFor(EventPushState, func(p any) bool {
		snap, ok := p.(playback.Snapshot)
		return ok && !snap.Active()
	})
}

func TestHTTP(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	get := func(path string) (*http.Response, map[string]any) {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp, body
	}

	t.Run("health", func(t *testing.T) {
		resp, body := get("/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("chapter", func(t *testing.T) {
		resp, body := get("/api/v1/chapters/103")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Len(t, body["verses"], 3)
	})

	t.Run("unknown chapter", func(t *testing.T) {
		resp, body := get("/api/v1/chapters/50")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, body["error"], "Failed to load chapter")
	})

	t.Run("bad chapter", func(t *testing.T) {
		resp, _ := get("/api/v1/chapters/abc")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("state and stop", func(t *testing.T) {
		require.NoError(t, f.ctrl.PlayRange(playback.Chapter{Number: 1, VerseCount: 7}, 2, 4, 0))

		resp, body := get("/api/v1/state")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Range", body["mode"])
		assert.EqualValues(t, 2, body["verse"])

		stop, err := http.Post(ts.URL+"/api/v1/stop", "application/json", nil)
		require.NoError(t, err)
		stop.Body.Close()
		assert.Equal(t, http.StatusOK, stop.StatusCode)
		assert.False(t, f.ctrl.Snapshot().Active())
	})
}
