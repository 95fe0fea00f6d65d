package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/hifz/internal/clip"
	"github.com/llehouerou/hifz/internal/config"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/player"
	"github.com/llehouerou/hifz/internal/state"
)

const asrText = `{"code":200,"status":"OK","data":{
	"number":103,"name":"سورة العصر","englishName":"Al-Asr",
	"englishNameTranslation":"The Declining Day","numberOfAyahs":3,"revelationType":"Meccan",
	"ayahs":[
		{"number":6221,"text":"v1","numberInSurah":1},
		{"number":6222,"text":"v2","numberInSurah":2},
		{"number":6223,"text":"v3","numberInSurah":3}
	]}}`

const chapterList = `{"code":200,"status":"OK","data":[
	{"number":103,"name":"سورة العصر","englishName":"Al-Asr","numberOfAyahs":3}
]}`

// newTestApp serves chapter 103 and its clips (verse 3 missing).
func newTestApp(t *testing.T, opts Options) *App {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/surah":
			_, _ = w.Write([]byte(chapterList))
		case r.URL.Path == "/surah/103/quran-uthmani":
			_, _ = w.Write([]byte(asrText))
		case strings.HasPrefix(r.URL.Path, "/audio/103_3"):
			http.NotFound(w, r)
		case strings.HasPrefix(r.URL.Path, "/audio/"):
			_, _ = w.Write([]byte("clip " + r.URL.Path))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	opts.Config = testConfig(t, srv.URL)
	a, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.API.Translation = ""
	cfg.Audio.BaseURL = baseURL + "/audio"
	cfg.Audio.URLTemplate = clip.DefaultTemplate
	cfg.Audio.InterClipDelay = 0
	cfg.Audio.RateLimit = 0
	cfg.Cache.Dir = t.TempDir()
	return cfg
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.LoopTarget = -1

	_, err := New(Options{Config: cfg, Engine: player.NewMock()})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNew_WithoutEngine(t *testing.T) {
	a := newTestApp(t, Options{WithoutEngine: true})

	assert.Nil(t, a.Controller)
	assert.Nil(t, a.Engine)
	assert.NotNil(t, a.Cache)
}

func TestClipDir(t *testing.T) {
	cfg := config.Default()
	assert.Contains(t, clipDir(cfg), "hifz")

	cfg.Cache.Dir = "-"
	assert.Empty(t, clipDir(cfg))

	cfg.Cache.Dir = "/srv/clips"
	assert.Equal(t, "/srv/clips", clipDir(cfg))
}

func TestClose_ReleasesEngineAndState(t *testing.T) {
	engine := player.NewMock()
	store := state.NewMock()
	a := newTestApp(t, Options{Engine: engine, State: store, WithState: true})

	require.NoError(t, a.Close())
	assert.True(t, engine.Closed())
	assert.True(t, store.IsClosed())
	assert.ErrorIs(t, a.Controller.PlaySingle(playback.Chapter{Number: 103, VerseCount: 3}, 1), playback.ErrClosed)
}

func TestPlay_RangeRunsToCompletion(t *testing.T) {
	engine := player.NewMock()
	engine.SetClipDuration(5 * time.Millisecond)
	a := newTestApp(t, Options{Engine: engine})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.Play(ctx, PlayRequest{Mode: playback.ModeRange, Chapter: 103, Start: 1, End: 2, LoopTarget: 2})
	require.NoError(t, err)

	var refs []string
	for _, ref := range engine.PlayCalls() {
		refs = append(refs, ref.String())
	}
	assert.Equal(t, []string{"103:1", "103:2", "103:1", "103:2"}, refs)
	assert.False(t, a.Controller.Snapshot().Active())
}

func TestPlay_SingleMissingClipFails(t *testing.T) {
	engine := player.NewMock()
	a := newTestApp(t, Options{Engine: engine})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.Play(ctx, PlayRequest{Mode: playback.ModeSingle, Chapter: 103, Verse: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, clip.ErrUnavailable), "got %v", err)
}

func TestPlay_InvalidVerse(t *testing.T) {
	a := newTestApp(t, Options{Engine: player.NewMock()})

	err := a.Play(context.Background(), PlayRequest{Mode: playback.ModeSingle, Chapter: 103, Verse: 4})
	assert.ErrorIs(t, err, playback.ErrInvalidVerse)
}

func TestPlay_CancelStops(t *testing.T) {
	engine := player.NewMock()
	engine.SetClipDuration(5 * time.Millisecond)
	a := newTestApp(t, Options{Engine: engine})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := a.Play(ctx, PlayRequest{Mode: playback.ModeRange, Chapter: 103, Start: 1, End: 2})
	require.NoError(t, err)
	assert.False(t, a.Controller.Snapshot().Active(), "cancelled unbounded session is stopped")
}

func TestDownload_FillsDiskTier(t *testing.T) {
	a := newTestApp(t, Options{WithoutEngine: true})

	var last [3]int
	err := a.Download(context.Background(), []int{103}, func(ch, done, total int) {
		last = [3]int{ch, done, total}
	})
	require.Error(t, err, "verse 3 is missing upstream")
	assert.ErrorIs(t, err, clip.ErrUnavailable)
	assert.Equal(t, 103, last[0])
	assert.Equal(t, 3, last[2])

	stats, err := a.Cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DiskFiles)
	assert.True(t, a.Cache.Contains(clip.Ref{Chapter: 103, Verse: 1}))
}

func TestChapterName(t *testing.T) {
	a := newTestApp(t, Options{WithoutEngine: true})

	assert.Equal(t, "Al-Asr", a.ChapterName(103))
	assert.Empty(t, a.ChapterName(1))
}

func TestChapterName_RetriesAfterFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(chapterList))
	}))
	t.Cleanup(srv.Close)

	prev := namesRetryAfter
	namesRetryAfter = 0
	t.Cleanup(func() { namesRetryAfter = prev })

	a, err := New(Options{Config: testConfig(t, srv.URL), WithoutEngine: true})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Empty(t, a.ChapterName(103))
	assert.Equal(t, "Al-Asr", a.ChapterName(103))
	assert.Equal(t, "Al-Asr", a.ChapterName(103))
	assert.Equal(t, int32(2), calls.Load())
}

func TestChapterName_WaitsBeforeRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	a, err := New(Options{Config: testConfig(t, srv.URL), WithoutEngine: true})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Empty(t, a.ChapterName(103))
	assert.Empty(t, a.ChapterName(103))
	assert.Equal(t, int32(1), calls.Load())
}

func TestProgress(t *testing.T) {
	store := state.NewMock()
	require.NoError(t, store.SetMemorizedRange(t.Context(), 103, 1, 2))
	require.NoError(t, store.SetMemorized(1, 1, true)) // not in the served chapter list
	a := newTestApp(t, Options{WithoutEngine: true, State: store, WithState: true})

	got, err := a.Progress(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []ChapterProgress{{Number: 103, Name: "Al-Asr", Memorized: 2, Verses: 3}}, got)
}

func TestProgress_NeedsState(t *testing.T) {
	a := newTestApp(t, Options{WithoutEngine: true})

	_, err := a.Progress(t.Context())
	assert.ErrorIs(t, err, ErrNoState)
}

func TestLoaderFor_MPDSkipsDownload(t *testing.T) {
	a := newTestApp(t, Options{WithoutEngine: true})
	ref := clip.Ref{Chapter: 103, Verse: 1}

	assert.Same(t, a.Cache, loaderFor(a.Config, a.Cache))

	cfg := *a.Config
	cfg.Audio.Output = config.OutputMPD
	c, err := loaderFor(&cfg, a.Cache).Load(t.Context(), ref)
	require.NoError(t, err)

	assert.Equal(t, a.Config.Audio.BaseURL+"/103_1.mp3", c.URL)
	assert.Empty(t, c.Data)
	assert.False(t, a.Cache.Contains(ref), "clip should not be fetched for MPD")
}
