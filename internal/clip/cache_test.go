package clip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clipServer struct {
	*httptest.Server
	hits atomic.Int32
}

// newClipServer serves "clip-<path>" for every path except those containing "missing".
func newClipServer(t *testing.T) *clipServer {
	t.Helper()
	cs := &clipServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("clip-" + r.URL.Path))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func TestCacheLoad_MemoryHit(t *testing.T) {
	srv := newClipServer(t)
	c, err := New(Options{Source: Source{Base: srv.URL}})
	require.NoError(t, err)

	ref := Ref{Chapter: 1, Verse: 1}
	first, err := c.Load(context.Background(), ref)
	require.NoError(t, err)
	second, err := c.Load(context.Background(), ref)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), srv.hits.Load())
	assert.Equal(t, "clip-/1_1.mp3", string(first.Data))
	assert.Equal(t, "mp3", first.Format)
	assert.Equal(t, ref, first.Ref)
}

func TestCacheLoad_Evicts(t *testing.T) {
	srv := newClipServer(t)
	c, err := New(Options{Source: Source{Base: srv.URL}, MemoryClips: 2})
	require.NoError(t, err)

	ctx := context.Background()
	for v := 1; v <= 3; v++ {
		_, err := c.Load(ctx, Ref{Chapter: 1, Verse: v})
		require.NoError(t, err)
	}

	assert.False(t, c.Contains(Ref{Chapter: 1, Verse: 1}), "oldest clip should be evicted")
	assert.True(t, c.Contains(Ref{Chapter: 1, Verse: 3}))

	st, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, st.MemoryEntries)
	assert.Equal(t, 2, st.MemoryCapacity)
}

func TestCacheLoad_DiskTierSurvivesNewCache(t *testing.T) {
	srv := newClipServer(t)
	dir := t.TempDir()
	src := Source{Base: srv.URL, Template: "{base}/{chapter3}{verse3}.{ext}"}

	c1, err := New(Options{Source: src, Dir: dir})
	require.NoError(t, err)
	_, err = c1.Load(context.Background(), Ref{Chapter: 2, Verse: 3})
	require.NoError(t, err)

	c2, err := New(Options{Source: src, Dir: dir})
	require.NoError(t, err)
	assert.True(t, c2.Contains(Ref{Chapter: 2, Verse: 3}))

	cl, err := c2.Load(context.Background(), Ref{Chapter: 2, Verse: 3})
	require.NoError(t, err)
	assert.Equal(t, "clip-/002003.mp3", string(cl.Data))
	assert.Equal(t, int32(1), srv.hits.Load(), "second cache should read from disk")

	st, err := c2.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, st.DiskFiles)
	assert.Equal(t, int64(len(cl.Data)), st.DiskBytes)
	assert.Contains(t, st.String(), "1 on disk")
}

func TestCache_SourcesDoNotShareDiskEntries(t *testing.T) {
	srv := newClipServer(t)
	dir := t.TempDir()

	a, err := New(Options{Source: Source{Base: srv.URL + "/a"}, Dir: dir})
	require.NoError(t, err)
	b, err := New(Options{Source: Source{Base: srv.URL + "/b"}, Dir: dir})
	require.NoError(t, err)

	_, err = a.Load(context.Background(), Ref{Chapter: 1, Verse: 1})
	require.NoError(t, err)

	assert.False(t, b.Contains(Ref{Chapter: 1, Verse: 1}))
}

func TestCacheLoad_NotFound(t *testing.T) {
	srv := newClipServer(t)
	c, err := New(Options{Source: Source{Base: srv.URL + "/missing"}, Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = c.Load(context.Background(), Ref{Chapter: 1, Verse: 1})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, c.Contains(Ref{Chapter: 1, Verse: 1}))

	st, err := c.Stats()
	require.NoError(t, err)
	assert.Zero(t, st.DiskFiles)
}

func TestCacheLoad_CancelledContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	c, err := New(Options{Source: Source{Base: srv.URL}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Load(ctx, Ref{Chapter: 1, Verse: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCachePrefetch(t *testing.T) {
	srv := newClipServer(t)
	c, err := New(Options{Source: Source{Base: srv.URL}, Dir: t.TempDir()})
	require.NoError(t, err)

	refs := []Ref{{1, 1}, {1, 2}, {1, 3}}
	var calls []int
	err = c.Prefetch(context.Background(), refs, func(done, total int) {
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
	assert.Equal(t, int32(3), srv.hits.Load())

	// Already cached refs are skipped.
	require.NoError(t, c.Prefetch(context.Background(), refs, nil))
	assert.Equal(t, int32(3), srv.hits.Load())
}

func TestCachePrefetch_CollectsErrors(t *testing.T) {
	srv := newClipServer(t)
	c, err := New(Options{Source: Source{Base: srv.URL + "/missing"}})
	require.NoError(t, err)

	done := 0
	err = c.Prefetch(context.Background(), []Ref{{1, 1}, {1, 2}}, func(n, _ int) { done = n })
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, done, "a failed clip should not stop the others")
}

func TestCacheClear(t *testing.T) {
	srv := newClipServer(t)
	c, err := New(Options{Source: Source{Base: srv.URL}, Dir: t.TempDir()})
	require.NoError(t, err)

	_, err = c.Load(context.Background(), Ref{Chapter: 1, Verse: 1})
	require.NoError(t, err)
	require.NoError(t, c.Clear())

	assert.False(t, c.Contains(Ref{Chapter: 1, Verse: 1}))
	st, err := c.Stats()
	require.NoError(t, err)
	assert.Zero(t, st.MemoryEntries)
	assert.Zero(t, st.DiskFiles)
}

func TestCachePrune(t *testing.T) {
	srv := newClipServer(t)
	c, err := New(Options{Source: Source{Base: srv.URL}, Dir: t.TempDir(), MaxAge: 24 * time.Hour})
	require.NoError(t, err)

	ctx := context.Background()
	for v := 1; v <= 2; v++ {
		_, err := c.Load(ctx, Ref{Chapter: 1, Verse: v})
		require.NoError(t, err)
	}

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(c.dir, "001001.mp3"), old, old))

	removed, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	st, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, st.DiskFiles)
}

func TestCachePrune_Disabled(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	removed, err := c.Prune()
	require.NoError(t, err)
	assert.Zero(t, removed)

	st, err := c.Stats()
	require.NoError(t, err)
	assert.Contains(t, st.String(), "disk cache disabled")
}

func TestCacheLoad_TagsDiskCopy(t *testing.T) {
	srv := newClipServer(t)
	dir := t.TempDir()
	src := Source{Base: srv.URL}

	c1, err := New(Options{Source: src, Dir: dir, TagDisk: true})
	require.NoError(t, err)
	fetched, err := c1.Load(context.Background(), Ref{Chapter: 2, Verse: 3})
	require.NoError(t, err)
	assert.Equal(t, "clip-/2_3.mp3", string(fetched.Data), "memory copy is untouched")

	c2, err := New(Options{Source: src, Dir: dir})
	require.NoError(t, err)
	cl, err := c2.Load(context.Background(), Ref{Chapter: 2, Verse: 3})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(cl.Data), "ID3"))
	assert.True(t, strings.HasSuffix(string(cl.Data), "clip-/2_3.mp3"))

	tags, err := cl.Tags()
	require.NoError(t, err)
	assert.Equal(t, "2:3", tags.Title)
	assert.Equal(t, "Chapter 2", tags.Album)
}
