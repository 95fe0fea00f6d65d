package clip

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned when the clip host does not serve a clip.
var ErrUnavailable = errors.New("clip unavailable")

const (
	defaultMemoryClips = 64
	userAgent          = "hifz/1.0 (https://github.com/llehouerou/hifz)"
)

// Options configures a Cache.
type Options struct {
	Source      Source
	MemoryClips int           // LRU capacity, defaults to 64
	Dir         string        // disk tier root; empty disables it
	MaxAge      time.Duration // disk entries older than this are pruned; 0 keeps forever
	RateLimit   float64       // HTTP fetches per second; 0 is unlimited
	TagDisk     bool          // label mp3 files on disk with chapter and verse
	HTTPClient  *http.Client
	Logger      *log.Logger
}

// Cache resolves clips from a bounded in-memory LRU, then the disk tier,
// then the network. It is safe for concurrent use.
type Cache struct {
	src     Source
	mem     *lru.Cache[Ref, *Clip]
	memCap  int
	dir     string
	maxAge  time.Duration
	limiter *rate.Limiter
	tagDisk bool
	hc      *http.Client
	logger  *log.Logger
}

// New creates a clip cache. The disk directory is namespaced by the
// source's base URL so that switching reciters never mixes clips.
func New(opts Options) (*Cache, error) {
	size := opts.MemoryClips
	if size <= 0 {
		size = defaultMemoryClips
	}
	mem, err := lru.New[Ref, *Clip](size)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		src:     opts.Source,
		mem:     mem,
		memCap:  size,
		maxAge:  opts.MaxAge,
		tagDisk: opts.TagDisk,
		hc:      opts.HTTPClient,
		logger:  opts.Logger,
	}
	if c.hc == nil {
		c.hc = &http.Client{}
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	if opts.Dir != "" {
		c.dir = filepath.Join(opts.Dir, sourceKey(opts.Source))
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func sourceKey(s Source) string {
	h := sha256.Sum256([]byte(s.Base + "|" + s.Template + "|" + s.Format()))
	return hex.EncodeToString(h[:6])
}

// Source returns the URL source clips are fetched from.
func (c *Cache) Source() Source {
	return c.src
}

// Load returns the clip for ref. There is no timeout beyond ctx: a hung
// request keeps the caller waiting until ctx is cancelled.
func (c *Cache) Load(ctx context.Context, ref Ref) (*Clip, error) {
	if cl, ok := c.mem.Get(ref); ok {
		return cl, nil
	}

	if cl := c.readDisk(ref); cl != nil {
		c.mem.Add(ref, cl)
		return cl, nil
	}

	cl, err := c.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	c.mem.Add(ref, cl)
	c.writeDisk(cl)
	return cl, nil
}

// Contains reports whether ref is available without a network request.
func (c *Cache) Contains(ref Ref) bool {
	if c.mem.Contains(ref) {
		return true
	}
	if c.dir == "" {
		return false
	}
	_, err := os.Stat(c.diskPath(ref))
	return err == nil
}

func (c *Cache) fetch(ctx context.Context, ref Ref) (*Clip, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url := c.src.URL(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnavailable, ref, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug("clip fetched", "ref", ref, "bytes", len(data))

	return &Clip{Ref: ref, URL: url, Format: c.src.Format(), Data: data}, nil
}

func (c *Cache) diskPath(ref Ref) string {
	return filepath.Join(c.dir, fmt.Sprintf("%03d%03d.%s", ref.Chapter, ref.Verse, c.src.Format()))
}

func (c *Cache) readDisk(ref Ref) *Clip {
	if c.dir == "" {
		return nil
	}
	path := c.diskPath(ref)
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil
	}

	// Touch the file to update mtime (keeps frequently used entries fresh)
	now := time.Now()
	_ = os.Chtimes(path, now, now) //nolint:errcheck // best-effort

	return &Clip{Ref: ref, URL: c.src.URL(ref), Format: c.src.Format(), Data: data}
}

func (c *Cache) writeDisk(cl *Clip) {
	if c.dir == "" {
		return
	}
	path := c.diskPath(cl.Ref)
	tmp := path + ".part"
	if err := os.WriteFile(tmp, cl.Data, 0o600); err != nil {
		c.logger.Warn("clip not persisted", "ref", cl.Ref, "err", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		c.logger.Warn("clip not persisted", "ref", cl.Ref, "err", err)
		return
	}
	if c.tagDisk && cl.Format == "mp3" {
		if err := tagFile(path, cl.Ref); err != nil {
			c.logger.Debug("clip not tagged", "ref", cl.Ref, "err", err)
		}
	}
}

// Prefetch makes refs available offline. Clips already on disk are skipped.
// progress, when set, is called after each ref with the number handled so far.
func (c *Cache) Prefetch(ctx context.Context, refs []Ref, progress func(done, total int)) error {
	var errs []error
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !c.Contains(ref) {
			if _, err := c.Load(ctx, ref); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs = append(errs, err)
			}
		}
		if progress != nil {
			progress(i+1, len(refs))
		}
	}
	return errors.Join(errs...)
}

// Stats describes cache occupancy.
type Stats struct {
	MemoryEntries  int
	MemoryCapacity int
	DiskFiles      int
	DiskBytes      int64
	Dir            string
}

func (s Stats) String() string {
	if s.Dir == "" {
		return fmt.Sprintf("%d/%d clips in memory, disk cache disabled", s.MemoryEntries, s.MemoryCapacity)
	}
	return fmt.Sprintf("%d/%d clips in memory, %d on disk (%s) in %s",
		s.MemoryEntries, s.MemoryCapacity, s.DiskFiles, humanize.Bytes(uint64(max(s.DiskBytes, 0))), s.Dir)
}

// Stats returns current occupancy.
func (c *Cache) Stats() (Stats, error) {
	st := Stats{
		MemoryEntries:  c.mem.Len(),
		MemoryCapacity: c.memCap,
		Dir:            c.dir,
	}
	if c.dir == "" {
		return st, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return st, err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) == ".part" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		st.DiskFiles++
		st.DiskBytes += info.Size()
	}
	return st, nil
}

// Clear empties both tiers.
func (c *Cache) Clear() error {
	c.mem.Purge()
	if c.dir == "" {
		return nil
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// Prune removes disk entries older than MaxAge and returns how many went.
func (c *Cache) Prune() (int, error) {
	if c.dir == "" || c.maxAge <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-c.maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}
