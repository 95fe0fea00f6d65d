// Package clip addresses, fetches and caches per-verse recitation clips.
package clip

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// Ref identifies one verse's clip.
type Ref struct {
	Chapter int
	Verse   int
}

func (r Ref) String() string {
	return fmt.Sprintf("%d:%d", r.Chapter, r.Verse)
}

// Clip is a loaded recitation clip. Data holds the encoded audio as served.
type Clip struct {
	Ref    Ref
	URL    string
	Format string // lower-case extension without dot, e.g. "mp3"
	Data   []byte
}

// Reader returns a fresh reader over the encoded audio.
func (c *Clip) Reader() io.ReadSeeker {
	return bytes.NewReader(c.Data)
}

// Tags holds the embedded metadata of a clip, if any.
type Tags struct {
	Title   string
	Reciter string
	Album   string
}

// Tags reads the clip's embedded ID3/Vorbis metadata.
func (c *Clip) Tags() (Tags, error) {
	m, err := tag.ReadFrom(c.Reader())
	if err != nil {
		return Tags{}, err
	}
	return Tags{
		Title:   m.Title(),
		Reciter: m.Artist(),
		Album:   m.Album(),
	}, nil
}

// Reciter returns the artist tag, or "" when the clip carries no data or
// no readable tags.
func (c *Clip) Reciter() string {
	if len(c.Data) == 0 {
		return ""
	}
	t, err := c.Tags()
	if err != nil {
		return ""
	}
	return t.Reciter
}

// DefaultTemplate is used when a Source has no template.
const DefaultTemplate = "{base}/{chapter}_{verse}.{ext}"

// Source renders clip URLs from a template. Recognised placeholders:
// {base}, {chapter}, {verse}, {ext} and the zero-padded {chapter3}, {verse3}.
type Source struct {
	Base     string
	Template string
	Ext      string
}

// URL returns the clip location for ref.
func (s Source) URL(ref Ref) string {
	tmpl := s.Template
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	ext := strings.TrimPrefix(s.Ext, ".")
	if ext == "" {
		ext = "mp3"
	}
	r := strings.NewReplacer(
		"{base}", strings.TrimSuffix(s.Base, "/"),
		"{chapter3}", fmt.Sprintf("%03d", ref.Chapter),
		"{verse3}", fmt.Sprintf("%03d", ref.Verse),
		"{chapter}", strconv.Itoa(ref.Chapter),
		"{verse}", strconv.Itoa(ref.Verse),
		"{ext}", ext,
	)
	return r.Replace(tmpl)
}

// Format is the extension clips from this source are decoded as.
func (s Source) Format() string {
	ext := strings.ToLower(strings.TrimPrefix(s.Ext, "."))
	if ext == "" {
		return "mp3"
	}
	return ext
}
