// Package quran provides a client for an alquran.cloud compatible verse API.
package quran

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a chapter does not exist.
var ErrNotFound = errors.New("chapter not found")

// ChapterCount is the number of chapters (surahs).
const ChapterCount = 114

const userAgent = "hifz/1.0 (https://github.com/llehouerou/hifz)"

// Client is a verse API client. Chapters are memoized for the lifetime of
// the client since the text never changes.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	edition     string
	translation string

	mu       sync.Mutex
	chapters map[int]*Chapter
	index    []ChapterInfo
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Edition     string // Arabic text edition
	Translation string // empty disables translation
	Timeout     time.Duration
	HTTPClient  *http.Client // overrides Timeout when set
}

// New creates a new verse API client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	edition := opts.Edition
	if edition == "" {
		edition = "quran-uthmani"
	}
	return &Client{
		httpClient:  hc,
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		edition:     edition,
		translation: opts.Translation,
		chapters:    make(map[int]*Chapter),
	}
}

// ChapterInfo describes a chapter without its verses.
type ChapterInfo struct {
	Number         int    `json:"number"`
	Name           string `json:"name"`
	EnglishName    string `json:"englishName"`
	EnglishMeaning string `json:"englishNameTranslation"`
	VerseCount     int    `json:"numberOfAyahs"`
	RevelationType string `json:"revelationType"`
}

// Verse is a single verse with optional translation.
type Verse struct {
	Number      int    `json:"number"` // number within the chapter
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
}

// Chapter is a chapter with its ordered verses.
type Chapter struct {
	ChapterInfo
	Verses []Verse `json:"verses"`
}

type envelope struct {
	Code   int             `json:"code"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type apiAyah struct {
	Number        int    `json:"number"`
	Text          string `json:"text"`
	NumberInSurah int    `json:"numberInSurah"`
}

type apiSurah struct {
	ChapterInfo
	Ayahs []apiAyah `json:"ayahs"`
}

// Chapters lists every chapter.
func (c *Client) Chapters(ctx context.Context) ([]ChapterInfo, error) {
	c.mu.Lock()
	if c.index != nil {
		idx := c.index
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	var infos []ChapterInfo
	if err := c.get(ctx, "/surah", &infos); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.index = infos
	c.mu.Unlock()

	return infos, nil
}

// Chapter fetches a chapter's verses, merging the translation edition when
// one is configured.
func (c *Client) Chapter(ctx context.Context, number int) (*Chapter, error) {
	if number < 1 || number > ChapterCount {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, number)
	}

	c.mu.Lock()
	if ch, ok := c.chapters[number]; ok {
		c.mu.Unlock()
		return ch, nil
	}
	c.mu.Unlock()

	var ch *Chapter
	var err error
	if c.translation == "" {
		ch, err = c.fetchSingle(ctx, number)
	} else {
		ch, err = c.fetchWithTranslation(ctx, number)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.chapters[number] = ch
	c.mu.Unlock()

	return ch, nil
}

func (c *Client) fetchSingle(ctx context.Context, number int) (*Chapter, error) {
	var s apiSurah
	if err := c.get(ctx, fmt.Sprintf("/surah/%d/%s", number, c.edition), &s); err != nil {
		return nil, err
	}
	return toChapter(s, nil), nil
}

func (c *Client) fetchWithTranslation(ctx context.Context, number int) (*Chapter, error) {
	var editions []apiSurah
	path := fmt.Sprintf("/surah/%d/editions/%s,%s", number, c.edition, c.translation)
	if err := c.get(ctx, path, &editions); err != nil {
		return nil, err
	}
	if len(editions) == 0 {
		return nil, fmt.Errorf("%w: %d (no editions returned)", ErrNotFound, number)
	}

	var translation *apiSurah
	if len(editions) > 1 {
		translation = &editions[1]
	}
	return toChapter(editions[0], translation), nil
}

func toChapter(text apiSurah, translation *apiSurah) *Chapter {
	ch := &Chapter{
		ChapterInfo: text.ChapterInfo,
		Verses:      make([]Verse, 0, len(text.Ayahs)),
	}

	byNumber := map[int]string{}
	if translation != nil {
		for _, a := range translation.Ayahs {
			byNumber[a.NumberInSurah] = a.Text
		}
	}

	for _, a := range text.Ayahs {
		ch.Verses = append(ch.Verses, Verse{
			Number:      a.NumberInSurah,
			Text:        a.Text,
			Translation: byNumber[a.NumberInSurah],
		})
	}

	if ch.VerseCount == 0 {
		ch.VerseCount = len(ch.Verses)
	}

	return ch
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Code == http.StatusNotFound {
		return ErrNotFound
	}
	if env.Code != 0 && env.Code != http.StatusOK {
		return fmt.Errorf("api error %d: %s", env.Code, env.Status)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Verse returns the verse with the given number, or nil.
func (ch *Chapter) Verse(number int) *Verse {
	if number < 1 || number > len(ch.Verses) {
		return nil
	}
	v := &ch.Verses[number-1]
	if v.Number == number {
		return v
	}
	for i := range ch.Verses {
		if ch.Verses[i].Number == number {
			return &ch.Verses[i]
		}
	}
	return nil
}
