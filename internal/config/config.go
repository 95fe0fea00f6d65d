package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	tomlenc "github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "hifz"

// Output engines.
const (
	OutputSpeaker = "speaker"
	OutputMPD     = "mpd"
)

// ErrInvalid is wrapped by Validate for every rejected setting.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// Verse text API
	API APIConfig `koanf:"api" toml:"api"`

	// Recitation clips and how they are played
	Audio AudioConfig `koanf:"audio" toml:"audio"`

	// Clip cache sizing
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Socket.IO / HTTP server for browser tabs
	Server ServerConfig `koanf:"server" toml:"server"`

	// MPD output (used when audio.output = "mpd")
	MPD MPDConfig `koanf:"mpd" toml:"mpd"`

	Log LogConfig `koanf:"log" toml:"log"`
}

// APIConfig points at an alquran.cloud compatible verse API.
type APIConfig struct {
	BaseURL     string        `koanf:"base_url" toml:"base_url"`
	Edition     string        `koanf:"edition" toml:"edition"`         // Arabic text edition, e.g. "quran-uthmani"
	Translation string        `koanf:"translation" toml:"translation"` // empty disables translation
	Timeout     time.Duration `koanf:"timeout" toml:"timeout"`
}

// AudioConfig describes where clips live and how playback is paced.
type AudioConfig struct {
	BaseURL        string        `koanf:"base_url" toml:"base_url"`
	URLTemplate    string        `koanf:"url_template" toml:"url_template"` // {base}/{chapter}_{verse}.{ext}
	Ext            string        `koanf:"ext" toml:"ext"`
	InterClipDelay time.Duration `koanf:"inter_clip_delay" toml:"inter_clip_delay"`
	LoopTarget     int           `koanf:"loop_target" toml:"loop_target"` // default repeat count, 0 = unbounded
	Output         string        `koanf:"output" toml:"output"`           // "speaker" or "mpd"
	Volume         float64       `koanf:"volume" toml:"volume"`           // 0.0 - 1.0
	RateLimit      float64       `koanf:"rate_limit" toml:"rate_limit"`   // clip fetches per second
}

// CacheConfig bounds the clip cache.
type CacheConfig struct {
	MemoryClips int    `koanf:"memory_clips" toml:"memory_clips"`
	Dir         string `koanf:"dir" toml:"dir"` // empty = xdg cache dir, "-" disables the disk tier
	MaxAgeDays  int    `koanf:"max_age_days" toml:"max_age_days"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" toml:"addr"`
}

type MPDConfig struct {
	Addr     string `koanf:"addr" toml:"addr"`
	Password string `koanf:"password" toml:"password"`
}

type LogConfig struct {
	Level string `koanf:"level" toml:"level"` // debug, info, warn, error
	File  string `koanf:"file" toml:"file"`   // empty = stderr (tui always logs to a file)
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     "https://api.alquran.cloud/v1",
			Edition:     "quran-uthmani",
			Translation: "en.sahih",
			Timeout:     10 * time.Second,
		},
		Audio: AudioConfig{
			BaseURL:        "https://everyayah.com/data/Alafasy_128kbps",
			URLTemplate:    "{base}/{chapter3}{verse3}.{ext}",
			Ext:            "mp3",
			InterClipDelay: 500 * time.Millisecond,
			Output:         OutputSpeaker,
			Volume:         1,
			RateLimit:      4,
		},
		Cache: CacheConfig{
			MemoryClips: 64,
			MaxAgeDays:  90,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7310",
		},
		MPD: MPDConfig{
			Addr: "localhost:6600",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func Load() (*Config, error) {
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom loads the given files in order (last wins) on top of Default.
// Missing files are skipped.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.normalize()

	return cfg, nil
}

// Merge applies non-zero fields of overrides (typically built from CLI
// flags) on top of c.
func (c *Config) Merge(overrides Config) error {
	if err := mergo.Merge(c, overrides, mergo.WithOverride); err != nil {
		return err
	}
	c.normalize()
	return nil
}

func (c *Config) normalize() {
	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/")
	c.Audio.BaseURL = strings.TrimSuffix(c.Audio.BaseURL, "/")
	c.Audio.Ext = strings.TrimPrefix(c.Audio.Ext, ".")
	c.Audio.Output = strings.ToLower(c.Audio.Output)

	if c.Cache.Dir != "" && c.Cache.Dir != "-" {
		c.Cache.Dir = expandPath(c.Cache.Dir)
	}
	if c.Log.File != "" {
		c.Log.File = expandPath(c.Log.File)
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is empty", ErrInvalid)
	case c.Audio.BaseURL == "":
		return fmt.Errorf("%w: audio.base_url is empty", ErrInvalid)
	case !strings.Contains(c.Audio.URLTemplate, "{verse") || !strings.Contains(c.Audio.URLTemplate, "{chapter"):
		return fmt.Errorf("%w: audio.url_template must reference {chapter} and {verse}", ErrInvalid)
	case c.Audio.InterClipDelay < 0:
		return fmt.Errorf("%w: audio.inter_clip_delay is negative", ErrInvalid)
	case c.Audio.LoopTarget < 0:
		return fmt.Errorf("%w: audio.loop_target is negative", ErrInvalid)
	case c.Audio.Output != OutputSpeaker && c.Audio.Output != OutputMPD:
		return fmt.Errorf("%w: audio.output %q (want %q or %q)", ErrInvalid, c.Audio.Output, OutputSpeaker, OutputMPD)
	case c.Audio.Volume <= 0 || c.Audio.Volume > 1:
		return fmt.Errorf("%w: audio.volume must be in (0, 1]", ErrInvalid)
	case c.Cache.MemoryClips <= 0:
		return fmt.Errorf("%w: cache.memory_clips must be positive", ErrInvalid)
	}
	return nil
}

// HasDiskCache returns false when the disk tier is disabled.
func (c *Config) HasDiskCache() bool {
	return c.Cache.Dir != "-"
}

// WriteDefault writes the default configuration as TOML to path.
// It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tomlenc.NewEncoder(f).Encode(Default())
}

// UserConfigPath is where `hifz config init` writes by default.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/hifz/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName, "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
