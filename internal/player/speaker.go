package player

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/llehouerou/hifz/internal/clip"
)

const resampleQuality = 4

// The speaker is a process-wide device; it is initialised at the rate of the
// first clip and every later clip is resampled to it.
var (
	speakerMu          sync.Mutex
	speakerInitialized bool
	speakerSampleRate  beep.SampleRate
)

func initSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if !speakerInitialized {
		if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
			return 0, err
		}
		speakerSampleRate = rate
		speakerInitialized = true
	}
	return speakerSampleRate, nil
}

// SpeakerOptions configures a Speaker.
type SpeakerOptions struct {
	Volume float64 // 0.0 - 1.0, zero means full volume
	Logger *log.Logger
}

// Speaker plays clips on the local sound card through beep.
type Speaker struct {
	mu       sync.Mutex
	state    State
	seq      uint64
	streamer beep.StreamSeekCloser
	volume   *effects.Volume
	current  clip.Ref

	volumeLevel float64
	muted       bool
	logger      *log.Logger
}

// NewSpeaker creates a speaker engine. The sound device is opened lazily
// on the first Play.
func NewSpeaker(opts SpeakerOptions) *Speaker {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Speaker{state: Stopped, logger: logger.With("engine", "speaker")}
	s.volumeLevel = 1
	if opts.Volume > 0 {
		s.volumeLevel = clampLevel(opts.Volume)
	}
	return s
}

func (s *Speaker) Play(c *clip.Clip, done func(error)) error {
	s.Stop()

	streamer, format, err := decode(c)
	if err != nil {
		return err
	}

	rate, err := initSpeaker(format.SampleRate)
	if err != nil {
		streamer.Close()
		return err
	}

	var out beep.Streamer = streamer
	if format.SampleRate != rate {
		out = beep.Resample(resampleQuality, format.SampleRate, rate, streamer)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.streamer = streamer
	s.current = c.Ref
	s.volume = &effects.Volume{
		Streamer: out,
		Base:     2,
		Volume:   levelToVolume(s.volumeLevel),
		Silent:   s.muted,
	}
	s.state = Playing
	vol := s.volume
	s.mu.Unlock()

	s.logger.Debug("clip started", "ref", c.Ref, "rate", format.SampleRate, "length", format.SampleRate.D(streamer.Len()))

	// The callback runs with the speaker lock held; finishing must not
	// block it or call back into the speaker.
	speaker.Play(beep.Seq(vol, beep.Callback(func() {
		go s.finished(seq, streamer, done)
	})))

	return nil
}

func (s *Speaker) finished(seq uint64, streamer beep.StreamSeekCloser, done func(error)) {
	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		return
	}
	err := streamer.Err()
	streamer.Close()
	s.streamer = nil
	s.volume = nil
	s.state = Stopped
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("clip stream failed", "err", err)
	}
	if done != nil {
		done(err)
	}
}

// Stop silences the current clip. Its done callback is dropped.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if s.state == Stopped {
		return
	}

	speaker.Clear()

	if s.streamer != nil {
		s.streamer.Close()
		s.streamer = nil
	}
	s.volume = nil
	s.state = Stopped
}

func (s *Speaker) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the clip being played, if any.
func (s *Speaker) Current() (clip.Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.state == Playing
}

// Close stops playback and releases the sound device.
func (s *Speaker) Close() error {
	s.Stop()

	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerInitialized {
		speaker.Close()
		speakerInitialized = false
	}
	return nil
}
