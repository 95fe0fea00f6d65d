package player

import (
	"math"

	"github.com/gopxl/beep/v2/speaker"
)

// SetVolume sets the volume level (0.0 to 1.0). While muted the level is
// only remembered.
func (s *Speaker) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volumeLevel = clampLevel(level)
	if !s.muted && s.volume != nil {
		speaker.Lock()
		s.volume.Volume = levelToVolume(s.volumeLevel)
		speaker.Unlock()
	}
}

// Volume returns the current volume level (0.0 to 1.0).
func (s *Speaker) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volumeLevel
}

// SetMuted silences output without forgetting the level.
func (s *Speaker) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.muted = muted
	if s.volume != nil {
		speaker.Lock()
		s.volume.Silent = muted
		speaker.Unlock()
	}
}

// Muted returns true if audio is muted.
func (s *Speaker) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func clampLevel(level float64) float64 {
	return min(max(level, 0), 1)
}

// levelToVolume maps a 0.0-1.0 level onto beep's base-2 volume scale:
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent).
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
