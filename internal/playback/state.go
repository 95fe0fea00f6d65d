package playback

import "fmt"

// Status is where the active session is in its clip cycle.
//
//	Idle ──play──▶ Loading ──sound starts──▶ Sounding
//	                 ▲                          │
//	                 └──── clip ends, advance ──┤
//	                                            ▼
//	                  Idle ◀── stop / error / single end / loop target
//
// A new play call forces the current session to Idle before starting.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSounding
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusSounding:
		return "Sounding"
	default:
		return "Unknown"
	}
}

// IsActive returns true while a session owns a verse (loading or sounding).
func (s Status) IsActive() bool {
	return s == StatusLoading || s == StatusSounding
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode selects how a session advances when a clip ends.
type Mode int

const (
	ModeSingle Mode = iota
	ModeSequential
	ModeRange
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "Single"
	case ModeSequential:
		return "Sequential"
	case ModeRange:
		return "Range"
	default:
		return "Unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode is the inverse of Mode.String, case-sensitive.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeSingle, ModeSequential, ModeRange} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}
