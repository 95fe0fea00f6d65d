//go:build !linux

package mpris

import (
	"errors"

	"github.com/llehouerou/hifz/internal/playback"
)

// ErrUnsupported is returned by New outside Linux, where there is no
// session bus to export media controls on.
var ErrUnsupported = errors.New("mpris: media controls need a D-Bus session")

type Adapter struct{}

func New(playback.Service, func(chapter int) string) (*Adapter, error) {
	return nil, ErrUnsupported
}

func (*Adapter) Close() error { return nil }
