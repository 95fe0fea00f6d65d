//go:build linux

package mpris

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/hifz/internal/playback"
)

// Adapter exposes a playback service to desktop media keys over D-Bus.
type Adapter struct {
	server *server.Server
}

// New creates and starts a new MPRIS adapter. names may be nil.
func New(service playback.Service, names func(chapter int) string) (*Adapter, error) {
	a := &Adapter{
		server: server.NewServer("hifz", &rootAdapter{}, &playerAdapter{service: service, names: names}),
	}

	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil
}

func (r *rootAdapter) Quit() error {
	return nil
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "hifz", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/ogg", "audio/opus", "audio/flac", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the
// LoopStatus extension. A recitation has no pause or seek: Pause stops,
// Play restarts the last session.
type playerAdapter struct {
	service playback.Service
	names   func(chapter int) string
}

func (p *playerAdapter) Next() error {
	return nil
}

func (p *playerAdapter) Previous() error {
	return nil
}

func (p *playerAdapter) Pause() error {
	p.service.Stop()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	if p.service.Snapshot().Active() {
		p.service.Stop()
		return nil
	}
	return p.Play()
}

func (p *playerAdapter) Stop() error {
	p.service.Stop()
	return nil
}

func (p *playerAdapter) Play() error {
	if p.service.Snapshot().Active() {
		return nil
	}
	err := p.service.Restart()
	if errors.Is(err, playback.ErrNothingToRestart) {
		return nil
	}
	return err
}

func (p *playerAdapter) Seek(_ types.Microseconds) error {
	return nil
}

func (p *playerAdapter) SetPosition(_ string, _ types.Microseconds) error {
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	return playbackStatus(p.service.Snapshot()), nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	return metadata(p.service.Snapshot(), p.names), nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return 0, nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return p.service.Snapshot().Active(), nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	return loopStatus(p.service.Snapshot()), nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
// The repeat count belongs to the session, so the request is ignored.
func (p *playerAdapter) SetLoopStatus(_ types.LoopStatus) error {
	return nil
}

func playbackStatus(s playback.Snapshot) types.PlaybackStatus {
	if s.Active() {
		return types.PlaybackStatusPlaying
	}
	return types.PlaybackStatusStopped
}

func loopStatus(s playback.Snapshot) types.LoopStatus {
	if s.Looping() {
		return types.LoopStatusPlaylist
	}
	return types.LoopStatusNone
}

func metadata(s playback.Snapshot, names func(int) string) types.Metadata {
	if !s.Active() {
		return types.Metadata{}
	}

	meta := types.Metadata{
		TrackId:     dbus.ObjectPath(verseTrackID(s.Chapter, s.Verse)),
		Title:       fmt.Sprintf("Chapter %d, verse %d", s.Chapter, s.Verse),
		TrackNumber: s.Verse,
	}
	if names != nil {
		meta.Album = names(s.Chapter)
	}
	if s.Reciter != "" {
		meta.Artist = []string{s.Reciter}
	}
	return meta
}

func verseTrackID(chapter, verse int) string {
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Verse/%d_%d", chapter, verse)
}
