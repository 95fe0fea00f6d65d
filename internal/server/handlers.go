package server

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/quran"
)

// ErrBadRequest is returned for malformed event payloads.
var ErrBadRequest = errors.New("bad request")

// playRequest is the payload of the play events:
// {"chapter": 2, "verse": 255, "start": 1, "end": 5, "loopTarget": 3}.
type playRequest struct {
	Chapter    int
	Verse      int
	Start      int
	End        int
	LoopTarget int
}

func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())

		s.logger.Info("client connected", "id", clientID)

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		client.Emit(EventPushState, s.service.Snapshot())

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			s.logger.Info("client disconnected", "id", clientID, "reason", reason)

			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		client.On("getState", func(...any) {
			client.Emit(EventPushState, s.service.Snapshot())
		})

		for _, event := range []string{"playSingle", "playSequential", "playRange", "stop", "stopAllAudio"} {
			client.On(event, func(args ...any) {
				s.logger.Debug("event", "id", clientID, "event", event, "args", args)
				if err := s.handle(clientID, event, args); err != nil {
					name, payload := s.errorReply(event, err)
					client.Emit(name, payload)
				}
			})
		}
	})
}

// handle runs one client event against the controller.
func (s *Server) handle(clientID, event string, args []any) error {
	switch event {
	case "stop":
		s.service.Stop()
		return nil
	case "stopAllAudio":
		reason := ""
		if len(args) > 0 {
			if m, ok := args[0].(map[string]any); ok {
				reason, _ = m["reason"].(string)
			}
		}
		if s.bus == nil {
			s.service.Stop()
			return nil
		}
		s.bus.StopAll("socket:"+clientID, reason)
		return nil
	}

	req, err := decodeRequest(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ch, err := s.chapter(ctx, req.Chapter)
	if err != nil {
		return err
	}

	switch event {
	case "playSingle":
		return s.service.PlaySingle(ch, req.Verse)
	case "playSequential":
		return s.service.PlaySequential(ch, req.LoopTarget)
	case "playRange":
		return s.service.PlayRange(ch, req.Start, req.End, req.LoopTarget)
	}
	return fmt.Errorf("%w: unknown event %q", ErrBadRequest, event)
}

func (s *Server) chapter(ctx context.Context, number int) (playback.Chapter, error) {
	if number < 1 || number > quran.ChapterCount {
		return playback.Chapter{}, fmt.Errorf("%w: %d", playback.ErrInvalidChapter, number)
	}
	c, err := s.chapters.Chapter(ctx, number)
	if err != nil {
		return playback.Chapter{}, err
	}
	return playback.Chapter{Number: c.Number, VerseCount: len(c.Verses)}, nil
}

// errorReply picks the event sent back to the client for err.
func (s *Server) errorReply(event string, err error) (string, errorPayload) {
	payload := errorPayload{Event: event, Message: err.Error()}
	if isValidation(err) {
		return EventValidationError, payload
	}
	s.logger.Warn("event failed", "event", event, "err", err)
	return EventPlaybackError, payload
}

func isValidation(err error) bool {
	for _, target := range []error{
		ErrBadRequest,
		playback.ErrInvalidChapter,
		playback.ErrInvalidVerse,
		playback.ErrInvalidRange,
		playback.ErrInvalidLoopTarget,
		quran.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func decodeRequest(args []any) (playRequest, error) {
	if len(args) == 0 {
		return playRequest{}, fmt.Errorf("%w: missing payload", ErrBadRequest)
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return playRequest{}, fmt.Errorf("%w: payload must be an object", ErrBadRequest)
	}

	var req playRequest
	fields := []struct {
		key      string
		dst      *int
		required bool
	}{
		{"chapter", &req.Chapter, true},
		{"verse", &req.Verse, false},
		{"start", &req.Start, false},
		{"end", &req.End, false},
		{"loopTarget", &req.LoopTarget, false},
	}
	for _, f := range fields {
		v, present := m[f.key]
		if !present {
			if f.required {
				return playRequest{}, fmt.Errorf("%w: missing %s", ErrBadRequest, f.key)
			}
			continue
		}
		n, err := toInt(v)
		if err != nil {
			return playRequest{}, fmt.Errorf("%w: %s: %w", ErrBadRequest, f.key, err)
		}
		*f.dst = n
	}
	return req, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}
