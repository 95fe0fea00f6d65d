// Package server exposes the playback controller to browser tabs over
// Socket.IO and a small JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/llehouerou/hifz/internal/broadcast"
	"github.com/llehouerou/hifz/internal/logging"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/quran"
)

// Outgoing events.
const (
	EventPushState       = "pushState"
	EventStopAllAudio    = "stopAllAudio"
	EventValidationError = "validationError"
	EventPlaybackError   = "playbackError"
)

// ChapterSource resolves chapter numbers to their verses.
type ChapterSource interface {
	Chapter(ctx context.Context, number int) (*quran.Chapter, error)
}

// Options configures a Server.
type Options struct {
	Service  playback.Service
	Bus      *broadcast.Bus
	Chapters ChapterSource
	Logger   *log.Logger

	// RequestTimeout bounds chapter lookups made on behalf of a client.
	RequestTimeout time.Duration
}

// Server handles Socket.IO connections and HTTP requests.
type Server struct {
	io       *socket.Server
	mux      *http.ServeMux
	service  playback.Service
	bus      *broadcast.Bus
	chapters ChapterSource
	logger   *log.Logger
	timeout  time.Duration

	// emit broadcasts to every connected socket.
	emit func(event string, payload any)

	mu      sync.RWMutex
	clients map[string]*socket.Socket

	unsubscribe func()
	closeOnce   sync.Once
}

// New creates a server. It relays every "stop all audio" raised on the
// bus to connected clients.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ioOpts := socket.DefaultServerOptions()
	ioOpts.SetPingTimeout(20 * time.Second)
	ioOpts.SetPingInterval(25 * time.Second)
	ioOpts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:       socket.NewServer(nil, ioOpts),
		mux:      http.NewServeMux(),
		service:  opts.Service,
		bus:      opts.Bus,
		chapters: opts.Chapters,
		logger:   logger.With("component", "server"),
		timeout:  timeout,
		clients:  make(map[string]*socket.Socket),
	}
	s.emit = func(event string, payload any) {
		s.io.Emit(event, payload)
	}

	s.setupHandlers()
	s.routes()

	if s.bus != nil {
		s.unsubscribe = s.bus.OnStopAll(func(m broadcast.StopAll) {
			s.emit(EventStopAllAudio, stopAllPayload{Source: m.Source, Reason: m.Reason})
		})
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run pushes controller events to every client until ctx is done.
func (s *Server) Run(ctx context.Context) {
	sub := s.service.Subscribe()
	defer s.service.Unsubscribe(sub)
	s.forward(ctx, sub)
}

func (s *Server) forward(ctx context.Context, sub *playback.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case e := <-sub.StateChanged:
			s.emit(EventPushState, e.Current)
		case <-sub.VerseChanged:
			s.emit(EventPushState, s.service.Snapshot())
		case e := <-sub.Error:
			s.emit(EventPlaybackError, errorPayload{
				Operation: e.Operation,
				Chapter:   e.Ref.Chapter,
				Verse:     e.Ref.Verse,
				Message:   e.Err.Error(),
			})
		}
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ClientCount returns the number of connected sockets.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close detaches from the bus and closes every socket.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.io.Close(nil)
	})
	return nil
}

type stopAllPayload struct {
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
}

type errorPayload struct {
	Event     string `json:"event,omitempty"`
	Operation string `json:"operation,omitempty"`
	Chapter   int    `json:"chapter,omitempty"`
	Verse     int    `json:"verse,omitempty"`
	Message   string `json:"message"`
}
