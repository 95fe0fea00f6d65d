// Package playback sequences verse clips: one verse, a whole chapter, or a
// range of verses, optionally repeated.
package playback

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/llehouerou/hifz/internal/broadcast"
	"github.com/llehouerou/hifz/internal/clip"
	"github.com/llehouerou/hifz/internal/player"
)

// DefaultDelay separates consecutive clips in Sequential and Range mode.
const DefaultDelay = 500 * time.Millisecond

// Loader resolves a clip reference to playable audio. Load may block for
// as long as ctx allows.
type Loader interface {
	Load(ctx context.Context, ref clip.Ref) (*clip.Clip, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, ref clip.Ref) (*clip.Clip, error)

func (f LoaderFunc) Load(ctx context.Context, ref clip.Ref) (*clip.Clip, error) {
	return f(ctx, ref)
}

// Callbacks are invoked outside the controller lock, from whichever
// goroutine caused the transition. They may call back into the controller.
type Callbacks struct {
	OnPlaying func(ref clip.Ref)            // sound started
	OnError   func(ref clip.Ref, err error) // Single-mode load or play failure
	OnEnded   func(ref clip.Ref)            // clip finished normally
}

// Options configures a Controller.
type Options struct {
	Loader Loader
	Engine player.Interface
	Bus    *broadcast.Bus // optional; the controller stops on StopAll
	Delay  time.Duration  // negative means DefaultDelay, zero means none
	Logger *log.Logger
	Callbacks
}

// Controller owns at most one playback session. Every transition happens
// under one mutex, so queries observe it as soon as it is made.
type Controller struct {
	loader Loader
	engine player.Interface
	delay  time.Duration
	logger *log.Logger
	cb     Callbacks

	unsubscribe func()

	mu      sync.Mutex
	session *session
	last    *request
	closed  bool

	subsMu     sync.RWMutex
	subs       []*Subscription
	subsClosed bool
}

// New creates a controller. Loader and Engine are required.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	delay := opts.Delay
	if delay < 0 {
		delay = DefaultDelay
	}

	c := &Controller{
		loader: opts.Loader,
		engine: opts.Engine,
		delay:  delay,
		logger: logger.With("component", "playback"),
		cb:     opts.Callbacks,
	}
	if opts.Bus != nil {
		c.unsubscribe = opts.Bus.OnStopAll(c.handleStopAll)
	}
	return c
}

// batch collects callbacks to run once the lock is released.
type batch []func()

func (b *batch) add(fn func()) { *b = append(*b, fn) }

func (b batch) run() {
	for _, fn := range b {
		fn()
	}
}

// PlaySingle plays one verse. Calling it again for the verse a Single
// session is on stops playback instead.
func (c *Controller) PlaySingle(ch Chapter, verse int) error {
	if err := validateChapter(ch); err != nil {
		return err
	}
	if verse < 1 || verse > ch.VerseCount {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidVerse, verse, ch.VerseCount)
	}

	return c.start(request{mode: ModeSingle, chapter: ch, start: verse, end: verse}, true)
}

// PlaySequential plays the whole chapter from verse 1. loopTarget is the
// number of passes before stopping; 0 repeats until stopped.
func (c *Controller) PlaySequential(ch Chapter, loopTarget int) error {
	if err := validateChapter(ch); err != nil {
		return err
	}
	if loopTarget < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLoopTarget, loopTarget)
	}
	return c.start(request{
		mode:       ModeSequential,
		chapter:    ch,
		start:      1,
		end:        ch.VerseCount,
		loopTarget: loopTarget,
	}, false)
}

// PlayRange plays verses start..end inclusive, repeating loopTarget times
// (0 repeats until stopped). Invalid bounds return a *RangeError and leave
// any active session untouched.
func (c *Controller) PlayRange(ch Chapter, start, end, loopTarget int) error {
	if err := validateChapter(ch); err != nil {
		return err
	}
	if start < 1 || start > end || end > ch.VerseCount {
		return &RangeError{Start: start, End: end, Length: ch.VerseCount}
	}
	if loopTarget < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLoopTarget, loopTarget)
	}
	return c.start(request{
		mode:       ModeRange,
		chapter:    ch,
		start:      start,
		end:        end,
		loopTarget: loopTarget,
	}, false)
}

// Restart starts the most recent session definition again from its first
// verse.
func (c *Controller) Restart() error {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()

	if last == nil {
		return ErrNothingToRestart
	}
	return c.start(*last, false)
}

// start replaces the session with one for req. With toggle set, a Single
// session already on the requested verse is stopped instead; the check and
// the replacement happen under one lock.
func (c *Controller) start(req request, toggle bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if s := c.session; toggle && s != nil && s.req.mode == ModeSingle &&
		s.req.chapter.Number == req.chapter.Number && s.index == req.start {
		c.stopLocked("toggle")
		c.mu.Unlock()
		return nil
	}

	c.stopLocked("replaced")

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		req:    req,
		index:  req.start,
		status: StatusLoading,
		ctx:    ctx,
		cancel: cancel,
	}
	c.session = s
	c.last = &req

	c.logger.Info("session started",
		"session", s.id,
		"mode", req.mode,
		"chapter", req.chapter.Number,
		"start", req.start,
		"end", req.end,
		"loop_target", req.loopTarget,
	)

	c.emitState(Snapshot{}, s.snapshot())
	c.emitVerse(VerseChange{SessionID: s.id, Chapter: req.chapter.Number, Verse: s.index})

	seq, ref := s.clipSeq, s.ref()
	c.mu.Unlock()

	go c.playClip(s, seq, ref, 0)
	return nil
}

// playClip loads ref after wait and hands it to the engine, unless the
// session moved on in the meantime.
func (c *Controller) playClip(s *session, seq uint64, ref clip.Ref, wait time.Duration) {
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
		}
	}

	cl, err := c.loader.Load(s.ctx, ref)
	var reciter string
	if err == nil {
		reciter = cl.Reciter()
	}

	var b batch
	c.mu.Lock()
	if !c.currentLocked(s, seq) {
		c.mu.Unlock()
		return
	}

	if err != nil {
		c.clipFailedLocked(s, ref, "load", err, &b)
		c.mu.Unlock()
		b.run()
		return
	}

	done := func(err error) { c.clipFinished(s, seq, ref, err) }
	if err := c.engine.Play(cl, done); err != nil {
		c.clipFailedLocked(s, ref, "play", err, &b)
		c.mu.Unlock()
		b.run()
		return
	}

	prev := s.snapshot()
	s.status = StatusSounding
	if reciter != "" {
		s.reciter = reciter
	}
	c.emitState(prev, s.snapshot())
	c.logger.Debug("clip sounding", "session", s.id, "ref", ref)
	if c.cb.OnPlaying != nil {
		b.add(func() { c.cb.OnPlaying(ref) })
	}
	c.mu.Unlock()
	b.run()
}

// clipFinished is the engine's done callback for one clip.
func (c *Controller) clipFinished(s *session, seq uint64, ref clip.Ref, err error) {
	var b batch
	c.mu.Lock()
	if !c.currentLocked(s, seq) {
		c.mu.Unlock()
		return
	}

	if err != nil {
		c.clipFailedLocked(s, ref, "play", err, &b)
	} else {
		if c.cb.OnEnded != nil {
			b.add(func() { c.cb.OnEnded(ref) })
		}
		c.advanceLocked(s)
	}
	c.mu.Unlock()
	b.run()
}

func (c *Controller) currentLocked(s *session, seq uint64) bool {
	return c.session == s && s.clipSeq == seq
}

// clipFailedLocked ends a Single session with an error; other modes log
// and carry on as if the clip had ended.
func (c *Controller) clipFailedLocked(s *session, ref clip.Ref, op string, err error, b *batch) {
	if s.req.mode != ModeSingle {
		c.logger.Warn("clip failed, skipping", "session", s.id, "ref", ref, "op", op, "err", err)
		c.advanceLocked(s)
		return
	}

	c.logger.Error("clip failed", "session", s.id, "ref", ref, "op", op, "err", err)
	c.emitError(ErrorEvent{Operation: op, Ref: ref, Err: err})
	if c.cb.OnError != nil {
		b.add(func() { c.cb.OnError(ref, err) })
	}
	c.endLocked(s)
}

// advanceLocked moves the session past the clip that just ended.
func (c *Controller) advanceLocked(s *session) {
	if s.req.mode == ModeSingle {
		c.endLocked(s)
		return
	}

	first, last := s.bounds()
	next := s.index + 1
	if next > last {
		s.loopCount++
		finished := s.req.loopTarget > 0 && s.loopCount >= s.req.loopTarget
		c.emitLoop(LoopComplete{
			SessionID:  s.id,
			Chapter:    s.req.chapter.Number,
			LoopCount:  s.loopCount,
			LoopTarget: s.req.loopTarget,
			Finished:   finished,
		})
		c.logger.Debug("pass completed", "session", s.id, "loop", s.loopCount, "target", s.req.loopTarget)
		if finished {
			c.endLocked(s)
			return
		}
		next = first
	}

	prevSnap := s.snapshot()
	prevIndex := s.index
	s.index = next
	s.status = StatusLoading
	s.clipSeq++

	c.emitState(prevSnap, s.snapshot())
	c.emitVerse(VerseChange{
		SessionID: s.id,
		Chapter:   s.req.chapter.Number,
		Previous:  prevIndex,
		Verse:     next,
		LoopCount: s.loopCount,
	})

	go c.playClip(s, s.clipSeq, s.ref(), c.delay)
}

// endLocked destroys a session that completed on its own.
func (c *Controller) endLocked(s *session) {
	prev := s.snapshot()
	s.cancel()
	s.status = StatusIdle
	c.session = nil
	c.emitState(prev, Snapshot{})
	c.logger.Info("session ended", "session", s.id, "loops", s.loopCount)
}

// Stop stops playback. It is safe to call when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked("stop")
}

func (c *Controller) stopLocked(reason string) {
	s := c.session
	if s == nil {
		return
	}
	prev := s.snapshot()
	s.cancel()
	s.status = StatusIdle
	c.session = nil
	c.engine.Stop()
	c.emitState(prev, Snapshot{})
	c.logger.Info("session stopped", "session", s.id, "reason", reason)
}

func (c *Controller) handleStopAll(m broadcast.StopAll) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.stopLocked("stop all audio from " + m.Source)
	}
}

// IsPlaying reports whether the active session is on chapter:verse,
// either loading it or sounding it.
func (c *Controller) IsPlaying(chapter, verse int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	return s != nil && s.status.IsActive() &&
		s.req.chapter.Number == chapter && s.index == verse
}

// Snapshot returns a copy of the active session, or an Idle snapshot.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Snapshot{}
	}
	return c.session.snapshot()
}

// Subscribe creates a new event subscription.
func (c *Controller) Subscribe() *Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	sub := newSubscription()
	if c.subsClosed {
		sub.close()
		return sub
	}
	c.subs = append(c.subs, sub)
	return sub
}

// Unsubscribe ends sub and closes its Done channel. Unknown or already
// ended subscriptions are ignored.
func (c *Controller) Unsubscribe(sub *Subscription) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = slices.Delete(c.subs, i, i+1)
			sub.close()
			return
		}
	}
}

// Close stops playback, detaches from the broadcast bus and ends every
// subscription. The engine is left to its owner.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.stopLocked("close")
	c.closed = true
	c.mu.Unlock()

	if c.unsubscribe != nil {
		c.unsubscribe()
	}

	c.subsMu.Lock()
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	c.subsClosed = true
	c.subsMu.Unlock()

	return nil
}

func (c *Controller) emitState(prev, cur Snapshot) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendState(StateChange{Previous: prev, Current: cur})
	}
}

func (c *Controller) emitVerse(e VerseChange) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendVerse(e)
	}
}

func (c *Controller) emitLoop(e LoopComplete) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendLoop(e)
	}
}

func (c *Controller) emitError(e ErrorEvent) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendError(e)
	}
}
