package playback

import "sync/atomic"

const eventBufferSize = 16

// Subscription delivers controller events on buffered channels. The
// controller never waits on a subscriber: an event that does not fit is
// dropped and counted.
type Subscription struct {
	StateChanged  <-chan StateChange
	VerseChanged  <-chan VerseChange
	LoopCompleted <-chan LoopComplete
	Error         <-chan ErrorEvent
	Done          <-chan struct{} // closed by Unsubscribe or Close

	stateCh chan StateChange
	verseCh chan VerseChange
	loopCh  chan LoopComplete
	errorCh chan ErrorEvent
	doneCh  chan struct{}

	dropped atomic.Uint64
}

func newSubscription() *Subscription {
	s := &Subscription{
		stateCh: make(chan StateChange, eventBufferSize),
		verseCh: make(chan VerseChange, eventBufferSize),
		loopCh:  make(chan LoopComplete, eventBufferSize),
		errorCh: make(chan ErrorEvent, eventBufferSize),
		doneCh:  make(chan struct{}),
	}
	s.StateChanged, s.VerseChanged = s.stateCh, s.verseCh
	s.LoopCompleted, s.Error = s.loopCh, s.errorCh
	s.Done = s.doneCh
	return s
}

// Dropped reports how many events were discarded because the subscriber
// fell behind.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscription) close() { close(s.doneCh) }

func offer[E any](s *Subscription, ch chan E, e E) {
	select {
	case ch <- e:
	default:
		s.dropped.Add(1)
	}
}

func (s *Subscription) sendState(e StateChange) { offer(s, s.stateCh, e) }
func (s *Subscription) sendVerse(e VerseChange) { offer(s, s.verseCh, e) }
func (s *Subscription) sendLoop(e LoopComplete) { offer(s, s.loopCh, e) }
func (s *Subscription) sendError(e ErrorEvent)  { offer(s, s.errorCh, e) }
