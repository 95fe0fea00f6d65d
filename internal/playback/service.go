package playback

// Service is the playback contract consumed by the TUI, the network
// server and the desktop integrations.
type Service interface {
	// Starting playback
	PlaySingle(ch Chapter, verse int) error
	PlaySequential(ch Chapter, loopTarget int) error
	PlayRange(ch Chapter, start, end, loopTarget int) error
	Restart() error

	Stop()

	// State queries
	IsPlaying(chapter, verse int) bool
	Snapshot() Snapshot

	// Event subscription
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)
}

// Verify Controller implements Service at compile time.
var _ Service = (*Controller)(nil)
