//go:build !linux

package notify

// New returns Nop: desktop notifications are only wired on Linux.
func New() Notifier {
	return Nop{}
}
