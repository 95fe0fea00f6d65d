// Package notify sends freedesktop desktop notifications, used to tell the
// listener that a bounded repeat has finished.
package notify

import "context"

const appName = "hifz"

// Urgency is the freedesktop "urgency" hint.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification is one desktop notification.
type Notification struct {
	Title      string
	Body       string
	Icon       string // icon theme name
	Timeout    int32  // ms; -1 server default, 0 never expires
	ReplacesID uint32 // id of a notification to update in place
	Urgency    Urgency
	Category   string // e.g. "x-hifz.repeat"
	Transient  bool   // skip the notification history
}

// Notifier delivers notifications. Implementations that have no server to
// talk to return id 0 and no error.
type Notifier interface {
	Notify(ctx context.Context, n Notification) (uint32, error)
	Close(ctx context.Context, id uint32) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) (uint32, error) { return 0, nil }

func (Nop) Close(context.Context, uint32) error { return nil }
