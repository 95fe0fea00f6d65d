//go:build linux

package notify

import (
	"context"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest      = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyInterface = "org.freedesktop.Notifications"
)

type dbusNotifier struct {
	obj dbus.BusObject
}

// New connects to the session bus. Without one it returns Nop so callers
// never have to special-case headless sessions.
func New() Notifier {
	conn, err := dbus.SessionBus()
	if err != nil {
		return Nop{}
	}
	return &dbusNotifier{obj: conn.Object(notifyDest, notifyPath)}
}

func (d *dbusNotifier) Notify(ctx context.Context, n Notification) (uint32, error) {
	// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout)
	call := d.obj.CallWithContext(ctx, notifyInterface+".Notify", 0,
		appName, n.ReplacesID, n.Icon, n.Title, n.Body, []string{}, hints(n), n.Timeout)
	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (d *dbusNotifier) Close(ctx context.Context, id uint32) error {
	return d.obj.CallWithContext(ctx, notifyInterface+".CloseNotification", 0, id).Err
}

func hints(n Notification) map[string]dbus.Variant {
	h := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant(appName),
	}
	if n.Category != "" {
		h["category"] = dbus.MakeVariant(n.Category)
	}
	if n.Transient {
		h["transient"] = dbus.MakeVariant(true)
	}
	return h
}
