package notify

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/hifz/internal/playback"
)

const loopTimeout = 5000

// ChapterNamer returns a display name for a chapter number, or "" if
// unknown.
type ChapterNamer func(chapter int) string

// LoopFinished builds the notification shown when a bounded repeat
// reaches its target.
func LoopFinished(e playback.LoopComplete, name string) Notification {
	title := fmt.Sprintf("Chapter %d", e.Chapter)
	if name != "" {
		title = fmt.Sprintf("%s (%d)", name, e.Chapter)
	}

	body := "Repeated once"
	if e.LoopCount != 1 {
		body = fmt.Sprintf("Repeated %d times", e.LoopCount)
	}

	return Notification{
		Title:     title,
		Body:      body,
		Icon:      "media-playlist-repeat",
		Timeout:   loopTimeout,
		Urgency:   UrgencyNormal,
		Category:  "x-hifz.repeat",
		Transient: true,
	}
}

// WatchLoops notifies for every finished repeat delivered on sub until
// ctx is cancelled or the subscription closes. Successive notifications
// replace each other. Other events on sub are discarded so they never
// pile up as drops.
func WatchLoops(
	ctx context.Context,
	sub *playback.Subscription,
	n Notifier,
	names ChapterNamer,
	logger *log.Logger,
) {
	var last uint32
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case <-sub.StateChanged:
		case <-sub.VerseChanged:
		case <-sub.Error:
		case e := <-sub.LoopCompleted:
			if !e.Finished {
				continue
			}
			var name string
			if names != nil {
				name = names(e.Chapter)
			}
			notif := LoopFinished(e, name)
			notif.ReplacesID = last
			id, err := n.Notify(ctx, notif)
			if err != nil {
				logger.Warn("notification failed", "chapter", e.Chapter, "err", err)
				continue
			}
			last = id
		}
	}
}
