// Package updater runs the scan, fetch, plan, backup and download phases of
// an update run.
package updater

import "context"

// EventKind identifies a progress event.
type EventKind string

const (
	EventStatus        EventKind = "status"
	EventCheck         EventKind = "check"
	EventDownloadStart EventKind = "download_start"
	EventDownloaded    EventKind = "download_success"
	EventError         EventKind = "error"
	EventSummary       EventKind = "summary"
)

// Event is a progress update sent to an optional observer.
type Event struct {
	Kind    EventKind
	Mod     string // mod name, empty for run-level events
	Version string
	Message string
}

// notifier forwards events to a channel without outliving ctx.
type notifier struct {
	ctx context.Context
	ch  chan<- Event
}

func (n notifier) send(e Event) {
	if n.ch == nil {
		return
	}
	select {
	case n.ch <- e:
	case <-n.ctx.Done():
	}
}
