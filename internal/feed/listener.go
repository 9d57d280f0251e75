// Package feed delivers row-change events for the candidates table.
//
// Postgres triggers publish a JSON payload on NOTIFY channels
// (candidates_insert, candidates_update), one per row change, carrying
// the new row snapshot and, for updates, the previous one. The listener
// turns those notifications into Event values on a channel. No ordering
// guarantee is added on top of what NOTIFY provides, and nothing is
// buffered across reconnects: a notification that fires while the
// connection is down is gone.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

// Channel names the migration triggers publish on.
const (
	ChannelInsert = "candidates_insert"
	ChannelUpdate = "candidates_update"
)

// Op is the row operation an event describes.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
)

// Event is one row change. New is always present; Old only on updates.
type Event struct {
	Op  Op              `json:"op"`
	New json.RawMessage `json:"new"`
	Old json.RawMessage `json:"old,omitempty"`
}

// Listener subscribes to the candidate change channels on one Postgres
// connection and fans notifications into Events().
type Listener struct {
	pl     *pq.Listener
	events chan Event
	done   chan struct{}
}

// NewListener connects a dedicated LISTEN connection. The DSN is the
// same one the main pool uses.
func NewListener(dsn string) (*Listener, error) {
	pl := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("[Feed] listener event %d: %v", ev, err)
		}
	})

	for _, ch := range []string{ChannelInsert, ChannelUpdate} {
		if err := pl.Listen(ch); err != nil {
			pl.Close()
			return nil, fmt.Errorf("listen %s: %w", ch, err)
		}
	}

	return &Listener{
		pl:     pl,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}, nil
}

// Events returns the stream of row changes.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Start runs the receive loop until the context is cancelled or Stop is
// called. Malformed payloads are logged and dropped, never fatal.
func (l *Listener) Start(ctx context.Context) {
	log.Printf("[Feed] listening on %s, %s", ChannelInsert, ChannelUpdate)
	go func() {
		defer close(l.events)
		for {
			select {
			case <-ctx.Done():
				l.pl.Close()
				return
			case <-l.done:
				l.pl.Close()
				return
			case n := <-l.pl.Notify:
				if n == nil {
					// Reconnect marker from pq; nothing to deliver.
					continue
				}
				evt, err := parseNotification(n.Channel, n.Extra)
				if err != nil {
					log.Printf("[Feed] dropping bad payload on %s: %v", n.Channel, err)
					continue
				}
				l.events <- evt
			case <-time.After(90 * time.Second):
				// Keep the connection honest during quiet periods.
				go l.pl.Ping()
			}
		}
	}()
}

// Stop terminates the receive loop and closes the LISTEN connection.
func (l *Listener) Stop() {
	close(l.done)
}

// parseNotification maps a NOTIFY payload to an Event. The trigger
// publishes {"new": {...}} on insert and {"new": {...}, "old": {...}}
// on update; the op comes from the channel name.
func parseNotification(channel, payload string) (Event, error) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return Event{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	if len(evt.New) == 0 {
		return Event{}, fmt.Errorf("payload missing new row")
	}
	switch channel {
	case ChannelInsert:
		evt.Op = OpInsert
	case ChannelUpdate:
		evt.Op = OpUpdate
	default:
		return Event{}, fmt.Errorf("unknown channel %q", channel)
	}
	return evt, nil
}
