// Package reactor dispatches change-feed events to the status handlers.
// It is a stateless dispatcher: all filtering lives in the handlers,
// evaluated against the specific event's old/new snapshots.
package reactor

import (
	"context"
	"log"
	"sync"

	"github.com/hunterai/recruit-engine/internal/candidate"
	"github.com/hunterai/recruit-engine/internal/feed"
)

// InsertHandler reacts to a row insert.
type InsertHandler interface {
	HandleInsert(ctx context.Context, rec *candidate.Record)
}

// UpdateHandler reacts to a row update. old may be nil if the feed did
// not carry a previous snapshot.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, oldRec, newRec *candidate.Record)
}

// Reactor fans feed events out to the handlers, one goroutine per
// event. Handlers for different candidates run concurrently; nothing
// serializes events for the same candidate.
type Reactor struct {
	inserts InsertHandler
	updates UpdateHandler
	wg      sync.WaitGroup
}

// New creates a reactor over the two handlers.
func New(inserts InsertHandler, updates UpdateHandler) *Reactor {
	return &Reactor{inserts: inserts, updates: updates}
}

// Run consumes events until the channel closes or the context is
// cancelled, then waits for in-flight handlers to finish. A handler
// panic is recovered and logged; the subscription must never die with
// one bad event.
func (r *Reactor) Run(ctx context.Context, events <-chan feed.Event) {
	log.Printf("[Reactor] started")
	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			return
		case evt, ok := <-events:
			if !ok {
				r.wg.Wait()
				log.Printf("[Reactor] feed closed, stopping")
				return
			}
			r.dispatch(ctx, evt)
		}
	}
}

func (r *Reactor) dispatch(ctx context.Context, evt feed.Event) {
	newRec, err := candidate.ParseRecord(evt.New)
	if err != nil {
		log.Printf("[Reactor] dropping %s event with bad new snapshot: %v", evt.Op, err)
		return
	}

	var oldRec *candidate.Record
	if len(evt.Old) > 0 {
		oldRec, err = candidate.ParseRecord(evt.Old)
		if err != nil {
			log.Printf("[Reactor] %s event for candidate %d has bad old snapshot, treating as absent: %v",
				evt.Op, newRec.ID, err)
			oldRec = nil
		}
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[Reactor] handler panic on %s for candidate %d: %v", evt.Op, newRec.ID, rec)
			}
		}()

		switch evt.Op {
		case feed.OpInsert:
			r.inserts.HandleInsert(ctx, newRec)
		case feed.OpUpdate:
			r.updates.HandleUpdate(ctx, oldRec, newRec)
		default:
			log.Printf("[Reactor] unknown op %q for candidate %d", evt.Op, newRec.ID)
		}
	}()
}
