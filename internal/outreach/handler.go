package outreach

import (
	"context"
	"log"

	"github.com/hunterai/recruit-engine/internal/candidate"
)

// CandidateStore is the subset of the repository the handler writes
// through.
type CandidateStore interface {
	MarkContacted(ctx context.Context, id int64) (bool, error)
}

// ProjectStore looks up the owning project for message templating.
type ProjectStore interface {
	Get(ctx context.Context, id int64) (*candidate.Project, error)
}

// Handler reacts to candidate updates. The reactor invokes it for every
// update event; the handler fires only on the edge where a row enters
// PRET_SEQUENCE. Update events fire on every field change, so comparing
// against the previous status is what keeps an unrelated edit on an
// already-ready row from re-triggering outreach.
type Handler struct {
	transport  MessageTransport
	candidates CandidateStore
	projects   ProjectStore
	messages   *MessageBuilder
}

// NewHandler creates an outreach handler.
func NewHandler(transport MessageTransport, candidates CandidateStore, projects ProjectStore, messages *MessageBuilder) *Handler {
	return &Handler{
		transport:  transport,
		candidates: candidates,
		projects:   projects,
		messages:   messages,
	}
}

// HandleUpdate runs the outreach flow for one updated row. Errors never
// escape: a failed send is logged and the row stays in PRET_SEQUENCE,
// which means no automatic retry until something else touches the status.
func (h *Handler) HandleUpdate(ctx context.Context, oldRec, newRec *candidate.Record) {
	if newRec.Status != candidate.StatusReadyForOutreach {
		return
	}
	if oldRec != nil && oldRec.Status == candidate.StatusReadyForOutreach {
		// Not an edge: the row was already ready before this update.
		return
	}
	if newRec.Phone == "" {
		// Deliberate no-op, no error state: the row waits in
		// PRET_SEQUENCE for a manual phone entry.
		log.Printf("[Outreach] candidate %d ready but has no phone, skipping", newRec.ID)
		return
	}

	recruiter := ""
	if newRec.ProjectID != 0 {
		project, err := h.projects.Get(ctx, newRec.ProjectID)
		if err != nil {
			log.Printf("[Outreach] project %d lookup failed, using generic name: %v", newRec.ProjectID, err)
		} else {
			recruiter = project.DisplayName()
		}
	}

	body, err := h.messages.Build(newRec.ID, newRec.FullName, recruiter)
	if err != nil {
		log.Printf("[Outreach] candidate %d message render failed: %v", newRec.ID, err)
		return
	}

	log.Printf("[Outreach] sending first-contact SMS to candidate %d via %s", newRec.ID, h.transport.Name())

	result, err := h.transport.Send(ctx, newRec.Phone, body)
	if err != nil {
		// Status stays PRET_SEQUENCE. Fire-and-forget: no retry queue.
		log.Printf("[Outreach] candidate %d send failed: %v", newRec.ID, err)
		return
	}

	ok, err := h.candidates.MarkContacted(ctx, newRec.ID)
	if err != nil {
		log.Printf("[Outreach] candidate %d contacted but status write failed: %v", newRec.ID, err)
		return
	}
	if !ok {
		log.Printf("[Outreach] candidate %d changed status mid-send, contact stamp dropped", newRec.ID)
		return
	}

	log.Printf("[Outreach] candidate %d: %s -> %s (provider=%s id=%s)",
		newRec.ID, candidate.StatusReadyForOutreach, candidate.StatusContacted,
		result.Provider, result.MessageID)
}
