package enrich

import (
	"context"
	"errors"
	"log"

	"github.com/hunterai/recruit-engine/internal/candidate"
)

// CandidateStore is the subset of the repository the handler writes
// through.
type CandidateStore interface {
	ApplyEnrichment(ctx context.Context, id int64, email, phone string) (bool, error)
	SetStatus(ctx context.Context, id int64, status candidate.Status) error
}

// Handler reacts to candidate inserts. The reactor invokes it for every
// insert event; the handler itself filters by status, so any row that is
// not awaiting enrichment is a no-op.
type Handler struct {
	client *Client
	store  CandidateStore
}

// NewHandler creates an enrichment handler.
func NewHandler(client *Client, store CandidateStore) *Handler {
	return &Handler{client: client, store: store}
}

// HandleInsert runs the enrichment flow for one inserted row. Errors are
// never returned: every failure path converges to the enrichment error
// status so the feed subscription stays alive regardless of outcome.
func (h *Handler) HandleInsert(ctx context.Context, rec *candidate.Record) {
	if rec.Status != candidate.StatusNeedsEnrichment {
		log.Printf("[Enrich] candidate %d skipped - status %s (expected %s)",
			rec.ID, rec.Status, candidate.StatusNeedsEnrichment)
		return
	}

	if rec.LinkedInURL == "" {
		log.Printf("[Enrich] candidate %d has no linkedin_url, marking error", rec.ID)
		h.markError(ctx, rec.ID)
		return
	}

	if !h.client.Configured() {
		log.Printf("[Enrich] API key not configured, marking candidate %d as error", rec.ID)
		h.markError(ctx, rec.ID)
		return
	}

	log.Printf("[Enrich] enriching candidate %d (%s)", rec.ID, rec.LinkedInURL)

	profile, err := h.client.Enrich(ctx, rec.LinkedInURL)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			log.Printf("[Enrich] candidate %d: HTTP %d: %s", rec.ID, apiErr.StatusCode, apiErr.Body)
		} else {
			log.Printf("[Enrich] candidate %d: %v", rec.ID, err)
		}
		h.markError(ctx, rec.ID)
		return
	}

	if profile.Email == "" && profile.Phone == "" {
		log.Printf("[Enrich] WARNING: candidate %d enriched with no email and no phone", rec.ID)
	} else if profile.Phone == "" {
		log.Printf("[Enrich] WARNING: candidate %d enriched without phone", rec.ID)
	} else if profile.Email == "" {
		log.Printf("[Enrich] WARNING: candidate %d enriched without email", rec.ID)
	}

	ok, err := h.store.ApplyEnrichment(ctx, rec.ID, profile.Email, profile.Phone)
	if err != nil {
		// Provider call succeeded but the write failed; the enriched
		// data is lost on this path. Best-effort error convergence.
		log.Printf("[Enrich] candidate %d write-back failed: %v", rec.ID, err)
		h.markError(ctx, rec.ID)
		return
	}
	if !ok {
		// A concurrent writer moved the row off A_ENRICHIR while the
		// provider call was in flight; drop our write.
		log.Printf("[Enrich] candidate %d changed status mid-flight, enrichment dropped", rec.ID)
		return
	}

	log.Printf("[Enrich] candidate %d: %s -> %s (email=%v phone=%v)",
		rec.ID, candidate.StatusNeedsEnrichment, candidate.StatusReadyForOutreach,
		profile.Email != "", profile.Phone != "")
}

func (h *Handler) markError(ctx context.Context, id int64) {
	if err := h.store.SetStatus(ctx, id, candidate.StatusEnrichmentError); err != nil {
		log.Printf("[Enrich] CRITICAL: failed to mark candidate %d as %s: %v",
			id, candidate.StatusEnrichmentError, err)
	}
}
