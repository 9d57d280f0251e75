package candidate

// Status is a candidate lifecycle state. The string values are persisted
// verbatim in the store and must not change without a data migration.
type Status string

const (
	// Automated pipeline states.
	StatusNeedsEnrichment  Status = "A_ENRICHIR"
	StatusReadyForOutreach Status = "PRET_SEQUENCE"
	StatusContacted        Status = "CONTACTE"
	StatusEnrichmentError  Status = "ERRE_ENRICHISSEMENT"

	// Downstream states written by external conversational/voice agents.
	// They arrive through the same change feed as opaque updates.
	StatusResponded Status = "REPONDU"
	StatusQualified Status = "QUALIFIE"
	StatusScheduled Status = "RDV_PLANIFIE"
)

// Display labels used by the dashboard only. The reactor never reads these.
var displayLabels = map[Status]string{
	StatusNeedsEnrichment:  "En attente",
	StatusReadyForOutreach: "Prêt pour séquence",
	StatusContacted:        "Contacté",
	StatusEnrichmentError:  "Erreur d'enrichissement",
	StatusResponded:        "A répondu",
	StatusQualified:        "Préqualifié",
	StatusScheduled:        "RDV planifié",
}

// transitions is the single source of truth for legal status moves.
// The graph is monotonic: no edge points backward except into the
// enrichment error state.
var transitions = map[Status][]Status{
	StatusNeedsEnrichment:  {StatusReadyForOutreach, StatusEnrichmentError},
	StatusReadyForOutreach: {StatusContacted},
	StatusContacted:        {StatusResponded, StatusQualified},
	StatusResponded:        {StatusQualified},
	StatusQualified:        {StatusScheduled},
	StatusEnrichmentError:  {},
	StatusScheduled:        {},
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Label returns the dashboard display label for s, or the raw value if
// none is registered.
func (s Status) Label() string {
	if l, ok := displayLabels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether no further automated or agent-driven
// transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether moving a record from old to new follows
// the lifecycle graph. Unknown statuses never transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllStatuses returns the closed status set in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusNeedsEnrichment,
		StatusReadyForOutreach,
		StatusContacted,
		StatusResponded,
		StatusQualified,
		StatusScheduled,
		StatusEnrichmentError,
	}
}
