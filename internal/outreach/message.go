package outreach

import (
	"fmt"

	"github.com/osteele/liquid"
)

// DefaultMessageTemplate is the first-contact SMS body. Bindings:
// name (candidate), recruiter (project display name), link (deep link
// back to the candidate record).
const DefaultMessageTemplate = `Bonjour {{ name }}, je suis l'assistant IA de {{ recruiter }}. Seriez-vous disponible pour un échange de 5 min ? {{ link }}`

// genericRecruiter is used when the project lookup fails or the project
// carries no usable name.
const genericRecruiter = "notre équipe"

// MessageBuilder renders the outreach SMS from a Liquid template parsed
// once at construction.
type MessageBuilder struct {
	tpl        *liquid.Template
	appBaseURL string
}

// NewMessageBuilder parses the template. An empty source falls back to
// DefaultMessageTemplate.
func NewMessageBuilder(source, appBaseURL string) (*MessageBuilder, error) {
	if source == "" {
		source = DefaultMessageTemplate
	}
	tpl, err := liquid.NewEngine().ParseString(source)
	if err != nil {
		return nil, fmt.Errorf("parse message template: %w", err)
	}
	return &MessageBuilder{tpl: tpl, appBaseURL: appBaseURL}, nil
}

// Build renders the SMS body for one candidate.
func (b *MessageBuilder) Build(candidateID int64, candidateName, recruiterName string) (string, error) {
	if candidateName == "" {
		candidateName = "candidat"
	}
	if recruiterName == "" {
		recruiterName = genericRecruiter
	}
	return b.tpl.RenderString(map[string]interface{}{
		"name":      candidateName,
		"recruiter": recruiterName,
		"link":      fmt.Sprintf("%s/candidat/%d", b.appBaseURL, candidateID),
	})
}
