// Package candidate holds the core domain model for the recruiting
// pipeline: candidate records, the closed status set, and the transition
// table that every automated status write is checked against.
package candidate

import (
	"encoding/json"
	"time"
)

// Record is a single candidate row. IDs are assigned by Postgres on
// insert; ProjectID is required and immutable after creation.
type Record struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	FullName    string     `json:"full_name,omitempty"`
	LinkedInURL string     `json:"linkedin_url"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DateContact *time.Time `json:"date_contact,omitempty"`
}

// Project is the owning job opening. Only the fields the outreach
// handler needs for message templating are modeled here.
type Project struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	RecruiterName string `json:"recruiter_name,omitempty"`
}

// DisplayName returns the name to sign outreach messages with,
// preferring the recruiter over the project title.
func (p *Project) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.RecruiterName != "" {
		return p.RecruiterName
	}
	return p.Name
}

// ParseRecord decodes a row snapshot from a change-feed payload.
func ParseRecord(raw json.RawMessage) (*Record, error) {
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
