package domain

import (
	"strings"
	"time"
)

// Field bounds shared by validation and the HTTP layer.
const (
	MaxNameLength        = 120
	MaxSummaryLength     = 160
	MaxDescriptionLength = 600000
)

// Newsletter is a named publication with a home content page, a set of
// publishers who may announce issues, and a set of subscribers who are
// notified when an issue is announced.
type Newsletter struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	MainPageRef string    `json:"main_page_ref" db:"main_page_ref"`
	Deleted     bool      `json:"deleted" db:"deleted"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Issue is one announced publication event. Issues are append-only: once
// recorded they are never mutated or deleted, even if their newsletter is.
type Issue struct {
	ID           int64     `json:"id" db:"id"`
	NewsletterID int64     `json:"newsletter_id" db:"newsletter_id"`
	PageRef      string    `json:"page_ref" db:"page_ref"`
	PublisherID  string    `json:"publisher_id" db:"publisher_id"`
	Summary      string    `json:"summary" db:"summary"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Role enumerates membership roles. A user may hold both roles for the same
// newsletter independently.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// Actor identifies who is performing an operation. The zero value is the
// anonymous actor.
type Actor struct {
	ID            string `json:"id"`
	Authenticated bool   `json:"authenticated"`
}

// ValidName reports whether a newsletter name is within bounds. Names are
// trimmed before storage; a whitespace-only name is invalid.
func ValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && len(name) <= MaxNameLength
}

// ValidSummary reports whether an issue summary is within bounds. Empty
// summaries are allowed.
func ValidSummary(summary string) bool {
	return len(strings.TrimSpace(summary)) <= MaxSummaryLength
}

// ValidDescription reports whether a newsletter description is within bounds.
func ValidDescription(desc string) bool {
	return len(desc) <= MaxDescriptionLength
}
