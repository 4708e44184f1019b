// Package offering contains the Offering aggregate: a student's posted
// request for tutoring help, its status lifecycle, and its domain events.
package offering

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

// Status is the lifecycle state of an offering.
type Status string

const (
	// StatusPending - posted, waiting for a tutor. Owner may still edit.
	StatusPending Status = "pending"

	// StatusOpen - published and visible, no longer editable.
	StatusOpen Status = "open"

	// StatusAccepted - a verified tutor took the offering. Messaging opens.
	StatusAccepted Status = "accepted"

	// StatusCompleted - terminal. Attachments become eligible for cleanup.
	StatusCompleted Status = "completed"

	// StatusCancelled - terminal. Attachments become eligible for cleanup.
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusOpen, StatusAccepted, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Attachment is one uploaded file on an offering or message.
type Attachment struct {
	Path         string `json:"path"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	MIMEType     string `json:"mime_type"`
}

// CleanupRetention is how long a terminal offering keeps its attachments
// before a cleanup pass may null them out.
const CleanupRetention = 30 * 24 * time.Hour

// Offering is a student's posted request for tutoring help.
//
// Invariants:
//   - TutorID is set exactly once, by Accept, which moves pending -> accepted.
//   - Attachments become nil only through MarkFilesCleaned, which also records
//     FilesCleanedAt. A cleaned offering is indistinguishable from one that
//     never had attachments except for that timestamp.
type Offering struct {
	ID             uuid.UUID
	Title          string
	Description    string
	Status         Status
	UserID         uuid.UUID  // requester (student)
	TutorID        *uuid.UUID // accepting tutor, nil until accepted
	Attachments    []Attachment
	Budget         float64
	Deadline       *time.Time
	FilesCleanedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New creates a pending offering for the given requester.
func New(userID uuid.UUID, title, description string, budget float64) (*Offering, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("offering", "New", shared.ErrEmptyValue, "title is required")
	}

	now := time.Now().UTC()
	return &Offering{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      StatusPending,
		UserID:      userID,
		Budget:      budget,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Edit replaces the offering's editable fields. Callers enforce the
// owner-and-pending rule through the policy layer.
func (o *Offering) Edit(title, description string, budget float64) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("offering", "Edit", shared.ErrEmptyValue, "title is required")
	}
	o.Title = title
	o.Description = strings.TrimSpace(description)
	o.Budget = budget
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Accept assigns a tutor and moves the offering out of pending.
// The transition happens exactly once: a second accept fails.
func (o *Offering) Accept(tutorID uuid.UUID) error {
	if o.Status != StatusPending {
		return shared.NewDomainError("offering", "Accept", shared.ErrStateTransition,
			"offering is not pending")
	}
	if o.TutorID != nil {
		return shared.NewDomainError("offering", "Accept", shared.ErrStateTransition,
			"offering already has a tutor")
	}

	id := tutorID
	o.TutorID = &id
	o.Status = StatusAccepted
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete moves an accepted offering into its terminal completed state.
func (o *Offering) Complete() error {
	if o.Status != StatusAccepted {
		return shared.NewDomainError("offering", "Complete", shared.ErrStateTransition,
			"only accepted offerings can be completed")
	}
	o.Status = StatusCompleted
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel moves the offering into its terminal cancelled state.
func (o *Offering) Cancel() error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError("offering", "Cancel", shared.ErrStateTransition,
			"offering already terminal")
	}
	o.Status = StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// AddAttachments appends uploaded files to the offering.
func (o *Offering) AddAttachments(files []Attachment) {
	o.Attachments = append(o.Attachments, files...)
	o.UpdatedAt = time.Now().UTC()
}

// MarkFilesCleaned records a cleanup pass: attachments are dropped and the
// cleanup time is stamped. Safe to call on offerings without attachments.
func (o *Offering) MarkFilesCleaned(at time.Time) {
	o.Attachments = nil
	t := at.UTC()
	o.FilesCleanedAt = &t
}

// CleanupEligible reports whether a cleanup pass may null the attachments:
// terminal status, retention elapsed since the last update, files present.
func (o *Offering) CleanupEligible(now time.Time) bool {
	return o.Status.IsTerminal() &&
		len(o.Attachments) > 0 &&
		now.Sub(o.UpdatedAt) >= CleanupRetention
}

// Participant reports whether the given user is the requester or the
// accepted tutor of this offering.
func (o *Offering) Participant(userID uuid.UUID) bool {
	if o.UserID == userID {
		return true
	}
	return o.TutorID != nil && *o.TutorID == userID
}
