// Package tutor contains the TutorProfile aggregate: a tutor's credentials,
// availability, and admin-driven verification lifecycle.
package tutor

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

// VerificationStatus is the admin review state of a tutor profile.
type VerificationStatus string

const (
	// VerificationPending - submitted, waiting for admin review.
	VerificationPending VerificationStatus = "pending"

	// VerificationApproved - credentials accepted, tutor may take offerings.
	VerificationApproved VerificationStatus = "approved"

	// VerificationRejected - credentials rejected with a note.
	VerificationRejected VerificationStatus = "rejected"
)

// IsValid reports whether the status is a known review state.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s VerificationStatus) String() string {
	return string(s)
}

// Profile is a tutor's credential profile. One per user.
type Profile struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Expertise          string
	Bio                string
	HourlyRate         float64
	Schedule           string
	VerificationStatus VerificationStatus
	VerificationNote   *string
	IsVerified         bool
	IsAvailable        bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewProfile creates a pending profile for the given user.
func NewProfile(userID uuid.UUID, expertise, bio string, hourlyRate float64) (*Profile, error) {
	expertise = strings.TrimSpace(expertise)
	if expertise == "" {
		return nil, shared.NewDomainError("tutor", "NewProfile", shared.ErrEmptyValue,
			"expertise is required")
	}

	now := time.Now().UTC()
	return &Profile{
		ID:                 uuid.New(),
		UserID:             userID,
		Expertise:          expertise,
		Bio:                strings.TrimSpace(bio),
		HourlyRate:         hourlyRate,
		VerificationStatus: VerificationPending,
		IsAvailable:        true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// Approve marks the profile's credentials as verified.
func (p *Profile) Approve() {
	p.VerificationStatus = VerificationApproved
	p.VerificationNote = nil
	p.IsVerified = true
	p.UpdatedAt = time.Now().UTC()
}

// Reject marks the profile's credentials as rejected with a reason.
func (p *Profile) Reject(note string) {
	p.VerificationStatus = VerificationRejected
	p.VerificationNote = &note
	p.IsVerified = false
	p.UpdatedAt = time.Now().UTC()
}
