package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// CreateTutorProfileCommand contains the data for a tutor to submit
// credentials.
type CreateTutorProfileCommand struct {
	ActorID    uuid.UUID
	Expertise  string
	Bio        string
	HourlyRate float64
}

// Validate validates the command.
func (c CreateTutorProfileCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("create_tutor_profile: actor_id is required")
	}
	if c.Expertise == "" {
		return errors.New("create_tutor_profile: expertise is required")
	}
	return nil
}

// UpdateTutorProfileCommand contains the data to edit a tutor profile.
type UpdateTutorProfileCommand struct {
	ActorID     uuid.UUID
	ProfileID   uuid.UUID
	Expertise   string
	Bio         string
	HourlyRate  float64
	Schedule    string
	IsAvailable bool
}

// Validate validates the command.
func (c UpdateTutorProfileCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("update_tutor_profile: actor_id is required")
	}
	if c.ProfileID == uuid.Nil {
		return errors.New("update_tutor_profile: profile_id is required")
	}
	if c.Expertise == "" {
		return errors.New("update_tutor_profile: expertise is required")
	}
	return nil
}

// DeleteTutorProfileCommand contains the data to remove a tutor profile.
type DeleteTutorProfileCommand struct {
	ActorID   uuid.UUID
	ProfileID uuid.UUID
}

// Validate validates the command.
func (c DeleteTutorProfileCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("delete_tutor_profile: actor_id is required")
	}
	if c.ProfileID == uuid.Nil {
		return errors.New("delete_tutor_profile: profile_id is required")
	}
	return nil
}

// TutorProfileHandler handles the owner-side tutor profile lifecycle:
// create once, edit, remove. Admin verification lives in VerifyTutorHandler.
type TutorProfileHandler struct {
	profiles tutor.Repository
	users    user.Repository
	policies policy.Set
	logger   *slog.Logger
}

// NewTutorProfileHandler creates the handler.
func NewTutorProfileHandler(
	profiles tutor.Repository,
	users user.Repository,
	policies policy.Set,
	logger *slog.Logger,
) *TutorProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TutorProfileHandler{
		profiles: profiles,
		users:    users,
		policies: policies,
		logger:   logger.With("command", "tutor_profile"),
	}
}

// Create submits the actor's credentials for review. The existing-profile
// check is snapshotted before the policy decision.
func (h *TutorProfileHandler) Create(ctx context.Context, cmd CreateTutorProfileCommand) (*tutor.Profile, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}

	hasProfile, err := h.profiles.ExistsForUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}

	if !h.policies.TutorProfile.Create(actor, hasProfile) {
		return nil, shared.Denied("tutor_profile", "Create")
	}

	p, err := tutor.NewProfile(actor.ID, cmd.Expertise, cmd.Bio, cmd.HourlyRate)
	if err != nil {
		return nil, err
	}

	if err := h.profiles.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	h.logger.Info("tutor profile created", "profile_id", p.ID, "user_id", actor.ID)
	return p, nil
}

// Update edits the actor's own profile.
func (h *TutorProfileHandler) Update(ctx context.Context, cmd UpdateTutorProfileCommand) (*tutor.Profile, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}

	p, err := h.profiles.GetByID(ctx, cmd.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if !h.policies.TutorProfile.Update(actor, p) {
		return nil, shared.Denied("tutor_profile", "Update")
	}

	p.Expertise = cmd.Expertise
	p.Bio = cmd.Bio
	p.HourlyRate = cmd.HourlyRate
	p.Schedule = cmd.Schedule
	p.IsAvailable = cmd.IsAvailable

	if err := h.profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	h.logger.Info("tutor profile updated", "profile_id", p.ID, "user_id", actor.ID)
	return p, nil
}

// Delete removes the actor's own profile.
func (h *TutorProfileHandler) Delete(ctx context.Context, cmd DeleteTutorProfileCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}

	p, err := h.profiles.GetByID(ctx, cmd.ProfileID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	if !h.policies.TutorProfile.Delete(actor, p) {
		return shared.Denied("tutor_profile", "Delete")
	}

	if err := h.profiles.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	h.logger.Info("tutor profile deleted", "profile_id", p.ID, "user_id", actor.ID)
	return nil
}
