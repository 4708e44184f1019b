package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// CreateUserProfileCommand contains the data for a user's public profile.
type CreateUserProfileCommand struct {
	ActorID    uuid.UUID
	Bio        string
	AvatarPath string
}

// Validate validates the command.
func (c CreateUserProfileCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("create_user_profile: actor_id is required")
	}
	return nil
}

// UpdateUserProfileCommand contains the data to edit a public profile.
type UpdateUserProfileCommand struct {
	ActorID    uuid.UUID
	Bio        string
	AvatarPath string
}

// Validate validates the command.
func (c UpdateUserProfileCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("update_user_profile: actor_id is required")
	}
	return nil
}

// DeleteUserProfileCommand contains the data to remove a public profile.
type DeleteUserProfileCommand struct {
	ActorID uuid.UUID
}

// Validate validates the command.
func (c DeleteUserProfileCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("delete_user_profile: actor_id is required")
	}
	return nil
}

// UserProfileHandler handles the public profile lifecycle.
type UserProfileHandler struct {
	profiles user.ProfileRepository
	users    user.Repository
	policies policy.Set
	logger   *slog.Logger
}

// NewUserProfileHandler creates the handler.
func NewUserProfileHandler(
	profiles user.ProfileRepository,
	users user.Repository,
	policies policy.Set,
	logger *slog.Logger,
) *UserProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserProfileHandler{
		profiles: profiles,
		users:    users,
		policies: policies,
		logger:   logger.With("command", "user_profile"),
	}
}

// Create sets up the actor's public profile. One per user.
func (h *UserProfileHandler) Create(ctx context.Context, cmd CreateUserProfileCommand) (*user.Profile, error) {
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

	if !h.policies.UserProfile.Create(actor, hasProfile) {
		return nil, shared.Denied("user_profile", "Create")
	}

	p := user.NewProfile(actor.ID, cmd.Bio)
	p.AvatarPath = cmd.AvatarPath

	if err := h.profiles.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	h.logger.Info("user profile created", "profile_id", p.ID, "user_id", actor.ID)
	return p, nil
}

// Update edits the actor's own public profile.
func (h *UserProfileHandler) Update(ctx context.Context, cmd UpdateUserProfileCommand) (*user.Profile, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}

	p, err := h.profiles.GetByUserID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if !h.policies.UserProfile.Update(actor, p) {
		return nil, shared.Denied("user_profile", "Update")
	}

	p.Bio = cmd.Bio
	p.AvatarPath = cmd.AvatarPath

	if err := h.profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	h.logger.Info("user profile updated", "profile_id", p.ID, "user_id", actor.ID)
	return p, nil
}

// Delete removes the actor's own public profile.
func (h *UserProfileHandler) Delete(ctx context.Context, cmd DeleteUserProfileCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}

	p, err := h.profiles.GetByUserID(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	if !h.policies.UserProfile.Delete(actor, p) {
		return shared.Denied("user_profile", "Delete")
	}

	if err := h.profiles.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	h.logger.Info("user profile deleted", "profile_id", p.ID, "user_id", actor.ID)
	return nil
}
