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

// VerifyTutorCommand contains the admin's verification decision.
type VerifyTutorCommand struct {
	// ActorID is the reviewing admin.
	ActorID uuid.UUID

	// ProfileID is the tutor profile under review.
	ProfileID uuid.UUID

	// Approve selects the outcome: true approves, false rejects.
	Approve bool

	// Note carries the rejection reason. Ignored on approval.
	Note string
}

// Validate validates the command.
func (c VerifyTutorCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("verify_tutor: actor_id is required")
	}
	if c.ProfileID == uuid.Nil {
		return errors.New("verify_tutor: profile_id is required")
	}
	return nil
}

// VerifyTutorHandler handles the admin verification decision on a tutor
// profile.
type VerifyTutorHandler struct {
	profiles  tutor.Repository
	users     user.Repository
	policies  policy.Set
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewVerifyTutorHandler creates the handler.
func NewVerifyTutorHandler(
	profiles tutor.Repository,
	users user.Repository,
	policies policy.Set,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *VerifyTutorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerifyTutorHandler{
		profiles:  profiles,
		users:     users,
		policies:  policies,
		publisher: publisher,
		logger:    logger.With("command", "verify_tutor"),
	}
}

// Handle records the verification outcome, mirrors it onto the owning user's
// verified flag, and raises the matching event. The owner is resolved
// eagerly; when the relation is absent the event carries a nil owner and the
// notification listener stays silent.
func (h *VerifyTutorHandler) Handle(ctx context.Context, cmd VerifyTutorCommand) (*tutor.Profile, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}

	if !h.policies.TutorProfile.Verify(actor) {
		return nil, shared.Denied("tutor_profile", "Verify")
	}

	p, err := h.profiles.GetByID(ctx, cmd.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if cmd.Approve {
		p.Approve()
	} else {
		p.Reject(cmd.Note)
	}

	if err := h.profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}

	owner, err := h.users.GetByID(ctx, p.UserID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("load profile owner: %w", err)
		}
		h.logger.Warn("profile owner missing", "profile_id", p.ID, "user_id", p.UserID)
		owner = nil
	}

	if owner != nil && owner.IsVerified != p.IsVerified {
		owner.IsVerified = p.IsVerified
		if err := h.users.Update(ctx, owner); err != nil {
			return nil, fmt.Errorf("persist owner: %w", err)
		}
	}

	if cmd.Approve {
		h.publish(tutor.NewVerifiedEvent(p, owner))
	} else {
		h.publish(tutor.NewRejectedEvent(p, owner, cmd.Note))
	}

	h.logger.Info("tutor verification recorded",
		"profile_id", p.ID,
		"approved", cmd.Approve,
	)
	return p, nil
}

func (h *VerifyTutorHandler) publish(event shared.Event) {
	if err := h.publisher.Publish(event); err != nil {
		h.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
	}
}
