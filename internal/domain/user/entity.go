// Package user contains the marketplace account model: the User aggregate,
// its role, and the descriptive UserProfile owned by it.
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

// Role determines what a user may do in the marketplace.
type Role string

const (
	// RoleStudent posts offerings and messages accepted tutors.
	RoleStudent Role = "student"

	// RoleTutor accepts offerings once verified.
	RoleTutor Role = "tutor"

	// RoleAdmin verifies tutor credentials.
	RoleAdmin Role = "admin"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// User is an account in the marketplace. A user owns at most one UserProfile
// and, for tutors, at most one tutor profile.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsAdmin      bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a user with a fresh ID.
func New(name, email string, role Role) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, shared.NewDomainError("user", "New", shared.ErrEmptyValue, "name is required")
	}
	if email == "" {
		return nil, shared.NewDomainError("user", "New", shared.ErrEmptyValue, "email is required")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("user", "New", shared.ErrInvalidInput, "unknown role")
	}

	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Role:      role,
		IsAdmin:   role == RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetPassword hashes and stores the password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return shared.WrapError("user", "SetPassword", err)
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// Identity is the flat identity snapshot attached to broadcast payloads.
// Only id and name cross the wire; nothing else from the account leaks.
type Identity struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Identity returns the user's broadcast identity.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name}
}

// Profile is the descriptive profile a user owns. One per user.
type Profile struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Bio        string
	AvatarPath string
	IsVerified bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewProfile creates a profile for the given user.
func NewProfile(userID uuid.UUID, bio string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		ID:        uuid.New(),
		UserID:    userID,
		Bio:       bio,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
