package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// ProfileKind discriminates which profile table a ProfileRef points into.
type ProfileKind string

const (
	ProfileKindDoctor  ProfileKind = "Doctor"
	ProfileKindPatient ProfileKind = "Patient"
)

// ProfileRef is a tagged reference to either a DoctorProfile or a PatientProfile.
type ProfileRef struct {
	Kind ProfileKind `json:"profileKind"`
	ID   uuid.UUID   `json:"profileId"`
}

// Account is a login identity. Admin accounts carry no profile reference.
type Account struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	Role         string      `json:"role"`
	Profile      *ProfileRef `json:"profile,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// ProfileOfKind returns the reference only if it points at the given kind.
func (a *Account) ProfileOfKind(kind ProfileKind) (uuid.UUID, bool) {
	if a == nil || a.Profile == nil || a.Profile.Kind != kind {
		return uuid.Nil, false
	}
	return a.Profile.ID, true
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Identity is the authenticated caller as carried by a session token.
type Identity struct {
	AccountID uuid.UUID `json:"accountId"`
	Role      string    `json:"role"`
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// UserView is the public shape of an account, optionally expanded with its profile.
type UserView struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Details  Profile   `json:"details,omitempty"`
}

// DoctorUser is a doctor account with its profile summary, nil if unresolved.
type DoctorUser struct {
	ID       uuid.UUID      `json:"id"`
	Username string         `json:"username"`
	Role     string         `json:"role"`
	Details  *DoctorSummary `json:"details,omitempty"`
}

// PatientUser is a patient account with its profile summary, nil if unresolved.
type PatientUser struct {
	ID       uuid.UUID       `json:"id"`
	Username string          `json:"username"`
	Role     string          `json:"role"`
	Details  *PatientSummary `json:"details,omitempty"`
}
