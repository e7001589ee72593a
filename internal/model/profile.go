package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Profile is the closed set of role-specific profiles an Account can reference.
// Only *DoctorProfile and *PatientProfile implement it.
type Profile interface {
	ProfileKind() ProfileKind
	ProfileID() uuid.UUID
	isProfile()
}

// DoctorProfile holds the practitioner details of a doctor account.
type DoctorProfile struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Specialty string    `json:"specialty,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *DoctorProfile) ProfileKind() ProfileKind { return ProfileKindDoctor }
func (d *DoctorProfile) ProfileID() uuid.UUID     { return d.ID }
func (d *DoctorProfile) isProfile()               {}

// PatientProfile holds demographics and history of a patient account.
type PatientProfile struct {
	ID             uuid.UUID  `json:"id"`
	FullName       string     `json:"fullName"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	Gender         *string    `json:"gender,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	Address        string     `json:"address,omitempty"`
	MedicalHistory []string   `json:"medicalHistory"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (p *PatientProfile) ProfileKind() ProfileKind { return ProfileKindPatient }
func (p *PatientProfile) ProfileID() uuid.UUID     { return p.ID }
func (p *PatientProfile) isProfile()               {}

// DoctorSummary is the subset of a doctor profile shown in listings.
type DoctorSummary struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Specialty string    `json:"specialty,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
}

// PatientSummary is the subset of a patient profile shown in listings.
type PatientSummary struct {
	ID          uuid.UUID  `json:"id"`
	FullName    string     `json:"fullName"`
	Email       string     `json:"email,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
}

// IsValidGender reports whether g is an accepted gender value.
func IsValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}

// ProfileUpdate is an allow-listed set of profile column changes, keyed by column name.
type ProfileUpdate map[string]any

// CreateDoctorRequest is the admin payload for provisioning a doctor.
type CreateDoctorRequest struct {
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}
