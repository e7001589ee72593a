package model

import (
	"time"

	"github.com/google/uuid"
)

// PrescriptionItem is one medicine line of a visit record.
type PrescriptionItem struct {
	MedicineName string `json:"medicineName"`
	Dosage       string `json:"dosage"`
	Instruction  string `json:"instruction"`
}

// Attachment links an external document (scan, lab result) to a visit record.
type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// MedicalRecord is a single clinic visit.
type MedicalRecord struct {
	ID           uuid.UUID          `json:"id"`
	PatientID    uuid.UUID          `json:"patientId"`
	DoctorID     *uuid.UUID         `json:"doctorId,omitempty"`
	VisitDate    time.Time          `json:"visitDate"`
	Symptoms     string             `json:"symptoms"`
	Diagnosis    string             `json:"diagnosis"`
	Prescription []PrescriptionItem `json:"prescription"`
	Notes        string             `json:"notes"`
	Attachments  []Attachment       `json:"attachments"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// MedicalRecordView is a list entry: a record with patient and doctor summaries.
type MedicalRecordView struct {
	MedicalRecord
	Patient *PatientSummary `json:"patient,omitempty"`
	Doctor  *DoctorSummary  `json:"doctor,omitempty"`
}

// MedicalRecordDetail is a single record with the full patient profile and
// the doctor's contact details.
type MedicalRecordDetail struct {
	MedicalRecord
	Patient *PatientProfile `json:"patient,omitempty"`
	Doctor  *DoctorSummary  `json:"doctor,omitempty"`
}

// RecordQuery holds the raw list parameters as received from the client.
type RecordQuery struct {
	FromDate        string `form:"fromDate"`
	ToDate          string `form:"toDate"`
	PatientUsername string `form:"patientUsername"`
	DoctorUsername  string `form:"doctorUsername"`
}

// RecordFilter is the resolved, caller-scoped filter applied to the records table.
type RecordFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	FromDate  *time.Time
	ToDate    *time.Time
}

// CreateMedicalRecordRequest creates a visit record, provisioning the patient if needed.
type CreateMedicalRecordRequest struct {
	PatientUsername string             `json:"patientUsername"`
	FullName        string             `json:"fullName"`
	DateOfBirth     string             `json:"dateOfBirth"`
	Gender          string             `json:"gender"`
	Phone           string             `json:"phone"`
	Email           string             `json:"email"`
	Address         string             `json:"address"`
	VisitDate       string             `json:"visitDate"`
	Symptoms        string             `json:"symptoms"`
	Diagnosis       string             `json:"diagnosis"`
	Notes           string             `json:"notes"`
	Prescription    []PrescriptionItem `json:"prescription"`
	Attachments     []Attachment       `json:"attachments"`
}

// UpdateMedicalRecordRequest is a partial update; nil fields are left untouched.
type UpdateMedicalRecordRequest struct {
	Symptoms     *string             `json:"symptoms,omitempty"`
	Diagnosis    *string             `json:"diagnosis,omitempty"`
	Prescription *[]PrescriptionItem `json:"prescription,omitempty"`
	Notes        *string             `json:"notes,omitempty"`
	Attachments  *[]Attachment       `json:"attachments,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u UpdateMedicalRecordRequest) IsEmpty() bool {
	return u.Symptoms == nil && u.Diagnosis == nil && u.Prescription == nil && u.Notes == nil && u.Attachments == nil
}
