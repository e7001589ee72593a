package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinic_backend/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MedicalRecordRepository defines operations for visit records
type MedicalRecordRepository interface {
	Create(ctx context.Context, record *model.MedicalRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.MedicalRecordDetail, error)
	Find(ctx context.Context, filter model.RecordFilter) ([]model.MedicalRecordView, error)
	Update(ctx context.Context, id uuid.UUID, req model.UpdateMedicalRecordRequest) (*model.MedicalRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type medicalRecordRepository struct {
	db DB
}

// NewMedicalRecordRepository creates a new MedicalRecordRepository
func NewMedicalRecordRepository(db DB) MedicalRecordRepository {
	return &medicalRecordRepository{db: db}
}

const recordColumns = `r.id, r.patient_id, r.doctor_id, r.visit_date, r.symptoms, r.diagnosis, r.prescription, r.notes, r.attachments, r.created_at, r.updated_at`

// Create inserts a new visit record
func (r *medicalRecordRepository) Create(ctx context.Context, rec *model.MedicalRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Prescription == nil {
		rec.Prescription = []model.PrescriptionItem{}
	}
	if rec.Attachments == nil {
		rec.Attachments = []model.Attachment{}
	}

	sql := `INSERT INTO medical_records (id, patient_id, doctor_id, visit_date, symptoms, diagnosis, prescription, notes, attachments)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, sql,
		rec.ID, rec.PatientID, rec.DoctorID, rec.VisitDate, rec.Symptoms, rec.Diagnosis,
		rec.Prescription, rec.Notes, rec.Attachments,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create medical record: %w", err)
	}
	return nil
}

// FindByID returns the record with the full patient profile and the doctor's
// contact details, or nil, nil when it does not exist.
func (r *medicalRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.MedicalRecordDetail, error) {
	sql := `SELECT ` + recordColumns + `,
                p.id, p.full_name, p.date_of_birth, p.gender, p.phone, p.email, p.address, p.medical_history,
                p.created_at, p.updated_at,
                d.id, d.full_name, d.specialty, d.phone, d.email
            FROM medical_records r
            LEFT JOIN patients p ON p.id = r.patient_id
            LEFT JOIN doctors d ON d.id = r.doctor_id
            WHERE r.id = $1`

	var (
		v                                 model.MedicalRecordDetail
		patientID                         *uuid.UUID
		pName, pPhone, pEmail, pAddress   *string
		pCreated, pUpdated                *time.Time
		p                                 model.PatientProfile
		doctorID                          *uuid.UUID
		dName, dSpecialty, dPhone, dEmail *string
	)
	dest := append(recordDest(&v.MedicalRecord),
		&patientID, &pName, &p.DateOfBirth, &p.Gender, &pPhone, &pEmail, &pAddress, &p.MedicalHistory,
		&pCreated, &pUpdated,
		&doctorID, &dName, &dSpecialty, &dPhone, &dEmail,
	)
	if err := conn(ctx, r.db).QueryRow(ctx, sql, id).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find medical record by ID: %w", err)
	}

	if patientID != nil {
		p.ID = *patientID
		p.FullName, p.Phone, p.Email, p.Address = deref(pName), deref(pPhone), deref(pEmail), deref(pAddress)
		if pCreated != nil {
			p.CreatedAt = *pCreated
		}
		if pUpdated != nil {
			p.UpdatedAt = *pUpdated
		}
		if p.MedicalHistory == nil {
			p.MedicalHistory = []string{}
		}
		v.Patient = &p
	}
	if doctorID != nil {
		v.Doctor = &model.DoctorSummary{
			ID:        *doctorID,
			FullName:  deref(dName),
			Specialty: deref(dSpecialty),
			Phone:     deref(dPhone),
			Email:     deref(dEmail),
		}
	}
	return &v, nil
}

// Find lists records matching filter, newest visit first, with patient name/email
// and doctor name/specialty/email expanded.
func (r *medicalRecordRepository) Find(ctx context.Context, filter model.RecordFilter) ([]model.MedicalRecordView, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + recordColumns + `, p.full_name, p.email, d.full_name, d.specialty, d.email
                               FROM medical_records r
                               LEFT JOIN patients p ON p.id = r.patient_id
                               LEFT JOIN doctors d ON d.id = r.doctor_id`)

	where, args := buildRecordWhere(filter)
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(" ORDER BY r.visit_date DESC, r.created_at DESC")

	rows, err := conn(ctx, r.db).Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query medical records: %w", err)
	}
	defer rows.Close()

	records := []model.MedicalRecordView{}
	for rows.Next() {
		var (
			v                         model.MedicalRecordView
			pName, pEmail             *string
			dName, dSpecialty, dEmail *string
		)
		dest := append(recordDest(&v.MedicalRecord), &pName, &pEmail, &dName, &dSpecialty, &dEmail)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan medical record row: %w", err)
		}
		if pName != nil || pEmail != nil {
			v.Patient = &model.PatientSummary{ID: v.PatientID, FullName: deref(pName), Email: deref(pEmail)}
		}
		if v.DoctorID != nil && (dName != nil || dEmail != nil) {
			v.Doctor = &model.DoctorSummary{ID: *v.DoctorID, FullName: deref(dName), Specialty: deref(dSpecialty), Email: deref(dEmail)}
		}
		records = append(records, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medical record rows: %w", err)
	}
	return records, nil
}

// Update applies the non-nil fields of req and returns the stored record.
func (r *medicalRecordRepository) Update(ctx context.Context, id uuid.UUID, req model.UpdateMedicalRecordRequest) (*model.MedicalRecord, error) {
	var sets []string
	var args []any
	argCount := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argCount))
		args = append(args, value)
		argCount++
	}
	if req.Symptoms != nil {
		add("symptoms", *req.Symptoms)
	}
	if req.Diagnosis != nil {
		add("diagnosis", *req.Diagnosis)
	}
	if req.Prescription != nil {
		items := *req.Prescription
		if items == nil {
			items = []model.PrescriptionItem{}
		}
		add("prescription", items)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}
	if req.Attachments != nil {
		items := *req.Attachments
		if items == nil {
			items = []model.Attachment{}
		}
		add("attachments", items)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	sql := fmt.Sprintf(`UPDATE medical_records r SET %s WHERE r.id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argCount, recordColumns)

	var rec model.MedicalRecord
	if err := conn(ctx, r.db).QueryRow(ctx, sql, args...).Scan(recordDest(&rec)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("medical record %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update medical record: %w", err)
	}
	return &rec, nil
}

// Delete removes a visit record
func (r *medicalRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medical record: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("medical record %s: %w", id, ErrNotFound)
	}
	return nil
}

// buildRecordWhere renders filter as a WHERE clause with positional arguments.
// Both date bounds are inclusive.
func buildRecordWhere(filter model.RecordFilter) (string, []any) {
	args := []any{}
	argCount := 1
	var conditions []string

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("r.patient_id = $%d", argCount))
		args = append(args, *filter.PatientID)
		argCount++
	}
	if filter.DoctorID != nil {
		conditions = append(conditions, fmt.Sprintf("r.doctor_id = $%d", argCount))
		args = append(args, *filter.DoctorID)
		argCount++
	}
	if filter.FromDate != nil {
		conditions = append(conditions, fmt.Sprintf("r.visit_date >= $%d", argCount))
		args = append(args, *filter.FromDate)
		argCount++
	}
	if filter.ToDate != nil {
		conditions = append(conditions, fmt.Sprintf("r.visit_date <= $%d", argCount))
		args = append(args, *filter.ToDate)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func recordDest(rec *model.MedicalRecord) []any {
	return []any{
		&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.VisitDate, &rec.Symptoms, &rec.Diagnosis,
		&rec.Prescription, &rec.Notes, &rec.Attachments, &rec.CreatedAt, &rec.UpdatedAt,
	}
}
