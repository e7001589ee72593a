package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"clinic_backend/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DoctorRepository defines operations for doctor profiles
type DoctorRepository interface {
	Create(ctx context.Context, d *model.DoctorProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error)
	Update(ctx context.Context, id uuid.UUID, fields model.ProfileUpdate) (*model.DoctorProfile, error)
}

// PatientRepository defines operations for patient profiles
type PatientRepository interface {
	Create(ctx context.Context, p *model.PatientProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error)
	Update(ctx context.Context, id uuid.UUID, fields model.ProfileUpdate) (*model.PatientProfile, error)
}

// Updatable columns per profile table.
var (
	doctorUpdatable  = []string{"full_name", "specialty", "email", "phone"}
	patientUpdatable = []string{"full_name", "date_of_birth", "gender", "address", "email", "phone"}
)

const (
	doctorColumns  = `id, full_name, specialty, phone, email, created_at, updated_at`
	patientColumns = `id, full_name, date_of_birth, gender, phone, email, address, medical_history, created_at, updated_at`
)

type doctorRepository struct {
	db DB
}

// NewDoctorRepository creates a new DoctorRepository
func NewDoctorRepository(db DB) DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Create(ctx context.Context, d *model.DoctorProfile) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	sql := `INSERT INTO doctors (id, full_name, specialty, phone, email)
            VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, sql, d.ID, d.FullName, d.Specialty, d.Phone, d.Email).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

// FindByID returns nil, nil when the doctor does not exist.
func (r *doctorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error) {
	sql := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`
	d, err := scanDoctor(conn(ctx, r.db).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find doctor by ID: %w", err)
	}
	return d, nil
}

// Update applies fields (keyed by column) and returns the stored profile.
func (r *doctorRepository) Update(ctx context.Context, id uuid.UUID, fields model.ProfileUpdate) (*model.DoctorProfile, error) {
	if len(fields) == 0 {
		d, err := r.FindByID(ctx, id)
		if err == nil && d == nil {
			err = fmt.Errorf("doctor %s: %w", id, ErrNotFound)
		}
		return d, err
	}
	sql, args, err := buildProfileUpdate("doctors", doctorColumns, doctorUpdatable, id, fields)
	if err != nil {
		return nil, err
	}
	d, err := scanDoctor(conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("doctor %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update doctor: %w", err)
	}
	return d, nil
}

type patientRepository struct {
	db DB
}

// NewPatientRepository creates a new PatientRepository
func NewPatientRepository(db DB) PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, p *model.PatientProfile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.MedicalHistory == nil {
		p.MedicalHistory = []string{}
	}
	sql := `INSERT INTO patients (id, full_name, date_of_birth, gender, phone, email, address, medical_history)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`
	err := conn(ctx, r.db).QueryRow(ctx, sql,
		p.ID, p.FullName, p.DateOfBirth, p.Gender, p.Phone, p.Email, p.Address, p.MedicalHistory,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

// FindByID returns nil, nil when the patient does not exist.
func (r *patientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	sql := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	p, err := scanPatient(conn(ctx, r.db).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find patient by ID: %w", err)
	}
	return p, nil
}

// Update applies fields (keyed by column) and returns the stored profile.
func (r *patientRepository) Update(ctx context.Context, id uuid.UUID, fields model.ProfileUpdate) (*model.PatientProfile, error) {
	if len(fields) == 0 {
		p, err := r.FindByID(ctx, id)
		if err == nil && p == nil {
			err = fmt.Errorf("patient %s: %w", id, ErrNotFound)
		}
		return p, err
	}
	sql, args, err := buildProfileUpdate("patients", patientColumns, patientUpdatable, id, fields)
	if err != nil {
		return nil, err
	}
	p, err := scanPatient(conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return p, nil
}

// buildProfileUpdate renders an UPDATE ... RETURNING statement. Columns are
// emitted in sorted order so the statement text is stable.
func buildProfileUpdate(table, returning string, updatable []string, id uuid.UUID, fields model.ProfileUpdate) (string, []any, error) {
	columns := make([]string, 0, len(fields))
	for col := range fields {
		if !slices.Contains(updatable, col) {
			return "", nil, fmt.Errorf("column %q is not updatable on %s", col, table)
		}
		columns = append(columns, col)
	}
	slices.Sort(columns)

	var queryBuilder strings.Builder
	queryBuilder.WriteString("UPDATE " + table + " SET ")
	args := make([]any, 0, len(columns)+1)
	for i, col := range columns {
		queryBuilder.WriteString(fmt.Sprintf("%s = $%d, ", col, i+1))
		args = append(args, fields[col])
	}
	queryBuilder.WriteString(fmt.Sprintf("updated_at = NOW() WHERE id = $%d RETURNING %s", len(columns)+1, returning))
	args = append(args, id)

	return queryBuilder.String(), args, nil
}

func scanDoctor(row pgx.Row) (*model.DoctorProfile, error) {
	d := &model.DoctorProfile{}
	if err := row.Scan(&d.ID, &d.FullName, &d.Specialty, &d.Phone, &d.Email, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

func scanPatient(row pgx.Row) (*model.PatientProfile, error) {
	p := &model.PatientProfile{}
	if err := row.Scan(
		&p.ID, &p.FullName, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Email,
		&p.Address, &p.MedicalHistory, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if p.MedicalHistory == nil {
		p.MedicalHistory = []string{}
	}
	return p, nil
}
