package repository

import (
	"context"
	"errors"
	"fmt"

	"clinic_backend/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines operations for account data
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	LockUsername(ctx context.Context, username string) error
	ListPatients(ctx context.Context) ([]model.PatientUser, error)
	ListDoctors(ctx context.Context) ([]model.DoctorUser, error)
}

type accountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, username, password_hash, role, COALESCE(profile_kind, ''), COALESCE(profile_id::text, ''), created_at`

// Create inserts a new account. A taken username yields ErrDuplicate.
func (r *accountRepository) Create(ctx context.Context, a *model.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	var kind, profileID any
	if a.Profile != nil {
		kind, profileID = string(a.Profile.Kind), a.Profile.ID
	}

	sql := `INSERT INTO accounts (id, username, password_hash, role, profile_kind, profile_id)
            VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`
	err := conn(ctx, r.db).QueryRow(ctx, sql, a.ID, a.Username, a.PasswordHash, a.Role, kind, profileID).Scan(&a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %q: %w", a.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// FindByUsername returns nil, nil when no account has that username.
func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	sql := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	a, err := scanAccount(conn(ctx, r.db).QueryRow(ctx, sql, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by username: %w", err)
	}
	return a, nil
}

// FindByID returns nil, nil when the account does not exist.
func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	sql := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(conn(ctx, r.db).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}
	return a, nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	cmdTag, err := conn(ctx, r.db).Exec(ctx, `UPDATE accounts SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

// LockUsername takes a transaction-scoped advisory lock on username. It must
// run inside Transactor.WithinTx; the lock is released at commit or rollback.
func (r *accountRepository) LockUsername(ctx context.Context, username string) error {
	if _, err := conn(ctx, r.db).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, username); err != nil {
		return fmt.Errorf("failed to lock username: %w", err)
	}
	return nil
}

// ListPatients returns every patient account joined with its profile summary.
func (r *accountRepository) ListPatients(ctx context.Context) ([]model.PatientUser, error) {
	sql := `SELECT a.id, a.username, a.role, p.id, p.full_name, p.email, p.gender, p.date_of_birth
            FROM accounts a
            LEFT JOIN patients p ON a.profile_kind = 'Patient' AND p.id = a.profile_id
            WHERE a.role = $1
            ORDER BY a.username`
	rows, err := conn(ctx, r.db).Query(ctx, sql, model.RolePatient)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	users := []model.PatientUser{}
	for rows.Next() {
		var (
			u         model.PatientUser
			profileID *uuid.UUID
			fullName  *string
			email     *string
			p         model.PatientSummary
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &profileID, &fullName, &email, &p.Gender, &p.DateOfBirth); err != nil {
			return nil, fmt.Errorf("failed to scan patient row: %w", err)
		}
		if profileID != nil {
			p.ID = *profileID
			p.FullName = deref(fullName)
			p.Email = deref(email)
			u.Details = &p
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient rows: %w", err)
	}
	return users, nil
}

// ListDoctors returns every doctor account joined with its profile summary.
func (r *accountRepository) ListDoctors(ctx context.Context) ([]model.DoctorUser, error) {
	sql := `SELECT a.id, a.username, a.role, d.id, d.full_name, d.phone, d.email, d.specialty
            FROM accounts a
            LEFT JOIN doctors d ON a.profile_kind = 'Doctor' AND d.id = a.profile_id
            WHERE a.role = $1
            ORDER BY a.username`
	rows, err := conn(ctx, r.db).Query(ctx, sql, model.RoleDoctor)
	if err != nil {
		return nil, fmt.Errorf("failed to query doctors: %w", err)
	}
	defer rows.Close()

	users := []model.DoctorUser{}
	for rows.Next() {
		var (
			u                                 model.DoctorUser
			profileID                         *uuid.UUID
			fullName, phone, email, specialty *string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &profileID, &fullName, &phone, &email, &specialty); err != nil {
			return nil, fmt.Errorf("failed to scan doctor row: %w", err)
		}
		if profileID != nil {
			u.Details = &model.DoctorSummary{
				ID:        *profileID,
				FullName:  deref(fullName),
				Phone:     deref(phone),
				Email:     deref(email),
				Specialty: deref(specialty),
			}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating doctor rows: %w", err)
	}
	return users, nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		a         model.Account
		kind      string
		profileID string
	)
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &kind, &profileID, &a.CreatedAt); err != nil {
		return nil, err
	}
	if kind != "" {
		id, err := uuid.Parse(profileID)
		if err != nil {
			return nil, fmt.Errorf("account %s has malformed profile reference: %w", a.ID, err)
		}
		a.Profile = &model.ProfileRef{Kind: model.ProfileKind(kind), ID: id}
	}
	return &a, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
