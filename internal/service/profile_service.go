package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clinic_backend/internal/model"
	"clinic_backend/internal/repository"
	"clinic_backend/internal/utils"

	"go.uber.org/zap"
)

// Fields a caller may change on their own profile, mapped to storage columns.
var (
	doctorEditable = map[string]string{
		"fullName":  "full_name",
		"specialty": "specialty",
		"email":     "email",
		"phone":     "phone",
	}
	patientEditable = map[string]string{
		"fullName":    "full_name",
		"dateOfBirth": "date_of_birth",
		"gender":      "gender",
		"address":     "address",
		"email":       "email",
		"phone":       "phone",
	}
)

// ProfileService resolves and edits the role-specific profile behind an account.
type ProfileService interface {
	ResolveProfile(ctx context.Context, account *model.Account) (model.Profile, error)
	ExpandAccount(ctx context.Context, account *model.Account) (*model.UserView, error)
	GetUserByUsername(ctx context.Context, username string) (*model.UserView, error)
	UpdateOwnProfile(ctx context.Context, identity model.Identity, fields map[string]any) (model.Profile, error)
	ListPatients(ctx context.Context) ([]model.PatientUser, error)
	ListDoctors(ctx context.Context) ([]model.DoctorUser, error)
	CreateDoctor(ctx context.Context, req model.CreateDoctorRequest) (*model.Account, *model.DoctorProfile, error)
}

type profileService struct {
	accounts        repository.AccountRepository
	doctors         repository.DoctorRepository
	patients        repository.PatientRepository
	tx              repository.Transactor
	defaultPassword string
	logger          *zap.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(
	accounts repository.AccountRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	tx repository.Transactor,
	defaultPassword string,
	logger *zap.Logger,
) ProfileService {
	return &profileService{
		accounts:        accounts,
		doctors:         doctors,
		patients:        patients,
		tx:              tx,
		defaultPassword: defaultPassword,
		logger:          logger,
	}
}

// ResolveProfile follows the account's tagged reference. Accounts without a
// reference resolve to nil, nil.
func (s *profileService) ResolveProfile(ctx context.Context, account *model.Account) (model.Profile, error) {
	if account.Profile == nil {
		return nil, nil
	}

	ref := account.Profile
	switch ref.Kind {
	case model.ProfileKindDoctor:
		d, err := s.doctors.FindByID(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve doctor profile: %w", err)
		}
		if d == nil {
			return nil, s.dangling(account)
		}
		return d, nil
	case model.ProfileKindPatient:
		p, err := s.patients.FindByID(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve patient profile: %w", err)
		}
		if p == nil {
			return nil, s.dangling(account)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("account %s has unknown profile kind %q", account.ID, ref.Kind)
	}
}

func (s *profileService) dangling(account *model.Account) error {
	s.logger.Error("account references a missing profile",
		zap.String("account_id", account.ID.String()),
		zap.String("profile_kind", string(account.Profile.Kind)),
		zap.String("profile_id", account.Profile.ID.String()),
	)
	return ErrProfileNotFound
}

func (s *profileService) ExpandAccount(ctx context.Context, account *model.Account) (*model.UserView, error) {
	profile, err := s.ResolveProfile(ctx, account)
	if err != nil {
		return nil, err
	}
	view := &model.UserView{
		ID:       account.ID,
		Username: account.Username,
		Role:     account.Role,
	}
	if profile != nil {
		view.Details = profile
	}
	return view, nil
}

func (s *profileService) GetUserByUsername(ctx context.Context, username string) (*model.UserView, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error finding account by username: %w", err)
	}
	if account == nil {
		return nil, ErrNotFound
	}
	return s.ExpandAccount(ctx, account)
}

// UpdateOwnProfile applies the allow-listed subset of fields to the caller's
// own profile. Unknown fields are dropped. A non-empty "password" is re-hashed
// onto the account instead.
func (s *profileService) UpdateOwnProfile(ctx context.Context, identity model.Identity, fields map[string]any) (model.Profile, error) {
	var (
		editable map[string]string
		kind     model.ProfileKind
	)
	switch identity.Role {
	case model.RoleDoctor:
		editable, kind = doctorEditable, model.ProfileKindDoctor
	case model.RolePatient:
		editable, kind = patientEditable, model.ProfileKindPatient
	default:
		return nil, ErrForbidden
	}

	update, err := buildProfileUpdate(editable, fields)
	if err != nil {
		return nil, err
	}

	var passwordHash string
	if raw, ok := fields["password"]; ok && raw != nil {
		password, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: password must be a string", ErrInvalidInput)
		}
		if password != "" {
			if passwordHash, err = utils.HashPassword(password); err != nil {
				return nil, fmt.Errorf("failed to hash password: %w", err)
			}
		}
	}

	account, err := s.accounts.FindByID(ctx, identity.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	profileID, ok := account.ProfileOfKind(kind)
	if !ok {
		return nil, ErrNotFound
	}

	var updated model.Profile
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		switch kind {
		case model.ProfileKindDoctor:
			updated, err = s.doctors.Update(ctx, profileID, update)
		case model.ProfileKindPatient:
			updated, err = s.patients.Update(ctx, profileID, update)
		}
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return s.dangling(account)
			}
			return fmt.Errorf("failed to update profile: %w", err)
		}

		if passwordHash != "" {
			if err := s.accounts.UpdatePassword(ctx, account.ID, passwordHash); err != nil {
				return fmt.Errorf("failed to update password: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// buildProfileUpdate keeps only editable fields and converts them to column values.
func buildProfileUpdate(editable map[string]string, fields map[string]any) (model.ProfileUpdate, error) {
	update := model.ProfileUpdate{}
	for field, raw := range fields {
		column, ok := editable[field]
		if !ok {
			continue
		}

		if raw == nil {
			switch column {
			case "date_of_birth", "gender":
				update[column] = nil
			default:
				update[column] = ""
			}
			continue
		}

		value, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidInput, field)
		}

		switch column {
		case "date_of_birth":
			if value == "" {
				update[column] = nil
				continue
			}
			dob, _, err := parseDate(value)
			if err != nil {
				return nil, fmt.Errorf("%w: dateOfBirth: %v", ErrInvalidInput, err)
			}
			update[column] = dob
		case "gender":
			if value == "" {
				update[column] = nil
				continue
			}
			if !model.IsValidGender(value) {
				return nil, fmt.Errorf("%w: gender must be %q or %q", ErrInvalidInput, model.GenderMale, model.GenderFemale)
			}
			update[column] = value
		default:
			update[column] = value
		}
	}
	return update, nil
}

func (s *profileService) ListPatients(ctx context.Context) ([]model.PatientUser, error) {
	users, err := s.accounts.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return users, nil
}

func (s *profileService) ListDoctors(ctx context.Context) ([]model.DoctorUser, error) {
	users, err := s.accounts.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return users, nil
}

// CreateDoctor provisions a doctor profile and its account in one transaction.
func (s *profileService) CreateDoctor(ctx context.Context, req model.CreateDoctorRequest) (*model.Account, *model.DoctorProfile, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.FullName == "" || req.Specialty == "" || req.Phone == "" || req.Email == "" {
		return nil, nil, fmt.Errorf("%w: username, fullName, specialty, phone and email are required", ErrInvalidInput)
	}

	hash, err := utils.HashPassword(s.defaultPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	doctor := &model.DoctorProfile{
		FullName:  req.FullName,
		Specialty: req.Specialty,
		Phone:     req.Phone,
		Email:     req.Email,
	}
	var account *model.Account

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.LockUsername(ctx, req.Username); err != nil {
			return err
		}
		existing, err := s.accounts.FindByUsername(ctx, req.Username)
		if err != nil {
			return fmt.Errorf("failed to check existing account: %w", err)
		}
		if existing != nil {
			return ErrConflict
		}

		if err := s.doctors.Create(ctx, doctor); err != nil {
			return err
		}
		account = &model.Account{
			Username:     req.Username,
			PasswordHash: hash,
			Role:         model.RoleDoctor,
			Profile:      &model.ProfileRef{Kind: model.ProfileKindDoctor, ID: doctor.ID},
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create doctor: %w", err)
	}

	s.logger.Info("doctor created",
		zap.String("username", account.Username),
		zap.String("doctor_id", doctor.ID.String()),
	)
	return account, doctor, nil
}
