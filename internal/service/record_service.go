package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinic_backend/internal/model"
	"clinic_backend/internal/repository"
	"clinic_backend/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordService defines operations on visit records
type RecordService interface {
	BuildFilter(ctx context.Context, identity model.Identity, q model.RecordQuery) (model.RecordFilter, error)
	ListRecords(ctx context.Context, identity model.Identity, q model.RecordQuery) ([]model.MedicalRecordView, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*model.MedicalRecordDetail, error)
	CreateRecord(ctx context.Context, identity model.Identity, req model.CreateMedicalRecordRequest) (*model.MedicalRecord, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, req model.UpdateMedicalRecordRequest) (*model.MedicalRecord, error)
	DeleteRecord(ctx context.Context, id uuid.UUID) error
}

type recordService struct {
	accounts        repository.AccountRepository
	patients        repository.PatientRepository
	records         repository.MedicalRecordRepository
	tx              repository.Transactor
	defaultPassword string
	logger          *zap.Logger
}

// NewRecordService creates a new RecordService
func NewRecordService(
	accounts repository.AccountRepository,
	patients repository.PatientRepository,
	records repository.MedicalRecordRepository,
	tx repository.Transactor,
	defaultPassword string,
	logger *zap.Logger,
) RecordService {
	return &recordService{
		accounts:        accounts,
		patients:        patients,
		records:         records,
		tx:              tx,
		defaultPassword: defaultPassword,
		logger:          logger,
	}
}

// BuildFilter turns raw list parameters into a filter scoped to the caller.
// A patient caller is always pinned to their own profile; any patientUsername
// they send is ignored.
func (s *recordService) BuildFilter(ctx context.Context, identity model.Identity, q model.RecordQuery) (model.RecordFilter, error) {
	var filter model.RecordFilter

	if identity.Role == model.RolePatient {
		account, err := s.accounts.FindByID(ctx, identity.AccountID)
		if err != nil {
			return filter, fmt.Errorf("failed to find caller account: %w", err)
		}
		patientID, ok := account.ProfileOfKind(model.ProfileKindPatient)
		if !ok {
			return filter, ErrForbidden
		}
		filter.PatientID = &patientID
	}

	var err error
	if filter.FromDate, err = parseRangeBound("fromDate", q.FromDate, false); err != nil {
		return filter, err
	}
	if filter.ToDate, err = parseRangeBound("toDate", q.ToDate, true); err != nil {
		return filter, err
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return filter, fmt.Errorf("%w: fromDate is after toDate", ErrInvalidQuery)
	}

	if q.PatientUsername != "" && identity.Role != model.RolePatient {
		id, err := s.profileIDByUsername(ctx, q.PatientUsername, model.RolePatient, model.ProfileKindPatient)
		if err != nil {
			return filter, err
		}
		filter.PatientID = &id
	}

	if q.DoctorUsername != "" {
		id, err := s.profileIDByUsername(ctx, q.DoctorUsername, model.RoleDoctor, model.ProfileKindDoctor)
		if err != nil {
			return filter, err
		}
		filter.DoctorID = &id
	}

	return filter, nil
}

// profileIDByUsername resolves username to the profile id of an account with
// the given role, or ErrNotFound.
func (s *recordService) profileIDByUsername(ctx context.Context, username, role string, kind model.ProfileKind) (uuid.UUID, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to find account by username: %w", err)
	}
	if account == nil || account.Role != role {
		return uuid.Nil, fmt.Errorf("%w: no %s with username %q", ErrNotFound, role, username)
	}
	id, ok := account.ProfileOfKind(kind)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s %q has no profile", ErrNotFound, role, username)
	}
	return id, nil
}

func (s *recordService) ListRecords(ctx context.Context, identity model.Identity, q model.RecordQuery) ([]model.MedicalRecordView, error) {
	filter, err := s.BuildFilter(ctx, identity, q)
	if err != nil {
		return nil, err
	}
	records, err := s.records.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	return records, nil
}

func (s *recordService) GetRecord(ctx context.Context, id uuid.UUID) (*model.MedicalRecordDetail, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find medical record: %w", err)
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

// CreateRecord stores a visit for req.PatientUsername, provisioning the
// patient's profile and account first when the username is new. The steps run
// in one transaction holding an advisory lock on the username, so concurrent
// creates for the same new patient provision it once.
func (s *recordService) CreateRecord(ctx context.Context, identity model.Identity, req model.CreateMedicalRecordRequest) (*model.MedicalRecord, error) {
	username := strings.TrimSpace(req.PatientUsername)
	if username == "" {
		return nil, fmt.Errorf("%w: patientUsername is required", ErrInvalidInput)
	}

	newPatient, err := patientFromRequest(req)
	if err != nil {
		return nil, err
	}

	visitDate := time.Now()
	if req.VisitDate != "" {
		if visitDate, _, err = parseDate(req.VisitDate); err != nil {
			return nil, fmt.Errorf("%w: visitDate: %v", ErrInvalidInput, err)
		}
	}

	creator, err := s.accounts.FindByID(ctx, identity.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find caller account: %w", err)
	}

	record := &model.MedicalRecord{
		VisitDate:    visitDate,
		Symptoms:     req.Symptoms,
		Diagnosis:    req.Diagnosis,
		Prescription: req.Prescription,
		Notes:        req.Notes,
		Attachments:  req.Attachments,
	}
	if doctorID, ok := creator.ProfileOfKind(model.ProfileKindDoctor); ok {
		record.DoctorID = &doctorID
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.LockUsername(ctx, username); err != nil {
			return err
		}

		patientID, err := s.findOrProvisionPatient(ctx, username, newPatient)
		if err != nil {
			return err
		}
		record.PatientID = patientID

		return s.records.Create(ctx, record)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create medical record: %w", err)
	}
	return record, nil
}

// findOrProvisionPatient must run inside the saga transaction.
func (s *recordService) findOrProvisionPatient(ctx context.Context, username string, profile *model.PatientProfile) (uuid.UUID, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to find patient account: %w", err)
	}
	if account != nil {
		id, ok := account.ProfileOfKind(model.ProfileKindPatient)
		if !ok {
			return uuid.Nil, fmt.Errorf("%w: %q is not a patient account", ErrConflict, username)
		}
		return id, nil
	}

	if err := s.patients.Create(ctx, profile); err != nil {
		return uuid.Nil, err
	}

	hash, err := utils.HashPassword(s.defaultPassword)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account = &model.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         model.RolePatient,
		Profile:      &model.ProfileRef{Kind: model.ProfileKindPatient, ID: profile.ID},
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return uuid.Nil, ErrConflict
		}
		return uuid.Nil, err
	}

	s.logger.Info("patient provisioned from medical record",
		zap.String("username", username),
		zap.String("patient_id", profile.ID.String()),
	)
	return profile.ID, nil
}

func patientFromRequest(req model.CreateMedicalRecordRequest) (*model.PatientProfile, error) {
	p := &model.PatientProfile{
		FullName:       req.FullName,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		MedicalHistory: []string{},
	}
	if req.DateOfBirth != "" {
		dob, _, err := parseDate(req.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("%w: dateOfBirth: %v", ErrInvalidInput, err)
		}
		p.DateOfBirth = &dob
	}
	if req.Gender != "" {
		if !model.IsValidGender(req.Gender) {
			return nil, fmt.Errorf("%w: gender must be %q or %q", ErrInvalidInput, model.GenderMale, model.GenderFemale)
		}
		gender := req.Gender
		p.Gender = &gender
	}
	return p, nil
}

// UpdateRecord applies req. An update with no fields writes nothing and
// returns the stored record.
func (s *recordService) UpdateRecord(ctx context.Context, id uuid.UUID, req model.UpdateMedicalRecordRequest) (*model.MedicalRecord, error) {
	if req.IsEmpty() {
		current, err := s.GetRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		return &current.MedicalRecord, nil
	}

	record, err := s.records.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update medical record: %w", err)
	}
	return record, nil
}

func (s *recordService) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	if err := s.records.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete medical record: %w", err)
	}
	return nil
}
