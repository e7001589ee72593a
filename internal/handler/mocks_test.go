package handler

import (
	"context"

	"clinic_backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.Account, string, error) {
	args := m.Called(username, password)
	account, _ := args.Get(0).(*model.Account)
	return account, args.String(1), args.Error(2)
}

func (m *mockAuthService) Logout(ctx context.Context, identity model.Identity) error {
	return m.Called(identity).Error(0)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, username string) error {
	return m.Called(username).Error(0)
}

func (m *mockAuthService) CreateAdmin(ctx context.Context, username, password string) (*model.Account, error) {
	args := m.Called(username, password)
	account, _ := args.Get(0).(*model.Account)
	return account, args.Error(1)
}

type mockProfileService struct{ mock.Mock }

func (m *mockProfileService) ResolveProfile(ctx context.Context, account *model.Account) (model.Profile, error) {
	args := m.Called(account)
	profile, _ := args.Get(0).(model.Profile)
	return profile, args.Error(1)
}

func (m *mockProfileService) ExpandAccount(ctx context.Context, account *model.Account) (*model.UserView, error) {
	args := m.Called(account)
	view, _ := args.Get(0).(*model.UserView)
	return view, args.Error(1)
}

func (m *mockProfileService) GetUserByUsername(ctx context.Context, username string) (*model.UserView, error) {
	args := m.Called(username)
	view, _ := args.Get(0).(*model.UserView)
	return view, args.Error(1)
}

func (m *mockProfileService) UpdateOwnProfile(ctx context.Context, identity model.Identity, fields map[string]any) (model.Profile, error) {
	args := m.Called(identity, fields)
	profile, _ := args.Get(0).(model.Profile)
	return profile, args.Error(1)
}

func (m *mockProfileService) ListPatients(ctx context.Context) ([]model.PatientUser, error) {
	args := m.Called()
	users, _ := args.Get(0).([]model.PatientUser)
	return users, args.Error(1)
}

func (m *mockProfileService) ListDoctors(ctx context.Context) ([]model.DoctorUser, error) {
	args := m.Called()
	users, _ := args.Get(0).([]model.DoctorUser)
	return users, args.Error(1)
}

func (m *mockProfileService) CreateDoctor(ctx context.Context, req model.CreateDoctorRequest) (*model.Account, *model.DoctorProfile, error) {
	args := m.Called(req)
	account, _ := args.Get(0).(*model.Account)
	doctor, _ := args.Get(1).(*model.DoctorProfile)
	return account, doctor, args.Error(2)
}

type mockRecordService struct{ mock.Mock }

func (m *mockRecordService) BuildFilter(ctx context.Context, identity model.Identity, q model.RecordQuery) (model.RecordFilter, error) {
	args := m.Called(identity, q)
	return args.Get(0).(model.RecordFilter), args.Error(1)
}

func (m *mockRecordService) ListRecords(ctx context.Context, identity model.Identity, q model.RecordQuery) ([]model.MedicalRecordView, error) {
	args := m.Called(identity, q)
	records, _ := args.Get(0).([]model.MedicalRecordView)
	return records, args.Error(1)
}

func (m *mockRecordService) GetRecord(ctx context.Context, id uuid.UUID) (*model.MedicalRecordDetail, error) {
	args := m.Called(id)
	record, _ := args.Get(0).(*model.MedicalRecordDetail)
	return record, args.Error(1)
}

func (m *mockRecordService) CreateRecord(ctx context.Context, identity model.Identity, req model.CreateMedicalRecordRequest) (*model.MedicalRecord, error) {
	args := m.Called(identity, req)
	record, _ := args.Get(0).(*model.MedicalRecord)
	return record, args.Error(1)
}

func (m *mockRecordService) UpdateRecord(ctx context.Context, id uuid.UUID, req model.UpdateMedicalRecordRequest) (*model.MedicalRecord, error) {
	args := m.Called(id, req)
	record, _ := args.Get(0).(*model.MedicalRecord)
	return record, args.Error(1)
}

func (m *mockRecordService) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	return m.Called(id).Error(0)
}
