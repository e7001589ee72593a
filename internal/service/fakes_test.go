package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"clinic_backend/internal/model"
	"clinic_backend/internal/repository"
	"clinic_backend/internal/utils"

	"github.com/google/uuid"
)

// store is an in-memory backing for every repository used by the services.
type store struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*model.Account
	doctors  map[uuid.UUID]*model.DoctorProfile
	patients map[uuid.UUID]*model.PatientProfile
	records  map[uuid.UUID]*model.MedicalRecord
	locks    []string
	updates  int
}

func newStore() *store {
	return &store{
		accounts: map[uuid.UUID]*model.Account{},
		doctors:  map[uuid.UUID]*model.DoctorProfile{},
		patients: map[uuid.UUID]*model.PatientProfile{},
		records:  map[uuid.UUID]*model.MedicalRecord{},
	}
}

type fakeAccounts struct{ *store }

func (s fakeAccounts) Create(ctx context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("account %q: %w", a.Username, repository.ErrDuplicate)
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s fakeAccounts) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s fakeAccounts) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s fakeAccounts) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (s fakeAccounts) LockUsername(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks = append(s.locks, username)
	return nil
}

func (s fakeAccounts) ListPatients(ctx context.Context) ([]model.PatientUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []model.PatientUser{}
	for _, a := range s.accounts {
		if a.Role != model.RolePatient {
			continue
		}
		u := model.PatientUser{ID: a.ID, Username: a.Username, Role: a.Role}
		if a.Profile != nil {
			if p, ok := s.patients[a.Profile.ID]; ok {
				u.Details = &model.PatientSummary{ID: p.ID, FullName: p.FullName, Email: p.Email, Gender: p.Gender, DateOfBirth: p.DateOfBirth}
			}
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s fakeAccounts) ListDoctors(ctx context.Context) ([]model.DoctorUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []model.DoctorUser{}
	for _, a := range s.accounts {
		if a.Role != model.RoleDoctor {
			continue
		}
		u := model.DoctorUser{ID: a.ID, Username: a.Username, Role: a.Role}
		if a.Profile != nil {
			if d, ok := s.doctors[a.Profile.ID]; ok {
				u.Details = &model.DoctorSummary{ID: d.ID, FullName: d.FullName, Specialty: d.Specialty, Phone: d.Phone, Email: d.Email}
			}
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

type fakeDoctors struct{ *store }

func (s fakeDoctors) Create(ctx context.Context, d *model.DoctorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt, d.UpdatedAt = time.Now(), time.Now()
	cp := *d
	s.doctors[d.ID] = &cp
	return nil
}

func (s fakeDoctors) FindByID(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s fakeDoctors) Update(ctx context.Context, id uuid.UUID, fields model.ProfileUpdate) (*model.DoctorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "full_name":
			d.FullName = v.(string)
		case "specialty":
			d.Specialty = v.(string)
		case "email":
			d.Email = v.(string)
		case "phone":
			d.Phone = v.(string)
		default:
			return nil, fmt.Errorf("column %q is not updatable on doctors", col)
		}
	}
	cp := *d
	return &cp, nil
}

type fakePatients struct{ *store }

func (s fakePatients) Create(ctx context.Context, p *model.PatientProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (s fakePatients) FindByID(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s fakePatients) Update(ctx context.Context, id uuid.UUID, fields model.ProfileUpdate) (*model.PatientProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "full_name":
			p.FullName = v.(string)
		case "email":
			p.Email = v.(string)
		case "phone":
			p.Phone = v.(string)
		case "address":
			p.Address = v.(string)
		case "gender":
			if v == nil {
				p.Gender = nil
			} else {
				g := v.(string)
				p.Gender = &g
			}
		case "date_of_birth":
			if v == nil {
				p.DateOfBirth = nil
			} else {
				dob := v.(time.Time)
				p.DateOfBirth = &dob
			}
		default:
			return nil, fmt.Errorf("column %q is not updatable on patients", col)
		}
	}
	cp := *p
	return &cp, nil
}

type fakeRecords struct{ *store }

func (s fakeRecords) Create(ctx context.Context, rec *model.MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.New()
	rec.CreatedAt, rec.UpdatedAt = time.Now(), time.Now()
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s fakeRecords) FindByID(ctx context.Context, id uuid.UUID) (*model.MedicalRecordDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return &model.MedicalRecordDetail{MedicalRecord: *rec, Patient: s.patients[rec.PatientID]}, nil
}

func (s fakeRecords) Find(ctx context.Context, filter model.RecordFilter) ([]model.MedicalRecordView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := []model.MedicalRecordView{}
	for _, rec := range s.records {
		switch {
		case filter.PatientID != nil && rec.PatientID != *filter.PatientID:
			continue
		case filter.DoctorID != nil && (rec.DoctorID == nil || *rec.DoctorID != *filter.DoctorID):
			continue
		case filter.FromDate != nil && rec.VisitDate.Before(*filter.FromDate):
			continue
		case filter.ToDate != nil && rec.VisitDate.After(*filter.ToDate):
			continue
		}
		v := model.MedicalRecordView{MedicalRecord: *rec}
		if p, ok := s.patients[rec.PatientID]; ok {
			v.Patient = &model.PatientSummary{ID: p.ID, FullName: p.FullName, Email: p.Email}
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].VisitDate.After(views[j].VisitDate) })
	return views, nil
}

func (s fakeRecords) Update(ctx context.Context, id uuid.UUID, req model.UpdateMedicalRecordRequest) (*model.MedicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	rec, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.Diagnosis != nil {
		rec.Diagnosis = *req.Diagnosis
	}
	if req.Notes != nil {
		rec.Notes = *req.Notes
	}
	cp := *rec
	return &cp, nil
}

func (s fakeRecords) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// fakeTx runs fn directly and counts invocations.
type fakeTx struct {
	calls int
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// seedAccount stores an account with the given password and optional profile.
func (s *store) seedAccount(username, password, role string, profile *model.ProfileRef) *model.Account {
	hash, err := utils.HashPassword(password)
	if err != nil {
		panic(err)
	}
	a := &model.Account{ID: uuid.New(), Username: username, PasswordHash: hash, Role: role, Profile: profile}
	s.accounts[a.ID] = a
	return a
}

func (s *store) seedDoctor(username, fullName string) (*model.Account, *model.DoctorProfile) {
	d := &model.DoctorProfile{ID: uuid.New(), FullName: fullName, Specialty: "General", Email: username + "@clinic.test"}
	s.doctors[d.ID] = d
	return s.seedAccount(username, "secret", model.RoleDoctor, &model.ProfileRef{Kind: model.ProfileKindDoctor, ID: d.ID}), d
}

func (s *store) seedPatient(username, fullName string) (*model.Account, *model.PatientProfile) {
	p := &model.PatientProfile{ID: uuid.New(), FullName: fullName, MedicalHistory: []string{}}
	s.patients[p.ID] = p
	return s.seedAccount(username, "secret", model.RolePatient, &model.ProfileRef{Kind: model.ProfileKindPatient, ID: p.ID}), p
}

func identityOf(a *model.Account) model.Identity {
	return model.Identity{AccountID: a.ID, Role: a.Role}
}
