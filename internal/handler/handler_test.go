package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic_backend/internal/middleware"
	"clinic_backend/internal/model"
	"clinic_backend/internal/service"
	"clinic_backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	jwtUtil  *utils.JWTUtil
	auth     *mockAuthService
	profiles *mockProfileService
	records  *mockRecordService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		jwtUtil:  utils.NewJWTUtil("secret", time.Hour),
		auth:     &mockAuthService{},
		profiles: &mockProfileService{},
		records:  &mockRecordService{},
	}
	logger := zap.NewNop()
	ts.router = NewRouter(RouterConfig{
		Auth:    NewAuthHandler(ts.auth, nil, logger),
		Users:   NewUserHandler(ts.profiles, ts.auth, logger),
		Records: NewRecordHandler(ts.records, logger),
		Guard:   middleware.NewGuard(ts.jwtUtil, nil),
		Logger:  logger,
	})
	t.Cleanup(func() {
		ts.auth.AssertExpectations(t)
		ts.profiles.AssertExpectations(t)
		ts.records.AssertExpectations(t)
	})
	return ts
}

// as returns an identity with the given role and its bearer header.
func (ts *testServer) as(t *testing.T, role string) (model.Identity, string) {
	t.Helper()
	identity := model.Identity{AccountID: uuid.New(), Role: role}
	token, err := ts.jwtUtil.GenerateToken(identity.AccountID, role)
	require.NoError(t, err)
	return identity, "Bearer " + token
}

func (ts *testServer) do(method, path, auth string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	profileID := uuid.New()
	account := &model.Account{
		ID:       uuid.New(),
		Username: "dr.house",
		Role:     model.RoleDoctor,
		Profile:  &model.ProfileRef{Kind: model.ProfileKindDoctor, ID: profileID},
	}
	ts.auth.On("Login", "dr.house", "secret").Return(account, "signed-token", nil)

	w := ts.do(http.MethodPost, "/auth/login", "", gin.H{"username": "dr.house", "password": "secret"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "signed-token", body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "doctor", user["role"])
	assert.Equal(t, profileID.String(), user["profileId"])
	assert.Equal(t, "Doctor", user["profileKind"])
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLogin_Failures(t *testing.T) {
	ts := newTestServer(t)
	ts.auth.On("Login", "dr.house", "wrong").Return(nil, "", service.ErrInvalidCredentials)

	w := ts.do(http.MethodPost, "/auth/login", "", gin.H{"username": "dr.house", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decode(t, w)["code"])

	w = ts.do(http.MethodPost, "/auth/login", "", gin.H{"username": "dr.house"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	_, auth := ts.as(t, model.RolePatient)
	expired, err := utils.NewJWTUtil("secret", -time.Hour).GenerateToken(uuid.New(), model.RoleDoctor)
	require.NoError(t, err)
	ts.auth.On("Logout", model.Identity{}).Return(nil).Times(3)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/auth/logout", auth, nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/auth/logout", "Bearer "+expired, nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/auth/logout", "", nil).Code)
}

func TestCreateDoctor(t *testing.T) {
	ts := newTestServer(t)
	_, adminAuth := ts.as(t, model.RoleAdmin)
	req := model.CreateDoctorRequest{
		Username:  "dr.wilson",
		FullName:  "James Wilson",
		Specialty: "Oncology",
		Phone:     "555-0102",
		Email:     "wilson@clinic.test",
	}
	doctor := &model.DoctorProfile{ID: uuid.New(), FullName: req.FullName, Specialty: req.Specialty, Phone: req.Phone, Email: req.Email}
	account := &model.Account{ID: uuid.New(), Username: req.Username, Role: model.RoleDoctor}
	ts.profiles.On("CreateDoctor", req).Return(account, doctor, nil).Once()
	ts.profiles.On("CreateDoctor", req).Return(nil, nil, service.ErrConflict).Once()

	w := ts.do(http.MethodPost, "/api/doctors", adminAuth, req)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)["doctor"].(map[string]any)
	assert.Equal(t, doctor.ID.String(), created["id"])
	assert.Equal(t, "dr.wilson", created["username"])

	w = ts.do(http.MethodPost, "/api/doctors", adminAuth, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode(t, w)["code"])
}

func TestCreateDoctor_ForbiddenForDoctor(t *testing.T) {
	ts := newTestServer(t)
	_, auth := ts.as(t, model.RoleDoctor)

	w := ts.do(http.MethodPost, "/api/doctors", auth, gin.H{"username": "x"})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListPatients(t *testing.T) {
	ts := newTestServer(t)
	_, patientAuth := ts.as(t, model.RolePatient)
	_, doctorAuth := ts.as(t, model.RoleDoctor)
	ts.profiles.On("ListPatients").Return([]model.PatientUser{
		{ID: uuid.New(), Username: "jane", Role: model.RolePatient, Details: &model.PatientSummary{ID: uuid.New(), FullName: "Jane Doe"}},
	}, nil)

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, "/api/patients", patientAuth, nil).Code)

	w := ts.do(http.MethodGet, "/api/patients", doctorAuth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	details := users[0]["details"].(map[string]any)
	assert.Equal(t, "Jane Doe", details["fullName"])
	assert.NotContains(t, details, "createdAt")
	assert.NotContains(t, details, "medicalHistory")
}

func TestGetUserByUsername(t *testing.T) {
	ts := newTestServer(t)
	_, auth := ts.as(t, model.RoleDoctor)
	ts.profiles.On("GetUserByUsername", "ghost").Return(nil, service.ErrNotFound)
	ts.profiles.On("GetUserByUsername", "orphan").Return(nil, fmt.Errorf("resolve: %w", service.ErrProfileNotFound))

	w := ts.do(http.MethodGet, "/api/users/username/ghost", auth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["code"])

	w = ts.do(http.MethodGet, "/api/users/username/orphan", auth, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "profile_not_found", decode(t, w)["code"])
}

func TestUpdateMe(t *testing.T) {
	ts := newTestServer(t)
	identity, auth := ts.as(t, model.RolePatient)
	fields := map[string]any{"fullName": "Jane Roe"}
	ts.profiles.On("UpdateOwnProfile", identity, fields).Return(&model.PatientProfile{FullName: "Jane Roe"}, nil)

	w := ts.do(http.MethodPatch, "/api/users/me", auth, fields)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jane Roe", decode(t, w)["profile"].(map[string]any)["fullName"])
}

func TestResetPassword(t *testing.T) {
	ts := newTestServer(t)
	_, auth := ts.as(t, model.RoleAdmin)
	ts.auth.On("ResetPassword", "jane").Return(nil)
	ts.auth.On("ResetPassword", "ghost").Return(service.ErrNotFound)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/reset-password", auth, gin.H{"username": "jane"}).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/reset-password", auth, gin.H{"username": "ghost"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/reset-password", auth, gin.H{}).Code)
}

func TestListRecords(t *testing.T) {
	ts := newTestServer(t)
	identity, auth := ts.as(t, model.RoleDoctor)
	q := model.RecordQuery{PatientUsername: "jane", FromDate: "2024-01-01"}
	ts.records.On("ListRecords", identity, q).Return([]model.MedicalRecordView{}, nil)
	ts.records.On("ListRecords", identity, model.RecordQuery{FromDate: "bad"}).
		Return(nil, fmt.Errorf("%w: fromDate", service.ErrInvalidQuery))

	w := ts.do(http.MethodGet, "/api/medical-records?patientUsername=jane&fromDate=2024-01-01", auth, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = ts.do(http.MethodGet, "/api/medical-records?fromDate=bad", auth, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_query", decode(t, w)["code"])
}

func TestListRecords_SummariesCarryOnlySelectedFields(t *testing.T) {
	ts := newTestServer(t)
	identity, auth := ts.as(t, model.RoleAdmin)
	doctorID, patientID := uuid.New(), uuid.New()
	ts.records.On("ListRecords", identity, model.RecordQuery{}).Return([]model.MedicalRecordView{{
		MedicalRecord: model.MedicalRecord{ID: uuid.New(), PatientID: patientID, DoctorID: &doctorID},
		Patient:       &model.PatientSummary{ID: patientID, FullName: "Jane Doe", Email: "jane@clinic.test"},
		Doctor:        &model.DoctorSummary{ID: doctorID, FullName: "Gregory House", Specialty: "Diagnostics"},
	}}, nil)

	w := ts.do(http.MethodGet, "/api/medical-records", auth, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	patient := records[0]["patient"].(map[string]any)
	assert.Equal(t, map[string]any{"id": patientID.String(), "fullName": "Jane Doe", "email": "jane@clinic.test"}, patient)
	doctor := records[0]["doctor"].(map[string]any)
	assert.Equal(t, map[string]any{"id": doctorID.String(), "fullName": "Gregory House", "specialty": "Diagnostics"}, doctor)
}

func TestGetRecord(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()
	ts.records.On("GetRecord", id).Return(&model.MedicalRecordDetail{MedicalRecord: model.MedicalRecord{ID: id, Diagnosis: "flu"}}, nil)

	w := ts.do(http.MethodGet, "/api/medical-records/"+id.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "flu", decode(t, w)["diagnosis"])

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/medical-records/not-a-uuid", "", nil).Code)
}

func TestCreateRecord(t *testing.T) {
	ts := newTestServer(t)
	identity, auth := ts.as(t, model.RoleDoctor)
	recordID := uuid.New()
	ts.records.On("CreateRecord", identity, mock.MatchedBy(func(req model.CreateMedicalRecordRequest) bool {
		return req.PatientUsername == "newbie" && req.VisitDate == "2024-01-15" && len(req.Prescription) == 1
	})).Return(&model.MedicalRecord{ID: recordID}, nil)

	w := ts.do(http.MethodPost, "/api/medical-records", auth, gin.H{
		"patientUsername": "newbie",
		"fullName":        "New Patient",
		"visitDate":       "2024-01-15",
		"prescription":    []gin.H{{"medicineName": "Tea", "dosage": "1 cup", "instruction": "hot"}},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, recordID.String(), decode(t, w)["medicalRecordId"])
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/medical-records", "", gin.H{}).Code)
}

func TestCreateRecord_BadVisitDate(t *testing.T) {
	ts := newTestServer(t)
	identity, auth := ts.as(t, model.RoleDoctor)
	ts.records.On("CreateRecord", identity, mock.Anything).
		Return(nil, fmt.Errorf("%w: visitDate", service.ErrInvalidInput))

	w := ts.do(http.MethodPost, "/api/medical-records", auth, gin.H{"patientUsername": "jane", "visitDate": "15/01/2024"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", decode(t, w)["code"])
}

func TestUpdateAndDeleteRecord(t *testing.T) {
	ts := newTestServer(t)
	_, auth := ts.as(t, model.RoleDoctor)
	id := uuid.New()
	ts.records.On("UpdateRecord", id, mock.Anything).Return(&model.MedicalRecord{ID: id, Diagnosis: "cold"}, nil)
	ts.records.On("DeleteRecord", id).Return(nil)
	missing := uuid.New()
	ts.records.On("DeleteRecord", missing).Return(service.ErrNotFound)

	w := ts.do(http.MethodPatch, "/api/medical-records/"+id.String(), auth, gin.H{"diagnosis": "cold"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cold", decode(t, w)["medicalRecord"].(map[string]any)["diagnosis"])

	w = ts.do(http.MethodDelete, "/api/medical-records/"+id.String(), auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), decode(t, w)["deletedId"])

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/medical-records/"+missing.String(), auth, nil).Code)
}

func TestInternalErrorsAreMasked(t *testing.T) {
	ts := newTestServer(t)
	_, auth := ts.as(t, model.RoleAdmin)
	ts.profiles.On("ListDoctors").Return(nil, errors.New("pq: connection refused on 10.0.0.5"))

	w := ts.do(http.MethodGet, "/api/doctors", auth, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/health", "", nil).Code)
}
