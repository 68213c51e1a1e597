package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medlink/medlink/internal/domain/identity"
)

// -- Mock Repositories --

type mockSnapshotRepo struct {
	items    map[uuid.UUID]*ObfuscatedUser
	byReport map[uuid.UUID]uuid.UUID
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{
		items:    make(map[uuid.UUID]*ObfuscatedUser),
		byReport: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockSnapshotRepo) Create(_ context.Context, u *ObfuscatedUser) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.items[u.ID] = u
	return nil
}

func (m *mockSnapshotRepo) GetByID(_ context.Context, id uuid.UUID) (*ObfuscatedUser, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockSnapshotRepo) FindByUser(_ context.Context, userID string) (*ObfuscatedUser, error) {
	for _, u := range m.items {
		if u.UserID == userID {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockSnapshotRepo) FindByReport(_ context.Context, reportID uuid.UUID) (*ObfuscatedUser, error) {
	if snapID, ok := m.byReport[reportID]; ok {
		if u, ok := m.items[snapID]; ok {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

type mockDataRequestRepo struct {
	items map[uuid.UUID]*DataRequest
}

func newMockDataRequestRepo() *mockDataRequestRepo {
	return &mockDataRequestRepo{items: make(map[uuid.UUID]*DataRequest)}
}

func (m *mockDataRequestRepo) Create(_ context.Context, dr *DataRequest) error {
	for _, existing := range m.items {
		if existing.ReportID == dr.ReportID && existing.DoctorID == dr.DoctorID &&
			existing.PatientID == dr.PatientID && existing.Field == dr.Field &&
			existing.Status == StatusPending {
			return ErrConflict
		}
	}
	dr.ID = uuid.New()
	dr.CreatedAt = time.Now()
	dr.UpdatedAt = time.Now()
	m.items[dr.ID] = dr
	return nil
}

func (m *mockDataRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*DataRequest, error) {
	dr, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return dr, nil
}

func (m *mockDataRequestRepo) FindByTuple(_ context.Context, reportID uuid.UUID, doctorID, patientID, field string) (*DataRequest, error) {
	for _, dr := range m.items {
		if dr.ReportID == reportID && dr.DoctorID == doctorID && dr.PatientID == patientID && dr.Field == field {
			return dr, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockDataRequestRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	dr, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	dr.Status = status
	dr.UpdatedAt = time.Now()
	return nil
}

func (m *mockDataRequestRepo) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*DataRequestDetail, int, error) {
	var result []*DataRequestDetail
	for _, dr := range m.items {
		if dr.PatientID == patientID {
			result = append(result, &DataRequestDetail{DataRequest: *dr, DoctorFieldOfStudy: "Cardiology"})
		}
	}
	return result, len(result), nil
}

func (m *mockDataRequestRepo) CountPendingByPatient(_ context.Context, patientID string) (int, error) {
	n := 0
	for _, dr := range m.items {
		if dr.PatientID == patientID && dr.Status == StatusPending {
			n++
		}
	}
	return n, nil
}

func (m *mockDataRequestRepo) HasApproved(_ context.Context, doctorID, patientID, field string) (bool, error) {
	for _, dr := range m.items {
		if dr.DoctorID == doctorID && dr.PatientID == patientID && dr.Field == field && dr.Status == StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

type mockPatientSource struct {
	items map[string]*identity.Patient
}

func (m *mockPatientSource) GetPatient(_ context.Context, id string) (*identity.Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return p, nil
}

func testPatient(id string) *identity.Patient {
	diet := "vegetarian"
	return &identity.Patient{
		ID:            id,
		Sex:           "female",
		Age:           34,
		Height:        168,
		Weight:        61,
		ActivityLevel: identity.ActivityMedium,
		Allergies:     []string{"penicillin"},
		HealthIssues:  nil,
		Diet:          &diet,
	}
}

func newTestService(patients ...*identity.Patient) (*Service, *mockDataRequestRepo) {
	src := &mockPatientSource{items: make(map[string]*identity.Patient)}
	for _, p := range patients {
		src.items[p.ID] = p
	}
	requests := newMockDataRequestRepo()
	return NewService(newMockSnapshotRepo(), requests, src), requests
}

// -- Tests --

func TestIsOmitted(t *testing.T) {
	zero := 0
	no := false
	empty := ""
	cases := []struct {
		name string
		v    interface{}
		want bool
	}{
		{"nil", nil, true},
		{"nil int pointer", (*int)(nil), true},
		{"nil string pointer", (*string)(nil), true},
		{"nil bool pointer", (*bool)(nil), true},
		{"empty slice", []string{}, true},
		{"nil slice", []string(nil), true},
		{"empty string", "", true},
		{"zero via pointer", &zero, false},
		{"false via pointer", &no, false},
		{"empty string pointer", &empty, false},
		{"one-element slice", []string{"x"}, false},
		{"plain int zero", 0, false},
		{"plain bool false", false, false},
		{"plain value", "vegan", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsOmitted(tc.v); got != tc.want {
				t.Errorf("IsOmitted(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestSnapshotPatient(t *testing.T) {
	p := testPatient("pat-1")
	snap := SnapshotPatient(p)

	if snap.UserID != "pat-1" {
		t.Errorf("user id = %s", snap.UserID)
	}
	if snap.Age == nil || *snap.Age != 34 {
		t.Errorf("age not captured")
	}
	if IsOmitted(snap.Allergies) {
		t.Errorf("allergies should be present")
	}
	if !IsOmitted(snap.HealthIssues) {
		t.Errorf("empty health issues should be omitted")
	}

	// Snapshot is a copy: later profile edits must not leak into it.
	p.Age = 35
	if *snap.Age != 34 {
		t.Errorf("snapshot age changed with the profile")
	}
}

func TestCreateDataRequest_Idempotent(t *testing.T) {
	svc, _ := newTestService(testPatient("pat-1"))
	reportID := uuid.New()

	first, existed, err := svc.CreateDataRequest(context.Background(), reportID, "doc-1", "pat-1", "diet")
	if err != nil {
		t.Fatalf("CreateDataRequest: %v", err)
	}
	if existed {
		t.Fatal("first create flagged as existing")
	}
	if first.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", first.Status)
	}

	second, existed, err := svc.CreateDataRequest(context.Background(), reportID, "doc-1", "pat-1", "diet")
	if err != nil {
		t.Fatalf("repeat CreateDataRequest: %v", err)
	}
	if !existed {
		t.Error("repeat create not flagged as existing")
	}
	if second.ID != first.ID {
		t.Errorf("repeat create returned a different request")
	}
}

func TestCreateDataRequest_DedupesAgainstTerminal(t *testing.T) {
	svc, _ := newTestService(testPatient("pat-1"))
	reportID := uuid.New()

	first, _, err := svc.CreateDataRequest(context.Background(), reportID, "doc-1", "pat-1", "diet")
	if err != nil {
		t.Fatalf("CreateDataRequest: %v", err)
	}
	if _, err := svc.ResolveRequest(context.Background(), first.ID, "pat-1", false); err != nil {
		t.Fatalf("ResolveRequest: %v", err)
	}

	// Re-asking after a denial returns the denied request; it does not reopen.
	again, existed, err := svc.CreateDataRequest(context.Background(), reportID, "doc-1", "pat-1", "diet")
	if err != nil {
		t.Fatalf("CreateDataRequest after deny: %v", err)
	}
	if !existed {
		t.Error("terminal request not treated as existing")
	}
	if again.Status != StatusDenied {
		t.Errorf("status = %s, want DENIED", again.Status)
	}
}

func TestCreateDataRequest_InvalidField(t *testing.T) {
	svc, _ := newTestService(testPatient("pat-1"))
	_, _, err := svc.CreateDataRequest(context.Background(), uuid.New(), "doc-1", "pat-1", "ssn")
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("err = %v, want ErrInvalidField", err)
	}
}

func TestCreateDataRequest_VisibleFieldNeedsNoRequest(t *testing.T) {
	src := &mockPatientSource{items: map[string]*identity.Patient{"pat-1": testPatient("pat-1")}}
	snaps := newMockSnapshotRepo()
	svc := NewService(snaps, newMockDataRequestRepo(), src)

	// Report snapshot discloses age but omits health issues.
	age := 34
	snap := &ObfuscatedUser{UserID: "pat-1", Age: &age}
	if err := snaps.Create(context.Background(), snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	reportID := uuid.New()
	snaps.byReport[reportID] = snap.ID

	if _, _, err := svc.CreateDataRequest(context.Background(), reportID, "doc-1", "pat-1", "age"); err == nil {
		t.Error("expected rejection for a field already visible on the report")
	}

	dr, existed, err := svc.CreateDataRequest(context.Background(), reportID, "doc-1", "pat-1", "healthIssues")
	if err != nil {
		t.Fatalf("CreateDataRequest for omitted field: %v", err)
	}
	if existed || dr.Status != StatusPending {
		t.Errorf("omitted-field request = %+v existed=%v", dr, existed)
	}
}

func TestCreateDataRequest_ConcurrentInsertLoses(t *testing.T) {
	svc, requests := newTestService(testPatient("pat-1"))
	reportID := uuid.New()

	// Simulate another instance winning the insert between our existence
	// check and our insert: the repo already holds the row.
	winner := &DataRequest{Field: "age", Status: StatusPending, ReportID: reportID, DoctorID: "doc-1", PatientID: "pat-1"}
	if err := requests.Create(context.Background(), winner); err != nil {
		t.Fatalf("seed winner: %v", err)
	}

	dr, existed, err := svc.CreateDataRequest(context.Background(), reportID, "doc-1", "pat-1", "age")
	if err != nil {
		t.Fatalf("CreateDataRequest: %v", err)
	}
	if !existed || dr.ID != winner.ID {
		t.Errorf("expected the winning request back, got %+v existed=%v", dr, existed)
	}
}

func TestResolveRequest_TerminalStaysTerminal(t *testing.T) {
	svc, _ := newTestService(testPatient("pat-1"))
	dr, _, err := svc.CreateDataRequest(context.Background(), uuid.New(), "doc-1", "pat-1", "age")
	if err != nil {
		t.Fatalf("CreateDataRequest: %v", err)
	}

	if _, err := svc.ResolveRequest(context.Background(), dr.ID, "pat-1", true); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Re-approving and flipping approve->deny both conflict.
	if _, err := svc.ResolveRequest(context.Background(), dr.ID, "pat-1", true); !errors.Is(err, ErrConflict) {
		t.Errorf("re-approve err = %v, want ErrConflict", err)
	}
	if _, err := svc.ResolveRequest(context.Background(), dr.ID, "pat-1", false); !errors.Is(err, ErrConflict) {
		t.Errorf("deny-after-approve err = %v, want ErrConflict", err)
	}
}

func TestResolveRequest_OnlyOwner(t *testing.T) {
	svc, _ := newTestService(testPatient("pat-1"))
	dr, _, err := svc.CreateDataRequest(context.Background(), uuid.New(), "doc-1", "pat-1", "age")
	if err != nil {
		t.Fatalf("CreateDataRequest: %v", err)
	}
	if _, err := svc.ResolveRequest(context.Background(), dr.ID, "pat-2", true); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestFieldValue_DisclosureRoundTrip(t *testing.T) {
	svc, _ := newTestService(testPatient("pat-1"))
	reportID := uuid.New()

	// Doctor without approval is refused.
	if _, err := svc.FieldValue(context.Background(), "doc-1", "doctor", "pat-1", "diet"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("pre-approval err = %v, want ErrForbidden", err)
	}

	dr, _, err := svc.CreateDataRequest(context.Background(), reportID, "doc-1", "pat-1", "diet")
	if err != nil {
		t.Fatalf("CreateDataRequest: %v", err)
	}
	if _, err := svc.ResolveRequest(context.Background(), dr.ID, "pat-1", true); err != nil {
		t.Fatalf("approve: %v", err)
	}

	got, err := svc.FieldValue(context.Background(), "doc-1", "doctor", "pat-1", "diet")
	if err != nil {
		t.Fatalf("FieldValue after approval: %v", err)
	}
	if got != "vegetarian" {
		t.Errorf("value = %v, want vegetarian", got)
	}

	// Approval is per-field: the doctor still cannot read other fields.
	if _, err := svc.FieldValue(context.Background(), "doc-1", "doctor", "pat-1", "age"); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-field err = %v, want ErrForbidden", err)
	}
}

func TestFieldValue_OwnerPreview(t *testing.T) {
	svc, _ := newTestService(testPatient("pat-1"))
	got, err := svc.FieldValue(context.Background(), "pat-1", "patient", "pat-1", "age")
	if err != nil {
		t.Fatalf("owner preview: %v", err)
	}
	if got != 34 {
		t.Errorf("value = %v, want 34", got)
	}
}

func TestEnsureSnapshot_Reuses(t *testing.T) {
	svc, _ := newTestService(testPatient("pat-1"))

	first, err := svc.EnsureSnapshot(context.Background(), "pat-1")
	if err != nil {
		t.Fatalf("EnsureSnapshot: %v", err)
	}
	second, err := svc.EnsureSnapshot(context.Background(), "pat-1")
	if err != nil {
		t.Fatalf("repeat EnsureSnapshot: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("snapshot not reused: %s vs %s", first.ID, second.ID)
	}
}

func TestPollTracker(t *testing.T) {
	tr := NewPollTracker()

	if tr.Check("pat-1", 2) {
		t.Error("first check should not flag")
	}
	if tr.Check("pat-1", 2) {
		t.Error("unchanged count should not flag")
	}
	if !tr.Check("pat-1", 3) {
		t.Error("rising count should flag")
	}
	if tr.Check("pat-1", 1) {
		t.Error("falling count should not flag")
	}
	// Per-patient state.
	if tr.Check("pat-2", 5) {
		t.Error("other patient's first check should not flag")
	}
}
