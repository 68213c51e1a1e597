package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medlink/medlink/internal/domain/consent"
	"github.com/medlink/medlink/internal/domain/identity"
)

// -- Mock Repository --

type mockRepo struct {
	reports   map[uuid.UUID]*Report
	snapshots map[uuid.UUID]*consent.ObfuscatedUser
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		reports:   make(map[uuid.UUID]*Report),
		snapshots: make(map[uuid.UUID]*consent.ObfuscatedUser),
	}
}

func (m *mockRepo) CreateWithSnapshot(_ context.Context, r *Report, snap *consent.ObfuscatedUser) error {
	snap.ID = uuid.New()
	snap.CreatedAt = time.Now()
	m.snapshots[snap.ID] = snap

	r.ID = uuid.New()
	r.ObfuscatedUserID = snap.ID
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	m.reports[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Detail, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Detail{Report: *r, Snapshot: m.snapshots[r.ObfuscatedUserID]}, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID string, limit, offset int) ([]*Detail, int, error) {
	var result []*Detail
	for _, r := range m.reports {
		if r.DoctorID == doctorID {
			result = append(result, &Detail{Report: *r, Snapshot: m.snapshots[r.ObfuscatedUserID]})
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*Detail, int, error) {
	var result []*Detail
	for _, r := range m.reports {
		if r.PatientID == patientID {
			result = append(result, &Detail{Report: *r, Snapshot: m.snapshots[r.ObfuscatedUserID]})
		}
	}
	return result, len(result), nil
}

type mockDirectory struct {
	patients map[string]*identity.Patient
	doctors  map[string]*identity.Doctor
}

func (m *mockDirectory) GetPatient(_ context.Context, id string) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return p, nil
}

func (m *mockDirectory) GetDoctor(_ context.Context, id string) (*identity.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return d, nil
}

func newTestService() (*Service, *mockRepo) {
	dir := &mockDirectory{
		patients: map[string]*identity.Patient{
			"pat-1": {
				ID: "pat-1", Sex: "female", Age: 34, Height: 168, Weight: 61,
				ActivityLevel: identity.ActivityMedium, Allergies: []string{"penicillin"},
			},
		},
		doctors: map[string]*identity.Doctor{
			"doc-1": {ID: "doc-1", Sex: "male", Age: 45, Location: "Berlin", FieldOfStudy: "Cardiology"},
		},
	}
	repo := newMockRepo()
	return NewService(repo, dir, dir), repo
}

// -- Tests --

func TestCreate_SnapshotFrozen(t *testing.T) {
	svc, repo := newTestService()

	rep, err := svc.Create(context.Background(), "pat-1", "doc-1", "## Medical Report\n\nbody")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rep.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", rep.Status)
	}

	snap := repo.snapshots[rep.ObfuscatedUserID]
	if snap == nil {
		t.Fatal("snapshot not persisted with report")
	}
	if snap.Age == nil || *snap.Age != 34 {
		t.Errorf("snapshot age not captured")
	}
}

func TestCreate_UnknownDoctor(t *testing.T) {
	svc, repo := newTestService()
	_, err := svc.Create(context.Background(), "pat-1", "doc-unknown", "body")
	if err == nil {
		t.Fatal("expected error for unknown doctor")
	}
	if len(repo.reports) != 0 {
		t.Error("report written despite unknown doctor")
	}
}

func TestOpen_DoctorMarksReviewed(t *testing.T) {
	svc, _ := newTestService()
	rep, err := svc.Create(context.Background(), "pat-1", "doc-1", "body")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	d, err := svc.Open(context.Background(), rep.ID, "doc-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d.Status != StatusReviewed {
		t.Errorf("status = %s, want REVIEWED", d.Status)
	}

	// Re-opening stays REVIEWED.
	d, err = svc.Open(context.Background(), rep.ID, "doc-1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if d.Status != StatusReviewed {
		t.Errorf("status after reopen = %s, want REVIEWED", d.Status)
	}
}

func TestOpen_PatientDoesNotAdvanceStatus(t *testing.T) {
	svc, _ := newTestService()
	rep, _ := svc.Create(context.Background(), "pat-1", "doc-1", "body")

	d, err := svc.Open(context.Background(), rep.ID, "pat-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if d.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", d.Status)
	}
}

func TestOpen_StrangerForbidden(t *testing.T) {
	svc, _ := newTestService()
	rep, _ := svc.Create(context.Background(), "pat-1", "doc-1", "body")

	if _, err := svc.Open(context.Background(), rep.ID, "doc-2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestUpdateStatus_OrderEnforced(t *testing.T) {
	svc, _ := newTestService()
	rep, _ := svc.Create(context.Background(), "pat-1", "doc-1", "body")

	// Skipping REVIEWED is rejected.
	if _, err := svc.UpdateStatus(context.Background(), rep.ID, "doc-1", StatusResponded); !errors.Is(err, ErrConflict) {
		t.Errorf("skip err = %v, want ErrConflict", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), rep.ID, "doc-1", StatusReviewed); err != nil {
		t.Fatalf("to REVIEWED: %v", err)
	}
	d, err := svc.UpdateStatus(context.Background(), rep.ID, "doc-1", StatusResponded)
	if err != nil {
		t.Fatalf("to RESPONDED: %v", err)
	}
	if d.Status != StatusResponded {
		t.Errorf("status = %s, want RESPONDED", d.Status)
	}

	// Terminal: no further moves.
	if _, err := svc.UpdateStatus(context.Background(), rep.ID, "doc-1", StatusReviewed); !errors.Is(err, ErrConflict) {
		t.Errorf("backward err = %v, want ErrConflict", err)
	}
}
