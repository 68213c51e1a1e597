package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medlink/medlink/internal/domain/consent"
	"github.com/medlink/medlink/internal/domain/identity"
)

// PatientSource is the slice of the identity service this package needs.
type PatientSource interface {
	GetPatient(ctx context.Context, id string) (*identity.Patient, error)
}

// DoctorSource verifies the addressed doctor exists before a report is filed.
type DoctorSource interface {
	GetDoctor(ctx context.Context, id string) (*identity.Doctor, error)
}

type Service struct {
	repo     Repository
	patients PatientSource
	doctors  DoctorSource
}

func NewService(repo Repository, patients PatientSource, doctors DoctorSource) *Service {
	return &Service{repo: repo, patients: patients, doctors: doctors}
}

// Create files a report from a patient to a doctor. A fresh obfuscated
// snapshot of the patient is frozen with the report in one transaction; later
// profile edits never change what the doctor sees.
func (s *Service) Create(ctx context.Context, patientID, doctorID, body string) (*Report, error) {
	if body == "" {
		return nil, fmt.Errorf("body is required")
	}
	if doctorID == "" {
		return nil, fmt.Errorf("doctor_id is required")
	}

	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if _, err := s.doctors.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	rep := &Report{
		Body:      body,
		Status:    StatusPending,
		PatientID: patientID,
		DoctorID:  doctorID,
	}
	if err := s.repo.CreateWithSnapshot(ctx, rep, consent.SnapshotPatient(p)); err != nil {
		return nil, err
	}
	return rep, nil
}

// Open returns a report for the caller. When the addressed doctor opens a
// pending report it advances to REVIEWED.
func (s *Service) Open(ctx context.Context, id uuid.UUID, callerID string) (*Detail, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != d.DoctorID && callerID != d.PatientID {
		return nil, ErrForbidden
	}

	if callerID == d.DoctorID && d.Status == StatusPending {
		if err := s.repo.UpdateStatus(ctx, id, StatusReviewed); err != nil {
			return nil, err
		}
		d.Status = StatusReviewed
	}
	return d, nil
}

// UpdateStatus advances a report's status. Only forward transitions in the
// PENDING -> REVIEWED -> RESPONDED order are accepted, and only by the
// addressed doctor.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, doctorID, status string) (*Detail, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.DoctorID != doctorID {
		return nil, ErrForbidden
	}
	if !canTransition(d.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrConflict, d.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	d.Status = status
	return d, nil
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Detail, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Detail, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
