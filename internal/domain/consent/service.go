package consent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medlink/medlink/internal/domain/identity"
)

// PatientSource is the slice of the identity service the consent engine needs.
type PatientSource interface {
	GetPatient(ctx context.Context, id string) (*identity.Patient, error)
}

type Service struct {
	snapshots SnapshotRepository
	requests  DataRequestRepository
	patients  PatientSource
}

func NewService(snapshots SnapshotRepository, requests DataRequestRepository, patients PatientSource) *Service {
	return &Service{snapshots: snapshots, requests: requests, patients: patients}
}

// EnsureSnapshot returns the patient's existing obfuscated snapshot, creating
// one from the current profile if none exists yet.
func (s *Service) EnsureSnapshot(ctx context.Context, patientID string) (*ObfuscatedUser, error) {
	existing, err := s.snapshots.FindByUser(ctx, patientID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	snap := SnapshotPatient(p)
	if err := s.snapshots.Create(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// NewSnapshot always captures a fresh snapshot of the patient's current
// profile, for callers that must freeze state at a point in time.
func (s *Service) NewSnapshot(ctx context.Context, patientID string) (*ObfuscatedUser, error) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	snap := SnapshotPatient(p)
	if err := s.snapshots.Create(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) GetSnapshot(ctx context.Context, id uuid.UUID) (*ObfuscatedUser, error) {
	return s.snapshots.GetByID(ctx, id)
}

// CreateDataRequest records a doctor's request for one field. Only fields
// omitted from the report's snapshot are requestable. It is idempotent: any
// existing request for the same (report, doctor, patient, field) tuple is
// returned as-is with alreadyExisted=true, whatever its status. A denied
// request therefore stays denied.
func (s *Service) CreateDataRequest(ctx context.Context, reportID uuid.UUID, doctorID, patientID, field string) (*DataRequest, bool, error) {
	if !RequestableFields[field] {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidField, field)
	}
	if reportID == uuid.Nil {
		return nil, false, fmt.Errorf("report_id is required")
	}
	if doctorID == "" || patientID == "" {
		return nil, false, fmt.Errorf("doctor_id and patient_id are required")
	}

	// A field that is visible on the report's snapshot needs no request.
	if snap, err := s.snapshots.FindByReport(ctx, reportID); err == nil {
		v, verr := SnapshotFieldValue(snap, field)
		if verr != nil {
			return nil, false, verr
		}
		if !IsOmitted(v) {
			return nil, false, fmt.Errorf("field %s is already visible on the report", field)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if existing, err := s.requests.FindByTuple(ctx, reportID, doctorID, patientID, field); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	dr := &DataRequest{
		Field:     field,
		Status:    StatusPending,
		ReportID:  reportID,
		DoctorID:  doctorID,
		PatientID: patientID,
	}
	err := s.requests.Create(ctx, dr)
	if errors.Is(err, ErrConflict) {
		// A concurrent request won the insert race; return the winner.
		winner, ferr := s.requests.FindByTuple(ctx, reportID, doctorID, patientID, field)
		if ferr != nil {
			return nil, false, ferr
		}
		return winner, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return dr, false, nil
}

// ListRequestsForPatient returns the patient's inbox, newest first, with
// doctor and report context attached.
func (s *Service) ListRequestsForPatient(ctx context.Context, patientID string, limit, offset int) ([]*DataRequestDetail, int, error) {
	return s.requests.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) CountPendingForPatient(ctx context.Context, patientID string) (int, error) {
	return s.requests.CountPendingByPatient(ctx, patientID)
}

// ResolveRequest moves a pending request to APPROVED or DENIED. Only the
// owning patient may resolve, and terminal requests stay terminal.
func (s *Service) ResolveRequest(ctx context.Context, requestID uuid.UUID, patientID string, approve bool) (*DataRequest, error) {
	dr, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if dr.PatientID != patientID {
		return nil, ErrForbidden
	}
	if dr.Resolved() {
		return nil, fmt.Errorf("%w: status is %s", ErrConflict, dr.Status)
	}

	status := StatusDenied
	if approve {
		status = StatusApproved
	}
	if err := s.requests.UpdateStatus(ctx, requestID, status); err != nil {
		return nil, err
	}
	dr.Status = status
	return dr, nil
}

// FieldValue returns the real value of a patient's field after the caller has
// been authorized. Callers are the owning patient (preview) or a doctor
// holding an approved request.
func (s *Service) FieldValue(ctx context.Context, callerID, callerRole, patientID, field string) (interface{}, error) {
	if !RequestableFields[field] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidField, field)
	}

	if callerID != patientID {
		if callerRole != "doctor" {
			return nil, ErrForbidden
		}
		approved, err := s.requests.HasApproved(ctx, callerID, patientID, field)
		if err != nil {
			return nil, err
		}
		if !approved {
			return nil, ErrForbidden
		}
	}

	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return PatientFieldValue(p, field)
}
