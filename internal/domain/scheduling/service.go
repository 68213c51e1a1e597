package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medlink/medlink/internal/domain/consent"
	"github.com/medlink/medlink/internal/domain/identity"
	"github.com/medlink/medlink/internal/platform/auth"
)

// SnapshotSource provides the obfuscated profile attached to anonymous
// bookings. Satisfied by consent.Service.
type SnapshotSource interface {
	EnsureSnapshot(ctx context.Context, patientID string) (*consent.ObfuscatedUser, error)
}

// DoctorSource verifies the doctor a booking targets. Satisfied by
// identity.Service.
type DoctorSource interface {
	GetDoctor(ctx context.Context, id string) (*identity.Doctor, error)
}

type Service struct {
	appointments AppointmentRepository
	labTests     LabTestRepository
	doctors      DoctorSource
	snapshots    SnapshotSource
	log          zerolog.Logger
}

func NewService(appointments AppointmentRepository, labTests LabTestRepository,
	doctors DoctorSource, snapshots SnapshotSource, log zerolog.Logger) *Service {
	return &Service{
		appointments: appointments,
		labTests:     labTests,
		doctors:      doctors,
		snapshots:    snapshots,
		log:          log,
	}
}

type CreateAppointmentInput struct {
	DoctorID       string     `json:"doctor_id"`
	Date           time.Time  `json:"date"`
	Reason         string     `json:"reason"`
	Type           string     `json:"type"`
	IsAnonymous    bool       `json:"is_anonymous"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}

func (s *Service) CreateAppointment(ctx context.Context, patientID string, in CreateAppointmentInput) (*Appointment, error) {
	if in.DoctorID == "" {
		return nil, fmt.Errorf("doctor_id is required")
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}
	if in.Reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	if !validTypes[in.Type] {
		return nil, fmt.Errorf("invalid appointment type: %s", in.Type)
	}
	if _, err := s.doctors.GetDoctor(ctx, in.DoctorID); err != nil {
		return nil, fmt.Errorf("doctor %s: %w", in.DoctorID, err)
	}

	a := &Appointment{
		PatientID:      patientID,
		DoctorID:       in.DoctorID,
		Date:           in.Date,
		Reason:         in.Reason,
		Type:           in.Type,
		Status:         StatusScheduled,
		IsAnonymous:    in.IsAnonymous,
		ConversationID: in.ConversationID,
	}
	if in.IsAnonymous {
		snap, err := s.snapshots.EnsureSnapshot(ctx, patientID)
		if err != nil {
			return nil, fmt.Errorf("snapshot for anonymous appointment: %w", err)
		}
		a.ObfuscatedUserID = &snap.ID
	}

	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID).
		Bool("anonymous", a.IsAnonymous).
		Msg("appointment booked")
	return a, nil
}

type UpdateAppointmentInput struct {
	Status *string    `json:"status,omitempty"`
	Date   *time.Time `json:"date,omitempty"`
	Notes  *string    `json:"notes,omitempty"`
}

func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, callerID string, in UpdateAppointmentInput) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PatientID != callerID && a.DoctorID != callerID {
		return nil, ErrForbidden
	}
	if in.Status != nil {
		if !validStatuses[*in.Status] {
			return nil, fmt.Errorf("invalid status: %s", *in.Status)
		}
		a.Status = *in.Status
	}
	if in.Date != nil {
		a.Date = *in.Date
	}
	if in.Notes != nil {
		a.Notes = in.Notes
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID, callerID string) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PatientID == callerID {
		return a, nil
	}
	if a.DoctorID == callerID {
		return a.Redact(), nil
	}
	return nil, ErrForbidden
}

// ListAppointments returns the caller's bookings. Doctors see anonymous
// bookings with the patient identity redacted.
func (s *Service) ListAppointments(ctx context.Context, callerID, callerRole, status string, limit, offset int) ([]*Appointment, int, error) {
	if status != "" && !validStatuses[status] {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}
	if callerRole == auth.RoleDoctor {
		items, total, err := s.appointments.ListByDoctor(ctx, callerID, status, limit, offset)
		if err != nil {
			return nil, 0, err
		}
		for i, a := range items {
			items[i] = a.Redact()
		}
		return items, total, nil
	}
	return s.appointments.ListByPatient(ctx, callerID, status, limit, offset)
}

type CreateLabTestInput struct {
	TestName    string    `json:"test_name"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Address     *string   `json:"address,omitempty"`
	Reason      *string   `json:"reason,omitempty"`
	OrderedBy   string    `json:"ordered_by"`
	IsAnonymous bool      `json:"is_anonymous"`
}

func (s *Service) CreateLabTest(ctx context.Context, patientID string, in CreateLabTestInput) (*LabTest, error) {
	if in.TestName == "" {
		return nil, fmt.Errorf("test_name is required")
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}
	if in.Location == "" {
		return nil, fmt.Errorf("location is required")
	}
	if in.OrderedBy == "" {
		return nil, fmt.Errorf("ordered_by is required")
	}

	t := &LabTest{
		PatientID:   patientID,
		TestName:    in.TestName,
		Date:        in.Date,
		Location:    in.Location,
		Address:     in.Address,
		Reason:      in.Reason,
		OrderedBy:   in.OrderedBy,
		Status:      StatusScheduled,
		IsAnonymous: in.IsAnonymous,
	}
	if in.IsAnonymous {
		snap, err := s.snapshots.EnsureSnapshot(ctx, patientID)
		if err != nil {
			return nil, fmt.Errorf("snapshot for anonymous lab test: %w", err)
		}
		t.ObfuscatedUserID = &snap.ID
	}

	if err := s.labTests.Create(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("lab_test_id", t.ID.String()).
		Str("test_name", t.TestName).
		Bool("anonymous", t.IsAnonymous).
		Msg("lab test booked")
	return t, nil
}

func (s *Service) ListLabTests(ctx context.Context, patientID, status string, limit, offset int) ([]*LabTest, int, error) {
	if status != "" && !validStatuses[status] {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}
	return s.labTests.ListByPatient(ctx, patientID, status, limit, offset)
}
