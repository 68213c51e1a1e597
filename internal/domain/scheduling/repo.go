package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// ListByPatient / ListByDoctor filter by status when status is non-empty,
	// ordered by date ascending.
	ListByPatient(ctx context.Context, patientID, status string, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID, status string, limit, offset int) ([]*Appointment, int, error)
}

type LabTestRepository interface {
	Create(ctx context.Context, t *LabTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error)
	ListByPatient(ctx context.Context, patientID, status string, limit, offset int) ([]*LabTest, int, error)
}
