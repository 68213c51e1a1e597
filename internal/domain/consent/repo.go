package consent

import (
	"context"

	"github.com/google/uuid"
)

type SnapshotRepository interface {
	Create(ctx context.Context, u *ObfuscatedUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*ObfuscatedUser, error)
	// FindByUser returns the patient's existing snapshot, or ErrNotFound.
	FindByUser(ctx context.Context, userID string) (*ObfuscatedUser, error)
	// FindByReport returns the snapshot frozen with a report, or ErrNotFound.
	FindByReport(ctx context.Context, reportID uuid.UUID) (*ObfuscatedUser, error)
}

type DataRequestRepository interface {
	// Create inserts a pending request. ErrConflict is returned when another
	// pending request for the same tuple already exists.
	Create(ctx context.Context, r *DataRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*DataRequest, error)
	// FindByTuple returns any request for the tuple regardless of status, or
	// ErrNotFound.
	FindByTuple(ctx context.Context, reportID uuid.UUID, doctorID, patientID, field string) (*DataRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*DataRequestDetail, int, error)
	CountPendingByPatient(ctx context.Context, patientID string) (int, error)
	HasApproved(ctx context.Context, doctorID, patientID, field string) (bool, error)
}
