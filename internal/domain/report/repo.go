package report

import (
	"context"

	"github.com/google/uuid"

	"github.com/medlink/medlink/internal/domain/consent"
)

type Repository interface {
	// CreateWithSnapshot inserts the snapshot and the report referencing it
	// atomically.
	CreateWithSnapshot(ctx context.Context, r *Report, snap *consent.ObfuscatedUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*Detail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Detail, int, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Detail, int, error)
}
