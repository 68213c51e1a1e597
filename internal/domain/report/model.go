package report

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medlink/medlink/internal/domain/consent"
)

var (
	ErrNotFound  = errors.New("report not found")
	ErrForbidden = errors.New("not allowed")
	ErrConflict  = errors.New("invalid status transition")
)

// Report statuses, in order: a report is PENDING until the addressed doctor
// opens it (REVIEWED), and RESPONDED once the doctor has replied.
const (
	StatusPending   = "PENDING"
	StatusReviewed  = "REVIEWED"
	StatusResponded = "RESPONDED"
)

var statusRank = map[string]int{
	StatusPending:   0,
	StatusReviewed:  1,
	StatusResponded: 2,
}

// Report is an AI-generated clinical report addressed to a doctor, carrying
// an immutable obfuscated snapshot of the patient at creation time.
type Report struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Body             string    `db:"body" json:"body"`
	Status           string    `db:"status" json:"status"`
	PatientID        string    `db:"patient_id" json:"patient_id"`
	DoctorID         string    `db:"doctor_id" json:"doctor_id"`
	ObfuscatedUserID uuid.UUID `db:"obfuscated_user_id" json:"obfuscated_user_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Detail is a report joined with its snapshot, as doctors see it.
type Detail struct {
	Report
	Snapshot *consent.ObfuscatedUser `json:"snapshot,omitempty"`
}

// canTransition reports whether a status change moves forward in the
// PENDING -> REVIEWED -> RESPONDED order.
func canTransition(from, to string) bool {
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr == fr+1
}
