package scheduling

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("booking not found")
	ErrForbidden = errors.New("not allowed")
)

// Booking statuses shared by appointments and lab tests.
const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusCompleted: true, StatusCancelled: true,
}

// Appointment types.
const (
	TypeInPerson = "IN_PERSON"
	TypeVirtual  = "VIRTUAL"
)

var validTypes = map[string]bool{
	TypeInPerson: true, TypeVirtual: true,
}

// Appointment is a patient's booking with a doctor. Anonymous bookings carry
// the patient's obfuscated snapshot; the doctor never sees the identity.
type Appointment struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        string     `db:"patient_id" json:"patient_id,omitempty"`
	DoctorID         string     `db:"doctor_id" json:"doctor_id"`
	Date             time.Time  `db:"date" json:"date"`
	Reason           string     `db:"reason" json:"reason"`
	Type             string     `db:"type" json:"type"`
	Status           string     `db:"status" json:"status"`
	IsAnonymous      bool       `db:"is_anonymous" json:"is_anonymous"`
	ObfuscatedUserID *uuid.UUID `db:"obfuscated_user_id" json:"obfuscated_user_id,omitempty"`
	ConversationID   *uuid.UUID `db:"conversation_id" json:"conversation_id,omitempty"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Redact clears the patient identity on anonymous bookings before they are
// shown to the doctor.
func (a *Appointment) Redact() *Appointment {
	if !a.IsAnonymous {
		return a
	}
	cp := *a
	cp.PatientID = ""
	return &cp
}

// LabTest is a patient's lab work booking.
type LabTest struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        string     `db:"patient_id" json:"patient_id,omitempty"`
	TestName         string     `db:"test_name" json:"test_name"`
	Date             time.Time  `db:"date" json:"date"`
	Location         string     `db:"location" json:"location"`
	Address          *string    `db:"address" json:"address,omitempty"`
	Reason           *string    `db:"reason" json:"reason,omitempty"`
	OrderedBy        string     `db:"ordered_by" json:"ordered_by"`
	Status           string     `db:"status" json:"status"`
	IsAnonymous      bool       `db:"is_anonymous" json:"is_anonymous"`
	ObfuscatedUserID *uuid.UUID `db:"obfuscated_user_id" json:"obfuscated_user_id,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
