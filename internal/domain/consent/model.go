package consent

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medlink/medlink/internal/domain/identity"
)

var (
	ErrNotFound     = errors.New("data request not found")
	ErrForbidden    = errors.New("not allowed")
	ErrConflict     = errors.New("request already resolved")
	ErrInvalidField = errors.New("unknown profile field")
)

// Data request statuses. PENDING is the only non-terminal state.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusDenied   = "DENIED"
)

// Field names a doctor may request access to. These are exactly the fields
// captured in an obfuscated snapshot.
var RequestableFields = map[string]bool{
	"age":           true,
	"sex":           true,
	"activityLevel": true,
	"allergies":     true,
	"healthIssues":  true,
	"diet":          true,
}

// ObfuscatedUser is the privacy snapshot attached to reports and anonymous
// bookings. Every field is independently absent; absent fields render as
// "DATA OMITTED" on the doctor's side.
type ObfuscatedUser struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"-"`
	Age           *int      `db:"age" json:"age,omitempty"`
	Sex           *string   `db:"sex" json:"sex,omitempty"`
	ActivityLevel *string   `db:"activity_level" json:"activity_level,omitempty"`
	Allergies     []string  `db:"allergies" json:"allergies,omitempty"`
	HealthIssues  []string  `db:"health_issues" json:"health_issues,omitempty"`
	Diet          *string   `db:"diet" json:"diet,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// DataRequest is a doctor's request to see one omitted field of one patient,
// scoped to the report that prompted it.
type DataRequest struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Field     string    `db:"field" json:"field"`
	Status    string    `db:"status" json:"status"`
	ReportID  uuid.UUID `db:"report_id" json:"report_id"`
	DoctorID  string    `db:"doctor_id" json:"doctor_id"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Resolved reports whether the request has reached a terminal state.
func (r *DataRequest) Resolved() bool {
	return r.Status != StatusPending
}

// DataRequestDetail is a request joined with the context the patient inbox
// renders: who is asking and which report the request belongs to.
type DataRequestDetail struct {
	DataRequest
	DoctorFirstName    *string   `json:"doctor_first_name,omitempty"`
	DoctorLastName     *string   `json:"doctor_last_name,omitempty"`
	DoctorFieldOfStudy string    `json:"doctor_field_of_study"`
	ReportCreatedAt    time.Time `json:"report_created_at"`
}

// IsOmitted reports whether a profile value counts as absent: a nil pointer
// or an empty collection. Present-but-zero values (0, false) are not omitted.
func IsOmitted(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *int:
		return x == nil
	case *string:
		return x == nil
	case *bool:
		return x == nil
	case *float64:
		return x == nil
	case []string:
		return len(x) == 0
	case string:
		return x == ""
	default:
		return false
	}
}

// SnapshotFieldValue returns the snapshot's value for a requestable field,
// as the doctor sees it on the report.
func SnapshotFieldValue(u *ObfuscatedUser, field string) (interface{}, error) {
	switch field {
	case "age":
		return u.Age, nil
	case "sex":
		return u.Sex, nil
	case "activityLevel":
		return u.ActivityLevel, nil
	case "allergies":
		return u.Allergies, nil
	case "healthIssues":
		return u.HealthIssues, nil
	case "diet":
		return u.Diet, nil
	default:
		return nil, ErrInvalidField
	}
}

// SnapshotPatient builds an obfuscated snapshot from a patient profile.
func SnapshotPatient(p *identity.Patient) *ObfuscatedUser {
	age := p.Age
	sex := p.Sex
	level := p.ActivityLevel
	return &ObfuscatedUser{
		UserID:        p.ID,
		Age:           &age,
		Sex:           &sex,
		ActivityLevel: &level,
		Allergies:     p.Allergies,
		HealthIssues:  p.HealthIssues,
		Diet:          p.Diet,
	}
}

// PatientFieldValue returns the real value of a requestable field from the
// full patient profile.
func PatientFieldValue(p *identity.Patient, field string) (interface{}, error) {
	switch field {
	case "age":
		return p.Age, nil
	case "sex":
		return p.Sex, nil
	case "activityLevel":
		return p.ActivityLevel, nil
	case "allergies":
		return p.Allergies, nil
	case "healthIssues":
		return p.HealthIssues, nil
	case "diet":
		if p.Diet == nil {
			return nil, ErrNotFound
		}
		return *p.Diet, nil
	default:
		return nil, ErrInvalidField
	}
}
