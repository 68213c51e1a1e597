package identity

import (
	"errors"
	"time"
)

// Sentinel errors shared by the identity service and handlers.
var (
	ErrNotFound  = errors.New("profile not found")
	ErrForbidden = errors.New("not allowed")
)

// Activity levels a patient may declare.
const (
	ActivityLow    = "LOW"
	ActivityMedium = "MEDIUM"
	ActivityHigh   = "HIGH"
)

// Patient is a patient profile. The ID is the identity provider's subject.
type Patient struct {
	ID            string    `db:"id" json:"id"`
	FirstName     *string   `db:"first_name" json:"first_name,omitempty"`
	LastName      *string   `db:"last_name" json:"last_name,omitempty"`
	Email         *string   `db:"email" json:"email,omitempty"`
	Sex           string    `db:"sex" json:"sex"`
	Age           int       `db:"age" json:"age"`
	Height        float64   `db:"height" json:"height"`
	Weight        float64   `db:"weight" json:"weight"`
	ActivityLevel string    `db:"activity_level" json:"activity_level"`
	Allergies     []string  `db:"allergies" json:"allergies"`
	Medications   []string  `db:"medications" json:"medications"`
	HealthIssues  []string  `db:"health_issues" json:"health_issues"`
	Diet          *string   `db:"diet" json:"diet,omitempty"`
	Location      *string   `db:"location" json:"location,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Doctor is a doctor profile. The ID is the identity provider's subject.
type Doctor struct {
	ID                string    `db:"id" json:"id"`
	FirstName         *string   `db:"first_name" json:"first_name,omitempty"`
	LastName          *string   `db:"last_name" json:"last_name,omitempty"`
	Email             *string   `db:"email" json:"email,omitempty"`
	Sex               string    `db:"sex" json:"sex"`
	Age               int       `db:"age" json:"age"`
	Location          string    `db:"location" json:"location"`
	FieldOfStudy      string    `db:"field_of_study" json:"field_of_study"`
	Hospital          *string   `db:"hospital" json:"hospital,omitempty"`
	YearsOfExperience *int      `db:"years_of_experience" json:"years_of_experience,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// DoctorListing is the public directory subset patients browse when booking.
type DoctorListing struct {
	ID           string  `json:"id"`
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Location     string  `json:"location"`
	FieldOfStudy string  `json:"field_of_study"`
	Hospital     *string `json:"hospital,omitempty"`
}

// Listing projects a doctor onto its public directory entry.
func (d *Doctor) Listing() *DoctorListing {
	return &DoctorListing{
		ID:           d.ID,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Location:     d.Location,
		FieldOfStudy: d.FieldOfStudy,
		Hospital:     d.Hospital,
	}
}
