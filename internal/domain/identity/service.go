package identity

import (
	"context"
	"fmt"
)

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
}

func NewService(patients PatientRepository, doctors DoctorRepository) *Service {
	return &Service{patients: patients, doctors: doctors}
}

var validActivityLevels = map[string]bool{
	ActivityLow: true, ActivityMedium: true, ActivityHigh: true,
}

// CreatePatient validates the onboarding required fields before any write.
func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.Sex == "" {
		return fmt.Errorf("sex is required")
	}
	if p.Age <= 0 {
		return fmt.Errorf("age is required")
	}
	if p.Height <= 0 {
		return fmt.Errorf("height is required")
	}
	if p.Weight <= 0 {
		return fmt.Errorf("weight is required")
	}
	if p.ActivityLevel == "" {
		return fmt.Errorf("activity_level is required")
	}
	if !validActivityLevels[p.ActivityLevel] {
		return fmt.Errorf("invalid activity_level: %s", p.ActivityLevel)
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.ActivityLevel != "" && !validActivityLevels[p.ActivityLevel] {
		return fmt.Errorf("invalid activity_level: %s", p.ActivityLevel)
	}
	return s.patients.Update(ctx, p)
}

// CreateDoctor validates the onboarding required fields before any write.
func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.ID == "" {
		return fmt.Errorf("id is required")
	}
	if d.Sex == "" {
		return fmt.Errorf("sex is required")
	}
	if d.Age <= 0 {
		return fmt.Errorf("age is required")
	}
	if d.Location == "" {
		return fmt.Errorf("location is required")
	}
	if d.FieldOfStudy == "" {
		return fmt.Errorf("field_of_study is required")
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	return s.doctors.Update(ctx, d)
}

// ListDoctors returns the public directory entries.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*DoctorListing, int, error) {
	doctors, total, err := s.doctors.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	listings := make([]*DoctorListing, 0, len(doctors))
	for _, d := range doctors {
		listings = append(listings, d.Listing())
	}
	return listings, total, nil
}
