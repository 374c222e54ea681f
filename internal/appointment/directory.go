package appointment

import (
	"context"
	"fmt"
	"strings"
)

// Search terms shorter than this are ignored.
const minSearchLength = 2

// DoctorFilter narrows ListDoctors. Only active doctors are ever listed.
type DoctorFilter struct {
	Specialty *string
	Search    string
	Limit     int
	Offset    int
}

// DoctorQuery is a search of the doctor directory.
type DoctorQuery struct {
	Specialty string
	Search    string
	Page      int
	Limit     int
}

type DoctorPage struct {
	Items []Doctor
	Page  int
	Limit int
	Total int
}

// ListDoctors returns the bookable doctors ordered by name. Specialty matches
// case-insensitively; Search matches any part of the full name.
func (s *Service) ListDoctors(ctx context.Context, q DoctorQuery) (*DoctorPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	f := DoctorFilter{Limit: limit, Offset: (page - 1) * limit}

	if specialty := strings.TrimSpace(q.Specialty); specialty != "" {
		f.Specialty = &specialty
	}
	if term := strings.TrimSpace(q.Search); len([]rune(term)) >= minSearchLength {
		f.Search = term
	}

	items, total, err := s.repo.ListDoctors(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if items == nil {
		items = []Doctor{}
	}

	return &DoctorPage{Items: items, Page: page, Limit: limit, Total: total}, nil
}

// ListSpecialties returns the distinct specialties of active doctors, sorted.
func (s *Service) ListSpecialties(ctx context.Context) ([]string, error) {
	specialties, err := s.repo.ListSpecialties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	if specialties == nil {
		specialties = []string{}
	}
	return specialties, nil
}
