package gig

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidInput signals a missing title or description, or a non-positive budget.
var ErrInvalidInput = errors.New("gig: title, description and a positive budget are required")

// Service exposes gig posting and browsing.
type Service struct {
	repo Repository
}

// NewService creates a gig service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create posts a new open gig owned by params.OwnerID.
func (s *Service) Create(ctx context.Context, params CreateParams) (Gig, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Description = strings.TrimSpace(params.Description)
	if params.OwnerID == "" || params.Title == "" || params.Description == "" || params.Budget <= 0 {
		return Gig{}, ErrInvalidInput
	}
	return s.repo.Create(ctx, params)
}

// GetByID loads a single gig.
func (s *Service) GetByID(ctx context.Context, id string) (Gig, error) {
	return s.repo.GetByID(ctx, id)
}

// ListOpen returns the open gigs matching f.
func (s *Service) ListOpen(ctx context.Context, f Filters) ([]Listing, error) {
	return s.repo.ListOpen(ctx, f)
}
