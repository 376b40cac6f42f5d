package bid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gigflow/gig"
)

var (
	// ErrInvalidInput signals a missing gig, message or a non-positive price.
	ErrInvalidInput = errors.New("bid: gig, message and a positive price are required")
	// ErrGigNotFound signals that the referenced gig does not exist.
	ErrGigNotFound = errors.New("bid: gig not found")
	// ErrOwnBid signals an owner bidding on their own gig.
	ErrOwnBid = errors.New("bid: cannot bid on your own gig")
	// ErrGigClosed signals a bid on a gig that is no longer open.
	ErrGigClosed = errors.New("bid: gig is not open")
	// ErrForbidden signals a non-owner asking for a gig's bids.
	ErrForbidden = errors.New("bid: only the gig owner may view bids")
)

// GigReader loads gigs for ownership and status checks.
type GigReader interface {
	GetByID(ctx context.Context, id string) (gig.Gig, error)
}

// Service handles bid submission and the owner's read-side listing.
type Service struct {
	repo Repository
	gigs GigReader
}

// NewService creates a bid service.
func NewService(repo Repository, gigs GigReader) *Service {
	return &Service{repo: repo, gigs: gigs}
}

// Submit records a pending bid by params.FreelancerID.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (Bid, error) {
	params.Message = strings.TrimSpace(params.Message)
	if params.GigID == "" || params.FreelancerID == "" || params.Message == "" || params.Price <= 0 {
		return Bid{}, ErrInvalidInput
	}

	g, err := s.loadGig(ctx, params.GigID)
	if err != nil {
		return Bid{}, err
	}
	if g.OwnedBy(params.FreelancerID) {
		return Bid{}, ErrOwnBid
	}
	if g.Status != gig.StatusOpen {
		return Bid{}, ErrGigClosed
	}

	return s.repo.Create(ctx, params)
}

// ListForGig returns every bid on gigID, newest first. Only the owner may list.
func (s *Service) ListForGig(ctx context.Context, gigID, actorID string) ([]Detail, error) {
	g, err := s.loadGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if !g.OwnedBy(actorID) {
		return nil, ErrForbidden
	}

	bids, err := s.repo.ListForGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if bids == nil {
		bids = []Detail{}
	}
	return bids, nil
}

func (s *Service) loadGig(ctx context.Context, id string) (gig.Gig, error) {
	g, err := s.gigs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gig.ErrNotFound) {
			return gig.Gig{}, ErrGigNotFound
		}
		return gig.Gig{}, fmt.Errorf("bid: load gig: %w", err)
	}
	return g, nil
}
