package gig

import "time"

// Status is the lifecycle state of a gig.
type Status string

const (
	StatusOpen     Status = "open"
	StatusAssigned Status = "assigned"
)

// CanTransition reports whether a gig may move from s to next.
// The only legal move is open -> assigned.
func (s Status) CanTransition(next Status) bool {
	return s == StatusOpen && next == StatusAssigned
}

// Gig is a unit of work posted by an owner.
type Gig struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Budget      float64
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether actorID is the gig's owner.
func (g Gig) OwnedBy(actorID string) bool {
	return actorID != "" && g.OwnerID == actorID
}

// Listing is an open gig joined with its owner's display fields.
type Listing struct {
	Gig
	OwnerName  string
	OwnerEmail string
}

// CreateParams carries the fields needed to post a gig.
type CreateParams struct {
	OwnerID     string
	Title       string
	Description string
	Budget      float64
}

// Filters narrows the open-gig listing.
type Filters struct {
	Search string
	Limit  uint64
}
