package bid

import "time"

// Status is the lifecycle state of a bid.
type Status string

const (
	StatusPending  Status = "pending"
	StatusHired    Status = "hired"
	StatusRejected Status = "rejected"
)

// CanTransition reports whether a bid may move from s to next. Hired and
// rejected are terminal.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && (next == StatusHired || next == StatusRejected)
}

// Bid is a freelancer's offer on a gig.
type Bid struct {
	ID           string
	GigID        string
	FreelancerID string
	Message      string
	Price        float64
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Detail is a bid joined with the freelancer's display fields. The name and
// email are empty when the join could not be read.
type Detail struct {
	Bid
	FreelancerName  string
	FreelancerEmail string
}

// SubmitParams carries a new bid.
type SubmitParams struct {
	GigID        string
	FreelancerID string
	Message      string
	Price        float64
}
