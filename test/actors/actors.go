package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"gigflow/bid"
	"gigflow/gig"
	"gigflow/hire"
)

// Target is one bid an owner may try to hire.
type Target struct {
	GigID   string
	BidID   string
	OwnerID string
}

// Tally counts successful hires per gig as observed by the callers.
type Tally struct {
	mu   sync.Mutex
	wins map[string]int
	// Conflicts and Transients count expected hire failures.
	Conflicts  atomic.Int64
	Transients atomic.Int64
}

func NewTally() *Tally {
	return &Tally{wins: map[string]int{}}
}

func (t *Tally) win(gigID string) {
	t.mu.Lock()
	t.wins[gigID]++
	t.mu.Unlock()
}

// Wins returns a copy of the per-gig success counts.
func (t *Tally) Wins() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.wins))
	for k, v := range t.wins {
		out[k] = v
	}
	return out
}

// Hirer repeatedly tries to hire random targets. Conflicts and transient
// failures are expected under contention; anything else is returned.
func Hirer(ctx context.Context, svc *hire.Service, targets []Target, tally *Tally, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tg := targets[rand.Intn(len(targets))]
		_, err := svc.Hire(ctx, hire.Params{BidID: tg.BidID, ActorID: tg.OwnerID})
		switch {
		case err == nil:
			tally.win(tg.GigID)
		case errors.Is(err, hire.ErrTransient):
			tally.Transients.Add(1)
		case errors.Is(err, hire.ErrConflict):
			tally.Conflicts.Add(1)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return fmt.Errorf("hirer bid %s: %w", tg.BidID, err)
		}
		time.Sleep(time.Duration(5+rand.Intn(15)) * time.Millisecond)
	}
}

// Intruder tries to hire with an actor that does not own the gig. Every
// attempt must be refused before any write.
func Intruder(ctx context.Context, svc *hire.Service, targets []Target, actorID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tg := targets[rand.Intn(len(targets))]
		_, err := svc.Hire(ctx, hire.Params{BidID: tg.BidID, ActorID: actorID})
		switch {
		case err == nil:
			return fmt.Errorf("intruder %s hired bid %s", actorID, tg.BidID)
		case errors.Is(err, hire.ErrUnauthorized), errors.Is(err, hire.ErrTransient):
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return fmt.Errorf("intruder bid %s: %w", tg.BidID, err)
		}
		time.Sleep(time.Duration(20+rand.Intn(30)) * time.Millisecond)
	}
}

// Bidder keeps submitting late bids on the gigs so hires race with inserts.
func Bidder(ctx context.Context, svc *bid.Service, gigIDs, freelancerIDs []string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.Submit(ctx, bid.SubmitParams{
			GigID:        gigIDs[rand.Intn(len(gigIDs))],
			FreelancerID: freelancerIDs[rand.Intn(len(freelancerIDs))],
			Message:      "late offer",
			Price:        float64(10 + rand.Intn(90)),
		})
		switch {
		case err == nil, errors.Is(err, bid.ErrDuplicate), errors.Is(err, bid.ErrGigClosed):
		case errors.Is(err, bid.ErrInvalidInput), errors.Is(err, bid.ErrOwnBid), errors.Is(err, bid.ErrGigNotFound):
			return fmt.Errorf("bidder: %w", err)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			// connection killed by chaos
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Lister browses open gigs while hires move them out of the listing.
func Lister(ctx context.Context, svc *gig.Service, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		listings, err := svc.ListOpen(ctx, gig.Filters{Search: "stress"})
		if err == nil {
			for _, l := range listings {
				if l.Status != gig.StatusOpen {
					return fmt.Errorf("lister: gig %s listed with status %s", l.ID, l.Status)
				}
			}
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}
