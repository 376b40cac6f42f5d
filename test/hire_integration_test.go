package test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gigflow/auth"
	"gigflow/bid"
	"gigflow/gig"
	"gigflow/hire"
	"gigflow/notify"
	"gigflow/test/infra"
	"gigflow/test/oracles"
)

func TestHireEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pool := setupDatabase(t, ctx)
	if err := infra.Reset(ctx, pool); err != nil {
		t.Fatalf("reset: %v", err)
	}

	authSvc := auth.NewService(auth.NewRepository(pool), "stress-secret")
	register := func(name, email string) string {
		u, err := authSvc.Register(ctx, auth.RegisterRequest{Name: name, Email: email, Password: "password123"})
		if err != nil {
			t.Fatalf("register %s: %v", email, err)
		}
		return u.ID
	}
	owner := register("Olga Owner", "olga@example.com")
	alice := register("Alice", "alice@example.com")
	bob := register("Bob", "bob@example.com")

	gigRepo := gig.NewRepository(pool)
	bidRepo := bid.NewRepository(pool)
	gigSvc := gig.NewService(gigRepo)
	bidSvc := bid.NewService(bidRepo, gigSvc)

	hub := notify.NewHub(notify.HubWithLogger(quietLogger()))
	defer hub.Close()
	hireSvc := hire.NewService(pool, gigRepo, bidRepo, notify.NewDispatcher(hub, quietLogger()),
		hire.WithLogger(quietLogger()), hire.WithLockTimeout(2*time.Second))

	g, err := gigSvc.Create(ctx, gig.CreateParams{OwnerID: owner, Title: "Logo design", Description: "vector logo", Budget: 250})
	if err != nil {
		t.Fatalf("create gig: %v", err)
	}

	if _, err := bidSvc.Submit(ctx, bid.SubmitParams{GigID: g.ID, FreelancerID: owner, Message: "mine", Price: 10}); !errors.Is(err, bid.ErrOwnBid) {
		t.Fatalf("own bid: expected ErrOwnBid, got %v", err)
	}
	bidA, err := bidSvc.Submit(ctx, bid.SubmitParams{GigID: g.ID, FreelancerID: alice, Message: "I design logos", Price: 200})
	if err != nil {
		t.Fatalf("bid A: %v", err)
	}
	bidB, err := bidSvc.Submit(ctx, bid.SubmitParams{GigID: g.ID, FreelancerID: bob, Message: "Me too", Price: 180})
	if err != nil {
		t.Fatalf("bid B: %v", err)
	}
	if _, err := bidSvc.Submit(ctx, bid.SubmitParams{GigID: g.ID, FreelancerID: bob, Message: "again", Price: 170}); !errors.Is(err, bid.ErrDuplicate) {
		t.Fatalf("second bid: expected ErrDuplicate, got %v", err)
	}

	listings, err := gigSvc.ListOpen(ctx, gig.Filters{Search: "LOGO"})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(listings) != 1 || listings[0].OwnerName != "Olga Owner" {
		t.Fatalf("unexpected listings %+v", listings)
	}

	if _, err := bidSvc.ListForGig(ctx, g.ID, alice); !errors.Is(err, bid.ErrForbidden) {
		t.Fatalf("list as freelancer: expected ErrForbidden, got %v", err)
	}
	bids, err := bidSvc.ListForGig(ctx, g.ID, owner)
	if err != nil {
		t.Fatalf("list bids: %v", err)
	}
	if len(bids) != 2 || bids[0].ID != bidB.ID || bids[0].FreelancerName != "Bob" {
		t.Fatalf("expected newest-first bids with names, got %+v", bids)
	}

	if _, err := hireSvc.Hire(ctx, hire.Params{BidID: bidA.ID, ActorID: alice}); !errors.Is(err, hire.ErrUnauthorized) {
		t.Fatalf("freelancer hire: expected ErrUnauthorized, got %v", err)
	}
	if _, err := hireSvc.Hire(ctx, hire.Params{BidID: "00000000-0000-0000-0000-000000000000", ActorID: owner}); !errors.Is(err, hire.ErrBidNotFound) {
		t.Fatalf("unknown bid: expected ErrBidNotFound, got %v", err)
	}

	sub := hub.Subscribe(alice)
	defer sub.Close()

	hired, err := hireSvc.Hire(ctx, hire.Params{BidID: bidA.ID, ActorID: owner})
	if err != nil {
		t.Fatalf("hire A: %v", err)
	}
	if hired.Status != bid.StatusHired || hired.FreelancerEmail != "alice@example.com" {
		t.Fatalf("unexpected hired bid %+v", hired)
	}

	select {
	case ev := <-sub.Events:
		var payload notify.Hired
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if payload.GigID != g.ID || payload.GigTitle != "Logo design" {
			t.Fatalf("unexpected payload %+v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alice was not notified")
	}

	if _, err := hireSvc.Hire(ctx, hire.Params{BidID: bidB.ID, ActorID: owner}); !errors.Is(err, hire.ErrAlreadyAssigned) {
		t.Fatalf("hire B: expected ErrAlreadyAssigned, got %v", err)
	}

	assigned, err := gigSvc.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("read gig: %v", err)
	}
	if assigned.Status != gig.StatusAssigned {
		t.Fatalf("gig status: want assigned got %s", assigned.Status)
	}

	final, err := bidSvc.ListForGig(ctx, g.ID, owner)
	if err != nil {
		t.Fatalf("list bids after hire: %v", err)
	}
	statuses := map[string]bid.Status{}
	for _, d := range final {
		statuses[d.ID] = d.Status
	}
	if len(final) != 2 || statuses[bidA.ID] != bid.StatusHired || statuses[bidB.ID] != bid.StatusRejected {
		t.Fatalf("unexpected bids after hire: %+v", final)
	}

	if _, err := bidSvc.Submit(ctx, bid.SubmitParams{GigID: g.ID, FreelancerID: register("Carl", "carl@example.com"), Message: "late", Price: 90}); !errors.Is(err, bid.ErrGigClosed) {
		t.Fatalf("late bid: expected ErrGigClosed, got %v", err)
	}

	if name, row, err := oracles.Run(ctx, pool); err != nil || name != "" {
		t.Fatalf("oracle %s failed: %s %v", name, row, err)
	}
}
