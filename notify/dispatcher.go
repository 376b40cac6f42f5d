package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventHired is the event name delivered to a freelancer who won a gig.
const EventHired = "hired"

// Hired is the payload of the hired event.
type Hired struct {
	Message  string `json:"message"`
	GigID    string `json:"gigId"`
	GigTitle string `json:"gigTitle"`
}

// NewHired builds the hired payload for a gig.
func NewHired(gigID, gigTitle string) Hired {
	return Hired{
		Message:  fmt.Sprintf("You have been hired for %s!", gigTitle),
		GigID:    gigID,
		GigTitle: gigTitle,
	}
}

// DefaultRelayTimeout bounds how long NotifyHired waits on relays.
const DefaultRelayTimeout = 2 * time.Second

// Relay mirrors events to a transport outside the process.
type Relay interface {
	Relay(ctx context.Context, recipient string, event Event) error
}

// Dispatcher turns domain notifications into hub events.
type Dispatcher struct {
	hub          *Hub
	relays       []Relay
	relayTimeout time.Duration
	logger       *slog.Logger
	newID        func() string
}

// NewDispatcher creates a dispatcher publishing on hub and then on every relay.
func NewDispatcher(hub *Hub, logger *slog.Logger, relays ...Relay) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		hub:          hub,
		relays:       relays,
		relayTimeout: DefaultRelayTimeout,
		logger:       logger,
		newID:        uuid.NewString,
	}
}

// WithRelayTimeout sets the relay wait bound. Non-positive values keep the default.
func (d *Dispatcher) WithRelayTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.relayTimeout = timeout
	}
	return d
}

// NotifyHired pushes a hired event to freelancerID. Having no live
// subscriber is not an error; the event is simply dropped.
func (d *Dispatcher) NotifyHired(ctx context.Context, freelancerID string, payload Hired) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: encode hired: %w", err)
	}
	event := Event{ID: d.newID(), Name: EventHired, Data: data}

	delivered := d.hub.Publish(freelancerID, event)
	d.logger.Debug("notify: hired event published",
		slog.String("recipient", freelancerID),
		slog.String("gig_id", payload.GigID),
		slog.Int("delivered", delivered))

	if err := d.relay(ctx, freelancerID, event); err != nil {
		return fmt.Errorf("notify: relay hired: %w", err)
	}
	return nil
}

// relay runs every relay on its own goroutine and waits at most
// relayTimeout. A relay that ignores ctx keeps running after the wait ends
// but never holds up the caller.
func (d *Dispatcher) relay(ctx context.Context, recipient string, event Event) error {
	if len(d.relays) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.relayTimeout)
	done := make(chan error, 1)

	go func() {
		defer cancel()
		var errs []error
		for _, r := range d.relays {
			errs = append(errs, safeRelay(ctx, r, recipient, event))
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("gave up after %s: %w", d.relayTimeout, ctx.Err())
	}
}

func safeRelay(ctx context.Context, r Relay, recipient string, event Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("relay panicked: %v", p)
		}
	}()
	return r.Relay(ctx, recipient, event)
}
