package hire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"gigflow/bid"
	"gigflow/gig"
	"gigflow/notify"
)

const defaultLockTimeout = 5 * time.Second

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// GigStore is the gig data access the coordinator needs.
type GigStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (gig.Gig, error)
	MarkAssigned(ctx context.Context, tx pgx.Tx, id string) error
}

// BidStore is the bid data access the coordinator needs.
type BidStore interface {
	Get(ctx context.Context, tx pgx.Tx, id string) (bid.Bid, error)
	MarkHired(ctx context.Context, tx pgx.Tx, id string) (bid.Bid, error)
	RejectOthers(ctx context.Context, tx pgx.Tx, gigID, winnerID string) (int64, error)
	GetDetail(ctx context.Context, id string) (bid.Detail, error)
}

// Notifier delivers the hired event to the winning freelancer.
type Notifier interface {
	NotifyHired(ctx context.Context, freelancerID string, payload notify.Hired) error
}

// Params identifies a hire request.
type Params struct {
	BidID   string
	ActorID string
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLockTimeout bounds how long a hire waits for the gig row lock.
// Zero leaves the server default in place.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.lockTimeout = d
		}
	}
}

// Service coordinates the hire decision: one bid hired, its siblings
// rejected, and the gig assigned, all in one transaction.
type Service struct {
	db          TxBeginner
	gigs        GigStore
	bids        BidStore
	notifier    Notifier
	logger      *slog.Logger
	lockTimeout time.Duration
}

// NewService creates the hire coordinator. notifier may be nil.
func NewService(db TxBeginner, gigs GigStore, bids BidStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		db:          db,
		gigs:        gigs,
		bids:        bids,
		notifier:    notifier,
		logger:      slog.Default(),
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Hire makes params.BidID the winning bid of its gig. Preconditions are
// checked in order: bid exists, gig exists, actor owns the gig, gig is open.
// After commit the freelancer is notified; notification never fails a hire.
func (s *Service) Hire(ctx context.Context, params Params) (bid.Detail, error) {
	hired, g, rejected, err := s.commitHire(ctx, params)
	if err != nil {
		return bid.Detail{}, err
	}

	s.logger.Info("hire: committed",
		slog.String("gig_id", g.ID),
		slog.String("bid_id", hired.ID),
		slog.String("freelancer_id", hired.FreelancerID),
		slog.Int64("rejected", rejected))

	out := bid.Detail{Bid: hired}
	detail, err := s.bids.GetDetail(ctx, hired.ID)
	if err != nil {
		s.logger.Warn("hire: load hired bid details",
			slog.String("bid_id", hired.ID),
			slog.Any("error", err))
	} else {
		out = detail
	}

	s.dispatch(ctx, hired.FreelancerID, notify.NewHired(g.ID, g.Title))
	return out, nil
}

func (s *Service) commitHire(ctx context.Context, params Params) (bid.Bid, gig.Gig, int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return bid.Bid{}, gig.Gig{}, 0, fmt.Errorf("hire: begin tx: %w: %w", ErrTransient, err)
	}
	defer tx.Rollback(ctx)

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeoutMillis(s.lockTimeout))
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return bid.Bid{}, gig.Gig{}, 0, fmt.Errorf("hire: set lock timeout: %w: %w", ErrTransient, err)
		}
	}

	target, err := s.bids.Get(ctx, tx, params.BidID)
	if err != nil {
		if errors.Is(err, bid.ErrNotFound) {
			return bid.Bid{}, gig.Gig{}, 0, ErrBidNotFound
		}
		return bid.Bid{}, gig.Gig{}, 0, fmt.Errorf("hire: load bid: %w: %w", ErrTransient, err)
	}

	g, err := s.gigs.GetForUpdate(ctx, tx, target.GigID)
	if err != nil {
		if errors.Is(err, gig.ErrNotFound) {
			return bid.Bid{}, gig.Gig{}, 0, ErrGigNotFound
		}
		return bid.Bid{}, gig.Gig{}, 0, fmt.Errorf("hire: lock gig: %w: %w", ErrTransient, err)
	}

	if err := AuthorizeHire(params.ActorID, g); err != nil {
		return bid.Bid{}, gig.Gig{}, 0, err
	}
	if !g.Status.CanTransition(gig.StatusAssigned) {
		return bid.Bid{}, gig.Gig{}, 0, ErrAlreadyAssigned
	}

	if err := s.gigs.MarkAssigned(ctx, tx, g.ID); err != nil {
		return bid.Bid{}, gig.Gig{}, 0, writeFailure("assign gig", err, gig.ErrNotOpen)
	}
	hired, err := s.bids.MarkHired(ctx, tx, target.ID)
	if err != nil {
		return bid.Bid{}, gig.Gig{}, 0, writeFailure("hire bid", err, bid.ErrNotPending)
	}
	rejected, err := s.bids.RejectOthers(ctx, tx, g.ID, hired.ID)
	if err != nil {
		return bid.Bid{}, gig.Gig{}, 0, writeFailure("reject siblings", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isRetryable(err) {
			return bid.Bid{}, gig.Gig{}, 0, fmt.Errorf("hire: commit: %w: %w: %w", ErrAlreadyAssigned, ErrTransient, err)
		}
		return bid.Bid{}, gig.Gig{}, 0, fmt.Errorf("hire: commit: %w: %w", ErrAlreadyAssigned, err)
	}

	return hired, g, rejected, nil
}

// lockTimeoutMillis rounds up to whole milliseconds; Postgres reads 0ms as no timeout.
func lockTimeoutMillis(d time.Duration) int64 {
	return int64((d + time.Millisecond - 1) / time.Millisecond)
}

// writeFailure classifies a failed write. A lost compare-and-swap or a hit
// on the one-hired-per-gig index means another hire won.
func writeFailure(op string, err error, lostRace ...error) error {
	for _, target := range lostRace {
		if errors.Is(err, target) {
			return fmt.Errorf("hire: %s: %w", op, ErrAlreadyAssigned)
		}
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("hire: %s: %w", op, ErrAlreadyAssigned)
	}
	return fmt.Errorf("hire: %s: %w: %w", op, ErrTransient, err)
}

func (s *Service) dispatch(ctx context.Context, freelancerID string, payload notify.Hired) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("hire: notifier panicked",
				slog.String("freelancer_id", freelancerID),
				slog.Any("panic", r))
		}
	}()

	if err := s.notifier.NotifyHired(context.WithoutCancel(ctx), freelancerID, payload); err != nil {
		s.logger.Warn("hire: notify freelancer",
			slog.String("freelancer_id", freelancerID),
			slog.String("gig_id", payload.GigID),
			slog.Any("error", err))
	}
}
