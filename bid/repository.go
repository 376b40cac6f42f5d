package bid

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no bid row exists for the identifier.
	ErrNotFound = errors.New("bid: not found")
	// ErrDuplicate signals a second bid by the same freelancer on a gig.
	ErrDuplicate = errors.New("bid: freelancer already bid on this gig")
	// ErrNotPending signals a compare-and-swap on a bid that already left pending.
	ErrNotPending = errors.New("bid: not pending")
)

const (
	bidColumns    = `b.id::text, b.gig_id::text, b.freelancer_id::text, b.message, b.price::float8, b.status::text, b.created_at, b.updated_at`
	detailColumns = bidColumns + `, u.name, u.email`
)

// Repository is the bid store used outside of hire transactions.
type Repository interface {
	Create(ctx context.Context, params SubmitParams) (Bid, error)
	ListForGig(ctx context.Context, gigID string) ([]Detail, error)
}

// PGRepository implements Repository backed by PostgreSQL. Its tx-scoped
// methods are used by the hire coordinator.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed bid repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a pending bid. The gig row is share-locked so the insert
// either lands before a concurrent hire takes the gig (and is rejected by it)
// or sees the gig assigned and inserts nothing, reported as ErrGigClosed.
func (r *PGRepository) Create(ctx context.Context, params SubmitParams) (Bid, error) {
	const insertSQL = `
		WITH g AS (
			SELECT id FROM gigs WHERE id = $1 AND status = 'open' FOR SHARE
		), b AS (
			INSERT INTO bids (gig_id, freelancer_id, message, price)
			SELECT g.id, $2::uuid, $3, $4 FROM g
			RETURNING *
		)
		SELECT ` + bidColumns + ` FROM b`

	out, err := scanBid(r.pool.QueryRow(ctx, insertSQL, params.GigID, params.FreelancerID, params.Message, params.Price))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, ErrGigClosed
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Bid{}, ErrDuplicate
		}
		return Bid{}, fmt.Errorf("bid: create: %w", err)
	}
	return out, nil
}

// Get loads a bid inside tx.
func (r *PGRepository) Get(ctx context.Context, tx pgx.Tx, id string) (Bid, error) {
	if uuid.Validate(id) != nil {
		return Bid{}, ErrNotFound
	}

	out, err := scanBid(tx.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids b WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, ErrNotFound
		}
		return Bid{}, fmt.Errorf("bid: get: %w", err)
	}
	return out, nil
}

// GetDetail loads a bid joined with its freelancer.
func (r *PGRepository) GetDetail(ctx context.Context, id string) (Detail, error) {
	if uuid.Validate(id) != nil {
		return Detail{}, ErrNotFound
	}

	const selectSQL = `
		SELECT ` + detailColumns + `
		FROM bids b
		JOIN users u ON u.id = b.freelancer_id
		WHERE b.id = $1`

	out, err := scanDetail(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, ErrNotFound
		}
		return Detail{}, fmt.Errorf("bid: get detail: %w", err)
	}
	return out, nil
}

// MarkHired moves a pending bid to hired.
func (r *PGRepository) MarkHired(ctx context.Context, tx pgx.Tx, id string) (Bid, error) {
	const updateSQL = `
		WITH b AS (
			UPDATE bids
			SET status = 'hired', updated_at = now()
			WHERE id = $1 AND status = 'pending'
			RETURNING *
		)
		SELECT ` + bidColumns + ` FROM b`

	out, err := scanBid(tx.QueryRow(ctx, updateSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, ErrNotPending
		}
		return Bid{}, fmt.Errorf("bid: mark hired: %w", err)
	}
	return out, nil
}

// RejectOthers rejects every bid on gigID other than winnerID and returns
// how many rows changed.
func (r *PGRepository) RejectOthers(ctx context.Context, tx pgx.Tx, gigID, winnerID string) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE bids
		SET status = 'rejected', updated_at = now()
		WHERE gig_id = $1 AND id <> $2 AND status <> 'rejected'
	`, gigID, winnerID)
	if err != nil {
		return 0, fmt.Errorf("bid: reject others: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListForGig returns a gig's bids newest-first with freelancer details.
func (r *PGRepository) ListForGig(ctx context.Context, gigID string) ([]Detail, error) {
	const selectSQL = `
		SELECT ` + detailColumns + `
		FROM bids b
		JOIN users u ON u.id = b.freelancer_id
		WHERE b.gig_id = $1
		ORDER BY b.created_at DESC, b.id DESC`

	rows, err := r.pool.Query(ctx, selectSQL, gigID)
	if err != nil {
		return nil, fmt.Errorf("bid: list for gig: %w", err)
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("bid: scan detail: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bid: iterate details: %w", err)
	}
	return out, nil
}

func scanBid(row pgx.Row) (Bid, error) {
	var b Bid
	var status string
	if err := row.Scan(&b.ID, &b.GigID, &b.FreelancerID, &b.Message, &b.Price, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Bid{}, err
	}
	b.Status = Status(status)
	return b, nil
}

func scanDetail(row pgx.Row) (Detail, error) {
	var d Detail
	var status string
	if err := row.Scan(
		&d.ID, &d.GigID, &d.FreelancerID, &d.Message, &d.Price, &status, &d.CreatedAt, &d.UpdatedAt,
		&d.FreelancerName, &d.FreelancerEmail,
	); err != nil {
		return Detail{}, err
	}
	d.Status = Status(status)
	return d, nil
}
