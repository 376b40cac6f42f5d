package gig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no gig row exists for the identifier.
	ErrNotFound = errors.New("gig: not found")
	// ErrNotOpen signals a compare-and-swap on an already assigned gig.
	ErrNotOpen = errors.New("gig: not open")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

const gigColumns = `id::text, owner_id::text, title, description, budget::float8, status::text, created_at, updated_at`

// Repository is the gig store.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Gig, error)
	GetByID(ctx context.Context, id string) (Gig, error)
	ListOpen(ctx context.Context, f Filters) ([]Listing, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed gig repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts an open gig.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Gig, error) {
	const insertSQL = `
		INSERT INTO gigs (owner_id, title, description, budget)
		VALUES ($1::uuid, $2, $3, $4)
		RETURNING ` + gigColumns

	g, err := scanGig(r.pool.QueryRow(ctx, insertSQL, params.OwnerID, params.Title, params.Description, params.Budget))
	if err != nil {
		return Gig{}, fmt.Errorf("gig: create: %w", err)
	}
	return g, nil
}

// GetByID loads a gig without locking it.
func (r *PGRepository) GetByID(ctx context.Context, id string) (Gig, error) {
	if uuid.Validate(id) != nil {
		return Gig{}, ErrNotFound
	}
	const selectSQL = `SELECT ` + gigColumns + ` FROM gigs WHERE id = $1`

	g, err := scanGig(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Gig{}, ErrNotFound
		}
		return Gig{}, fmt.Errorf("gig: get: %w", err)
	}
	return g, nil
}

// GetForUpdate loads a gig and holds its row lock until tx ends.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Gig, error) {
	if uuid.Validate(id) != nil {
		return Gig{}, ErrNotFound
	}
	const selectSQL = `SELECT ` + gigColumns + ` FROM gigs WHERE id = $1 FOR UPDATE`

	g, err := scanGig(tx.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Gig{}, ErrNotFound
		}
		return Gig{}, fmt.Errorf("gig: lock: %w", err)
	}
	return g, nil
}

// MarkAssigned moves an open gig to assigned. It touches no row when the gig
// is no longer open and reports ErrNotOpen.
func (r *PGRepository) MarkAssigned(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE gigs
		SET status = 'assigned', updated_at = now()
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return fmt.Errorf("gig: mark assigned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotOpen
	}
	return nil
}

// ListOpen returns open gigs newest-first, optionally filtered by a
// case-insensitive title match.
func (r *PGRepository) ListOpen(ctx context.Context, f Filters) ([]Listing, error) {
	query, args, err := buildListOpenQuery(f)
	if err != nil {
		return nil, fmt.Errorf("gig: build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("gig: list open: %w", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var l Listing
		var status string
		if err := rows.Scan(
			&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Budget, &status,
			&l.CreatedAt, &l.UpdatedAt, &l.OwnerName, &l.OwnerEmail,
		); err != nil {
			return nil, fmt.Errorf("gig: scan listing: %w", err)
		}
		l.Status = Status(status)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gig: iterate listings: %w", err)
	}
	return out, nil
}

func buildListOpenQuery(f Filters) (string, []any, error) {
	limit := f.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := sq.Select(
		"g.id::text", "g.owner_id::text", "g.title", "g.description", "g.budget::float8",
		"g.status::text", "g.created_at", "g.updated_at", "u.name", "u.email",
	).
		From("gigs g").
		Join("users u ON u.id = g.owner_id").
		Where(sq.Eq{"g.status": string(StatusOpen)}).
		OrderBy("g.created_at DESC", "g.id DESC").
		Limit(limit).
		PlaceholderFormat(sq.Dollar)

	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where(sq.ILike{"g.title": "%" + escapeLike(search) + "%"})
	}

	return q.ToSql()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func scanGig(row pgx.Row) (Gig, error) {
	var g Gig
	var status string
	if err := row.Scan(&g.ID, &g.OwnerID, &g.Title, &g.Description, &g.Budget, &status, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return Gig{}, err
	}
	g.Status = Status(status)
	return g, nil
}
