package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the hire invariants as queries that select violating rows.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_single_winner",
			SQL: `SELECT gig_id, COUNT(*) FROM bids
                  WHERE status = 'hired'
                  GROUP BY gig_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_assigned_iff_hired",
			SQL: `SELECT g.id, g.status FROM gigs g
                  WHERE (g.status = 'assigned') <> EXISTS (
                      SELECT 1 FROM bids b WHERE b.gig_id = g.id AND b.status = 'hired')`,
		},
		{
			Name: "O3_rejection_complete",
			SQL: `SELECT b.id, b.gig_id FROM bids b
                  JOIN gigs g ON g.id = b.gig_id
                  WHERE g.status = 'assigned' AND b.status = 'pending'`,
		},
		{
			Name: "O4_no_rejection_without_hire",
			SQL: `SELECT b.id, b.gig_id FROM bids b
                  JOIN gigs g ON g.id = b.gig_id
                  WHERE g.status = 'open' AND b.status <> 'pending'`,
		},
		{
			Name: "O5_hired_index_present",
			SQL: `SELECT 'missing_bids_one_hired_per_gig' AS detail
                  WHERE NOT EXISTS (
                      SELECT 1 FROM pg_indexes
                      WHERE indexname = 'bids_one_hired_per_gig' AND schemaname = current_schema())`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}
