package infra

import (
	"context"
	"fmt"
	"os"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const defaultImage = "postgres:16-alpine"

// Postgres is a disposable database for the hire tests. A zero value stands
// for a server the harness does not own; Terminate is then a no-op.
type Postgres struct {
	container *postgres.PostgresContainer
}

// StartPostgres runs a throwaway Postgres container and returns its DSN.
// GIGFLOW_PG_IMAGE overrides the image, e.g. to pin a minor version in CI.
func StartPostgres(ctx context.Context) (*Postgres, string, error) {
	image := os.Getenv("GIGFLOW_PG_IMAGE")
	if image == "" {
		image = defaultImage
	}

	c, err := postgres.Run(ctx, image,
		postgres.WithDatabase("gigflow"),
		postgres.WithUsername("gigflow"),
		postgres.WithPassword("gigflow"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("run %s: %w", image, err)
	}

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", fmt.Errorf("connection string: %w", err)
	}
	return &Postgres{container: c}, dsn, nil
}

func (p *Postgres) Terminate(ctx context.Context) error {
	if p == nil || p.container == nil {
		return nil
	}
	return p.container.Terminate(ctx)
}
