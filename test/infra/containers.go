package infra

import (
	"context"
	"fmt"
	"os"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PGContainer wraps the throwaway Postgres the stress run provisions. A zero
// value stands in when the run reuses an existing database, so Terminate is
// always safe to defer.
type PGContainer struct {
	C *postgres.PostgresContainer
}

// StartPostgres16 provisions a Postgres 16 container and returns its DSN.
// overrideDSN or the STRESS_TEST_PG_DSN env var short-circuit the container
// and reuse that database instead.
func StartPostgres16(ctx context.Context, overrideDSN string) (*PGContainer, string, error) {
	if overrideDSN != "" {
		return &PGContainer{}, overrideDSN, nil
	}
	if dsn := os.Getenv("STRESS_TEST_PG_DSN"); dsn != "" {
		return &PGContainer{}, dsn, nil
	}

	pgC, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("estateflow_test"),
		postgres.WithUsername("estateflow"),
		postgres.WithPassword("stresspass"),
	)
	if err != nil {
		return nil, "", fmt.Errorf("infra: run postgres container: %w", err)
	}

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, "", fmt.Errorf("infra: container connection string: %w", err)
	}
	return &PGContainer{C: pgC}, dsn, nil
}

func (p *PGContainer) Terminate(ctx context.Context) error {
	if p == nil || p.C == nil {
		return nil
	}
	return p.C.Terminate(ctx)
}
