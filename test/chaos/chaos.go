package chaos

import (
	"context"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TerminateRandomBackend periodically kills one backend of the current
// database, simulating a dropped connection mid-transaction. When appLike is
// non-empty only backends whose application_name matches the pattern are
// candidates; the killer's own backend is never targeted. Roughly one tick in
// five fires.
func TerminateRandomBackend(ctx context.Context, pool *pgxpool.Pool, appLike string, rng *rand.Rand, stop <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if rng.Intn(5) != 0 {
				continue
			}
			query := `SELECT pg_terminate_backend(pid) FROM pg_stat_activity
				WHERE datname = current_database() AND pid <> pg_backend_pid()`
			args := []any{}
			if appLike != "" {
				query += ` AND application_name LIKE $1`
				args = append(args, appLike)
			}
			query += ` ORDER BY random() LIMIT 1`
			_, _ = pool.Exec(ctx, query, args...)
		}
	}
}
