package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"estateflow/agent"
	"estateflow/property"
	"estateflow/user"
)

var cities = []string{"Pune", "Mumbai", "Nagpur", "Nashik"}

// contention reports serialization failures and deadlocks, which Postgres
// resolves by aborting one of the transactions involved. Those are expected
// outcomes while the actors race, not harness failures.
func contention(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// Registrar hammers user creation with usernames drawn from a small shared
// pool so collisions are frequent. Duplicate-username rejections are the
// expected outcome under contention; anything else is a failure.
func Registrar(ctx context.Context, users *user.Service, names []string, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		name := names[rng.Intn(len(names))]
		_, err := users.Create(ctx, user.CreateParams{
			Username: name,
			Email:    fmt.Sprintf("%s@example.com", name),
			Role:     user.RoleBuyer,
		})
		if err != nil && !errors.Is(err, user.ErrDuplicateUsername) && !contention(err) {
			return fmt.Errorf("registrar create: %w", err)
		}
		time.Sleep(time.Duration(10+rng.Intn(20)) * time.Millisecond)
	}
}

// Promoter flips seeded users between buyer and agent roles, forcing the
// role-sync path (agent row created on promotion, cascade on demotion) to run
// under contention.
func Promoter(ctx context.Context, users *user.Service, userIDs []int64, rng *rand.Rand, stop <-chan struct{}) error {
	roles := []user.Role{user.RoleAgent, user.RoleBuyer}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		id := userIDs[rng.Intn(len(userIDs))]
		_, err := users.SetRole(ctx, id, roles[rng.Intn(len(roles))])
		if err != nil && !errors.Is(err, user.ErrNotFound) && !contention(err) {
			return fmt.Errorf("promoter set role: %w", err)
		}
		time.Sleep(time.Duration(20+rng.Intn(40)) * time.Millisecond)
	}
}

// Onboarder creates agents by username, racing the Registrar for the same
// name pool; unknown names trigger the implicit user-creation path.
func Onboarder(ctx context.Context, agents *agent.Service, names []string, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		name := names[rng.Intn(len(names))]
		_, err := agents.Create(ctx, agent.CreateParams{
			Username:  name,
			LicenseNo: fmt.Sprintf("LN-%04d", rng.Intn(10000)),
			Region:    cities[rng.Intn(len(cities))],
		})
		if err != nil &&
			!errors.Is(err, agent.ErrDuplicateAgent) &&
			!errors.Is(err, agent.ErrDuplicateUsername) &&
			!contention(err) {
			return fmt.Errorf("onboarder create: %w", err)
		}
		time.Sleep(time.Duration(20+rng.Intn(40)) * time.Millisecond)
	}
}

// ListingWriter attaches listings to whichever agents exist at the moment and
// flips a random subset to sold, exercising the commission trigger.
func ListingWriter(ctx context.Context, properties *property.Service, agents *agent.Service, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		roster, err := agents.List(ctx)
		if err != nil {
			return fmt.Errorf("listing writer roster: %w", err)
		}
		if len(roster) > 0 {
			a := roster[rng.Intn(len(roster))]
			created, err := properties.Create(ctx, property.CreateParams{
				AgentUsername: a.Username,
				Title:         fmt.Sprintf("Flat %d", rng.Intn(1000)),
				City:          cities[rng.Intn(len(cities))],
				Locality:      "Central",
				Price:         float64(1_000_000 + rng.Intn(9_000_000)),
				PropertyType:  property.DealSale,
				Status:        property.StatusAvailable,
			})
			switch {
			case err == nil:
				if rng.Intn(3) == 0 {
					if err := properties.UpdateStatus(ctx, created.ID, property.StatusSold); err != nil &&
						!errors.Is(err, property.ErrNotFound) && !contention(err) {
						return fmt.Errorf("listing writer sell: %w", err)
					}
				}
			case errors.Is(err, property.ErrAgentNotFound):
				// roster went stale under a concurrent demotion
			case contention(err):
			default:
				return fmt.Errorf("listing writer create: %w", err)
			}
		}
		time.Sleep(time.Duration(15+rng.Intn(35)) * time.Millisecond)
	}
}

// Reaper deletes random agents through the service, exercising the full
// cascade (listings dropped, owner demoted) while the other actors write.
func Reaper(ctx context.Context, agents *agent.Service, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		roster, err := agents.List(ctx)
		if err != nil {
			return fmt.Errorf("reaper roster: %w", err)
		}
		if len(roster) > 1 {
			target := roster[rng.Intn(len(roster))]
			if err := agents.Delete(ctx, target.ID); err != nil && !errors.Is(err, agent.ErrNotFound) && !contention(err) {
				return fmt.Errorf("reaper delete: %w", err)
			}
		}
		time.Sleep(time.Duration(150+rng.Intn(100)) * time.Millisecond)
	}
}

// Browser runs the read paths that back the public endpoints.
func Browser(ctx context.Context, properties *property.Service, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if _, err := properties.AvailableByCity(ctx, cities[rng.Intn(len(cities))]); err != nil {
			return fmt.Errorf("browser available: %w", err)
		}
		if _, err := properties.List(ctx); err != nil {
			return fmt.Errorf("browser list: %w", err)
		}
		time.Sleep(time.Duration(30+rng.Intn(50)) * time.Millisecond)
	}
}
