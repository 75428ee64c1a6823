package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrInvalidInput signals a request that failed validation before any write.
var ErrInvalidInput = errors.New("user: invalid input")

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service sequences the dependent reads and writes that keep the users,
// agents, and properties tables referentially consistent. Every mutating
// operation runs as a single transaction: either the whole sequence commits
// or none of it does.
type Service struct {
	pool TxBeginner
	repo Repository
}

// NewService builds a Service over the given transaction source and repository.
func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{pool: pool, repo: repo}
}

// Create inserts a new user. A user created with role "agent" gets a
// placeholder agent row in the same transaction, so the role always agrees
// with the agents table.
func (s *Service) Create(ctx context.Context, params CreateParams) (User, error) {
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)
	if params.Username == "" || params.Email == "" {
		return User{}, fmt.Errorf("%w: username and email are required", ErrInvalidInput)
	}
	if params.Role == "" {
		params.Role = RoleBuyer
	}
	if !ValidRole(params.Role) {
		return User{}, fmt.Errorf("%w: invalid role %q", ErrInvalidInput, params.Role)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("user: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := s.repo.Insert(ctx, tx, params)
	if err != nil {
		return User{}, err
	}

	if created.Role == RoleAgent {
		if _, err := s.repo.InsertPlaceholderAgent(ctx, tx, created.ID); err != nil {
			return User{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("user: commit tx: %w", err)
	}

	return created, nil
}

// Update rewrites user fields and keeps the agents table in sync with the
// resulting role: a role of "agent" guarantees exactly one linked agent row,
// any other role guarantees zero. Removing an agent cascades to its
// properties so no listing is left pointing at a deleted agent.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (User, error) {
	if params.Role != "" && !ValidRole(params.Role) {
		return User{}, fmt.Errorf("%w: invalid role %q", ErrInvalidInput, params.Role)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("user: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.repo.GetForUpdate(ctx, tx, id); err != nil {
		return User{}, err
	}

	updated, err := s.repo.Update(ctx, tx, id, params)
	if err != nil {
		return User{}, err
	}

	agentID, hasAgent, err := s.repo.AgentForUser(ctx, tx, id)
	if err != nil {
		return User{}, err
	}

	switch {
	case updated.Role == RoleAgent && !hasAgent:
		if _, err := s.repo.InsertPlaceholderAgent(ctx, tx, id); err != nil {
			return User{}, err
		}
	case updated.Role != RoleAgent && hasAgent:
		if err := s.repo.DeleteAgentCascade(ctx, tx, agentID); err != nil {
			return User{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("user: commit tx: %w", err)
	}

	return updated, nil
}

// SetRole changes only the user's role, applying the same role-sync rules as
// Update.
func (s *Service) SetRole(ctx context.Context, id int64, role Role) (User, error) {
	if !ValidRole(role) {
		return User{}, fmt.Errorf("%w: invalid role %q", ErrInvalidInput, role)
	}
	return s.Update(ctx, id, UpdateParams{Role: role})
}

// Delete removes the user, its agent row if one exists, and every property
// that agent owns, as one atomic unit.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("user: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.repo.GetForUpdate(ctx, tx, id); err != nil {
		return err
	}

	agentID, hasAgent, err := s.repo.AgentForUser(ctx, tx, id)
	if err != nil {
		return err
	}
	if hasAgent {
		if err := s.repo.DeleteAgentCascade(ctx, tx, agentID); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("user: commit tx: %w", err)
	}

	return nil
}

// GetByID returns the user for the given identifier.
func (s *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}
