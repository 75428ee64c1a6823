package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrInvalidInput signals a request that failed validation before any write.
var ErrInvalidInput = errors.New("agent: invalid input")

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service owns the agent side of the referential consistency rules: an agent
// always references exactly one existing user, and removing an agent never
// strands the properties it owns.
type Service struct {
	pool TxBeginner
	repo Repository
}

// NewService builds a Service over the given transaction source and repository.
func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{pool: pool, repo: repo}
}

// Create registers an agent under the given username. The backing user is
// resolved or created inside the same transaction: an unknown username gets a
// fresh user with a derived placeholder email, an existing user with a
// different role is promoted to agent. A second agent for the same user fails
// with ErrDuplicateAgent.
func (s *Service) Create(ctx context.Context, params CreateParams) (Agent, error) {
	params.Username = strings.TrimSpace(params.Username)
	if params.Username == "" {
		return Agent{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if strings.TrimSpace(params.LicenseNo) == "" {
		return Agent{}, fmt.Errorf("%w: license number is required", ErrInvalidInput)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Agent{}, fmt.Errorf("agent: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	userID, role, found, err := s.repo.GetUserByUsername(ctx, tx, params.Username)
	if err != nil {
		return Agent{}, err
	}

	switch {
	case !found:
		email := fmt.Sprintf("%s@placeholder.local", params.Username)
		userID, err = s.repo.InsertUserAsAgent(ctx, tx, params.Username, email)
		if err != nil {
			return Agent{}, err
		}
	case role != "agent":
		if err := s.repo.PromoteUserToAgent(ctx, tx, userID); err != nil {
			return Agent{}, err
		}
	}

	created, err := s.repo.Insert(ctx, tx, userID, params.LicenseNo, params.Region)
	if err != nil {
		return Agent{}, err
	}
	created.Username = params.Username

	if err := tx.Commit(ctx); err != nil {
		return Agent{}, fmt.Errorf("agent: commit tx: %w", err)
	}

	return created, nil
}

// Update rewrites agent fields and, when a username is supplied, renames the
// owning user in the same transaction.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (Agent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Agent{}, fmt.Errorf("agent: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return Agent{}, err
	}

	updated, err := s.repo.Update(ctx, tx, id, params.LicenseNo, params.Region)
	if err != nil {
		return Agent{}, err
	}
	updated.Username = current.Username

	if name := strings.TrimSpace(params.Username); name != "" && name != current.Username {
		if err := s.repo.RenameUser(ctx, tx, current.UserID, name); err != nil {
			return Agent{}, err
		}
		updated.Username = name
	}

	if err := tx.Commit(ctx); err != nil {
		return Agent{}, fmt.Errorf("agent: commit tx: %w", err)
	}

	return updated, nil
}

// Delete removes the agent and every property it owns as one atomic unit.
// The backing user survives but is demoted to buyer so its role stays in
// sync; only full user deletion removes it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("agent: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.DeleteCascade(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("agent: commit tx: %w", err)
	}

	return nil
}

// GetByID returns the agent for the given identifier.
func (s *Service) GetByID(ctx context.Context, id int64) (Agent, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all agents.
func (s *Service) List(ctx context.Context) ([]Agent, error) {
	return s.repo.List(ctx)
}
