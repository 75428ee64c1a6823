package property

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrInvalidInput signals a request that failed validation before any write.
var ErrInvalidInput = errors.New("property: invalid input")

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service handles listing lifecycle operations. Listings reference agents by
// username on the way in; the resolve happens in the same transaction as the
// write so a listing can never be created against an agent that vanished in
// between.
type Service struct {
	pool TxBeginner
	repo Repository
}

// NewService builds a Service over the given transaction source and repository.
func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{pool: pool, repo: repo}
}

// Create inserts a listing assigned to the agent behind the given username.
// Fails with ErrAgentNotFound before writing anything when the username is
// not linked to an agent.
func (s *Service) Create(ctx context.Context, params CreateParams) (Property, error) {
	params.AgentUsername = strings.TrimSpace(params.AgentUsername)
	params.Title = strings.TrimSpace(params.Title)
	params.City = strings.TrimSpace(params.City)
	if params.AgentUsername == "" {
		return Property{}, fmt.Errorf("%w: agent username is required", ErrInvalidInput)
	}
	if params.Title == "" || params.City == "" {
		return Property{}, fmt.Errorf("%w: title and city are required", ErrInvalidInput)
	}
	if params.Price < 0 {
		return Property{}, fmt.Errorf("%w: negative price", ErrInvalidInput)
	}
	if params.PropertyType == "" {
		params.PropertyType = DealSale
	}
	if !ValidDealType(params.PropertyType) {
		return Property{}, fmt.Errorf("%w: invalid property type %q", ErrInvalidInput, params.PropertyType)
	}
	if params.Status == "" {
		params.Status = StatusAvailable
	}
	if !ValidStatus(params.Status) {
		return Property{}, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, params.Status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Property{}, fmt.Errorf("property: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	agentID, err := s.repo.ResolveAgent(ctx, tx, params.AgentUsername)
	if err != nil {
		return Property{}, err
	}

	created, err := s.repo.Insert(ctx, tx, agentID, params)
	if err != nil {
		return Property{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Property{}, fmt.Errorf("property: commit tx: %w", err)
	}

	username := params.AgentUsername
	created.AgentUsername = &username
	return created, nil
}

// Update rewrites listing fields. A non-empty AgentUsername reassigns the
// listing, resolved in the same transaction as the update.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (Property, error) {
	if params.PropertyType != "" && !ValidDealType(params.PropertyType) {
		return Property{}, fmt.Errorf("%w: invalid property type %q", ErrInvalidInput, params.PropertyType)
	}
	if params.Status != "" && !ValidStatus(params.Status) {
		return Property{}, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, params.Status)
	}
	if params.Price != nil && *params.Price < 0 {
		return Property{}, fmt.Errorf("%w: negative price", ErrInvalidInput)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Property{}, fmt.Errorf("property: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var agentID *int64
	if username := strings.TrimSpace(params.AgentUsername); username != "" {
		resolved, err := s.repo.ResolveAgent(ctx, tx, username)
		if err != nil {
			return Property{}, err
		}
		agentID = &resolved
	}

	updated, err := s.repo.Update(ctx, tx, id, agentID, params)
	if err != nil {
		return Property{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Property{}, fmt.Errorf("property: commit tx: %w", err)
	}

	return updated, nil
}

// UpdateStatus changes only the listing status. Unknown ids surface as
// ErrNotFound with no write performed.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: invalid status %q", ErrInvalidInput, status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// Delete removes the listing unconditionally. Listings are leaf rows, so
// deleting one that is already gone is not an error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := s.repo.Delete(ctx, id)
	return err
}

// GetByID returns the listing for the given identifier.
func (s *Service) GetByID(ctx context.Context, id int64) (Property, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all listings with their agent usernames.
func (s *Service) List(ctx context.Context) ([]Property, error) {
	return s.repo.List(ctx)
}

// AvailableByCity returns available listings in the given city.
func (s *Service) AvailableByCity(ctx context.Context, city string) ([]Property, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("%w: city is required", ErrInvalidInput)
	}
	return s.repo.AvailableByCity(ctx, city)
}

// CheckPrice returns the price of the listing, or ErrNotFound.
func (s *Service) CheckPrice(ctx context.Context, id int64) (float64, error) {
	return s.repo.GetPrice(ctx, id)
}
