// Package report invokes the database-resident aggregation routines. Their
// bodies live in the migrations and are treated as opaque: agent id in,
// scalar out.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAgentNotFound signals the agent the report was requested for is absent.
var ErrAgentNotFound = errors.New("report: agent not found")

// Querier abstracts pgxpool.Pool for testability.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service surfaces the scalar results of the stored aggregation routines.
type Service struct {
	db Querier
}

// NewService builds a Service over the given query source.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{db: pool}
}

// NewServiceWithQuerier is the test seam for stubbing the database.
func NewServiceWithQuerier(db Querier) *Service {
	return &Service{db: db}
}

// TotalSales invokes calc_total_sales for the agent.
func (s *Service) TotalSales(ctx context.Context, agentID int64) (float64, error) {
	if err := s.ensureAgent(ctx, agentID); err != nil {
		return 0, err
	}

	var total float64
	if err := s.db.QueryRow(ctx, `SELECT calc_total_sales($1)`, agentID).Scan(&total); err != nil {
		return 0, fmt.Errorf("report: calc total sales: %w", err)
	}
	return total, nil
}

// TotalCommission invokes get_total_commission for the agent.
func (s *Service) TotalCommission(ctx context.Context, agentID int64) (float64, error) {
	if err := s.ensureAgent(ctx, agentID); err != nil {
		return 0, err
	}

	var total float64
	if err := s.db.QueryRow(ctx, `SELECT get_total_commission($1)`, agentID).Scan(&total); err != nil {
		return 0, fmt.Errorf("report: get total commission: %w", err)
	}
	return total, nil
}

// The routines return 0 for unknown agents, so existence is checked first to
// keep the not-found taxonomy intact.
func (s *Service) ensureAgent(ctx context.Context, agentID int64) error {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM agents WHERE agent_id = $1)`, agentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("report: check agent: %w", err)
	}
	if !exists {
		return ErrAgentNotFound
	}
	return nil
}
