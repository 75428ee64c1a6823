package property

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals that the property does not exist.
	ErrNotFound = errors.New("property: not found")
	// ErrAgentNotFound signals that no agent is linked to the given username.
	ErrAgentNotFound = errors.New("property: agent not found")
)

// Repository defines the data access the service needs.
type Repository interface {
	ResolveAgent(ctx context.Context, tx pgx.Tx, username string) (int64, error)
	Insert(ctx context.Context, tx pgx.Tx, agentID int64, params CreateParams) (Property, error)
	Update(ctx context.Context, tx pgx.Tx, id int64, agentID *int64, params UpdateParams) (Property, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (Property, error)
	List(ctx context.Context) ([]Property, error)
	AvailableByCity(ctx context.Context, city string) ([]Property, error)
	GetPrice(ctx context.Context, id int64) (float64, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed property repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ResolveAgent maps a username to its agent id via the users join, locking
// the agent row so a concurrent agent deletion cannot leave the new listing
// dangling.
func (r *PGRepository) ResolveAgent(ctx context.Context, tx pgx.Tx, username string) (int64, error) {
	const resolveSQL = `
		SELECT a.agent_id
		FROM agents a
		JOIN users u ON u.user_id = a.user_id
		WHERE u.username = $1
		FOR UPDATE OF a
	`

	var agentID int64
	if err := tx.QueryRow(ctx, resolveSQL, username).Scan(&agentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAgentNotFound
		}
		return 0, fmt.Errorf("property: resolve agent: %w", err)
	}
	return agentID, nil
}

// Insert creates a listing assigned to the resolved agent.
func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, agentID int64, params CreateParams) (Property, error) {
	const insertSQL = `
		INSERT INTO properties (agent_id, title, description, city, locality, price, property_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING property_id, agent_id, NULL::text, title, description, city, locality, price, property_type, status, created_at, updated_at
	`

	p, err := scanProperty(tx.QueryRow(ctx, insertSQL,
		agentID,
		params.Title,
		params.Description,
		params.City,
		params.Locality,
		params.Price,
		params.PropertyType,
		params.Status,
	))
	if err != nil {
		return Property{}, fmt.Errorf("property: insert: %w", err)
	}

	return p, nil
}

// Update rewrites listing fields inside the transaction. A non-nil agentID
// reassigns the listing to that agent.
func (r *PGRepository) Update(ctx context.Context, tx pgx.Tx, id int64, agentID *int64, params UpdateParams) (Property, error) {
	const updateSQL = `
		UPDATE properties
		SET agent_id      = COALESCE($2, agent_id),
		    title         = COALESCE(NULLIF($3, ''), title),
		    description   = COALESCE(NULLIF($4, ''), description),
		    city          = COALESCE(NULLIF($5, ''), city),
		    locality      = COALESCE(NULLIF($6, ''), locality),
		    price         = COALESCE($7, price),
		    property_type = COALESCE(NULLIF($8, ''), property_type),
		    status        = COALESCE(NULLIF($9, ''), status),
		    updated_at    = now()
		WHERE property_id = $1
		RETURNING property_id, agent_id, NULL::text, title, description, city, locality, price, property_type, status, created_at, updated_at
	`

	p, err := scanProperty(tx.QueryRow(ctx, updateSQL,
		id,
		agentID,
		params.Title,
		params.Description,
		params.City,
		params.Locality,
		params.Price,
		string(params.PropertyType),
		string(params.Status),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("property: update: %w", err)
	}

	return p, nil
}

// UpdateStatus changes only the status field. Zero affected rows means the
// listing does not exist.
func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE properties SET status = $2, updated_at = now() WHERE property_id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("property: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the listing. Properties are leaf rows so there is nothing to
// cascade; the bool reports whether a row was actually removed.
func (r *PGRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE property_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("property: delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByID fetches a listing with its agent's username.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (Property, error) {
	const selectSQL = `
		SELECT p.property_id, p.agent_id, u.username, p.title, p.description, p.city, p.locality,
		       p.price, p.property_type, p.status, p.created_at, p.updated_at
		FROM properties p
		LEFT JOIN agents a ON a.agent_id = p.agent_id
		LEFT JOIN users u ON u.user_id = a.user_id
		WHERE p.property_id = $1
	`

	p, err := scanProperty(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("property: get by id: %w", err)
	}

	return p, nil
}

// List returns all listings with agent usernames, ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Property, error) {
	const selectSQL = `
		SELECT p.property_id, p.agent_id, u.username, p.title, p.description, p.city, p.locality,
		       p.price, p.property_type, p.status, p.created_at, p.updated_at
		FROM properties p
		LEFT JOIN agents a ON a.agent_id = p.agent_id
		LEFT JOIN users u ON u.user_id = a.user_id
		ORDER BY p.property_id ASC
	`

	return r.queryProperties(ctx, selectSQL)
}

// AvailableByCity returns available listings in the given city.
func (r *PGRepository) AvailableByCity(ctx context.Context, city string) ([]Property, error) {
	const selectSQL = `
		SELECT p.property_id, p.agent_id, u.username, p.title, p.description, p.city, p.locality,
		       p.price, p.property_type, p.status, p.created_at, p.updated_at
		FROM properties p
		LEFT JOIN agents a ON a.agent_id = p.agent_id
		LEFT JOIN users u ON u.user_id = a.user_id
		WHERE lower(p.city) = lower($1)
		  AND p.status = 'available'
		ORDER BY p.property_id ASC
	`

	return r.queryProperties(ctx, selectSQL, city)
}

// GetPrice returns the listing price.
func (r *PGRepository) GetPrice(ctx context.Context, id int64) (float64, error) {
	var price float64
	err := r.pool.QueryRow(ctx, `SELECT price FROM properties WHERE property_id = $1`, id).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("property: get price: %w", err)
	}
	return price, nil
}

func (r *PGRepository) queryProperties(ctx context.Context, query string, args ...any) ([]Property, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("property: query: %w", err)
	}
	defer rows.Close()

	properties := []Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("property: scan: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("property: iterate: %w", err)
	}

	return properties, nil
}

func scanProperty(row pgx.Row) (Property, error) {
	var p Property
	return p, row.Scan(
		&p.ID,
		&p.AgentID,
		&p.AgentUsername,
		&p.Title,
		&p.Description,
		&p.City,
		&p.Locality,
		&p.Price,
		&p.PropertyType,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}
