package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals that the user does not exist.
	ErrNotFound = errors.New("user: not found")
	// ErrDuplicateUsername signals a unique-constraint hit on username.
	ErrDuplicateUsername = errors.New("user: username already exists")
)

// Repository defines the data access the service needs. Mutating methods run
// inside the caller's transaction so multi-step role-sync and cascade
// sequences commit or roll back as one unit.
type Repository interface {
	Insert(ctx context.Context, tx pgx.Tx, params CreateParams) (User, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (User, error)
	Update(ctx context.Context, tx pgx.Tx, id int64, params UpdateParams) (User, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	AgentForUser(ctx context.Context, tx pgx.Tx, userID int64) (int64, bool, error)
	InsertPlaceholderAgent(ctx context.Context, tx pgx.Tx, userID int64) (int64, error)
	DeleteAgentCascade(ctx context.Context, tx pgx.Tx, agentID int64) error
	GetByID(ctx context.Context, id int64) (User, error)
	List(ctx context.Context) ([]User, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed user repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert creates a new user row. The id comes from the table's sequence.
func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, params CreateParams) (User, error) {
	const insertSQL = `
		INSERT INTO users (username, email, role)
		VALUES ($1, $2, $3)
		RETURNING user_id, username, email, role, created_at
	`

	u, err := scanUser(tx.QueryRow(ctx, insertSQL, params.Username, params.Email, params.Role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateUsername
		}
		return User{}, fmt.Errorf("user: insert: %w", err)
	}

	return u, nil
}

// GetForUpdate locks the user row for the remainder of the transaction.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (User, error) {
	const selectSQL = `
		SELECT user_id, username, email, role, created_at
		FROM users
		WHERE user_id = $1
		FOR UPDATE
	`

	u, err := scanUser(tx.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("user: get for update: %w", err)
	}

	return u, nil
}

// Update rewrites the mutable user fields inside the transaction.
func (r *PGRepository) Update(ctx context.Context, tx pgx.Tx, id int64, params UpdateParams) (User, error) {
	const updateSQL = `
		UPDATE users
		SET username = COALESCE(NULLIF($2, ''), username),
		    email    = COALESCE(NULLIF($3, ''), email),
		    role     = COALESCE(NULLIF($4, ''), role)
		WHERE user_id = $1
		RETURNING user_id, username, email, role, created_at
	`

	u, err := scanUser(tx.QueryRow(ctx, updateSQL, id, params.Username, params.Email, string(params.Role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateUsername
		}
		return User{}, fmt.Errorf("user: update: %w", err)
	}

	return u, nil
}

// Delete removes the user row itself. Dependent agent and property rows must
// already be gone; see DeleteAgentCascade.
func (r *PGRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("user: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AgentForUser reports the agent row linked to the user, if any.
func (r *PGRepository) AgentForUser(ctx context.Context, tx pgx.Tx, userID int64) (int64, bool, error) {
	var agentID int64
	err := tx.QueryRow(ctx, `SELECT agent_id FROM agents WHERE user_id = $1`, userID).Scan(&agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("user: lookup agent: %w", err)
	}
	return agentID, true, nil
}

// InsertPlaceholderAgent creates the agent row that keeps a role of "agent" in
// sync. License and region keep their placeholder defaults until the agent is
// updated explicitly.
func (r *PGRepository) InsertPlaceholderAgent(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	var agentID int64
	err := tx.QueryRow(ctx, `INSERT INTO agents (user_id) VALUES ($1) RETURNING agent_id`, userID).Scan(&agentID)
	if err != nil {
		return 0, fmt.Errorf("user: insert placeholder agent: %w", err)
	}
	return agentID, nil
}

// DeleteAgentCascade removes the agent's properties and then the agent row.
// The agent row is locked before anything is deleted: listing inserts lock
// the same row while resolving the agent, so the cascade cannot race a
// concurrent insert into a foreign-key failure. An agent that vanished since
// the lookup makes the cascade a no-op. All statements run in the caller's
// transaction.
func (r *PGRepository) DeleteAgentCascade(ctx context.Context, tx pgx.Tx, agentID int64) error {
	var locked int64
	if err := tx.QueryRow(ctx, `SELECT agent_id FROM agents WHERE agent_id = $1 FOR UPDATE`, agentID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("user: lock agent for delete: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM properties WHERE agent_id = $1`, agentID); err != nil {
		return fmt.Errorf("user: delete agent properties: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM agents WHERE agent_id = $1`, agentID); err != nil {
		return fmt.Errorf("user: delete agent: %w", err)
	}
	return nil
}

// GetByID retrieves a user by primary key.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (User, error) {
	const selectSQL = `
		SELECT user_id, username, email, role, created_at
		FROM users
		WHERE user_id = $1
	`

	u, err := scanUser(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("user: get by id: %w", err)
	}

	return u, nil
}

// List returns all users ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	const selectSQL = `
		SELECT user_id, username, email, role, created_at
		FROM users
		ORDER BY user_id ASC
	`

	rows, err := r.pool.Query(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("user: list: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("user: scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user: iterate: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	return u, row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
	)
}
