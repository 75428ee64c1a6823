package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals that the agent does not exist.
	ErrNotFound = errors.New("agent: not found")
	// ErrDuplicateAgent signals the owning user already has an agent row.
	ErrDuplicateAgent = errors.New("agent: user already registered as agent")
	// ErrDuplicateUsername signals a username collision while renaming the owner.
	ErrDuplicateUsername = errors.New("agent: username already exists")
)

// Repository defines the data access the service needs. Methods taking a
// pgx.Tx participate in the caller's transaction.
type Repository interface {
	GetUserByUsername(ctx context.Context, tx pgx.Tx, username string) (int64, string, bool, error)
	InsertUserAsAgent(ctx context.Context, tx pgx.Tx, username, email string) (int64, error)
	PromoteUserToAgent(ctx context.Context, tx pgx.Tx, userID int64) error
	Insert(ctx context.Context, tx pgx.Tx, userID int64, licenseNo, region string) (Agent, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Agent, error)
	Update(ctx context.Context, tx pgx.Tx, id int64, licenseNo, region string) (Agent, error)
	RenameUser(ctx context.Context, tx pgx.Tx, userID int64, username string) error
	DeleteCascade(ctx context.Context, tx pgx.Tx, id int64) error
	GetByID(ctx context.Context, id int64) (Agent, error)
	List(ctx context.Context) ([]Agent, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed agent repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetUserByUsername resolves a username to its user id and role, locking the
// row so a concurrent role change cannot slip between the lookup and the
// agent insert.
func (r *PGRepository) GetUserByUsername(ctx context.Context, tx pgx.Tx, username string) (int64, string, bool, error) {
	var (
		userID int64
		role   string
	)
	err := tx.QueryRow(ctx, `SELECT user_id, role FROM users WHERE username = $1 FOR UPDATE`, username).Scan(&userID, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", false, nil
		}
		return 0, "", false, fmt.Errorf("agent: resolve user: %w", err)
	}
	return userID, role, true, nil
}

// InsertUserAsAgent creates the backing user row for an agent registered
// under a previously unknown username.
func (r *PGRepository) InsertUserAsAgent(ctx context.Context, tx pgx.Tx, username, email string) (int64, error) {
	var userID int64
	err := tx.QueryRow(ctx,
		`INSERT INTO users (username, email, role) VALUES ($1, $2, 'agent') RETURNING user_id`,
		username, email,
	).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateUsername
		}
		return 0, fmt.Errorf("agent: insert backing user: %w", err)
	}
	return userID, nil
}

// PromoteUserToAgent flips an existing user's role to agent.
func (r *PGRepository) PromoteUserToAgent(ctx context.Context, tx pgx.Tx, userID int64) error {
	if _, err := tx.Exec(ctx, `UPDATE users SET role = 'agent' WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("agent: promote user: %w", err)
	}
	return nil
}

// Insert creates the agent row linked to the user.
func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, userID int64, licenseNo, region string) (Agent, error) {
	const insertSQL = `
		INSERT INTO agents (user_id, license_no, region)
		VALUES ($1, $2, $3)
		RETURNING agent_id, user_id, license_no, region, created_at
	`

	var a Agent
	err := tx.QueryRow(ctx, insertSQL, userID, licenseNo, region).Scan(
		&a.ID, &a.UserID, &a.LicenseNo, &a.Region, &a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Agent{}, ErrDuplicateAgent
		}
		return Agent{}, fmt.Errorf("agent: insert: %w", err)
	}

	return a, nil
}

// GetForUpdate locks the agent row for the remainder of the transaction.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Agent, error) {
	const selectSQL = `
		SELECT a.agent_id, a.user_id, u.username, a.license_no, a.region, a.created_at
		FROM agents a
		JOIN users u ON u.user_id = a.user_id
		WHERE a.agent_id = $1
		FOR UPDATE OF a
	`

	a, err := scanAgent(tx.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, fmt.Errorf("agent: get for update: %w", err)
	}

	return a, nil
}

// Update rewrites license and region inside the transaction.
func (r *PGRepository) Update(ctx context.Context, tx pgx.Tx, id int64, licenseNo, region string) (Agent, error) {
	const updateSQL = `
		UPDATE agents
		SET license_no = COALESCE(NULLIF($2, ''), license_no),
		    region     = COALESCE(NULLIF($3, ''), region)
		WHERE agent_id = $1
		RETURNING agent_id, user_id, license_no, region, created_at
	`

	var a Agent
	err := tx.QueryRow(ctx, updateSQL, id, licenseNo, region).Scan(
		&a.ID, &a.UserID, &a.LicenseNo, &a.Region, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, fmt.Errorf("agent: update: %w", err)
	}

	return a, nil
}

// RenameUser changes the owning user's username.
func (r *PGRepository) RenameUser(ctx context.Context, tx pgx.Tx, userID int64, username string) error {
	_, err := tx.Exec(ctx, `UPDATE users SET username = $2 WHERE user_id = $1`, userID, username)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("agent: rename user: %w", err)
	}
	return nil
}

// DeleteCascade removes every property owned by the agent, the agent row
// itself, and demotes the owning user back to buyer so the role never points
// at a missing agent. The agent row is locked before anything is deleted:
// listing inserts lock the same row while resolving the agent, so the cascade
// cannot start clearing properties while an insert is about to commit a new
// one behind its back. All statements run in the caller's transaction.
func (r *PGRepository) DeleteCascade(ctx context.Context, tx pgx.Tx, id int64) error {
	var userID int64
	if err := tx.QueryRow(ctx, `SELECT user_id FROM agents WHERE agent_id = $1 FOR UPDATE`, id).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("agent: lock for delete: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM properties WHERE agent_id = $1`, id); err != nil {
		return fmt.Errorf("agent: delete properties: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM agents WHERE agent_id = $1`, id); err != nil {
		return fmt.Errorf("agent: delete: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET role = 'buyer' WHERE user_id = $1 AND role = 'agent'`, userID); err != nil {
		return fmt.Errorf("agent: demote owner: %w", err)
	}
	return nil
}

// GetByID fetches an agent with its username by primary key.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (Agent, error) {
	const selectSQL = `
		SELECT a.agent_id, a.user_id, u.username, a.license_no, a.region, a.created_at
		FROM agents a
		JOIN users u ON u.user_id = a.user_id
		WHERE a.agent_id = $1
	`

	a, err := scanAgent(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, fmt.Errorf("agent: get by id: %w", err)
	}

	return a, nil
}

// List returns all agents joined with their usernames, ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Agent, error) {
	const selectSQL = `
		SELECT a.agent_id, a.user_id, u.username, a.license_no, a.region, a.created_at
		FROM agents a
		JOIN users u ON u.user_id = a.user_id
		ORDER BY a.agent_id ASC
	`

	rows, err := r.pool.Query(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("agent: list: %w", err)
	}
	defer rows.Close()

	agents := []Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("agent: scan: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agent: iterate: %w", err)
	}

	return agents, nil
}

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	return a, row.Scan(
		&a.ID,
		&a.UserID,
		&a.Username,
		&a.LicenseNo,
		&a.Region,
		&a.CreatedAt,
	)
}
