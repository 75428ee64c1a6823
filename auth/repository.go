package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAccountNotFound signals that no account exists for the username or id.
	ErrAccountNotFound = errors.New("auth: account not found")
	// ErrDuplicateUsername signals that the username is already registered.
	ErrDuplicateUsername = errors.New("auth: username already exists")
)

// Repository handles data access for authentication.
type Repository interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error)
	GetByUsername(ctx context.Context, username string) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
}

// CreateAccountParams contains write parameters for registering accounts.
type CreateAccountParams struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
}

// PGRepository implements Repository backed by PostgreSQL. It reads and
// writes the same users table the user package manages, adding only the
// credential column.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed auth repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateAccount inserts a new user with hashed password. Registering
// directly as an agent also creates the linked agent row so the role never
// disagrees with the agents table.
func (r *PGRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	const insertSQL = `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, username, email, password_hash, role, created_at
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("auth: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := scanAccount(tx.QueryRow(ctx, insertSQL, params.Username, params.Email, params.PasswordHash, params.Role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateUsername
		}
		return Account{}, fmt.Errorf("auth: create account: %w", err)
	}

	if account.Role == "agent" {
		if _, err := tx.Exec(ctx, `INSERT INTO agents (user_id) VALUES ($1)`, account.ID); err != nil {
			return Account{}, fmt.Errorf("auth: create agent row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, fmt.Errorf("auth: commit tx: %w", err)
	}

	return account, nil
}

// GetByUsername retrieves an account by username.
func (r *PGRepository) GetByUsername(ctx context.Context, username string) (Account, error) {
	const selectSQL = `
		SELECT user_id, username, email, password_hash, role, created_at
		FROM users
		WHERE username = $1
	`

	account, err := scanAccount(r.pool.QueryRow(ctx, selectSQL, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("auth: get by username: %w", err)
	}

	return account, nil
}

// GetByID retrieves an account by user id.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (Account, error) {
	const selectSQL = `
		SELECT user_id, username, email, password_hash, role, created_at
		FROM users
		WHERE user_id = $1
	`

	account, err := scanAccount(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("auth: get by id: %w", err)
	}

	return account, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		account Account
		hash    *string
	)
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&hash,
		&account.Role,
		&account.CreatedAt,
	)
	if err != nil {
		return Account{}, err
	}

	if hash != nil {
		account.PasswordHash = *hash
	}
	return account, nil
}
