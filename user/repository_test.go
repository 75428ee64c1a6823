package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestDeleteAgentCascade_LocksAgentBeforeDeletingProperties(t *testing.T) {
	tx := &recordingTx{}
	repo := NewRepository(nil)

	if err := repo.DeleteAgentCascade(context.Background(), tx, 7); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if len(tx.stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %v", len(tx.stmts), tx.stmts)
	}
	if !strings.Contains(tx.stmts[0], "FROM agents") || !strings.Contains(tx.stmts[0], "FOR UPDATE") {
		t.Errorf("expected agent row lock first, got %q", tx.stmts[0])
	}
	if !strings.Contains(tx.stmts[1], "DELETE FROM properties") {
		t.Errorf("expected property delete after the lock, got %q", tx.stmts[1])
	}
	if !strings.Contains(tx.stmts[2], "DELETE FROM agents") {
		t.Errorf("expected agent delete last, got %q", tx.stmts[2])
	}
}

func TestDeleteAgentCascade_VanishedAgentIsNoOp(t *testing.T) {
	tx := &recordingTx{rowErr: pgx.ErrNoRows}
	repo := NewRepository(nil)

	if err := repo.DeleteAgentCascade(context.Background(), tx, 7); err != nil {
		t.Fatalf("expected nil error for vanished agent, got %v", err)
	}
	if len(tx.stmts) != 1 {
		t.Errorf("expected no statement after the failed lock, got %v", tx.stmts)
	}
}

// recordingTx captures statement order for the tx-scoped repository methods.
type recordingTx struct {
	stmts  []string
	rowErr error
}

func (t *recordingTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	t.stmts = append(t.stmts, sql)
	return recordedRow{err: t.rowErr}
}

func (t *recordingTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.stmts = append(t.stmts, sql)
	return pgconn.CommandTag{}, nil
}

type recordedRow struct {
	err error
}

func (r recordedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for _, d := range dest {
		if p, ok := d.(*int64); ok {
			*p = 1
		}
	}
	return nil
}

func (t *recordingTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("recordingTx does not support nested transactions")
}

func (t *recordingTx) Commit(context.Context) error { return nil }

func (t *recordingTx) Rollback(context.Context) error { return nil }

func (t *recordingTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (t *recordingTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (t *recordingTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (t *recordingTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (t *recordingTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (t *recordingTx) Conn() *pgx.Conn {
	return nil
}
