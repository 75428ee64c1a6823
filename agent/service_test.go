package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestCreate_UnknownUsernameCreatesBackingUser(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{userFound: false}
	svc := NewService(pool, repo)

	created, err := svc.Create(context.Background(), CreateParams{Username: "ravi", LicenseNo: "LIC-9", Region: "north"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !repo.userInserted {
		t.Errorf("expected backing user insert")
	}
	if repo.insertedEmail != "ravi@placeholder.local" {
		t.Errorf("unexpected derived email %q", repo.insertedEmail)
	}
	if repo.promoted {
		t.Errorf("expected no promotion for fresh user")
	}
	if created.Username != "ravi" {
		t.Errorf("expected username on result, got %q", created.Username)
	}
	if !pool.tx.committed {
		t.Errorf("expected commit")
	}
}

func TestCreate_ExistingBuyerIsPromoted(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{userFound: true, userID: 5, userRole: "buyer"}
	svc := NewService(pool, repo)

	if _, err := svc.Create(context.Background(), CreateParams{Username: "ravi", LicenseNo: "LIC-9"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.userInserted {
		t.Errorf("expected no new user for known username")
	}
	if !repo.promoted {
		t.Errorf("expected role promotion to agent")
	}
	if repo.insertedUserID != 5 {
		t.Errorf("expected agent linked to user 5, got %d", repo.insertedUserID)
	}
}

func TestCreate_ExistingAgentRoleSkipsPromotion(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{userFound: true, userID: 5, userRole: "agent"}
	svc := NewService(pool, repo)

	if _, err := svc.Create(context.Background(), CreateParams{Username: "ravi", LicenseNo: "LIC-9"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.promoted {
		t.Errorf("expected no promotion when role already agent")
	}
}

func TestCreate_DuplicateAgentRollsBack(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{userFound: true, userID: 5, userRole: "agent", insertErr: ErrDuplicateAgent}
	svc := NewService(pool, repo)

	_, err := svc.Create(context.Background(), CreateParams{Username: "ravi", LicenseNo: "LIC-9"})
	if !errors.Is(err, ErrDuplicateAgent) {
		t.Fatalf("expected ErrDuplicateAgent, got %v", err)
	}
	if pool.tx.committed {
		t.Errorf("expected commit to be skipped")
	}
	if !pool.tx.rolled {
		t.Errorf("expected rollback")
	}
}

func TestCreate_RequiresLicense(t *testing.T) {
	svc := NewService(&fakePool{}, &fakeRepo{})

	if _, err := svc.Create(context.Background(), CreateParams{Username: "ravi"}); err == nil {
		t.Fatalf("expected validation error for missing license")
	}
}

func TestUpdate_RenamesOwnerOnlyWhenChanged(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{
		current: Agent{ID: 3, UserID: 5, Username: "ravi", LicenseNo: "LIC-9", Region: "north"},
		updated: Agent{ID: 3, UserID: 5, LicenseNo: "LIC-10", Region: "north"},
	}
	svc := NewService(pool, repo)

	got, err := svc.Update(context.Background(), 3, UpdateParams{Username: "ravi", LicenseNo: "LIC-10"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.renamedTo != "" {
		t.Errorf("expected no rename for identical username, got %q", repo.renamedTo)
	}
	if got.Username != "ravi" {
		t.Errorf("expected username carried over, got %q", got.Username)
	}

	got, err = svc.Update(context.Background(), 3, UpdateParams{Username: "ravi-k"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.renamedTo != "ravi-k" {
		t.Errorf("expected rename to ravi-k, got %q", repo.renamedTo)
	}
	if got.Username != "ravi-k" {
		t.Errorf("expected new username on result, got %q", got.Username)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{getErr: ErrNotFound}
	svc := NewService(pool, repo)

	if _, err := svc.Update(context.Background(), 99, UpdateParams{LicenseNo: "LIC-1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if pool.tx.committed {
		t.Errorf("expected commit to be skipped")
	}
}

func TestDelete_CascadeCommits(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{}
	svc := NewService(pool, repo)

	if err := svc.Delete(context.Background(), 3); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.cascadedID != 3 {
		t.Errorf("expected cascade of agent 3, got %d", repo.cascadedID)
	}
	if !pool.tx.committed {
		t.Errorf("expected commit")
	}
}

func TestDelete_NotFoundRollsBack(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{cascadeErr: ErrNotFound}
	svc := NewService(pool, repo)

	if err := svc.Delete(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if pool.tx.committed {
		t.Errorf("expected commit to be skipped")
	}
	if !pool.tx.rolled {
		t.Errorf("expected rollback")
	}
}

type fakeRepo struct {
	userFound bool
	userID    int64
	userRole  string

	userInserted  bool
	insertedEmail string

	promoted bool

	insertErr      error
	insertedUserID int64

	current Agent
	getErr  error

	updated Agent

	renamedTo string
	renameErr error

	cascadedID int64
	cascadeErr error
}

func (f *fakeRepo) GetUserByUsername(_ context.Context, _ pgx.Tx, _ string) (int64, string, bool, error) {
	return f.userID, f.userRole, f.userFound, nil
}

func (f *fakeRepo) InsertUserAsAgent(_ context.Context, _ pgx.Tx, _ string, email string) (int64, error) {
	f.userInserted = true
	f.insertedEmail = email
	return 77, nil
}

func (f *fakeRepo) PromoteUserToAgent(_ context.Context, _ pgx.Tx, _ int64) error {
	f.promoted = true
	return nil
}

func (f *fakeRepo) Insert(_ context.Context, _ pgx.Tx, userID int64, licenseNo, region string) (Agent, error) {
	if f.insertErr != nil {
		return Agent{}, f.insertErr
	}
	f.insertedUserID = userID
	return Agent{ID: 1, UserID: userID, LicenseNo: licenseNo, Region: region}, nil
}

func (f *fakeRepo) GetForUpdate(_ context.Context, _ pgx.Tx, _ int64) (Agent, error) {
	if f.getErr != nil {
		return Agent{}, f.getErr
	}
	return f.current, nil
}

func (f *fakeRepo) Update(_ context.Context, _ pgx.Tx, _ int64, _, _ string) (Agent, error) {
	return f.updated, nil
}

func (f *fakeRepo) RenameUser(_ context.Context, _ pgx.Tx, _ int64, username string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renamedTo = username
	return nil
}

func (f *fakeRepo) DeleteCascade(_ context.Context, _ pgx.Tx, id int64) error {
	if f.cascadeErr != nil {
		return f.cascadeErr
	}
	f.cascadedID = id
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, _ int64) (Agent, error) {
	return f.current, f.getErr
}

func (f *fakeRepo) List(_ context.Context) ([]Agent, error) {
	return []Agent{f.current}, nil
}

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
