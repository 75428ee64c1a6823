package property

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestCreate_ResolvesAgentBeforeInsert(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{agentID: 42}
	svc := NewService(pool, repo)

	created, err := svc.Create(context.Background(), CreateParams{
		AgentUsername: "ravi",
		Title:         "2BHK near lake",
		City:          "Pune",
		Price:         4500000,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.insertedAgentID != 42 {
		t.Errorf("expected insert for agent 42, got %d", repo.insertedAgentID)
	}
	if created.PropertyType != DealSale || created.Status != StatusAvailable {
		t.Errorf("expected defaults applied, got type=%q status=%q", created.PropertyType, created.Status)
	}
	if created.AgentUsername == nil || *created.AgentUsername != "ravi" {
		t.Errorf("expected agent username on result")
	}
	if !pool.tx.committed {
		t.Errorf("expected commit")
	}
}

func TestCreate_UnknownAgentWritesNothing(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{resolveErr: ErrAgentNotFound}
	svc := NewService(pool, repo)

	_, err := svc.Create(context.Background(), CreateParams{
		AgentUsername: "ghost",
		Title:         "Plot",
		City:          "Pune",
		Price:         100,
	})
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if repo.insertedAgentID != 0 {
		t.Errorf("expected no insert after failed resolve")
	}
	if pool.tx.committed {
		t.Errorf("expected commit to be skipped")
	}
	if !pool.tx.rolled {
		t.Errorf("expected rollback")
	}
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	svc := NewService(&fakePool{}, &fakeRepo{agentID: 1})

	cases := []CreateParams{
		{Title: "Plot", City: "Pune", Price: 1},                                                  // no agent
		{AgentUsername: "ravi", City: "Pune", Price: 1},                                          // no title
		{AgentUsername: "ravi", Title: "Plot", City: "Pune", Price: -5},                          // negative price
		{AgentUsername: "ravi", Title: "Plot", City: "Pune", Price: 1, Status: "demolished"},     // bad status
		{AgentUsername: "ravi", Title: "Plot", City: "Pune", Price: 1, PropertyType: "timeshare"}, // bad type
	}
	for i, params := range cases {
		if _, err := svc.Create(context.Background(), params); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestUpdate_ReassignsAgentInSameTx(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{agentID: 9, updated: Property{ID: 3, Title: "Plot"}}
	svc := NewService(pool, repo)

	if _, err := svc.Update(context.Background(), 3, UpdateParams{AgentUsername: "meera"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.updatedAgentID == nil || *repo.updatedAgentID != 9 {
		t.Errorf("expected reassignment to agent 9")
	}
	if !pool.tx.committed {
		t.Errorf("expected commit")
	}
}

func TestUpdate_KeepsAgentWhenUsernameOmitted(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{updated: Property{ID: 3}}
	svc := NewService(pool, repo)

	if _, err := svc.Update(context.Background(), 3, UpdateParams{Title: "Renamed"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.updatedAgentID != nil {
		t.Errorf("expected nil agent id passthrough")
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	repo := &fakeRepo{statusErr: ErrNotFound}
	svc := NewService(&fakePool{}, repo)

	if err := svc.UpdateStatus(context.Background(), 99, StatusSold); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_RejectsInvalidStatus(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(&fakePool{}, repo)

	if err := svc.UpdateStatus(context.Background(), 1, "demolished"); err == nil {
		t.Fatalf("expected invalid status error")
	}
	if repo.statusUpdated {
		t.Errorf("expected no write for invalid status")
	}
}

func TestDelete_MissingRowIsNotAnError(t *testing.T) {
	repo := &fakeRepo{deleteExisted: false}
	svc := NewService(&fakePool{}, repo)

	if err := svc.Delete(context.Background(), 99); err != nil {
		t.Fatalf("expected nil error for missing leaf row, got %v", err)
	}
}

func TestAvailableByCity_RequiresCity(t *testing.T) {
	svc := NewService(&fakePool{}, &fakeRepo{})

	if _, err := svc.AvailableByCity(context.Background(), "  "); err == nil {
		t.Fatalf("expected validation error for blank city")
	}
}

type fakeRepo struct {
	agentID    int64
	resolveErr error

	insertedAgentID int64

	updated        Property
	updatedAgentID *int64
	updateErr      error

	statusUpdated bool
	statusErr     error

	deleteExisted bool

	price    float64
	priceErr error
}

func (f *fakeRepo) ResolveAgent(_ context.Context, _ pgx.Tx, _ string) (int64, error) {
	if f.resolveErr != nil {
		return 0, f.resolveErr
	}
	return f.agentID, nil
}

func (f *fakeRepo) Insert(_ context.Context, _ pgx.Tx, agentID int64, params CreateParams) (Property, error) {
	f.insertedAgentID = agentID
	return Property{ID: 1, AgentID: &agentID, Title: params.Title, City: params.City,
		Price: params.Price, PropertyType: params.PropertyType, Status: params.Status}, nil
}

func (f *fakeRepo) Update(_ context.Context, _ pgx.Tx, _ int64, agentID *int64, _ UpdateParams) (Property, error) {
	if f.updateErr != nil {
		return Property{}, f.updateErr
	}
	f.updatedAgentID = agentID
	return f.updated, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, _ int64, _ Status) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusUpdated = true
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, _ int64) (bool, error) {
	return f.deleteExisted, nil
}

func (f *fakeRepo) GetByID(_ context.Context, _ int64) (Property, error) {
	return f.updated, nil
}

func (f *fakeRepo) List(_ context.Context) ([]Property, error) {
	return []Property{f.updated}, nil
}

func (f *fakeRepo) AvailableByCity(_ context.Context, _ string) ([]Property, error) {
	return []Property{f.updated}, nil
}

func (f *fakeRepo) GetPrice(_ context.Context, _ int64) (float64, error) {
	return f.price, f.priceErr
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
