package adjustment

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-relief/meridian/internal/ledger"
	"github.com/meridian-relief/meridian/internal/shared"
)

type fakeLedger struct {
	entries map[int64]*ledger.StockEntry
	nextID  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[int64]*ledger.StockEntry{}, nextID: 1}
}

func (f *fakeLedger) GetEntryForUpdate(ctx context.Context, id int64) (ledger.StockEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return ledger.StockEntry{}, fmt.Errorf("entry %d: %w", id, shared.ErrNotFound)
	}
	return *e, nil
}

func (f *fakeLedger) FindByKeyForUpdate(ctx context.Context, key ledger.MatchKey) (ledger.StockEntry, error) {
	return ledger.StockEntry{}, fmt.Errorf("no entry: %w", shared.ErrNotFound)
}

func (f *fakeLedger) InsertEntry(ctx context.Context, entry ledger.StockEntry) (int64, error) {
	id := f.nextID
	f.nextID++
	entry.ID = id
	entry.Lifecycle = shared.LifecycleActive
	f.entries[id] = &entry
	return id, nil
}

func (f *fakeLedger) SetQuantity(ctx context.Context, id int64, quantity float64, actorID int64) error {
	e, ok := f.entries[id]
	if !ok {
		return fmt.Errorf("entry %d: %w", id, shared.ErrNotFound)
	}
	e.Quantity = quantity
	e.UpdatedBy = actorID
	return nil
}

func (f *fakeLedger) ListSiteEntriesForUpdate(ctx context.Context, siteID int64) ([]ledger.StockEntry, error) {
	out := []ledger.StockEntry{}
	for id := int64(1); id < f.nextID; id++ {
		e, ok := f.entries[id]
		if ok && e.SiteID == siteID && e.Quantity > 0 && e.Lifecycle == shared.LifecycleActive {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeStore struct {
	stock   *fakeLedger
	headers map[int64]*Adjustment
	lines   map[int64]*Line
	persons map[int64]string
	items   map[int64]string
	packs   map[int64]string
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stock:   newFakeLedger(),
		headers: map[int64]*Adjustment{},
		lines:   map[int64]*Line{},
		persons: map[int64]string{},
		items:   map[int64]string{},
		packs:   map[int64]string{},
		nextID:  1,
	}
}

func (f *fakeStore) Ledger() ledger.TxStore { return f.stock }

func (f *fakeStore) InsertHeader(ctx context.Context, a Adjustment) (int64, error) {
	a.ID = f.nextID
	f.nextID++
	if a.Date.IsZero() {
		a.Date = time.Now().UTC()
	}
	a.Lifecycle = shared.LifecycleActive
	f.headers[a.ID] = &a
	return a.ID, nil
}

func (f *fakeStore) GetHeaderForUpdate(ctx context.Context, id int64) (Adjustment, error) {
	a, ok := f.headers[id]
	if !ok {
		return Adjustment{}, fmt.Errorf("adjustment %d: %w", id, shared.ErrNotFound)
	}
	return *a, nil
}

func (f *fakeStore) SetHeaderStatus(ctx context.Context, id int64, status Status, actorID int64) error {
	a, ok := f.headers[id]
	if !ok {
		return fmt.Errorf("adjustment %d: %w", id, shared.ErrNotFound)
	}
	a.Status = status
	a.UpdatedBy = actorID
	return nil
}

func (f *fakeStore) InsertLine(ctx context.Context, l Line) (int64, error) {
	l.ID = f.nextID
	f.nextID++
	l.Lifecycle = shared.LifecycleActive
	f.lines[l.ID] = &l
	return l.ID, nil
}

func (f *fakeStore) GetLineForUpdate(ctx context.Context, id int64) (Line, error) {
	l, ok := f.lines[id]
	if !ok {
		return Line{}, fmt.Errorf("line %d: %w", id, shared.ErrNotFound)
	}
	return *l, nil
}

func (f *fakeStore) SetLineCount(ctx context.Context, id int64, newQuantity float64, reason Reason, comments string, actorID int64) error {
	l, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("line %d: %w", id, shared.ErrNotFound)
	}
	qty := newQuantity
	l.NewQuantity = &qty
	l.Reason = reason
	l.Comments = comments
	l.UpdatedBy = actorID
	return nil
}

func (f *fakeStore) ListLinesForUpdate(ctx context.Context, adjustmentID int64) ([]Line, error) {
	out := []Line{}
	for _, l := range f.lines {
		if l.AdjustmentID == adjustmentID && l.Lifecycle == shared.LifecycleActive {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) VoidLine(ctx context.Context, id int64, actorID int64) error {
	l, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("line %d: %w", id, shared.ErrNotFound)
	}
	l.Lifecycle = shared.LifecycleVoid
	l.UpdatedBy = actorID
	return nil
}

type fakeRepo struct {
	store *fakeStore
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, r.store)
}

func (r *fakeRepo) GetHeader(ctx context.Context, id int64) (Adjustment, error) {
	return r.store.GetHeaderForUpdate(ctx, id)
}

func (r *fakeRepo) GetLine(ctx context.Context, id int64) (Line, error) {
	return r.store.GetLineForUpdate(ctx, id)
}

func (r *fakeRepo) ListBySite(ctx context.Context, siteID int64, limit int) ([]Adjustment, error) {
	out := []Adjustment{}
	for _, a := range r.store.headers {
		if a.SiteID == siteID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListLines(ctx context.Context, adjustmentID int64) ([]Line, error) {
	return r.store.ListLinesForUpdate(ctx, adjustmentID)
}

func (r *fakeRepo) CountUncountedLines(ctx context.Context, adjustmentID int64) (int, error) {
	lines, _ := r.store.ListLinesForUpdate(ctx, adjustmentID)
	count := 0
	for _, l := range lines {
		if !l.IsCounted() {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) PersonName(ctx context.Context, personID int64) (string, error) {
	name, ok := r.store.persons[personID]
	if !ok {
		return "", fmt.Errorf("person %d: %w", personID, shared.ErrNotFound)
	}
	return name, nil
}

func (r *fakeRepo) ItemName(ctx context.Context, itemID int64) (string, error) {
	name, ok := r.store.items[itemID]
	if !ok {
		return "", fmt.Errorf("item %d: %w", itemID, shared.ErrNotFound)
	}
	return name, nil
}

func (r *fakeRepo) PackName(ctx context.Context, packID int64) (string, error) {
	name, ok := r.store.packs[packID]
	if !ok {
		return "", fmt.Errorf("pack %d: %w", packID, shared.ErrNotFound)
	}
	return name, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{store: newFakeStore()}
	return NewService(repo, nil, ServiceConfig{}), repo
}

func seedEntry(t *testing.T, repo *fakeRepo, siteID, itemID int64, qty float64) int64 {
	t.Helper()
	id, err := repo.store.stock.InsertEntry(context.Background(), ledger.StockEntry{
		SiteID: siteID, ItemID: itemID, PackID: 20, Quantity: qty, Currency: "USD", PackValue: 1,
	})
	require.NoError(t, err)
	return id
}

func TestCreateSnapshotsPositiveStock(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedEntry(t, repo, 1, 10, 40)
	seedEntry(t, repo, 1, 11, 15)
	seedEntry(t, repo, 2, 12, 99) // other site, must not appear
	emptyID := seedEntry(t, repo, 1, 13, 5)
	require.NoError(t, repo.store.stock.SetQuantity(ctx, emptyID, 0, 7))

	adj, err := svc.Create(ctx, CreateCommand{SiteID: 1, AdjusterID: 5, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, StatusInProcess, adj.Status)
	require.Equal(t, CategoryInventory, adj.Category)

	lines, err := svc.ListLines(ctx, adj.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, l := range lines {
		require.Equal(t, ReasonUnknown, l.Reason)
		require.False(t, l.IsCounted())
		require.NotNil(t, l.EntryID)
	}
	require.Equal(t, 40.0, lines[0].OldQuantity)
	require.Equal(t, 15.0, lines[1].OldQuantity)

	uncounted, err := svc.UncountedLines(ctx, adj.ID)
	require.NoError(t, err)
	require.Equal(t, 2, uncounted)
}

func TestRecordCountRejectsBadReason(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RecordCount(context.Background(), RecordCountCommand{LineID: 1, NewQuantity: 3, Reason: Reason(99), ActorID: 7})
	require.ErrorIs(t, err, shared.ErrInvalidCommand)
}

func TestReasonLabels(t *testing.T) {
	require.Equal(t, "UNKNOWN", ReasonUnknown.String())
	require.Equal(t, "NONE", ReasonNone.String())
	require.Equal(t, "LOST", ReasonLost.String())
	require.Equal(t, "DAMAGED", ReasonDamaged.String())
	require.Equal(t, "EXPIRED", ReasonExpired.String())
	require.Equal(t, "FOUND", ReasonFound.String())
	require.False(t, Reason(99).IsValid())
}

func TestCloseRefusedWithUncountedLines(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedEntry(t, repo, 1, 10, 40)
	seedEntry(t, repo, 1, 11, 15)

	adj, err := svc.Create(ctx, CreateCommand{SiteID: 1, AdjusterID: 5, ActorID: 7})
	require.NoError(t, err)

	lines, err := svc.ListLines(ctx, adj.ID)
	require.NoError(t, err)
	_, err = svc.RecordCount(ctx, RecordCountCommand{LineID: lines[0].ID, NewQuantity: 38, Reason: ReasonDamaged, ActorID: 7})
	require.NoError(t, err)

	_, err = svc.Close(ctx, CloseCommand{AdjustmentID: adj.ID, ActorID: 7})
	require.ErrorIs(t, err, shared.ErrIllegalTransition)
}

func TestCloseAppliesDeltas(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	shortID := seedEntry(t, repo, 1, 10, 40)
	foundID := seedEntry(t, repo, 1, 11, 15)

	adj, err := svc.Create(ctx, CreateCommand{SiteID: 1, AdjusterID: 5, ActorID: 7})
	require.NoError(t, err)

	lines, err := svc.ListLines(ctx, adj.ID)
	require.NoError(t, err)
	_, err = svc.RecordCount(ctx, RecordCountCommand{LineID: lines[0].ID, NewQuantity: 35, Reason: ReasonLost, ActorID: 7})
	require.NoError(t, err)
	_, err = svc.RecordCount(ctx, RecordCountCommand{LineID: lines[1].ID, NewQuantity: 18, Reason: ReasonFound, ActorID: 7})
	require.NoError(t, err)

	closed, err := svc.Close(ctx, CloseCommand{AdjustmentID: adj.ID, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, StatusComplete, closed.Status)

	short, err := repo.store.stock.GetEntryForUpdate(ctx, shortID)
	require.NoError(t, err)
	require.Equal(t, 35.0, short.Quantity)
	found, err := repo.store.stock.GetEntryForUpdate(ctx, foundID)
	require.NoError(t, err)
	require.Equal(t, 18.0, found.Quantity)

	// counts are frozen after the close
	_, err = svc.RecordCount(ctx, RecordCountCommand{LineID: lines[0].ID, NewQuantity: 1, Reason: ReasonNone, ActorID: 7})
	require.ErrorIs(t, err, shared.ErrIllegalTransition)

	// and so is a second close
	_, err = svc.Close(ctx, CloseCommand{AdjustmentID: adj.ID, ActorID: 7})
	require.ErrorIs(t, err, shared.ErrIllegalTransition)
}

func TestCloseRefusedForShipmentVariance(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	id, err := repo.store.InsertHeader(ctx, Adjustment{
		AdjusterID: 5, SiteID: 1, Status: StatusComplete, Category: CategoryShipment, CreatedBy: 7,
	})
	require.NoError(t, err)

	_, err = svc.Close(ctx, CloseCommand{AdjustmentID: id, ActorID: 7})
	require.ErrorIs(t, err, shared.ErrIllegalTransition)
}

func TestRepresentation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	repo.store.persons[5] = "Amara Diallo"
	repo.store.items[10] = "Blankets"
	repo.store.packs[20] = "Bale"
	seedEntry(t, repo, 1, 10, 40)

	adj, err := svc.Create(ctx, CreateCommand{SiteID: 1, AdjusterID: 5, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, "Amara Diallo - "+adj.Date.Format("2006-01-02"), svc.RepresentHeader(ctx, adj.ID))
	require.Equal(t, shared.LabelNone, svc.RepresentHeader(ctx, 9999))

	lines, err := svc.ListLines(ctx, adj.ID)
	require.NoError(t, err)
	_, err = svc.RecordCount(ctx, RecordCountCommand{LineID: lines[0].ID, NewQuantity: 35, Reason: ReasonLost, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, "Blankets: -5 Bale", svc.RepresentLine(ctx, lines[0].ID))
}
