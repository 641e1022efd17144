package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-relief/meridian/internal/adjustment"
	"github.com/meridian-relief/meridian/internal/ledger"
	"github.com/meridian-relief/meridian/internal/observability"
	"github.com/meridian-relief/meridian/internal/shared"
	"github.com/meridian-relief/meridian/internal/shipment"
)

// ---------------------------------------------------------------------------
// In-memory fakes
// ---------------------------------------------------------------------------

type fakeLedger struct {
	entries map[int64]*ledger.StockEntry
	nextID  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[int64]*ledger.StockEntry{}, nextID: 1}
}

func entryMatches(e ledger.StockEntry, key ledger.MatchKey) bool {
	if e.SiteID != key.SiteID || e.ItemID != key.ItemID || e.PackID != key.PackID {
		return false
	}
	if e.Currency != key.Currency || e.PackValue != key.PackValue || e.Bin != key.Bin || e.SupplyOrgID != key.SupplyOrgID {
		return false
	}
	if (e.ExpiryDate == nil) != (key.ExpiryDate == nil) {
		return false
	}
	if e.ExpiryDate != nil && !e.ExpiryDate.Equal(*key.ExpiryDate) {
		return false
	}
	return true
}

func (f *fakeLedger) GetEntryForUpdate(ctx context.Context, id int64) (ledger.StockEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return ledger.StockEntry{}, fmt.Errorf("entry %d: %w", id, shared.ErrNotFound)
	}
	return *e, nil
}

func (f *fakeLedger) FindByKeyForUpdate(ctx context.Context, key ledger.MatchKey) (ledger.StockEntry, error) {
	for id := int64(1); id < f.nextID; id++ {
		e, ok := f.entries[id]
		if ok && e.Lifecycle == shared.LifecycleActive && entryMatches(*e, key) {
			return *e, nil
		}
	}
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

type fakeAdj struct {
	stock   *fakeLedger
	headers map[int64]*adjustment.Adjustment
	lines   map[int64]*adjustment.Line
	nextID  int64
}

func (f *fakeAdj) Ledger() ledger.TxStore { return f.stock }

func (f *fakeAdj) InsertHeader(ctx context.Context, a adjustment.Adjustment) (int64, error) {
	a.ID = f.nextID
	f.nextID++
	if a.Date.IsZero() {
		a.Date = time.Now().UTC()
	}
	a.Lifecycle = shared.LifecycleActive
	f.headers[a.ID] = &a
	return a.ID, nil
}

func (f *fakeAdj) GetHeaderForUpdate(ctx context.Context, id int64) (adjustment.Adjustment, error) {
	a, ok := f.headers[id]
	if !ok {
		return adjustment.Adjustment{}, fmt.Errorf("adjustment %d: %w", id, shared.ErrNotFound)
	}
	return *a, nil
}

func (f *fakeAdj) SetHeaderStatus(ctx context.Context, id int64, status adjustment.Status, actorID int64) error {
	a, ok := f.headers[id]
	if !ok {
		return fmt.Errorf("adjustment %d: %w", id, shared.ErrNotFound)
	}
	a.Status = status
	return nil
}

func (f *fakeAdj) InsertLine(ctx context.Context, l adjustment.Line) (int64, error) {
	l.ID = f.nextID
	f.nextID++
	l.Lifecycle = shared.LifecycleActive
	f.lines[l.ID] = &l
	return l.ID, nil
}

func (f *fakeAdj) GetLineForUpdate(ctx context.Context, id int64) (adjustment.Line, error) {
	l, ok := f.lines[id]
	if !ok {
		return adjustment.Line{}, fmt.Errorf("line %d: %w", id, shared.ErrNotFound)
	}
	return *l, nil
}

func (f *fakeAdj) SetLineCount(ctx context.Context, id int64, newQuantity float64, reason adjustment.Reason, comments string, actorID int64) error {
	l, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("line %d: %w", id, shared.ErrNotFound)
	}
	qty := newQuantity
	l.NewQuantity = &qty
	l.Reason = reason
	l.Comments = comments
	return nil
}

func (f *fakeAdj) ListLinesForUpdate(ctx context.Context, adjustmentID int64) ([]adjustment.Line, error) {
	out := []adjustment.Line{}
	for _, l := range f.lines {
		if l.AdjustmentID == adjustmentID && l.Lifecycle == shared.LifecycleActive {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAdj) VoidLine(ctx context.Context, id int64, actorID int64) error {
	l, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("line %d: %w", id, shared.ErrNotFound)
	}
	l.Lifecycle = shared.LifecycleVoid
	return nil
}

type fakeStore struct {
	stock     *fakeLedger
	adj       *fakeAdj
	outbounds map[int64]*shipment.Outbound
	inbounds  map[int64]*shipment.Inbound
	lines     map[int64]*shipment.TrackingLine
	siteOrgs  map[int64]int64
	nextID    int64
}

func newFakeStore() *fakeStore {
	stock := newFakeLedger()
	return &fakeStore{
		stock:     stock,
		adj:       &fakeAdj{stock: stock, headers: map[int64]*adjustment.Adjustment{}, lines: map[int64]*adjustment.Line{}, nextID: 1},
		outbounds: map[int64]*shipment.Outbound{},
		inbounds:  map[int64]*shipment.Inbound{},
		lines:     map[int64]*shipment.TrackingLine{},
		siteOrgs:  map[int64]int64{1: 100, 2: 100},
		nextID:    1,
	}
}

func (f *fakeStore) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) Ledger() ledger.TxStore          { return f.stock }
func (f *fakeStore) Adjustments() adjustment.TxStore { return f.adj }

func (f *fakeStore) GetOutboundForUpdate(ctx context.Context, id int64) (shipment.Outbound, error) {
	o, ok := f.outbounds[id]
	if !ok {
		return shipment.Outbound{}, fmt.Errorf("outbound %d: %w", id, shared.ErrNotFound)
	}
	return *o, nil
}

func (f *fakeStore) InsertOutbound(ctx context.Context, o shipment.Outbound) (int64, error) {
	o.ID = f.id()
	o.Lifecycle = shared.LifecycleActive
	f.outbounds[o.ID] = &o
	return o.ID, nil
}

func (f *fakeStore) SetOutboundStatus(ctx context.Context, id int64, status shipment.Status, date *time.Time, actorID int64) error {
	o, ok := f.outbounds[id]
	if !ok {
		return fmt.Errorf("outbound %d: %w", id, shared.ErrNotFound)
	}
	o.Status = status
	if date != nil {
		o.Date = date
	}
	return nil
}

func (f *fakeStore) GetInboundForUpdate(ctx context.Context, id int64) (shipment.Inbound, error) {
	in, ok := f.inbounds[id]
	if !ok {
		return shipment.Inbound{}, fmt.Errorf("inbound %d: %w", id, shared.ErrNotFound)
	}
	return *in, nil
}

func (f *fakeStore) InsertInbound(ctx context.Context, in shipment.Inbound) (int64, error) {
	in.ID = f.id()
	in.Lifecycle = shared.LifecycleActive
	f.inbounds[in.ID] = &in
	return in.ID, nil
}

func (f *fakeStore) SetInboundStatus(ctx context.Context, id int64, status shipment.Status, date *time.Time, actorID int64) error {
	in, ok := f.inbounds[id]
	if !ok {
		return fmt.Errorf("inbound %d: %w", id, shared.ErrNotFound)
	}
	in.Status = status
	if date != nil {
		in.Date = date
	}
	return nil
}

func (f *fakeStore) SetInboundOrigin(ctx context.Context, id int64, fromSiteID *int64, actorID int64) error {
	in, ok := f.inbounds[id]
	if !ok {
		return fmt.Errorf("inbound %d: %w", id, shared.ErrNotFound)
	}
	in.FromSiteID = fromSiteID
	return nil
}

func (f *fakeStore) SetInboundDocuments(ctx context.Context, id int64, grn, cert *shipment.DocStatus, actorID int64) error {
	in, ok := f.inbounds[id]
	if !ok {
		return fmt.Errorf("inbound %d: %w", id, shared.ErrNotFound)
	}
	if grn != nil {
		in.GRNStatus = *grn
	}
	if cert != nil {
		in.CertStatus = *cert
	}
	return nil
}

func (f *fakeStore) GetLineForUpdate(ctx context.Context, id int64) (shipment.TrackingLine, error) {
	l, ok := f.lines[id]
	if !ok {
		return shipment.TrackingLine{}, fmt.Errorf("line %d: %w", id, shared.ErrNotFound)
	}
	return *l, nil
}

func (f *fakeStore) InsertLine(ctx context.Context, l shipment.TrackingLine) (int64, error) {
	l.ID = f.id()
	l.Lifecycle = shared.LifecycleActive
	f.lines[l.ID] = &l
	return l.ID, nil
}

func (f *fakeStore) UpdateLine(ctx context.Context, l shipment.TrackingLine) error {
	if _, ok := f.lines[l.ID]; !ok {
		return fmt.Errorf("line %d: %w", l.ID, shared.ErrNotFound)
	}
	copied := l
	f.lines[l.ID] = &copied
	return nil
}

func (f *fakeStore) SetLineStatus(ctx context.Context, id int64, status shipment.TrackingStatus, actorID int64) error {
	l, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("line %d: %w", id, shared.ErrNotFound)
	}
	l.Status = status
	return nil
}

func (f *fakeStore) SetLineDestination(ctx context.Context, id int64, destEntryID *int64, adjustmentLineID *int64, actorID int64) error {
	l, ok := f.lines[id]
	if !ok {
		return fmt.Errorf("line %d: %w", id, shared.ErrNotFound)
	}
	l.DestEntryID = destEntryID
	if destEntryID == nil {
		l.AdjustmentLineID = nil
	} else if adjustmentLineID != nil {
		l.AdjustmentLineID = adjustmentLineID
	}
	return nil
}

func (f *fakeStore) linesWhere(pred func(shipment.TrackingLine) bool) []shipment.TrackingLine {
	out := []shipment.TrackingLine{}
	for _, l := range f.lines {
		if pred(*l) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) ListOutboundLinesForUpdate(ctx context.Context, outboundID int64) ([]shipment.TrackingLine, error) {
	return f.linesWhere(func(l shipment.TrackingLine) bool {
		return l.OutboundID != nil && *l.OutboundID == outboundID && l.Lifecycle == shared.LifecycleActive
	}), nil
}

func (f *fakeStore) ListInboundLinesForUpdate(ctx context.Context, inboundID int64) ([]shipment.TrackingLine, error) {
	return f.linesWhere(func(l shipment.TrackingLine) bool {
		return l.InboundID != nil && *l.InboundID == inboundID && l.Lifecycle == shared.LifecycleActive
	}), nil
}

func (f *fakeStore) FindLineByTrackingNo(ctx context.Context, shippingOrgID int64, trackingNo string) (shipment.TrackingLine, error) {
	for _, l := range f.lines {
		if l.ShippingOrgID == shippingOrgID && l.TrackingNo == trackingNo && l.Lifecycle == shared.LifecycleActive {
			return *l, nil
		}
	}
	return shipment.TrackingLine{}, fmt.Errorf("no line: %w", shared.ErrNotFound)
}

func (f *fakeStore) SiteOrgID(ctx context.Context, siteID int64) (int64, error) {
	org, ok := f.siteOrgs[siteID]
	if !ok {
		return 0, fmt.Errorf("site %d: %w", siteID, shared.ErrNotFound)
	}
	return org, nil
}

type fakeRepo struct {
	store *fakeStore
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return fn(ctx, r.store)
}

func (r *fakeRepo) GetInbound(ctx context.Context, id int64) (shipment.Inbound, error) {
	return r.store.GetInboundForUpdate(ctx, id)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type fixture struct {
	engine *Engine
	repo   *fakeRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &fakeRepo{store: newFakeStore()}
	return &fixture{engine: NewEngine(repo, nil, nil, EngineConfig{}), repo: repo}
}

// seedTransfer builds a sent outbound from site 1 with one in-transit line
// linked to an in-process inbound at site 2, the line counted and binned.
// Returns the inbound, outbound and line ids.
func (f *fixture) seedTransfer(t *testing.T, sent, received float64) (int64, int64, int64) {
	t.Helper()
	ctx := context.Background()
	st := f.repo.store

	outID, err := st.InsertOutbound(ctx, shipment.Outbound{SenderID: 5, SiteID: 1, Status: shipment.StatusSent})
	require.NoError(t, err)
	inID, err := st.InsertInbound(ctx, shipment.Inbound{SiteID: 2, RecipientID: 6, Status: shipment.StatusInProcess})
	require.NoError(t, err)

	srcID, err := st.stock.InsertEntry(ctx, ledger.StockEntry{
		SiteID: 1, ItemID: 10, PackID: 20, Quantity: 5, Currency: "USD", PackValue: 2.5, Bin: "A1", SupplyOrgID: 300,
	})
	require.NoError(t, err)

	recv := received
	lineID, err := st.InsertLine(ctx, shipment.TrackingLine{
		ShippingOrgID:    100,
		Status:           shipment.TrackInTransit,
		SourceEntryID:    &srcID,
		ItemID:           10,
		PackID:           20,
		QuantitySent:     sent,
		QuantityReceived: &recv,
		Currency:         "USD",
		PackValue:        2.5,
		OriginBin:        "A1",
		DestBin:          "B2",
		OutboundID:       &outID,
		InboundID:        &inID,
		SupplyOrgID:      300,
	})
	require.NoError(t, err)
	return inID, outID, lineID
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestReceiveRefusedWithIncompleteLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inID, _, lineID := f.seedTransfer(t, 10, 10)
	f.repo.store.lines[lineID].QuantityReceived = nil

	_, err := f.engine.ReceiveInbound(ctx, inID, 7)
	require.ErrorIs(t, err, shared.ErrIllegalTransition)

	in, err := f.repo.GetInbound(ctx, inID)
	require.NoError(t, err)
	require.Equal(t, shipment.StatusInProcess, in.Status)
}

func TestReceiveCreatesDestinationEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inID, _, lineID := f.seedTransfer(t, 10, 10)

	in, err := f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)
	require.Equal(t, shipment.StatusReceived, in.Status)
	require.NotNil(t, in.Date)

	line := *f.repo.store.lines[lineID]
	require.Equal(t, shipment.TrackArrived, line.Status)
	require.NotNil(t, line.DestEntryID)
	require.Nil(t, line.AdjustmentLineID)

	entry, err := f.repo.store.stock.GetEntryForUpdate(ctx, *line.DestEntryID)
	require.NoError(t, err)
	require.Equal(t, 10.0, entry.Quantity)
	require.Equal(t, int64(2), entry.SiteID)
	require.Equal(t, "B2", entry.Bin)
	require.Equal(t, int64(10), entry.ItemID)

	// an exact count leaves no variance record behind
	require.Empty(t, f.repo.store.adj.headers)
}

func TestReceiveCreditsMatchingDestinationEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inID, _, lineID := f.seedTransfer(t, 10, 10)

	existingID, err := f.repo.store.stock.InsertEntry(ctx, ledger.StockEntry{
		SiteID: 2, ItemID: 10, PackID: 20, Quantity: 4, Currency: "USD", PackValue: 2.5, Bin: "B2", SupplyOrgID: 300,
	})
	require.NoError(t, err)

	_, err = f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)

	line := *f.repo.store.lines[lineID]
	require.NotNil(t, line.DestEntryID)
	require.Equal(t, existingID, *line.DestEntryID)

	entry, err := f.repo.store.stock.GetEntryForUpdate(ctx, existingID)
	require.NoError(t, err)
	require.Equal(t, 14.0, entry.Quantity)
}

func TestReceiveRecordsVariance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inID, _, lineID := f.seedTransfer(t, 10, 7)

	_, err := f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)

	line := *f.repo.store.lines[lineID]
	require.NotNil(t, line.AdjustmentLineID)

	adjLine := *f.repo.store.adj.lines[*line.AdjustmentLineID]
	require.Equal(t, 10.0, adjLine.OldQuantity)
	require.NotNil(t, adjLine.NewQuantity)
	require.Equal(t, 7.0, *adjLine.NewQuantity)

	// the variance record points back at the stock the goods left from
	require.NotNil(t, adjLine.EntryID)
	require.Equal(t, *line.SourceEntryID, *adjLine.EntryID)
	require.NotEqual(t, *line.DestEntryID, *adjLine.EntryID)

	header := *f.repo.store.adj.headers[adjLine.AdjustmentID]
	require.Equal(t, adjustment.CategoryShipment, header.Category)
	require.Equal(t, adjustment.StatusComplete, header.Status)
	require.Equal(t, int64(2), header.SiteID)
	require.Equal(t, int64(6), header.AdjusterID)

	// the destination holds the counted quantity, not the sent one
	entry, err := f.repo.store.stock.GetEntryForUpdate(ctx, *line.DestEntryID)
	require.NoError(t, err)
	require.Equal(t, 7.0, entry.Quantity)
}

func TestReceiveSharesOneVarianceHeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.repo.store
	inID, outID, _ := f.seedTransfer(t, 10, 7)

	recv := 3.0
	_, err := st.InsertLine(ctx, shipment.TrackingLine{
		ShippingOrgID: 100, Status: shipment.TrackInTransit,
		ItemID: 11, PackID: 21, QuantitySent: 5, QuantityReceived: &recv,
		DestBin: "C3", OutboundID: &outID, InboundID: &inID,
	})
	require.NoError(t, err)

	_, err = f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)

	require.Len(t, st.adj.headers, 1)
	require.Len(t, st.adj.lines, 2)
}

func TestReceiptIncrementsMovementCounters(t *testing.T) {
	repo := &fakeRepo{store: newFakeStore()}
	metrics := observability.NewMetrics()
	f := &fixture{engine: NewEngine(repo, nil, nil, EngineConfig{Metrics: metrics}), repo: repo}
	inID, _, _ := f.seedTransfer(t, 10, 7)

	_, err := f.engine.ReceiveInbound(context.Background(), inID, 7)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	require.Contains(t, body, `meridian_stock_movements_total{kind="unload"} 1`)
	require.Contains(t, body, "meridian_shipment_variance_lines_total 1")
}

func TestReceiveSettlesOutbound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inID, outID, _ := f.seedTransfer(t, 10, 10)

	_, err := f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)

	o, err := f.repo.store.GetOutboundForUpdate(ctx, outID)
	require.NoError(t, err)
	require.Equal(t, shipment.StatusReceived, o.Status)
}

func TestReceiveLeavesOutboundWithLinesStillInTransit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.repo.store
	inID, outID, _ := f.seedTransfer(t, 10, 10)

	// a second line of the same outbound bound elsewhere, still moving
	otherIn, err := st.InsertInbound(ctx, shipment.Inbound{SiteID: 2, RecipientID: 6, Status: shipment.StatusInProcess})
	require.NoError(t, err)
	_, err = st.InsertLine(ctx, shipment.TrackingLine{
		ShippingOrgID: 100, Status: shipment.TrackInTransit,
		ItemID: 11, PackID: 21, QuantitySent: 5,
		OutboundID: &outID, InboundID: &otherIn,
	})
	require.NoError(t, err)

	_, err = f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)

	o, err := st.GetOutboundForUpdate(ctx, outID)
	require.NoError(t, err)
	require.Equal(t, shipment.StatusSent, o.Status)
}

func TestReceiveIsNotReplayable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inID, _, _ := f.seedTransfer(t, 10, 10)

	_, err := f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)

	_, err = f.engine.ReceiveInbound(ctx, inID, 7)
	require.ErrorIs(t, err, shared.ErrIllegalTransition)
}

func TestCancelInboundReversesUnload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inID, _, lineID := f.seedTransfer(t, 10, 7)

	_, err := f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)

	received := *f.repo.store.lines[lineID]
	destID := *received.DestEntryID
	adjLineID := *received.AdjustmentLineID

	in, err := f.engine.CancelInbound(ctx, inID, 7)
	require.NoError(t, err)
	require.Equal(t, shipment.StatusInProcess, in.Status)

	line := *f.repo.store.lines[lineID]
	require.Equal(t, shipment.TrackInTransit, line.Status)
	require.Nil(t, line.DestEntryID)
	require.Nil(t, line.AdjustmentLineID)

	entry, err := f.repo.store.stock.GetEntryForUpdate(ctx, destID)
	require.NoError(t, err)
	require.Equal(t, 0.0, entry.Quantity)

	require.Equal(t, shared.LifecycleVoid, f.repo.store.adj.lines[adjLineID].Lifecycle)
}

func TestCancelThenReceiveAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inID, _, lineID := f.seedTransfer(t, 10, 7)

	_, err := f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)
	_, err = f.engine.CancelInbound(ctx, inID, 7)
	require.NoError(t, err)

	// correct the count, then re-run the receipt
	corrected := 10.0
	f.repo.store.lines[lineID].QuantityReceived = &corrected

	in, err := f.engine.ReceiveInbound(ctx, inID, 7)
	require.NoError(t, err)
	require.Equal(t, shipment.StatusReceived, in.Status)

	line := *f.repo.store.lines[lineID]
	require.NotNil(t, line.DestEntryID)
	require.Nil(t, line.AdjustmentLineID)

	entry, err := f.repo.store.stock.GetEntryForUpdate(ctx, *line.DestEntryID)
	require.NoError(t, err)
	require.Equal(t, 10.0, entry.Quantity)
}

func TestCancelInboundRefusedBeforeReceipt(t *testing.T) {
	f := newFixture(t)
	inID, _, _ := f.seedTransfer(t, 10, 10)

	_, err := f.engine.CancelInbound(context.Background(), inID, 7)
	require.ErrorIs(t, err, shared.ErrIllegalTransition)
}
