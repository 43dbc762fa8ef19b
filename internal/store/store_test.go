package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/lifecycle"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"
)

// fakeClient implementación en memoria de client.StockInClient para los tests
// del store. Cada método puede interceptarse por hook; sin hook responde desde
// el mapa de registros.
type fakeClient struct {
	mu      sync.Mutex
	records map[string]*models.StockIn
	order   []string
	nextID  int

	listHook       func(filter models.StockInFilter) (*models.ListResult, error)
	removeHook     func(id string) (string, error)
	setPaymentHook func(id string, req *models.UpdatePaymentRequest) (*models.StockIn, error)
	setStatusHook  func(id string, status models.StockInStatus) (*models.StockIn, error)

	listCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{records: make(map[string]*models.StockIn)}
}

func (f *fakeClient) add(rec *models.StockIn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
	f.order = append(f.order, rec.ID)
}

func (f *fakeClient) snapshot() []*models.StockIn {
	out := make([]*models.StockIn, 0, len(f.order))
	for _, id := range f.order {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func (f *fakeClient) List(ctx context.Context, filter models.StockInFilter) (*models.ListResult, error) {
	f.mu.Lock()
	f.listCalls++
	hook := f.listHook
	f.mu.Unlock()

	if hook != nil {
		return hook(filter)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.snapshot()
	return &models.ListResult{
		Data:  data,
		Total: len(data),
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (f *fakeClient) GetByID(ctx context.Context, id string) (*models.StockIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("stock-in %s not found", id)
	}
	return rec.Clone(), nil
}

func (f *fakeClient) Create(ctx context.Context, req *models.CreateStockInRequest) (*models.StockIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	items := lifecycle.BuildItems(req.Items)
	totals := lifecycle.ComputeTotals(items, req.TaxRate, req.DiscountRate)
	rec := &models.StockIn{
		ID:              fmt.Sprintf("si-%d", f.nextID),
		StockInNumber:   fmt.Sprintf("SI-2026-%04d", f.nextID),
		Items:           items,
		Subtotal:        totals.Subtotal,
		TaxRate:         req.TaxRate,
		TaxAmount:       totals.TaxAmount,
		DiscountRate:    req.DiscountRate,
		DiscountAmount:  totals.DiscountAmount,
		TotalAmount:     totals.TotalAmount,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentUnpaid,
		RemainingAmount: totals.TotalAmount,
		SupplierName:    req.SupplierName,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	f.records[rec.ID] = rec
	f.order = append(f.order, rec.ID)
	return rec.Clone(), nil
}

func (f *fakeClient) Update(ctx context.Context, id string, req *models.UpdateStockInRequest) (*models.StockIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("stock-in %s not found", id)
	}
	if req.SupplierName != nil {
		rec.SupplierName = *req.SupplierName
	}
	if req.PaymentNotes != nil {
		rec.PaymentNotes = *req.PaymentNotes
	}
	return rec.Clone(), nil
}

func (f *fakeClient) SetStatus(ctx context.Context, id string, status models.StockInStatus) (*models.StockIn, error) {
	if f.setStatusHook != nil {
		return f.setStatusHook(id, status)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("stock-in %s not found", id)
	}
	rec.Status = status
	return rec.Clone(), nil
}

func (f *fakeClient) SetPayment(ctx context.Context, id string, req *models.UpdatePaymentRequest) (*models.StockIn, error) {
	if f.setPaymentHook != nil {
		return f.setPaymentHook(id, req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("stock-in %s not found", id)
	}
	rec.PaidAmount = req.PaidAmount
	rec.PaymentStatus = lifecycle.NextPaymentStatus(rec.TotalAmount, rec.PaidAmount)
	rec.RemainingAmount = lifecycle.RemainingAmount(rec.TotalAmount, rec.PaidAmount)
	if req.PaymentNotes != "" {
		rec.PaymentNotes = req.PaymentNotes
	}
	return rec.Clone(), nil
}

func (f *fakeClient) Remove(ctx context.Context, id string) (string, error) {
	if f.removeHook != nil {
		return f.removeHook(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return "", fmt.Errorf("stock-in %s not found", id)
	}
	delete(f.records, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return id, nil
}

func (f *fakeClient) Statistics(ctx context.Context, startDate, endDate string) (*models.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.Statistics{
		ByStatus:  make(map[models.StockInStatus]models.StatusBreakdown),
		ByPayment: make(map[models.PaymentStatus]models.StatusBreakdown),
	}
	for _, rec := range f.records {
		stats.TotalRecords++
		stats.TotalAmount += rec.TotalAmount
		stats.PaidAmount += rec.PaidAmount
		stats.RemainingAmount += rec.RemainingAmount
	}
	return stats, nil
}

func newUnpaidRecord(id string, total int64) *models.StockIn {
	return &models.StockIn{
		ID:            id,
		StockInNumber: "SI-2026-" + id,
		Items: []models.StockInItem{
			{MaterialID: "m-1", MaterialName: "Cát vàng", Quantity: 1, UnitPrice: total, TotalPrice: total, Unit: "m3"},
		},
		Subtotal:        total,
		TotalAmount:     total,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentUnpaid,
		RemainingAmount: total,
		SupplierName:    "Nhà cung cấp A",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func newTestStore(cl *fakeClient) *Store {
	return New(cl, zap.NewNop(), models.StockInFilter{Page: 1, Limit: 10})
}

func TestLoadCommitsAtomically(t *testing.T) {
	cl := newFakeClient()
	cl.add(newUnpaidRecord("a", 100))
	cl.add(newUnpaidRecord("b", 200))
	st := newTestStore(cl)

	require.NoError(t, st.Load(context.Background()))

	snap := st.Snapshot()
	require.Len(t, snap.Data, 2)
	require.Equal(t, 2, snap.Total)
	require.Equal(t, 1, snap.Page)
	require.Equal(t, 10, snap.Limit)
	require.False(t, snap.IsLoading)
	require.Empty(t, snap.LastError)
}

func TestLoadKeepsStalePageOnFailure(t *testing.T) {
	cl := newFakeClient()
	cl.add(newUnpaidRecord("a", 100))
	st := newTestStore(cl)
	require.NoError(t, st.Load(context.Background()))

	cl.listHook = func(models.StockInFilter) (*models.ListResult, error) {
		return nil, errors.New("connection refused")
	}

	err := st.Load(context.Background())
	require.Error(t, err)

	snap := st.Snapshot()
	// La página vieja sigue visible junto al error
	require.Len(t, snap.Data, 1)
	require.Equal(t, "a", snap.Data[0].ID)
	require.Contains(t, snap.LastError, "connection refused")
	require.False(t, snap.IsLoading)
}

func TestLoadDiscardsStaleResponse(t *testing.T) {
	cl := newFakeClient()
	st := newTestStore(cl)

	first := make(chan struct{})
	release := make(chan struct{})
	staleData := []*models.StockIn{newUnpaidRecord("stale", 1)}
	freshData := []*models.StockIn{newUnpaidRecord("fresh", 2)}

	calls := 0
	cl.listHook = func(filter models.StockInFilter) (*models.ListResult, error) {
		calls++
		if calls == 1 {
			close(first)
			<-release
			return &models.ListResult{Data: staleData, Total: 1, Page: 1, Limit: 10}, nil
		}
		return &models.ListResult{Data: freshData, Total: 1, Page: 1, Limit: 10}, nil
	}

	done := make(chan error, 1)
	go func() { done <- st.Load(context.Background()) }()
	<-first

	// Un segundo load se emite y completa mientras el primero sigue en vuelo
	require.NoError(t, st.Load(context.Background()))
	close(release)
	require.NoError(t, <-done)

	snap := st.Snapshot()
	require.Len(t, snap.Data, 1)
	require.Equal(t, "fresh", snap.Data[0].ID)
}

func TestLoadDiscardsStaleError(t *testing.T) {
	cl := newFakeClient()
	st := newTestStore(cl)

	first := make(chan struct{})
	release := make(chan struct{})
	freshData := []*models.StockIn{newUnpaidRecord("fresh", 2)}

	calls := 0
	cl.listHook = func(filter models.StockInFilter) (*models.ListResult, error) {
		calls++
		if calls == 1 {
			close(first)
			<-release
			return nil, errors.New("upstream timeout")
		}
		return &models.ListResult{Data: freshData, Total: 1, Page: 1, Limit: 10}, nil
	}

	done := make(chan error, 1)
	go func() { done <- st.Load(context.Background()) }()
	<-first

	// El segundo load completa con éxito antes de que el primero falle
	require.NoError(t, st.Load(context.Background()))
	close(release)
	require.NoError(t, <-done)

	// El fallo obsoleto no pisa el resultado fresco
	snap := st.Snapshot()
	require.Empty(t, snap.LastError)
	require.Len(t, snap.Data, 1)
	require.Equal(t, "fresh", snap.Data[0].ID)
}

func TestQueryMergesTriState(t *testing.T) {
	cl := newFakeClient()
	st := newTestStore(cl)

	st.Query(FilterPatch{Search: Set("xi măng"), Status: Set("pending")})
	f := st.Filter()
	require.NotNil(t, f.Search)
	require.Equal(t, "xi măng", *f.Search)
	require.NotNil(t, f.Status)

	// Campo ausente del parche no toca el filtro
	st.Query(FilterPatch{Status: Set("approved")})
	f = st.Filter()
	require.Equal(t, "xi măng", *f.Search)
	require.Equal(t, "approved", *f.Status)

	// Set("") fija la cadena vacía, Clear() elimina
	st.Query(FilterPatch{Search: Set(""), Status: Clear()})
	f = st.Filter()
	require.NotNil(t, f.Search)
	require.Equal(t, "", *f.Search)
	require.Nil(t, f.Status)
}

func TestQueryLimitChangeResetsPage(t *testing.T) {
	cl := newFakeClient()
	st := newTestStore(cl)

	page := 5
	st.Query(FilterPatch{Page: &page})
	require.Equal(t, 5, st.Filter().Page)

	limit := 50
	st.Query(FilterPatch{Limit: &limit})
	f := st.Filter()
	require.Equal(t, 50, f.Limit)
	require.Equal(t, 1, f.Page)

	// Mismo limit no resetea la página
	page = 3
	st.Query(FilterPatch{Page: &page})
	st.Query(FilterPatch{Limit: &limit})
	require.Equal(t, 3, st.Filter().Page)
}

func TestPayReconcilesServerRecord(t *testing.T) {
	cl := newFakeClient()
	cl.add(newUnpaidRecord("a", 220))
	st := newTestStore(cl)
	require.NoError(t, st.Load(context.Background()))

	rec, err := st.Pay(context.Background(), "a", 100, "đợt 1")
	require.NoError(t, err)
	require.Equal(t, models.PaymentPartial, rec.PaymentStatus)
	require.Equal(t, int64(100), rec.PaidAmount)
	require.Equal(t, int64(120), rec.RemainingAmount)

	snap := st.Snapshot()
	require.Equal(t, models.PaymentPartial, snap.Data[0].PaymentStatus)
}

func TestPayRejectsOverpaymentWithoutNetworkCall(t *testing.T) {
	cl := newFakeClient()
	cl.add(newUnpaidRecord("a", 220))
	st := newTestStore(cl)
	require.NoError(t, st.Load(context.Background()))

	called := false
	cl.setPaymentHook = func(string, *models.UpdatePaymentRequest) (*models.StockIn, error) {
		called = true
		return nil, errors.New("should not be called")
	}

	_, err := st.Pay(context.Background(), "a", 500, "")
	require.ErrorIs(t, err, lifecycle.ErrOverpayment)
	require.False(t, called)
}

func TestDeleteRemovesFromCaches(t *testing.T) {
	cl := newFakeClient()
	cl.add(newUnpaidRecord("a", 100))
	cl.add(newUnpaidRecord("b", 200))
	st := newTestStore(cl)
	require.NoError(t, st.Load(context.Background()))

	require.NoError(t, st.Delete(context.Background(), "a"))

	snap := st.Snapshot()
	require.Len(t, snap.Data, 1)
	require.Equal(t, "b", snap.Data[0].ID)
	require.Equal(t, 1, snap.Total)
}

func TestDeleteRejectsApprovedLocally(t *testing.T) {
	cl := newFakeClient()
	rec := newUnpaidRecord("a", 100)
	rec.Status = models.StatusApproved
	cl.add(rec)
	st := newTestStore(cl)
	require.NoError(t, st.Load(context.Background()))

	err := st.Delete(context.Background(), "a")
	require.ErrorIs(t, err, lifecycle.ErrRecordApproved)

	// El registro sigue en la página
	require.Len(t, st.Snapshot().Data, 1)
}

func TestCreatePrependsRecord(t *testing.T) {
	cl := newFakeClient()
	cl.add(newUnpaidRecord("a", 100))
	st := newTestStore(cl)
	require.NoError(t, st.Load(context.Background()))

	rec, err := st.Create(context.Background(), &models.CreateStockInRequest{
		Items: []models.StockInItemRequest{
			{MaterialID: "m-2", MaterialName: "Thép phi 10", Quantity: 3, UnitPrice: 150000, Unit: "cây"},
		},
		SupplierName: "Thép Việt",
		CreatedBy:    "admin",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, rec.Status)
	require.Equal(t, models.PaymentUnpaid, rec.PaymentStatus)

	snap := st.Snapshot()
	require.Len(t, snap.Data, 2)
	require.Equal(t, rec.ID, snap.Data[0].ID)
	require.Equal(t, 2, snap.Total)
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	cl := newFakeClient()
	st := newTestStore(cl)

	_, err := st.Create(context.Background(), &models.CreateStockInRequest{SupplierName: "X"})
	require.ErrorIs(t, err, lifecycle.ErrEmptyItems)
}

func TestFilteredAllUsesLocalPredicate(t *testing.T) {
	cl := newFakeClient()
	cl.add(newUnpaidRecord("a", 100))
	approved := newUnpaidRecord("b", 200)
	approved.Status = models.StatusApproved
	cl.add(approved)
	st := newTestStore(cl)

	require.NoError(t, st.LoadAll(context.Background()))

	st.Query(FilterPatch{Status: Set("approved")})
	filtered := st.FilteredAll()
	require.Len(t, filtered, 1)
	require.Equal(t, "b", filtered[0].ID)
}

func TestSupplierOptions(t *testing.T) {
	cl := newFakeClient()
	a := newUnpaidRecord("a", 100)
	a.SupplierName = "Beta"
	b := newUnpaidRecord("b", 200)
	b.SupplierName = "Alpha"
	cl.add(a)
	cl.add(b)
	st := newTestStore(cl)
	require.NoError(t, st.Load(context.Background()))

	require.Equal(t, []string{"Alpha", "Beta"}, st.SupplierOptions())
}
