// Package store implementa la fuente de verdad de la consola para la página
// de ingresos cargada: caché de registros, filtros y paginación, flags de
// carga y error. El store se construye explícitamente y se pasa por
// referencia; no hay singleton de proceso.
package store

import (
	"context"
	"sync"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/client"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/filterquery"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/lifecycle"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"

	"go.uber.org/zap"
)

// Field campo tri-estado de un parche de filtros: ausente (cero, no toca),
// limpiar (borra el filtro) o fijar un valor, incluida la cadena vacía.
// Fijar "" no es lo mismo que limpiar: la clave vacía sigue viajando al
// servidor, la clave limpiada desaparece.
type Field struct {
	set   bool
	value *string
}

// Set fija el filtro al valor dado (la cadena vacía es un valor válido)
func Set(value string) Field {
	return Field{set: true, value: &value}
}

// Clear elimina el filtro por completo
func Clear() Field {
	return Field{set: true}
}

// FilterPatch parche disperso sobre el estado de filtros
type FilterPatch struct {
	Search        Field
	Status        Field
	PaymentStatus Field
	Supplier      Field
	StartDate     Field
	EndDate       Field

	Page  *int
	Limit *int
}

// Snapshot vista consistente del estado del store para la UI
type Snapshot struct {
	Data      []*models.StockIn
	Total     int
	Page      int
	Limit     int
	Filter    models.StockInFilter
	IsLoading bool
	LastError string
	Stats     *models.Statistics
}

// Store mantiene la página cargada, el conjunto completo opcional y el estado
// de filtros/paginación. Solo los reducers del store mutan las cachés, siempre
// con el resultado de una operación asíncrona ya completada.
type Store struct {
	mu     sync.Mutex
	client client.StockInClient
	logger *zap.Logger

	filter     models.StockInFilter
	page       []*models.StockIn
	pagination models.Pagination

	// Caché del conjunto completo para filtrado en cliente (export, fallback)
	all       []*models.StockIn
	allLoaded bool

	stats *models.Statistics

	isLoading bool
	lastError string

	// Números de secuencia para descartar respuestas de load obsoletas
	issuedSeq    uint64
	committedSeq uint64
}

// New crea un store con los filtros iniciales dados
func New(cl client.StockInClient, logger *zap.Logger, initial models.StockInFilter) *Store {
	if initial.Page < 1 {
		initial.Page = 1
	}
	if initial.Limit < 1 {
		initial.Limit = 10
	}
	return &Store{
		client: cl,
		logger: logger,
		filter: initial,
		pagination: models.Pagination{
			Page:  initial.Page,
			Limit: initial.Limit,
		},
	}
}

// Query mezcla un parche parcial sobre los filtros actuales. Un cambio de
// limit resetea la página a 1; cualquier otro cambio deja la página donde
// está, el reset explícito lo decide el llamador con Page.
func (s *Store) Query(patch FilterPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applyField(&s.filter.Search, patch.Search)
	applyField(&s.filter.Status, patch.Status)
	applyField(&s.filter.PaymentStatus, patch.PaymentStatus)
	applyField(&s.filter.Supplier, patch.Supplier)
	applyField(&s.filter.StartDate, patch.StartDate)
	applyField(&s.filter.EndDate, patch.EndDate)

	if patch.Page != nil && *patch.Page >= 1 {
		s.filter.Page = *patch.Page
	}
	if patch.Limit != nil && *patch.Limit >= 1 && *patch.Limit != s.filter.Limit {
		s.filter.Limit = *patch.Limit
		s.filter.Page = 1
	}
}

func applyField(target **string, f Field) {
	if !f.set {
		return
	}
	if f.value == nil {
		*target = nil
		return
	}
	v := *f.value
	*target = &v
}

// Filter devuelve una copia del estado de filtros vigente
func (s *Store) Filter() models.StockInFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Clone()
}

// Load carga la página vigente desde el servidor. La respuesta se aplica
// atómicamente (data, total, page y limit juntos) y solo si ningún load más
// nuevo fue emitido mientras tanto; una respuesta obsoleta se descarta en vez
// de pisar datos más frescos. En fallo se conserva la página vieja
// (stale-but-available) y se registra el error.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.isLoading = true
	s.issuedSeq++
	seq := s.issuedSeq
	filter := s.filter.Clone()
	s.mu.Unlock()

	result, err := s.client.List(ctx, filter)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false

	if seq < s.issuedSeq {
		// Un load más nuevo ya fue emitido: esta respuesta está obsoleta,
		// también su error. No debe pisar el resultado del load más fresco.
		s.logger.Debug("Discarding stale load response",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", s.issuedSeq),
			zap.Error(err))
		return nil
	}

	if err != nil {
		s.lastError = err.Error()
		s.logger.Error("Load failed", zap.Uint64("seq", seq), zap.Error(err))
		return err
	}

	s.page = result.Data
	s.pagination = models.Pagination{
		Page:  result.Page,
		Limit: result.Limit,
		Total: result.Total,
	}
	s.lastError = ""
	s.committedSeq = seq
	return nil
}

// LoadAll carga el conjunto completo (sin paginar) para el filtrado en
// cliente. Usa un límite grande y el filtro vacío: el predicado local decide.
func (s *Store) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	s.isLoading = true
	s.mu.Unlock()

	result, err := s.client.List(ctx, models.StockInFilter{Page: 1, Limit: 10000})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false

	if err != nil {
		s.lastError = err.Error()
		s.logger.Error("LoadAll failed", zap.Error(err))
		return err
	}

	s.all = result.Data
	s.allLoaded = true
	s.lastError = ""
	return nil
}

// RefreshStatistics actualiza las estadísticas con el rango del filtro vigente
func (s *Store) RefreshStatistics(ctx context.Context) error {
	s.mu.Lock()
	start, end := "", ""
	if s.filter.StartDate != nil {
		start = *s.filter.StartDate
	}
	if s.filter.EndDate != nil {
		end = *s.filter.EndDate
	}
	s.mu.Unlock()

	stats, err := s.client.Statistics(ctx, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.lastError = err.Error()
		return err
	}

	s.stats = stats
	return nil
}

// ApplyRecordMutation reconcilia el registro canónico del servidor en ambas
// cachés por upsert de id; no-op en la caché donde el id no está presente.
func (s *Store) ApplyRecordMutation(rec *models.StockIn) {
	if rec == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	upsert(s.page, rec)
	upsert(s.all, rec)
}

func upsert(records []*models.StockIn, rec *models.StockIn) {
	for i, existing := range records {
		if existing.ID == rec.ID {
			records[i] = rec
			return
		}
	}
}

// RemoveRecord elimina el id de ambas cachés; el total baja a lo sumo en 1,
// nunca por debajo de 0
func (s *Store) RemoveRecord(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	if filtered, ok := removeByID(s.page, id); ok {
		s.page = filtered
		removed = true
	}
	if filtered, ok := removeByID(s.all, id); ok {
		s.all = filtered
		removed = true
	}

	if removed && s.pagination.Total > 0 {
		s.pagination.Total--
	}
}

func removeByID(records []*models.StockIn, id string) ([]*models.StockIn, bool) {
	for i, rec := range records {
		if rec.ID == id {
			return append(records[:i:i], records[i+1:]...), true
		}
	}
	return records, false
}

// InsertRecord antepone el registro a ambas cachés e incrementa el total
func (s *Store) InsertRecord(rec *models.StockIn) {
	if rec == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.page = append([]*models.StockIn{rec}, s.page...)
	if s.allLoaded {
		s.all = append([]*models.StockIn{rec}, s.all...)
	}
	s.pagination.Total++
}

// Snapshot devuelve una vista consistente del estado para la UI
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Data:      append([]*models.StockIn(nil), s.page...),
		Total:     s.pagination.Total,
		Page:      s.pagination.Page,
		Limit:     s.pagination.Limit,
		Filter:    s.filter.Clone(),
		IsLoading: s.isLoading,
		LastError: s.lastError,
		Stats:     s.stats,
	}
}

// FilteredAll aplica el filtro vigente como predicado local sobre el conjunto
// completo cacheado (export del conjunto completo sin paginación del servidor)
func (s *Store) FilteredAll() []*models.StockIn {
	s.mu.Lock()
	records := append([]*models.StockIn(nil), s.all...)
	filter := s.filter.Clone()
	s.mu.Unlock()

	match := filterquery.Predicate(filter)
	filtered := make([]*models.StockIn, 0, len(records))
	for _, rec := range records {
		if match(rec) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// SupplierOptions proveedores distintos observados en las cachés (derivado)
func (s *Store) SupplierOptions() []string {
	s.mu.Lock()
	records := s.all
	if !s.allLoaded {
		records = s.page
	}
	records = append([]*models.StockIn(nil), records...)
	s.mu.Unlock()

	return filterquery.Suppliers(records)
}

// lookup busca un registro en las cachés (página primero)
func (s *Store) lookup(id string) *models.StockIn {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.page {
		if rec.ID == id {
			return rec
		}
	}
	for _, rec := range s.all {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

// ===== Acciones =====
// Cada acción valida con las reglas puras antes de tocar la red y reconcilia
// con el registro que devuelve el servidor: el servidor es autoritativo, no el
// cálculo local.

// Create crea un ingreso y lo antepone a las cachés
func (s *Store) Create(ctx context.Context, req *models.CreateStockInRequest) (*models.StockIn, error) {
	if len(req.Items) == 0 {
		return nil, lifecycle.ErrEmptyItems
	}

	rec, err := s.client.Create(ctx, req)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	s.InsertRecord(rec)
	return rec, nil
}

// Update aplica una actualización parcial a un ingreso
func (s *Store) Update(ctx context.Context, id string, req *models.UpdateStockInRequest) (*models.StockIn, error) {
	if cached := s.lookup(id); cached != nil {
		if err := lifecycle.ValidateUpdate(cached, req); err != nil {
			return nil, err
		}
	}

	rec, err := s.client.Update(ctx, id, req)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	s.ApplyRecordMutation(rec)
	return rec, nil
}

// SetStatus cambia el estado de aprobación de un ingreso
func (s *Store) SetStatus(ctx context.Context, id string, status models.StockInStatus) (*models.StockIn, error) {
	if cached := s.lookup(id); cached != nil {
		if err := lifecycle.ValidateStatusTransition(cached, status); err != nil {
			return nil, err
		}
	}

	rec, err := s.client.SetStatus(ctx, id, status)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	s.ApplyRecordMutation(rec)
	return rec, nil
}

// Pay registra un incremento de pago sobre un ingreso. El plan se calcula con
// las reglas puras (rechazo sin mutación) y al servidor viaja el acumulado
// canónico; la caché se reconcilia con lo que el servidor devuelva.
func (s *Store) Pay(ctx context.Context, id string, increment int64, notes string) (*models.StockIn, error) {
	cached := s.lookup(id)
	if cached == nil {
		fresh, err := s.client.GetByID(ctx, id)
		if err != nil {
			s.recordError(err)
			return nil, err
		}
		cached = fresh
	}

	plan, err := lifecycle.ApplyPayment(cached, increment, notes)
	if err != nil {
		return nil, err
	}

	rec, err := s.client.SetPayment(ctx, id, &models.UpdatePaymentRequest{
		PaymentStatus: plan.PaymentStatus,
		PaidAmount:    plan.PaidAmount,
		PaymentNotes:  plan.PaymentNotes,
	})
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	s.ApplyRecordMutation(rec)
	return rec, nil
}

// Delete elimina un ingreso elegible y lo quita de las cachés
func (s *Store) Delete(ctx context.Context, id string) error {
	if cached := s.lookup(id); cached != nil && !lifecycle.CanDelete(cached) {
		if cached.Status == models.StatusApproved {
			return lifecycle.ErrRecordApproved
		}
		return lifecycle.ErrHasPayments
	}

	deletedID, err := s.client.Remove(ctx, id)
	if err != nil {
		s.recordError(err)
		return err
	}

	s.RemoveRecord(deletedID)
	return nil
}

func (s *Store) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}
