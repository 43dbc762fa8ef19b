package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/cache"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/events"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/filterquery"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/lifecycle"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/repository"

	"go.uber.org/zap"
)

// ErrNotFound el ingreso no existe o está eliminado
var ErrNotFound = errors.New("stock-in not found")

// StockInService define la interfaz para operaciones de ingresos
type StockInService interface {
	// Consultas
	ListStockIns(ctx context.Context, filter models.StockInFilter) (*models.ListResult, error)
	GetStockIn(ctx context.Context, id string) (*models.StockIn, error)
	GetStatistics(ctx context.Context, startDate, endDate *time.Time) (*models.Statistics, error)
	GetSuppliers(ctx context.Context) ([]string, error)

	// Mutaciones
	CreateStockIn(ctx context.Context, req *models.CreateStockInRequest) (*models.StockIn, error)
	UpdateStockIn(ctx context.Context, id string, req *models.UpdateStockInRequest) (*models.StockIn, error)
	UpdateStatus(ctx context.Context, id string, req *models.UpdateStatusRequest) (*models.StockIn, error)
	UpdatePayment(ctx context.Context, id string, req *models.UpdatePaymentRequest) (*models.StockIn, error)
	DeleteStockIn(ctx context.Context, id string) error
}

// stockInService implementa StockInService
type stockInService struct {
	repo   repository.StockInRepository
	cache  *cache.StockInCache
	hub    *events.Hub
	logger *zap.Logger
}

// NewStockInService crea una nueva instancia del servicio
func NewStockInService(repo repository.StockInRepository, cache *cache.StockInCache, hub *events.Hub, logger *zap.Logger) StockInService {
	return &stockInService{
		repo:   repo,
		cache:  cache,
		hub:    hub,
		logger: logger,
	}
}

// ListStockIns obtiene una página filtrada de ingresos, con caché
func (s *stockInService) ListStockIns(ctx context.Context, filter models.StockInFilter) (*models.ListResult, error) {
	params := filterquery.Params(filter).Encode()

	if cached, ok := s.cache.GetList(ctx, params); ok {
		return cached, nil
	}

	result, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock-ins: %w", err)
	}

	s.cache.SetList(ctx, params, result)
	return result, nil
}

// GetStockIn obtiene un ingreso por id
func (s *stockInService) GetStockIn(ctx context.Context, id string) (*models.StockIn, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock-in: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// GetStatistics obtiene agregados por estado y pago para un rango, con caché
func (s *stockInService) GetStatistics(ctx context.Context, startDate, endDate *time.Time) (*models.Statistics, error) {
	rangeKey := statsRangeKey(startDate, endDate)

	if cached, ok := s.cache.GetStatistics(ctx, rangeKey); ok {
		return cached, nil
	}

	stats, err := s.repo.Statistics(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	s.cache.SetStatistics(ctx, rangeKey, stats)
	return stats, nil
}

// GetSuppliers obtiene los proveedores distintos observados
func (s *stockInService) GetSuppliers(ctx context.Context) ([]string, error) {
	suppliers, err := s.repo.DistinctSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get suppliers: %w", err)
	}
	return suppliers, nil
}

// CreateStockIn crea un ingreso nuevo: pendiente, sin pagos
func (s *stockInService) CreateStockIn(ctx context.Context, req *models.CreateStockInRequest) (*models.StockIn, error) {
	logger := s.logger.With(
		zap.String("operation", "create_stock_in"),
		zap.String("supplier", req.SupplierName),
		zap.Int("items", len(req.Items)),
	)

	if len(req.Items) == 0 {
		return nil, lifecycle.ErrEmptyItems
	}

	items := lifecycle.BuildItems(req.Items)
	totals := lifecycle.ComputeTotals(items, req.TaxRate, req.DiscountRate)

	rec := &models.StockIn{
		Items:           items,
		Subtotal:        totals.Subtotal,
		TaxRate:         req.TaxRate,
		TaxAmount:       totals.TaxAmount,
		DiscountRate:    req.DiscountRate,
		DiscountAmount:  totals.DiscountAmount,
		TotalAmount:     totals.TotalAmount,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentUnpaid,
		PaidAmount:      0,
		RemainingAmount: totals.TotalAmount,
		PaymentNotes:    req.PaymentNotes,
		SupplierName:    req.SupplierName,
		SupplierPhone:   req.SupplierPhone,
		SupplierAddress: req.SupplierAddress,
		CreatedBy:       req.CreatedBy,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		logger.Error("Failed to create stock-in", zap.Error(err))
		return nil, fmt.Errorf("failed to create stock-in: %w", err)
	}

	logger.Info("Stock-in created",
		zap.String("id", rec.ID),
		zap.String("number", rec.StockInNumber),
		zap.Int64("total_amount", rec.TotalAmount))

	s.commit(ctx, "created", rec)
	return rec, nil
}

// UpdateStockIn aplica una actualización parcial respetando los campos
// congelados por aprobación y la inmutabilidad de un ingreso pagado
func (s *stockInService) UpdateStockIn(ctx context.Context, id string, req *models.UpdateStockInRequest) (*models.StockIn, error) {
	logger := s.logger.With(
		zap.String("operation", "update_stock_in"),
		zap.String("id", id),
	)

	rec, err := s.GetStockIn(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.ValidateUpdate(rec, req); err != nil {
		logger.Warn("Update rejected", zap.Error(err))
		return nil, err
	}

	if req.Items != nil {
		rec.Items = lifecycle.BuildItems(req.Items)
	}
	if req.TaxRate != nil {
		rec.TaxRate = *req.TaxRate
	}
	if req.DiscountRate != nil {
		rec.DiscountRate = *req.DiscountRate
	}
	if req.SupplierName != nil {
		rec.SupplierName = *req.SupplierName
	}
	if req.SupplierPhone != nil {
		rec.SupplierPhone = *req.SupplierPhone
	}
	if req.SupplierAddress != nil {
		rec.SupplierAddress = *req.SupplierAddress
	}
	if req.PaymentNotes != nil {
		rec.PaymentNotes = *req.PaymentNotes
	}

	// Rederivar montos y estado de pago tras cualquier cambio comercial
	totals := lifecycle.ComputeTotals(rec.Items, rec.TaxRate, rec.DiscountRate)
	if totals.TotalAmount < rec.PaidAmount {
		return nil, fmt.Errorf("%w: paid %d, new total %d",
			lifecycle.ErrOverpayment, rec.PaidAmount, totals.TotalAmount)
	}
	rec.Subtotal = totals.Subtotal
	rec.TaxAmount = totals.TaxAmount
	rec.DiscountAmount = totals.DiscountAmount
	rec.TotalAmount = totals.TotalAmount
	rec.RemainingAmount = lifecycle.RemainingAmount(rec.TotalAmount, rec.PaidAmount)
	rec.PaymentStatus = lifecycle.NextPaymentStatus(rec.TotalAmount, rec.PaidAmount)

	if err := s.repo.Update(ctx, rec); err != nil {
		logger.Error("Failed to update stock-in", zap.Error(err))
		return nil, fmt.Errorf("failed to update stock-in: %w", err)
	}

	logger.Info("Stock-in updated", zap.Int64("total_amount", rec.TotalAmount))

	s.commit(ctx, "updated", rec)
	return rec, nil
}

// UpdateStatus cambia el estado de aprobación. Los campos de auditoría se
// fijan solo al entrar en approved y se limpian al salir.
func (s *stockInService) UpdateStatus(ctx context.Context, id string, req *models.UpdateStatusRequest) (*models.StockIn, error) {
	logger := s.logger.With(
		zap.String("operation", "update_status"),
		zap.String("id", id),
		zap.String("status", string(req.Status)),
	)

	rec, err := s.GetStockIn(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.ValidateStatusTransition(rec, req.Status); err != nil {
		logger.Warn("Status change rejected", zap.Error(err))
		return nil, err
	}

	previous := rec.Status
	switch {
	case req.Status == models.StatusApproved && previous != models.StatusApproved:
		now := time.Now().UTC()
		by := req.UpdatedBy
		rec.ApprovedBy = &by
		rec.ApprovedAt = &now
	case req.Status != models.StatusApproved:
		rec.ApprovedBy = nil
		rec.ApprovedAt = nil
	}
	rec.Status = req.Status

	if err := s.repo.Update(ctx, rec); err != nil {
		logger.Error("Failed to update status", zap.Error(err))
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	logger.Info("Status updated", zap.String("previous", string(previous)))

	s.commit(ctx, "updated", rec)
	return rec, nil
}

// UpdatePayment registra el acumulado de pago. El estado de pago del cuerpo
// debe coincidir con el derivado de los montos; el acumulado es monótono.
func (s *stockInService) UpdatePayment(ctx context.Context, id string, req *models.UpdatePaymentRequest) (*models.StockIn, error) {
	logger := s.logger.With(
		zap.String("operation", "update_payment"),
		zap.String("id", id),
		zap.Int64("paid_amount", req.PaidAmount),
	)

	rec, err := s.GetStockIn(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.ValidatePaymentTarget(rec, req.PaidAmount); err != nil {
		logger.Warn("Payment rejected", zap.Error(err))
		return nil, err
	}

	derived := lifecycle.NextPaymentStatus(rec.TotalAmount, req.PaidAmount)
	if req.PaymentStatus != derived {
		logger.Warn("Payment status mismatch",
			zap.String("requested", string(req.PaymentStatus)),
			zap.String("derived", string(derived)))
		return nil, fmt.Errorf("payment status %q inconsistent with paid amount (derived %q)",
			req.PaymentStatus, derived)
	}

	rec.PaidAmount = req.PaidAmount
	rec.PaymentStatus = derived
	rec.RemainingAmount = lifecycle.RemainingAmount(rec.TotalAmount, rec.PaidAmount)
	if req.PaymentNotes != "" {
		rec.PaymentNotes = req.PaymentNotes
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		logger.Error("Failed to update payment", zap.Error(err))
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	logger.Info("Payment updated",
		zap.String("payment_status", string(rec.PaymentStatus)),
		zap.Int64("remaining", rec.RemainingAmount))

	s.commit(ctx, "updated", rec)
	return rec, nil
}

// DeleteStockIn elimina (soft delete) un ingreso elegible: ni aprobado ni con
// pagos registrados
func (s *stockInService) DeleteStockIn(ctx context.Context, id string) error {
	logger := s.logger.With(
		zap.String("operation", "delete_stock_in"),
		zap.String("id", id),
	)

	rec, err := s.GetStockIn(ctx, id)
	if err != nil {
		return err
	}

	if rec.Status == models.StatusApproved {
		logger.Warn("Delete rejected: approved")
		return lifecycle.ErrRecordApproved
	}
	if rec.PaymentStatus != models.PaymentUnpaid {
		logger.Warn("Delete rejected: has payments")
		return lifecycle.ErrHasPayments
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		logger.Error("Failed to delete stock-in", zap.Error(err))
		return fmt.Errorf("failed to delete stock-in: %w", err)
	}

	logger.Info("Stock-in deleted")

	s.commit(ctx, "deleted", rec)
	return nil
}

// commit invalida el caché y publica el evento tras una mutación confirmada
func (s *stockInService) commit(ctx context.Context, eventType string, rec *models.StockIn) {
	s.cache.Invalidate(ctx)
	if s.hub != nil {
		var record *models.StockIn
		if eventType != "deleted" {
			record = rec
		}
		s.hub.Publish(eventType, rec.ID, record)
	}
}

func statsRangeKey(startDate, endDate *time.Time) string {
	const layout = "2006-01-02"
	start, end := "", ""
	if startDate != nil {
		start = startDate.Format(layout)
	}
	if endDate != nil {
		end = endDate.Format(layout)
	}
	return start + "|" + end
}
