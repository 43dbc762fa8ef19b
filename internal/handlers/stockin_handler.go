package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/filterquery"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/lifecycle"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// StockInHandler maneja las peticiones HTTP del recurso stock-in
type StockInHandler struct {
	stockInService services.StockInService
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewStockInHandler crea una nueva instancia del handler
func NewStockInHandler(stockInService services.StockInService, logger *zap.Logger) *StockInHandler {
	return &StockInHandler{
		stockInService: stockInService,
		validator:      validator.New(),
		logger:         logger,
	}
}

// logDebug logs solo en modo debug
func (h *StockInHandler) logDebug(msg string, fields ...zap.Field) {
	h.logger.Debug("🔍 [DEBUG] "+msg, fields...)
}

// logError logs errores en todos los modos
func (h *StockInHandler) logError(msg string, fields ...zap.Field) {
	h.logger.Error("❌ "+msg, fields...)
}

// logSuccess logs de éxito en todos los modos
func (h *StockInHandler) logSuccess(msg string, fields ...zap.Field) {
	h.logger.Info("✅ "+msg, fields...)
}

// respondError traduce los errores del dominio a códigos HTTP:
// no encontrado → 404, registro congelado → 409, validación → 400
func (h *StockInHandler) respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrRecordPaid),
		errors.Is(err, lifecycle.ErrRecordApproved),
		errors.Is(err, lifecycle.ErrHasPayments):
		status = http.StatusConflict
	case errors.Is(err, lifecycle.ErrNegativePayment),
		errors.Is(err, lifecycle.ErrOverpayment),
		errors.Is(err, lifecycle.ErrPaymentDecrease),
		errors.Is(err, lifecycle.ErrEmptyItems):
		status = http.StatusBadRequest
	}

	c.JSON(status, models.ErrorResponse{
		Success: false,
		Message: "❌ " + message,
		Error:   err.Error(),
	})
}

// currentUser obtiene el usuario autenticado del contexto (middleware JWT)
func currentUser(c *gin.Context) string {
	if user, exists := c.Get("user_id"); exists {
		if s, ok := user.(string); ok {
			return s
		}
	}
	return "system"
}

// ListStockIns maneja GET /stock-in con filtros dispersos y paginación
func (h *StockInHandler) ListStockIns(c *gin.Context) {
	start := time.Now()

	filter := filterquery.ParseFilter(c.Request.URL.Query())

	h.logDebug("Listando ingresos",
		zap.Int("page", filter.Page),
		zap.Int("limit", filter.Limit))

	result, err := h.stockInService.ListStockIns(c.Request.Context(), filter)
	if err != nil {
		h.logError("Error listando ingresos", zap.Error(err))
		h.respondError(c, err, "Error obteniendo los ingresos")
		return
	}

	h.logSuccess("Ingresos listados",
		zap.Int("total", result.Total),
		zap.Int("page", result.Page),
		zap.Duration("latency", time.Since(start)))

	c.JSON(http.StatusOK, models.StockInListResponse{
		Success: true,
		Message: "✅ Ingresos obtenidos correctamente",
		Data:    result.Data,
		Total:   result.Total,
		Page:    result.Page,
		Limit:   result.Limit,
	})
}

// GetStockIn maneja GET /stock-in/:id
func (h *StockInHandler) GetStockIn(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.stockInService.GetStockIn(c.Request.Context(), id)
	if err != nil {
		h.logError("Error obteniendo ingreso", zap.String("id", id), zap.Error(err))
		h.respondError(c, err, "Error obteniendo el ingreso")
		return
	}

	c.JSON(http.StatusOK, models.StockInResponse{
		Success: true,
		Message: "✅ Ingreso obtenido correctamente",
		Data:    rec,
	})
}

// CreateStockIn maneja POST /stock-in
func (h *StockInHandler) CreateStockIn(c *gin.Context) {
	start := time.Now()

	var req models.CreateStockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logError("Error binding JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Error en el formato de datos",
			Error:   err.Error(),
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logError("Validation error", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Datos de entrada inválidos",
			Error:   err.Error(),
		})
		return
	}

	req.CreatedBy = currentUser(c)

	rec, err := h.stockInService.CreateStockIn(c.Request.Context(), &req)
	if err != nil {
		h.logError("Error creando ingreso", zap.Error(err))
		h.respondError(c, err, "Error creando el ingreso")
		return
	}

	h.logSuccess("Ingreso creado",
		zap.String("id", rec.ID),
		zap.String("number", rec.StockInNumber),
		zap.Duration("latency", time.Since(start)))

	c.JSON(http.StatusCreated, models.StockInResponse{
		Success: true,
		Message: "✅ Ingreso creado correctamente",
		Data:    rec,
	})
}

// UpdateStockIn maneja PUT /stock-in/:id
func (h *StockInHandler) UpdateStockIn(c *gin.Context) {
	id := c.Param("id")

	var req models.UpdateStockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logError("Error binding JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Error en el formato de datos",
			Error:   err.Error(),
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logError("Validation error", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Datos de entrada inválidos",
			Error:   err.Error(),
		})
		return
	}

	if req.Empty() {
		h.logError("Empty update body", zap.String("id", id))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Datos de entrada inválidos",
			Error:   "update request has no fields to apply",
		})
		return
	}

	rec, err := h.stockInService.UpdateStockIn(c.Request.Context(), id, &req)
	if err != nil {
		h.logError("Error actualizando ingreso", zap.String("id", id), zap.Error(err))
		h.respondError(c, err, "Error actualizando el ingreso")
		return
	}

	h.logSuccess("Ingreso actualizado", zap.String("id", id))

	c.JSON(http.StatusOK, models.StockInResponse{
		Success: true,
		Message: "✅ Ingreso actualizado correctamente",
		Data:    rec,
	})
}

// UpdateStatus maneja PUT /stock-in/:id/status
func (h *StockInHandler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logError("Error binding JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Error en el formato de datos",
			Error:   err.Error(),
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logError("Validation error", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Estado inválido",
			Error:   err.Error(),
		})
		return
	}

	req.UpdatedBy = currentUser(c)

	rec, err := h.stockInService.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		h.logError("Error cambiando estado", zap.String("id", id), zap.Error(err))
		h.respondError(c, err, "Error cambiando el estado del ingreso")
		return
	}

	h.logSuccess("Estado actualizado",
		zap.String("id", id),
		zap.String("status", string(rec.Status)))

	c.JSON(http.StatusOK, models.StockInResponse{
		Success: true,
		Message: "✅ Estado actualizado correctamente",
		Data:    rec,
	})
}

// UpdatePayment maneja PUT /stock-in/:id/payment-status
func (h *StockInHandler) UpdatePayment(c *gin.Context) {
	id := c.Param("id")

	var req models.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logError("Error binding JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Error en el formato de datos",
			Error:   err.Error(),
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logError("Validation error", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Datos de pago inválidos",
			Error:   err.Error(),
		})
		return
	}

	rec, err := h.stockInService.UpdatePayment(c.Request.Context(), id, &req)
	if err != nil {
		h.logError("Error registrando pago", zap.String("id", id), zap.Error(err))
		h.respondError(c, err, "Error registrando el pago")
		return
	}

	h.logSuccess("Pago registrado",
		zap.String("id", id),
		zap.String("payment_status", string(rec.PaymentStatus)),
		zap.Int64("remaining", rec.RemainingAmount))

	c.JSON(http.StatusOK, models.StockInResponse{
		Success: true,
		Message: "✅ Pago registrado correctamente",
		Data:    rec,
	})
}

// DeleteStockIn maneja DELETE /stock-in/:id
func (h *StockInHandler) DeleteStockIn(c *gin.Context) {
	id := c.Param("id")

	if err := h.stockInService.DeleteStockIn(c.Request.Context(), id); err != nil {
		h.logError("Error eliminando ingreso", zap.String("id", id), zap.Error(err))
		h.respondError(c, err, "Error eliminando el ingreso")
		return
	}

	h.logSuccess("Ingreso eliminado", zap.String("id", id))

	c.JSON(http.StatusOK, models.DeleteResponse{
		Success: true,
		Message: "✅ Ingreso eliminado correctamente",
		ID:      id,
	})
}

// GetStatistics maneja GET /stock-in/stats con rango de fechas opcional
func (h *StockInHandler) GetStatistics(c *gin.Context) {
	startDate, err := parseDateParam(c.Query("startDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Fecha de inicio inválida",
			Error:   err.Error(),
		})
		return
	}
	endDate, err := parseDateParam(c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "❌ Fecha de fin inválida",
			Error:   err.Error(),
		})
		return
	}

	stats, err := h.stockInService.GetStatistics(c.Request.Context(), startDate, endDate)
	if err != nil {
		h.logError("Error obteniendo estadísticas", zap.Error(err))
		h.respondError(c, err, "Error obteniendo las estadísticas")
		return
	}

	c.JSON(http.StatusOK, models.StatisticsResponse{
		Success: true,
		Message: "✅ Estadísticas obtenidas correctamente",
		Data:    stats,
	})
}

// GetSuppliers maneja GET /stock-in/suppliers
func (h *StockInHandler) GetSuppliers(c *gin.Context) {
	suppliers, err := h.stockInService.GetSuppliers(c.Request.Context())
	if err != nil {
		h.logError("Error obteniendo proveedores", zap.Error(err))
		h.respondError(c, err, "Error obteniendo los proveedores")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Proveedores obtenidos correctamente",
		"data":    suppliers,
	})
}

func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(filterquery.DateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
