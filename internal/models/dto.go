package models

// ===== REQUEST DTOs =====

// StockInItemRequest línea de materiales en la creación de un ingreso
type StockInItemRequest struct {
	MaterialID   string `json:"material_id" validate:"required"`
	MaterialName string `json:"material_name" validate:"required"`
	Quantity     int64  `json:"quantity" validate:"required,gt=0"`
	UnitPrice    int64  `json:"unit_price" validate:"gte=0"`
	Unit         string `json:"unit" validate:"required"`
	Supplier     string `json:"supplier"`
}

// CreateStockInRequest DTO para crear un ingreso de materiales
type CreateStockInRequest struct {
	Items           []StockInItemRequest `json:"items" validate:"required,min=1,dive"`
	TaxRate         int64                `json:"tax_rate" validate:"gte=0,lte=100"`
	DiscountRate    int64                `json:"discount_rate" validate:"gte=0,lte=100"`
	SupplierName    string               `json:"supplier_name" validate:"required"`
	SupplierPhone   string               `json:"supplier_phone"`
	SupplierAddress string               `json:"supplier_address"`
	PaymentNotes    string               `json:"payment_notes"`
	CreatedBy       string               `json:"-"` // Se obtiene del contexto de autenticación
}

// UpdateStockInRequest DTO para actualización parcial de un ingreso.
// Solo se aplican los campos presentes; los campos comerciales quedan
// congelados una vez aprobado el ingreso.
type UpdateStockInRequest struct {
	Items           []StockInItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	TaxRate         *int64               `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	DiscountRate    *int64               `json:"discount_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	SupplierName    *string              `json:"supplier_name,omitempty"`
	SupplierPhone   *string              `json:"supplier_phone,omitempty"`
	SupplierAddress *string              `json:"supplier_address,omitempty"`
	PaymentNotes    *string              `json:"payment_notes,omitempty"`
}

// Empty reporta si el DTO no trae ningún campo a aplicar
func (r *UpdateStockInRequest) Empty() bool {
	return r.Items == nil && r.TaxRate == nil && r.DiscountRate == nil &&
		r.SupplierName == nil && r.SupplierPhone == nil &&
		r.SupplierAddress == nil && r.PaymentNotes == nil
}

// UpdateStatusRequest DTO para cambiar el estado de aprobación
type UpdateStatusRequest struct {
	Status    StockInStatus `json:"status" validate:"required,oneof=pending approved rejected"`
	UpdatedBy string        `json:"-"` // Se obtiene del contexto de autenticación
}

// UpdatePaymentRequest DTO para registrar el estado de pago acumulado.
// PaidAmount es el acumulado objetivo, no el incremento; el servidor vuelve a
// derivar PaymentStatus y rechaza el cuerpo si no coincide con la derivación.
type UpdatePaymentRequest struct {
	PaymentStatus PaymentStatus `json:"payment_status" validate:"required,oneof=unpaid partial paid"`
	PaidAmount    int64         `json:"paid_amount" validate:"gte=0"`
	PaymentNotes  string        `json:"payment_notes"`
}

// ===== RESPONSE DTOs =====

// StockInResponse respuesta con un único ingreso
type StockInResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    *StockIn `json:"data"`
}

// StockInListResponse respuesta paginada de ingresos
type StockInListResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    []*StockIn `json:"data"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
}

// DeleteResponse respuesta de eliminación con el id confirmado
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// StatisticsResponse respuesta con estadísticas agregadas
type StatisticsResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *Statistics `json:"data"`
}

// ErrorResponse cuerpo de error estándar de la API
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// StockInEvent evento emitido por el feed WebSocket tras una mutación confirmada
type StockInEvent struct {
	Type      string   `json:"type"` // created | updated | deleted
	ID        string   `json:"id"`
	Record    *StockIn `json:"record,omitempty"`
	Timestamp string   `json:"timestamp"`
}
