package models

import (
	"time"
)

// StockInStatus estado de aprobación de un ingreso
type StockInStatus string

const (
	StatusPending  StockInStatus = "pending"
	StatusApproved StockInStatus = "approved"
	StatusRejected StockInStatus = "rejected"
)

// Valid reporta si el estado de aprobación es uno de los tres conocidos
func (s StockInStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// PaymentStatus estado de pago de un ingreso
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Valid reporta si el estado de pago es uno de los tres conocidos
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}

// StockInItem representa una línea de materiales dentro de un ingreso
type StockInItem struct {
	MaterialID   string `json:"material_id" db:"material_id"`
	MaterialName string `json:"material_name" db:"material_name"`
	Quantity     int64  `json:"quantity" db:"quantity"`
	UnitPrice    int64  `json:"unit_price" db:"unit_price"`
	TotalPrice   int64  `json:"total_price" db:"total_price"`
	Unit         string `json:"unit" db:"unit"`
	Supplier     string `json:"supplier,omitempty" db:"supplier"`
}

// StockIn representa la tabla stock_ins (recepción de materiales de construcción)
//
// Montos en VND entero (sin subunidades). Invariantes:
//   - TotalAmount = Subtotal + TaxAmount - DiscountAmount
//   - 0 <= PaidAmount <= TotalAmount; RemainingAmount = TotalAmount - PaidAmount
//   - PaymentStatus se deriva siempre de PaidAmount vs TotalAmount
type StockIn struct {
	ID            string        `json:"id" db:"id"`
	StockInNumber string        `json:"stock_in_number" db:"stock_in_number"`
	Items         []StockInItem `json:"items" db:"items"`

	Subtotal       int64 `json:"subtotal" db:"subtotal"`
	TaxRate        int64 `json:"tax_rate" db:"tax_rate"`
	TaxAmount      int64 `json:"tax_amount" db:"tax_amount"`
	DiscountRate   int64 `json:"discount_rate" db:"discount_rate"`
	DiscountAmount int64 `json:"discount_amount" db:"discount_amount"`
	TotalAmount    int64 `json:"total_amount" db:"total_amount"`

	Status     StockInStatus `json:"status" db:"status"`
	ApprovedBy *string       `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt *time.Time    `json:"approved_at,omitempty" db:"approved_at"`

	PaymentStatus   PaymentStatus `json:"payment_status" db:"payment_status"`
	PaidAmount      int64         `json:"paid_amount" db:"paid_amount"`
	RemainingAmount int64         `json:"remaining_amount" db:"remaining_amount"`
	PaymentNotes    string        `json:"payment_notes,omitempty" db:"payment_notes"`

	SupplierName    string `json:"supplier_name" db:"supplier_name"`
	SupplierPhone   string `json:"supplier_phone,omitempty" db:"supplier_phone"`
	SupplierAddress string `json:"supplier_address,omitempty" db:"supplier_address"`

	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
}

// Clone devuelve una copia profunda del registro (los items se copian)
func (s *StockIn) Clone() *StockIn {
	c := *s
	if s.Items != nil {
		c.Items = append([]StockInItem(nil), s.Items...)
	}
	if s.ApprovedBy != nil {
		v := *s.ApprovedBy
		c.ApprovedBy = &v
	}
	if s.ApprovedAt != nil {
		v := *s.ApprovedAt
		c.ApprovedAt = &v
	}
	return &c
}

// StatusBreakdown conteo y monto acumulado para un estado
type StatusBreakdown struct {
	Count       int   `json:"count"`
	TotalAmount int64 `json:"total_amount"`
}

// Statistics estadísticas agregadas de ingresos para un rango de fechas
type Statistics struct {
	TotalRecords    int   `json:"total_records"`
	TotalAmount     int64 `json:"total_amount"`
	PaidAmount      int64 `json:"paid_amount"`
	RemainingAmount int64 `json:"remaining_amount"`

	ByStatus  map[StockInStatus]StatusBreakdown `json:"by_status"`
	ByPayment map[PaymentStatus]StatusBreakdown `json:"by_payment"`
}
