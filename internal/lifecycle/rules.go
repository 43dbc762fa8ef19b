// Package lifecycle contiene las reglas puras del ciclo de vida de un ingreso:
// derivación del estado de pago, validación de montos y elegibilidad de
// acciones. No toca red ni almacenamiento; el service del servidor y el store
// del cliente validan con las mismas funciones.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"
)

var (
	// ErrNegativePayment el incremento de pago es negativo
	ErrNegativePayment = errors.New("payment amount must not be negative")
	// ErrOverpayment el pago excede el monto restante
	ErrOverpayment = errors.New("payment exceeds remaining amount")
	// ErrPaymentDecrease el acumulado objetivo es menor que el ya pagado
	ErrPaymentDecrease = errors.New("paid amount cannot decrease")
	// ErrRecordPaid el ingreso está pagado y es inmutable
	ErrRecordPaid = errors.New("stock-in is fully paid and immutable")
	// ErrRecordApproved el ingreso está aprobado y sus campos comerciales están congelados
	ErrRecordApproved = errors.New("stock-in is approved: commercial fields are frozen")
	// ErrEmptyItems un ingreso debe tener al menos una línea de materiales
	ErrEmptyItems = errors.New("stock-in must contain at least one item")
	// ErrHasPayments el ingreso ya registra pagos y no puede eliminarse
	ErrHasPayments = errors.New("stock-in has recorded payments")
)

// NextPaymentStatus deriva el estado de pago a partir del total y el acumulado.
// Es la única fuente de verdad: el estado de pago nunca se fija aparte.
func NextPaymentStatus(totalAmount, paidAmount int64) models.PaymentStatus {
	switch {
	case paidAmount <= 0:
		return models.PaymentUnpaid
	case paidAmount < totalAmount:
		return models.PaymentPartial
	default:
		return models.PaymentPaid
	}
}

// RemainingAmount monto restante, nunca negativo
func RemainingAmount(totalAmount, paidAmount int64) int64 {
	remaining := totalAmount - paidAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// BuildItems construye las líneas persistibles calculando el total por línea
func BuildItems(reqs []models.StockInItemRequest) []models.StockInItem {
	items := make([]models.StockInItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, models.StockInItem{
			MaterialID:   r.MaterialID,
			MaterialName: r.MaterialName,
			Quantity:     r.Quantity,
			UnitPrice:    r.UnitPrice,
			TotalPrice:   r.Quantity * r.UnitPrice,
			Unit:         r.Unit,
			Supplier:     r.Supplier,
		})
	}
	return items
}

// Totals montos derivados de las líneas y las tasas
type Totals struct {
	Subtotal       int64
	TaxAmount      int64
	DiscountAmount int64
	TotalAmount    int64
}

// ComputeTotals calcula subtotal, impuesto, descuento y total en VND entero.
// Tasas en puntos porcentuales (10 = 10%); los montos derivados se truncan.
func ComputeTotals(items []models.StockInItem, taxRate, discountRate int64) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.TotalPrice
	}
	t := Totals{
		Subtotal:       subtotal,
		TaxAmount:      subtotal * taxRate / 100,
		DiscountAmount: subtotal * discountRate / 100,
	}
	t.TotalAmount = subtotal + t.TaxAmount - t.DiscountAmount
	return t
}

// PaymentPlan resultado de aplicar un pago: lo que debe persistirse
type PaymentPlan struct {
	PaidAmount      int64
	PaymentStatus   models.PaymentStatus
	RemainingAmount int64
	PaymentNotes    string
}

// ValidatePaymentIncrement valida un incremento de pago contra el registro
// actual sin mutarlo. Rechaza incrementos negativos y sobrepagos.
func ValidatePaymentIncrement(rec *models.StockIn, increment int64) error {
	if rec.PaymentStatus == models.PaymentPaid {
		return ErrRecordPaid
	}
	if increment < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativePayment, increment)
	}
	if remaining := RemainingAmount(rec.TotalAmount, rec.PaidAmount); increment > remaining {
		return fmt.Errorf("%w: increment %d, remaining %d", ErrOverpayment, increment, remaining)
	}
	return nil
}

// ApplyPayment aplica un incremento de pago y devuelve el plan resultante.
// No muta el registro; en caso de rechazo no hay nada que revertir.
func ApplyPayment(rec *models.StockIn, increment int64, notes string) (PaymentPlan, error) {
	if err := ValidatePaymentIncrement(rec, increment); err != nil {
		return PaymentPlan{}, err
	}
	paid := rec.PaidAmount + increment
	plan := PaymentPlan{
		PaidAmount:      paid,
		PaymentStatus:   NextPaymentStatus(rec.TotalAmount, paid),
		RemainingAmount: RemainingAmount(rec.TotalAmount, paid),
		PaymentNotes:    notes,
	}
	if plan.PaymentNotes == "" {
		plan.PaymentNotes = rec.PaymentNotes
	}
	return plan, nil
}

// ValidatePaymentTarget valida un acumulado objetivo (cuerpo canónico de la
// API). El acumulado es monótono: no puede bajar ni exceder el total.
func ValidatePaymentTarget(rec *models.StockIn, target int64) error {
	if rec.PaymentStatus == models.PaymentPaid && target != rec.PaidAmount {
		return ErrRecordPaid
	}
	if target < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativePayment, target)
	}
	if target < rec.PaidAmount {
		return fmt.Errorf("%w: current %d, requested %d", ErrPaymentDecrease, rec.PaidAmount, target)
	}
	if target > rec.TotalAmount {
		return fmt.Errorf("%w: total %d, requested %d", ErrOverpayment, rec.TotalAmount, target)
	}
	return nil
}

// ValidateStatusTransition valida un cambio de estado de aprobación.
// pending, approved y rejected son re-seleccionables entre sí mientras el
// ingreso no esté pagado; los dos ejes (aprobación y pago) nunca se mezclan.
func ValidateStatusTransition(rec *models.StockIn, next models.StockInStatus) error {
	if !next.Valid() {
		return fmt.Errorf("unknown stock-in status %q", next)
	}
	if rec.PaymentStatus == models.PaymentPaid && next != rec.Status {
		return ErrRecordPaid
	}
	return nil
}

// Selectable reporta si un ingreso es elegible para acciones masivas
// (eliminar, cambiar estado, registrar pago). Predicado derivado sobre ambos
// ejes; nunca un tercer estado combinado.
func Selectable(rec *models.StockIn) bool {
	return rec.Status != models.StatusApproved &&
		rec.PaymentStatus == models.PaymentUnpaid &&
		!rec.IsDeleted
}

// CanEditCommercial reporta si los campos comerciales (items, proveedor,
// montos) siguen editables
func CanEditCommercial(rec *models.StockIn) bool {
	return rec.Status != models.StatusApproved && rec.PaymentStatus != models.PaymentPaid
}

// CanPay reporta si el ingreso aún admite pagos
func CanPay(rec *models.StockIn) bool {
	return rec.PaymentStatus != models.PaymentPaid
}

// CanDelete reporta si el ingreso puede eliminarse
func CanDelete(rec *models.StockIn) bool {
	return Selectable(rec)
}

// ValidateUpdate rechaza una actualización parcial que toque campos congelados
func ValidateUpdate(rec *models.StockIn, dto *models.UpdateStockInRequest) error {
	if rec.PaymentStatus == models.PaymentPaid {
		return ErrRecordPaid
	}
	if rec.Status != models.StatusApproved {
		return nil
	}
	// Aprobado: solo las notas de pago siguen abiertas
	if dto.Items != nil || dto.TaxRate != nil || dto.DiscountRate != nil ||
		dto.SupplierName != nil || dto.SupplierPhone != nil || dto.SupplierAddress != nil {
		return ErrRecordApproved
	}
	return nil
}

// Verify comprueba los invariantes monetarios de un registro ya construido.
// El cliente lo usa en la frontera de deserialización (parse, don't trust).
func Verify(rec *models.StockIn) error {
	if len(rec.Items) == 0 {
		return ErrEmptyItems
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("unknown stock-in status %q", rec.Status)
	}
	if !rec.PaymentStatus.Valid() {
		return fmt.Errorf("unknown payment status %q", rec.PaymentStatus)
	}
	if rec.TotalAmount != rec.Subtotal+rec.TaxAmount-rec.DiscountAmount {
		return fmt.Errorf("total amount %d does not match subtotal %d + tax %d - discount %d",
			rec.TotalAmount, rec.Subtotal, rec.TaxAmount, rec.DiscountAmount)
	}
	if rec.PaidAmount < 0 || rec.PaidAmount > rec.TotalAmount {
		return fmt.Errorf("paid amount %d outside [0, %d]", rec.PaidAmount, rec.TotalAmount)
	}
	if rec.RemainingAmount != rec.TotalAmount-rec.PaidAmount {
		return fmt.Errorf("remaining amount %d does not match total %d - paid %d",
			rec.RemainingAmount, rec.TotalAmount, rec.PaidAmount)
	}
	if got := NextPaymentStatus(rec.TotalAmount, rec.PaidAmount); rec.PaymentStatus != got {
		return fmt.Errorf("payment status %q inconsistent with amounts (derived %q)", rec.PaymentStatus, got)
	}
	return nil
}
