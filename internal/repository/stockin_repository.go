package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"
)

// StockInRepository define la interfaz de persistencia de ingresos
type StockInRepository interface {
	// Consultas
	List(ctx context.Context, filter models.StockInFilter) (*models.ListResult, error)
	GetByID(ctx context.Context, id string) (*models.StockIn, error)
	DistinctSuppliers(ctx context.Context) ([]string, error)
	Statistics(ctx context.Context, startDate, endDate *time.Time) (*models.Statistics, error)

	// Mutaciones
	Create(ctx context.Context, rec *models.StockIn) error
	Update(ctx context.Context, rec *models.StockIn) error
	SoftDelete(ctx context.Context, id string) error
}

// stockInRepository implementa StockInRepository sobre PostgreSQL
type stockInRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

// NewStockInRepository crea una nueva instancia del repository
func NewStockInRepository(db *sql.DB) (StockInRepository, error) {
	repo := &stockInRepository{
		db:    db,
		stmts: make(map[string]*sql.Stmt),
	}

	if err := repo.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return repo, nil
}

const stockInColumns = `
	id, stock_in_number, items, subtotal, tax_rate, tax_amount,
	discount_rate, discount_amount, total_amount, status, approved_by,
	approved_at, payment_status, paid_amount, remaining_amount, payment_notes,
	supplier_name, supplier_phone, supplier_address, created_by, created_at,
	updated_at, is_deleted`

// prepareStatements prepara las consultas fijas; List y Statistics se arman
// dinámicamente según los filtros presentes
func (r *stockInRepository) prepareStatements() error {
	statements := map[string]string{
		"get_stock_in": `
			SELECT ` + stockInColumns + `
			FROM stock_ins
			WHERE id = $1 AND is_deleted = false
		`,
		"create_stock_in": `
			INSERT INTO stock_ins
			(items, subtotal, tax_rate, tax_amount, discount_rate, discount_amount,
			 total_amount, status, payment_status, paid_amount, remaining_amount,
			 payment_notes, supplier_name, supplier_phone, supplier_address, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id, stock_in_number, created_at, updated_at
		`,
		"update_stock_in": `
			UPDATE stock_ins
			SET items = $1, subtotal = $2, tax_rate = $3, tax_amount = $4,
				discount_rate = $5, discount_amount = $6, total_amount = $7,
				status = $8, approved_by = $9, approved_at = $10,
				payment_status = $11, paid_amount = $12, remaining_amount = $13,
				payment_notes = $14, supplier_name = $15, supplier_phone = $16,
				supplier_address = $17, updated_at = NOW()
			WHERE id = $18 AND is_deleted = false
			RETURNING updated_at
		`,
		"soft_delete_stock_in": `
			UPDATE stock_ins
			SET is_deleted = true, updated_at = NOW()
			WHERE id = $1 AND is_deleted = false
		`,
		"distinct_suppliers": `
			SELECT DISTINCT supplier_name
			FROM stock_ins
			WHERE is_deleted = false AND supplier_name <> ''
			ORDER BY supplier_name
		`,
	}

	for name, query := range statements {
		stmt, err := r.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", name, err)
		}
		r.stmts[name] = stmt
	}

	return nil
}

// buildListWhere arma las cláusulas WHERE según los filtros presentes.
// Un filtro con cadena vacía viaja igual que ausente hacia SQL: la clave llegó
// al servidor pero no restringe nada.
func buildListWhere(filter models.StockInFilter) (string, []interface{}) {
	clauses := []string{"is_deleted = false"}
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != nil && *filter.Search != "" {
		p := arg("%" + *filter.Search + "%")
		clauses = append(clauses, fmt.Sprintf(
			"(stock_in_number ILIKE %s OR supplier_name ILIKE %s OR items::text ILIKE %s)", p, p, p))
	}
	if filter.Status != nil && *filter.Status != "" {
		clauses = append(clauses, "status = "+arg(*filter.Status))
	}
	if filter.PaymentStatus != nil && *filter.PaymentStatus != "" {
		clauses = append(clauses, "payment_status = "+arg(*filter.PaymentStatus))
	}
	if filter.Supplier != nil && *filter.Supplier != "" {
		clauses = append(clauses, "supplier_name ILIKE "+arg("%"+*filter.Supplier+"%"))
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		clauses = append(clauses, "created_at >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		// Límite inclusivo: el día completo
		clauses = append(clauses, "created_at < "+arg(*filter.EndDate)+"::date + INTERVAL '1 day'")
	}

	return strings.Join(clauses, " AND "), args
}

// List obtiene una página de ingresos con su total filtrado
func (r *stockInRepository) List(ctx context.Context, filter models.StockInFilter) (*models.ListResult, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	where, args := buildListWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM stock_ins WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count stock-ins: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM stock_ins
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, stockInColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock-ins: %w", err)
	}
	defer rows.Close()

	records := []*models.StockIn{}
	for rows.Next() {
		rec, err := scanStockIn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock-in: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stock-ins: %w", err)
	}

	return &models.ListResult{
		Data:  records,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// GetByID obtiene un ingreso por id
func (r *stockInRepository) GetByID(ctx context.Context, id string) (*models.StockIn, error) {
	rec, err := scanStockIn(r.stmts["get_stock_in"].QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock-in: %w", err)
	}
	return rec, nil
}

// Create persiste un ingreso nuevo; el servidor genera id y número secuencial
func (r *stockInRepository) Create(ctx context.Context, rec *models.StockIn) error {
	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	err = r.stmts["create_stock_in"].QueryRowContext(ctx,
		itemsJSON, rec.Subtotal, rec.TaxRate, rec.TaxAmount,
		rec.DiscountRate, rec.DiscountAmount, rec.TotalAmount,
		rec.Status, rec.PaymentStatus, rec.PaidAmount, rec.RemainingAmount,
		rec.PaymentNotes, rec.SupplierName, rec.SupplierPhone, rec.SupplierAddress,
		rec.CreatedBy,
	).Scan(&rec.ID, &rec.StockInNumber, &rec.CreatedAt, &rec.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create stock-in: %w", err)
	}

	return nil
}

// Update persiste el registro completo
func (r *stockInRepository) Update(ctx context.Context, rec *models.StockIn) error {
	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	err = r.stmts["update_stock_in"].QueryRowContext(ctx,
		itemsJSON, rec.Subtotal, rec.TaxRate, rec.TaxAmount,
		rec.DiscountRate, rec.DiscountAmount, rec.TotalAmount,
		rec.Status, rec.ApprovedBy, rec.ApprovedAt,
		rec.PaymentStatus, rec.PaidAmount, rec.RemainingAmount,
		rec.PaymentNotes, rec.SupplierName, rec.SupplierPhone, rec.SupplierAddress,
		rec.ID,
	).Scan(&rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("no stock-in record found for id %s", rec.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update stock-in: %w", err)
	}

	return nil
}

// SoftDelete marca un ingreso como eliminado
func (r *stockInRepository) SoftDelete(ctx context.Context, id string) error {
	result, err := r.stmts["soft_delete_stock_in"].ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete stock-in: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no stock-in record found for id %s", id)
	}

	return nil
}

// DistinctSuppliers obtiene los proveedores distintos no vacíos
func (r *stockInRepository) DistinctSuppliers(ctx context.Context) ([]string, error) {
	rows, err := r.stmts["distinct_suppliers"].QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}

	return suppliers, rows.Err()
}

// Statistics calcula agregados por estado y por estado de pago en un rango
func (r *stockInRepository) Statistics(ctx context.Context, startDate, endDate *time.Time) (*models.Statistics, error) {
	clauses := []string{"is_deleted = false"}
	var args []interface{}
	if startDate != nil {
		args = append(args, *startDate)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if endDate != nil {
		args = append(args, *endDate)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d + INTERVAL '1 day'", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	stats := &models.Statistics{
		ByStatus:  make(map[models.StockInStatus]models.StatusBreakdown),
		ByPayment: make(map[models.PaymentStatus]models.StatusBreakdown),
	}

	totalsQuery := fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0),
			   COALESCE(SUM(paid_amount), 0), COALESCE(SUM(remaining_amount), 0)
		FROM stock_ins WHERE %s
	`, where)
	err := r.db.QueryRowContext(ctx, totalsQuery, args...).Scan(
		&stats.TotalRecords, &stats.TotalAmount, &stats.PaidAmount, &stats.RemainingAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics totals: %w", err)
	}

	statusQuery := fmt.Sprintf(`
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM stock_ins WHERE %s GROUP BY status
	`, where)
	if err := r.scanBreakdown(ctx, statusQuery, args, func(key string, b models.StatusBreakdown) {
		stats.ByStatus[models.StockInStatus(key)] = b
	}); err != nil {
		return nil, err
	}

	paymentQuery := fmt.Sprintf(`
		SELECT payment_status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM stock_ins WHERE %s GROUP BY payment_status
	`, where)
	if err := r.scanBreakdown(ctx, paymentQuery, args, func(key string, b models.StatusBreakdown) {
		stats.ByPayment[models.PaymentStatus(key)] = b
	}); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *stockInRepository) scanBreakdown(ctx context.Context, query string, args []interface{}, set func(string, models.StatusBreakdown)) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to get statistics breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var b models.StatusBreakdown
		if err := rows.Scan(&key, &b.Count, &b.TotalAmount); err != nil {
			return fmt.Errorf("failed to scan statistics breakdown: %w", err)
		}
		set(key, b)
	}
	return rows.Err()
}

// scanner abstrae *sql.Row y *sql.Rows para escanear una fila de stock_ins
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStockIn(row scanner) (*models.StockIn, error) {
	var rec models.StockIn
	var itemsJSON []byte

	err := row.Scan(
		&rec.ID, &rec.StockInNumber, &itemsJSON, &rec.Subtotal, &rec.TaxRate,
		&rec.TaxAmount, &rec.DiscountRate, &rec.DiscountAmount, &rec.TotalAmount,
		&rec.Status, &rec.ApprovedBy, &rec.ApprovedAt, &rec.PaymentStatus,
		&rec.PaidAmount, &rec.RemainingAmount, &rec.PaymentNotes,
		&rec.SupplierName, &rec.SupplierPhone, &rec.SupplierAddress,
		&rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt, &rec.IsDeleted,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &rec.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}

	return &rec, nil
}
