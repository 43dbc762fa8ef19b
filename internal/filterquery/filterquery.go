// Package filterquery traduce el filtro disperso de ingresos a parámetros de
// request del servidor y, como alternativa, a un predicado en memoria sobre el
// conjunto completo cacheado. El match de texto es insensible a mayúsculas y a
// diacríticos vietnamitas.
package filterquery

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"
)

// claves de query compartidas con el servidor
const (
	KeySearch        = "search"
	KeyStatus        = "status"
	KeyPaymentStatus = "paymentStatus"
	KeySupplier      = "supplier"
	KeyStartDate     = "startDate"
	KeyEndDate       = "endDate"
	KeyPage          = "page"
	KeyLimit         = "limit"
)

// DateLayout formato de fecha de los filtros startDate/endDate
const DateLayout = "2006-01-02"

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold normaliza texto para comparación: minúsculas y sin marcas diacríticas
// combinantes. "Khách Hàng" y "khach hang" quedan iguales; đ/Đ se pliegan a d
// porque no son marcas combinantes y NFD no los descompone.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "đ", "d")
	return folded
}

// containsFold busca substring con plegado de diacríticos en ambos lados
func containsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// Params construye los parámetros de request a partir del filtro.
// Un campo nil se omite por completo; un campo con cadena vacía viaja con su
// clave (la asimetría nil/"" del filtro se conserva en el query string).
func Params(f models.StockInFilter) url.Values {
	values := url.Values{}

	setIfPresent(values, KeySearch, f.Search)
	setIfPresent(values, KeyStatus, f.Status)
	setIfPresent(values, KeyPaymentStatus, f.PaymentStatus)
	setIfPresent(values, KeySupplier, f.Supplier)
	setIfPresent(values, KeyStartDate, f.StartDate)
	setIfPresent(values, KeyEndDate, f.EndDate)

	if f.Page > 0 {
		values.Set(KeyPage, strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		values.Set(KeyLimit, strconv.Itoa(f.Limit))
	}
	return values
}

func setIfPresent(values url.Values, key string, field *string) {
	if field != nil {
		values.Set(key, *field)
	}
}

// ParseFilter reconstruye el filtro desde los parámetros de un request.
// Inversa de Params: clave ausente → nil, clave presente (aun vacía) → puntero.
func ParseFilter(values url.Values) models.StockInFilter {
	f := models.StockInFilter{
		Search:        getIfPresent(values, KeySearch),
		Status:        getIfPresent(values, KeyStatus),
		PaymentStatus: getIfPresent(values, KeyPaymentStatus),
		Supplier:      getIfPresent(values, KeySupplier),
		StartDate:     getIfPresent(values, KeyStartDate),
		EndDate:       getIfPresent(values, KeyEndDate),
	}
	if page, err := strconv.Atoi(values.Get(KeyPage)); err == nil && page > 0 {
		f.Page = page
	}
	if limit, err := strconv.Atoi(values.Get(KeyLimit)); err == nil && limit > 0 {
		f.Limit = limit
	}
	return f
}

func getIfPresent(values url.Values, key string) *string {
	if !values.Has(key) {
		return nil
	}
	v := values.Get(key)
	return &v
}

// Predicate devuelve un predicado en memoria equivalente al filtro, para
// filtrar el conjunto completo cacheado cuando se evita la paginación del
// servidor (export del conjunto completo, fallback offline).
func Predicate(f models.StockInFilter) func(*models.StockIn) bool {
	var startDate, endDate *time.Time
	if f.StartDate != nil && *f.StartDate != "" {
		if t, err := time.Parse(DateLayout, *f.StartDate); err == nil {
			startDate = &t
		}
	}
	if f.EndDate != nil && *f.EndDate != "" {
		if t, err := time.Parse(DateLayout, *f.EndDate); err == nil {
			// Límite inclusivo: hasta el final del día
			t = t.Add(24*time.Hour - time.Nanosecond)
			endDate = &t
		}
	}

	return func(rec *models.StockIn) bool {
		if rec.IsDeleted {
			return false
		}
		if f.Search != nil && *f.Search != "" && !matchesSearch(rec, *f.Search) {
			return false
		}
		if f.Status != nil && *f.Status != "" && string(rec.Status) != *f.Status {
			return false
		}
		if f.PaymentStatus != nil && *f.PaymentStatus != "" && string(rec.PaymentStatus) != *f.PaymentStatus {
			return false
		}
		if f.Supplier != nil && *f.Supplier != "" && !matchesSupplier(rec, *f.Supplier) {
			return false
		}
		if startDate != nil && rec.CreatedAt.Before(*startDate) {
			return false
		}
		if endDate != nil && rec.CreatedAt.After(*endDate) {
			return false
		}
		return true
	}
}

// matchesSearch busca en número de ingreso, proveedor y nombres de materiales
func matchesSearch(rec *models.StockIn, search string) bool {
	if containsFold(rec.StockInNumber, search) || containsFold(rec.SupplierName, search) {
		return true
	}
	for _, item := range rec.Items {
		if containsFold(item.MaterialName, search) || containsFold(item.Supplier, search) {
			return true
		}
	}
	return false
}

func matchesSupplier(rec *models.StockIn, supplier string) bool {
	if containsFold(rec.SupplierName, supplier) {
		return true
	}
	for _, item := range rec.Items {
		if containsFold(item.Supplier, supplier) {
			return true
		}
	}
	return false
}

// Suppliers devuelve los proveedores distintos no vacíos observados en los
// registros cacheados, ordenados. Derivado, nunca consultado aparte.
func Suppliers(records []*models.StockIn) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.SupplierName != "" {
			seen[rec.SupplierName] = struct{}{}
		}
		for _, item := range rec.Items {
			if item.Supplier != "" {
				seen[item.Supplier] = struct{}{}
			}
		}
	}
	suppliers := make([]string, 0, len(seen))
	for s := range seen {
		suppliers = append(suppliers, s)
	}
	sort.Strings(suppliers)
	return suppliers
}
