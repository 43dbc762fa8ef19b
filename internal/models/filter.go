package models

// StockInFilter filtros dispersos para consultas de ingresos.
//
// Los campos de texto son punteros: nil significa "sin filtrar" y el puntero a
// cadena vacía significa "filtro presente pero vacío". Las dos cosas viajan
// distinto hacia el servidor (nil se omite del query string, "" se envía) y esa
// asimetría se conserva en todo el flujo.
type StockInFilter struct {
	Search        *string `json:"search,omitempty"`
	Status        *string `json:"status,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
	Supplier      *string `json:"supplier,omitempty"`
	StartDate     *string `json:"start_date,omitempty"` // YYYY-MM-DD inclusivo
	EndDate       *string `json:"end_date,omitempty"`   // YYYY-MM-DD inclusivo

	Page  int `json:"page"` // 1-based
	Limit int `json:"limit"`
}

// Clone devuelve una copia del filtro con punteros propios
func (f StockInFilter) Clone() StockInFilter {
	c := f
	c.Search = cloneStrPtr(f.Search)
	c.Status = cloneStrPtr(f.Status)
	c.PaymentStatus = cloneStrPtr(f.PaymentStatus)
	c.Supplier = cloneStrPtr(f.Supplier)
	c.StartDate = cloneStrPtr(f.StartDate)
	c.EndDate = cloneStrPtr(f.EndDate)
	return c
}

func cloneStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Pagination ventana de paginación materializada del servidor
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ListResult página de ingresos junto con su ventana de paginación.
// Los cuatro campos se publican y consumen siempre juntos.
type ListResult struct {
	Data  []*StockIn `json:"data"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}
