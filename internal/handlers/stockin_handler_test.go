package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/lifecycle"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/services"
)

// stubStockInService implementación configurable de services.StockInService
type stubStockInService struct {
	listFn          func(filter models.StockInFilter) (*models.ListResult, error)
	getFn           func(id string) (*models.StockIn, error)
	createFn        func(req *models.CreateStockInRequest) (*models.StockIn, error)
	updateFn        func(id string, req *models.UpdateStockInRequest) (*models.StockIn, error)
	updateStatusFn  func(id string, req *models.UpdateStatusRequest) (*models.StockIn, error)
	updatePaymentFn func(id string, req *models.UpdatePaymentRequest) (*models.StockIn, error)
	deleteFn        func(id string) error
}

func (s *stubStockInService) ListStockIns(ctx context.Context, filter models.StockInFilter) (*models.ListResult, error) {
	return s.listFn(filter)
}

func (s *stubStockInService) GetStockIn(ctx context.Context, id string) (*models.StockIn, error) {
	return s.getFn(id)
}

func (s *stubStockInService) GetStatistics(ctx context.Context, startDate, endDate *time.Time) (*models.Statistics, error) {
	return &models.Statistics{}, nil
}

func (s *stubStockInService) GetSuppliers(ctx context.Context) ([]string, error) {
	return []string{"Công ty ABC"}, nil
}

func (s *stubStockInService) CreateStockIn(ctx context.Context, req *models.CreateStockInRequest) (*models.StockIn, error) {
	return s.createFn(req)
}

func (s *stubStockInService) UpdateStockIn(ctx context.Context, id string, req *models.UpdateStockInRequest) (*models.StockIn, error) {
	return s.updateFn(id, req)
}

func (s *stubStockInService) UpdateStatus(ctx context.Context, id string, req *models.UpdateStatusRequest) (*models.StockIn, error) {
	return s.updateStatusFn(id, req)
}

func (s *stubStockInService) UpdatePayment(ctx context.Context, id string, req *models.UpdatePaymentRequest) (*models.StockIn, error) {
	return s.updatePaymentFn(id, req)
}

func (s *stubStockInService) DeleteStockIn(ctx context.Context, id string) error {
	return s.deleteFn(id)
}

func sampleRecord() *models.StockIn {
	return &models.StockIn{
		ID:            "si-1",
		StockInNumber: "SI-2026-0001",
		Items: []models.StockInItem{
			{MaterialID: "m-1", MaterialName: "Xi măng", Quantity: 2, UnitPrice: 110, TotalPrice: 220, Unit: "bao"},
		},
		Subtotal:        220,
		TotalAmount:     220,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentUnpaid,
		RemainingAmount: 220,
		SupplierName:    "Công ty ABC",
		CreatedBy:       "admin",
	}
}

func newTestRouter(svc services.StockInService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewStockInHandler(svc, zap.NewNop())

	router := gin.New()
	group := router.Group("/api/v1/stock-in")
	group.GET("", handler.ListStockIns)
	group.POST("", handler.CreateStockIn)
	group.GET("/stats", handler.GetStatistics)
	group.GET("/suppliers", handler.GetSuppliers)
	group.GET("/:id", handler.GetStockIn)
	group.PUT("/:id", handler.UpdateStockIn)
	group.DELETE("/:id", handler.DeleteStockIn)
	group.PUT("/:id/status", handler.UpdateStatus)
	group.PUT("/:id/payment-status", handler.UpdatePayment)
	return router
}

func perform(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListStockInsParsesFilter(t *testing.T) {
	var gotFilter models.StockInFilter
	svc := &stubStockInService{
		listFn: func(filter models.StockInFilter) (*models.ListResult, error) {
			gotFilter = filter
			return &models.ListResult{
				Data:  []*models.StockIn{sampleRecord()},
				Total: 1,
				Page:  filter.Page,
				Limit: filter.Limit,
			}, nil
		},
	}
	router := newTestRouter(svc)

	w := perform(router, http.MethodGet, "/api/v1/stock-in?search=xi+m%C4%83ng&status=pending&page=2&limit=20", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, gotFilter.Search)
	require.Equal(t, "xi măng", *gotFilter.Search)
	require.NotNil(t, gotFilter.Status)
	require.Equal(t, "pending", *gotFilter.Status)
	require.Nil(t, gotFilter.Supplier)
	require.Equal(t, 2, gotFilter.Page)
	require.Equal(t, 20, gotFilter.Limit)

	var resp models.StockInListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	require.Equal(t, 1, resp.Total)
}

func TestGetStockInNotFound(t *testing.T) {
	svc := &stubStockInService{
		getFn: func(id string) (*models.StockIn, error) {
			return nil, services.ErrNotFound
		},
	}
	router := newTestRouter(svc)

	w := perform(router, http.MethodGet, "/api/v1/stock-in/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
}

func TestCreateStockInValidation(t *testing.T) {
	svc := &stubStockInService{
		createFn: func(req *models.CreateStockInRequest) (*models.StockIn, error) {
			return sampleRecord(), nil
		},
	}
	router := newTestRouter(svc)

	// Sin items: rechazado por el validador antes de llegar al service
	w := perform(router, http.MethodPost, "/api/v1/stock-in", models.CreateStockInRequest{
		SupplierName: "Công ty ABC",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Cantidad cero en una línea
	w = perform(router, http.MethodPost, "/api/v1/stock-in", models.CreateStockInRequest{
		Items: []models.StockInItemRequest{
			{MaterialID: "m-1", MaterialName: "Xi măng", Quantity: 0, UnitPrice: 100, Unit: "bao"},
		},
		SupplierName: "Công ty ABC",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Request válido
	w = perform(router, http.MethodPost, "/api/v1/stock-in", models.CreateStockInRequest{
		Items: []models.StockInItemRequest{
			{MaterialID: "m-1", MaterialName: "Xi măng", Quantity: 2, UnitPrice: 110, Unit: "bao"},
		},
		SupplierName: "Công ty ABC",
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestUpdateStockInRejectsEmptyBody(t *testing.T) {
	svc := &stubStockInService{
		updateFn: func(id string, req *models.UpdateStockInRequest) (*models.StockIn, error) {
			t.Fatal("service should not be reached")
			return nil, nil
		},
	}
	router := newTestRouter(svc)

	w := perform(router, http.MethodPut, "/api/v1/stock-in/si-1", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "no fields to apply")
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	svc := &stubStockInService{
		updateStatusFn: func(id string, req *models.UpdateStatusRequest) (*models.StockIn, error) {
			t.Fatal("service should not be reached")
			return nil, nil
		},
	}
	router := newTestRouter(svc)

	w := perform(router, http.MethodPut, "/api/v1/stock-in/si-1/status", map[string]string{
		"status": "archived",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePaymentConflictMapping(t *testing.T) {
	svc := &stubStockInService{
		updatePaymentFn: func(id string, req *models.UpdatePaymentRequest) (*models.StockIn, error) {
			return nil, lifecycle.ErrRecordPaid
		},
	}
	router := newTestRouter(svc)

	w := perform(router, http.MethodPut, "/api/v1/stock-in/si-1/payment-status", models.UpdatePaymentRequest{
		PaymentStatus: models.PaymentPaid,
		PaidAmount:    220,
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdatePaymentBadRequestMapping(t *testing.T) {
	svc := &stubStockInService{
		updatePaymentFn: func(id string, req *models.UpdatePaymentRequest) (*models.StockIn, error) {
			return nil, lifecycle.ErrOverpayment
		},
	}
	router := newTestRouter(svc)

	w := perform(router, http.MethodPut, "/api/v1/stock-in/si-1/payment-status", models.UpdatePaymentRequest{
		PaymentStatus: models.PaymentPaid,
		PaidAmount:    500,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteStockInConflict(t *testing.T) {
	svc := &stubStockInService{
		deleteFn: func(id string) error {
			return lifecycle.ErrRecordApproved
		},
	}
	router := newTestRouter(svc)

	w := perform(router, http.MethodDelete, "/api/v1/stock-in/si-1", nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteStockInReturnsID(t *testing.T) {
	svc := &stubStockInService{
		deleteFn: func(id string) error { return nil },
	}
	router := newTestRouter(svc)

	w := perform(router, http.MethodDelete, "/api/v1/stock-in/si-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.DeleteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "si-1", resp.ID)
}

func TestGetStatisticsRejectsBadDate(t *testing.T) {
	svc := &stubStockInService{}
	router := newTestRouter(svc)

	w := perform(router, http.MethodGet, "/api/v1/stock-in/stats?startDate=31-01-2026", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
