package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/config"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"
)

func validRecord() *models.StockIn {
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
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
}

func newTestClient(t *testing.T, handler http.Handler) (StockInClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cl := NewStockInClient(config.ClientConfig{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, "test-token", zap.NewNop())
	return cl, server
}

func TestListSendsFilterAndBearerToken(t *testing.T) {
	var gotQuery map[string][]string
	var gotAuth string

	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stock-in", r.URL.Path)
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")

		json.NewEncoder(w).Encode(models.StockInListResponse{
			Success: true,
			Message: "ok",
			Data:    []*models.StockIn{validRecord()},
			Total:   1,
			Page:    2,
			Limit:   20,
		})
	}))

	search := "gạch"
	empty := ""
	result, err := cl.List(context.Background(), models.StockInFilter{
		Search:   &search,
		Supplier: &empty,
		Page:     2,
		Limit:    20,
	})
	require.NoError(t, err)

	require.Equal(t, "Bearer test-token", gotAuth)
	require.Equal(t, []string{"gạch"}, gotQuery["search"])
	// Cadena vacía explícita viaja con su clave; claves no fijadas se omiten
	require.Contains(t, gotQuery, "supplier")
	require.NotContains(t, gotQuery, "status")
	require.Equal(t, []string{"2"}, gotQuery["page"])

	require.Len(t, result.Data, 1)
	require.Equal(t, 1, result.Total)
	require.Equal(t, 2, result.Page)
	require.Equal(t, 20, result.Limit)
}

func TestListRejectsInconsistentRecord(t *testing.T) {
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		broken := validRecord()
		broken.RemainingAmount = 9999
		json.NewEncoder(w).Encode(models.StockInListResponse{
			Success: true,
			Data:    []*models.StockIn{broken},
			Total:   1,
			Page:    1,
			Limit:   10,
		})
	}))

	_, err := cl.List(context.Background(), models.StockInFilter{Page: 1, Limit: 10})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid stock-in")
}

func TestGetByIDMapsErrorEnvelope(t *testing.T) {
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(models.ErrorResponse{
			Success: false,
			Message: "Stock-in not found",
			Error:   "stock-in not found",
		})
	}))

	_, err := cl.GetByID(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, "stock-in not found", apiErr.Message)
}

func TestCreatePostsBody(t *testing.T) {
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.CreateStockInRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 1)
		require.Equal(t, "Công ty ABC", req.SupplierName)

		json.NewEncoder(w).Encode(models.StockInResponse{
			Success: true,
			Data:    validRecord(),
		})
	}))

	rec, err := cl.Create(context.Background(), &models.CreateStockInRequest{
		Items: []models.StockInItemRequest{
			{MaterialID: "m-1", MaterialName: "Xi măng", Quantity: 2, UnitPrice: 110, Unit: "bao"},
		},
		SupplierName: "Công ty ABC",
	})
	require.NoError(t, err)
	require.Equal(t, "si-1", rec.ID)
}

func TestCreateRejectsEmptyItemsLocally(t *testing.T) {
	called := false
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	_, err := cl.Create(context.Background(), &models.CreateStockInRequest{SupplierName: "X"})
	require.Error(t, err)
	require.False(t, called)
}

func TestSetPaymentHitsPaymentStatusRoute(t *testing.T) {
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/stock-in/si-1/payment-status", r.URL.Path)

		var req models.UpdatePaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, models.PaymentPartial, req.PaymentStatus)
		require.Equal(t, int64(100), req.PaidAmount)

		rec := validRecord()
		rec.PaidAmount = 100
		rec.RemainingAmount = 120
		rec.PaymentStatus = models.PaymentPartial
		json.NewEncoder(w).Encode(models.StockInResponse{Success: true, Data: rec})
	}))

	rec, err := cl.SetPayment(context.Background(), "si-1", &models.UpdatePaymentRequest{
		PaymentStatus: models.PaymentPartial,
		PaidAmount:    100,
	})
	require.NoError(t, err)
	require.Equal(t, models.PaymentPartial, rec.PaymentStatus)
}

func TestRemoveReturnsConfirmedID(t *testing.T) {
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/stock-in/si-1", r.URL.Path)
		json.NewEncoder(w).Encode(models.DeleteResponse{Success: true, ID: "si-1"})
	}))

	id, err := cl.Remove(context.Background(), "si-1")
	require.NoError(t, err)
	require.Equal(t, "si-1", id)
}

func TestStatisticsSendsDateRange(t *testing.T) {
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stock-in/stats", r.URL.Path)
		require.Equal(t, "2026-01-01", r.URL.Query().Get("startDate"))
		require.Equal(t, "2026-01-31", r.URL.Query().Get("endDate"))

		json.NewEncoder(w).Encode(models.StatisticsResponse{
			Success: true,
			Data: &models.Statistics{
				TotalRecords: 3,
				TotalAmount:  660,
			},
		})
	}))

	stats, err := cl.Statistics(context.Background(), "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalRecords)
	require.Equal(t, int64(660), stats.TotalAmount)
}

func TestDoRejectsUnknownFields(t *testing.T) {
	cl, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":null,"id":"si-1","unexpected_field":1}`))
	}))

	_, err := cl.Remove(context.Background(), "si-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode")
}
