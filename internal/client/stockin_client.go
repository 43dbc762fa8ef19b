// Package client implementa el cliente HTTP tipado del recurso stock-in que
// consume la consola web. Deserializa estricto (parse, don't trust), nunca
// reintenta y nunca toca el caché del store: los fallos se devuelven tal cual
// al llamador.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/config"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/filterquery"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/lifecycle"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"

	"go.uber.org/zap"
)

// APIError error reportado por el servidor (validación o transporte no-2xx)
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// StockInClient define las operaciones tipadas contra el recurso stock-in
type StockInClient interface {
	List(ctx context.Context, filter models.StockInFilter) (*models.ListResult, error)
	GetByID(ctx context.Context, id string) (*models.StockIn, error)
	Create(ctx context.Context, req *models.CreateStockInRequest) (*models.StockIn, error)
	Update(ctx context.Context, id string, req *models.UpdateStockInRequest) (*models.StockIn, error)
	SetStatus(ctx context.Context, id string, status models.StockInStatus) (*models.StockIn, error)
	SetPayment(ctx context.Context, id string, req *models.UpdatePaymentRequest) (*models.StockIn, error)
	Remove(ctx context.Context, id string) (string, error)
	Statistics(ctx context.Context, startDate, endDate string) (*models.Statistics, error)
}

// stockInClient implementa StockInClient sobre net/http
type stockInClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewStockInClient crea un cliente para la URL base dada. El token bearer lo
// provee el colaborador de autenticación; este cliente solo lo adjunta.
func NewStockInClient(cfg config.ClientConfig, token string, logger *zap.Logger) StockInClient {
	return &stockInClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// List obtiene una página filtrada. Idempotente y sin efectos en el servidor.
func (c *stockInClient) List(ctx context.Context, filter models.StockInFilter) (*models.ListResult, error) {
	var resp models.StockInListResponse
	if err := c.do(ctx, http.MethodGet, "/stock-in", filterquery.Params(filter), nil, &resp); err != nil {
		return nil, err
	}

	for _, rec := range resp.Data {
		if err := lifecycle.Verify(rec); err != nil {
			return nil, fmt.Errorf("invalid stock-in %s in list response: %w", rec.ID, err)
		}
	}

	return &models.ListResult{
		Data:  resp.Data,
		Total: resp.Total,
		Page:  resp.Page,
		Limit: resp.Limit,
	}, nil
}

// GetByID obtiene un ingreso por id
func (c *stockInClient) GetByID(ctx context.Context, id string) (*models.StockIn, error) {
	var resp models.StockInResponse
	if err := c.do(ctx, http.MethodGet, "/stock-in/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return c.verified(resp.Data)
}

// Create persiste un ingreso nuevo
func (c *stockInClient) Create(ctx context.Context, req *models.CreateStockInRequest) (*models.StockIn, error) {
	if len(req.Items) == 0 {
		return nil, lifecycle.ErrEmptyItems
	}
	var resp models.StockInResponse
	if err := c.do(ctx, http.MethodPost, "/stock-in", nil, req, &resp); err != nil {
		return nil, err
	}
	return c.verified(resp.Data)
}

// Update aplica una actualización parcial
func (c *stockInClient) Update(ctx context.Context, id string, req *models.UpdateStockInRequest) (*models.StockIn, error) {
	var resp models.StockInResponse
	if err := c.do(ctx, http.MethodPut, "/stock-in/"+url.PathEscape(id), nil, req, &resp); err != nil {
		return nil, err
	}
	return c.verified(resp.Data)
}

// SetStatus cambia el estado de aprobación
func (c *stockInClient) SetStatus(ctx context.Context, id string, status models.StockInStatus) (*models.StockIn, error) {
	var resp models.StockInResponse
	body := models.UpdateStatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPut, "/stock-in/"+url.PathEscape(id)+"/status", nil, body, &resp); err != nil {
		return nil, err
	}
	return c.verified(resp.Data)
}

// SetPayment registra el estado de pago acumulado
func (c *stockInClient) SetPayment(ctx context.Context, id string, req *models.UpdatePaymentRequest) (*models.StockIn, error) {
	var resp models.StockInResponse
	if err := c.do(ctx, http.MethodPut, "/stock-in/"+url.PathEscape(id)+"/payment-status", nil, req, &resp); err != nil {
		return nil, err
	}
	return c.verified(resp.Data)
}

// Remove elimina un ingreso y devuelve el id confirmado
func (c *stockInClient) Remove(ctx context.Context, id string) (string, error) {
	var resp models.DeleteResponse
	if err := c.do(ctx, http.MethodDelete, "/stock-in/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Statistics obtiene agregados para un rango de fechas opcional
func (c *stockInClient) Statistics(ctx context.Context, startDate, endDate string) (*models.Statistics, error) {
	query := url.Values{}
	if startDate != "" {
		query.Set(filterquery.KeyStartDate, startDate)
	}
	if endDate != "" {
		query.Set(filterquery.KeyEndDate, endDate)
	}

	var resp models.StatisticsResponse
	if err := c.do(ctx, http.MethodGet, "/stock-in/stats", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// verified valida los invariantes del registro devuelto por el servidor
func (c *stockInClient) verified(rec *models.StockIn) (*models.StockIn, error) {
	if rec == nil {
		return nil, fmt.Errorf("server returned empty stock-in payload")
	}
	if err := lifecycle.Verify(rec); err != nil {
		return nil, fmt.Errorf("invalid stock-in %s in response: %w", rec.ID, err)
	}
	return rec, nil
}

// do ejecuta un request con bearer token y deserialización estricta
func (c *stockInClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp.StatusCode, data)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// apiError extrae el mensaje del cuerpo de error estándar del servidor
func (c *stockInClient) apiError(statusCode int, data []byte) error {
	var envelope models.ErrorResponse
	message := http.StatusText(statusCode)
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Error != "" {
			message = envelope.Error
		} else if envelope.Message != "" {
			message = envelope.Message
		}
	}

	c.logger.Warn("API request failed",
		zap.Int("status_code", statusCode),
		zap.String("message", message))

	return &APIError{StatusCode: statusCode, Message: message}
}
