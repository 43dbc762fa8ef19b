// Package events implementa el feed de eventos de ingresos: cada mutación
// confirmada se publica a las consolas conectadas por WebSocket para que
// reconcilien su caché sin sondear.
package events

import (
	"sync"
	"time"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"

	"go.uber.org/zap"
)

const subscriberBuffer = 16

// Hub reparte eventos de ingresos a los suscriptores conectados
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan models.StockInEvent]struct{}
	logger      *zap.Logger
}

// NewHub crea un hub de eventos vacío
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[chan models.StockInEvent]struct{}),
		logger:      logger,
	}
}

// Subscribe registra un suscriptor y devuelve su canal de eventos
func (h *Hub) Subscribe() chan models.StockInEvent {
	ch := make(chan models.StockInEvent, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe retira un suscriptor y cierra su canal
func (h *Hub) Unsubscribe(ch chan models.StockInEvent) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish reparte un evento a todos los suscriptores. El envío nunca bloquea:
// un suscriptor con el buffer lleno pierde el evento y deberá recargar.
func (h *Hub) Publish(eventType, id string, record *models.StockIn) {
	event := models.StockInEvent{
		Type:      eventType,
		ID:        id,
		Record:    record,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Warn("Event dropped for slow subscriber",
				zap.String("type", eventType),
				zap.String("id", id))
		}
	}
}

// Subscribers cantidad de suscriptores conectados
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
