package handlers

import (
	"net/http"
	"time"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventsHandler expone el feed WebSocket de mutaciones de ingresos
type EventsHandler struct {
	hub    *events.Hub
	logger *zap.Logger
}

func NewEventsHandler(hub *events.Hub, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		logger: logger,
	}
}

// WebSocketUpgrader configuración para WebSocket
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Permitir todas las conexiones para desarrollo
	},
}

// StockInEvents maneja la conexión WebSocket del feed de eventos de ingresos.
// Cada mutación confirmada en el servidor llega como un StockInEvent; la
// consola lo reconcilia en su caché en vez de sondear.
func (h *EventsHandler) StockInEvents(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "stock_in_events"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Error actualizando a WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Info("Conexión WebSocket establecida")

	// Configurar ping/pong
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Error("Error enviando evento por WebSocket", zap.Error(err))
				return
			}
			logger.Debug("Evento enviado por WebSocket",
				zap.String("type", event.Type),
				zap.String("id", event.ID))

		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				logger.Error("Error enviando ping por WebSocket", zap.Error(err))
				return
			}

		case <-c.Request.Context().Done():
			logger.Info("Conexión WebSocket cerrada por contexto")
			return
		}
	}
}
