package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/divino-bizcochito/platform/services/capacity-service/internal/capacity"
	"github.com/divino-bizcochito/platform/services/capacity-service/internal/model"
	"github.com/divino-bizcochito/platform/services/capacity-service/internal/outbox"
	"github.com/divino-bizcochito/platform/services/capacity-service/internal/storage"
)

type OrdersHandler struct {
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewOrdersHandler(repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

type cancelOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type cancelOrderResponse struct {
	Message string `json:"message"`
}

// Cancel marks an order cancelled so its items stop occupying delivery
// capacity, and emits an event the notification collaborator turns into the
// customer email. Cancelling an already-cancelled order replays success.
func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.OrderID <= 0 {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := h.repo.GetOrderForUpdate(ctx, tx, req.OrderID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "pedido no encontrado", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}

	if order.Status == model.StatusCancelled {
		h.writeCancelled(w)
		return
	}
	if model.IsTerminal(order.Status) {
		http.Error(w, "este pedido ya no puede cancelarse", http.StatusConflict)
		return
	}

	if err := h.repo.MarkOrderCancelled(ctx, tx, order.ID); err != nil {
		http.Error(w, "failed to cancel order", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"pedido_id":     order.ID,
		"estado":        model.StatusCancelled,
		"total":         order.Total,
		"fecha_entrega": formatOptionalDate(order.DeliveryDate),
		"cancelado_en":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "pedido",
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     "pedidos.pedido.cancelado.v1",
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	h.writeCancelled(w)
}

func (h *OrdersHandler) writeCancelled(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(cancelOrderResponse{Message: "Pedido cancelado correctamente."})
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(capacity.DateLayout)
}
