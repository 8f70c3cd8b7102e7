package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/divino-bizcochito/platform/services/capacity-service/internal/capacity"
)

type SlotsHandler struct {
	allocator *capacity.Allocator
	logger    *slog.Logger
}

func NewSlotsHandler(allocator *capacity.Allocator, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{allocator: allocator, logger: logger}
}

// Get serves GET /capacity-slots?items=N. The storefront disables every date
// not present in slots and blocks checkout while superaMaximo is true.
func (h *SlotsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Absent, unparsable, or negative items means "no cart yet": pure
	// availability browsing without capacity filtering.
	items := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("items")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			items = n
		}
	}

	alloc, err := h.allocator.EligibleSlots(r.Context(), items, time.Now())
	if err != nil {
		h.logger.Error("slot allocation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "No se pudo obtener la configuración de pedidos")
		return
	}

	body, err := json.Marshal(alloc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "No se pudo obtener la configuración de pedidos")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
