package model

import "time"

// Order statuses as stored by the web app. The values are the Spanish strings
// the shared Pedido table already contains; do not translate them.
const (
	StatusReceived     = "Recibido"
	StatusInProduction = "En Producción"
	StatusReady        = "Listo"
	StatusDelivered    = "Entregado"
	StatusCancelled    = "Cancelado"
)

// OpenStatuses are the states whose orders still occupy production capacity.
var OpenStatuses = []string{StatusReceived, StatusInProduction}

type Order struct {
	ID           int64
	Status       string
	DeliveryDate *time.Time
	Total        float64
	CreatedAt    time.Time
}

// OrderLine is one item row of an order. Quantity is a pointer because the
// legacy table allows NULL.
type OrderLine struct {
	OrderID  int64
	Quantity *int
}

// IsTerminal reports whether the status can no longer change.
func IsTerminal(status string) bool {
	return status == StatusDelivered || status == StatusCancelled
}
