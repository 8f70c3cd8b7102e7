// Package storage adapts the platform's shared Postgres schema (the quoted
// camelCase tables the web app created through Supabase) to the capacity
// service's store interfaces.
package storage

import (
	"context"
	"errors"

	"github.com/divino-bizcochito/platform/libs/db"
	"github.com/divino-bizcochito/platform/services/capacity-service/internal/capacity"
	"github.com/divino-bizcochito/platform/services/capacity-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// ReadConfig returns the single production-configuration row. found=false
// when the table is empty; per-field NULLs stay nil so the provider can
// substitute defaults field by field.
func (r *Repository) ReadConfig(ctx context.Context) (capacity.ConfigRow, bool, error) {
	var row capacity.ConfigRow
	err := r.pool.QueryRow(ctx, `
		SELECT "capacidadDiaria",
			"maxProductosPorPedido",
			"leadTimeMinimoDias",
			COALESCE("diasBloqueados", '{}')
		FROM "ConfiguracionProduccion"
		LIMIT 1
	`).Scan(&row.DailyCapacity, &row.MaxItemsPerOrder, &row.MinLeadTimeDays, &row.BlockedDates)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return capacity.ConfigRow{}, false, nil
		}
		return capacity.ConfigRow{}, false, err
	}
	return row, true, nil
}

func (r *Repository) ListOpenOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, estado, "fechaEntrega", COALESCE(total, 0), "fechaCreacion"
		FROM "Pedido"
		WHERE estado = ANY($1)
	`, model.OpenStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.Status, &o.DeliveryDate, &o.Total, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return orders, nil
}

func (r *Repository) ListOrderLines(ctx context.Context, orderIDs []int64) ([]model.OrderLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT "pedidoId", cantidad
		FROM "DetallePedido"
		WHERE "pedidoId" = ANY($1)
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []model.OrderLine
	for rows.Next() {
		var line model.OrderLine
		if err := rows.Scan(&line.OrderID, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return lines, nil
}

// CheckCapacity calls the store-side function that reads current committed
// load and compares it against capacity in one step, serialized per date.
// Checkout's order insert runs the same function, so the answer here holds
// under concurrent writers.
func (r *Repository) CheckCapacity(ctx context.Context, date string, quantity int) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT verificar_cupo_disponible($1::date, $2)`, date, quantity).Scan(&ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Repository) GetOrderForUpdate(ctx context.Context, tx pgx.Tx, orderID int64) (model.Order, error) {
	var o model.Order
	err := tx.QueryRow(ctx, `
		SELECT id, estado, "fechaEntrega", COALESCE(total, 0), "fechaCreacion"
		FROM "Pedido"
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&o.ID, &o.Status, &o.DeliveryDate, &o.Total, &o.CreatedAt)
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *Repository) MarkOrderCancelled(ctx context.Context, tx pgx.Tx, orderID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE "Pedido"
		SET estado = $2
		WHERE id = $1
	`, orderID, model.StatusCancelled)
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
