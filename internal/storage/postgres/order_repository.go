package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const orderColumns = `
	id, customer_id, business_id, kind, status, currency,
	subtotal_minor, discount_minor, delivery_fee_minor, amount_minor,
	coupon_code, payment_method, payment_status,
	delivery_address, delivery_lat, delivery_lng, pickup_lat, pickup_lng,
	delivery_distance_km, delivery_partner_id, delivery_assigned_at, delivered_at,
	version, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := opContext()
	defer cancel()

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
		`,
			order.ID, order.CustomerID, order.BusinessID, string(order.Kind), string(order.Status), order.Currency,
			order.SubtotalMinor, order.DiscountMinor, order.DeliveryFeeMinor, order.AmountMinor,
			order.CouponCode, string(order.PaymentMethod), string(order.PaymentStatus),
			order.Delivery.Address, order.Delivery.Location.Lat, order.Delivery.Location.Lng,
			order.Delivery.Pickup.Lat, order.Delivery.Pickup.Lng,
			order.Delivery.DistanceKm, order.Delivery.PartnerID,
			nullableTime(order.Delivery.AssignedAt), nullableTime(order.Delivery.DeliveredAt),
			order.Version, order.CreatedAt, order.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range order.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (
					id, order_id, sku, event_id, title, qty, price_minor, created_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`,
				item.ID, order.ID, item.SKU, item.EventID, item.Title, item.Qty, item.PriceMinor, item.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("create order: %w", err)
	}
	return err
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := opContext()
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, []string{order.ID})
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items[order.ID]

	return order, nil
}

func (r *orderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	return r.list(`WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, limit, customerID)
}

func (r *orderRepository) ListByBusiness(businessID string, limit int) ([]domain.Order, error) {
	return r.list(`WHERE business_id = $1 ORDER BY created_at DESC, id DESC`, limit, businessID)
}

func (r *orderRepository) ListByStatusBefore(status domain.OrderStatus, before time.Time, limit int) ([]domain.Order, error) {
	return r.list(`WHERE status = $1 AND updated_at < $2 ORDER BY updated_at ASC, id ASC`, limit, string(status), before)
}

func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := opContext()
	defer cancel()

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $1,
			    subtotal_minor = $2,
			    discount_minor = $3,
			    delivery_fee_minor = $4,
			    amount_minor = $5,
			    coupon_code = $6,
			    payment_status = $7,
			    delivery_partner_id = $8,
			    delivery_assigned_at = $9,
			    delivered_at = $10,
			    version = version + 1,
			    updated_at = $11
			WHERE id = $12
			  AND version = $13
		`,
			string(order.Status),
			order.SubtotalMinor,
			order.DiscountMinor,
			order.DeliveryFeeMinor,
			order.AmountMinor,
			order.CouponCode,
			string(order.PaymentStatus),
			order.Delivery.PartnerID,
			nullableTime(order.Delivery.AssignedAt),
			nullableTime(order.Delivery.DeliveredAt),
			order.UpdatedAt,
			order.ID,
			order.Version,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			exists, err := rowExistsTx(ctx, tx, `SELECT 1 FROM orders WHERE id = $1`, order.ID)
			if err != nil {
				return err
			}
			if !exists {
				return domain.ErrOrderNotFound
			}
			return domain.ErrVersionConflict
		}
		return nil
	})
}

func (r *orderRepository) list(where string, limit int, args ...any) ([]domain.Order, error) {
	ctx, cancel := opContext()
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders ` + where
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// loadItems загружает позиции для пачки заказов одним запросом.
func (r *orderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, sku, event_id, title, qty, price_minor, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, created_at ASC, id ASC
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ID, &item.SKU, &item.EventID, &item.Title, &item.Qty, &item.PriceMinor, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return result, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order                         domain.Order
		kind, status, method, payment string
		assignedAt, deliveredAt       sql.NullTime
	)
	err := row.Scan(
		&order.ID, &order.CustomerID, &order.BusinessID, &kind, &status, &order.Currency,
		&order.SubtotalMinor, &order.DiscountMinor, &order.DeliveryFeeMinor, &order.AmountMinor,
		&order.CouponCode, &method, &payment,
		&order.Delivery.Address, &order.Delivery.Location.Lat, &order.Delivery.Location.Lng,
		&order.Delivery.Pickup.Lat, &order.Delivery.Pickup.Lng,
		&order.Delivery.DistanceKm, &order.Delivery.PartnerID, &assignedAt, &deliveredAt,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.Kind = domain.OrderKind(kind)
	order.Status = domain.OrderStatus(status)
	order.PaymentMethod = domain.PaymentMethod(method)
	order.PaymentStatus = domain.PaymentStatus(payment)
	order.Delivery.AssignedAt = timeFromNull(assignedAt)
	order.Delivery.DeliveredAt = timeFromNull(deliveredAt)
	return order, nil
}

func rowExistsTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check row exists: %w", err)
}

var _ domain.OrderRepository = (*orderRepository)(nil)
