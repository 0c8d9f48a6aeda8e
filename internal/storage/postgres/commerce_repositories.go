package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

type couponRepository struct {
	db *sql.DB
}

// NewCouponRepository создаёт PostgreSQL-реализацию CouponRepository.
func NewCouponRepository(store *Store) domain.CouponRepository {
	return &couponRepository{db: store.DB()}
}

func (r *couponRepository) Create(coupon domain.Coupon) error {
	ctx, cancel := opContext()
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coupons (
			business_id, code, kind, value, min_subtotal_minor, max_discount_minor,
			valid_from, valid_until, usage_limit, used_count, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		coupon.BusinessID, domain.NormalizeCouponCode(coupon.Code), string(coupon.Kind), coupon.Value,
		coupon.MinSubtotalMinor, coupon.MaxDiscountMinor,
		nullableTime(coupon.ValidFrom), nullableTime(coupon.ValidUntil),
		coupon.UsageLimit, coupon.UsedCount, coupon.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (r *couponRepository) Get(businessID, code string) (domain.Coupon, error) {
	ctx, cancel := opContext()
	defer cancel()

	var (
		coupon             domain.Coupon
		kind               string
		validFrom, validTo sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT business_id, code, kind, value, min_subtotal_minor, max_discount_minor,
		       valid_from, valid_until, usage_limit, used_count, created_at
		FROM coupons
		WHERE business_id = $1 AND code = $2
	`, businessID, domain.NormalizeCouponCode(code)).Scan(
		&coupon.BusinessID, &coupon.Code, &kind, &coupon.Value, &coupon.MinSubtotalMinor, &coupon.MaxDiscountMinor,
		&validFrom, &validTo, &coupon.UsageLimit, &coupon.UsedCount, &coupon.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Coupon{}, domain.ErrCouponNotFound
		}
		return domain.Coupon{}, fmt.Errorf("select coupon: %w", err)
	}
	coupon.Kind = domain.CouponKind(kind)
	coupon.ValidFrom = timeFromNull(validFrom)
	coupon.ValidUntil = timeFromNull(validTo)
	return coupon, nil
}

// Redeem увеличивает счётчик одним условным UPDATE, лимит не может быть превышен конкурентно.
func (r *couponRepository) Redeem(businessID, code string) error {
	ctx, cancel := opContext()
	defer cancel()

	code = domain.NormalizeCouponCode(code)
	res, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE business_id = $1 AND code = $2
		  AND (usage_limit = 0 OR used_count < usage_limit)
	`, businessID, code)
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return nil
	}

	if _, err := r.Get(businessID, code); err != nil {
		return err
	}
	return domain.ErrCouponExhausted
}

func (r *couponRepository) Release(businessID, code string) error {
	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET used_count = GREATEST(used_count - 1, 0)
		WHERE business_id = $1 AND code = $2
	`, businessID, domain.NormalizeCouponCode(code))
	if err != nil {
		return fmt.Errorf("release coupon: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{db: store.DB()}
}

func (r *paymentRepository) Upsert(payment domain.Payment) error {
	ctx, cancel := opContext()
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (
			id, order_id, provider, method, external_id, status, amount_minor, currency, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (order_id) DO UPDATE
		SET provider = EXCLUDED.provider,
		    method = EXCLUDED.method,
		    external_id = EXCLUDED.external_id,
		    status = EXCLUDED.status,
		    amount_minor = EXCLUDED.amount_minor,
		    currency = EXCLUDED.currency,
		    updated_at = EXCLUDED.updated_at
	`,
		payment.ID, payment.OrderID, payment.Provider, string(payment.Method), payment.ExternalID,
		string(payment.Status), payment.AmountMinor, payment.Currency, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByOrder(orderID string) (domain.Payment, error) {
	ctx, cancel := opContext()
	defer cancel()

	var (
		payment        domain.Payment
		method, status string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, provider, method, external_id, status, amount_minor, currency, created_at, updated_at
		FROM payments
		WHERE order_id = $1
	`, orderID).Scan(
		&payment.ID, &payment.OrderID, &payment.Provider, &method, &payment.ExternalID,
		&status, &payment.AmountMinor, &payment.Currency, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("select payment: %w", err)
	}
	payment.Method = domain.PaymentMethod(method)
	payment.Status = domain.PaymentStatus(status)
	return payment, nil
}

type businessRepository struct {
	db *sql.DB
}

// NewBusinessRepository создаёт PostgreSQL-реализацию BusinessRepository.
func NewBusinessRepository(store *Store) domain.BusinessRepository {
	return &businessRepository{db: store.DB()}
}

func (r *businessRepository) Upsert(business domain.Business) error {
	ctx, cancel := opContext()
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO businesses (id, owner_id, name, address, lat, lng, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
		    name = EXCLUDED.name,
		    address = EXCLUDED.address,
		    lat = EXCLUDED.lat,
		    lng = EXCLUDED.lng,
		    updated_at = EXCLUDED.updated_at
	`,
		business.ID, business.OwnerID, business.Name, business.Address,
		business.Location.Lat, business.Location.Lng, business.CreatedAt, business.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert business: %w", err)
	}
	return nil
}

func (r *businessRepository) Get(id string) (domain.Business, error) {
	ctx, cancel := opContext()
	defer cancel()

	var business domain.Business
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, address, lat, lng, created_at, updated_at
		FROM businesses
		WHERE id = $1
	`, id).Scan(
		&business.ID, &business.OwnerID, &business.Name, &business.Address,
		&business.Location.Lat, &business.Location.Lng, &business.CreatedAt, &business.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Business{}, domain.ErrBusinessNotFound
		}
		return domain.Business{}, fmt.Errorf("select business: %w", err)
	}
	return business, nil
}

type partnerRepository struct {
	db *sql.DB
}

// NewPartnerRepository создаёт PostgreSQL-реализацию PartnerRepository.
func NewPartnerRepository(store *Store) domain.PartnerRepository {
	return &partnerRepository{db: store.DB()}
}

// Upsert обновляет профиль и позицию курьера, счётчик активных заказов сохраняется.
func (r *partnerRepository) Upsert(partner domain.DeliveryPartner) error {
	ctx, cancel := opContext()
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_partners (id, name, lat, lng, available, active_orders, last_seen_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    lat = EXCLUDED.lat,
		    lng = EXCLUDED.lng,
		    available = EXCLUDED.available,
		    last_seen_at = EXCLUDED.last_seen_at,
		    updated_at = EXCLUDED.updated_at
	`,
		partner.ID, partner.Name, partner.Location.Lat, partner.Location.Lng, partner.Available,
		partner.ActiveOrders, nullableTime(partner.LastSeenAt), partner.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert delivery partner: %w", err)
	}
	return nil
}

func (r *partnerRepository) Get(id string) (domain.DeliveryPartner, error) {
	ctx, cancel := opContext()
	defer cancel()

	partner, err := scanPartner(r.db.QueryRowContext(ctx, `
		SELECT id, name, lat, lng, available, active_orders, last_seen_at, updated_at
		FROM delivery_partners
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DeliveryPartner{}, domain.ErrPartnerNotFound
		}
		return domain.DeliveryPartner{}, fmt.Errorf("select delivery partner: %w", err)
	}
	return partner, nil
}

func (r *partnerRepository) ListAvailable(box domain.BoundingBox) ([]domain.DeliveryPartner, error) {
	ctx, cancel := opContext()
	defer cancel()

	args := []any{box.MinLat, box.MaxLat}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, lat, lng, available, active_orders, last_seen_at, updated_at
		FROM delivery_partners
		WHERE available
		  AND lat BETWEEN $1 AND $2
		  AND `+lngRangeClause(box, arg)+`
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list available partners: %w", err)
	}
	defer rows.Close()

	partners := make([]domain.DeliveryPartner, 0)
	for rows.Next() {
		partner, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery partner: %w", err)
		}
		partners = append(partners, partner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery partners: %w", err)
	}
	return partners, nil
}

func (r *partnerRepository) AdjustActiveOrders(id string, delta int32) error {
	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE delivery_partners
		SET active_orders = GREATEST(active_orders + $2, 0)
		WHERE id = $1
	`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust partner active orders: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrPartnerNotFound
	}
	return nil
}

func scanPartner(row rowScanner) (domain.DeliveryPartner, error) {
	var (
		partner  domain.DeliveryPartner
		lastSeen sql.NullTime
	)
	if err := row.Scan(
		&partner.ID, &partner.Name, &partner.Location.Lat, &partner.Location.Lng,
		&partner.Available, &partner.ActiveOrders, &lastSeen, &partner.UpdatedAt,
	); err != nil {
		return domain.DeliveryPartner{}, err
	}
	partner.LastSeenAt = timeFromNull(lastSeen)
	return partner, nil
}

var (
	_ domain.CouponRepository   = (*couponRepository)(nil)
	_ domain.PaymentRepository  = (*paymentRepository)(nil)
	_ domain.BusinessRepository = (*businessRepository)(nil)
	_ domain.PartnerRepository  = (*partnerRepository)(nil)
)
