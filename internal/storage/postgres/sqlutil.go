package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

// rowScanner покрывает *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// nullableTime превращает нулевое время в NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func timeFromNull(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	return false
}

// withTx выполняет fn в транзакции и откатывает её при ошибке.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// placeholder добавляет значение в args и возвращает его позиционный параметр.
type placeholder func(v any) string

// lngRangeClause ограничивает lng долготами прямоугольника.
// При переходе через 180-й меридиан условие состоит из двух отрезков.
func lngRangeClause(box domain.BoundingBox, arg placeholder) string {
	ranges := box.LngRanges()
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, "lng BETWEEN "+arg(r.Min)+" AND "+arg(r.Max))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// distanceKmExpr возвращает SQL-выражение гаверсинуса от center до (lat, lng) строки.
func distanceKmExpr(center domain.GeoPoint, arg placeholder) string {
	lat := arg(center.Lat) + "::float8"
	lng := arg(center.Lng) + "::float8"
	return fmt.Sprintf(
		"(2 * %s * asin(sqrt(least(1, power(sin(radians(lat - %s) / 2), 2) + "+
			"cos(radians(%s)) * cos(radians(lat)) * power(sin(radians(lng - %s) / 2), 2)))))",
		strconv.FormatFloat(domain.EarthRadiusKm, 'f', -1, 64), lat, lat, lng,
	)
}
