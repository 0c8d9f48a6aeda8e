package postgres

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewStoreFromDB(db), mock
}

// textArrayConverter пропускает []string так, как их передаёт драйвер pgx.
type textArrayConverter struct{}

func (textArrayConverter) ConvertValue(v any) (driver.Value, error) {
	if arr, ok := v.([]string); ok {
		return arr, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

// floatBetween совпадает с аргументом float64 из отрезка [lo, hi].
type floatBetween struct{ lo, hi float64 }

func (f floatBetween) Match(v driver.Value) bool {
	x, ok := v.(float64)
	return ok && x >= f.lo && x <= f.hi
}

var eventCols = []string{
	"id", "organizer_id", "business_id", "title", "description", "category",
	"starts_at", "ends_at", "address", "lat", "lng",
	"capacity", "seats_reserved", "seats_taken", "price_minor", "currency",
	"status", "version", "created_at", "updated_at",
}

func TestCouponRepository_RedeemDistinguishesExhaustedAndMissing(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewCouponRepository(store)

	couponCols := []string{
		"business_id", "code", "kind", "value", "min_subtotal_minor", "max_discount_minor",
		"valid_from", "valid_until", "usage_limit", "used_count", "created_at",
	}

	mock.ExpectExec("UPDATE coupons").
		WithArgs("biz-1", "SALE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT business_id, code").
		WithArgs("biz-1", "SALE").
		WillReturnRows(sqlmock.NewRows(couponCols).
			AddRow("biz-1", "SALE", "flat", 500, 0, 0, nil, nil, 1, 1, time.Now()))

	require.ErrorIs(t, repo.Redeem("biz-1", " sale "), domain.ErrCouponExhausted)

	mock.ExpectExec("UPDATE coupons").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT business_id, code").WillReturnRows(sqlmock.NewRows(couponCols))

	require.ErrorIs(t, repo.Redeem("biz-1", "GHOST"), domain.ErrCouponNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_SaveReportsConflictAndMissing(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewOrderRepository(store)

	order := domain.Order{ID: "order-1", Status: domain.OrderStatusPaid, Version: 3, UpdatedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM orders").
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectRollback()

	require.ErrorIs(t, repo.Save(order), domain.ErrVersionConflict)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM orders").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	require.ErrorIs(t, repo.Save(order), domain.ErrOrderNotFound)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(order))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_AppendMessageUsesReturnedSequence(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewChatRepository(store)

	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE chats").
		WithArgs("chat-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"last_seq"}).AddRow(7))
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs("chat-1", int64(7), sqlmock.AnyArg(), "alice", "hello", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg, err := repo.AppendMessage(domain.Message{ChatID: "chat-1", SenderID: "alice", Body: "hello", CreatedAt: now})
	require.NoError(t, err)
	require.EqualValues(t, 7, msg.Seq)
	require.NotEmpty(t, msg.ID)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE chats").WillReturnRows(sqlmock.NewRows([]string{"last_seq"}))
	mock.ExpectRollback()

	_, err = repo.AppendMessage(domain.Message{ChatID: "missing", SenderID: "alice", Body: "hello", CreatedAt: now})
	require.ErrorIs(t, err, domain.ErrChatNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_ReserveSeatsExplainsRejection(t *testing.T) {
	store, mock := newMockStore(t)
	events := NewEventStore(store)

	now := time.Now().UTC()
	row := func(status domain.EventStatus, startsAt time.Time) *sqlmock.Rows {
		return sqlmock.NewRows(eventCols).AddRow(
			"event-1", "org", "", "Gig", "", "music",
			startsAt, startsAt.Add(time.Hour), "", 1.0, 1.0,
			10, 4, 6, 100, "INR",
			string(status), 2, now, now,
		)
	}

	cases := []struct {
		name string
		rows *sqlmock.Rows
		want error
	}{
		{name: "canceled", rows: row(domain.EventStatusCanceled, now.Add(time.Hour)), want: domain.ErrEventNotOpen},
		{name: "already started", rows: row(domain.EventStatusPublished, now.Add(-time.Minute)), want: domain.ErrEventNotOpen},
		{name: "sold out", rows: row(domain.EventStatusPublished, now.Add(time.Hour)), want: domain.ErrSeatsUnavailable},
		{name: "missing", rows: sqlmock.NewRows(eventCols), want: domain.ErrEventNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock.ExpectBegin()
			mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			mock.ExpectExec("UPDATE events").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery("FROM events WHERE id = ").WillReturnRows(tc.rows)
			mock.ExpectRollback()

			err := events.ReserveSeats("order-1", map[string]int32{"event-1": 1}, now)
			require.ErrorIs(t, err, tc.want)
		})
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_ReserveSeatsSkipsHeldOrder(t *testing.T) {
	store, mock := newMockStore(t)
	events := NewEventStore(store)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	require.NoError(t, events.ReserveSeats("order-1", map[string]int32{"event-1": 1}, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_SummaryFromBuckets(t *testing.T) {
	store, mock := newMockStore(t)
	reviews := NewReviewRepository(store)

	mock.ExpectQuery("SELECT rating, COUNT").
		WithArgs("biz-1").
		WillReturnRows(sqlmock.NewRows([]string{"rating", "count"}).AddRow(5, 2).AddRow(3, 1))

	summary, err := reviews.Summary("biz-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, summary.Count)
	require.InDelta(t, 4.33, summary.Average, 0.001)
	require.Equal(t, [5]int64{0, 0, 1, 0, 2}, summary.Histogram)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_SelfFollowRejectedWithoutQuery(t *testing.T) {
	store, mock := newMockStore(t)
	follows := NewFollowRepository(store)

	_, err := follows.Follow("alice", "alice", time.Now())
	require.ErrorIs(t, err, domain.ErrSelfFollow)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_FinishMissingMessage(t *testing.T) {
	store, mock := newMockStore(t)
	outbox := NewOutboxRepository(store)

	mock.ExpectExec("UPDATE outbox_messages").
		WithArgs("missing", outboxStatusSent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, outbox.MarkSent("missing"), domain.ErrOutboxPublish)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_ListNearAntimeridianSplitsLongitude(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(textArrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	events := NewEventStore(NewStoreFromDB(db))

	now := time.Now().UTC()
	mock.ExpectQuery(`lng BETWEEN \$4 AND \$5 OR lng BETWEEN \$6 AND \$7\) AND \(2 \* .+ <= \$10 ORDER BY \(2 \* .+ ASC, starts_at ASC, id ASC LIMIT \$11`).
		WithArgs(
			[]string{"published"},
			floatBetween{-1, 0}, floatBetween{0, 1},
			floatBetween{179, 179.5}, 180.0,
			-180.0, floatBetween{-179.1, -178.9},
			0.0, -179.9, 100.0, 20,
		).
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(
			"event-east", "org", "", "Dateline gig", "", "music",
			now.Add(time.Hour), now.Add(2*time.Hour), "", 0.0, 179.95,
			10, 0, 0, 0, "INR",
			"published", 1, now, now,
		))

	got, err := events.List(domain.EventFilter{
		Near:     &domain.GeoPoint{Lat: 0, Lng: -179.9},
		RadiusKm: 100,
		Limit:    20,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "event-east", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_ListNearHighLatitudeWidensLongitude(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(textArrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	events := NewEventStore(NewStoreFromDB(db))

	mock.ExpectQuery(`lat BETWEEN \$2 AND \$3 AND lng BETWEEN \$4 AND \$5 AND`).
		WithArgs(
			[]string{"published"},
			floatBetween{50.9, 51.1}, floatBetween{68.9, 69.1},
			floatBetween{-8.5, -8}, floatBetween{28, 28.5},
			60.0, 10.0, 1000.0, 10,
		).
		WillReturnRows(sqlmock.NewRows(eventCols))

	got, err := events.List(domain.EventFilter{
		Near:     &domain.GeoPoint{Lat: 60, Lng: 10},
		RadiusKm: 1000,
		Offset:   5,
		Limit:    5,
	})
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPartnerRepository_ListAvailableAcrossAntimeridian(t *testing.T) {
	store, mock := newMockStore(t)
	partners := NewPartnerRepository(store)

	now := time.Now().UTC()
	box := domain.BoundingBoxAround(domain.GeoPoint{Lat: 0, Lng: -179.9}, 100)
	mock.ExpectQuery(`\(lng BETWEEN \$3 AND \$4 OR lng BETWEEN \$5 AND \$6\)`).
		WithArgs(box.MinLat, box.MaxLat, box.MinLng+360, 180.0, -180.0, box.MaxLng).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "lat", "lng", "available", "active_orders", "last_seen_at", "updated_at",
		}).AddRow("p-east", "Ravi", 0.0, 179.95, true, 0, now, now))

	got, err := partners.ListAvailable(box)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "p-east", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
