package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const (
	eventColumns = `
		id, organizer_id, business_id, title, description, category,
		starts_at, ends_at, address, lat, lng,
		capacity, seats_reserved, seats_taken, price_minor, currency,
		status, version, created_at, updated_at`

	registrationColumns = `id, event_id, user_id, order_id, seats, status, created_at, updated_at`
)

// EventStore реализует EventRepository и RegistrationRepository на PostgreSQL.
// Счётчики мест меняются условными UPDATE внутри транзакций.
type EventStore struct {
	db *sql.DB
}

// NewEventStore создаёт хранилище мероприятий поверх Store.
func NewEventStore(store *Store) *EventStore {
	return &EventStore{db: store.DB()}
}

func (s *EventStore) Create(event domain.Event) error {
	ctx, cancel := opContext()
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		event.ID, event.OrganizerID, event.BusinessID, event.Title, event.Description, event.Category,
		event.StartsAt, event.EndsAt, event.Address, event.Location.Lat, event.Location.Lng,
		event.Capacity, event.SeatsReserved, event.SeatsTaken, event.PriceMinor, event.Currency,
		string(event.Status), event.Version, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *EventStore) Get(id string) (domain.Event, error) {
	ctx, cancel := opContext()
	defer cancel()

	event, err := scanEvent(s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("select event: %w", err)
	}
	return event, nil
}

// Save обновляет редактируемые поля; счётчики мест не перезаписываются.
func (s *EventStore) Save(event domain.Event) error {
	ctx, cancel := opContext()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET title = $1,
		    description = $2,
		    category = $3,
		    starts_at = $4,
		    ends_at = $5,
		    address = $6,
		    lat = $7,
		    lng = $8,
		    capacity = $9,
		    price_minor = $10,
		    currency = $11,
		    status = $12,
		    version = version + 1,
		    updated_at = $13
		WHERE id = $14
		  AND version = $15
		  AND ($9 = 0 OR seats_taken + seats_reserved <= $9)
	`,
		event.Title, event.Description, event.Category, event.StartsAt, event.EndsAt,
		event.Address, event.Location.Lat, event.Location.Lng, event.Capacity,
		event.PriceMinor, event.Currency, string(event.Status), event.UpdatedAt,
		event.ID, event.Version,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := s.Get(event.ID)
	if err != nil {
		return err
	}
	if current.Version != event.Version {
		return domain.ErrVersionConflict
	}
	return domain.ErrEventCapacityTooLow
}

func (s *EventStore) List(filter domain.EventFilter) ([]domain.Event, error) {
	filter = filter.Normalize()

	ctx, cancel := opContext()
	defer cancel()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	statuses := make([]string, 0, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses = append(statuses, string(st))
	}
	where = append(where, "status = ANY("+arg(statuses)+")")
	if filter.Category != "" {
		where = append(where, "lower(category) = lower("+arg(filter.Category)+")")
	}
	if filter.OrganizerID != "" {
		where = append(where, "organizer_id = "+arg(filter.OrganizerID))
	}
	if !filter.From.IsZero() {
		where = append(where, "ends_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "starts_at <= "+arg(filter.To))
	}
	if filter.Query != "" {
		pattern := "%" + escapeLike(filter.Query) + "%"
		p := arg(pattern)
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + strings.Join(where, " AND ")
	if filter.Near != nil {
		box := domain.BoundingBoxAround(*filter.Near, filter.RadiusKm)
		where = append(where, "lat BETWEEN "+arg(box.MinLat)+" AND "+arg(box.MaxLat))
		where = append(where, lngRangeClause(box, arg))
		distance := distanceKmExpr(*filter.Near, arg)
		where = append(where, distance+" <= "+arg(filter.RadiusKm))
		query = `SELECT ` + eventColumns + ` FROM events WHERE ` + strings.Join(where, " AND ") +
			` ORDER BY ` + distance + ` ASC, starts_at ASC, id ASC LIMIT ` + arg(filter.Offset+filter.Limit)
	} else {
		query += ` ORDER BY starts_at ASC, id ASC LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)
	}

	events, err := s.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if filter.Near == nil {
		return events, nil
	}

	nearby := events[:0]
	for _, event := range events {
		if filter.Matches(event) {
			nearby = append(nearby, event)
		}
	}
	domain.SortEvents(nearby, filter.Near)

	if filter.Offset >= len(nearby) {
		return []domain.Event{}, nil
	}
	nearby = nearby[filter.Offset:]
	if len(nearby) > filter.Limit {
		nearby = nearby[:filter.Limit]
	}
	return nearby, nil
}

func (s *EventStore) ListEndedBefore(t time.Time, limit int) ([]domain.Event, error) {
	ctx, cancel := opContext()
	defer cancel()

	query := `SELECT ` + eventColumns + ` FROM events
		WHERE status = $1 AND ends_at < $2
		ORDER BY starts_at ASC, id ASC`
	args := []any{string(domain.EventStatusPublished), t}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return s.queryEvents(ctx, query, args...)
}

func (s *EventStore) CountByOrganizer(organizerID string) (int32, error) {
	ctx, cancel := opContext()
	defer cancel()

	var n int32
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE organizer_id = $1`, organizerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count organizer events: %w", err)
	}
	return n, nil
}

// Register занимает места под бесплатную регистрацию.
func (s *EventStore) Register(reg domain.Registration) (domain.Registration, error) {
	ctx, cancel := opContext()
	defer cancel()

	if reg.Seats <= 0 {
		reg.Seats = 1
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.Status = domain.RegistrationStatusActive

	var existing domain.Registration
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := activeRegistrationTx(ctx, tx, reg.EventID, reg.UserID)
		switch {
		case err == nil:
			existing = current
			return domain.ErrAlreadyExists
		case !errors.Is(err, domain.ErrRegistrationNotFound):
			return err
		}

		if err := takeSeatsTx(ctx, tx, reg.EventID, reg.Seats); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO registrations (`+registrationColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, reg.ID, reg.EventID, reg.UserID, reg.OrderID, reg.Seats, string(reg.Status), reg.CreatedAt, reg.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		if existing.ID == "" {
			existing, _ = s.GetRegistration(reg.EventID, reg.UserID)
		}
		return existing, domain.ErrAlreadyExists
	}
	if err != nil {
		return domain.Registration{}, err
	}
	return reg, nil
}

func (s *EventStore) Cancel(eventID, userID string, at time.Time) (domain.Registration, error) {
	ctx, cancel := opContext()
	defer cancel()

	var reg domain.Registration
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := activeRegistrationTx(ctx, tx, eventID, userID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE registrations SET status = $1, updated_at = $2 WHERE id = $3
		`, string(domain.RegistrationStatusCanceled), at, current.ID); err != nil {
			return fmt.Errorf("cancel registration: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE events SET seats_taken = GREATEST(seats_taken - $1, 0) WHERE id = $2
		`, current.Seats, eventID); err != nil {
			return fmt.Errorf("free event seats: %w", err)
		}

		current.Status = domain.RegistrationStatusCanceled
		current.UpdatedAt = at
		reg = current
		return nil
	})
	if err != nil {
		return domain.Registration{}, err
	}
	return reg, nil
}

// GetRegistration возвращает последнюю регистрацию пользователя, активные в приоритете.
func (s *EventStore) GetRegistration(eventID, userID string) (domain.Registration, error) {
	ctx, cancel := opContext()
	defer cancel()

	reg, err := scanRegistration(s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE event_id = $1 AND user_id = $2
		ORDER BY (status = 'active') DESC, updated_at DESC
		LIMIT 1
	`, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Registration{}, domain.ErrRegistrationNotFound
		}
		return domain.Registration{}, fmt.Errorf("select registration: %w", err)
	}
	return reg, nil
}

func (s *EventStore) ListByEvent(eventID string) ([]domain.Registration, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE event_id = $1 AND status = $2
		ORDER BY created_at ASC, user_id ASC
	`, eventID, string(domain.RegistrationStatusActive))
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		result = append(result, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return result, nil
}

// ReserveSeats удерживает места по всем мероприятиям заказа в одной транзакции.
func (s *EventStore) ReserveSeats(orderID string, seats map[string]int32, at time.Time) error {
	ctx, cancel := opContext()
	defer cancel()

	eventIDs := make([]string, 0, len(seats))
	for eventID := range seats {
		eventIDs = append(eventIDs, eventID)
	}
	// фиксированный порядок блокировок строк events
	sort.Strings(eventIDs)

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var held int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM seat_reservations WHERE order_id = $1 AND status = $2
		`, orderID, string(domain.ReservationStatusReserved)).Scan(&held); err != nil {
			return fmt.Errorf("check existing reservations: %w", err)
		}
		if held > 0 {
			return nil
		}

		for _, eventID := range eventIDs {
			qty := seats[eventID]
			res, err := tx.ExecContext(ctx, `
				UPDATE events
				SET seats_reserved = seats_reserved + $2
				WHERE id = $1
				  AND status = $3
				  AND starts_at > $4
				  AND (capacity = 0 OR seats_taken + seats_reserved + $2 <= capacity)
			`, eventID, qty, string(domain.EventStatusPublished), at)
			if err != nil {
				return fmt.Errorf("reserve seats: %w", err)
			}
			if affected, _ := res.RowsAffected(); affected == 0 {
				return explainSeatFailureTx(ctx, tx, eventID, at)
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO seat_reservations (order_id, event_id, qty, status, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$5)
				ON CONFLICT (order_id, event_id)
				DO UPDATE SET qty = EXCLUDED.qty, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
			`, orderID, eventID, qty, string(domain.ReservationStatusReserved), at); err != nil {
				return fmt.Errorf("insert seat reservation: %w", err)
			}
		}
		return nil
	})
}

func (s *EventStore) ReleaseSeats(orderID string, at time.Time) error {
	ctx, cancel := opContext()
	defer cancel()

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		held, err := heldReservationsTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		for _, res := range held {
			if _, err := tx.ExecContext(ctx, `
				UPDATE events SET seats_reserved = GREATEST(seats_reserved - $1, 0) WHERE id = $2
			`, res.Qty, res.EventID); err != nil {
				return fmt.Errorf("release event seats: %w", err)
			}
		}
		return setReservationStatusTx(ctx, tx, orderID, domain.ReservationStatusReleased, at)
	})
}

func (s *EventStore) ConfirmSeats(orderID, userID string, at time.Time) ([]domain.Registration, error) {
	ctx, cancel := opContext()
	defer cancel()

	var confirmed []domain.Registration
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		held, err := heldReservationsTx(ctx, tx, orderID)
		if err != nil {
			return err
		}

		confirmed = make([]domain.Registration, 0, len(held))
		for _, res := range held {
			if _, err := tx.ExecContext(ctx, `
				UPDATE events
				SET seats_reserved = GREATEST(seats_reserved - $1, 0),
				    seats_taken = seats_taken + $1
				WHERE id = $2
			`, res.Qty, res.EventID); err != nil {
				return fmt.Errorf("confirm event seats: %w", err)
			}

			reg, err := activeRegistrationTx(ctx, tx, res.EventID, userID)
			switch {
			case err == nil:
				reg.Seats += res.Qty
				reg.UpdatedAt = at
				if _, err := tx.ExecContext(ctx, `
					UPDATE registrations SET seats = $1, updated_at = $2 WHERE id = $3
				`, reg.Seats, at, reg.ID); err != nil {
					return fmt.Errorf("extend registration: %w", err)
				}
			case errors.Is(err, domain.ErrRegistrationNotFound):
				reg = domain.Registration{
					ID:        uuid.NewString(),
					EventID:   res.EventID,
					UserID:    userID,
					OrderID:   orderID,
					Seats:     res.Qty,
					Status:    domain.RegistrationStatusActive,
					CreatedAt: at,
					UpdatedAt: at,
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO registrations (`+registrationColumns+`)
					VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
				`, reg.ID, reg.EventID, reg.UserID, reg.OrderID, reg.Seats, string(reg.Status), at, at); err != nil {
					return fmt.Errorf("insert ticket registration: %w", err)
				}
			default:
				return err
			}
			confirmed = append(confirmed, reg)
		}
		return setReservationStatusTx(ctx, tx, orderID, domain.ReservationStatusConfirmed, at)
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// RevokeSeats возвращает места, подтверждённые по заказу. Регистрация, собранная
// из нескольких заказов, уменьшается только на места этого заказа.
func (s *EventStore) RevokeSeats(orderID, userID string, at time.Time) ([]domain.Registration, error) {
	ctx, cancel := opContext()
	defer cancel()

	var revoked []domain.Registration
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		confirmed, err := reservationsTx(ctx, tx, orderID, domain.ReservationStatusConfirmed)
		if err != nil {
			return err
		}

		revoked = make([]domain.Registration, 0, len(confirmed))
		for _, res := range confirmed {
			if _, err := tx.ExecContext(ctx, `
				UPDATE events SET seats_taken = GREATEST(seats_taken - $1, 0) WHERE id = $2
			`, res.Qty, res.EventID); err != nil {
				return fmt.Errorf("free event seats: %w", err)
			}

			reg, err := activeRegistrationTx(ctx, tx, res.EventID, userID)
			if errors.Is(err, domain.ErrRegistrationNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if reg.Seats > res.Qty {
				reg.Seats -= res.Qty
			} else {
				reg.Status = domain.RegistrationStatusCanceled
			}
			reg.UpdatedAt = at
			if _, err := tx.ExecContext(ctx, `
				UPDATE registrations SET seats = $1, status = $2, updated_at = $3 WHERE id = $4
			`, reg.Seats, string(reg.Status), at, reg.ID); err != nil {
				return fmt.Errorf("shrink registration: %w", err)
			}
			revoked = append(revoked, reg)
		}
		return moveReservationsTx(ctx, tx, orderID, domain.ReservationStatusConfirmed, domain.ReservationStatusRevoked, at)
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}

func (s *EventStore) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func takeSeatsTx(ctx context.Context, tx *sql.Tx, eventID string, qty int32) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET seats_taken = seats_taken + $2
		WHERE id = $1
		  AND (capacity = 0 OR seats_taken + seats_reserved + $2 <= capacity)
	`, eventID, qty)
	if err != nil {
		return fmt.Errorf("take seats: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		exists, err := rowExistsTx(ctx, tx, `SELECT 1 FROM events WHERE id = $1`, eventID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrEventNotFound
		}
		return domain.ErrSeatsUnavailable
	}
	return nil
}

// explainSeatFailureTx определяет, почему условный UPDATE не затронул строку.
func explainSeatFailureTx(ctx context.Context, tx *sql.Tx, eventID string, at time.Time) error {
	event, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("select event: %w", err)
	}
	if !event.OpenForRegistration(at) {
		return domain.ErrEventNotOpen
	}
	return domain.ErrSeatsUnavailable
}

func activeRegistrationTx(ctx context.Context, tx *sql.Tx, eventID, userID string) (domain.Registration, error) {
	reg, err := scanRegistration(tx.QueryRowContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE event_id = $1 AND user_id = $2 AND status = $3
		FOR UPDATE
	`, eventID, userID, string(domain.RegistrationStatusActive)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Registration{}, domain.ErrRegistrationNotFound
		}
		return domain.Registration{}, fmt.Errorf("select active registration: %w", err)
	}
	return reg, nil
}

func heldReservationsTx(ctx context.Context, tx *sql.Tx, orderID string) ([]domain.SeatReservation, error) {
	return reservationsTx(ctx, tx, orderID, domain.ReservationStatusReserved)
}

func reservationsTx(ctx context.Context, tx *sql.Tx, orderID string, status domain.ReservationStatus) ([]domain.SeatReservation, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT order_id, event_id, qty, status, created_at, updated_at
		FROM seat_reservations
		WHERE order_id = $1 AND status = $2
		ORDER BY event_id
		FOR UPDATE
	`, orderID, string(status))
	if err != nil {
		return nil, fmt.Errorf("select seat reservations: %w", err)
	}
	defer rows.Close()

	held := make([]domain.SeatReservation, 0)
	for rows.Next() {
		var (
			res    domain.SeatReservation
			status string
		)
		if err := rows.Scan(&res.OrderID, &res.EventID, &res.Qty, &status, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan seat reservation: %w", err)
		}
		res.Status = domain.ReservationStatus(status)
		held = append(held, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seat reservations: %w", err)
	}
	return held, nil
}

func setReservationStatusTx(ctx context.Context, tx *sql.Tx, orderID string, status domain.ReservationStatus, at time.Time) error {
	return moveReservationsTx(ctx, tx, orderID, domain.ReservationStatusReserved, status, at)
}

func moveReservationsTx(ctx context.Context, tx *sql.Tx, orderID string, from, status domain.ReservationStatus, at time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE seat_reservations
		SET status = $1, updated_at = $2
		WHERE order_id = $3 AND status = $4
	`, string(status), at, orderID, string(from)); err != nil {
		return fmt.Errorf("mark seat reservations %s: %w", status, err)
	}
	return nil
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		event  domain.Event
		status string
	)
	err := row.Scan(
		&event.ID, &event.OrganizerID, &event.BusinessID, &event.Title, &event.Description, &event.Category,
		&event.StartsAt, &event.EndsAt, &event.Address, &event.Location.Lat, &event.Location.Lng,
		&event.Capacity, &event.SeatsReserved, &event.SeatsTaken, &event.PriceMinor, &event.Currency,
		&status, &event.Version, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}
	event.Status = domain.EventStatus(status)
	event.StartsAt = event.StartsAt.UTC()
	event.EndsAt = event.EndsAt.UTC()
	return event, nil
}

func scanRegistration(row rowScanner) (domain.Registration, error) {
	var (
		reg    domain.Registration
		status string
	)
	if err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.OrderID, &reg.Seats, &status, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return domain.Registration{}, err
	}
	reg.Status = domain.RegistrationStatus(status)
	return reg, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var (
	_ domain.EventRepository        = (*EventStore)(nil)
	_ domain.RegistrationRepository = (*EventStore)(nil)
)
