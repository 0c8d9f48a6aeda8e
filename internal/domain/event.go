package domain

import (
	"sort"
	"strings"
	"time"
)

// EventStatus описывает жизненный цикл мероприятия.
type EventStatus string

const (
	// EventStatusDraft — мероприятие создано, но не опубликовано.
	EventStatusDraft EventStatus = "draft"
	// EventStatusPublished — мероприятие видно в поиске и открыто для регистрации.
	EventStatusPublished EventStatus = "published"
	// EventStatusCanceled — мероприятие отменено организатором.
	EventStatusCanceled EventStatus = "canceled"
	// EventStatusCompleted — мероприятие завершилось.
	EventStatusCompleted EventStatus = "completed"
)

// Event описывает мероприятие, на которое регистрируются или покупают билет.
type Event struct {
	ID          string
	OrganizerID string
	BusinessID  string
	Title       string
	Description string
	Category    string
	StartsAt    time.Time
	EndsAt      time.Time
	Address     string
	Location    GeoPoint
	// Capacity 0 означает без ограничений.
	Capacity int32
	// SeatsReserved удерживаются незавершёнными заказами.
	SeatsReserved int32
	// SeatsTaken заняты подтверждёнными регистрациями.
	SeatsTaken int32
	PriceMinor int64
	Currency   string
	Status     EventStatus
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateInvariants проверяет поля мероприятия.
func (e *Event) ValidateInvariants() []error {
	var errs []error

	if e.OrganizerID == "" {
		errs = append(errs, ErrEventOrganizerRequired)
	}
	if strings.TrimSpace(e.Title) == "" {
		errs = append(errs, ErrEventTitleRequired)
	}
	if strings.TrimSpace(e.Category) == "" {
		errs = append(errs, ErrEventCategoryRequired)
	}
	if e.StartsAt.IsZero() || !e.EndsAt.After(e.StartsAt) {
		errs = append(errs, ErrEventScheduleInvalid)
	}
	if e.Capacity < 0 {
		errs = append(errs, ErrEventCapacityInvalid)
	}
	if e.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if e.PriceMinor > 0 && e.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if err := e.Location.Validate(); err != nil {
		errs = append(errs, err)
	}
	if e.Capacity > 0 && e.SeatsTaken+e.SeatsReserved > e.Capacity {
		errs = append(errs, ErrEventCapacityTooLow)
	}

	return errs
}

// IsFree сообщает, что участие бесплатное.
func (e *Event) IsFree() bool {
	return e.PriceMinor == 0
}

// SeatsAvailable возвращает число свободных мест; -1 для мероприятий без лимита.
func (e *Event) SeatsAvailable() int32 {
	if e.Capacity == 0 {
		return -1
	}
	free := e.Capacity - e.SeatsTaken - e.SeatsReserved
	if free < 0 {
		return 0
	}
	return free
}

// HasSeats проверяет, можно ли занять qty мест.
func (e *Event) HasSeats(qty int32) bool {
	if e.Capacity == 0 {
		return true
	}
	return e.SeatsTaken+e.SeatsReserved+qty <= e.Capacity
}

// Editable сообщает, можно ли ещё менять мероприятие.
func (e *Event) Editable() bool {
	return e.Status == EventStatusDraft || e.Status == EventStatusPublished
}

// OpenForRegistration проверяет, что мероприятие опубликовано и ещё не началось.
func (e *Event) OpenForRegistration(now time.Time) bool {
	return e.Status == EventStatusPublished && now.Before(e.StartsAt)
}

// EventFilter задаёт параметры поиска мероприятий.
type EventFilter struct {
	Category    string
	OrganizerID string
	Query       string
	Statuses    []EventStatus
	From        time.Time
	To          time.Time
	Near        *GeoPoint
	RadiusKm    float64
	Limit       int
	Offset      int
}

const (
	DefaultEventListLimit = 50
	MaxEventListLimit     = 200
	// DefaultSearchRadiusKm используется, если задана точка, но не радиус.
	DefaultSearchRadiusKm = 25
)

// Normalize приводит лимиты и радиус к допустимым значениям.
func (f EventFilter) Normalize() EventFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultEventListLimit
	}
	if f.Limit > MaxEventListLimit {
		f.Limit = MaxEventListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Near != nil && f.RadiusKm <= 0 {
		f.RadiusKm = DefaultSearchRadiusKm
	}
	f.Query = strings.TrimSpace(f.Query)
	if len(f.Statuses) == 0 {
		f.Statuses = []EventStatus{EventStatusPublished}
	}
	return f
}

// Matches проверяет мероприятие на соответствие всем условиям фильтра, кроме пагинации.
func (f EventFilter) Matches(e Event) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, e.Category) {
		return false
	}
	if f.OrganizerID != "" && f.OrganizerID != e.OrganizerID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if s == e.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && e.EndsAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.StartsAt.After(f.To) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Description), q) {
			return false
		}
	}
	if f.Near != nil && !WithinRadius(*f.Near, e.Location, f.RadiusKm) {
		return false
	}
	return true
}

// RegistrationStatus описывает состояние регистрации участника.
type RegistrationStatus string

const (
	RegistrationStatusActive   RegistrationStatus = "active"
	RegistrationStatusCanceled RegistrationStatus = "canceled"
)

// Registration связывает пользователя и мероприятие.
type Registration struct {
	ID      string
	EventID string
	UserID  string
	// OrderID заполнен для платных мероприятий.
	OrderID   string
	Seats     int32
	Status    RegistrationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SortEvents упорядочивает мероприятия по расстоянию до near (если задана),
// затем по времени начала и ID.
func SortEvents(events []Event, near *GeoPoint) {
	sort.Slice(events, func(i, j int) bool {
		if near != nil {
			di := DistanceKm(*near, events[i].Location)
			dj := DistanceKm(*near, events[j].Location)
			if di != dj {
				return di < dj
			}
		}
		if !events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].StartsAt.Before(events[j].StartsAt)
		}
		return events[i].ID < events[j].ID
	})
}
