package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

// EventStore хранит мероприятия, регистрации и резервы мест под одним мьютексом,
// чтобы проверка вместимости и изменение счётчиков были атомарны.
type EventStore struct {
	mu            sync.RWMutex
	events        map[string]domain.Event
	registrations map[string]map[string]domain.Registration // eventID -> userID -> registration
	reservations  map[string][]domain.SeatReservation       // orderID -> резервы
}

// NewEventStore создаёт in-memory хранилище мероприятий.
func NewEventStore() *EventStore {
	return &EventStore{
		events:        make(map[string]domain.Event),
		registrations: make(map[string]map[string]domain.Registration),
		reservations:  make(map[string][]domain.SeatReservation),
	}
}

func (s *EventStore) Create(event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.events[event.ID] = event
	return nil
}

func (s *EventStore) Get(id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

// Save обновляет описание и статус мероприятия; счётчики мест берутся из хранилища.
func (s *EventStore) Save(event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.events[event.ID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if current.Version != event.Version {
		return domain.ErrVersionConflict
	}
	if event.Capacity > 0 && current.SeatsTaken+current.SeatsReserved > event.Capacity {
		return domain.ErrEventCapacityTooLow
	}

	event.SeatsTaken = current.SeatsTaken
	event.SeatsReserved = current.SeatsReserved
	event.Version++
	s.events[event.ID] = event
	return nil
}

func (s *EventStore) List(filter domain.EventFilter) ([]domain.Event, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	result := make([]domain.Event, 0)
	for _, event := range s.events {
		if filter.Matches(event) {
			result = append(result, event)
		}
	}
	s.mu.RUnlock()

	domain.SortEvents(result, filter.Near)

	if filter.Offset >= len(result) {
		return []domain.Event{}, nil
	}
	result = result[filter.Offset:]
	if len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *EventStore) ListEndedBefore(t time.Time, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	result := make([]domain.Event, 0)
	for _, event := range s.events {
		if event.Status == domain.EventStatusPublished && event.EndsAt.Before(t) {
			result = append(result, event)
		}
	}
	s.mu.RUnlock()

	domain.SortEvents(result, nil)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *EventStore) CountByOrganizer(organizerID string) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int32
	for _, event := range s.events {
		if event.OrganizerID == organizerID {
			n++
		}
	}
	return n, nil
}

// Register занимает места под бесплатную регистрацию.
func (s *EventStore) Register(reg domain.Registration) (domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[reg.EventID]
	if !ok {
		return domain.Registration{}, domain.ErrEventNotFound
	}
	if existing, ok := s.registrations[reg.EventID][reg.UserID]; ok && existing.Status == domain.RegistrationStatusActive {
		return existing, domain.ErrAlreadyExists
	}
	if reg.Seats <= 0 {
		reg.Seats = 1
	}
	if !event.HasSeats(reg.Seats) {
		return domain.Registration{}, domain.ErrSeatsUnavailable
	}

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.Status = domain.RegistrationStatusActive
	event.SeatsTaken += reg.Seats
	s.events[event.ID] = event
	s.putRegistration(reg)
	return reg, nil
}

func (s *EventStore) Cancel(eventID, userID string, at time.Time) (domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[eventID][userID]
	if !ok || reg.Status != domain.RegistrationStatusActive {
		return domain.Registration{}, domain.ErrRegistrationNotFound
	}

	event := s.events[eventID]
	event.SeatsTaken -= reg.Seats
	if event.SeatsTaken < 0 {
		event.SeatsTaken = 0
	}
	s.events[eventID] = event

	reg.Status = domain.RegistrationStatusCanceled
	reg.UpdatedAt = at
	s.putRegistration(reg)
	return reg, nil
}

func (s *EventStore) GetRegistration(eventID, userID string) (domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.registrations[eventID][userID]
	if !ok {
		return domain.Registration{}, domain.ErrRegistrationNotFound
	}
	return reg, nil
}

func (s *EventStore) ListByEvent(eventID string) ([]domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Registration, 0, len(s.registrations[eventID]))
	for _, reg := range s.registrations[eventID] {
		if reg.Status == domain.RegistrationStatusActive {
			result = append(result, reg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

// ReserveSeats удерживает места сразу по всем мероприятиям заказа: либо все, либо ничего.
func (s *EventStore) ReserveSeats(orderID string, seats map[string]int32, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active := s.activeReservations(orderID); len(active) > 0 {
		return nil
	}

	for eventID, qty := range seats {
		event, ok := s.events[eventID]
		if !ok {
			return domain.ErrEventNotFound
		}
		if !event.OpenForRegistration(at) {
			return domain.ErrEventNotOpen
		}
		if !event.HasSeats(qty) {
			return domain.ErrSeatsUnavailable
		}
	}

	reservations := make([]domain.SeatReservation, 0, len(seats))
	for eventID, qty := range seats {
		event := s.events[eventID]
		event.SeatsReserved += qty
		s.events[eventID] = event
		reservations = append(reservations, domain.SeatReservation{
			OrderID:   orderID,
			EventID:   eventID,
			Qty:       qty,
			Status:    domain.ReservationStatusReserved,
			CreatedAt: at,
			UpdatedAt: at,
		})
	}
	s.reservations[orderID] = reservations
	return nil
}

func (s *EventStore) ReleaseSeats(orderID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservations := s.reservations[orderID]
	for i, res := range reservations {
		if res.Status != domain.ReservationStatusReserved {
			continue
		}
		event := s.events[res.EventID]
		event.SeatsReserved -= res.Qty
		if event.SeatsReserved < 0 {
			event.SeatsReserved = 0
		}
		s.events[res.EventID] = event
		reservations[i].Status = domain.ReservationStatusReleased
		reservations[i].UpdatedAt = at
	}
	return nil
}

func (s *EventStore) ConfirmSeats(orderID, userID string, at time.Time) ([]domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservations := s.reservations[orderID]
	result := make([]domain.Registration, 0, len(reservations))
	for i, res := range reservations {
		if res.Status != domain.ReservationStatusReserved {
			continue
		}
		event := s.events[res.EventID]
		event.SeatsReserved -= res.Qty
		event.SeatsTaken += res.Qty
		s.events[res.EventID] = event

		reg, ok := s.registrations[res.EventID][userID]
		if ok && reg.Status == domain.RegistrationStatusActive {
			reg.Seats += res.Qty
			reg.UpdatedAt = at
		} else {
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
		}
		s.putRegistration(reg)
		result = append(result, reg)

		reservations[i].Status = domain.ReservationStatusConfirmed
		reservations[i].UpdatedAt = at
	}
	return result, nil
}

func (s *EventStore) RevokeSeats(orderID, userID string, at time.Time) ([]domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservations := s.reservations[orderID]
	result := make([]domain.Registration, 0, len(reservations))
	for i, res := range reservations {
		if res.Status != domain.ReservationStatusConfirmed {
			continue
		}
		event := s.events[res.EventID]
		event.SeatsTaken -= res.Qty
		if event.SeatsTaken < 0 {
			event.SeatsTaken = 0
		}
		s.events[res.EventID] = event

		if reg, ok := s.registrations[res.EventID][userID]; ok && reg.Status == domain.RegistrationStatusActive {
			if reg.Seats > res.Qty {
				reg.Seats -= res.Qty
			} else {
				reg.Status = domain.RegistrationStatusCanceled
			}
			reg.UpdatedAt = at
			s.putRegistration(reg)
			result = append(result, reg)
		}

		reservations[i].Status = domain.ReservationStatusRevoked
		reservations[i].UpdatedAt = at
	}
	return result, nil
}

func (s *EventStore) activeReservations(orderID string) []domain.SeatReservation {
	var active []domain.SeatReservation
	for _, res := range s.reservations[orderID] {
		if res.Status == domain.ReservationStatusReserved {
			active = append(active, res)
		}
	}
	return active
}

func (s *EventStore) putRegistration(reg domain.Registration) {
	byUser, ok := s.registrations[reg.EventID]
	if !ok {
		byUser = make(map[string]domain.Registration)
		s.registrations[reg.EventID] = byUser
	}
	byUser[reg.UserID] = reg
}

var (
	_ domain.EventRepository        = (*EventStore)(nil)
	_ domain.RegistrationRepository = (*EventStore)(nil)
)
