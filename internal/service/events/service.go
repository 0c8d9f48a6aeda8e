// Package events управляет мероприятиями и бесплатными регистрациями.
package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
)

// QuotaConsumer выполняет создание мероприятия в рамках квоты организатора.
type QuotaConsumer interface {
	ConsumeEventCredit(actor domain.Actor, create func() error) error
}

// Input содержит редактируемые поля мероприятия.
type Input struct {
	BusinessID  string
	Title       string
	Description string
	Category    string
	StartsAt    time.Time
	EndsAt      time.Time
	Address     string
	Location    domain.GeoPoint
	Capacity    int32
	PriceMinor  int64
	Currency    string
}

type Dependencies struct {
	Events        domain.EventRepository
	Registrations domain.RegistrationRepository
	Quota         QuotaConsumer
	Outbox        domain.OutboxRepository
	Metrics       *metrics.DomainMetrics
	Clock         clock.Clock
	Logger        *log.Entry
}

// Service реализует операции над мероприятиями.
type Service struct {
	events  domain.EventRepository
	regs    domain.RegistrationRepository
	quota   QuotaConsumer
	outbox  domain.OutboxRepository
	metrics *metrics.DomainMetrics
	clock   clock.Clock
	logger  *log.Entry
}

// NewService создаёт сервис мероприятий.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "events")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		events:  deps.Events,
		regs:    deps.Registrations,
		quota:   deps.Quota,
		outbox:  deps.Outbox,
		metrics: deps.Metrics,
		clock:   clk,
		logger:  logger,
	}
}

// Create сохраняет черновик мероприятия, расходуя кредит квоты организатора.
func (s *Service) Create(actor domain.Actor, in Input) (domain.Event, error) {
	if actor.UserID == "" {
		return domain.Event{}, domain.ErrEventOrganizerRequired
	}
	if actor.Role == domain.RolePartner {
		return domain.Event{}, domain.ErrForbidden
	}
	if in.BusinessID == "" && actor.Role == domain.RoleBusiness {
		in.BusinessID = actor.EffectiveBusinessID()
	}
	if in.BusinessID != "" && !actor.IsAdmin() && !actor.OwnsBusiness(in.BusinessID) {
		return domain.Event{}, domain.ErrForbidden
	}

	now := s.clock.Now()
	event := domain.Event{
		ID:          uuid.NewString(),
		OrganizerID: actor.UserID,
		Status:      domain.EventStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	apply(&event, in)
	if err := domain.ValidationError(event.ValidateInvariants()); err != nil {
		return domain.Event{}, err
	}

	err := s.quota.ConsumeEventCredit(actor, func() error {
		return s.events.Create(event)
	})
	if err != nil {
		return domain.Event{}, err
	}

	s.metrics.RecordEventCreated()
	s.logger.WithFields(log.Fields{
		"event_id":     event.ID,
		"organizer_id": event.OrganizerID,
	}).Info("event created")
	return event, nil
}

// Update меняет описание мероприятия. Вместимость нельзя опустить ниже занятых мест.
func (s *Service) Update(actor domain.Actor, id string, in Input) (domain.Event, error) {
	event, err := s.events.Get(id)
	if err != nil {
		return domain.Event{}, err
	}
	if event.OrganizerID != actor.UserID {
		return domain.Event{}, domain.ErrForbidden
	}
	if !event.Editable() {
		return domain.Event{}, domain.ErrEventNotEditable
	}

	in.BusinessID = event.BusinessID
	apply(&event, in)
	event.UpdatedAt = s.clock.Now()
	if err := domain.ValidationError(event.ValidateInvariants()); err != nil {
		return domain.Event{}, err
	}
	if err := s.events.Save(event); err != nil {
		return domain.Event{}, err
	}
	return s.events.Get(id)
}

// Publish открывает черновик для поиска и регистрации.
func (s *Service) Publish(actor domain.Actor, id string) (domain.Event, error) {
	event, err := s.events.Get(id)
	if err != nil {
		return domain.Event{}, err
	}
	if event.OrganizerID != actor.UserID && !actor.IsAdmin() {
		return domain.Event{}, domain.ErrForbidden
	}
	switch event.Status {
	case domain.EventStatusPublished:
		return event, nil
	case domain.EventStatusDraft:
	default:
		return event, domain.ErrEventNotEditable
	}
	now := s.clock.Now()
	if !now.Before(event.StartsAt) {
		return event, fmt.Errorf("event %s already started: %w", event.ID, domain.ErrEventScheduleInvalid)
	}

	updated, err := s.setStatus(event, domain.EventStatusPublished, now)
	if err != nil {
		return event, err
	}
	s.enqueue(updated.ID, domain.EventTypeEventPublished, domain.EventPublishedPayload{
		EventID:     updated.ID,
		OrganizerID: updated.OrganizerID,
		Title:       updated.Title,
		StartsAt:    updated.StartsAt,
		OccurredAt:  now,
	})
	s.logger.WithField("event_id", updated.ID).Info("event published")
	return updated, nil
}

// Cancel отменяет мероприятие. Участники опубликованного мероприятия получат уведомление.
func (s *Service) Cancel(actor domain.Actor, id, reason string) (domain.Event, error) {
	event, err := s.events.Get(id)
	if err != nil {
		return domain.Event{}, err
	}
	if event.OrganizerID != actor.UserID && !actor.IsAdmin() {
		return domain.Event{}, domain.ErrForbidden
	}
	if event.Status == domain.EventStatusCanceled {
		return event, nil
	}
	if !event.Editable() {
		return event, domain.ErrEventNotEditable
	}

	wasPublished := event.Status == domain.EventStatusPublished
	now := s.clock.Now()
	updated, err := s.setStatus(event, domain.EventStatusCanceled, now)
	if err != nil {
		return event, err
	}
	if wasPublished {
		s.enqueue(updated.ID, domain.EventTypeEventCanceled, domain.EventCanceledPayload{
			EventID:     updated.ID,
			OrganizerID: updated.OrganizerID,
			Title:       updated.Title,
			Reason:      strings.TrimSpace(reason),
			OccurredAt:  now,
		})
	}
	s.logger.WithFields(log.Fields{
		"event_id": updated.ID,
		"reason":   reason,
	}).Info("event canceled")
	return updated, nil
}

// Complete закрывает прошедшее опубликованное мероприятие.
func (s *Service) Complete(id string) (domain.Event, error) {
	event, err := s.events.Get(id)
	if err != nil {
		return domain.Event{}, err
	}
	switch event.Status {
	case domain.EventStatusCompleted:
		return event, nil
	case domain.EventStatusPublished:
	default:
		return event, domain.ErrEventNotEditable
	}
	now := s.clock.Now()
	if now.Before(event.EndsAt) {
		return event, fmt.Errorf("event %s has not ended: %w", event.ID, domain.ErrEventNotEditable)
	}
	return s.setStatus(event, domain.EventStatusCompleted, now)
}

// CompleteEnded закрывает все мероприятия, закончившиеся до текущего момента.
func (s *Service) CompleteEnded(limit int) (int, error) {
	ended, err := s.events.ListEndedBefore(s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, event := range ended {
		if _, err := s.Complete(event.ID); err != nil {
			s.logger.WithError(err).WithField("event_id", event.ID).Warn("failed to complete event")
			continue
		}
		completed++
	}
	return completed, nil
}

// Get возвращает мероприятие. Черновики видят только организатор и администратор.
func (s *Service) Get(actor domain.Actor, id string) (domain.Event, error) {
	event, err := s.events.Get(id)
	if err != nil {
		return domain.Event{}, err
	}
	if event.Status == domain.EventStatusDraft && event.OrganizerID != actor.UserID && !actor.IsAdmin() {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

// List ищет мероприятия. Черновики доступны только в выборке по своему организатору.
func (s *Service) List(actor domain.Actor, filter domain.EventFilter) ([]domain.Event, error) {
	if filter.Near != nil {
		if err := filter.Near.Validate(); err != nil {
			return nil, err
		}
	}
	if filter.OrganizerID != actor.UserID && !actor.IsAdmin() {
		statuses := filter.Statuses[:0:0]
		for _, st := range filter.Statuses {
			if st != domain.EventStatusDraft {
				statuses = append(statuses, st)
			}
		}
		if len(filter.Statuses) > 0 && len(statuses) == 0 {
			return []domain.Event{}, nil
		}
		filter.Statuses = statuses
	}
	return s.events.List(filter)
}

// Register записывает пользователя на бесплатное мероприятие. Повторная запись возвращает
// существующую регистрацию.
func (s *Service) Register(actor domain.Actor, eventID string) (domain.Registration, error) {
	if actor.UserID == "" {
		return domain.Registration{}, domain.ErrUserRequired
	}
	event, err := s.events.Get(eventID)
	if err != nil {
		return domain.Registration{}, err
	}
	if !event.IsFree() {
		return domain.Registration{}, domain.ErrEventPaid
	}
	if !event.OpenForRegistration(s.clock.Now()) {
		return domain.Registration{}, domain.ErrEventNotOpen
	}

	now := s.clock.Now()
	reg, err := s.regs.Register(domain.Registration{
		EventID:   eventID,
		UserID:    actor.UserID,
		Seats:     1,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return reg, nil
	}
	if err != nil {
		return domain.Registration{}, err
	}
	s.logger.WithFields(log.Fields{
		"event_id": eventID,
		"user_id":  actor.UserID,
	}).Info("registered for event")
	return reg, nil
}

// Unregister отменяет регистрацию и освобождает место.
func (s *Service) Unregister(actor domain.Actor, eventID string) (domain.Registration, error) {
	event, err := s.events.Get(eventID)
	if err != nil {
		return domain.Registration{}, err
	}
	if event.Status == domain.EventStatusCompleted {
		return domain.Registration{}, domain.ErrEventNotEditable
	}
	// Билеты платного мероприятия возвращаются только отменой или возвратом заказа.
	if !event.IsFree() {
		return domain.Registration{}, domain.ErrEventPaid
	}
	return s.regs.Cancel(eventID, actor.UserID, s.clock.Now())
}

// Attendees возвращает активные регистрации. Только для организатора и администратора.
func (s *Service) Attendees(actor domain.Actor, eventID string) ([]domain.Registration, error) {
	event, err := s.events.Get(eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != actor.UserID && !actor.IsAdmin() && actor.Role != domain.RoleSystem {
		return nil, domain.ErrForbidden
	}
	return s.regs.ListByEvent(eventID)
}

func (s *Service) setStatus(event domain.Event, status domain.EventStatus, now time.Time) (domain.Event, error) {
	event.Status = status
	event.UpdatedAt = now
	if err := s.events.Save(event); err != nil {
		return domain.Event{}, err
	}
	event.Version++
	return event, nil
}

func (s *Service) enqueue(eventID, eventType string, payload any) {
	if s.outbox == nil {
		return
	}
	msg, err := domain.NewOutboxMessage(domain.AggregateEvent, eventID, eventType, payload)
	if err == nil {
		_, err = s.outbox.Enqueue(msg)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_id": eventID,
			"event":    eventType,
		}).Error("enqueue event failed")
	}
}

func apply(event *domain.Event, in Input) {
	event.BusinessID = in.BusinessID
	event.Title = strings.TrimSpace(in.Title)
	event.Description = strings.TrimSpace(in.Description)
	event.Category = strings.ToLower(strings.TrimSpace(in.Category))
	event.StartsAt = in.StartsAt.UTC()
	event.EndsAt = in.EndsAt.UTC()
	event.Address = strings.TrimSpace(in.Address)
	event.Location = in.Location
	event.Capacity = in.Capacity
	event.PriceMinor = in.PriceMinor
	event.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
}
