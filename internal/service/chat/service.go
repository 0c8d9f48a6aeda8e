// Package chat ведёт личные и групповые чаты с упорядоченным журналом сообщений.
package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Publisher доставляет новые сообщения live-клиентам.
type Publisher interface {
	Publish(msg domain.Message)
}

type Dependencies struct {
	Chats         domain.ChatRepository
	Events        domain.EventRepository
	Registrations domain.RegistrationRepository
	Outbox        domain.OutboxRepository
	Live          Publisher
	Metrics       *metrics.DomainMetrics
	Clock         clock.Clock
	Logger        *log.Entry
}

// Service реализует операции над чатами.
type Service struct {
	chats   domain.ChatRepository
	events  domain.EventRepository
	regs    domain.RegistrationRepository
	outbox  domain.OutboxRepository
	live    Publisher
	metrics *metrics.DomainMetrics
	clock   clock.Clock
	logger  *log.Entry
}

// NewService создаёт сервис чатов.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "chat")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		chats:   deps.Chats,
		events:  deps.Events,
		regs:    deps.Registrations,
		outbox:  deps.Outbox,
		live:    deps.Live,
		metrics: deps.Metrics,
		clock:   clk,
		logger:  logger,
	}
}

// OpenDirect возвращает личный чат с пользователем, создавая его при первом обращении.
func (s *Service) OpenDirect(actor domain.Actor, otherUserID string) (domain.Chat, error) {
	otherUserID = strings.TrimSpace(otherUserID)
	if actor.UserID == "" || otherUserID == "" {
		return domain.Chat{}, domain.ErrUserRequired
	}
	if actor.UserID == otherUserID {
		return domain.Chat{}, domain.ErrChatParticipants
	}

	chat, err := s.chats.FindDirect(actor.UserID, otherUserID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, domain.ErrChatNotFound) {
		return domain.Chat{}, err
	}

	chat = s.newChat(actor, domain.ChatKindDirect, "", "", []string{actor.UserID, otherUserID})
	err = s.create(chat)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return s.chats.FindDirect(actor.UserID, otherUserID)
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// CreateGroup создаёт групповой чат. Создатель входит в число участников.
func (s *Service) CreateGroup(actor domain.Actor, title string, participants []string) (domain.Chat, error) {
	if actor.UserID == "" {
		return domain.Chat{}, domain.ErrUserRequired
	}
	members := domain.NormalizeParticipants(append([]string{actor.UserID}, participants...)...)
	chat := s.newChat(actor, domain.ChatKindGroup, strings.TrimSpace(title), "", members)
	if err := s.create(chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// JoinEventChat добавляет организатора или участника мероприятия в его групповой чат.
func (s *Service) JoinEventChat(actor domain.Actor, eventID string) (domain.Chat, error) {
	event, err := s.events.Get(eventID)
	if err != nil {
		return domain.Chat{}, err
	}
	if event.OrganizerID != actor.UserID {
		reg, err := s.regs.GetRegistration(eventID, actor.UserID)
		if errors.Is(err, domain.ErrRegistrationNotFound) || (err == nil && reg.Status != domain.RegistrationStatusActive) {
			return domain.Chat{}, domain.ErrNotChatParticipant
		}
		if err != nil {
			return domain.Chat{}, err
		}
	}

	chat, err := s.chats.FindByEvent(eventID)
	if errors.Is(err, domain.ErrChatNotFound) {
		members := domain.NormalizeParticipants(event.OrganizerID, actor.UserID)
		chat = s.newChat(actor, domain.ChatKindGroup, event.Title, eventID, members)
		err = s.create(chat)
		if errors.Is(err, domain.ErrAlreadyExists) {
			chat, err = s.chats.FindByEvent(eventID)
		}
	}
	if err != nil {
		return domain.Chat{}, err
	}
	if chat.HasParticipant(actor.UserID) {
		return chat, nil
	}

	if err := s.chats.AddParticipant(chat.ID, actor.UserID); err != nil {
		return domain.Chat{}, err
	}
	return s.chats.Get(chat.ID)
}

// Send добавляет сообщение в журнал чата.
func (s *Service) Send(actor domain.Actor, chatID, body string) (domain.Message, error) {
	body, err := domain.NormalizeMessageBody(body)
	if err != nil {
		return domain.Message{}, err
	}
	chat, err := s.participantChat(actor, chatID)
	if err != nil {
		return domain.Message{}, err
	}

	msg, err := s.chats.AppendMessage(domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		SenderID:  actor.UserID,
		Body:      body,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}

	s.metrics.RecordChatMessage()
	s.enqueue(chat, msg)
	if s.live != nil {
		s.live.Publish(msg)
	}
	return msg, nil
}

// Messages возвращает сообщения после afterSeq по возрастанию номера.
func (s *Service) Messages(actor domain.Actor, chatID string, afterSeq int64, limit int) ([]domain.Message, error) {
	if _, err := s.participantChat(actor, chatID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.chats.ListMessages(chatID, afterSeq, limit)
}

// Chats возвращает чаты пользователя, последние по активности первыми.
func (s *Service) Chats(actor domain.Actor, limit int) ([]domain.Chat, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.chats.ListByUser(actor.UserID, limit)
}

// Get возвращает чат участнику.
func (s *Service) Get(actor domain.Actor, chatID string) (domain.Chat, error) {
	return s.participantChat(actor, chatID)
}

func (s *Service) participantChat(actor domain.Actor, chatID string) (domain.Chat, error) {
	chat, err := s.chats.Get(chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	if !chat.HasParticipant(actor.UserID) {
		return domain.Chat{}, domain.ErrNotChatParticipant
	}
	return chat, nil
}

func (s *Service) newChat(actor domain.Actor, kind domain.ChatKind, title, eventID string, participants []string) domain.Chat {
	return domain.Chat{
		ID:           uuid.NewString(),
		Kind:         kind,
		Title:        title,
		EventID:      eventID,
		Participants: participants,
		CreatedBy:    actor.UserID,
		CreatedAt:    s.clock.Now(),
	}
}

func (s *Service) create(chat domain.Chat) error {
	if err := domain.ValidationError(chat.Validate()); err != nil {
		return err
	}
	if err := s.chats.Create(chat); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{
		"chat_id": chat.ID,
		"kind":    chat.Kind,
		"members": len(chat.Participants),
	}).Info("chat created")
	return nil
}

func (s *Service) enqueue(chat domain.Chat, msg domain.Message) {
	if s.outbox == nil {
		return
	}
	out, err := domain.NewOutboxMessage(domain.AggregateChat, chat.ID, domain.EventTypeChatMessageSent, domain.ChatMessageSentPayload{
		ChatID:       chat.ID,
		MessageID:    msg.ID,
		Seq:          msg.Seq,
		SenderID:     msg.SenderID,
		Body:         msg.Body,
		Participants: chat.Participants,
		OccurredAt:   msg.CreatedAt,
	})
	if err == nil {
		_, err = s.outbox.Enqueue(out)
	}
	if err != nil {
		s.logger.WithError(err).WithField("chat_id", chat.ID).Error("enqueue chat message failed")
	}
}
