package notifications

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service работает с входящими уведомлениями пользователя.
type Service struct {
	repo   domain.NotificationRepository
	clock  clock.Clock
	logger *log.Entry
}

// NewService создаёт сервис входящих.
func NewService(repo domain.NotificationRepository, clk clock.Clock, logger *log.Entry) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = log.WithField("component", "notifications")
	}
	return &Service{repo: repo, clock: clk, logger: logger}
}

// List возвращает уведомления актора, новые первыми, и число непрочитанных.
func (s *Service) List(actor domain.Actor, unreadOnly bool, limit int) ([]domain.Notification, int, error) {
	if actor.UserID == "" {
		return nil, 0, domain.ErrUserRequired
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := s.repo.List(actor.UserID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(actor.UserID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

// MarkRead отмечает уведомления прочитанными, при пустом ids все.
func (s *Service) MarkRead(actor domain.Actor, ids []string) (int, error) {
	if actor.UserID == "" {
		return 0, domain.ErrUserRequired
	}
	return s.repo.MarkRead(actor.UserID, ids, s.clock.Now())
}
