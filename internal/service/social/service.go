// Package social ведёт подписки между пользователями, отзывы и профили бизнеса.
package social

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ReviewInput описывает отзыв в запросе.
type ReviewInput struct {
	BusinessID string
	OrderID    string
	Rating     int32
	Comment    string
}

type Dependencies struct {
	Follows    domain.FollowRepository
	Reviews    domain.ReviewRepository
	Businesses domain.BusinessRepository
	Orders     domain.OrderRepository
	Outbox     domain.OutboxRepository
	Clock      clock.Clock
	Logger     *log.Entry
}

// Service реализует социальный граф и отзывы.
type Service struct {
	follows    domain.FollowRepository
	reviews    domain.ReviewRepository
	businesses domain.BusinessRepository
	orders     domain.OrderRepository
	outbox     domain.OutboxRepository
	clock      clock.Clock
	logger     *log.Entry
}

// NewService создаёт сервис.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "social")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		follows:    deps.Follows,
		reviews:    deps.Reviews,
		businesses: deps.Businesses,
		orders:     deps.Orders,
		outbox:     deps.Outbox,
		clock:      clk,
		logger:     logger,
	}
}

// Follow подписывает актора на followeeID. Возвращает false, если подписка уже была.
func (s *Service) Follow(actor domain.Actor, followeeID string) (bool, error) {
	followeeID = strings.TrimSpace(followeeID)
	if actor.UserID == "" || followeeID == "" {
		return false, domain.ErrUserRequired
	}
	if actor.UserID == followeeID {
		return false, domain.ErrSelfFollow
	}
	now := s.clock.Now()
	created, err := s.follows.Follow(actor.UserID, followeeID, now)
	if err != nil {
		return false, err
	}
	if created {
		s.enqueue(domain.AggregateUser, followeeID, domain.EventTypeUserFollowed, domain.UserFollowedPayload{
			FollowerID: actor.UserID,
			FolloweeID: followeeID,
			OccurredAt: now,
		})
	}
	return created, nil
}

// Unfollow снимает подписку. Возвращает false, если её не было.
func (s *Service) Unfollow(actor domain.Actor, followeeID string) (bool, error) {
	if actor.UserID == "" || followeeID == "" {
		return false, domain.ErrUserRequired
	}
	return s.follows.Unfollow(actor.UserID, followeeID)
}

// Followers возвращает подписчиков пользователя.
func (s *Service) Followers(userID string, limit, offset int) ([]string, error) {
	limit, offset = page(limit, offset)
	return s.follows.ListFollowers(userID, limit, offset)
}

// Following возвращает подписки пользователя.
func (s *Service) Following(userID string, limit, offset int) ([]string, error) {
	limit, offset = page(limit, offset)
	return s.follows.ListFollowing(userID, limit, offset)
}

// Counts возвращает число подписчиков и подписок.
func (s *Service) Counts(userID string) (domain.FollowCounts, error) {
	return s.follows.Counts(userID)
}

// UpsertBusiness создаёт или обновляет профиль бизнеса актора.
// Администратор может править любой профиль, указав ID и OwnerID.
func (s *Service) UpsertBusiness(actor domain.Actor, business domain.Business) (domain.Business, error) {
	switch {
	case actor.IsAdmin():
	case actor.Role == domain.RoleBusiness:
		business.ID = actor.EffectiveBusinessID()
		business.OwnerID = actor.UserID
	default:
		return domain.Business{}, domain.ErrForbidden
	}

	now := s.clock.Now()
	existing, err := s.businesses.Get(business.ID)
	switch {
	case err == nil:
		if !actor.IsAdmin() && existing.OwnerID != actor.UserID {
			return domain.Business{}, domain.ErrForbidden
		}
		business.CreatedAt = existing.CreatedAt
	case errors.Is(err, domain.ErrBusinessNotFound):
		business.CreatedAt = now
	default:
		return domain.Business{}, err
	}

	business.Name = strings.TrimSpace(business.Name)
	business.Address = strings.TrimSpace(business.Address)
	business.UpdatedAt = now
	if err := domain.ValidationError(business.Validate()); err != nil {
		return domain.Business{}, err
	}
	if err := s.businesses.Upsert(business); err != nil {
		return domain.Business{}, err
	}
	return business, nil
}

// Business возвращает профиль бизнеса.
func (s *Service) Business(id string) (domain.Business, error) {
	return s.businesses.Get(id)
}

// PostReview сохраняет отзыв. Повторный отзыв того же автора обновляет прежний.
func (s *Service) PostReview(actor domain.Actor, in ReviewInput) (domain.Review, error) {
	business, err := s.businesses.Get(in.BusinessID)
	if err != nil {
		return domain.Review{}, err
	}
	if business.OwnerID == actor.UserID {
		return domain.Review{}, domain.ErrForbidden
	}
	if in.OrderID != "" {
		if err := s.checkEligible(actor, in); err != nil {
			return domain.Review{}, err
		}
	}

	now := s.clock.Now()
	review := domain.Review{
		ID:         uuid.NewString(),
		BusinessID: in.BusinessID,
		AuthorID:   actor.UserID,
		OrderID:    in.OrderID,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := domain.ValidationError(review.Validate()); err != nil {
		return domain.Review{}, err
	}
	saved, err := s.reviews.Upsert(review)
	if err != nil {
		return domain.Review{}, err
	}

	s.enqueue(domain.AggregateBusiness, business.ID, domain.EventTypeReviewPosted, domain.ReviewPostedPayload{
		ReviewID:   saved.ID,
		BusinessID: business.ID,
		OwnerID:    business.OwnerID,
		AuthorID:   saved.AuthorID,
		Rating:     saved.Rating,
		OccurredAt: now,
	})
	return saved, nil
}

func (s *Service) checkEligible(actor domain.Actor, in ReviewInput) error {
	order, err := s.orders.Get(in.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.ErrReviewNotEligible
		}
		return err
	}
	if order.CustomerID != actor.UserID || order.BusinessID != in.BusinessID {
		return domain.ErrReviewNotEligible
	}
	if order.Status != domain.OrderStatusDelivered && order.Status != domain.OrderStatusCompleted {
		return domain.ErrReviewNotEligible
	}
	return nil
}

// Reviews возвращает последние отзывы и сводку оценок бизнеса.
func (s *Service) Reviews(businessID string, limit int) ([]domain.Review, domain.RatingSummary, error) {
	limit, _ = page(limit, 0)
	reviews, err := s.reviews.ListByBusiness(businessID, limit)
	if err != nil {
		return nil, domain.RatingSummary{}, err
	}
	summary, err := s.reviews.Summary(businessID)
	if err != nil {
		return nil, domain.RatingSummary{}, err
	}
	return reviews, summary, nil
}

func (s *Service) enqueue(aggregateType, aggregateID, eventType string, payload any) {
	if s.outbox == nil {
		return
	}
	msg, err := domain.NewOutboxMessage(aggregateType, aggregateID, eventType, payload)
	if err == nil {
		_, err = s.outbox.Enqueue(msg)
	}
	if err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("enqueue social event failed")
	}
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
