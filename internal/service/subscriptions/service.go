// Package subscriptions продаёт пакеты мероприятий и считает квоту организаторов.
package subscriptions

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const lockShards = 64

// EventCounter считает созданные организатором мероприятия.
type EventCounter interface {
	CountByOrganizer(organizerID string) (int32, error)
}

type Dependencies struct {
	Repo      domain.SubscriptionRepository
	Events    EventCounter
	Payments  domain.PaymentService
	Outbox    domain.OutboxRepository
	FreeQuota int32
	Clock     clock.Clock
	Logger    *log.Entry
}

// Service управляет пакетами, покупками и квотой на мероприятия.
type Service struct {
	repo      domain.SubscriptionRepository
	events    EventCounter
	payments  domain.PaymentService
	outbox    domain.OutboxRepository
	freeQuota int32
	clock     clock.Clock
	logger    *log.Entry

	locks [lockShards]sync.Mutex
}

// NewService создаёт сервис подписок. Отрицательная FreeQuota заменяется значением по умолчанию.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "subscriptions")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	free := deps.FreeQuota
	if free < 0 {
		free = domain.DefaultFreeEventQuota
	}
	return &Service{
		repo:      deps.Repo,
		events:    deps.Events,
		payments:  deps.Payments,
		outbox:    deps.Outbox,
		freeQuota: free,
		clock:     clk,
		logger:    logger,
	}
}

// SeedCatalog добавляет пакеты из каталога; уже существующие пропускаются.
func (s *Service) SeedCatalog(pkgs []domain.Package) (int, error) {
	now := s.clock.Now()
	created := 0
	for _, pkg := range pkgs {
		if pkg.CreatedAt.IsZero() {
			pkg.CreatedAt = now
		}
		err := s.repo.CreatePackage(pkg)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrAlreadyExists):
		default:
			return created, fmt.Errorf("seed package %s: %w", pkg.ID, err)
		}
	}
	if created > 0 {
		s.logger.WithField("packages", created).Info("package catalog seeded")
	}
	return created, nil
}

// CreatePackage добавляет пакет в каталог. Только для администратора.
func (s *Service) CreatePackage(actor domain.Actor, pkg domain.Package) (domain.Package, error) {
	if !actor.IsAdmin() {
		return domain.Package{}, domain.ErrForbidden
	}
	if pkg.ID == "" {
		pkg.ID = uuid.NewString()
	}
	pkg.Name = strings.TrimSpace(pkg.Name)
	pkg.Currency = strings.ToUpper(strings.TrimSpace(pkg.Currency))
	pkg.CreatedAt = s.clock.Now()
	if err := domain.ValidationError(pkg.Validate()); err != nil {
		return domain.Package{}, err
	}
	if err := s.repo.CreatePackage(pkg); err != nil {
		return domain.Package{}, err
	}
	return pkg, nil
}

// ListPackages возвращает каталог.
func (s *Service) ListPackages(activeOnly bool) ([]domain.Package, error) {
	return s.repo.ListPackages(activeOnly)
}

// Purchase списывает оплату и выдаёт подписку с кредитами на мероприятия.
func (s *Service) Purchase(actor domain.Actor, packageID string, method domain.PaymentMethod) (domain.Subscription, error) {
	if actor.UserID == "" {
		return domain.Subscription{}, domain.ErrUserRequired
	}
	if method == "" {
		method = domain.PaymentMethodCard
	}
	if !method.Valid() || method == domain.PaymentMethodCOD {
		return domain.Subscription{}, domain.ErrPaymentMethodInvalid
	}
	pkg, err := s.repo.GetPackage(packageID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if !pkg.Active {
		return domain.Subscription{}, domain.ErrPackageInactive
	}

	now := s.clock.Now()
	sub := domain.Subscription{
		ID:           uuid.NewString(),
		UserID:       actor.UserID,
		PackageID:    pkg.ID,
		EventCredits: pkg.EventCredits,
		PurchasedAt:  now,
		ExpiresAt:    now.Add(time.Duration(pkg.DurationDays) * 24 * time.Hour),
	}
	if pkg.PriceMinor > 0 {
		sub.PaymentID = "subscription:" + sub.ID
		status, err := s.payments.Pay(sub.PaymentID, method, pkg.PriceMinor, pkg.Currency)
		if err != nil {
			return domain.Subscription{}, fmt.Errorf("charge package %s: %w", pkg.ID, err)
		}
		if status != domain.PaymentStatusCaptured && status != domain.PaymentStatusAuthorized {
			return domain.Subscription{}, domain.ErrPaymentDeclined
		}
	}
	if err := s.repo.CreateSubscription(sub); err != nil {
		return domain.Subscription{}, err
	}

	s.enqueue(sub)
	s.logger.WithFields(log.Fields{
		"user_id":    sub.UserID,
		"package_id": pkg.ID,
		"credits":    sub.EventCredits,
	}).Info("package purchased")
	return sub, nil
}

// Subscriptions возвращает покупки пользователя, новые первыми.
func (s *Service) Subscriptions(actor domain.Actor) ([]domain.Subscription, error) {
	return s.repo.ListByUser(actor.UserID)
}

// Quota возвращает лимит пользователя на создание мероприятий.
func (s *Service) Quota(actor domain.Actor) (domain.Quota, error) {
	if actor.IsAdmin() || actor.Role == domain.RoleSystem {
		used, err := s.events.CountByOrganizer(actor.UserID)
		if err != nil {
			return domain.Quota{}, err
		}
		return domain.Quota{Used: used, Unlimited: true}, nil
	}
	subs, err := s.repo.ListByUser(actor.UserID)
	if err != nil {
		return domain.Quota{}, err
	}
	used, err := s.events.CountByOrganizer(actor.UserID)
	if err != nil {
		return domain.Quota{}, err
	}
	return domain.ComputeQuota(s.freeQuota, subs, used, s.clock.Now()), nil
}

// ConsumeEventCredit проверяет квоту и вызывает create под блокировкой пользователя,
// чтобы параллельные запросы не превысили лимит.
func (s *Service) ConsumeEventCredit(actor domain.Actor, create func() error) error {
	mu := s.lockFor(actor.UserID)
	mu.Lock()
	defer mu.Unlock()

	quota, err := s.Quota(actor)
	if err != nil {
		return err
	}
	if quota.Exhausted() {
		return fmt.Errorf("%w: %d of %d used", domain.ErrEventQuotaExceeded, quota.Used, quota.Allowed)
	}
	return create()
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockShards]
}

func (s *Service) enqueue(sub domain.Subscription) {
	if s.outbox == nil {
		return
	}
	msg, err := domain.NewOutboxMessage(domain.AggregateSubscription, sub.ID, domain.EventTypePackagePurchased, domain.PackagePurchasedPayload{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PackageID:      sub.PackageID,
		EventCredits:   sub.EventCredits,
		ExpiresAt:      sub.ExpiresAt,
		OccurredAt:     sub.PurchasedAt,
	})
	if err == nil {
		_, err = s.outbox.Enqueue(msg)
	}
	if err != nil {
		s.logger.WithError(err).WithField("subscription_id", sub.ID).Error("enqueue package purchased failed")
	}
}
