// Package orders содержит сценарии оформления и сопровождения заказов.
package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orderstatus"
	"github.com/vladislavdragonenkov/eventhub/internal/service/saga"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// DeliveryCoordinator покрывает часть сервиса доставки, нужную при смене статусов.
type DeliveryCoordinator interface {
	// IssueOTP выпускает код для COD-заказа и возвращает его открытым текстом.
	IssueOTP(order domain.Order) (string, error)
	// CompleteDelivery освобождает курьера после вручения или отмены.
	CompleteDelivery(order domain.Order)
}

// ItemInput описывает позицию заказа в запросе.
type ItemInput struct {
	SKU        string
	EventID    string
	Title      string
	Qty        int32
	PriceMinor int64
}

// CreateInput задаёт параметры нового заказа.
type CreateInput struct {
	BusinessID       string
	Kind             domain.OrderKind
	Currency         string
	Items            []ItemInput
	CouponCode       string
	PaymentMethod    domain.PaymentMethod
	DeliveryAddress  string
	DeliveryLocation domain.GeoPoint
}

// OrderView объединяет заказ и историю его статусов.
type OrderView struct {
	Order    domain.Order
	Timeline []domain.TimelineEvent
}

type Dependencies struct {
	Orders     domain.OrderRepository
	Timeline   domain.TimelineRepository
	Coupons    domain.CouponRepository
	Businesses domain.BusinessRepository
	Events     domain.EventRepository
	Saga       saga.Orchestrator
	Status     *orderstatus.Updater
	Delivery   DeliveryCoordinator
	Clock      clock.Clock
	Logger     *log.Entry
}

// Service реализует операции над заказами.
type Service struct {
	orders     domain.OrderRepository
	timeline   domain.TimelineRepository
	coupons    domain.CouponRepository
	businesses domain.BusinessRepository
	events     domain.EventRepository
	saga       saga.Orchestrator
	status     *orderstatus.Updater
	delivery   DeliveryCoordinator
	clock      clock.Clock
	logger     *log.Entry
}

// NewService конструирует сервис заказов.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		orders:     deps.Orders,
		timeline:   deps.Timeline,
		coupons:    deps.Coupons,
		businesses: deps.Businesses,
		events:     deps.Events,
		saga:       deps.Saga,
		status:     deps.Status,
		delivery:   deps.Delivery,
		clock:      clk,
		logger:     logger,
	}
}

// Quote рассчитывает стоимость без создания заказа.
func (s *Service) Quote(actor domain.Actor, in CreateInput) (domain.Quote, error) {
	order, err := s.draft(actor, in)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		SubtotalMinor:    order.SubtotalMinor,
		DiscountMinor:    order.DiscountMinor,
		DeliveryFeeMinor: order.DeliveryFeeMinor,
		TotalMinor:       order.AmountMinor,
		DistanceKm:       order.Delivery.DistanceKm,
	}, nil
}

// Create проверяет и сохраняет заказ, списывая использование промокода.
func (s *Service) Create(actor domain.Actor, in CreateInput) (domain.Order, error) {
	order, err := s.draft(actor, in)
	if err != nil {
		return domain.Order{}, err
	}

	if order.CouponCode != "" {
		if err := s.coupons.Redeem(order.BusinessID, order.CouponCode); err != nil {
			return domain.Order{}, fmt.Errorf("redeem coupon: %w", err)
		}
	}
	if err := s.orders.Create(order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to create order")
		if order.CouponCode != "" {
			if relErr := s.coupons.Release(order.BusinessID, order.CouponCode); relErr != nil {
				s.logger.WithError(relErr).WithField("coupon", order.CouponCode).Warn("coupon release after failed create")
			}
		}
		return domain.Order{}, err
	}

	s.status.RecordCreated(order, actor)
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"business_id": order.BusinessID,
		"kind":        order.Kind,
	}).Info("order created")
	return order, nil
}

// draft строит заказ с ценами, скидкой и стоимостью доставки.
func (s *Service) draft(actor domain.Actor, in CreateInput) (domain.Order, error) {
	if actor.UserID == "" {
		return domain.Order{}, domain.ErrCustomerRequired
	}
	now := s.clock.Now()

	order := domain.Order{
		ID:            uuid.NewString(),
		CustomerID:    actor.UserID,
		BusinessID:    strings.TrimSpace(in.BusinessID),
		Kind:          in.Kind,
		Status:        domain.OrderStatusPending,
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
		PaymentMethod: in.PaymentMethod,
		CouponCode:    domain.NormalizeCouponCode(in.CouponCode),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var err error
	switch in.Kind {
	case domain.OrderKindTicket:
		err = s.priceTickets(&order, in.Items, now)
	case domain.OrderKindGoods:
		err = s.priceGoods(&order, in, now)
	default:
		err = domain.ValidationError([]error{domain.ErrOrderKindInvalid})
	}
	if err != nil {
		return domain.Order{}, err
	}

	order.SubtotalMinor = order.ItemsSubtotal()
	if order.CouponCode != "" {
		coupon, err := s.coupons.Get(order.BusinessID, order.CouponCode)
		if err != nil {
			return domain.Order{}, err
		}
		discount, err := coupon.Discount(order.SubtotalMinor, now)
		if err != nil {
			return domain.Order{}, err
		}
		order.DiscountMinor = discount
	}
	order.AmountMinor = order.SubtotalMinor - order.DiscountMinor + order.DeliveryFeeMinor

	if err := domain.ValidationError(order.ValidateInvariants()); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// priceTickets берёт цену и продавца из мероприятий, а не из запроса.
func (s *Service) priceTickets(order *domain.Order, items []ItemInput, now time.Time) error {
	if len(items) == 0 {
		return domain.ValidationError([]error{domain.ErrItemsRequired})
	}
	for idx, item := range items {
		if item.EventID == "" {
			return domain.ValidationError([]error{fmt.Errorf("item[%d]: %w", idx, domain.ErrItemEventRequired)})
		}
		event, err := s.events.Get(item.EventID)
		if err != nil {
			return err
		}
		if !event.OpenForRegistration(now) {
			return fmt.Errorf("event %s: %w", event.ID, domain.ErrEventNotOpen)
		}
		seller := event.BusinessID
		if seller == "" {
			seller = event.OrganizerID
		}
		if order.BusinessID == "" {
			order.BusinessID = seller
		}
		if seller != order.BusinessID {
			return domain.ValidationError([]error{fmt.Errorf("item[%d]: tickets must belong to one seller", idx)})
		}
		if order.Currency == "" {
			order.Currency = event.Currency
		}
		if event.Currency != "" && event.Currency != order.Currency {
			return domain.ValidationError([]error{fmt.Errorf("item[%d]: currency mismatch", idx)})
		}
		order.Items = append(order.Items, domain.OrderItem{
			ID:         uuid.NewString(),
			SKU:        "ticket:" + event.ID,
			EventID:    event.ID,
			Title:      event.Title,
			Qty:        item.Qty,
			PriceMinor: event.PriceMinor,
			CreatedAt:  now,
		})
	}
	return nil
}

// priceGoods копирует позиции и считает доставку от бизнеса до точки вручения.
func (s *Service) priceGoods(order *domain.Order, in CreateInput, now time.Time) error {
	if order.BusinessID == "" {
		return domain.ValidationError([]error{domain.ErrBusinessRequired})
	}
	business, err := s.businesses.Get(order.BusinessID)
	if err != nil {
		return err
	}
	if err := in.DeliveryLocation.Validate(); err != nil {
		return domain.ValidationError([]error{err})
	}

	for _, item := range in.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:         uuid.NewString(),
			SKU:        strings.TrimSpace(item.SKU),
			Title:      item.Title,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			CreatedAt:  now,
		})
	}

	distance := domain.DistanceKm(business.Location, in.DeliveryLocation)
	order.Delivery = domain.Delivery{
		Address:    strings.TrimSpace(in.DeliveryAddress),
		Location:   in.DeliveryLocation,
		Pickup:     business.Location,
		DistanceKm: distance,
	}
	order.DeliveryFeeMinor = domain.DeliveryFee(distance)
	return nil
}

// Pay запускает сагу оформления. Вызывать может только покупатель или администратор.
func (s *Service) Pay(actor domain.Actor, orderID string) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.CustomerID != actor.UserID && !actor.IsAdmin() {
		return domain.Order{}, domain.ErrForbidden
	}
	result, err := s.saga.Start(order.ID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("checkout saga failed")
		return result, err
	}
	return result, nil
}

// Cancel отменяет заказ от имени вызывающего.
func (s *Service) Cancel(actor domain.Actor, orderID, reason string) (domain.Order, error) {
	order, role, err := s.loadForActor(actor, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return s.saga.Cancel(order.ID, withRole(actor, role), reason)
}

// Refund возвращает деньги по заказу. Доступно бизнесу заказа и администратору.
func (s *Service) Refund(actor domain.Actor, orderID, reason string) (domain.Order, error) {
	order, role, err := s.loadForActor(actor, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return s.saga.Refund(order.ID, withRole(actor, role), reason)
}

// UpdateStatus проводит заказ по таблице переходов от имени бизнеса, курьера или администратора.
func (s *Service) UpdateStatus(actor domain.Actor, orderID string, to domain.OrderStatus, reason string) (domain.Order, error) {
	order, role, err := s.loadForActor(actor, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	acting := withRole(actor, role)

	switch to {
	case domain.OrderStatusCanceled:
		return s.Cancel(actor, orderID, reason)
	case domain.OrderStatusRejected:
		return s.saga.Reject(order.ID, acting, reason)
	case domain.OrderStatusRefunded:
		return s.saga.Refund(order.ID, acting, reason)
	}

	change := orderstatus.Change{To: to, Actor: acting, Reason: reason}
	switch to {
	case domain.OrderStatusOutForDelivery:
		if order.Status == to {
			return order, nil
		}
		if err := domain.CanTransition(order.Status, to, role); err != nil {
			return order, err
		}
		if order.Delivery.PartnerID == "" {
			return order, fmt.Errorf("order %s has no delivery partner: %w", order.ID, domain.ErrOrderNotDeliverable)
		}
		if order.IsCOD() && s.delivery != nil {
			code, err := s.delivery.IssueOTP(order)
			if err != nil {
				return order, err
			}
			change.DeliveryOTP = code
		}
	case domain.OrderStatusDelivered:
		if order.IsCOD() && order.Status != to {
			return order, domain.ErrOTPRequired
		}
	}

	if _, err := s.status.Apply(&order, change); err != nil {
		return order, err
	}
	if to == domain.OrderStatusDelivered && s.delivery != nil {
		s.delivery.CompleteDelivery(order)
	}
	return order, nil
}

// Get возвращает заказ с историей. Читать могут участники заказа и администратор.
func (s *Service) Get(actor domain.Actor, orderID string) (OrderView, error) {
	order, _, err := s.loadForActor(actor, orderID)
	if err != nil {
		return OrderView{}, err
	}
	view := OrderView{Order: order}
	if s.timeline != nil {
		events, err := s.timeline.List(order.ID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to list timeline events")
		}
		view.Timeline = events
	}
	return view, nil
}

// List возвращает заказы покупателя, а владельцу бизнеса заказы его бизнеса.
func (s *Service) List(actor domain.Actor, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if actor.Role == domain.RoleBusiness {
		return s.orders.ListByBusiness(actor.EffectiveBusinessID(), limit)
	}
	return s.orders.ListByCustomer(actor.UserID, limit)
}

// loadForActor загружает заказ и определяет, в какой роли актор с ним работает.
func (s *Service) loadForActor(actor domain.Actor, orderID string) (domain.Order, domain.Role, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, "", err
	}
	role, err := ResolveRole(actor, order)
	if err != nil {
		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"user_id":  actor.UserID,
		}).Warn("access to order denied")
		return domain.Order{}, "", err
	}
	return order, role, nil
}

// ResolveRole определяет роль актора относительно заказа.
// Приоритет: администратор, владелец бизнеса, назначенный курьер, покупатель.
func ResolveRole(actor domain.Actor, order domain.Order) (domain.Role, error) {
	switch {
	case actor.Role == domain.RoleSystem:
		return domain.RoleSystem, nil
	case actor.IsAdmin():
		return domain.RoleAdmin, nil
	case actor.OwnsBusiness(order.BusinessID):
		return domain.RoleBusiness, nil
	case actor.Role == domain.RolePartner && order.Delivery.PartnerID != "" && order.Delivery.PartnerID == actor.UserID:
		return domain.RolePartner, nil
	case actor.UserID != "" && actor.UserID == order.CustomerID:
		return domain.RoleUser, nil
	default:
		return "", domain.ErrForbidden
	}
}

func withRole(actor domain.Actor, role domain.Role) domain.Actor {
	actor.Role = role
	return actor
}
