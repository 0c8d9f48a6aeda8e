// Package delivery назначает курьеров и подтверждает вручение COD-заказов кодом.
package delivery

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/metrics"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orderstatus"
)

const (
	DefaultOTPTTL         = 15 * time.Minute
	DefaultOTPMaxAttempts = 5
	DefaultMaxRadiusKm    = 15.0
)

// Config задаёт параметры назначения курьера и OTP.
type Config struct {
	OTPTTL         time.Duration
	OTPMaxAttempts int32
	MaxRadiusKm    float64
	// BcryptCost по умолчанию bcrypt.DefaultCost; в тестах можно понизить до bcrypt.MinCost.
	BcryptCost int
}

func (c Config) withDefaults() Config {
	if c.OTPTTL <= 0 {
		c.OTPTTL = DefaultOTPTTL
	}
	if c.OTPMaxAttempts <= 0 {
		c.OTPMaxAttempts = DefaultOTPMaxAttempts
	}
	if c.MaxRadiusKm <= 0 {
		c.MaxRadiusKm = DefaultMaxRadiusKm
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	return c
}

type Dependencies struct {
	Partners domain.PartnerRepository
	Orders   domain.OrderRepository
	OTPs     domain.OTPStore
	Payments domain.PaymentService
	Status   *orderstatus.Updater
	Metrics  *metrics.DomainMetrics
	Clock    clock.Clock
	Logger   *log.Entry
}

// Service управляет курьерами и вручением заказов.
type Service struct {
	cfg      Config
	partners domain.PartnerRepository
	orders   domain.OrderRepository
	otps     domain.OTPStore
	payments domain.PaymentService
	status   *orderstatus.Updater
	metrics  *metrics.DomainMetrics
	clock    clock.Clock
	logger   *log.Entry
}

// NewService создаёт сервис доставки.
func NewService(cfg Config, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "delivery")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		partners: deps.Partners,
		orders:   deps.Orders,
		otps:     deps.OTPs,
		payments: deps.Payments,
		status:   deps.Status,
		metrics:  deps.Metrics,
		clock:    clk,
		logger:   logger,
	}
}

// UpdateLocation сохраняет координаты курьера. Первый вызов регистрирует курьера.
func (s *Service) UpdateLocation(actor domain.Actor, location domain.GeoPoint) (domain.DeliveryPartner, error) {
	if err := location.Validate(); err != nil {
		return domain.DeliveryPartner{}, err
	}
	return s.updatePartner(actor, func(p *domain.DeliveryPartner) {
		p.Location = location
	})
}

// SetAvailability включает или выключает приём заказов.
func (s *Service) SetAvailability(actor domain.Actor, available bool, name string) (domain.DeliveryPartner, error) {
	return s.updatePartner(actor, func(p *domain.DeliveryPartner) {
		p.Available = available
		if name = strings.TrimSpace(name); name != "" {
			p.Name = name
		}
	})
}

func (s *Service) updatePartner(actor domain.Actor, apply func(*domain.DeliveryPartner)) (domain.DeliveryPartner, error) {
	if actor.Role != domain.RolePartner {
		return domain.DeliveryPartner{}, domain.ErrForbidden
	}
	now := s.clock.Now()

	partner, err := s.partners.Get(actor.UserID)
	switch {
	case errors.Is(err, domain.ErrPartnerNotFound):
		partner = domain.DeliveryPartner{ID: actor.UserID, Name: actor.UserID}
	case err != nil:
		return domain.DeliveryPartner{}, err
	}

	apply(&partner)
	partner.LastSeenAt = now
	partner.UpdatedAt = now
	if err := s.partners.Upsert(partner); err != nil {
		return domain.DeliveryPartner{}, err
	}
	return s.partners.Get(partner.ID)
}

// Assign назначает ближайшего свободного курьера на готовый товарный заказ.
// Повторное назначение возвращает текущего курьера.
func (s *Service) Assign(actor domain.Actor, orderID string) (domain.Order, domain.DeliveryPartner, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, domain.DeliveryPartner{}, err
	}
	if !actor.IsAdmin() && !actor.OwnsBusiness(order.BusinessID) {
		return domain.Order{}, domain.DeliveryPartner{}, domain.ErrForbidden
	}
	if order.Delivery.PartnerID != "" {
		partner, err := s.partners.Get(order.Delivery.PartnerID)
		return order, partner, err
	}
	if order.Kind != domain.OrderKindGoods || order.Status != domain.OrderStatusReady {
		return order, domain.DeliveryPartner{}, fmt.Errorf("order %s in status %s: %w", order.ID, order.Status, domain.ErrOrderNotDeliverable)
	}

	pickup := order.Delivery.Pickup
	available, err := s.partners.ListAvailable(domain.BoundingBoxAround(pickup, s.cfg.MaxRadiusKm))
	if err != nil {
		return order, domain.DeliveryPartner{}, err
	}
	candidate, err := domain.SelectNearestPartner(available, pickup, s.cfg.MaxRadiusKm)
	if err != nil {
		s.metrics.RecordPartnerAssignment("unavailable")
		s.logger.WithField("order_id", order.ID).Warn("no delivery partner in range")
		return order, domain.DeliveryPartner{}, err
	}

	partner := candidate.Partner
	if err := s.partners.AdjustActiveOrders(partner.ID, 1); err != nil {
		return order, domain.DeliveryPartner{}, err
	}
	now := s.clock.Now()
	err = s.status.Save(&order, func(o *domain.Order) error {
		if o.Delivery.PartnerID != "" {
			return fmt.Errorf("order %s already assigned: %w", o.ID, domain.ErrAlreadyExists)
		}
		o.Delivery.PartnerID = partner.ID
		o.Delivery.AssignedAt = now
		return nil
	})
	if err != nil {
		if adjErr := s.partners.AdjustActiveOrders(partner.ID, -1); adjErr != nil {
			s.logger.WithError(adjErr).WithField("partner_id", partner.ID).Warn("failed to roll back partner load")
		}
		return order, domain.DeliveryPartner{}, err
	}

	s.metrics.RecordPartnerAssignment("assigned")
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"partner_id":  partner.ID,
		"distance_km": candidate.DistanceKm,
	}).Info("delivery partner assigned")
	partner.ActiveOrders++
	return order, partner, nil
}

// IssueOTP выпускает одноразовый код вручения. Хранится только bcrypt-хэш.
func (s *Service) IssueOTP(order domain.Order) (string, error) {
	code, err := domain.GenerateOTPCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}
	now := s.clock.Now()
	err = s.otps.Put(domain.DeliveryOTP{
		OrderID:      order.ID,
		CodeHash:     hash,
		ExpiresAt:    now.Add(s.cfg.OTPTTL),
		AttemptsLeft: s.cfg.OTPMaxAttempts,
		CreatedAt:    now,
	})
	if err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	s.logger.WithField("order_id", order.ID).Info("delivery otp issued")
	return code, nil
}

// CompleteDelivery освобождает курьера и удаляет код.
func (s *Service) CompleteDelivery(order domain.Order) {
	if order.Delivery.PartnerID != "" {
		if err := s.partners.AdjustActiveOrders(order.Delivery.PartnerID, -1); err != nil {
			s.logger.WithError(err).WithField("partner_id", order.Delivery.PartnerID).Warn("failed to release partner")
		}
	}
	if err := s.otps.Delete(order.ID); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to delete otp")
	}
}

// VerifyOTP проверяет код, названный клиентом курьеру. Успех переводит заказ в delivered
// и фиксирует получение наличных.
func (s *Service) VerifyOTP(actor domain.Actor, orderID, code string) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	assigned := actor.Role == domain.RolePartner && actor.UserID == order.Delivery.PartnerID
	if !assigned && !actor.IsAdmin() {
		return order, domain.ErrForbidden
	}
	if !order.IsCOD() || order.Status != domain.OrderStatusOutForDelivery {
		return order, fmt.Errorf("order %s in status %s: %w", order.ID, order.Status, domain.ErrOrderNotDeliverable)
	}

	otp, err := s.otps.Get(order.ID)
	if err != nil {
		return order, err
	}
	if otp.Expired(s.clock.Now()) {
		s.metrics.RecordOTPVerification("expired")
		return order, domain.ErrOTPExpired
	}

	// Попытка списывается до сравнения: параллельные угадывания не выходят за лимит.
	left, err := s.otps.ConsumeAttempt(order.ID)
	if err != nil {
		return order, err
	}
	if left < 0 {
		s.metrics.RecordOTPVerification("locked")
		return order, domain.ErrOTPLocked
	}

	if err := bcrypt.CompareHashAndPassword(otp.CodeHash, []byte(strings.TrimSpace(code))); err != nil {
		s.logger.WithFields(log.Fields{
			"order_id":      order.ID,
			"attempts_left": left,
		}).Warn("delivery otp mismatch")
		if left == 0 {
			s.metrics.RecordOTPVerification("locked")
			return order, domain.ErrOTPLocked
		}
		s.metrics.RecordOTPVerification("mismatch")
		return order, fmt.Errorf("%w: %d attempts left", domain.ErrOTPMismatch, left)
	}

	paymentStatus, err := s.payments.Capture(order.ID)
	if err != nil {
		return order, fmt.Errorf("capture cash payment: %w", err)
	}
	_, err = s.status.Apply(&order, orderstatus.Change{
		To:     domain.OrderStatusDelivered,
		Actor:  domain.Actor{UserID: actor.UserID, Role: domain.RolePartner},
		Reason: "cash collected",
		Mutate: func(o *domain.Order) error {
			o.PaymentStatus = paymentStatus
			return nil
		},
	})
	if err != nil {
		return order, err
	}

	s.metrics.RecordOTPVerification("success")
	s.CompleteDelivery(order)
	return order, nil
}

// Partner возвращает профиль курьера.
func (s *Service) Partner(id string) (domain.DeliveryPartner, error) {
	return s.partners.Get(id)
}
