package domain

import (
	"strings"
	"time"
)

// DefaultFreeEventQuota мероприятий доступно без подписки.
const DefaultFreeEventQuota = 2

// Package описывает тарифный пакет, дающий право создавать мероприятия.
type Package struct {
	ID           string
	Name         string
	EventCredits int32
	PriceMinor   int64
	Currency     string
	DurationDays int32
	Active       bool
	CreatedAt    time.Time
}

// Validate проверяет описание пакета.
func (p *Package) Validate() []error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrPackageInvalid)
	}
	if p.EventCredits <= 0 || p.DurationDays <= 0 {
		errs = append(errs, ErrPackageInvalid)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if p.PriceMinor > 0 && p.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}

	return errs
}

// Subscription фиксирует купленный пользователем пакет.
type Subscription struct {
	ID           string
	UserID       string
	PackageID    string
	EventCredits int32
	PurchasedAt  time.Time
	ExpiresAt    time.Time
	PaymentID    string
}

// ActiveAt сообщает, действует ли подписка в момент now.
func (s Subscription) ActiveAt(now time.Time) bool {
	return !now.Before(s.PurchasedAt) && now.Before(s.ExpiresAt)
}

// Quota ограничивает создание мероприятий.
type Quota struct {
	Allowed   int32
	Used      int32
	Unlimited bool
}

// Remaining возвращает количество оставшихся мероприятий; -1 без лимита.
func (q Quota) Remaining() int32 {
	if q.Unlimited {
		return -1
	}
	if q.Used >= q.Allowed {
		return 0
	}
	return q.Allowed - q.Used
}

// Exhausted сообщает, что новых мероприятий создать нельзя.
func (q Quota) Exhausted() bool {
	return !q.Unlimited && q.Used >= q.Allowed
}

// ComputeQuota складывает бесплатную квоту и кредиты действующих подписок.
func ComputeQuota(freeQuota int32, subs []Subscription, used int32, now time.Time) Quota {
	allowed := freeQuota
	for _, s := range subs {
		if s.ActiveAt(now) {
			allowed += s.EventCredits
		}
	}
	return Quota{Allowed: allowed, Used: used}
}
