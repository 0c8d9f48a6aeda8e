package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"time"
)

// DeliveryPartner описывает курьера, которого можно назначить на заказ.
type DeliveryPartner struct {
	ID           string
	Name         string
	Location     GeoPoint
	Available    bool
	ActiveOrders int32
	LastSeenAt   time.Time
	UpdatedAt    time.Time
}

// PartnerCandidate дополняет курьера расстоянием до точки забора.
type PartnerCandidate struct {
	Partner    DeliveryPartner
	DistanceKm float64
}

// SelectNearestPartner выбирает ближайшего доступного курьера в пределах радиуса.
// При равном расстоянии предпочтение получает курьер с меньшим числом активных заказов,
// затем с меньшим идентификатором.
func SelectNearestPartner(partners []DeliveryPartner, pickup GeoPoint, maxRadiusKm float64) (PartnerCandidate, error) {
	candidates := RankPartners(partners, pickup, maxRadiusKm)
	if len(candidates) == 0 {
		return PartnerCandidate{}, ErrNoPartnerAvailable
	}
	return candidates[0], nil
}

// RankPartners сортирует доступных курьеров по расстоянию.
func RankPartners(partners []DeliveryPartner, pickup GeoPoint, maxRadiusKm float64) []PartnerCandidate {
	candidates := make([]PartnerCandidate, 0, len(partners))
	for _, p := range partners {
		if !p.Available {
			continue
		}
		d := DistanceKm(pickup, p.Location)
		if maxRadiusKm > 0 && d > maxRadiusKm {
			continue
		}
		candidates = append(candidates, PartnerCandidate{Partner: p, DistanceKm: d})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		// Сравниваем с точностью до метра, чтобы шум float не ломал tie-break.
		da, db := roundMeters(a.DistanceKm), roundMeters(b.DistanceKm)
		if da != db {
			return da < db
		}
		if a.Partner.ActiveOrders != b.Partner.ActiveOrders {
			return a.Partner.ActiveOrders < b.Partner.ActiveOrders
		}
		return a.Partner.ID < b.Partner.ID
	})
	return candidates
}

func roundMeters(km float64) int64 {
	return int64(km*1000 + 0.5)
}

// OTPLength задаёт число цифр в коде подтверждения доставки.
const OTPLength = 6

// DeliveryOTP хранит хэш кода подтверждения COD-доставки.
type DeliveryOTP struct {
	OrderID      string
	CodeHash     []byte
	ExpiresAt    time.Time
	AttemptsLeft int32
	CreatedAt    time.Time
}

// Expired сообщает, истёк ли срок действия кода.
func (o DeliveryOTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// GenerateOTPCode возвращает случайный шестизначный код.
func GenerateOTPCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}
