package eventhubv1

import "time"

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Event struct {
	ID            string    `json:"id"`
	OrganizerID   string    `json:"organizer_id"`
	BusinessID    string    `json:"business_id,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Address       string    `json:"address,omitempty"`
	Location      GeoPoint  `json:"location"`
	Capacity      int32     `json:"capacity"`
	SeatsReserved int32     `json:"seats_reserved"`
	SeatsTaken    int32     `json:"seats_taken"`
	PriceMinor    int64     `json:"price_minor"`
	Currency      string    `json:"currency,omitempty"`
	Status        string    `json:"status"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	// DistanceKm заполняется при поиске рядом с точкой.
	DistanceKm float64 `json:"distance_km,omitempty"`
}

type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	OrderID   string    `json:"order_id,omitempty"`
	Seats     int32     `json:"seats"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderItem struct {
	ID         string `json:"id,omitempty"`
	SKU        string `json:"sku,omitempty"`
	EventID    string `json:"event_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

type Delivery struct {
	Address     string     `json:"address,omitempty"`
	Location    GeoPoint   `json:"location"`
	Pickup      GeoPoint   `json:"pickup"`
	DistanceKm  float64    `json:"distance_km"`
	PartnerID   string     `json:"partner_id,omitempty"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

type Order struct {
	ID               string      `json:"id"`
	CustomerID       string      `json:"customer_id"`
	BusinessID       string      `json:"business_id"`
	Kind             string      `json:"kind"`
	Status           string      `json:"status"`
	Currency         string      `json:"currency"`
	SubtotalMinor    int64       `json:"subtotal_minor"`
	DiscountMinor    int64       `json:"discount_minor"`
	DeliveryFeeMinor int64       `json:"delivery_fee_minor"`
	AmountMinor      int64       `json:"amount_minor"`
	CouponCode       string      `json:"coupon_code,omitempty"`
	PaymentMethod    string      `json:"payment_method"`
	PaymentStatus    string      `json:"payment_status,omitempty"`
	Delivery         *Delivery   `json:"delivery,omitempty"`
	Items            []OrderItem `json:"items"`
	Version          int64       `json:"version"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type TimelineEntry struct {
	Type       string    `json:"type"`
	Reason     string    `json:"reason,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Quote struct {
	SubtotalMinor    int64   `json:"subtotal_minor"`
	DiscountMinor    int64   `json:"discount_minor"`
	DeliveryFeeMinor int64   `json:"delivery_fee_minor"`
	TotalMinor       int64   `json:"total_minor"`
	DistanceKm       float64 `json:"distance_km"`
}

type Coupon struct {
	BusinessID       string     `json:"business_id"`
	Code             string     `json:"code"`
	Kind             string     `json:"kind"`
	Value            int64      `json:"value"`
	MinSubtotalMinor int64      `json:"min_subtotal_minor,omitempty"`
	MaxDiscountMinor int64      `json:"max_discount_minor,omitempty"`
	ValidFrom        *time.Time `json:"valid_from,omitempty"`
	ValidUntil       *time.Time `json:"valid_until,omitempty"`
	UsageLimit       int32      `json:"usage_limit,omitempty"`
	UsedCount        int32      `json:"used_count"`
}

type Partner struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Location     GeoPoint  `json:"location"`
	Available    bool      `json:"available"`
	ActiveOrders int32     `json:"active_orders"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

type Chat struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Title         string     `json:"title,omitempty"`
	EventID       string     `json:"event_id,omitempty"`
	Participants  []string   `json:"participants"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	LastSeq       int64      `json:"last_seq"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Seq       int64     `json:"seq"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Business struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Location  GeoPoint  `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Review struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	AuthorID   string    `json:"author_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Rating     int32     `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RatingSummary struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
	// Histogram[i] хранит число оценок i+1.
	Histogram []int64 `json:"histogram"`
}

type Package struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	EventCredits int32  `json:"event_credits"`
	PriceMinor   int64  `json:"price_minor"`
	Currency     string `json:"currency"`
	DurationDays int32  `json:"duration_days"`
	Active       bool   `json:"active"`
}

type Subscription struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	PackageID    string    `json:"package_id"`
	EventCredits int32     `json:"event_credits"`
	PurchasedAt  time.Time `json:"purchased_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	PaymentID    string    `json:"payment_id,omitempty"`
}

type Quota struct {
	Allowed   int32 `json:"allowed"`
	Used      int32 `json:"used"`
	Unlimited bool  `json:"unlimited"`
	// Remaining равно -1 при Unlimited.
	Remaining int32 `json:"remaining"`
}

type Notification struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	ReferenceID string     `json:"reference_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
