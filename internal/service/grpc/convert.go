package grpcsvc

import (
	"time"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/service/events"
	"github.com/vladislavdragonenkov/eventhub/internal/service/orders"
)

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func valueTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func toAPIPoint(p domain.GeoPoint) eventhubv1.GeoPoint {
	return eventhubv1.GeoPoint{Lat: p.Lat, Lng: p.Lng}
}

func fromAPIPoint(p eventhubv1.GeoPoint) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat, Lng: p.Lng}
}

func toAPIEvent(e domain.Event, near *domain.GeoPoint) eventhubv1.Event {
	out := eventhubv1.Event{
		ID:            e.ID,
		OrganizerID:   e.OrganizerID,
		BusinessID:    e.BusinessID,
		Title:         e.Title,
		Description:   e.Description,
		Category:      e.Category,
		StartsAt:      e.StartsAt.UTC(),
		EndsAt:        e.EndsAt.UTC(),
		Address:       e.Address,
		Location:      toAPIPoint(e.Location),
		Capacity:      e.Capacity,
		SeatsReserved: e.SeatsReserved,
		SeatsTaken:    e.SeatsTaken,
		PriceMinor:    e.PriceMinor,
		Currency:      e.Currency,
		Status:        string(e.Status),
		Version:       e.Version,
		CreatedAt:     e.CreatedAt.UTC(),
		UpdatedAt:     e.UpdatedAt.UTC(),
	}
	if near != nil {
		out.DistanceKm = domain.DistanceKm(*near, e.Location)
	}
	return out
}

func fromAPIEventInput(in eventhubv1.EventInput) events.Input {
	return events.Input{
		BusinessID:  in.BusinessID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		StartsAt:    in.StartsAt.UTC(),
		EndsAt:      in.EndsAt.UTC(),
		Address:     in.Address,
		Location:    fromAPIPoint(in.Location),
		Capacity:    in.Capacity,
		PriceMinor:  in.PriceMinor,
		Currency:    in.Currency,
	}
}

func fromAPIEventFilter(req *eventhubv1.ListEventsRequest) domain.EventFilter {
	filter := domain.EventFilter{
		Category:    req.Category,
		OrganizerID: req.OrganizerID,
		Query:       req.Query,
		From:        valueTime(req.From),
		To:          valueTime(req.To),
		RadiusKm:    req.RadiusKm,
		Limit:       int(req.Limit),
		Offset:      int(req.Offset),
	}
	for _, s := range req.Statuses {
		filter.Statuses = append(filter.Statuses, domain.EventStatus(s))
	}
	if req.Near != nil {
		near := fromAPIPoint(*req.Near)
		filter.Near = &near
	}
	return filter
}

func toAPIRegistration(r domain.Registration) eventhubv1.Registration {
	return eventhubv1.Registration{
		ID:        r.ID,
		EventID:   r.EventID,
		UserID:    r.UserID,
		OrderID:   r.OrderID,
		Seats:     r.Seats,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func toAPIOrder(o domain.Order) eventhubv1.Order {
	items := make([]eventhubv1.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, eventhubv1.OrderItem{
			ID:         item.ID,
			SKU:        item.SKU,
			EventID:    item.EventID,
			Title:      item.Title,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}

	out := eventhubv1.Order{
		ID:               o.ID,
		CustomerID:       o.CustomerID,
		BusinessID:       o.BusinessID,
		Kind:             string(o.Kind),
		Status:           string(o.Status),
		Currency:         o.Currency,
		SubtotalMinor:    o.SubtotalMinor,
		DiscountMinor:    o.DiscountMinor,
		DeliveryFeeMinor: o.DeliveryFeeMinor,
		AmountMinor:      o.AmountMinor,
		CouponCode:       o.CouponCode,
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		Items:            items,
		Version:          o.Version,
		CreatedAt:        o.CreatedAt.UTC(),
		UpdatedAt:        o.UpdatedAt.UTC(),
	}
	if o.Kind == domain.OrderKindGoods {
		out.Delivery = &eventhubv1.Delivery{
			Address:     o.Delivery.Address,
			Location:    toAPIPoint(o.Delivery.Location),
			Pickup:      toAPIPoint(o.Delivery.Pickup),
			DistanceKm:  o.Delivery.DistanceKm,
			PartnerID:   o.Delivery.PartnerID,
			AssignedAt:  optionalTime(o.Delivery.AssignedAt),
			DeliveredAt: optionalTime(o.Delivery.DeliveredAt),
		}
	}
	return out
}

func toAPIOrders(list []domain.Order) []eventhubv1.Order {
	out := make([]eventhubv1.Order, 0, len(list))
	for _, o := range list {
		out = append(out, toAPIOrder(o))
	}
	return out
}

func toAPITimeline(list []domain.TimelineEvent) []eventhubv1.TimelineEntry {
	out := make([]eventhubv1.TimelineEntry, 0, len(list))
	for _, e := range list {
		out = append(out, eventhubv1.TimelineEntry{
			Type:       e.Type,
			Reason:     e.Reason,
			ActorID:    e.ActorID,
			OccurredAt: e.Occurred.UTC(),
		})
	}
	return out
}

func fromAPICreateOrder(req *eventhubv1.CreateOrderRequest) orders.CreateInput {
	items := make([]orders.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, orders.ItemInput{
			SKU:        item.SKU,
			EventID:    item.EventID,
			Title:      item.Title,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}
	in := orders.CreateInput{
		BusinessID:      req.BusinessID,
		Kind:            domain.OrderKind(req.Kind),
		Currency:        req.Currency,
		Items:           items,
		CouponCode:      req.CouponCode,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		DeliveryAddress: req.DeliveryAddress,
	}
	if req.DeliveryLocation != nil {
		in.DeliveryLocation = fromAPIPoint(*req.DeliveryLocation)
	}
	return in
}

func toAPIQuote(q domain.Quote) eventhubv1.Quote {
	return eventhubv1.Quote{
		SubtotalMinor:    q.SubtotalMinor,
		DiscountMinor:    q.DiscountMinor,
		DeliveryFeeMinor: q.DeliveryFeeMinor,
		TotalMinor:       q.TotalMinor,
		DistanceKm:       q.DistanceKm,
	}
}

func toAPICoupon(c domain.Coupon) eventhubv1.Coupon {
	return eventhubv1.Coupon{
		BusinessID:       c.BusinessID,
		Code:             c.Code,
		Kind:             string(c.Kind),
		Value:            c.Value,
		MinSubtotalMinor: c.MinSubtotalMinor,
		MaxDiscountMinor: c.MaxDiscountMinor,
		ValidFrom:        optionalTime(c.ValidFrom),
		ValidUntil:       optionalTime(c.ValidUntil),
		UsageLimit:       c.UsageLimit,
		UsedCount:        c.UsedCount,
	}
}

func fromAPICoupon(c eventhubv1.Coupon) domain.Coupon {
	return domain.Coupon{
		BusinessID:       c.BusinessID,
		Code:             c.Code,
		Kind:             domain.CouponKind(c.Kind),
		Value:            c.Value,
		MinSubtotalMinor: c.MinSubtotalMinor,
		MaxDiscountMinor: c.MaxDiscountMinor,
		ValidFrom:        valueTime(c.ValidFrom),
		ValidUntil:       valueTime(c.ValidUntil),
		UsageLimit:       c.UsageLimit,
	}
}

func toAPIPartner(p domain.DeliveryPartner) eventhubv1.Partner {
	return eventhubv1.Partner{
		ID:           p.ID,
		Name:         p.Name,
		Location:     toAPIPoint(p.Location),
		Available:    p.Available,
		ActiveOrders: p.ActiveOrders,
		LastSeenAt:   p.LastSeenAt.UTC(),
	}
}

func toAPIChat(c domain.Chat) eventhubv1.Chat {
	return eventhubv1.Chat{
		ID:            c.ID,
		Kind:          string(c.Kind),
		Title:         c.Title,
		EventID:       c.EventID,
		Participants:  append([]string(nil), c.Participants...),
		CreatedBy:     c.CreatedBy,
		CreatedAt:     c.CreatedAt.UTC(),
		LastSeq:       c.LastSeq,
		LastMessageAt: optionalTime(c.LastMessageAt),
	}
}

// ToAPIMessage используется и gRPC, и websocket-потоком чата.
func ToAPIMessage(m domain.Message) eventhubv1.ChatMessage {
	return eventhubv1.ChatMessage{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Seq:       m.Seq,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func toAPIBusiness(b domain.Business) eventhubv1.Business {
	return eventhubv1.Business{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Name:      b.Name,
		Address:   b.Address,
		Location:  toAPIPoint(b.Location),
		CreatedAt: b.CreatedAt.UTC(),
		UpdatedAt: b.UpdatedAt.UTC(),
	}
}

func toAPIReview(r domain.Review) eventhubv1.Review {
	return eventhubv1.Review{
		ID:         r.ID,
		BusinessID: r.BusinessID,
		AuthorID:   r.AuthorID,
		OrderID:    r.OrderID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func toAPIRatingSummary(s domain.RatingSummary) eventhubv1.RatingSummary {
	return eventhubv1.RatingSummary{
		Count:     s.Count,
		Average:   s.Average,
		Histogram: append([]int64(nil), s.Histogram[:]...),
	}
}

func toAPIPackage(p domain.Package) eventhubv1.Package {
	return eventhubv1.Package{
		ID:           p.ID,
		Name:         p.Name,
		EventCredits: p.EventCredits,
		PriceMinor:   p.PriceMinor,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		Active:       p.Active,
	}
}

func fromAPIPackage(p eventhubv1.Package) domain.Package {
	return domain.Package{
		ID:           p.ID,
		Name:         p.Name,
		EventCredits: p.EventCredits,
		PriceMinor:   p.PriceMinor,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		Active:       p.Active,
	}
}

func toAPISubscription(s domain.Subscription) eventhubv1.Subscription {
	return eventhubv1.Subscription{
		ID:           s.ID,
		UserID:       s.UserID,
		PackageID:    s.PackageID,
		EventCredits: s.EventCredits,
		PurchasedAt:  s.PurchasedAt.UTC(),
		ExpiresAt:    s.ExpiresAt.UTC(),
		PaymentID:    s.PaymentID,
	}
}

func toAPIQuota(q domain.Quota) eventhubv1.Quota {
	return eventhubv1.Quota{
		Allowed:   q.Allowed,
		Used:      q.Used,
		Unlimited: q.Unlimited,
		Remaining: q.Remaining(),
	}
}

func toAPINotification(n domain.Notification) eventhubv1.Notification {
	return eventhubv1.Notification{
		ID:          n.ID,
		Kind:        string(n.Kind),
		Title:       n.Title,
		Body:        n.Body,
		ReferenceID: n.ReferenceID,
		CreatedAt:   n.CreatedAt.UTC(),
		ReadAt:      optionalTime(n.ReadAt),
	}
}
