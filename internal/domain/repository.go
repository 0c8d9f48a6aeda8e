package domain

import "time"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ErrAlreadyExists, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByCustomer возвращает заказы клиента, новые первыми.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// ListByBusiness возвращает заказы бизнеса, новые первыми.
	ListByBusiness(businessID string, limit int) ([]Order, error)
	// ListByStatusBefore возвращает заказы в статусе status, обновлённые раньше before.
	ListByStatusBefore(status OrderStatus, before time.Time, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// EventRepository хранит мероприятия и места на них.
type EventRepository interface {
	Create(event Event) error
	Get(id string) (Event, error)
	// Save обновляет редактируемые поля с проверкой версии. Счётчики мест не трогает.
	Save(event Event) error
	List(filter EventFilter) ([]Event, error)
	// ListEndedBefore возвращает опубликованные мероприятия, закончившиеся до момента t.
	ListEndedBefore(t time.Time, limit int) ([]Event, error)
	// CountByOrganizer считает все мероприятия организатора (квота).
	CountByOrganizer(organizerID string) (int32, error)
}

// RegistrationRepository атомарно управляет местами и регистрациями.
type RegistrationRepository interface {
	// Register занимает места и создаёт регистрацию. Для существующей активной
	// регистрации возвращает её же и ErrAlreadyExists.
	Register(reg Registration) (Registration, error)
	// Cancel отменяет регистрацию и освобождает места.
	Cancel(eventID, userID string, at time.Time) (Registration, error)
	GetRegistration(eventID, userID string) (Registration, error)
	ListByEvent(eventID string) ([]Registration, error)
	// ReserveSeats удерживает места под заказ по нескольким мероприятиям сразу.
	ReserveSeats(orderID string, seats map[string]int32, at time.Time) error
	// ReleaseSeats снимает резервы заказа; без резервов ничего не делает.
	ReleaseSeats(orderID string, at time.Time) error
	// ConfirmSeats превращает резервы заказа в регистрации пользователя.
	ConfirmSeats(orderID, userID string, at time.Time) ([]Registration, error)
	// RevokeSeats возвращает только места, подтверждённые по orderID: регистрация
	// пользователя уменьшается на их число и отменяется, когда мест не осталось.
	RevokeSeats(orderID, userID string, at time.Time) ([]Registration, error)
}

// CouponRepository хранит промокоды.
type CouponRepository interface {
	Create(coupon Coupon) error
	Get(businessID, code string) (Coupon, error)
	// Redeem атомарно увеличивает счётчик использований с учётом лимита.
	Redeem(businessID, code string) error
	// Release возвращает использование (отмена заказа до оплаты).
	Release(businessID, code string) error
}

// PaymentRepository хранит платежи.
type PaymentRepository interface {
	// Upsert сохраняет платёж по OrderID.
	Upsert(payment Payment) error
	GetByOrder(orderID string) (Payment, error)
}

// PartnerRepository хранит курьеров.
type PartnerRepository interface {
	Upsert(partner DeliveryPartner) error
	Get(id string) (DeliveryPartner, error)
	// ListAvailable возвращает доступных курьеров внутри прямоугольника.
	ListAvailable(box BoundingBox) ([]DeliveryPartner, error)
	// AdjustActiveOrders меняет счётчик активных заказов, не опуская его ниже нуля.
	AdjustActiveOrders(id string, delta int32) error
}

// ChatRepository хранит чаты и упорядоченный журнал сообщений.
type ChatRepository interface {
	Create(chat Chat) error
	Get(id string) (Chat, error)
	// FindDirect ищет личный чат пары пользователей.
	FindDirect(a, b string) (Chat, error)
	// FindByEvent ищет групповой чат мероприятия.
	FindByEvent(eventID string) (Chat, error)
	// AddParticipant добавляет участника, если его ещё нет.
	AddParticipant(chatID, userID string) error
	ListByUser(userID string, limit int) ([]Chat, error)
	// AppendMessage присваивает сообщению следующий Seq и сохраняет его.
	AppendMessage(msg Message) (Message, error)
	// ListMessages возвращает сообщения с Seq > afterSeq по возрастанию.
	ListMessages(chatID string, afterSeq int64, limit int) ([]Message, error)
}

// BusinessRepository хранит профили бизнесов.
type BusinessRepository interface {
	Upsert(business Business) error
	Get(id string) (Business, error)
}

// ReviewRepository хранит отзывы.
type ReviewRepository interface {
	// Upsert создаёт или обновляет отзыв автора о бизнесе; возвращает сохранённую запись.
	Upsert(review Review) (Review, error)
	ListByBusiness(businessID string, limit int) ([]Review, error)
	Summary(businessID string) (RatingSummary, error)
}

// SubscriptionRepository хранит каталог пакетов и покупки.
type SubscriptionRepository interface {
	CreatePackage(pkg Package) error
	GetPackage(id string) (Package, error)
	ListPackages(activeOnly bool) ([]Package, error)
	CreateSubscription(sub Subscription) error
	ListByUser(userID string) ([]Subscription, error)
}

// NotificationRepository хранит входящие уведомления.
type NotificationRepository interface {
	// CreateMany сохраняет уведомления, пропуская дубликаты (UserID, SourceID).
	CreateMany(items []Notification) (int, error)
	List(userID string, unreadOnly bool, limit int) ([]Notification, error)
	// MarkRead отмечает прочитанными уведомления пользователя, при пустом ids все.
	MarkRead(userID string, ids []string, at time.Time) (int, error)
	CountUnread(userID string) (int, error)
}
