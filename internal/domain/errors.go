package domain

import (
	"errors"
	"strings"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего идентификатора бизнеса (продавца/организатора).
	ErrBusinessRequired = errors.New("business_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка при некорректном количестве (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")
	// Скидка вышла за пределы [0, subtotal].
	ErrDiscountInvalid = errors.New("discount must be within [0, subtotal]")
	// Билетная позиция без ссылки на мероприятие.
	ErrItemEventRequired = errors.New("ticket item must reference an event")
	// Товарный заказ без адреса доставки.
	ErrDeliveryAddressRequired = errors.New("delivery address is required for goods orders")
	// Неизвестный вид заказа.
	ErrOrderKindInvalid = errors.New("order kind is invalid")
	// Неизвестный способ оплаты.
	ErrPaymentMethodInvalid = errors.New("payment method is invalid")
	// Ошибка отрицательной суммы платежа.
	ErrPaymentAmountNegative = errors.New("payment amount must be non-negative")
	// Ошибка отсутствующего кода платёжного провайдера.
	ErrPaymentProviderRequired = errors.New("payment provider is required")
	// Ошибка отсутствующего идентификатора заказа в платежах/резервах.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствующего мероприятия в резерве мест.
	ErrReservationEventRequired = errors.New("reservation event_id is required")
	// Ошибка некорректного количества в резерве.
	ErrReservationQtyInvalid = errors.New("reservation qty must be greater than zero")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrVersionConflict сигнализирует о конфликте версий при сохранении агрегата.
	ErrVersionConflict = errors.New("version conflict")
	// ErrAlreadyExists означает, что запись с таким идентификатором уже существует.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidTransition — переход между статусами не предусмотрен таблицей переходов.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrForbiddenTransition — переход допустим, но не для этой роли.
	ErrForbiddenTransition = errors.New("status transition is not allowed for this role")
	// ErrForbidden возвращается, когда у вызывающего нет прав на операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrSeatsUnavailable означает, что мест не осталось.
	ErrSeatsUnavailable = errors.New("not enough seats available")
	// ErrSeatsTemporary — временная ошибка при резервировании мест, можно повторить попытку.
	ErrSeatsTemporary = errors.New("seat reservation temporary error")
	// ErrPaymentDeclined — платёж отклонён провайдером (бизнес-ошибка).
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPaymentIndeterminate — неопределённый статус платежа; требуется reconcile.
	ErrPaymentIndeterminate = errors.New("payment indeterminate state")
	// ErrPaymentTemporary — временная ошибка платёжного провайдера.
	ErrPaymentTemporary = errors.New("payment temporary error")
	// ErrPaymentNotFound возвращается, если по заказу нет платежа.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки мероприятий.
	ErrEventNotFound          = errors.New("event not found")
	ErrEventTitleRequired     = errors.New("event title is required")
	ErrEventCategoryRequired  = errors.New("event category is required")
	ErrEventOrganizerRequired = errors.New("event organizer is required")
	ErrEventScheduleInvalid   = errors.New("event must end after it starts")
	ErrEventCapacityInvalid   = errors.New("event capacity must be non-negative")
	ErrEventCapacityTooLow    = errors.New("event capacity is lower than taken seats")
	ErrEventNotEditable       = errors.New("event can no longer be changed")
	ErrEventNotOpen           = errors.New("event is not open for registration")
	ErrEventPaid              = errors.New("event is paid: checkout a ticket order instead")
	ErrEventQuotaExceeded     = errors.New("event creation quota exceeded")
	ErrRegistrationNotFound   = errors.New("registration not found")
	ErrLocationInvalid        = errors.New("location coordinates are out of range")

	// Ошибки купонов.
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponCodeRequired = errors.New("coupon code is required")
	ErrCouponInvalid      = errors.New("coupon value is invalid")
	ErrCouponNotActive    = errors.New("coupon is not active yet")
	ErrCouponExpired      = errors.New("coupon has expired")
	ErrCouponMinOrder     = errors.New("order subtotal is below coupon minimum")
	ErrCouponExhausted    = errors.New("coupon usage limit reached")

	// Ошибки доставки и COD-OTP.
	ErrPartnerNotFound     = errors.New("delivery partner not found")
	ErrNoPartnerAvailable  = errors.New("no delivery partner available nearby")
	ErrOrderNotDeliverable = errors.New("order is not ready for delivery")
	ErrOTPNotFound         = errors.New("delivery otp not found")
	ErrOTPMismatch         = errors.New("delivery otp does not match")
	ErrOTPExpired          = errors.New("delivery otp has expired")
	ErrOTPLocked           = errors.New("delivery otp attempts exhausted")
	ErrOTPRequired         = errors.New("cash-on-delivery order requires otp verification")

	// Ошибки чатов.
	ErrChatNotFound        = errors.New("chat not found")
	ErrChatParticipants    = errors.New("chat participants are invalid")
	ErrNotChatParticipant  = errors.New("user is not a chat participant")
	ErrMessageBodyRequired = errors.New("message body is required")
	ErrMessageBodyTooLong  = errors.New("message body is too long")

	// Ошибки подписок.
	ErrPackageNotFound = errors.New("package not found")
	ErrPackageInvalid  = errors.New("package definition is invalid")
	ErrPackageInactive = errors.New("package is not available for purchase")

	// Ошибки социального графа и отзывов.
	ErrBusinessNotFound  = errors.New("business not found")
	ErrSelfFollow        = errors.New("users cannot follow themselves")
	ErrUserRequired      = errors.New("user_id is required")
	ErrRatingInvalid     = errors.New("rating must be between 1 and 5")
	ErrReviewTooLong     = errors.New("review comment is too long")
	ErrReviewNotEligible = errors.New("order is not eligible for review")

	// Ошибки idempotency-ключей.
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different payload")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")

	// Ошибки уведомлений.
	ErrNotificationNotFound = errors.New("notification not found")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// ErrValidation объединяет ошибки валидации входных данных.
var ErrValidation = errors.New("validation failed")

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	b.WriteString(": ")
	for i, err := range e.errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *validationError) Unwrap() []error {
	return append([]error{ErrValidation}, e.errs...)
}

// ValidationError собирает замечания валидации в одну ошибку. Для пустого списка возвращает nil.
func ValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &validationError{errs: errs}
}
