package grpcsvc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/eventhub/internal/auth"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/service/saga"
)

type errorMapping struct {
	target error
	code   codes.Code
}

// errorCodes проверяется сверху вниз, поэтому более конкретные ошибки стоят выше общих.
var errorCodes = []errorMapping{
	{auth.ErrTokenMissing, codes.Unauthenticated},
	{auth.ErrTokenInvalid, codes.Unauthenticated},

	{domain.ErrForbidden, codes.PermissionDenied},
	{domain.ErrForbiddenTransition, codes.PermissionDenied},
	{domain.ErrNotChatParticipant, codes.PermissionDenied},

	{domain.ErrVersionConflict, codes.Aborted},

	{domain.ErrEventQuotaExceeded, codes.ResourceExhausted},
	{domain.ErrCouponExhausted, codes.ResourceExhausted},
	{domain.ErrOTPLocked, codes.ResourceExhausted},

	{domain.ErrAlreadyExists, codes.AlreadyExists},
	{domain.ErrIdempotencyHashMismatch, codes.AlreadyExists},

	{domain.ErrOrderNotFound, codes.NotFound},
	{domain.ErrEventNotFound, codes.NotFound},
	{domain.ErrRegistrationNotFound, codes.NotFound},
	{domain.ErrCouponNotFound, codes.NotFound},
	{domain.ErrPartnerNotFound, codes.NotFound},
	{domain.ErrOTPNotFound, codes.NotFound},
	{domain.ErrChatNotFound, codes.NotFound},
	{domain.ErrPackageNotFound, codes.NotFound},
	{domain.ErrBusinessNotFound, codes.NotFound},
	{domain.ErrPaymentNotFound, codes.NotFound},
	{domain.ErrNotificationNotFound, codes.NotFound},

	{domain.ErrValidation, codes.InvalidArgument},
	{domain.ErrLocationInvalid, codes.InvalidArgument},
	{domain.ErrSelfFollow, codes.InvalidArgument},
	{domain.ErrUserRequired, codes.InvalidArgument},
	{domain.ErrOrderIDRequired, codes.InvalidArgument},
	{domain.ErrCouponCodeRequired, codes.InvalidArgument},
	{domain.ErrOrderKindInvalid, codes.InvalidArgument},
	{domain.ErrPaymentMethodInvalid, codes.InvalidArgument},
	{domain.ErrChatParticipants, codes.InvalidArgument},
	{domain.ErrMessageBodyRequired, codes.InvalidArgument},
	{domain.ErrMessageBodyTooLong, codes.InvalidArgument},
	{domain.ErrRatingInvalid, codes.InvalidArgument},
	{domain.ErrReviewTooLong, codes.InvalidArgument},
	{domain.ErrOTPMismatch, codes.InvalidArgument},
	{domain.ErrIdempotencyKeyRequired, codes.InvalidArgument},

	{domain.ErrInvalidTransition, codes.FailedPrecondition},
	{domain.ErrEventNotEditable, codes.FailedPrecondition},
	{domain.ErrEventNotOpen, codes.FailedPrecondition},
	{domain.ErrEventPaid, codes.FailedPrecondition},
	{domain.ErrEventCapacityTooLow, codes.FailedPrecondition},
	{domain.ErrSeatsUnavailable, codes.FailedPrecondition},
	{domain.ErrCouponNotActive, codes.FailedPrecondition},
	{domain.ErrCouponExpired, codes.FailedPrecondition},
	{domain.ErrCouponMinOrder, codes.FailedPrecondition},
	{domain.ErrPaymentDeclined, codes.FailedPrecondition},
	{domain.ErrNoPartnerAvailable, codes.FailedPrecondition},
	{domain.ErrOrderNotDeliverable, codes.FailedPrecondition},
	{domain.ErrOTPExpired, codes.FailedPrecondition},
	{domain.ErrOTPRequired, codes.FailedPrecondition},
	{domain.ErrPackageInactive, codes.FailedPrecondition},
	{domain.ErrReviewNotEligible, codes.FailedPrecondition},

	{saga.ErrCircuitOpen, codes.Unavailable},
	{domain.ErrPaymentTemporary, codes.Unavailable},
	{domain.ErrSeatsTemporary, codes.Unavailable},
	{domain.ErrPaymentIndeterminate, codes.Unavailable},
}

// statusCode возвращает gRPC-код для доменной ошибки.
func statusCode(err error) codes.Code {
	if errors.Is(err, context.Canceled) {
		return codes.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	for _, m := range errorCodes {
		if errors.Is(err, m.target) {
			return m.code
		}
	}
	return codes.Internal
}

// toStatus переводит ошибку сервиса в gRPC-статус. Текст внутренних ошибок наружу не отдаётся.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := statusCode(err)
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}
