package redisstore

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const (
	otpFieldHash      = "hash"
	otpFieldExpiresAt = "expires_at"
	otpFieldAttempts  = "attempts"
	otpFieldCreatedAt = "created_at"
)

// consumeAttemptScript списывает попытку, пока счётчик положителен, и возвращает остаток.
// -1 означает исчерпанный счётчик, nil означает отсутствие кода.
var consumeAttemptScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return false
end
local left = tonumber(redis.call("HGET", KEYS[1], "attempts") or "0")
if left <= 0 then
  return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", -1)
`)

// OTPStore хранит хэш кода доставки в hash с TTL до истечения кода.
type OTPStore struct {
	c *Client
}

// NewOTPStore создаёт Redis-реализацию OTPStore.
func NewOTPStore(c *Client) *OTPStore {
	return &OTPStore{c: c}
}

func (s *OTPStore) otpKey(orderID string) string { return s.c.key("otp", orderID) }

func (s *OTPStore) Put(otp domain.DeliveryOTP) error {
	ctx, cancel := opContext()
	defer cancel()

	key := s.otpKey(otp.OrderID)
	_, err := s.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, encodeOTP(otp))
		if !otp.ExpiresAt.IsZero() {
			pipe.PExpireAt(ctx, key, otp.ExpiresAt)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put otp: %w", err)
	}
	return nil
}

func (s *OTPStore) Get(orderID string) (domain.DeliveryOTP, error) {
	ctx, cancel := opContext()
	defer cancel()

	fields, err := s.c.rdb.HGetAll(ctx, s.otpKey(orderID)).Result()
	if err != nil {
		return domain.DeliveryOTP{}, fmt.Errorf("redis get otp: %w", err)
	}
	if len(fields) == 0 {
		return domain.DeliveryOTP{}, domain.ErrOTPNotFound
	}
	return decodeOTP(orderID, fields)
}

func (s *OTPStore) ConsumeAttempt(orderID string) (int32, error) {
	ctx, cancel := opContext()
	defer cancel()

	left, err := consumeAttemptScript.Run(ctx, s.c.rdb, []string{s.otpKey(orderID)}).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrOTPNotFound
		}
		return 0, fmt.Errorf("redis consume otp attempt: %w", err)
	}
	return int32(left), nil
}

func (s *OTPStore) Delete(orderID string) error {
	ctx, cancel := opContext()
	defer cancel()

	if err := s.c.rdb.Del(ctx, s.otpKey(orderID)).Err(); err != nil {
		return fmt.Errorf("redis delete otp: %w", err)
	}
	return nil
}

func encodeOTP(otp domain.DeliveryOTP) map[string]any {
	return map[string]any{
		otpFieldHash:      string(otp.CodeHash),
		otpFieldExpiresAt: strconv.FormatInt(otp.ExpiresAt.UnixMilli(), 10),
		otpFieldAttempts:  strconv.FormatInt(int64(otp.AttemptsLeft), 10),
		otpFieldCreatedAt: strconv.FormatInt(otp.CreatedAt.UnixMilli(), 10),
	}
}

func decodeOTP(orderID string, fields map[string]string) (domain.DeliveryOTP, error) {
	expires, err := strconv.ParseInt(fields[otpFieldExpiresAt], 10, 64)
	if err != nil {
		return domain.DeliveryOTP{}, fmt.Errorf("decode otp expires_at: %w", err)
	}
	attempts, err := strconv.ParseInt(fields[otpFieldAttempts], 10, 32)
	if err != nil {
		return domain.DeliveryOTP{}, fmt.Errorf("decode otp attempts: %w", err)
	}
	created, err := strconv.ParseInt(fields[otpFieldCreatedAt], 10, 64)
	if err != nil {
		return domain.DeliveryOTP{}, fmt.Errorf("decode otp created_at: %w", err)
	}

	return domain.DeliveryOTP{
		OrderID:      orderID,
		CodeHash:     []byte(fields[otpFieldHash]),
		ExpiresAt:    time.UnixMilli(expires).UTC(),
		AttemptsLeft: int32(attempts),
		CreatedAt:    time.UnixMilli(created).UTC(),
	}, nil
}

var _ domain.OTPStore = (*OTPStore)(nil)
