package grpcsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/eventhub/internal/auth"
	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const (
	idempotencyKeyHeader = "idempotency-key"
	// DefaultIdempotencyTTL задаёт срок хранения результата запроса.
	DefaultIdempotencyTTL = 24 * time.Hour
)

type keyPolicy int

const (
	keyOptional keyPolicy = iota
	keyRequired
)

type idempotencyErrorPayload struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// Idempotency сохраняет результаты мутирующих запросов по idempotency-key.
type Idempotency struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	clock  clock.Clock
	logger *log.Entry
}

// NewIdempotency создаёт хранилище ответов. repo == nil отключает механизм.
func NewIdempotency(repo domain.IdempotencyRepository, ttl time.Duration, clk clock.Clock, logger *log.Entry) *Idempotency {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = log.WithField("component", "grpc-idempotency")
	}
	return &Idempotency{repo: repo, ttl: ttl, clock: clk, logger: logger}
}

// withIdempotency выполняет handler не более одного раза на ключ.
// Повтор с тем же ключом получает сохранённый ответ или сохранённую ошибку.
func withIdempotency[T any](
	ctx context.Context,
	idem *Idempotency,
	method string,
	policy keyPolicy,
	req any,
	handler func() (*T, error),
) (*T, error) {
	if idem == nil || idem.repo == nil {
		return handler()
	}

	rawKey, err := readIdempotencyKey(ctx)
	if err != nil {
		if policy == keyRequired {
			return nil, err
		}
		return handler()
	}
	// Ключи разных пользователей не пересекаются.
	key := rawKey
	if identity, ok := auth.FromContext(ctx); ok {
		key = identity.UserID + ":" + rawKey
	}

	reqHash, err := buildIdempotencyRequestHash(method, req)
	if err != nil {
		idem.logger.WithError(err).WithField("method", method).Warn("failed to build idempotency request hash")
		return nil, status.Error(codes.Internal, "failed to initialize idempotency request")
	}

	record, err := idem.repo.CreateProcessing(key, reqHash, idem.clock.Now().Add(idem.ttl))
	if err != nil {
		return replayIdempotency[T](idem, err, record)
	}

	resp, runErr := handler()
	if runErr != nil {
		idem.cacheFailure(key, runErr)
		return resp, runErr
	}
	if cacheErr := idem.cacheSuccess(key, resp); cacheErr != nil {
		idem.logger.WithError(cacheErr).WithField("idempotency_key", key).Warn("failed to store idempotent success response")
	}
	return resp, nil
}

func replayIdempotency[T any](idem *Idempotency, createErr error, record domain.IdempotencyRecord) (*T, error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		return nil, status.Error(codes.AlreadyExists, "idempotency key is already used with different request payload")
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone:
			if len(record.ResponseBody) == 0 {
				return nil, status.Error(codes.Internal, "idempotency cache is empty")
			}
			resp := new(T)
			if err := json.Unmarshal(record.ResponseBody, resp); err != nil {
				idem.logger.WithError(err).WithField("idempotency_key", record.Key).Warn("failed to decode cached idempotency response")
				return nil, status.Error(codes.Internal, "failed to decode cached idempotency response")
			}
			return resp, nil
		case domain.IdempotencyStatusProcessing:
			return nil, status.Error(codes.Aborted, "request with the same idempotency key is already processing")
		case domain.IdempotencyStatusFailed:
			return nil, decodeIdempotencyFailure(record)
		default:
			return nil, status.Error(codes.Internal, "unknown idempotency record status")
		}
	default:
		idem.logger.WithError(createErr).Warn("failed to create idempotency record")
		return nil, status.Error(codes.Internal, "failed to initialize idempotency request")
	}
}

func (idem *Idempotency) cacheSuccess(key string, resp any) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return idem.repo.MarkDone(key, data, int(codes.OK))
}

func (idem *Idempotency) cacheFailure(key string, runErr error) {
	st := status.Convert(runErr)
	code := st.Code()
	if code == codes.OK {
		code = codes.Internal
	}

	payload, err := json.Marshal(idempotencyErrorPayload{
		Code:    int32(code), //nolint:gosec // codes.Code is a bounded enum value.
		Message: st.Message(),
	})
	if err != nil {
		idem.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to encode idempotency failure payload")
		payload = nil
	}
	if err := idem.repo.MarkFailed(key, payload, int(code)); err != nil {
		idem.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotency failure response")
	}
}

func decodeIdempotencyFailure(record domain.IdempotencyRecord) error {
	const fallback = "previous request with the same idempotency key failed"

	if len(record.ResponseBody) > 0 {
		var payload idempotencyErrorPayload
		if err := json.Unmarshal(record.ResponseBody, &payload); err == nil {
			if code, ok := grpcCode(int64(payload.Code)); ok {
				if code == codes.OK {
					code = codes.Internal
				}
				if payload.Message == "" {
					payload.Message = fallback
				}
				return status.Error(code, payload.Message)
			}
		}
	}
	if record.HTTPStatus > 0 {
		if code, ok := grpcCode(int64(record.HTTPStatus)); ok && code != codes.OK {
			return status.Error(code, fallback)
		}
	}
	return status.Error(codes.Internal, fallback)
}

func grpcCode(value int64) (codes.Code, bool) {
	if value < int64(codes.OK) || value > int64(codes.Unauthenticated) {
		return codes.Internal, false
	}
	return codes.Code(uint32(value)), true
}

func readIdempotencyKey(ctx context.Context) (string, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(idempotencyKeyHeader)
		if len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return strings.TrimSpace(values[0]), nil
		}
	}
	return "", status.Error(codes.InvalidArgument, "idempotency-key metadata is required")
}

// buildIdempotencyRequestHash считает sha256 от имени метода и JSON запроса.
func buildIdempotencyRequestHash(method string, req any) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	payload := make([]byte, 0, len(method)+1+len(data))
	payload = append(payload, method...)
	payload = append(payload, ':')
	payload = append(payload, data...)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
