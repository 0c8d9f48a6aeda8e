package grpcsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/eventhub/internal/auth"
	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/storage/memory"
)

type echoRequest struct {
	Value string `json:"value"`
}

type echoResponse struct {
	Value string `json:"value"`
	Calls int    `json:"calls"`
}

func keyedContext(userID, key string) context.Context {
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: userID, Role: domain.RoleUser})
	if key == "" {
		return ctx
	}
	return metadata.NewIncomingContext(ctx, metadata.Pairs(idempotencyKeyHeader, key))
}

func newTestIdempotency() (*Idempotency, domain.IdempotencyRepository) {
	repo := memory.NewIdempotencyRepository()
	return NewIdempotency(repo, time.Hour, clock.NewSystem(), nil), repo
}

func TestWithIdempotency_ReplaysSuccess(t *testing.T) {
	idem, _ := newTestIdempotency()
	calls := 0
	handler := func() (*echoResponse, error) {
		calls++
		return &echoResponse{Value: "done", Calls: calls}, nil
	}
	req := &echoRequest{Value: "a"}

	first, err := withIdempotency(keyedContext("u1", "k1"), idem, "/test/Echo", keyRequired, req, handler)
	require.NoError(t, err)
	second, err := withIdempotency(keyedContext("u1", "k1"), idem, "/test/Echo", keyRequired, req, handler)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	// Тот же ключ другого пользователя даёт отдельную запись.
	_, err = withIdempotency(keyedContext("u2", "k1"), idem, "/test/Echo", keyRequired, req, handler)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithIdempotency_HashMismatch(t *testing.T) {
	idem, _ := newTestIdempotency()
	handler := func() (*echoResponse, error) { return &echoResponse{}, nil }

	_, err := withIdempotency(keyedContext("u1", "k1"), idem, "/test/Echo", keyRequired, &echoRequest{Value: "a"}, handler)
	require.NoError(t, err)
	_, err = withIdempotency(keyedContext("u1", "k1"), idem, "/test/Echo", keyRequired, &echoRequest{Value: "b"}, handler)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestWithIdempotency_ReplaysFailure(t *testing.T) {
	idem, _ := newTestIdempotency()
	calls := 0
	handler := func() (*echoResponse, error) {
		calls++
		return nil, toStatus(domain.ErrPaymentDeclined)
	}

	_, err := withIdempotency(keyedContext("u1", "k1"), idem, "/test/Echo", keyRequired, &echoRequest{}, handler)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = withIdempotency(keyedContext("u1", "k1"), idem, "/test/Echo", keyRequired, &echoRequest{}, handler)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "payment declined")
	assert.Equal(t, 1, calls)
}

func TestWithIdempotency_Processing(t *testing.T) {
	idem, repo := newTestIdempotency()
	req := &echoRequest{Value: "a"}
	hash, err := buildIdempotencyRequestHash("/test/Echo", req)
	require.NoError(t, err)
	_, err = repo.CreateProcessing("u1:k1", hash, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = withIdempotency(keyedContext("u1", "k1"), idem, "/test/Echo", keyRequired, req, func() (*echoResponse, error) {
		t.Fatal("handler must not run while the key is processing")
		return nil, nil
	})
	assert.Equal(t, codes.Aborted, status.Code(err))
}

func TestWithIdempotency_KeyPolicy(t *testing.T) {
	idem, _ := newTestIdempotency()
	calls := 0
	handler := func() (*echoResponse, error) {
		calls++
		return &echoResponse{}, nil
	}

	_, err := withIdempotency(keyedContext("u1", ""), idem, "/test/Echo", keyRequired, &echoRequest{}, handler)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 0, calls)

	_, err = withIdempotency(keyedContext("u1", ""), idem, "/test/Echo", keyOptional, &echoRequest{}, handler)
	require.NoError(t, err)
	_, err = withIdempotency(keyedContext("u1", ""), idem, "/test/Echo", keyOptional, &echoRequest{}, handler)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = withIdempotency(keyedContext("u1", ""), nil, "/test/Echo", keyRequired, &echoRequest{}, handler)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDecodeIdempotencyFailure(t *testing.T) {
	err := decodeIdempotencyFailure(domain.IdempotencyRecord{ResponseBody: []byte(`{"code":5,"message":"gone"}`)})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "gone", status.Convert(err).Message())

	err = decodeIdempotencyFailure(domain.IdempotencyRecord{ResponseBody: []byte("garbage"), HTTPStatus: int(codes.Unavailable)})
	assert.Equal(t, codes.Unavailable, status.Code(err))

	err = decodeIdempotencyFailure(domain.IdempotencyRecord{})
	assert.Equal(t, codes.Internal, status.Code(err))

	_, ok := grpcCode(99)
	assert.False(t, ok)
}
