package grpcsvc

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/eventhub/internal/auth"
)

const authorizationHeader = "authorization"

// Методы, доступные без токена.
var publicMethodPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

func isPublicMethod(fullMethod string) bool {
	for _, prefix := range publicMethodPrefixes {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}

// UnaryAuthInterceptor проверяет bearer-токен и кладёт личность вызывающего в context.
func UnaryAuthInterceptor(authn *auth.Authenticator, logger *log.Entry) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = log.WithField("component", "grpc-auth")
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isPublicMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(authorizationHeader); len(values) > 0 {
				header = values[0]
			}
		}
		token, err := auth.BearerToken(header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "authorization bearer token is required")
		}
		identity, err := authn.Parse(token)
		if err != nil {
			logger.WithError(err).WithField("method", info.FullMethod).Debug("rejected token")
			return nil, status.Error(codes.Unauthenticated, "authorization token is invalid")
		}
		return handler(auth.WithIdentity(ctx, identity), req)
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов отдельно для каждого пользователя.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
	logger   *log.Entry
}

// NewRateLimiter создаёт лимитер. rps <= 0 отключает ограничение.
func NewRateLimiter(rps float64, burst int, logger *log.Entry) *RateLimiter {
	if logger == nil {
		logger = log.WithField("component", "grpc-ratelimit")
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
		logger:   logger,
	}
}

// Allow расходует токен ключа.
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil || rl.rate <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Cleanup удаляет лимитеры, не использовавшиеся дольше idle. Возвращает число удалённых.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// RunCleanup периодически вызывает Cleanup до отмены ctx.
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval, idle time.Duration) {
	if rl == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := rl.Cleanup(idle); removed > 0 {
				rl.logger.WithField("removed", removed).Debug("idle rate limiters removed")
			}
		}
	}
}

// UnaryInterceptor возвращает ResourceExhausted при превышении лимита.
// Ключом служит пользователь из токена, для анонимных вызовов адрес клиента.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isPublicMethod(info.FullMethod) {
			return handler(ctx, req)
		}
		key := rateLimitKey(ctx)
		if !rl.Allow(key) {
			rl.logger.WithFields(log.Fields{
				"key":    key,
				"method": info.FullMethod,
			}).Warn("rate limit exceeded")
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func rateLimitKey(ctx context.Context) string {
	if identity, ok := auth.FromContext(ctx); ok {
		return "user:" + identity.UserID
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "addr:" + p.Addr.String()
	}
	return "anonymous"
}
