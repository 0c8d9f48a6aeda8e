// Package health отдаёт состояние внешних зависимостей сервиса для /healthz и /readyz.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
)

// Status описывает состояние компонента или сервиса целиком.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// DefaultCheckTimeout ограничивает одну проверку, если у checker'а не задан свой таймаут.
const DefaultCheckTimeout = 2 * time.Second

// Check хранит результат одной проверки.
type Check struct {
	Name       string        `json:"name"`
	Status     Status        `json:"status"`
	Critical   bool          `json:"critical"`
	Message    string        `json:"message,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
}

// Response задаёт тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет одну зависимость. Реализация обязана уважать ctx.
type Checker interface {
	Check(ctx context.Context) Check
}

// HandlerOption настраивает Handler.
type HandlerOption func(*Handler)

// WithClock подменяет часы для timestamp и uptime.
func WithClock(clk clock.Clock) HandlerOption {
	return func(h *Handler) {
		if clk != nil {
			h.clock = clk
		}
	}
}

// Handler собирает проверки зависимостей и отвечает на HTTP-пробы.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	clock     clock.Clock
	startedAt time.Time
}

// NewHandler создаёт handler; version попадает в ответ /healthz.
func NewHandler(version string, opts ...HandlerOption) *Handler {
	h := &Handler{
		checkers: make(map[string]Checker),
		version:  version,
		clock:    clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.startedAt = h.clock.Now()
	return h
}

// RegisterChecker добавляет или заменяет проверку под именем name.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Report выполняет все проверки параллельно и сводит их в общий статус.
// Неудачная критичная проверка делает сервис unhealthy, а некритичная даёт degraded.
func (h *Handler) Report(ctx context.Context) Response {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	checkers := make([]Checker, 0, len(h.checkers))
	for name, checker := range h.checkers {
		names = append(names, name)
		checkers = append(checkers, checker)
	}
	h.mu.RUnlock()

	results := make([]Check, len(checkers))
	var g errgroup.Group
	for i, checker := range checkers {
		g.Go(func() error {
			results[i] = checker.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusHealthy
	checks := make(map[string]Check, len(results))
	for i, check := range results {
		checks[names[i]] = check
		switch {
		case check.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case check.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	now := h.clock.Now()
	return Response{
		Status:        overall,
		Timestamp:     now,
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(now.Sub(h.startedAt).Seconds()),
	}
}

// ServeHTTP отвечает JSON-отчётом; 503, если сервис unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.Report(r.Context())

	code := http.StatusOK
	if report.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}

// ReadinessHandler готов принимать трафик, пока живы все критичные зависимости.
// В теле 503 перечислены отказавшие компоненты.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	report := h.Report(r.Context())

	var failed []string
	for name, check := range report.Checks {
		if check.Status == StatusUnhealthy {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready: " + strings.Join(failed, ",")))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LivenessHandler не зависит от внешних систем.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// PingOption настраивает PingChecker.
type PingOption func(*PingChecker)

// Optional помечает зависимость некритичной: её отказ даёт degraded, а не unhealthy.
func Optional() PingOption {
	return func(c *PingChecker) { c.critical = false }
}

// WithTimeout задаёт таймаут одной проверки.
func WithTimeout(d time.Duration) PingOption {
	return func(c *PingChecker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// PingChecker проверяет зависимость вызовом ping с таймаутом.
type PingChecker struct {
	name     string
	ping     func(ctx context.Context) error
	timeout  time.Duration
	critical bool
}

// NewPingChecker создаёт критичную проверку с DefaultCheckTimeout.
func NewPingChecker(name string, ping func(ctx context.Context) error, opts ...PingOption) *PingChecker {
	c := &PingChecker{
		name:     name,
		ping:     ping,
		timeout:  DefaultCheckTimeout,
		critical: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PingChecker) Check(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.ping(ctx)
	elapsed := time.Since(start)

	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		Critical:   c.critical,
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		check.Message = err.Error()
		check.Status = StatusUnhealthy
		if !c.critical {
			check.Status = StatusDegraded
		}
	}
	return check
}
