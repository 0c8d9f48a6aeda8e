// Команда loadtest нагружает gRPC API EventHub типовыми сценариями:
// регистрация на бесплатное мероприятие и покупка билета.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	eventhubv1 "github.com/vladislavdragonenkov/eventhub/api/eventhub/v1"
	"github.com/vladislavdragonenkov/eventhub/internal/auth"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

const (
	envJWTSecret      = "EVENTHUB_JWT_SECRET"
	idempotencyHeader = "idempotency-key"
	tokenTTL          = 2 * time.Hour
	scenarioMethod    = "scenario"
)

type loadMode string

const (
	modeRegister     loadMode = "register"
	modeTicket       loadMode = "ticket"
	modeTicketCancel loadMode = "ticket-cancel"
)

type config struct {
	addr        string
	jwtSecret   string
	mode        loadMode
	total       int
	duration    time.Duration
	rps         float64
	concurrency int
	connections int
	timeout     time.Duration
	eventID     string
	priceMinor  int64
	currency    string
	userTag     string
	outputPath  string
}

func parseConfig(args []string, getenv func(string) string, output io.Writer) (config, error) {
	var (
		cfg  config
		mode string
	)
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC address of eventhub-service")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "", "HS256 secret for test tokens (fallback: "+envJWTSecret+")")
	fs.StringVar(&mode, "mode", string(modeRegister), "scenario: register | ticket | ticket-cancel")
	fs.IntVar(&cfg.total, "total", 400, "scenarios to run; with -duration acts as an upper bound when > 0")
	fs.DurationVar(&cfg.duration, "duration", 0, "run for a fixed time instead of a fixed count")
	fs.Float64Var(&cfg.rps, "rps", 0, "max scenarios per second (0 = unlimited)")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 4, "gRPC connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&cfg.eventID, "event-id", "", "existing published event; created by the tool when empty")
	fs.Int64Var(&cfg.priceMinor, "price-minor", 1500, "ticket price for the generated event in ticket modes")
	fs.StringVar(&cfg.currency, "currency", "INR", "currency of the generated event")
	fs.StringVar(&cfg.userTag, "user-tag", "load", "prefix of generated user ids")
	fs.StringVar(&cfg.outputPath, "output", "", "write JSON report to this file")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if strings.TrimSpace(cfg.jwtSecret) == "" {
		cfg.jwtSecret = getenv(envJWTSecret)
	}
	cfg.mode = loadMode(strings.TrimSpace(mode))

	var errs []error
	switch cfg.mode {
	case modeRegister, modeTicket, modeTicketCancel:
	default:
		errs = append(errs, fmt.Errorf("unsupported mode %q", mode))
	}
	if strings.TrimSpace(cfg.jwtSecret) == "" {
		errs = append(errs, fmt.Errorf("jwt secret is required (-jwt-secret or %s)", envJWTSecret))
	}
	if cfg.duration < 0 {
		errs = append(errs, errors.New("duration must not be negative"))
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		errs = append(errs, errors.New("total must be positive without -duration"))
	}
	if cfg.rps < 0 {
		errs = append(errs, errors.New("rps must not be negative"))
	}
	if cfg.concurrency <= 0 || cfg.connections <= 0 {
		errs = append(errs, errors.New("concurrency and connections must be positive"))
	}
	if cfg.timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if cfg.mode != modeRegister && cfg.eventID == "" && cfg.priceMinor <= 0 {
		errs = append(errs, errors.New("price-minor must be positive for ticket modes"))
	}
	if strings.TrimSpace(cfg.userTag) == "" {
		errs = append(errs, errors.New("user-tag is required"))
	}
	return cfg, errors.Join(errs...)
}

// clients объединяет пару gRPC-клиентов одного соединения.
type clients struct {
	events eventhubv1.EventServiceClient
	orders eventhubv1.OrderServiceClient
}

// runner выполняет сценарии и собирает статистику.
type runner struct {
	cfg     config
	authn   *auth.Authenticator
	runID   string
	eventID string
	stats   *collector
}

func newRunner(cfg config, runID string) (*runner, error) {
	authn, err := auth.NewAuthenticator(cfg.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &runner{cfg: cfg, authn: authn, runID: runID, eventID: cfg.eventID, stats: newCollector()}, nil
}

// callContext добавляет токен пользователя и ключ идемпотентности.
func (r *runner) callContext(ctx context.Context, identity auth.Identity, key string) (context.Context, context.CancelFunc, error) {
	token, err := r.authn.Issue(identity, tokenTTL)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	pairs := []string{"authorization", "Bearer " + token}
	if key != "" {
		pairs = append(pairs, idempotencyHeader, key)
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...), cancel, nil
}

// timed выполняет вызов и записывает его код и задержку.
func (r *runner) timed(method string, call func() error) error {
	start := time.Now()
	err := call()
	r.stats.record(method, time.Since(start), status.Code(err))
	return err
}

// prepare создаёт и публикует мероприятие, если оно не задано флагом.
func (r *runner) prepare(ctx context.Context, cli clients) error {
	if r.eventID != "" {
		return nil
	}
	organizer := auth.Identity{UserID: fmt.Sprintf("%s-organizer-%s", r.cfg.userTag, r.runID), Role: domain.RoleUser}
	input := eventhubv1.EventInput{
		Title:    "Load test " + r.runID,
		Category: "loadtest",
		StartsAt: time.Now().Add(24 * time.Hour).UTC(),
		EndsAt:   time.Now().Add(26 * time.Hour).UTC(),
		Location: eventhubv1.GeoPoint{Lat: 12.9716, Lng: 77.5946},
	}
	if r.cfg.mode != modeRegister {
		input.PriceMinor = r.cfg.priceMinor
		input.Currency = r.cfg.currency
	}

	callCtx, cancel, err := r.callContext(ctx, organizer, "lt-create-event-"+r.runID)
	if err != nil {
		return err
	}
	defer cancel()
	var created *eventhubv1.EventResponse
	err = r.timed("CreateEvent", func() (err error) {
		created, err = cli.events.CreateEvent(callCtx, &eventhubv1.CreateEventRequest{Event: input})
		return err
	})
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	publishCtx, cancelPublish, err := r.callContext(ctx, organizer, "lt-publish-event-"+r.runID)
	if err != nil {
		return err
	}
	defer cancelPublish()
	err = r.timed("PublishEvent", func() error {
		_, err := cli.events.PublishEvent(publishCtx, &eventhubv1.EventIDRequest{EventID: created.Event.ID})
		return err
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	r.eventID = created.Event.ID
	return nil
}

// scenario выполняет один сценарий от имени нового пользователя.
func (r *runner) scenario(ctx context.Context, cli clients, index int) error {
	start := time.Now()
	err := r.runScenario(ctx, cli, index)
	r.stats.record(scenarioMethod, time.Since(start), status.Code(err))
	return err
}

func (r *runner) runScenario(ctx context.Context, cli clients, index int) error {
	user := auth.Identity{UserID: fmt.Sprintf("%s-%s-%d", r.cfg.userTag, r.runID, index), Role: domain.RoleUser}
	key := func(step string) string { return fmt.Sprintf("lt-%s-%s-%d", step, r.runID, index) }

	if r.cfg.mode == modeRegister {
		callCtx, cancel, err := r.callContext(ctx, user, key("register"))
		if err != nil {
			return err
		}
		defer cancel()
		return r.timed("RegisterForEvent", func() error {
			_, err := cli.events.RegisterForEvent(callCtx, &eventhubv1.EventIDRequest{EventID: r.eventID})
			return err
		})
	}

	createCtx, cancelCreate, err := r.callContext(ctx, user, key("order"))
	if err != nil {
		return err
	}
	defer cancelCreate()
	var order *eventhubv1.OrderResponse
	err = r.timed("CreateOrder", func() (err error) {
		order, err = cli.orders.CreateOrder(createCtx, &eventhubv1.CreateOrderRequest{
			Kind:          string(domain.OrderKindTicket),
			PaymentMethod: string(domain.PaymentMethodCard),
			Items:         []eventhubv1.OrderItem{{EventID: r.eventID, Qty: 1}},
		})
		return err
	})
	if err != nil {
		return err
	}
	if order.Order.ID == "" {
		return status.Error(codes.Internal, "create order returned empty id")
	}

	payCtx, cancelPay, err := r.callContext(ctx, user, key("pay"))
	if err != nil {
		return err
	}
	defer cancelPay()
	err = r.timed("PayOrder", func() error {
		_, err := cli.orders.PayOrder(payCtx, &eventhubv1.OrderIDRequest{OrderID: order.Order.ID})
		return err
	})
	if err != nil || r.cfg.mode != modeTicketCancel {
		return err
	}

	cancelCtx, cancelCancel, err := r.callContext(ctx, user, key("cancel"))
	if err != nil {
		return err
	}
	defer cancelCancel()
	return r.timed("CancelOrder", func() error {
		_, err := cli.orders.CancelOrder(cancelCtx, &eventhubv1.OrderReasonRequest{OrderID: order.Order.ID, Reason: "load test"})
		return err
	})
}

// run раздаёт сценарии воркерам и ждёт их завершения. Ошибка сценария не
// останавливает прогон; возвращаются только ошибки подготовки.
func (r *runner) run(ctx context.Context, pool []clients) (report, error) {
	if len(pool) == 0 {
		return report{}, errors.New("at least one client is required")
	}
	if err := r.prepare(ctx, pool[0]); err != nil {
		return report{}, err
	}

	startedAt := time.Now()
	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		return r.dispatch(gctx, jobs)
	})
	for worker := 0; worker < r.cfg.concurrency; worker++ {
		cli := pool[worker%len(pool)]
		g.Go(func() error {
			for index := range jobs {
				_ = r.scenario(ctx, cli, index)
			}
			return nil
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	return r.stats.report(startedAt, time.Since(startedAt)), err
}

func (r *runner) dispatch(ctx context.Context, jobs chan<- int) error {
	limit := rate.Inf
	if r.cfg.rps > 0 {
		limit = rate.Limit(r.cfg.rps)
	}
	limiter := rate.NewLimiter(limit, 1)

	if r.cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.duration)
		defer cancel()
	}
	for i := 0; r.cfg.duration > 0 && r.cfg.total <= 0 || i < r.cfg.total; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case jobs <- i:
		}
	}
	return nil
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt       time.Time               `json:"started_at"`
	DurationSeconds float64                 `json:"duration_seconds"`
	Scenarios       methodReport            `json:"scenarios"`
	RPS             float64                 `json:"rps"`
	Methods         map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*methodStats)}
}

func (c *collector) record(method string, latency time.Duration, code codes.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.methods[method]
	if !ok {
		st = &methodStats{codes: make(map[string]int64)}
		c.methods[method] = st
	}
	st.calls++
	if code != codes.OK {
		st.failed++
	}
	st.codes[code.String()]++
	st.latencies = append(st.latencies, float64(latency.Microseconds())/1000)
}

func (c *collector) report(startedAt time.Time, elapsed time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: elapsed.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}
	for name, st := range c.methods {
		codesCopy := make(map[string]int64, len(st.codes))
		for code, n := range st.codes {
			codesCopy[code] = n
		}
		mr := methodReport{
			Calls:     st.calls,
			Failed:    st.failed,
			ErrorRate: ratio(st.failed, st.calls),
			Codes:     codesCopy,
			LatencyMs: summarize(st.latencies),
		}
		if name == scenarioMethod {
			out.Scenarios = mr
			continue
		}
		out.Methods[name] = mr
	}
	if elapsed > 0 {
		out.RPS = float64(out.Scenarios.Calls) / elapsed.Seconds()
	}
	return out
}

func summarize(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile интерполирует между соседними значениями отсортированной выборки.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo, hi := int(math.Floor(rank)), int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func ratio(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func printReport(w io.Writer, cfg config, rep report) {
	fmt.Fprintf(w, "mode=%s scenarios=%d failed=%d error_rate=%.4f duration=%.2fs rps=%.2f\n",
		cfg.mode, rep.Scenarios.Calls, rep.Scenarios.Failed, rep.Scenarios.ErrorRate, rep.DurationSeconds, rep.RPS)
	lat := rep.Scenarios.LatencyMs
	fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		lat.Min, lat.Avg, lat.P50, lat.P95, lat.P99, lat.Max)

	names := make([]string, 0, len(rep.Methods))
	for name := range rep.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := rep.Methods[name]
		fmt.Fprintf(w, "%s: calls=%d failed=%d p95=%.2fms codes=%v\n", name, m.Calls, m.Failed, m.LatencyMs.P95, m.Codes)
	}
}

func writeReport(path string, rep report) error {
	clean := filepath.Clean(path)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path %q must name a file inside the working directory", path)
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(clean, append(data, '\n'), 0o600)
}

func dial(cfg config) ([]clients, func(), error) {
	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	closeAll := func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}
	pool := make([]clients, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, err := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("dial %s: %w", cfg.addr, err)
		}
		conns = append(conns, conn)
		pool = append(pool, clients{
			events: eventhubv1.NewEventServiceClient(conn),
			orders: eventhubv1.NewOrderServiceClient(conn),
		})
	}
	return pool, closeAll, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, closeAll, err := dial(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeAll()

	r, err := newRunner(cfg, fmt.Sprintf("%d", time.Now().UnixNano()))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rep, err := r.run(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test aborted: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, cfg, rep)
	if cfg.outputPath != "" {
		if err := writeReport(cfg.outputPath, rep); err != nil {
			fmt.Fprintf(os.Stderr, "write report: %v\n", err)
			os.Exit(1)
		}
	}
	if rep.Scenarios.Failed > 0 {
		os.Exit(1)
	}
}
