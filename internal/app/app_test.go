package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.uber.org/goleak"

	"github.com/vladislavdragonenkov/eventhub/internal/clock"
	"github.com/vladislavdragonenkov/eventhub/internal/domain"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWTSecret = "app-test-secret"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.StorageDriver = StorageDriverMemory
	return cfg
}

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, testConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = "invalid-driver"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestRun_RequiresJWTSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""

	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}

func TestRun_InvalidListenAddr(t *testing.T) {
	cfg := testConfig()
	cfg.GRPCAddr = "256.0.0.1:50051"

	if err := Run(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "listen grpc") {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestBuildComponents_SeedsPackageCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packages.yaml")
	catalog := `packages:
  - id: starter
    name: Starter
    event_credits: 5
    price_minor: 49900
    currency: INR
    duration_days: 30
  - id: legacy
    name: Legacy
    event_credits: 1
    price_minor: 100
    currency: INR
    duration_days: 7
    active: false
`
	if err := os.WriteFile(path, []byte(catalog), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cfg := testConfig()
	cfg.PackagesFile = path
	deps := memoryDependencies()
	comps, err := buildComponents(cfg, deps, clock.NewSystem(), prometheus.NewRegistry(), log.WithField("test", "components"))
	if err != nil {
		t.Fatalf("buildComponents failed: %v", err)
	}

	active, err := comps.subscriptions.ListPackages(true)
	if err != nil {
		t.Fatalf("list packages: %v", err)
	}
	if len(active) != 1 || active[0].ID != "starter" {
		t.Fatalf("expected only the starter package to be active, got %+v", active)
	}
	all, err := comps.subscriptions.ListPackages(false)
	if err != nil {
		t.Fatalf("list packages: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(all))
	}
}

func TestBuildComponents_MissingCatalog(t *testing.T) {
	cfg := testConfig()
	cfg.PackagesFile = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := buildComponents(cfg, memoryDependencies(), nil, prometheus.NewRegistry(), log.WithField("test", "components"))
	if err == nil || !strings.Contains(err.Error(), "package catalog") {
		t.Fatalf("expected catalog error, got %v", err)
	}
}

func TestOutboxWorker_InProcessFanout(t *testing.T) {
	cfg := testConfig()
	deps := memoryDependencies()
	clk := clock.NewManual(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	logger := log.WithField("test", "outbox-inprocess")

	comps, err := buildComponents(cfg, deps, clk, prometheus.NewRegistry(), logger)
	if err != nil {
		t.Fatalf("buildComponents failed: %v", err)
	}
	follower := domain.Actor{UserID: "fan-1", Role: domain.RoleUser}
	if _, err := comps.social.Follow(follower, "artist-1"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	worker := newOutboxWorker(cfg, deps.outbox, nil, comps, clk, logger)
	if n := worker.ProcessOnce(context.Background()); n != 1 {
		t.Fatalf("expected 1 outbox message, got %d", n)
	}

	items, unread, err := comps.notifications.List(domain.Actor{UserID: "artist-1", Role: domain.RoleUser}, false, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(items) != 1 || unread != 1 {
		t.Fatalf("expected one unread notification for the followee, got %d items, %d unread", len(items), unread)
	}
	if items[0].Kind != domain.NotificationNewFollower {
		t.Fatalf("unexpected notification kind %s", items[0].Kind)
	}
}
