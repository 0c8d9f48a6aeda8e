package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса. Значения читаются из окружения
// с префиксом EVENTHUB_.
type Config struct {
	GRPCAddr    string `env:"EVENTHUB_GRPC_ADDR,default=:50051"`
	MetricsAddr string `env:"EVENTHUB_HTTP_ADDR,default=:9090"`
	LogLevel    string `env:"EVENTHUB_LOG_LEVEL,default=info"`

	StorageDriver       string `env:"EVENTHUB_STORAGE_DRIVER,default=memory"`
	PostgresDSN         string `env:"EVENTHUB_POSTGRES_DSN"`
	PostgresAutoMigrate bool   `env:"EVENTHUB_POSTGRES_AUTO_MIGRATE,default=true"`

	RedisAddr     string `env:"EVENTHUB_REDIS_ADDR"`
	RedisPassword string `env:"EVENTHUB_REDIS_PASSWORD"`
	RedisDB       int    `env:"EVENTHUB_REDIS_DB,default=0"`

	KafkaBrokers string `env:"EVENTHUB_KAFKA_BROKERS"`
	KafkaGroupID string `env:"EVENTHUB_KAFKA_GROUP_ID,default=eventhub-notifications"`

	JWTSecret      string  `env:"EVENTHUB_JWT_SECRET"`
	RateLimitRPS   float64 `env:"EVENTHUB_RATE_LIMIT_RPS,default=20"`
	RateLimitBurst int     `env:"EVENTHUB_RATE_LIMIT_BURST,default=40"`

	OutboxPollInterval time.Duration `env:"EVENTHUB_OUTBOX_POLL_INTERVAL,default=1s"`
	OutboxBatchSize    int           `env:"EVENTHUB_OUTBOX_BATCH_SIZE,default=100"`
	OutboxMaxAttempts  int           `env:"EVENTHUB_OUTBOX_MAX_ATTEMPTS,default=5"`
	OutboxRetryDelay   time.Duration `env:"EVENTHUB_OUTBOX_RETRY_DELAY,default=200ms"`

	IdempotencyTTL              time.Duration `env:"EVENTHUB_IDEMPOTENCY_TTL,default=24h"`
	IdempotencyCleanupInterval  time.Duration `env:"EVENTHUB_IDEMPOTENCY_CLEANUP_INTERVAL,default=10m"`
	IdempotencyCleanupBatchSize int           `env:"EVENTHUB_IDEMPOTENCY_CLEANUP_BATCH_SIZE,default=500"`

	PendingOrderTTL       time.Duration `env:"EVENTHUB_PENDING_ORDER_TTL,default=30m"`
	SchedulerExpireSpec   string        `env:"EVENTHUB_SCHEDULER_EXPIRE_SPEC,default=@every 1m"`
	SchedulerCompleteSpec string        `env:"EVENTHUB_SCHEDULER_COMPLETE_SPEC,default=@every 5m"`

	PackagesFile        string        `env:"EVENTHUB_PACKAGES_FILE"`
	FreeEventQuota      int           `env:"EVENTHUB_FREE_EVENT_QUOTA,default=2"`
	OTPTTL              time.Duration `env:"EVENTHUB_OTP_TTL,default=15m"`
	OTPMaxAttempts      int           `env:"EVENTHUB_OTP_MAX_ATTEMPTS,default=5"`
	DeliveryMaxRadiusKm float64       `env:"EVENTHUB_DELIVERY_MAX_RADIUS_KM,default=15"`
}

// DefaultConfig возвращает значения по умолчанию (совпадают с тегами default).
func DefaultConfig() Config {
	return Config{
		GRPCAddr:                    ":50051",
		MetricsAddr:                 ":9090",
		LogLevel:                    "info",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		KafkaGroupID:                "eventhub-notifications",
		RateLimitRPS:                20,
		RateLimitBurst:              40,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           5,
		OutboxRetryDelay:            200 * time.Millisecond,
		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
		PendingOrderTTL:             30 * time.Minute,
		SchedulerExpireSpec:         "@every 1m",
		SchedulerCompleteSpec:       "@every 5m",
		FreeEventQuota:              2,
		OTPTTL:                      15 * time.Minute,
		OTPMaxAttempts:              5,
		DeliveryMaxRadiusKm:         15,
	}
}

// LoadConfig читает .env (если файл есть) и окружение.
// Пустой envFile означает ".env" в рабочем каталоге.
func LoadConfig(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := DefaultConfig()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("EVENTHUB_POSTGRES_DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("EVENTHUB_JWT_SECRET is required"))
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("invalid redis db %d", c.RedisDB))
	}
	if c.FreeEventQuota < 0 {
		errs = append(errs, fmt.Errorf("invalid free event quota %d", c.FreeEventQuota))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// KafkaBrokerList разбирает список брокеров через запятую.
func (c Config) KafkaBrokerList() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
