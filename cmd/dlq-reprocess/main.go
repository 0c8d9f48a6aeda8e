// Команда dlq-reprocess возвращает сообщения из DLQ в топик доменных событий.
// По умолчанию работает в режиме dry-run и только печатает кандидатов.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/domain"
	"github.com/vladislavdragonenkov/eventhub/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/eventhub/internal/service/outbox"
)

const (
	defaultLimit       = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "EVENTHUB_KAFKA_BROKERS"
)

// errSkip означает, что сообщение не похоже ни на один из форматов DLQ.
var errSkip = errors.New("not a dead letter")

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

type replayMessage struct {
	topic   string
	key     string
	value   []byte
	headers []sarama.RecordHeader
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

// publisher реализуется *kafka.Producer.
type publisher interface {
	PublishRaw(topic, key string, value []byte, headers ...sarama.RecordHeader) error
	Close() error
}

type saramaSource struct {
	consumer sarama.Consumer
}

func (s saramaSource) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	return s.consumer.ConsumePartition(topic, partition, offset)
}

func (s saramaSource) Close() error { return s.consumer.Close() }

type dependencies struct {
	client    offsetClient
	source    partitionSource
	publisher publisher
}

func (d dependencies) close() {
	if d.publisher != nil {
		_ = d.publisher.Close()
	}
	if d.source != nil {
		_ = d.source.Close()
	}
	if d.client != nil {
		_ = d.client.Close()
	}
}

var connect = func(cfg config) (dependencies, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, saramaCfg)
	if err != nil {
		return dependencies{}, fmt.Errorf("create kafka client: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return dependencies{}, fmt.Errorf("create kafka consumer: %w", err)
	}
	deps := dependencies{client: client, source: saramaSource{consumer: consumer}}
	if !cfg.execute {
		return deps, nil
	}

	producer, err := kafka.NewProducer(cfg.brokers)
	if err != nil {
		deps.close()
		return dependencies{}, err
	}
	deps.publisher = producer
	return deps, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Error("dlq replay failed")
		os.Exit(1)
	}
}

func parseConfig(args []string, getenv func(string) string, output io.Writer) (config, error) {
	var (
		cfg     config
		brokers string
	)
	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&brokers, "brokers", "", "comma-separated Kafka brokers (fallback: "+envKafkaBrokers+")")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ topic to scan")
	fs.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicDomainEvents, "topic for replayed events")
	fs.IntVar(&cfg.limit, "limit", defaultLimit, "max messages to scan")
	fs.BoolVar(&cfg.execute, "execute", false, "publish replayed events (dry-run otherwise)")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "scan the newest messages of each partition")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "stop reading a partition after this idle period")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokers) == "" {
		brokers = getenv(envKafkaBrokers)
	}
	cfg.brokers = splitBrokers(brokers)

	var errs []error
	if len(cfg.brokers) == 0 {
		errs = append(errs, fmt.Errorf("kafka brokers are required (-brokers or %s)", envKafkaBrokers))
	}
	if strings.TrimSpace(cfg.sourceTopic) == "" {
		errs = append(errs, errors.New("source-topic is required"))
	}
	if strings.TrimSpace(cfg.targetTopic) == "" {
		errs = append(errs, errors.New("target-topic is required"))
	}
	if cfg.limit <= 0 {
		errs = append(errs, errors.New("limit must be positive"))
	}
	if cfg.idleTimeout <= 0 {
		errs = append(errs, errors.New("idle-timeout must be positive"))
	}
	return cfg, errors.Join(errs...)
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, part := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(part); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	deps, err := connect(cfg)
	if err != nil {
		return err
	}
	defer deps.close()
	_, err = replay(ctx, cfg, deps)
	return err
}

type stats struct {
	scanned  int
	replayed int
	skipped  int
}

func (s *stats) add(other stats) {
	s.scanned += other.scanned
	s.replayed += other.replayed
	s.skipped += other.skipped
}

func replay(ctx context.Context, cfg config, deps dependencies) (stats, error) {
	var total stats
	if deps.client == nil || deps.source == nil {
		return total, errors.New("kafka client and consumer are required")
	}
	if cfg.execute && deps.publisher == nil {
		return total, errors.New("publisher is required with -execute")
	}

	logger := log.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"execute":      cfg.execute,
	})
	logger.WithField("limit", cfg.limit).Info("dlq replay started")

	partitions, err := deps.client.Partitions(cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("list partitions of %s: %w", cfg.sourceTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.scanned >= cfg.limit {
			break
		}
		got, err := replayPartition(ctx, cfg, deps, partition, cfg.limit-total.scanned)
		total.add(got)
		if err != nil {
			return total, err
		}
	}

	logger.WithFields(log.Fields{
		"scanned":  total.scanned,
		"replayed": total.replayed,
		"skipped":  total.skipped,
	}).Info("dlq replay finished")
	return total, nil
}

func replayPartition(ctx context.Context, cfg config, deps dependencies, partition int32, limit int) (stats, error) {
	var st stats

	oldest, err := deps.client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return st, fmt.Errorf("oldest offset of partition %d: %w", partition, err)
	}
	newest, err := deps.client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return st, fmt.Errorf("newest offset of partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return st, nil
	}

	start := oldest
	if cfg.fromNewest && newest-int64(limit) > oldest {
		start = newest - int64(limit)
	}

	pc, err := deps.source.ConsumePartition(cfg.sourceTopic, partition, start)
	if err != nil {
		return st, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(cfg.idleTimeout)
	defer idle.Stop()

	for st.scanned < limit {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-idle.C:
			return st, nil
		case cerr, ok := <-pc.Errors():
			if ok && cerr != nil {
				return st, fmt.Errorf("partition %d: %w", partition, cerr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return st, nil
			}
			idle.Reset(cfg.idleTimeout)
			st.scanned++

			if err := handle(cfg, deps.publisher, msg); err != nil {
				if errors.Is(err, errSkip) {
					st.skipped++
					continue
				}
				var publishErr *publishError
				if errors.As(err, &publishErr) {
					return st, err
				}
				st.skipped++
				log.WithError(err).WithFields(log.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("skip malformed dead letter")
				continue
			}
			st.replayed++

			if msg.Offset+1 >= newest {
				return st, nil
			}
		}
	}
	return st, nil
}

type publishError struct{ err error }

func (e *publishError) Error() string { return "publish replay: " + e.err.Error() }
func (e *publishError) Unwrap() error { return e.err }

func handle(cfg config, pub publisher, msg *sarama.ConsumerMessage) error {
	out, err := decodeDeadLetter(msg, cfg.targetTopic, time.Now())
	if err != nil {
		return err
	}
	fields := log.Fields{
		"partition":    msg.Partition,
		"offset":       msg.Offset,
		"target_topic": out.topic,
		"key":          out.key,
	}
	if !cfg.execute {
		log.WithFields(fields).Info("replay candidate")
		return nil
	}
	if err := pub.PublishRaw(out.topic, out.key, out.value, out.headers...); err != nil {
		return &publishError{err: err}
	}
	log.WithFields(fields).Debug("replayed")
	return nil
}

// decodeDeadLetter восстанавливает исходное событие. Поддерживаются записи
// консьюмера (kafka.DLQMessage) и outbox-воркера (outbox.DeadLetter в конверте).
func decodeDeadLetter(msg *sarama.ConsumerMessage, fallbackTopic string, now time.Time) (replayMessage, error) {
	var probe struct {
		OriginalValue json.RawMessage `json:"original_value"`
		EventType     string          `json:"event_type"`
	}
	if err := json.Unmarshal(msg.Value, &probe); err != nil {
		return replayMessage{}, errSkip
	}

	switch {
	case len(probe.OriginalValue) > 0:
		var dlq kafka.DLQMessage
		if err := json.Unmarshal(msg.Value, &dlq); err != nil {
			return replayMessage{}, fmt.Errorf("decode consumer dead letter: %w", err)
		}
		return fromConsumerDLQ(dlq, fallbackTopic)
	case probe.EventType != "":
		env, err := kafka.DecodeEnvelope(msg)
		if err != nil {
			return replayMessage{}, err
		}
		return fromOutboxDLQ(env, fallbackTopic, now)
	default:
		return replayMessage{}, errSkip
	}
}

func fromConsumerDLQ(dlq kafka.DLQMessage, fallbackTopic string) (replayMessage, error) {
	value := []byte(dlq.OriginalValue)
	var quoted string
	if json.Unmarshal(dlq.OriginalValue, &quoted) == nil {
		value = []byte(quoted)
	}
	topic := strings.TrimSpace(dlq.OriginalTopic)
	if topic == "" {
		topic = fallbackTopic
	}

	out := replayMessage{topic: topic, key: dlq.OriginalKey, value: value}
	var env kafka.Envelope
	if json.Unmarshal(value, &env) == nil && env.EventType != "" {
		out.headers = eventHeaders(env.EventType, env.ID)
	}
	return out, nil
}

func fromOutboxDLQ(env kafka.Envelope, topic string, now time.Time) (replayMessage, error) {
	var dead outbox.DeadLetter
	if err := json.Unmarshal(env.Payload, &dead); err != nil {
		return replayMessage{}, fmt.Errorf("decode outbox dead letter: %w", err)
	}
	if p := bytes.TrimSpace(dead.Payload); len(p) == 0 || string(p) == "null" {
		return replayMessage{}, errors.New("outbox dead letter has no event payload")
	}

	original := domain.OutboxMessage{
		ID:            firstNonBlank(dead.OutboxID, env.ID),
		AggregateType: firstNonBlank(dead.AggregateType, env.AggregateType),
		AggregateID:   firstNonBlank(dead.AggregateID, env.AggregateID),
		EventType:     firstNonBlank(dead.EventType, env.EventType),
		Payload:       []byte(dead.Payload),
	}
	value, err := json.Marshal(kafka.NewEnvelope(original, now))
	if err != nil {
		return replayMessage{}, fmt.Errorf("encode envelope: %w", err)
	}
	return replayMessage{
		topic:   topic,
		key:     firstNonBlank(original.AggregateID, original.ID),
		value:   value,
		headers: eventHeaders(original.EventType, original.ID),
	}, nil
}

func eventHeaders(eventType, outboxID string) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte(kafka.HeaderEventType), Value: []byte(eventType)},
		{Key: []byte(kafka.HeaderOutboxID), Value: []byte(outboxID)},
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
