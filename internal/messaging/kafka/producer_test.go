package kafka

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicDomainEvents {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var decoded map[string]string
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded["event_id"] != "event-1" {
			return fmt.Errorf("unexpected payload %s", value)
		}
		return nil
	})

	producer := NewProducerFromSync(mockProducer, nil)
	if err := producer.PublishEvent(TopicDomainEvents, "event-1", map[string]string{"event_id": "event-1"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewProducerFromSync(mockProducer, nil)
	if err := producer.PublishEvent(TopicDomainEvents, "event-1", map[string]string{}); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := producer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	producer := NewProducerFromSync(mocks.NewSyncProducer(t, nil), nil)
	if err := producer.PublishEvent(TopicDomainEvents, "k", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestNewProducerConfig(t *testing.T) {
	cfg := newProducerConfig()
	if !cfg.Producer.Idempotent || cfg.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatal("producer must be idempotent with acks=all")
	}
	if cfg.Net.MaxOpenRequests != 1 {
		t.Fatalf("idempotent producer requires MaxOpenRequests=1, got %d", cfg.Net.MaxOpenRequests)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config invalid: %v", err)
	}
}
