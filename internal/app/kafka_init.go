package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventhub/internal/messaging/kafka"
)

// initKafkaProducer создаёт producer, если брокеры заданы.
// Возвращает nil, nil для пустого списка.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// initNotificationConsumer подписывает fan-out уведомлений на топик доменных событий.
// Сообщения, не обработанные после повторов, уходят в DLQ.
func initNotificationConsumer(brokers []string, groupID string, handler kafka.MessageHandler, dlq *kafka.Producer, logger *log.Entry) (*kafka.Consumer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	return kafka.NewConsumer(brokers, groupID, []string{kafka.TopicDomainEvents}, handler,
		kafka.WithDLQ(dlq),
		kafka.WithConsumerLogger(logger.WithField("component", "kafka-consumer")),
	)
}

// closeKafka закрывает producer, если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
