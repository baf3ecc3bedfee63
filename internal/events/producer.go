package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type KafkaProducer struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

func NewKafkaProducer(brokers, topic string, logger *zap.Logger) (*KafkaProducer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"acks":               "all",
		"retries":            10,
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, err
	}

	// Delivery reports arrive asynchronously.
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.Error("Event delivery failed",
						zap.String("key", string(ev.Key)),
						zap.Error(ev.TopicPartition.Error))
				}
			case kafka.Error:
				logger.Warn("Kafka producer error", zap.Error(ev))
			}
		}
	}()

	return &KafkaProducer{
		producer: p,
		topic:    topic,
		logger:   logger,
	}, nil
}

func (p *KafkaProducer) PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error {
	return p.produce(ctx, orderKey(event.OrderID), event.EventType, event)
}

func (p *KafkaProducer) PublishOrderStatusChanged(ctx context.Context, event OrderStatusChangedEvent) error {
	return p.produce(ctx, orderKey(event.OrderID), event.EventType, event)
}

func (p *KafkaProducer) produce(ctx context.Context, key, eventType string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}

	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}, nil)
}

// HealthCheck asks the cluster for the topic's metadata.
func (p *KafkaProducer) HealthCheck(ctx context.Context) error {
	timeoutMs := 5000
	if deadline, ok := ctx.Deadline(); ok {
		if ms := int(time.Until(deadline).Milliseconds()); ms > 0 && ms < timeoutMs {
			timeoutMs = ms
		}
	}
	_, err := p.producer.GetMetadata(&p.topic, false, timeoutMs)
	return err
}

func (p *KafkaProducer) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
}
