package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Notification is the payload a downstream mailer consumes.
type Notification struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// KafkaNotifier hands notifications to a mailer through a Kafka topic.
type KafkaNotifier struct {
	writer MessageWriter
	logger *zap.Logger
}

func NewKafkaNotifier(brokers, topic string, logger *zap.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return NewKafkaNotifierWithWriter(writer, logger)
}

func NewKafkaNotifierWithWriter(writer MessageWriter, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: writer,
		logger: logger,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, address, subject, body string) error {
	payload, err := json.Marshal(Notification{
		To:      address,
		Subject: subject,
		Body:    body,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	// Keyed by recipient so one customer's messages stay ordered.
	msg := kafka.Message{
		Key:   []byte(address),
		Value: payload,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	n.logger.Debug("Notification published", zap.String("to", address))
	return nil
}

func (n *KafkaNotifier) Close() error {
	if n.writer != nil {
		return n.writer.Close()
	}
	return nil
}
