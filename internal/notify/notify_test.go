package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithTimeout_PassesThroughSuccess(t *testing.T) {
	var got string
	n := WithTimeout(NotifierFunc(func(ctx context.Context, address, subject, body string) error {
		got = address
		return nil
	}), time.Second)

	require.NoError(t, n.Notify(context.Background(), "a@example.com", "s", "b"))
	assert.Equal(t, "a@example.com", got)
}

func TestWithTimeout_WrapsFailureAsDependency(t *testing.T) {
	n := WithTimeout(NotifierFunc(func(ctx context.Context, address, subject, body string) error {
		return errors.New("smtp down")
	}), time.Second)

	err := n.Notify(context.Background(), "a@example.com", "s", "b")
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.Equal(t, domain.KindDependency, domain.KindOf(err))
}

func TestWithTimeout_AbandonsNotifierThatIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	n := WithTimeout(NotifierFunc(func(ctx context.Context, address, subject, body string) error {
		<-release
		return nil
	}), 20*time.Millisecond)

	start := time.Now()
	err := n.Notify(context.Background(), "a@example.com", "s", "b")

	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Notify(context.Background(), "a@example.com", "Order Status Updated", "hello"))

	entries := logs.FilterMessage("Email sent").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a@example.com", entries[0].ContextMap()["to"])
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaNotifier_PublishesKeyedByRecipient(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifierWithWriter(w, zap.NewNop())

	require.NoError(t, n.Notify(context.Background(), "a@example.com", "subj", "body"))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "a@example.com", string(w.msgs[0].Key))

	var payload Notification
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &payload))
	assert.Equal(t, "subj", payload.Subject)
	assert.Equal(t, "body", payload.Body)
}

func TestKafkaNotifier_ReturnsWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	n := NewKafkaNotifierWithWriter(w, zap.NewNop())

	assert.Error(t, n.Notify(context.Background(), "a@example.com", "subj", "body"))
}
