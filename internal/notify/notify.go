// Package notify delivers order status messages to customers.
//
// Notifiers are best-effort: callers treat every error as a dependency
// failure to be logged, never as a reason to undo committed state.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/domain"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, address, subject, body string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, address, subject, body string) error

func (f NotifierFunc) Notify(ctx context.Context, address, subject, body string) error {
	return f(ctx, address, subject, body)
}

// WithTimeout bounds every Notify call by d. A call that has not returned by
// the deadline is abandoned and reported as a dependency failure, even if
// the wrapped notifier ignores its context.
func WithTimeout(n Notifier, d time.Duration) Notifier {
	return NotifierFunc(func(ctx context.Context, address, subject, body string) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- n.Notify(ctx, address, subject, body)
		}()

		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrDependency, err)
			}
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: notification abandoned: %w", domain.ErrDependency, ctx.Err())
		}
	})
}

// LogNotifier writes the message to the service log instead of sending it.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("Email sent",
		zap.String("to", address),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
