package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-tracker/internal/events"
	"github.com/spec-kit/maintenance-tracker/internal/policy"
	"github.com/spec-kit/maintenance-tracker/internal/repository"
	"github.com/spec-kit/maintenance-tracker/internal/validation"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// eventPublisher stamps and publishes domain events after the write they describe.
// Subscriber failures are logged per subscriber, never returned.
type eventPublisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func (p eventPublisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	err := p.dispatcher.Publish(ctx, event)
	for _, failure := range events.DeliveryErrors(err) {
		p.logger.Warn("event subscriber failed",
			zap.String("subscriber", failure.Subscriber),
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(failure.Err))
	}
}

func eventActor(actor *policy.Actor) events.Actor {
	return events.Actor{UserID: actor.UserID, Role: actor.Role}
}

// authenticated rejects anonymous callers before any other check.
func authenticated(actor *policy.Actor) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// storeError maps repository sentinels to domain errors. Anything else is an infrastructure failure.
func storeError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	default:
		return apperrors.NewInternalError(err)
	}
}

// required runs the missing-parameter check over name/value pairs in order.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := validation.Required(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func defaultClock(now func() time.Time) func() time.Time {
	if now == nil {
		return func() time.Time { return time.Now().UTC() }
	}
	return now
}
