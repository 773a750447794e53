package notify

import (
	"context"
	"errors"
	"fmt"

	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"go.uber.org/zap"
)

// Sink is a single delivery channel.
type Sink interface {
	Name() string
	Notify(ctx context.Context, text string) error
}

// Multi delivers one alert to every sink. A failing sink does not stop the
// others; all failures are joined into one NotificationError.
type Multi struct {
	log   *zap.Logger
	sinks []Sink
}

func NewMulti(log *zap.Logger, sinks ...Sink) *Multi {
	if log == nil {
		log = zap.NewNop()
	}

	return &Multi{log: log, sinks: sinks}
}

func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) Notify(ctx context.Context, text string) error {
	const op = "notify.Multi.Notify"
	logger := m.log.With(zap.String("op", op))

	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Notify(ctx, text); err != nil {
			logger.Warn("sink delivery failed", zap.String("sink", sink.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		logger.Debug("alert delivered", zap.String("sink", sink.Name()))
	}

	if len(errs) == 0 {
		return nil
	}
	return &derr.NotificationError{Err: errors.Join(errs...)}
}
