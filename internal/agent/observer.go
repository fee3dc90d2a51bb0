package agent

import (
	"context"
	"log/slog"
)

// Observer receives each turn as soon as it is recorded.
type Observer interface {
	OnTurn(ctx context.Context, runID string, turn Turn)
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc func(ctx context.Context, runID string, turn Turn)

func (f ObserverFunc) OnTurn(ctx context.Context, runID string, turn Turn) { f(ctx, runID, turn) }

// LogObserver logs every turn at debug level, errors at warn.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(ctx context.Context, runID string, turn Turn) {
		attrs := []any{
			slog.String("run_id", runID),
			slog.Int("turn", turn.Number),
			slog.String("state", turn.State().String()),
		}
		switch {
		case turn.FinalAnswer != "":
			logger.DebugContext(ctx, "agent answered", append(attrs, slog.Int("answer_len", len(turn.FinalAnswer)))...)
		case turn.IsError:
			logger.WarnContext(ctx, "agent turn failed", append(attrs,
				slog.String("action", turn.Action),
				slog.String("observation", turn.Observation))...)
		default:
			logger.DebugContext(ctx, "agent acted", append(attrs,
				slog.String("action", turn.Action),
				slog.String("input", turn.ActionInput),
				slog.Int("observation_len", len(turn.Observation)))...)
		}
	})
}

type observers []Observer

func (o observers) OnTurn(ctx context.Context, runID string, turn Turn) {
	for _, obs := range o {
		obs.OnTurn(ctx, runID, turn)
	}
}
