package observability

import (
	"context"
	"errors"
	"testing"
)

func TestInitTracingWithoutEndpointIsNoop(t *testing.T) {
	tp, err := InitTracing(context.Background(), TracingConfig{})
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestSpanHelpersWithNoopProvider(t *testing.T) {
	ctx, run := StartRunSpan(context.Background(), "run-1", 10)
	ctx, turn := StartTurnSpan(ctx, 1)
	_, tool := StartToolSpan(ctx, "internal_db")
	RecordError(tool, errors.New("boom"))
	RecordError(tool, nil)
	tool.End()
	turn.End()
	run.End()
}
