package tool

import (
	"context"
	"errors"
	"testing"
)

func echoTool(name string) Tool {
	return Func{
		Desc: Descriptor{Name: name, Description: "echoes input"},
		Fn:   func(_ context.Context, input string) (string, error) { return name + ":" + input, nil },
	}
}

func TestRegistryDispatchByName(t *testing.T) {
	r, err := NewRegistry(echoTool("a"), echoTool("b"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	out, err := r.Invoke(context.Background(), "b", "x")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "b:x" {
		t.Fatalf("out = %q", out)
	}
	descs := r.Descriptors()
	if len(descs) != 2 || descs[0].Name != "a" || descs[1].Name != "b" {
		t.Fatalf("descriptors = %+v", descs)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r, _ := NewRegistry(echoTool("internal_db"))
	_, err := r.Invoke(context.Background(), "web_search", "x")
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
	var ute *UnknownToolError
	if !errors.As(err, &ute) || ute.Name != "web_search" || len(ute.Available) != 1 {
		t.Fatalf("unexpected error %#v", err)
	}
}

func TestRegistryRejectsDuplicatesAndEmptyNames(t *testing.T) {
	if _, err := NewRegistry(echoTool("a"), echoTool("a")); !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
	if _, err := NewRegistry(echoTool(" ")); !errors.Is(err, ErrToolNameEmpty) {
		t.Fatalf("expected ErrToolNameEmpty, got %v", err)
	}
}

func TestRegistryHonorsCancelledContext(t *testing.T) {
	r, _ := NewRegistry(echoTool("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Invoke(ctx, "a", "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
