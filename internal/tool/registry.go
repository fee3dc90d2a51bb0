package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrUnknownTool is matched by every UnknownToolError.
	ErrUnknownTool   = errors.New("tool is not registered")
	ErrToolNameEmpty = errors.New("tool name is empty")
	ErrDuplicateTool = errors.New("tool is already registered")
)

// UnknownToolError reports a dispatch to a name missing from the registry.
type UnknownToolError struct {
	Name      string
	Available []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownToolError) Is(target error) bool { return target == ErrUnknownTool }

// Registry maps tool names to tools, preserving registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(t Tool) error {
	name := t.Descriptor().Name
	if strings.TrimSpace(name) == "" {
		return ErrToolNameEmpty
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[strings.TrimSpace(name)]
	if !ok {
		return nil, &UnknownToolError{Name: name, Available: append([]string(nil), r.order...)}
	}
	return t, nil
}

// Invoke dispatches input to the named tool.
func (r *Registry) Invoke(ctx context.Context, name, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return t.Invoke(ctx, input)
}

// Descriptors lists the registered tools in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Descriptor())
	}
	return out
}

// Tools lists the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}
