// Package tool defines the callables the agent may invoke and the registry it dispatches through.
package tool

import "context"

// Descriptor names and describes a tool to the reasoning model.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Tool is a named callable taking free text and returning free text.
type Tool interface {
	Descriptor() Descriptor
	Invoke(ctx context.Context, input string) (string, error)
}

// Func adapts a function into a Tool.
type Func struct {
	Desc Descriptor
	Fn   func(ctx context.Context, input string) (string, error)
}

func (f Func) Descriptor() Descriptor { return f.Desc }

func (f Func) Invoke(ctx context.Context, input string) (string, error) {
	return f.Fn(ctx, input)
}
