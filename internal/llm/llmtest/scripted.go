// Package llmtest provides deterministic completion providers for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"patentrag/internal/llm"
)

// Reply configures one completion in a scripted sequence.
type Reply struct {
	Content string
	Err     error
}

// Scripted returns its replies in order and records every prompt it receives.
type Scripted struct {
	mu      sync.Mutex
	index   int
	replies []Reply
	prompts []*llm.Prompt
	// Fallback answers every call once the script is exhausted. When nil an
	// exhausted script returns an error.
	Fallback func(prompt *llm.Prompt) (string, error)
}

var _ llm.Provider = (*Scripted)(nil)

func NewScripted(replies ...Reply) *Scripted {
	cloned := make([]Reply, len(replies))
	copy(cloned, replies)
	return &Scripted{replies: cloned}
}

// Func builds a provider that answers every prompt with fn.
func Func(fn func(prompt *llm.Prompt) (string, error)) *Scripted {
	return &Scripted{Fallback: fn}
}

func (s *Scripted) Name() string { return "scripted" }

func (s *Scripted) Complete(ctx context.Context, prompt *llm.Prompt, _ *llm.RequestOptions) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	if s.index >= len(s.replies) {
		if s.Fallback != nil {
			content, err := s.Fallback(prompt)
			if err != nil {
				return nil, err
			}
			return &llm.Response{Content: content, Model: "scripted"}, nil
		}
		return nil, fmt.Errorf("script exhausted at call %d", s.index+1)
	}
	current := s.replies[s.index]
	s.index++
	if current.Err != nil {
		return nil, current.Err
	}
	return &llm.Response{Content: current.Content, Model: "scripted"}, nil
}

// Calls returns the number of completions requested so far.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// Prompts returns the prompts received so far.
func (s *Scripted) Prompts() []*llm.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*llm.Prompt, len(s.prompts))
	copy(out, s.prompts)
	return out
}
