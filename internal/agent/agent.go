// Package agent runs the bounded reason-act loop that answers patent questions
// by calling tools and synthesizing their observations.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"patentrag/internal/domain"
	"patentrag/internal/llm"
	"patentrag/internal/observability"
	"patentrag/internal/tool"
)

const (
	DefaultMaxTurns         = 10
	DefaultSummarySentences = 5
)

// ErrEmptyQuery is returned by Run for a blank query.
var ErrEmptyQuery = errors.New("query is empty")

// Config bounds and tunes a run.
type Config struct {
	// MaxTurns caps THINKING steps. The forced synthesis after the cap is not a turn.
	MaxTurns int
	// ToolTimeout bounds each tool invocation. Zero means no per-tool limit.
	ToolTimeout time.Duration
	// Summarizer condenses findings when the model cannot write the answer.
	Summarizer       domain.Summarizer
	SummarySentences int
	Observers        []Observer
}

// Result is the outcome of one run.
type Result struct {
	RunID      string
	Answer     string
	Transcript Transcript
	// Forced is set when the turn cap was reached before the model answered.
	Forced bool
	// Degraded is set when the answer was built without the model.
	Degraded bool
}

// Agent is safe for concurrent use; every Run owns its transcript.
type Agent struct {
	provider  llm.Provider
	tools     *tool.Registry
	cfg       Config
	observers observers
}

func New(provider llm.Provider, tools *tool.Registry, cfg Config) (*Agent, error) {
	if provider == nil {
		return nil, errors.New("completion provider is required")
	}
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.SummarySentences <= 0 {
		cfg.SummarySentences = DefaultSummarySentences
	}
	return &Agent{
		provider:  provider,
		tools:     tools,
		cfg:       cfg,
		observers: append(observers(nil), cfg.Observers...),
	}, nil
}

// MaxTurns reports the configured turn cap.
func (a *Agent) MaxTurns() int { return a.cfg.MaxTurns }

// Run answers query, optionally in the context of earlier exchanges. It
// always returns a non-empty answer unless the context ends or the model
// fails before any tool produced content.
func (a *Agent) Run(ctx context.Context, query string, history []Exchange) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	res := &Result{RunID: uuid.NewString()}
	ctx, span := observability.StartRunSpan(ctx, res.RunID, a.cfg.MaxTurns)
	defer span.End()

	descriptors := a.tools.Descriptors()
	for n := 1; n <= a.cfg.MaxTurns; n++ {
		if err := ctx.Err(); err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		done, err := a.turn(ctx, n, query, history, descriptors, res)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				observability.RecordError(span, ctxErr)
				return nil, ctxErr
			}
			findings := res.Transcript.Findings()
			if len(findings) == 0 {
				err = llm.AsServiceError(a.provider.Name(), "complete", err)
				observability.RecordError(span, err)
				return nil, err
			}
			res.Answer = fallbackAnswer(findings, a.cfg.Summarizer, a.cfg.SummarySentences)
			res.Degraded = true
			return res, nil
		}
		if done {
			return res, nil
		}
	}

	res.Forced = true
	if err := a.synthesize(ctx, query, history, res); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return res, nil
}

// turn runs THINKING and, if the model chose a tool, ACTING and OBSERVING.
// It reports whether the run reached DONE. Errors are only returned for a
// failed completion.
func (a *Agent) turn(ctx context.Context, n int, query string, history []Exchange, tools []tool.Descriptor, res *Result) (bool, error) {
	ctx, span := observability.StartTurnSpan(ctx, n)
	defer span.End()

	reply, err := a.complete(ctx, "reasoning", thinkingPrompt(query, history, tools, &res.Transcript))
	if err != nil {
		observability.RecordError(span, err)
		return false, err
	}
	t := Turn{Number: n, Reply: reply}
	if strings.TrimSpace(reply) == "" {
		t.Reply = "(empty reply)"
	}

	d, err := parseReply(reply)
	switch {
	case err != nil:
		t.IsError = true
		t.Observation = fmt.Sprintf("Error: %v. Reply with a JSON object containing either an action or an answer.", err)
	case d.Answer != "":
		t.Thought = d.Thought
		t.FinalAnswer = d.Answer
		res.Answer = d.Answer
		a.record(ctx, res, t)
		return true, nil
	default:
		t.Thought = d.Thought
		t.Action = d.Action
		t.ActionInput = d.ActionInput
		t.Observation, t.IsError = a.act(ctx, d.Action, d.ActionInput)
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}
	a.record(ctx, res, t)
	return false, nil
}

// act invokes a tool. Failures become error observations so the model can recover.
func (a *Agent) act(ctx context.Context, name, input string) (string, bool) {
	ctx, span := observability.StartToolSpan(ctx, name)
	defer span.End()
	if a.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.ToolTimeout)
		defer cancel()
	}
	out, err := a.tools.Invoke(ctx, name, input)
	if err != nil {
		observability.RecordError(span, err)
		return "Error: " + err.Error(), true
	}
	if strings.TrimSpace(out) == "" {
		return "(tool returned no output)", false
	}
	return out, false
}

// synthesize writes the answer once the turn cap is hit.
func (a *Agent) synthesize(ctx context.Context, query string, history []Exchange, res *Result) error {
	findings := res.Transcript.Findings()
	if len(findings) == 0 {
		res.Answer = UnableMessage
		return nil
	}
	answer, err := a.complete(ctx, "synthesis", synthesisPrompt(query, history, findings))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil {
		if d, perr := parseReply(answer); perr == nil && d.Answer != "" {
			res.Answer = d.Answer
			return nil
		}
	}
	res.Answer = fallbackAnswer(findings, a.cfg.Summarizer, a.cfg.SummarySentences)
	res.Degraded = true
	return nil
}

func (a *Agent) complete(ctx context.Context, purpose string, prompt *llm.Prompt) (string, error) {
	ctx, span := observability.StartLLMSpan(ctx, a.provider.Name(), purpose)
	defer span.End()
	resp, err := a.provider.Complete(ctx, prompt, nil)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}
	observability.RecordLLMUsage(span, resp.InputTokens, resp.OutputTokens)
	return resp.Content, nil
}

func (a *Agent) record(ctx context.Context, res *Result, t Turn) {
	res.Transcript.append(t)
	a.observers.OnTurn(ctx, res.RunID, t)
}
