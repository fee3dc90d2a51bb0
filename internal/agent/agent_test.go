package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"patentrag/internal/domain"
	"patentrag/internal/llm"
	"patentrag/internal/llm/llmtest"
	"patentrag/internal/summarizer"
	"patentrag/internal/tool"
)

func actionReply(name, input string) string {
	b, _ := json.Marshal(map[string]string{"thought": "look it up", "action": name, "action_input": input})
	return string(b)
}

func answerReply(answer string) string {
	b, _ := json.Marshal(map[string]string{"thought": "done", "answer": answer})
	return string(b)
}

func staticTool(name, out string) tool.Tool {
	return tool.Func{
		Desc: tool.Descriptor{Name: name, Description: "test tool"},
		Fn:   func(context.Context, string) (string, error) { return out, nil },
	}
}

func failingTool(name string) tool.Tool {
	return tool.Func{
		Desc: tool.Descriptor{Name: name, Description: "always fails"},
		Fn: func(context.Context, string) (string, error) {
			return "", &llm.ServiceError{Provider: "openai", Op: "complete", Status: 503, Err: errors.New("backend unavailable")}
		},
	}
}

func newRegistry(t *testing.T, tools ...tool.Tool) *tool.Registry {
	t.Helper()
	reg, err := tool.NewRegistry(tools...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func newAgent(t *testing.T, p llm.Provider, reg *tool.Registry, maxTurns int) *Agent {
	t.Helper()
	a, err := New(p, reg, Config{
		MaxTurns:   maxTurns,
		Summarizer: summarizer.NewFrequencySummarizer(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

const gearObservation = "A gear assembly reduces noise.\n\nSources:\n[1] US1000001 - Gear Assembly (source: internal_docs/US1000001.md, score: 0.812)\nA gear assembly reduces noise."

func TestRunAnswersWithinBound(t *testing.T) {
	p := llmtest.NewScripted(
		llmtest.Reply{Content: actionReply("internal_db", "gear noise")},
		llmtest.Reply{Content: answerReply("# Summary\nGears.\n# Patents\n## US1000001 - Gear Assembly")},
	)
	a := newAgent(t, p, newRegistry(t, staticTool("internal_db", gearObservation)), 5)

	res, err := a.Run(context.Background(), "gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Forced || res.Degraded {
		t.Fatalf("unexpected forced=%v degraded=%v", res.Forced, res.Degraded)
	}
	if !strings.Contains(res.Answer, "US1000001") {
		t.Fatalf("answer = %q", res.Answer)
	}
	if res.Transcript.Len() != 2 || res.Transcript.Len() > a.MaxTurns() {
		t.Fatalf("transcript has %d turns", res.Transcript.Len())
	}
	if res.RunID == "" {
		t.Fatal("run id not set")
	}

	// The second THINKING prompt carries the observation from the first turn.
	prompts := p.Prompts()
	last := prompts[1].Messages[len(prompts[1].Messages)-1]
	if last.Role != llm.RoleUser || !strings.HasPrefix(last.Content, "Observation: ") || !strings.Contains(last.Content, "US1000001") {
		t.Fatalf("observation not fed back: %+v", last)
	}
}

func TestRunIncludesHistoryAndTools(t *testing.T) {
	p := llmtest.NewScripted(llmtest.Reply{Content: answerReply("ok")})
	a := newAgent(t, p, newRegistry(t, staticTool("internal_db", "x")), 3)
	history := []Exchange{{Query: "brakes?", Answer: "See US1000003."}}

	if _, err := a.Run(context.Background(), "and gears?", history); err != nil {
		t.Fatalf("Run: %v", err)
	}
	prompt := p.Prompts()[0]
	if !strings.Contains(prompt.SystemPrompt, "internal_db") {
		t.Fatalf("system prompt does not list tools: %q", prompt.SystemPrompt)
	}
	first := prompt.Messages[0].Content
	if !strings.HasPrefix(first, InstructionTemplate) || !strings.Contains(first, "US1000003") || !strings.HasSuffix(first, "and gears?") {
		t.Fatalf("task message = %q", first)
	}
}

func TestRunForcedSynthesisAtBound(t *testing.T) {
	p := llmtest.Func(func(prompt *llm.Prompt) (string, error) {
		if prompt.SystemPrompt == synthesisInstruction {
			return "# Summary\nForced answer about US1000001.", nil
		}
		return actionReply("internal_db", "more gears"), nil
	})
	a := newAgent(t, p, newRegistry(t, staticTool("internal_db", gearObservation)), 3)

	res, err := a.Run(context.Background(), "gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Forced || res.Degraded {
		t.Fatalf("forced=%v degraded=%v", res.Forced, res.Degraded)
	}
	if res.Transcript.Len() != 3 {
		t.Fatalf("transcript has %d turns, want 3", res.Transcript.Len())
	}
	if p.Calls() != 4 {
		t.Fatalf("calls = %d, want 3 turns plus one synthesis", p.Calls())
	}
	if res.Answer != "# Summary\nForced answer about US1000001." {
		t.Fatalf("answer = %q", res.Answer)
	}
}

func TestRunFallbackWhenSynthesisFails(t *testing.T) {
	p := llmtest.Func(func(prompt *llm.Prompt) (string, error) {
		if prompt.SystemPrompt == synthesisInstruction {
			return "", &llm.ServiceError{Provider: "test", Op: "complete", Status: 503, Err: errors.New("overloaded")}
		}
		return actionReply("internal_db", "gears"), nil
	})
	a := newAgent(t, p, newRegistry(t, staticTool("internal_db", gearObservation)), 2)

	res, err := a.Run(context.Background(), "gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Forced || !res.Degraded {
		t.Fatalf("forced=%v degraded=%v", res.Forced, res.Degraded)
	}
	for _, want := range []string{"# Summary", "# Patents", "## US1000001 - Gear Assembly"} {
		if !strings.Contains(res.Answer, want) {
			t.Fatalf("fallback answer missing %q:\n%s", want, res.Answer)
		}
	}
}

func TestRunWithNoContentIsUnable(t *testing.T) {
	p := llmtest.Func(func(*llm.Prompt) (string, error) {
		return actionReply("internal_db", "gears"), nil
	})
	a := newAgent(t, p, newRegistry(t, failingTool("internal_db")), 2)

	res, err := a.Run(context.Background(), "gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Answer != UnableMessage || !strings.Contains(res.Answer, "Unable to find relevant results") {
		t.Fatalf("answer = %q", res.Answer)
	}
	if p.Calls() != 2 {
		t.Fatalf("synthesis must not run without findings, calls = %d", p.Calls())
	}
}

func TestRunAbsorbsToolFailure(t *testing.T) {
	p := llmtest.NewScripted(
		llmtest.Reply{Content: actionReply("broken", "gears")},
		llmtest.Reply{Content: actionReply("internal_db", "gears")},
		llmtest.Reply{Content: answerReply("US1000001 is relevant.")},
	)
	reg := newRegistry(t, failingTool("broken"), staticTool("internal_db", gearObservation))
	a := newAgent(t, p, reg, 5)

	res, err := a.Run(context.Background(), "gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Transcript.Len() != 3 {
		t.Fatalf("transcript has %d turns, want 3", res.Transcript.Len())
	}
	first := res.Transcript.Turns[0]
	if !first.IsError || !strings.Contains(first.Observation, "backend unavailable") {
		t.Fatalf("first turn = %+v", first)
	}
	if res.Transcript.Turns[1].IsError {
		t.Fatal("second turn should succeed")
	}
	if res.Answer != "US1000001 is relevant." {
		t.Fatalf("answer = %q", res.Answer)
	}
}

type fixedSearcher []domain.SearchResult

func (f fixedSearcher) Query(context.Context, string, int) ([]domain.SearchResult, error) {
	return f, nil
}

func TestRunAbsorbsRetrievalServiceError(t *testing.T) {
	hits := fixedSearcher{{
		Entry: domain.IndexEntry{
			Chunk:  domain.Chunk{DocumentID: "US1000001.md", ChunkID: "US1000001.md:0", Text: "A helical gear."},
			Source: "internal_docs/US1000001.md", Title: "Gear Assembly", Patent: "US1000001",
		},
		Score: 0.7,
	}}
	synth := llmtest.Func(func(*llm.Prompt) (string, error) {
		return "", &llm.ServiceError{Provider: "openai", Op: "complete", Status: 500, Err: errors.New("upstream down")}
	})
	p := llmtest.NewScripted(
		llmtest.Reply{Content: actionReply(tool.RetrievalName, "helical gears")},
		llmtest.Reply{Content: answerReply("No usable results.")},
	)
	a := newAgent(t, p, newRegistry(t, tool.NewRetrieval(hits, synth, 3)), 5)

	res, err := a.Run(context.Background(), "helical gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Transcript.Len() != 2 {
		t.Fatalf("transcript has %d turns, want 2", res.Transcript.Len())
	}
	turn := res.Transcript.Turns[0]
	if !turn.IsError || !strings.Contains(turn.Observation, "upstream down") || turn.State() != StateObserving {
		t.Fatalf("turn = %+v", turn)
	}
	if res.Answer != "No usable results." {
		t.Fatalf("answer = %q", res.Answer)
	}
}

func TestTurnState(t *testing.T) {
	cases := []struct {
		turn Turn
		want State
	}{
		{Turn{FinalAnswer: "# Summary"}, StateDone},
		{Turn{Action: "internal_db", Observation: "x"}, StateObserving},
		{Turn{IsError: true, Observation: "Error: empty reply"}, StateThinking},
	}
	for _, c := range cases {
		if got := c.turn.State(); got != c.want {
			t.Fatalf("%+v: state %v, want %v", c.turn, got, c.want)
		}
	}
	if StateObserving.String() != "observing" {
		t.Fatalf("String() = %q", StateObserving.String())
	}
}

func TestRunUnknownToolIsObserved(t *testing.T) {
	p := llmtest.NewScripted(
		llmtest.Reply{Content: actionReply("web_search", "gears")},
		llmtest.Reply{Content: answerReply("done")},
	)
	a := newAgent(t, p, newRegistry(t, staticTool("internal_db", "x")), 3)

	res, err := a.Run(context.Background(), "gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	turn := res.Transcript.Turns[0]
	if !turn.IsError || !strings.Contains(turn.Observation, `unknown tool "web_search"`) || !strings.Contains(turn.Observation, "internal_db") {
		t.Fatalf("turn = %+v", turn)
	}
}

func TestRunMalformedReplyIsObserved(t *testing.T) {
	p := llmtest.NewScripted(
		llmtest.Reply{Content: `{"thought": "missing both"}`},
		llmtest.Reply{Content: ""},
		llmtest.Reply{Content: answerReply("recovered")},
	)
	a := newAgent(t, p, newRegistry(t, staticTool("internal_db", "x")), 5)

	res, err := a.Run(context.Background(), "gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Transcript.Len() != 3 || !res.Transcript.Turns[0].IsError || !res.Transcript.Turns[1].IsError {
		t.Fatalf("transcript = %+v", res.Transcript.Turns)
	}
	if res.Answer != "recovered" {
		t.Fatalf("answer = %q", res.Answer)
	}
}

func TestRunThinkingFailureWithoutFindings(t *testing.T) {
	p := llmtest.NewScripted(llmtest.Reply{Err: errors.New("connection refused")})
	a := newAgent(t, p, newRegistry(t, staticTool("internal_db", "x")), 3)

	_, err := a.Run(context.Background(), "gear patents", nil)
	if !errors.Is(err, llm.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
}

func TestRunThinkingFailureDegradesWithFindings(t *testing.T) {
	p := llmtest.NewScripted(
		llmtest.Reply{Content: actionReply("internal_db", "gears")},
		llmtest.Reply{Err: &llm.ServiceError{Provider: "test", Op: "complete", Status: 500, Err: errors.New("boom")}},
	)
	a := newAgent(t, p, newRegistry(t, staticTool("internal_db", gearObservation)), 5)

	res, err := a.Run(context.Background(), "gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Degraded || !strings.Contains(res.Answer, "US1000001") {
		t.Fatalf("degraded=%v answer=%q", res.Degraded, res.Answer)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := newAgent(t, llmtest.NewScripted(), newRegistry(t, staticTool("internal_db", "x")), 3)
	if _, err := a.Run(ctx, "gear patents", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunCancelledDuringTool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelling := tool.Func{
		Desc: tool.Descriptor{Name: "internal_db", Description: "cancels"},
		Fn: func(context.Context, string) (string, error) {
			cancel()
			return "partial", nil
		},
	}
	p := llmtest.Func(func(*llm.Prompt) (string, error) { return actionReply("internal_db", "gears"), nil })
	a := newAgent(t, p, newRegistry(t, cancelling), 5)
	if _, err := a.Run(ctx, "gear patents", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunToolTimeoutIsObserved(t *testing.T) {
	slow := tool.Func{
		Desc: tool.Descriptor{Name: "internal_db", Description: "slow"},
		Fn: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	p := llmtest.NewScripted(
		llmtest.Reply{Content: actionReply("internal_db", "gears")},
		llmtest.Reply{Content: answerReply("gave up on the tool")},
	)
	a, err := New(p, newRegistry(t, slow), Config{MaxTurns: 3, ToolTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Run(context.Background(), "gear patents", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Transcript.Turns[0].IsError || !strings.Contains(res.Transcript.Turns[0].Observation, "deadline exceeded") {
		t.Fatalf("turn = %+v", res.Transcript.Turns[0])
	}
}

func TestRunRejectsEmptyQuery(t *testing.T) {
	a := newAgent(t, llmtest.NewScripted(), newRegistry(t), 3)
	if _, err := a.Run(context.Background(), "   ", nil); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestObserversSeeEveryTurn(t *testing.T) {
	p := llmtest.NewScripted(
		llmtest.Reply{Content: actionReply("internal_db", "gears")},
		llmtest.Reply{Content: answerReply("done")},
	)
	var seen []int
	a, err := New(p, newRegistry(t, staticTool("internal_db", "x")), Config{
		MaxTurns: 3,
		Observers: []Observer{ObserverFunc(func(_ context.Context, _ string, turn Turn) {
			seen = append(seen, turn.Number)
		})},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Run(context.Background(), "gears", nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("observed turns = %v", seen)
	}
}
