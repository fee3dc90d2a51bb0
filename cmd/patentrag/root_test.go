package main

import (
	"bytes"
	"strings"
	"testing"

	"patentrag/internal/agent"
	"patentrag/internal/config"
)

func TestApplyOverridesFromEnv(t *testing.T) {
	t.Setenv("PATENTRAG_AGENT_MAX_TURNS", "4")
	t.Setenv("PATENTRAG_INDEX_CORPUS_DIR", "/srv/patents")
	t.Setenv("PATENTRAG_LLM_MODEL", "gpt-4o")

	cfg := config.Default()
	applyOverrides(cfg)
	if cfg.Agent.MaxTurns != 4 {
		t.Fatalf("max_turns = %d", cfg.Agent.MaxTurns)
	}
	if cfg.Index.CorpusDir != "/srv/patents" {
		t.Fatalf("corpus_dir = %q", cfg.Index.CorpusDir)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("model = %q", cfg.LLM.Model)
	}
	if cfg.Index.PersistDir != "./storage/internal_db" {
		t.Fatalf("unset keys must keep file values, persist_dir = %q", cfg.Index.PersistDir)
	}
}

func TestPrintTurn(t *testing.T) {
	var buf bytes.Buffer
	printTurn(&buf, agent.Turn{
		Number:      2,
		Thought:     "check the number",
		Action:      "search_by_number",
		ActionInput: "US1000001",
		Observation: "Error: not found",
		IsError:     true,
	})
	out := buf.String()
	for _, want := range []string{"turn 2", "check the number", `search_by_number("US1000001")`, "Error: not found"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
