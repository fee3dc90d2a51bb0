package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// decision is what the model asked for in one reply. Exactly one of Action or
// Answer is set.
type decision struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
	Answer      string `json:"answer"`
}

var errEmptyReply = errors.New("model returned an empty reply")

var replySchema = func() *gojsonschema.Schema {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"thought":      map[string]any{"type": "string"},
			"action":       map[string]any{"type": "string", "minLength": 1},
			"action_input": map[string]any{"type": "string"},
			"answer":       map[string]any{"type": "string", "minLength": 1},
		},
		"anyOf": []any{
			map[string]any{"required": []any{"answer"}},
			map[string]any{"required": []any{"action"}},
		},
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
	if err != nil {
		panic(err)
	}
	return schema
}()

var (
	fenceRe       = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	reactThought  = regexp.MustCompile(`(?im)^\s*Thought:\s*(.*)$`)
	reactAction   = regexp.MustCompile(`(?im)^\s*Action:\s*(.+)$`)
	reactInput    = regexp.MustCompile(`(?is)^\s*Action Input:\s*(.*)$`)
	reactAnswerRe = regexp.MustCompile(`(?is)(?:^|\n)\s*(?:Final )?Answer:\s*(.*)$`)
)

// parseReply accepts a JSON reply, a classic Thought/Action/Answer text
// reply, or free text which is taken as the final answer.
func parseReply(reply string) (decision, error) {
	text := strings.TrimSpace(reply)
	if text == "" {
		return decision{}, errEmptyReply
	}
	if m := fenceRe.FindStringSubmatch(text); m != nil && strings.HasPrefix(strings.TrimSpace(m[1]), "{") {
		text = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(text, "{") {
		return parseJSONReply(text)
	}
	if d, ok := parseReActReply(text); ok {
		return d, nil
	}
	return decision{Answer: text}, nil
}

func parseJSONReply(text string) (decision, error) {
	result, err := replySchema.Validate(gojsonschema.NewStringLoader(text))
	if err != nil {
		return decision{}, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return decision{}, fmt.Errorf("reply failed validation: %s", strings.Join(details, "; "))
	}
	var d decision
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		return decision{}, fmt.Errorf("decode reply: %w", err)
	}
	d.Action = strings.TrimSpace(d.Action)
	d.Answer = strings.TrimSpace(d.Answer)
	if d.Answer != "" {
		d.Action, d.ActionInput = "", ""
	}
	return d, nil
}

func parseReActReply(text string) (decision, bool) {
	var d decision
	if m := reactThought.FindStringSubmatch(text); m != nil {
		d.Thought = strings.TrimSpace(m[1])
	}
	if m := reactAnswerRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		d.Answer = strings.TrimSpace(m[1])
		return d, true
	}
	m := reactAction.FindStringSubmatchIndex(text)
	if m == nil {
		return d, false
	}
	d.Action = strings.TrimSpace(text[m[2]:m[3]])
	rest := text[m[1]:]
	if im := reactInput.FindStringSubmatch(strings.TrimLeft(rest, "\r\n")); im != nil {
		d.ActionInput = strings.TrimSpace(im[1])
	}
	return d, d.Action != ""
}
