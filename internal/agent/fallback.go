package agent

import (
	"fmt"
	"regexp"
	"strings"

	"patentrag/internal/domain"
)

// UnableMessage is the answer when a run gathered nothing to report.
const UnableMessage = "# Summary\nUnable to find relevant results for this query in the internal patent documents.\n\n# Patents\nNo relevant patents were found.\n"

var (
	citedPatentRe = regexp.MustCompile(`(?m)^\[\d+\]\s+(\S+)\s+-\s+(.+?)\s+\(source:`)
	patentNumRe   = regexp.MustCompile(`\b[A-Z]{2}\d{5,}[A-Z0-9]*\b`)
)

type patentRef struct {
	Number string
	Title  string
}

// fallbackAnswer builds a markdown answer from tool findings without calling the model.
func fallbackAnswer(findings []string, sum domain.Summarizer, sentences int) string {
	if len(findings) == 0 {
		return UnableMessage
	}
	body := make([]string, 0, len(findings))
	for _, f := range findings {
		// Citation blocks summarise badly; keep only the prose part.
		if i := strings.Index(f, "\n\nSources:\n"); i >= 0 {
			f = f[:i]
		}
		body = append(body, f)
	}
	summary := strings.Join(body, "\n")
	if sum != nil {
		if s, err := sum.Summarize(summary, sentences); err == nil && strings.TrimSpace(s) != "" {
			summary = s
		}
	}

	var b strings.Builder
	b.WriteString("# Summary\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n\n# Patents\n")
	refs := extractPatents(findings)
	if len(refs) == 0 {
		b.WriteString("No patent numbers were identified in the retrieved documents.\n")
	}
	for _, r := range refs {
		if r.Title != "" {
			fmt.Fprintf(&b, "## %s - %s\n", r.Number, r.Title)
		} else {
			fmt.Fprintf(&b, "## %s\n", r.Number)
		}
		b.WriteString("Mentioned in the retrieved documents.\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// extractPatents lists patent numbers in first-seen order, preferring titled citations.
func extractPatents(findings []string) []patentRef {
	var refs []patentRef
	seen := map[string]int{}
	add := func(num, title string) {
		if i, ok := seen[num]; ok {
			if refs[i].Title == "" {
				refs[i].Title = title
			}
			return
		}
		seen[num] = len(refs)
		refs = append(refs, patentRef{Number: num, Title: title})
	}
	for _, f := range findings {
		for _, m := range citedPatentRe.FindAllStringSubmatch(f, -1) {
			add(m[1], strings.TrimSpace(m[2]))
		}
	}
	for _, f := range findings {
		for _, num := range patentNumRe.FindAllString(f, -1) {
			add(num, "")
		}
	}
	return refs
}
