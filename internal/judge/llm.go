package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dusk-indust/auditor/internal/state"
)

// DefaultModel is used when the configuration does not name one.
const DefaultModel = "claude-haiku-4-5-20251001"

// Compile-time check.
var _ Judge = (*LLM)(nil)

// LLM is a judge backed by the Anthropic API. Every API or decode failure
// degrades into placeholder opinions; the run never fails because a judge
// could not reach its backend.
type LLM struct {
	api   *anthropic.Client
	model anthropic.Model
	p     persona
}

// NewLLM creates an LLM judge for the given role. An empty model selects
// DefaultModel; an empty API key defers to the SDK's environment lookup.
func NewLLM(role state.Role, apiKey, model string) (*LLM, error) {
	p, err := personaFor(role)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)

	return &LLM{
		api:   &client,
		model: anthropic.Model(model),
		p:     p,
	}, nil
}

// Role returns the judicial persona.
func (j *LLM) Role() state.Role { return j.p.role }

// rawOpinion is the JSON shape the model is asked to return.
type rawOpinion struct {
	CriterionID   string   `json:"criterion_id"`
	Score         int      `json:"score"`
	Argument      string   `json:"argument"`
	CitedFindings []string `json:"cited_findings"`
}

// Review asks the model to score every rubric item against the findings. Any
// backend or parse failure yields conservative placeholder opinions for the
// whole panel slot; individually malformed entries are replaced per item.
func (j *LLM) Review(ctx context.Context, rubric []state.RubricItem, findings map[string][]state.Finding) ([]state.Opinion, error) {
	systemPrompt, userPrompt := j.buildPrompt(rubric, findings)

	msg, err := j.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     j.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return placeholderOpinions(j.p, rubric, fmt.Sprintf("backend call failed (%v)", err)), nil
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return placeholderOpinions(j.p, rubric, "backend returned no text content"), nil
	}

	var raw []rawOpinion
	if err := json.Unmarshal([]byte(stripFence(text)), &raw); err != nil {
		return placeholderOpinions(j.p, rubric, "backend response was not valid JSON"), nil
	}

	return j.reconcile(rubric, findings, raw), nil
}

// reconcile maps the model's raw entries onto the rubric: well-formed entries
// become opinions with citations filtered to real finding ids; malformed or
// missing entries fall back to the persona's placeholder for that item.
func (j *LLM) reconcile(rubric []state.RubricItem, findings map[string][]state.Finding, raw []rawOpinion) []state.Opinion {
	visible := make(map[string]bool)
	for _, bucket := range findings {
		for _, f := range bucket {
			visible[f.ID] = true
		}
	}

	byID := make(map[string]rawOpinion, len(raw))
	for _, r := range raw {
		byID[r.CriterionID] = r
	}

	ops := make([]state.Opinion, 0, len(rubric))
	for _, item := range rubric {
		r, ok := byID[item.ID]
		if !ok || r.Score < 1 || r.Score > 5 || r.Argument == "" {
			ops = append(ops, placeholderOpinions(j.p, []state.RubricItem{item},
				"backend produced no well-formed opinion for this criterion")[0])
			continue
		}

		// Citations must reference findings the judge actually saw.
		var cited []string
		for _, id := range r.CitedFindings {
			if visible[id] {
				cited = append(cited, id)
			}
		}

		ops = append(ops, state.Opinion{
			Judge:         j.p.role,
			CriterionID:   item.ID,
			Score:         r.Score,
			Argument:      r.Argument,
			CitedFindings: cited,
		})
	}
	return ops
}

// buildPrompt constructs the system and user prompts for one review.
func (j *LLM) buildPrompt(rubric []state.RubricItem, findings map[string][]state.Finding) (system string, user string) {
	system = j.p.instructions + `

Score every rubric criterion on a 1-5 scale. Return ONLY a JSON array of objects with these fields:
- "criterion_id": the rubric criterion id being scored
- "score": integer 1-5
- "argument": concise but specific reasoning behind the score
- "cited_findings": array of finding ids (from the evidence list) this opinion relies on; cite only ids that appear in the evidence, never invent ids

Rules:
- Produce exactly one object per rubric criterion
- Base every argument on the evidence provided, quoting finding ids
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("## Rubric\n\n")
	for _, item := range rubric {
		fmt.Fprintf(&sb, "- %s (`%s`): %s\n", item.Name, item.ID, item.GradingNotes)
	}

	sb.WriteString("\n## Evidence\n\n")
	keys := make([]string, 0, len(findings))
	for k := range findings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, f := range findings[key] {
			fmt.Fprintf(&sb, "- [%s] bucket=%s goal=%q satisfied=%t confidence=%.2f location=%s\n  rationale: %s\n",
				f.ID, key, f.Goal, f.Satisfied, f.Confidence, f.Location, f.Rationale)
			if f.Content != "" {
				fmt.Fprintf(&sb, "  content: %s\n", truncate(f.Content, 1500))
			}
		}
	}

	return system, sb.String()
}

// stripFence removes a markdown code fence around the model response if one
// is present despite the instructions.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) > 1 {
		text = lines[1]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// LLMPanel returns an Anthropic-backed judge for every persona.
func LLMPanel(apiKey, model string) ([]Judge, error) {
	panel := make([]Judge, 0, len(state.Roles))
	for _, role := range state.Roles {
		j, err := NewLLM(role, apiKey, model)
		if err != nil {
			return nil, err
		}
		panel = append(panel, j)
	}
	return panel, nil
}
