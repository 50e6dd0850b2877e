package detective

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/auditor/internal/inspect"
	"github.com/dusk-indust/auditor/internal/state"
)

// cloneDepth bounds how much history the investigator fetches.
const cloneDepth = 50

// RepoInvestigator clones the audited repository into a sandboxed temporary
// directory and produces findings for the code-side rubric criteria: git
// forensics, state management, graph orchestration, tool safety, structured
// output enforcement, plus a repository census.
type RepoInvestigator struct {
	git GitClient
}

// NewRepoInvestigator creates a RepoInvestigator using the given git client.
func NewRepoInvestigator(git GitClient) *RepoInvestigator {
	return &RepoInvestigator{git: git}
}

func (r *RepoInvestigator) Name() string { return "repo-investigator" }

// Collect runs the full code-side investigation. A missing or uncloneable
// repository yields a single degraded finding, never an error.
func (r *RepoInvestigator) Collect(ctx context.Context, target Target) (map[string][]state.Finding, error) {
	findings := make(map[string][]state.Finding)

	if target.RepoURL == "" {
		findings[BucketGitForensics] = []state.Finding{missing(
			"Repository availability", "repo-url",
			"No repository locator provided; the code investigation could not run.")}
		return findings, nil
	}

	tmp, err := os.MkdirTemp("", "auditor-repo-*")
	if err != nil {
		return nil, fmt.Errorf("detective: create clone sandbox: %w", err)
	}
	defer os.RemoveAll(tmp)

	dir := filepath.Join(tmp, "repo")
	if err := r.git.Clone(ctx, target.RepoURL, dir, cloneDepth); err != nil {
		findings[BucketGitForensics] = []state.Finding{missing(
			"Repository availability", target.RepoURL,
			fmt.Sprintf("git clone failed: %v", err))}
		return findings, nil
	}

	findings[BucketGitForensics] = []state.Finding{r.gitForensics(ctx, dir, target.RepoURL)}

	census, err := inspect.ScanDir(ctx, dir, nil)
	if err != nil {
		findings[BucketCensus] = []state.Finding{missing(
			"Repository census", target.RepoURL,
			fmt.Sprintf("source scan failed: %v", err))}
		return findings, nil
	}
	findings[BucketCensus] = []state.Finding{censusFinding(census, target.RepoURL)}

	sources := readPythonSources(dir, census)
	findings[BucketStateManagement] = []state.Finding{r.stateRigor(sources, target.RepoURL)}
	findings[BucketGraph] = []state.Finding{r.graphStructure(sources, target.RepoURL)}
	findings[BucketToolSafety] = []state.Finding{r.toolSafety(sources, target.RepoURL)}
	findings[BucketStructuredOutput] = []state.Finding{r.structuredOutput(sources, target.RepoURL)}

	return findings, nil
}

// gitForensics summarizes the commit progression.
func (r *RepoInvestigator) gitForensics(ctx context.Context, dir, repoURL string) state.Finding {
	lines, err := r.git.Log(ctx, dir)
	if err != nil {
		return state.Finding{
			ID:         state.NewFindingID(),
			Goal:       "Git forensic analysis: commit progression",
			Satisfied:  false,
			Location:   repoURL,
			Rationale:  fmt.Sprintf("git log failed: %v", err),
			Confidence: 0.4,
		}
	}

	content := strings.Join(lines, "\n")
	if len(content) > 4000 {
		content = content[:4000]
	}

	return state.Finding{
		ID:         state.NewFindingID(),
		Goal:       "Git forensic analysis: commit progression",
		Satisfied:  len(lines) > 1,
		Content:    content,
		Location:   repoURL,
		Rationale:  fmt.Sprintf("Found %d commits using git log --oneline --reverse.", len(lines)),
		Confidence: confidenceIf(len(lines) > 1, 0.8, 0.4),
	}
}

// stateRigor probes state modules for typed schemas and reducer annotations.
func (r *RepoInvestigator) stateRigor(sources map[string][]byte, repoURL string) state.Finding {
	goal := "State management rigor: typed models and reducers"

	var best inspect.StateProbe
	var location string
	for _, path := range sortedPaths(sources) {
		probe, err := inspect.ProbePythonState(sources[path])
		if err != nil {
			continue
		}
		if probe.Typed() && (location == "" || probe.HasReducers) {
			best = probe
			location = path
		}
	}

	if location == "" {
		return state.Finding{
			ID:         state.NewFindingID(),
			Goal:       goal,
			Satisfied:  false,
			Location:   repoURL,
			Rationale:  "No module defining typed state (BaseModel or TypedDict subclasses) was found.",
			Confidence: 0.45,
		}
	}

	var summary []string
	if len(best.ModelClasses) > 0 {
		summary = append(summary, fmt.Sprintf("Typed models: %s.", strings.Join(best.ModelClasses, ", ")))
	}
	if len(best.TypedDictClasses) > 0 {
		summary = append(summary, fmt.Sprintf("TypedDict state: %s.", strings.Join(best.TypedDictClasses, ", ")))
	}
	if best.HasReducers {
		summary = append(summary, "Annotated reducers (operator.add / operator.ior) detected on state fields.")
	}

	return state.Finding{
		ID:         state.NewFindingID(),
		Goal:       goal,
		Satisfied:  best.Typed() && best.HasReducers,
		Content:    strings.Join(summary, " "),
		Location:   location,
		Rationale:  "AST inspection of state modules for typed schemas and additive reducers on concurrently written fields.",
		Confidence: confidenceIf(best.Typed() && best.HasReducers, 0.85, 0.45),
	}
}

// graphStructure probes for StateGraph topology with real fan-out.
func (r *RepoInvestigator) graphStructure(sources map[string][]byte, repoURL string) state.Finding {
	goal := "Graph orchestration: fan-out/fan-in topology"

	var best inspect.GraphProbe
	var location string
	for _, path := range sortedPaths(sources) {
		probe, err := inspect.ProbePythonGraph(sources[path])
		if err != nil || !probe.HasStateGraph {
			continue
		}
		if location == "" || len(probe.Edges) > len(best.Edges) {
			best = probe
			location = path
		}
	}

	if location == "" {
		return state.Finding{
			ID:         state.NewFindingID(),
			Goal:       goal,
			Satisfied:  false,
			Location:   repoURL,
			Rationale:  "No StateGraph construction found in any Python module.",
			Confidence: 0.45,
		}
	}

	content := fmt.Sprintf("Edges: %s. Conditional edge calls: %d.",
		strings.Join(best.Edges, "; "), best.ConditionalEdges)

	return state.Finding{
		ID:        state.NewFindingID(),
		Goal:      goal,
		Satisfied: best.FanOut() && best.ConditionalEdges > 0,
		Content:   content,
		Location:  location,
		Rationale: fmt.Sprintf("AST inspection found %d edges, fan-out=%t, conditional edge calls=%d.",
			len(best.Edges), best.FanOut(), best.ConditionalEdges),
		Confidence: confidenceIf(best.FanOut(), 0.85, 0.5),
	}
}

// toolSafety probes for sandboxed cloning versus raw shell execution.
func (r *RepoInvestigator) toolSafety(sources map[string][]byte, repoURL string) state.Finding {
	goal := "Safe tool engineering: sandboxed git tooling"

	var agg inspect.SafetyProbe
	for _, path := range sortedPaths(sources) {
		probe, err := inspect.ProbePythonSafety(sources[path])
		if err != nil {
			continue
		}
		agg.UsesTempDir = agg.UsesTempDir || probe.UsesTempDir
		agg.UsesOSSystem = agg.UsesOSSystem || probe.UsesOSSystem
	}

	var rationale []string
	if agg.UsesTempDir {
		rationale = append(rationale, "Detected tempfile.TemporaryDirectory sandboxing.")
	}
	if agg.UsesOSSystem {
		rationale = append(rationale, "Detected raw os.system() calls, which expose the tool to command injection from untrusted locators.")
	}
	if len(rationale) == 0 {
		rationale = append(rationale, "No sandboxing and no raw shell usage detected by AST analysis.")
	}

	satisfied := agg.UsesTempDir && !agg.UsesOSSystem
	return state.Finding{
		ID:         state.NewFindingID(),
		Goal:       goal,
		Satisfied:  satisfied,
		Location:   repoURL,
		Rationale:  strings.Join(rationale, " "),
		Confidence: confidenceIf(satisfied, 0.8, 0.5),
		Category:   CategoryToolSafety,
	}
}

// structuredOutput checks judge-style modules for structured-output binding.
func (r *RepoInvestigator) structuredOutput(sources map[string][]byte, repoURL string) state.Finding {
	goal := "Structured output enforcement for judges"

	for _, path := range sortedPaths(sources) {
		text := string(sources[path])
		if strings.Contains(text, ".with_structured_output") || strings.Contains(text, ".bind_tools") {
			return state.Finding{
				ID:         state.NewFindingID(),
				Goal:       goal,
				Satisfied:  true,
				Location:   path,
				Rationale:  "Found structured-output invocation (.with_structured_output or .bind_tools).",
				Confidence: 0.8,
			}
		}
	}

	return state.Finding{
		ID:         state.NewFindingID(),
		Goal:       goal,
		Satisfied:  false,
		Location:   repoURL,
		Rationale:  "No .with_structured_output or .bind_tools usage detected in any module.",
		Confidence: 0.5,
	}
}

// censusFinding summarizes the per-language repository inventory.
func censusFinding(census *inspect.Census, repoURL string) state.Finding {
	totals := census.Totals()
	langs := make([]string, 0, len(totals))
	for lang := range totals {
		langs = append(langs, string(lang))
	}
	sort.Strings(langs)

	parts := make([]string, 0, len(langs))
	for _, lang := range langs {
		t := totals[inspect.Language(lang)]
		parts = append(parts, fmt.Sprintf("%s: %d files, %d LOC, %d functions, %d types",
			lang, t.Files, t.LOC, t.Functions, t.Types))
	}

	return state.Finding{
		ID:         state.NewFindingID(),
		Goal:       "Repository census: languages and symbols",
		Satisfied:  len(census.Files) > 0,
		Content:    strings.Join(parts, "; "),
		Location:   repoURL,
		Rationale:  fmt.Sprintf("Parsed %d source files across %d languages.", len(census.Files), len(totals)),
		Confidence: 0.9,
		Category:   "census",
	}
}

// readPythonSources loads every Python file from the census into memory.
func readPythonSources(root string, census *inspect.Census) map[string][]byte {
	sources := make(map[string][]byte)
	for _, f := range census.Files {
		if f.Language != inspect.LangPython {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, f.Path))
		if err != nil {
			continue
		}
		sources[f.Path] = data
	}
	return sources
}

func sortedPaths(sources map[string][]byte) []string {
	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func confidenceIf(ok bool, yes, no float64) float64 {
	if ok {
		return yes
	}
	return no
}
