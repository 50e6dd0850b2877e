package detective

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dusk-indust/auditor/internal/state"
)

// keyTerms are the orchestration concepts the theoretical-depth scan looks
// for in the audited document.
var keyTerms = []string{
	"dialectical synthesis",
	"fan-in",
	"fan-out",
	"metacognition",
	"state synchronization",
}

// pathClaim matches file-path-like tokens in document text.
var pathClaim = regexp.MustCompile(`\b[\w./-]+\.(?:py|go|rs|ts|md|json|yaml|yml|toml)\b`)

// DocAnalyst inspects the document accompanying the repository: theoretical
// depth of the write-up and fidelity of its file-path claims against the real
// repository tree.
type DocAnalyst struct {
	git GitClient
}

// NewDocAnalyst creates a DocAnalyst. The git client is used for a shallow
// clone when cross-checking path claims against the repository.
func NewDocAnalyst(git GitClient) *DocAnalyst {
	return &DocAnalyst{git: git}
}

func (d *DocAnalyst) Name() string { return "doc-analyst" }

// Collect analyzes the document. Missing or unsupported documents yield
// degraded findings, never errors.
func (d *DocAnalyst) Collect(ctx context.Context, target Target) (map[string][]state.Finding, error) {
	findings := make(map[string][]state.Finding)

	if target.DocPath == "" {
		findings[BucketDocTheory] = []state.Finding{missing(
			"Document availability", "doc-path",
			"No document locator provided; the document analysis could not run.")}
		return findings, nil
	}

	if strings.EqualFold(filepath.Ext(target.DocPath), ".pdf") {
		findings[BucketDocTheory] = []state.Finding{missing(
			"Document availability", target.DocPath,
			"PDF extraction is not supported; provide a markdown or plain-text export of the report.")}
		return findings, nil
	}

	data, err := os.ReadFile(target.DocPath)
	if err != nil {
		findings[BucketDocTheory] = []state.Finding{missing(
			"Document availability", target.DocPath,
			fmt.Sprintf("document could not be read: %v", err))}
		return findings, nil
	}
	text := string(data)

	findings[BucketDocTheory] = []state.Finding{d.theoreticalDepth(text, target.DocPath)}
	findings[BucketDocAccuracy] = []state.Finding{d.hostAccuracy(ctx, text, target)}

	return findings, nil
}

// theoreticalDepth scans the document for key orchestration concepts.
func (d *DocAnalyst) theoreticalDepth(text, docPath string) state.Finding {
	lower := strings.ToLower(text)

	var present []string
	for _, term := range keyTerms {
		if strings.Contains(lower, term) {
			present = append(present, term)
		}
	}

	satisfied := len(present) >= 3
	return state.Finding{
		ID:        state.NewFindingID(),
		Goal:      "Theoretical depth: dialectics, fan-in/fan-out, state synchronization",
		Satisfied: satisfied,
		Content:   strings.Join(present, ", "),
		Location:  docPath,
		Rationale: fmt.Sprintf("Document mentions %d of %d key orchestration concepts.",
			len(present), len(keyTerms)),
		Confidence: confidenceIf(satisfied, 0.75, 0.5),
	}
}

// hostAccuracy cross-checks file paths claimed in the document against the
// repository's real file list from a shallow clone.
func (d *DocAnalyst) hostAccuracy(ctx context.Context, text string, target Target) state.Finding {
	goal := "Host analysis accuracy: claimed paths vs repository reality"

	claims := uniquePathClaims(text)
	if len(claims) == 0 {
		return state.Finding{
			ID:         state.NewFindingID(),
			Goal:       goal,
			Satisfied:  false,
			Location:   target.DocPath,
			Rationale:  "Document cites no file paths, so no claims could be verified.",
			Confidence: 0.4,
		}
	}

	if target.RepoURL == "" {
		return state.Finding{
			ID:         state.NewFindingID(),
			Goal:       goal,
			Satisfied:  false,
			Location:   target.DocPath,
			Rationale:  fmt.Sprintf("Document cites %d file paths but no repository was provided to verify them against.", len(claims)),
			Confidence: 0.3,
		}
	}

	files, err := d.repoFileSet(ctx, target.RepoURL)
	if err != nil {
		return state.Finding{
			ID:         state.NewFindingID(),
			Goal:       goal,
			Satisfied:  false,
			Location:   target.RepoURL,
			Rationale:  fmt.Sprintf("Repository listing failed, path claims unverified: %v", err),
			Confidence: 0.3,
		}
	}

	var verified, hallucinated []string
	for _, claim := range claims {
		if files[strings.TrimPrefix(claim, "./")] {
			verified = append(verified, claim)
		} else {
			hallucinated = append(hallucinated, claim)
		}
	}

	satisfied := len(hallucinated) == 0
	content := fmt.Sprintf("Verified: %s.", strings.Join(verified, ", "))
	if len(hallucinated) > 0 {
		content += fmt.Sprintf(" Not found in repository: %s.", strings.Join(hallucinated, ", "))
	}

	return state.Finding{
		ID:        state.NewFindingID(),
		Goal:      goal,
		Satisfied: satisfied,
		Content:   content,
		Location:  target.DocPath,
		Rationale: fmt.Sprintf("%d of %d claimed paths exist in the repository.",
			len(verified), len(claims)),
		Confidence: confidenceIf(satisfied, 0.8, 0.7),
	}
}

// repoFileSet shallow-clones the repository and returns its file paths
// relative to the repository root.
func (d *DocAnalyst) repoFileSet(ctx context.Context, repoURL string) (map[string]bool, error) {
	tmp, err := os.MkdirTemp("", "auditor-doc-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	dir := filepath.Join(tmp, "repo")
	if err := d.git.Clone(ctx, repoURL, dir, 1); err != nil {
		return nil, err
	}

	files := make(map[string]bool)
	err = filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files[filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func uniquePathClaims(text string) []string {
	seen := make(map[string]bool)
	var claims []string
	for _, m := range pathClaim.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			claims = append(claims, m)
		}
	}
	sort.Strings(claims)
	return claims
}
