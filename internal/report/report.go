// Package report renders a verdict into the markdown audit report. The
// section order and the presence of every section for every rubric item, even
// on degraded runs, are part of the external contract: consumers parse the
// document.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/auditor/internal/state"
)

// Meta carries run identification rendered into the report header.
type Meta struct {
	RepoURL string
	DocPath string
}

// Render produces the markdown report for a verdict. Rendering is pure: the
// same verdict and meta always produce the same document.
func Render(v *state.Verdict, meta Meta) string {
	var b strings.Builder

	b.WriteString("# Audit Report\n\n")
	if meta.RepoURL != "" {
		fmt.Fprintf(&b, "- Repository: %s\n", meta.RepoURL)
	}
	if meta.DocPath != "" {
		fmt.Fprintf(&b, "- Document: %s\n", meta.DocPath)
	}
	if meta.RepoURL != "" || meta.DocPath != "" {
		b.WriteString("\n")
	}

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(v.Summary)
	b.WriteString("\n\n")

	b.WriteString("## Overall Score\n\n")
	fmt.Fprintf(&b, "**%.1f / 5**\n\n", v.OverallScore)

	b.WriteString("## Criterion Breakdown\n\n")
	for _, res := range v.Results {
		fmt.Fprintf(&b, "### %s (`%s`)\n\n", res.Name, res.CriterionID)
		fmt.Fprintf(&b, "- Final score: **%d/5**\n", res.Score)
		if res.Dissent != "" {
			fmt.Fprintf(&b, "- Dissent: %s\n", res.Dissent)
		}

		if len(res.Opinions) == 0 {
			b.WriteString("- Opinions: none (no judge output for this criterion)\n")
		} else {
			b.WriteString("- Opinions:\n")
			for _, op := range res.Opinions {
				fmt.Fprintf(&b, "  - **%s** scored **%d**: %s", op.Judge, op.Score, op.Argument)
				if len(op.CitedFindings) > 0 {
					fmt.Fprintf(&b, " (cites: %s)", strings.Join(op.CitedFindings, ", "))
				}
				b.WriteString("\n")
			}
		}

		fmt.Fprintf(&b, "- Remediation: %s\n\n", res.Remediation)
	}

	b.WriteString("## Remediation Plan\n\n")
	for _, res := range v.Results {
		fmt.Fprintf(&b, "1. **%s**: %s\n", res.Name, res.Remediation)
	}

	return b.String()
}

// Write writes a rendered report to path, creating directories as needed.
func Write(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: mkdir %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
