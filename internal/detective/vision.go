package detective

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/dusk-indust/auditor/internal/state"
)

var (
	mermaidBlock = regexp.MustCompile("(?s)```mermaid\\s*(.*?)```")
	imageRef     = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mermaidEdge  = regexp.MustCompile(`([\w-]+)\s*-{2,3}>+\s*([\w-]+)`)
)

// VisionInspector examines the document for architecture diagrams and
// classifies whether they depict parallel branches converging on a synthesis
// node or just a linear pipeline. Only textual diagrams (mermaid) can be
// classified; raster images are recorded as present but unclassifiable.
type VisionInspector struct{}

// NewVisionInspector creates a VisionInspector.
func NewVisionInspector() *VisionInspector {
	return &VisionInspector{}
}

func (v *VisionInspector) Name() string { return "vision-inspector" }

// Collect scans the document for diagrams. A missing document yields a
// degraded finding, never an error.
func (v *VisionInspector) Collect(_ context.Context, target Target) (map[string][]state.Finding, error) {
	findings := make(map[string][]state.Finding)

	if target.DocPath == "" {
		findings[BucketDiagrams] = []state.Finding{missing(
			"Diagram availability", "doc-path",
			"No document locator provided; diagram inspection could not run.")}
		return findings, nil
	}

	data, err := os.ReadFile(target.DocPath)
	if err != nil {
		findings[BucketDiagrams] = []state.Finding{missing(
			"Diagram availability", target.DocPath,
			fmt.Sprintf("document could not be read: %v", err))}
		return findings, nil
	}

	findings[BucketDiagrams] = []state.Finding{v.classify(string(data), target.DocPath)}
	return findings, nil
}

// classify inspects diagram blocks for parallel topology.
func (v *VisionInspector) classify(text, docPath string) state.Finding {
	goal := "Architecture diagrams: parallel topology visualization"

	blocks := mermaidBlock.FindAllStringSubmatch(text, -1)
	images := imageRef.FindAllString(text, -1)

	if len(blocks) == 0 && len(images) == 0 {
		return state.Finding{
			ID:         state.NewFindingID(),
			Goal:       goal,
			Satisfied:  false,
			Location:   docPath,
			Rationale:  "No mermaid diagrams or image references found in the document.",
			Confidence: 0.6,
		}
	}

	if len(blocks) == 0 {
		return state.Finding{
			ID:        state.NewFindingID(),
			Goal:      goal,
			Satisfied: false,
			Content:   fmt.Sprintf("%d raster image reference(s).", len(images)),
			Location:  docPath,
			Rationale: "Only raster images found; topology cannot be classified without a textual diagram.",
			// Low confidence: the images may well show the right topology.
			Confidence: 0.3,
		}
	}

	parallel := false
	edgeCount := 0
	for _, block := range blocks {
		outgoing := make(map[string]int)
		for _, m := range mermaidEdge.FindAllStringSubmatch(block[1], -1) {
			edgeCount++
			outgoing[m[1]]++
			if outgoing[m[1]] > 1 {
				parallel = true
			}
		}
	}

	shape := "linear pipeline"
	if parallel {
		shape = "parallel fan-out"
	}

	return state.Finding{
		ID:         state.NewFindingID(),
		Goal:       goal,
		Satisfied:  parallel,
		Content:    fmt.Sprintf("%d mermaid diagram(s), %d edges, topology: %s.", len(blocks), edgeCount, shape),
		Location:   docPath,
		Rationale:  fmt.Sprintf("Mermaid edge analysis classified the diagram as a %s.", shape),
		Confidence: confidenceIf(parallel, 0.8, 0.6),
	}
}
