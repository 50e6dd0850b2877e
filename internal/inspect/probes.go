package inspect

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// GraphProbe reports orchestration-graph patterns found in a Python module.
type GraphProbe struct {
	HasStateGraph    bool     // a StateGraph(...) construction exists
	Edges            []string // "src -> dst" for each add_edge call with literal args
	ConditionalEdges int      // number of add_conditional_edges calls
}

// FanOut reports whether any node has more than one outgoing edge, the
// signature of a parallel branch rather than a linear pipeline.
func (p GraphProbe) FanOut() bool {
	outgoing := make(map[string]int)
	for _, e := range p.Edges {
		src, _, ok := strings.Cut(e, " -> ")
		if !ok {
			continue
		}
		outgoing[src]++
		if outgoing[src] > 1 {
			return true
		}
	}
	return false
}

// ProbePythonGraph inspects a Python source for StateGraph topology calls.
func ProbePythonGraph(source []byte) (GraphProbe, error) {
	tree, err := parse(source, LangPython)
	if err != nil {
		return GraphProbe{}, err
	}
	defer tree.Close()

	var probe GraphProbe
	walk(tree.RootNode(), func(node *tree_sitter.Node) {
		if node.Kind() != "call" {
			return
		}
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return
		}

		switch fn.Kind() {
		case "identifier":
			if fn.Utf8Text(source) == "StateGraph" {
				probe.HasStateGraph = true
			}
		case "attribute":
			attr := fn.ChildByFieldName("attribute")
			if attr == nil {
				return
			}
			switch attr.Utf8Text(source) {
			case "add_conditional_edges":
				probe.ConditionalEdges++
			case "add_edge":
				if edge, ok := literalEdge(node, source); ok {
					probe.Edges = append(probe.Edges, edge)
				}
			}
		}
	})

	return probe, nil
}

// literalEdge extracts "src -> dst" from an add_edge call whose first two
// arguments are string literals.
func literalEdge(call *tree_sitter.Node, source []byte) (string, bool) {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return "", false
	}

	var literals []string
	for i := uint(0); i < args.ChildCount(); i++ {
		child := args.Child(i)
		if child != nil && child.Kind() == "string" {
			literals = append(literals, strings.Trim(child.Utf8Text(source), `"'`))
		}
	}
	if len(literals) < 2 {
		return "", false
	}
	return fmt.Sprintf("%s -> %s", literals[0], literals[1]), true
}

// StateProbe reports typed-state patterns found in a Python module.
type StateProbe struct {
	ModelClasses     []string // classes subclassing BaseModel
	TypedDictClasses []string // classes subclassing TypedDict
	HasReducers      bool     // Annotated[...] with operator.add / operator.ior
}

// Typed reports whether the module defines any schema-backed state at all.
func (p StateProbe) Typed() bool {
	return len(p.ModelClasses) > 0 || len(p.TypedDictClasses) > 0
}

// ProbePythonState inspects a Python source for typed state models and
// reducer annotations on concurrently written fields.
func ProbePythonState(source []byte) (StateProbe, error) {
	tree, err := parse(source, LangPython)
	if err != nil {
		return StateProbe{}, err
	}
	defer tree.Close()

	var probe StateProbe
	walk(tree.RootNode(), func(node *tree_sitter.Node) {
		switch node.Kind() {
		case "class_definition":
			name := node.ChildByFieldName("name")
			if name == nil {
				return
			}
			bases := classBases(node, source)
			if bases["BaseModel"] {
				probe.ModelClasses = append(probe.ModelClasses, name.Utf8Text(source))
			}
			if bases["TypedDict"] {
				probe.TypedDictClasses = append(probe.TypedDictClasses, name.Utf8Text(source))
			}

		case "subscript":
			value := node.ChildByFieldName("value")
			if value == nil || value.Utf8Text(source) != "Annotated" {
				return
			}
			seg := node.Utf8Text(source)
			if strings.Contains(seg, "operator.add") || strings.Contains(seg, "operator.ior") {
				probe.HasReducers = true
			}
		}
	})

	return probe, nil
}

// classBases collects the base-class names of a Python class definition.
// Attribute bases (e.g. pydantic.BaseModel) are reduced to their last segment.
func classBases(classDef *tree_sitter.Node, source []byte) map[string]bool {
	bases := make(map[string]bool)
	supers := classDef.ChildByFieldName("superclasses")
	if supers == nil {
		return bases
	}
	for i := uint(0); i < supers.ChildCount(); i++ {
		child := supers.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			bases[child.Utf8Text(source)] = true
		case "attribute":
			if attr := child.ChildByFieldName("attribute"); attr != nil {
				bases[attr.Utf8Text(source)] = true
			}
		}
	}
	return bases
}

// SafetyProbe reports tool-sandboxing patterns found in a Python module.
type SafetyProbe struct {
	UsesTempDir  bool // tempfile.TemporaryDirectory usage
	UsesOSSystem bool // raw os.system(...) calls
}

// ProbePythonSafety inspects a Python source for sandboxed versus raw shell
// tooling. Detection is structural to avoid docstring false positives.
func ProbePythonSafety(source []byte) (SafetyProbe, error) {
	tree, err := parse(source, LangPython)
	if err != nil {
		return SafetyProbe{}, err
	}
	defer tree.Close()

	var probe SafetyProbe
	walk(tree.RootNode(), func(node *tree_sitter.Node) {
		switch node.Kind() {
		case "attribute":
			if attr := node.ChildByFieldName("attribute"); attr != nil && attr.Utf8Text(source) == "TemporaryDirectory" {
				probe.UsesTempDir = true
			}
		case "identifier":
			if node.Utf8Text(source) == "TemporaryDirectory" {
				probe.UsesTempDir = true
			}
		case "call":
			fn := node.ChildByFieldName("function")
			if fn == nil || fn.Kind() != "attribute" {
				return
			}
			obj := fn.ChildByFieldName("object")
			attr := fn.ChildByFieldName("attribute")
			if obj != nil && attr != nil && obj.Utf8Text(source) == "os" && attr.Utf8Text(source) == "system" {
				probe.UsesOSSystem = true
			}
		}
	})

	return probe, nil
}
