package inspect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path string
		lang Language
		ok   bool
	}{
		{"main.go", LangGo, true},
		{"src/App.TSX", LangTypeScript, true},
		{"graph.py", LangPython, true},
		{"lib.rs", LangRust, true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		lang, ok := LanguageForPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.lang, lang, tt.path)
	}
}

func TestScanDir_MultiLanguageCensus(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"main.go":       "package main\n\nfunc main() {}\n\nfunc helper() {}\n\ntype box struct{ n int }\n",
		"src/graph.py":  "class Evidence:\n    pass\n\n\ndef build():\n    pass\n",
		"web/app.ts":    "function render(): void {}\n\ninterface Props { id: string }\n",
		"core/lib.rs":   "struct Verdict;\n\nfn score() -> i32 { 1 }\n",
		"notes.md":      "not source\n",
		".git/ref.py":   "ignored = True\n",
		"vendor/dep.go": "package dep\n",
	}
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	census, err := ScanDir(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"core/lib.rs", "main.go", "src/graph.py", "web/app.ts"}, census.Paths(),
		"markdown and excluded directories must not appear")

	totals := census.Totals()
	assert.Equal(t, 2, totals[LangGo].Functions)
	assert.Equal(t, 1, totals[LangGo].Types)
	assert.Equal(t, 1, totals[LangPython].Functions)
	assert.Equal(t, 1, totals[LangPython].Types)
	assert.Equal(t, 1, totals[LangTypeScript].Functions)
	assert.Equal(t, 1, totals[LangTypeScript].Types)
	assert.Equal(t, 1, totals[LangRust].Functions)
	assert.Equal(t, 1, totals[LangRust].Types)
}

func TestScanDir_CustomExcludes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "gen"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "gen", "x.go"), []byte("package gen\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "y.go"), []byte("package y\n"), 0o644))

	census, err := ScanDir(context.Background(), root, []string{"gen"})
	require.NoError(t, err)
	assert.Equal(t, []string{"y.go"}, census.Paths())
}

func TestScanDir_MissingRoot(t *testing.T) {
	_, err := ScanDir(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
}

func TestProbePythonGraph(t *testing.T) {
	source := []byte(`from langgraph.graph import StateGraph

graph = StateGraph(AgentState)
graph.add_edge("ctx", "repo")
graph.add_edge("ctx", "doc")
graph.add_edge("repo", "agg")
graph.add_conditional_edges("agg", route, {"ok": "judges", "missing": "synthesis"})
`)

	probe, err := ProbePythonGraph(source)
	require.NoError(t, err)

	assert.True(t, probe.HasStateGraph)
	assert.Equal(t, []string{"ctx -> repo", "ctx -> doc", "repo -> agg"}, probe.Edges)
	assert.Equal(t, 1, probe.ConditionalEdges)
	assert.True(t, probe.FanOut(), "ctx has two outgoing edges")
}

func TestProbePythonGraph_LinearPipeline(t *testing.T) {
	source := []byte(`graph = StateGraph(S)
graph.add_edge("a", "b")
graph.add_edge("b", "c")
`)

	probe, err := ProbePythonGraph(source)
	require.NoError(t, err)
	assert.False(t, probe.FanOut())
	assert.Zero(t, probe.ConditionalEdges)
}

func TestProbePythonGraph_MentionInDocstring_NotCounted(t *testing.T) {
	source := []byte(`def build():
    """Uses StateGraph and add_edge internally, honest."""
    return None
`)

	probe, err := ProbePythonGraph(source)
	require.NoError(t, err)
	assert.False(t, probe.HasStateGraph, "docstring text is not a call")
	assert.Empty(t, probe.Edges)
}

func TestProbePythonState(t *testing.T) {
	source := []byte(`import operator
from typing import Annotated, TypedDict
from pydantic import BaseModel


class Evidence(BaseModel):
    goal: str


class JudicialOpinion(pydantic.BaseModel):
    score: int


class AgentState(TypedDict):
    evidences: Annotated[dict, operator.ior]
    opinions: Annotated[list, operator.add]
`)

	probe, err := ProbePythonState(source)
	require.NoError(t, err)

	assert.Equal(t, []string{"Evidence", "JudicialOpinion"}, probe.ModelClasses)
	assert.Equal(t, []string{"AgentState"}, probe.TypedDictClasses)
	assert.True(t, probe.HasReducers)
	assert.True(t, probe.Typed())
}

func TestProbePythonState_UntypedDict(t *testing.T) {
	source := []byte(`state = {"evidences": {}, "opinions": []}
`)

	probe, err := ProbePythonState(source)
	require.NoError(t, err)
	assert.False(t, probe.Typed())
	assert.False(t, probe.HasReducers)
}

func TestProbePythonSafety(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		tempDir  bool
		osSystem bool
	}{
		{
			"sandboxed clone",
			"import tempfile\n\nwith tempfile.TemporaryDirectory() as tmp:\n    pass\n",
			true, false,
		},
		{
			"raw shell",
			"import os\n\nos.system('git clone ' + url)\n",
			false, true,
		},
		{
			"os.system in comment only",
			"# never use os.system here\nimport subprocess\n",
			false, false,
		},
		{
			"imported name",
			"from tempfile import TemporaryDirectory\n\nwith TemporaryDirectory() as tmp:\n    pass\n",
			true, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe, err := ProbePythonSafety([]byte(tt.source))
			require.NoError(t, err)
			assert.Equal(t, tt.tempDir, probe.UsesTempDir)
			assert.Equal(t, tt.osSystem, probe.UsesOSSystem)
		})
	}
}

func TestCountLOC(t *testing.T) {
	assert.Equal(t, 0, countLOC(nil))
	assert.Equal(t, 1, countLOC([]byte("one line")))
	assert.Equal(t, 3, countLOC([]byte("a\nb\nc")))
	assert.Equal(t, 4, countLOC([]byte("a\nb\nc\n")))
}
