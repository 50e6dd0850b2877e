package inspect

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// FileStat summarizes one parsed source file.
type FileStat struct {
	Path      string   `json:"path"` // relative to the scanned root
	Language  Language `json:"language"`
	LOC       int      `json:"loc"`
	Functions int      `json:"functions"`
	Types     int      `json:"types"` // classes, structs, interfaces, type declarations
}

// Census is the structural inventory of a repository.
type Census struct {
	Files []FileStat `json:"files"`
}

// LanguageTotal aggregates census numbers for one language.
type LanguageTotal struct {
	Files     int
	LOC       int
	Functions int
	Types     int
}

// Totals aggregates the census per language.
func (c *Census) Totals() map[Language]LanguageTotal {
	totals := make(map[Language]LanguageTotal)
	for _, f := range c.Files {
		t := totals[f.Language]
		t.Files++
		t.LOC += f.LOC
		t.Functions += f.Functions
		t.Types += f.Types
		totals[f.Language] = t
	}
	return totals
}

// Paths returns every scanned file path in lexical order.
func (c *Census) Paths() []string {
	paths := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)
	return paths
}

// defaultExcludes are directory names skipped during the scan.
var defaultExcludes = []string{".git", "node_modules", "vendor", "target", "__pycache__", ".venv", "dist"}

// ScanDir walks root and parses every supported source file, producing a
// Census. Files that fail to parse are skipped rather than failing the scan;
// an unreadable root is an error.
func ScanDir(ctx context.Context, root string, excludes []string) (*Census, error) {
	skip := make(map[string]bool, len(defaultExcludes)+len(excludes))
	for _, d := range defaultExcludes {
		skip[d] = true
	}
	for _, d := range excludes {
		skip[d] = true
	}

	census := &Census{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		lang, ok := LanguageForPath(path)
		if !ok {
			return nil
		}

		source, err := os.ReadFile(path)
		if err != nil {
			return nil // unreadable file: skip, keep scanning
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		stat, err := statFile(rel, source, lang)
		if err != nil {
			return nil // unparseable file: skip, keep scanning
		}
		census.Files = append(census.Files, *stat)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inspect: scan %s: %w", root, err)
	}

	sort.Slice(census.Files, func(i, j int) bool { return census.Files[i].Path < census.Files[j].Path })
	return census, nil
}

// symbolKinds maps each language to the node kinds counted as functions and
// type definitions.
var symbolKinds = map[Language]struct{ functions, types map[string]bool }{
	LangGo: {
		functions: map[string]bool{"function_declaration": true, "method_declaration": true},
		types:     map[string]bool{"type_declaration": true},
	},
	LangPython: {
		functions: map[string]bool{"function_definition": true},
		types:     map[string]bool{"class_definition": true},
	},
	LangRust: {
		functions: map[string]bool{"function_item": true},
		types:     map[string]bool{"struct_item": true, "enum_item": true, "trait_item": true},
	},
	LangTypeScript: {
		functions: map[string]bool{"function_declaration": true, "method_definition": true},
		types:     map[string]bool{"class_declaration": true, "interface_declaration": true},
	},
}

// statFile parses one file and counts its symbols.
func statFile(relPath string, source []byte, lang Language) (*FileStat, error) {
	tree, err := parse(source, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	kinds := symbolKinds[lang]
	stat := &FileStat{
		Path:     relPath,
		Language: lang,
		LOC:      countLOC(source),
	}

	walk(tree.RootNode(), func(node *tree_sitter.Node) {
		kind := node.Kind()
		switch {
		case kinds.functions[kind]:
			stat.Functions++
		case kinds.types[kind]:
			stat.Types++
		}
	})

	return stat, nil
}

// walk visits every node in the tree in depth-first order.
func walk(root *tree_sitter.Node, visit func(*tree_sitter.Node)) {
	cursor := root.Walk()
	defer cursor.Close()
	walkCursor(cursor, visit)
}

func walkCursor(cursor *tree_sitter.TreeCursor, visit func(*tree_sitter.Node)) {
	visit(cursor.Node())
	if cursor.GotoFirstChild() {
		walkCursor(cursor, visit)
		for cursor.GotoNextSibling() {
			walkCursor(cursor, visit)
		}
		cursor.GotoParent()
	}
}

// countLOC counts the number of lines in source by counting newline bytes and
// adding one for the final line if the source is non-empty.
func countLOC(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	return bytes.Count(source, []byte{'\n'}) + 1
}
