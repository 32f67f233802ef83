// Package parser turns source text into the owned tree in package ast using
// the tree-sitter JavaScript, TypeScript and TSX grammars.
//
// tree-sitter always produces a tree, recovering from syntax errors with
// ERROR and MISSING nodes. Any such node makes the parse fail here, since
// the passes that follow must never see a partially understood unit.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/JakeChampion/metro-transform/internal/ast"
	"github.com/JakeChampion/metro-transform/internal/logger"
)

// Language selects which tree-sitter grammar to use for parsing.
type Language int

const (
	// JavaScript includes JSX
	JavaScript Language = iota
	TypeScript
	TSX
)

func (lang Language) String() string {
	switch lang {
	case JavaScript:
		return "javascript"
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	default:
		return fmt.Sprintf("Language(%d)", int(lang))
	}
}

// IsTyped reports whether lang is one of the TypeScript dialects.
func (lang Language) IsTyped() bool {
	return lang == TypeScript || lang == TSX
}

// LanguageForFile picks the grammar from the file extension. Unknown or
// empty names use the JavaScript grammar.
func LanguageForFile(path string) Language {
	switch filepath.Ext(path) {
	case ".ts", ".mts", ".cts":
		return TypeScript
	case ".tsx":
		return TSX
	default:
		// .js, .jsx, .mjs, .cjs. JSX is a superset handled by the JS grammar.
		return JavaScript
	}
}

// ErrSyntax is wrapped by every error Parse returns for malformed input.
var ErrSyntax = errors.New("syntax error")

// Parse converts source into an owned tree rooted at a "program" node. On a
// syntax error the first offending node is reported to log and an error
// wrapping ErrSyntax is returned.
func Parse(log logger.Log, source *logger.Source, lang Language) (*ast.Node, error) {
	contents := []byte(source.Contents)

	parser, err := newParser(lang)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	tree := parser.Parse(contents, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parse returned nil root node")
	}

	if root.HasError() {
		bad := firstErrorNode(root)
		r := logger.Range{Loc: logger.Loc{Start: int32(bad.StartByte())}, Len: int32(bad.EndByte() - bad.StartByte())}
		text := "Unexpected " + describe(bad, source)
		if bad.IsMissing() {
			text = fmt.Sprintf("Expected %q", bad.Kind())
		}
		log.AddRangeError(source, r, text)
		line := source.LineForLoc(r.Loc)
		return nil, fmt.Errorf("%w at line %d: %s", ErrSyntax, line, text)
	}

	return convert(root, source.Contents), nil
}

// DumpTree returns the S-expression representation of the parsed source.
// Useful for debugging which node types the grammar produces for your code.
func DumpTree(source []byte, lang Language) (string, error) {
	parser, err := newParser(lang)
	if err != nil {
		return "", err
	}
	defer parser.Close()

	tree := parser.Parse(source, nil)
	if tree == nil {
		return "", fmt.Errorf("parse returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return "", fmt.Errorf("parse returned nil root node")
	}

	return root.ToSexp(), nil
}

func newParser(lang Language) (*tree_sitter.Parser, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(tree_sitter.NewLanguage(tsLang)); err != nil {
		parser.Close()
		return nil, fmt.Errorf("setting language: %w", err)
	}
	return parser, nil
}

// convert copies the tree-sitter tree into ast nodes. A cursor is used so
// field names come for free while walking.
func convert(root *tree_sitter.Node, contents string) *ast.Node {
	cursor := root.Walk()
	defer cursor.Close()

	var build func() *ast.Node
	build = func() *ast.Node {
		tsNode := cursor.Node()
		start, end := tsNode.StartByte(), tsNode.EndByte()
		n := &ast.Node{
			Kind:  tsNode.Kind(),
			Field: cursor.FieldName(),
			Named: tsNode.IsNamed(),
			Range: logger.Range{Loc: logger.Loc{Start: int32(start)}, Len: int32(end - start)},
		}

		if cursor.GotoFirstChild() {
			for {
				n.Children = append(n.Children, build())
				if !cursor.GotoNextSibling() {
					break
				}
			}
			cursor.GotoParent()
		} else {
			n.Text = contents[start:end]
		}
		return n
	}

	// tree-sitter leaves leading whitespace out of the root's range. The
	// program always covers the whole file so printing reproduces it.
	program := build()
	program.Range = logger.Range{Len: int32(len(contents))}
	if program.IsLeaf() {
		program.Text = contents
	}
	return program
}

func firstErrorNode(node *tree_sitter.Node) *tree_sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && (child.HasError() || child.IsMissing()) {
			return firstErrorNode(child)
		}
	}
	return node
}

func describe(node *tree_sitter.Node, source *logger.Source) string {
	start, end := node.StartByte(), node.EndByte()
	if start >= end || int(end) > len(source.Contents) {
		return "end of file"
	}
	text := source.Contents[start:end]
	if len(text) > 20 {
		text = text[:20] + "..."
	}
	return fmt.Sprintf("%q", text)
}

// getLanguage returns the unsafe.Pointer to the tree-sitter language.
func getLanguage(lang Language) (unsafe.Pointer, error) {
	switch lang {
	case JavaScript:
		return tree_sitter_javascript.Language(), nil
	case TypeScript:
		return tree_sitter_typescript.LanguageTypescript(), nil
	case TSX:
		return tree_sitter_typescript.LanguageTSX(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %d", lang)
	}
}
