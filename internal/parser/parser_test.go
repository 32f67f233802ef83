package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/JakeChampion/metro-transform/internal/ast"
	"github.com/JakeChampion/metro-transform/internal/logger"
)

func parse(t *testing.T, contents string, lang Language) *ast.Node {
	t.Helper()
	log := logger.NewDeferLog()
	root, err := Parse(log, &logger.Source{PrettyPath: "test.js", Contents: contents}, lang)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return root
}

func TestLanguageForFile(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"", JavaScript},
		{"index.js", JavaScript},
		{"App.jsx", JavaScript},
		{"lib/entry.mjs", JavaScript},
		{"src/util.ts", TypeScript},
		{"src/util.mts", TypeScript},
		{"src/App.tsx", TSX},
		{"README", JavaScript},
	}

	for _, tt := range tests {
		if got := LanguageForFile(tt.path); got != tt.want {
			t.Errorf("LanguageForFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if JavaScript.IsTyped() || !TypeScript.IsTyped() || !TSX.IsTyped() {
		t.Errorf("IsTyped is wrong")
	}
}

func TestParseCall(t *testing.T) {
	root := parse(t, `require('a');`, JavaScript)

	if root.Kind != "program" {
		t.Fatalf("root kind: got %q, want program", root.Kind)
	}
	stmts := root.NamedChildren()
	if len(stmts) != 1 || stmts[0].Kind != "expression_statement" {
		t.Fatalf("expected a single expression statement, got %s", root.Sexp())
	}

	call := stmts[0].NamedChildren()[0]
	if call.Kind != "call_expression" {
		t.Fatalf("expected call_expression, got %s", call.Kind)
	}
	callee := call.ChildByField("function")
	if callee == nil || !callee.IsIdentifier() || callee.Text != "require" {
		t.Fatalf("unexpected callee in %s", call.Sexp())
	}
	args := call.ChildByField("arguments")
	if args == nil || args.Kind != "arguments" {
		t.Fatalf("unexpected arguments in %s", call.Sexp())
	}
	value, ok := ast.StringValue(args.NamedChildren()[0])
	if !ok || value != "a" {
		t.Errorf("string value: got %q (%v), want %q", value, ok, "a")
	}
	if got := args.Range; got.Loc.Start != 7 || got.Len != 5 {
		t.Errorf("arguments range: got %+v", got)
	}
}

func TestParseKeepsComments(t *testing.T) {
	root := parse(t, "// header\nfoo();\n", JavaScript)
	if root.Children[0].Kind != "comment" || root.Children[0].Text != "// header" {
		t.Errorf("expected leading comment, got %q", root.Children[0].Kind)
	}
}

func TestParseDialects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lang  Language
	}{
		{"jsx in javascript", `const el = <div className="x">{require('./a')}</div>;`, JavaScript},
		{"typescript annotations", `const x: number = require('./a') as number;`, TypeScript},
		{"tsx", `const el = <View style={styles as any} />;`, TSX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parse(t, tt.input, tt.lang)
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	log := logger.NewDeferLog()
	source := &logger.Source{PrettyPath: "bad.js", Contents: "const a = 1;\nrequire(;\n"}
	_, err := Parse(log, source, JavaScript)
	if err == nil {
		t.Fatalf("expected a syntax error")
	}
	if !errors.Is(err, ErrSyntax) {
		t.Errorf("error should wrap ErrSyntax: %v", err)
	}
	if !log.HasErrors() {
		t.Errorf("the syntax error should be logged")
	}
	if msgs := log.Done(); len(msgs) != 1 || msgs[0].Location == nil || msgs[0].Location.File != "bad.js" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}

func TestParseTypeScriptWithJavaScriptGrammarFails(t *testing.T) {
	log := logger.NewDeferLog()
	_, err := Parse(log, &logger.Source{Contents: "let x: number = 1;"}, JavaScript)
	if err == nil {
		t.Fatalf("type annotations are not JavaScript")
	}
}

func TestDumpTree(t *testing.T) {
	sexp, err := DumpTree([]byte(`require('a');`), JavaScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Logf("S-expression:\n%s", sexp)

	if !strings.Contains(sexp, "call_expression") {
		t.Errorf("S-expression should contain call_expression, got: %s", sexp)
	}
}
