package ast

import (
	"testing"

	"github.com/JakeChampion/metro-transform/internal/logger"
)

func stringNode(quote string, inner ...string) *Node {
	n := &Node{Kind: "string", Named: true}
	n.Children = append(n.Children, &Node{Kind: quote, Text: quote})
	for _, text := range inner {
		kind := "string_fragment"
		if len(text) > 0 && text[0] == '\\' {
			kind = "escape_sequence"
		}
		n.Children = append(n.Children, &Node{Kind: kind, Text: text, Named: true})
	}
	n.Children = append(n.Children, &Node{Kind: quote, Text: quote})
	return n
}

func TestStringValue(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want string
	}{
		{"plain", stringNode(`"`, "react"), "react"},
		{"empty", stringNode(`'`), ""},
		{"simple escapes", stringNode(`"`, "a", `\n`, "b", `\t`), "a\nb\t"},
		{"quote escape", stringNode(`'`, "it", `\'`, "s"), "it's"},
		{"hex escape", stringNode(`"`, `\x41`), "A"},
		{"unicode escape", stringNode(`"`, `\u00e9`), "\u00e9"},
		{"code point escape", stringNode(`"`, `\u{1F600}`), "\U0001F600"},
		{"surrogate pair", stringNode(`"`, `\uD83D`, `\uDE00`), "\U0001F600"},
		{"line continuation", stringNode(`"`, "a", "\\\n", "b"), "ab"},
		{"identity escape", stringNode(`"`, `\q`), "q"},
		{"nul escape", stringNode(`"`, `a\0`), "a\x00"},
		{"legacy octal", stringNode(`'`, `\101`), "A"},
		{"legacy octal with leading zero", stringNode(`'`, `\012`), "\n"},
		{"legacy octal stops at three digits", stringNode(`'`, `\1011`), "A1"},
		{"legacy octal above 3 takes two digits", stringNode(`'`, `\477`), "'7"},
		{"legacy octal stops at non-octal", stringNode(`'`, `\18`), "\x018"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StringValue(tt.node)
			if !ok {
				t.Fatalf("StringValue reported a non-literal")
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, ok := StringValue(&Node{Kind: "template_string", Named: true}); ok {
		t.Errorf("template strings are not plain literals")
	}
	if _, ok := StringValue(nil); ok {
		t.Errorf("nil is not a literal")
	}
}

func TestMarkSourceIsMonotonic(t *testing.T) {
	marks := NewMarkSource()
	a, b := marks.Fresh(), marks.Fresh()
	if a == NoMark || b == NoMark || a == b {
		t.Errorf("fresh marks must be distinct and non-zero: %d, %d", a, b)
	}

	// Another run has its own universe starting over
	if other := NewMarkSource().Fresh(); other != a {
		t.Errorf("independent sources should mint the same sequence, got %d and %d", other, a)
	}
}

func TestWalkPath(t *testing.T) {
	call := &Node{Kind: "call_expression", Named: true, Field: "expression"}
	stmt := &Node{Kind: "expression_statement", Named: true, Children: []*Node{call}}
	block := &Node{Kind: "statement_block", Named: true, Field: "body", Children: []*Node{stmt}}
	try := &Node{Kind: "try_statement", Named: true, Children: []*Node{block}}
	root := &Node{Kind: "program", Named: true, Children: []*Node{try}}

	var seen []Marker
	Walk(root, func(n *Node, path *Path) bool {
		if n == call {
			seen = path.Nearest(10)
		}
		return true
	})

	want := []Marker{
		{Kind: "call_expression", Field: "expression"},
		{Kind: "expression_statement"},
		{Kind: "statement_block", Field: "body"},
		{Kind: "try_statement"},
		{Kind: "program"},
	}
	if len(seen) != len(want) {
		t.Fatalf("got %d markers, want %d: %v", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("marker %d: got %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	inner := &Node{Kind: "identifier", Named: true}
	fn := &Node{Kind: "function_expression", Named: true, Children: []*Node{inner}}
	root := &Node{Kind: "program", Named: true, Children: []*Node{fn}}

	visited := 0
	Walk(root, func(n *Node, path *Path) bool {
		visited++
		return n.Kind != "function_expression"
	})
	if visited != 2 {
		t.Errorf("visited %d nodes, want 2", visited)
	}
}

func TestReplaceChildKeepsRange(t *testing.T) {
	old := &Node{Kind: "string", Named: true, Field: "x", Range: logger.Range{Loc: logger.Loc{Start: 8}, Len: 3}}
	parent := &Node{Kind: "arguments", Named: true, Children: []*Node{Token("("), old, Token(")")}}

	with := NewNode("subscript_expression", NewIdentifier(Ident{Name: "_dependencyMap", Mark: 3}), Token("["), NewNumber(0), Token("]"))
	if !parent.ReplaceChild(old, with) {
		t.Fatalf("ReplaceChild did not find the child")
	}
	if with.Range != old.Range || with.Detached || with.Field != "x" {
		t.Errorf("replacement did not inherit position: %+v", with)
	}
	if got, want := parent.Sexp(), `(arguments x: (subscript_expression (identifier "_dependencyMap"#3) (number "0")))`; got != want {
		t.Errorf("sexp:\n  got:  %s\n  want: %s", got, want)
	}
}
