// Package ast is the owned syntax tree every pass works on. It mirrors the
// concrete tree produced by the tree-sitter grammars (same node kinds and
// field names) but is mutable, and identifier occurrences carry a scope
// mark stamped by the resolver.
//
// Nodes converted from the parser keep the byte range they cover in the
// source. Nodes built by a pass are "synthetic": the printer emits their
// Text or children instead of source bytes. A synthetic node that replaces
// an original node takes over its range so the surrounding source is still
// reproduced exactly.
package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeChampion/metro-transform/internal/logger"
)

// Mark is a per-run scope identity. Marks are only ever compared for
// equality and are meaningless outside the run that minted them.
type Mark uint32

const NoMark Mark = 0

// MarkSource mints fresh marks from a monotonic counter. Each transform run
// owns its own source.
type MarkSource struct {
	last Mark
}

func NewMarkSource() *MarkSource {
	return &MarkSource{}
}

func (s *MarkSource) Fresh() Mark {
	s.last++
	return s.last
}

// Ident is a name together with the mark that says which binding it
// refers to.
type Ident struct {
	Name string
	Mark Mark
}

func (id Ident) String() string {
	return fmt.Sprintf("%s#%d", id.Name, id.Mark)
}

type Node struct {
	Kind  string
	Field string

	// Text is the source text of a leaf. Identifier leaves may be renamed by
	// changing it.
	Text string

	Children []*Node
	Range    logger.Range

	// Only set on identifier-like leaves
	Mark Mark

	Named bool

	// Synthetic nodes print their Text or children, never source bytes
	Synthetic bool

	// Detached nodes have no position at all, so no source is printed
	// around them
	Detached bool
}

func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

func (n *Node) IsComment() bool {
	return n.Kind == "comment" || n.Kind == "html_comment"
}

// IsIdentifier reports whether n is a leaf that names a binding and so
// carries a mark.
func (n *Node) IsIdentifier() bool {
	switch n.Kind {
	case "identifier", "shorthand_property_identifier", "shorthand_property_identifier_pattern":
		return n.Named
	}
	return false
}

func (n *Node) Ident() Ident {
	return Ident{Name: n.Text, Mark: n.Mark}
}

func (n *Node) ChildByField(field string) *Node {
	for _, child := range n.Children {
		if child.Field == field {
			return child
		}
	}
	return nil
}

// NamedChildren returns the named children of n, skipping comments.
func (n *Node) NamedChildren() []*Node {
	var named []*Node
	for _, child := range n.Children {
		if child.Named && !child.IsComment() {
			named = append(named, child)
		}
	}
	return named
}

// HasToken reports whether n has an anonymous child token with this text.
func (n *Node) HasToken(text string) bool {
	for _, child := range n.Children {
		if !child.Named && child.Kind == text {
			return true
		}
	}
	return false
}

// ReplaceChild swaps old for with in n's children. The replacement inherits
// old's field name and range.
func (n *Node) ReplaceChild(old *Node, with *Node) bool {
	for i, child := range n.Children {
		if child == old {
			with.Field = old.Field
			with.Range = old.Range
			with.Detached = old.Detached
			n.Children[i] = with
			return true
		}
	}
	return false
}

// InsertAfter places a detached node directly after an existing child.
func (n *Node) InsertAfter(after *Node, nodes ...*Node) bool {
	for i, child := range n.Children {
		if child == after {
			children := make([]*Node, 0, len(n.Children)+len(nodes))
			children = append(children, n.Children[:i+1]...)
			children = append(children, nodes...)
			children = append(children, n.Children[i+1:]...)
			n.Children = children
			return true
		}
	}
	return false
}

// Token makes a detached anonymous token such as "(" or ",".
func Token(text string) *Node {
	return &Node{Kind: text, Text: text, Synthetic: true, Detached: true}
}

func NewIdentifier(id Ident) *Node {
	return &Node{Kind: "identifier", Text: id.Name, Mark: id.Mark, Named: true, Synthetic: true, Detached: true}
}

func NewNumber(value int) *Node {
	return &Node{Kind: "number", Text: strconv.Itoa(value), Named: true, Synthetic: true, Detached: true}
}

// NewNode makes a detached named node from already built children.
func NewNode(kind string, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children, Named: true, Synthetic: true, Detached: true}
}

// Clone deep-copies n. The copy is detached so it can be placed anywhere.
func (n *Node) Clone() *Node {
	clone := *n
	clone.Detached = true
	clone.Synthetic = true
	if n.Children != nil {
		clone.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			clone.Children[i] = child.Clone()
		}
	}
	return &clone
}

// Sexp renders the named structure of n. Identifiers show their mark.
func (n *Node) Sexp() string {
	var sb strings.Builder
	n.writeSexp(&sb)
	return sb.String()
}

func (n *Node) writeSexp(sb *strings.Builder) {
	if n.Field != "" {
		sb.WriteString(n.Field)
		sb.WriteString(": ")
	}
	sb.WriteByte('(')
	sb.WriteString(n.Kind)
	if n.IsIdentifier() {
		fmt.Fprintf(sb, " %q#%d", n.Text, n.Mark)
	} else if n.IsLeaf() && n.Kind != n.Text {
		fmt.Fprintf(sb, " %q", n.Text)
	}
	for _, child := range n.Children {
		if !child.Named || child.IsComment() {
			continue
		}
		sb.WriteByte(' ')
		child.writeSexp(sb)
	}
	sb.WriteByte(')')
}
