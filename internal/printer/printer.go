// Package printer generates code from an ast tree.
//
// Original nodes are reproduced from the source: the bytes between their
// children (whitespace, comments the grammar did not attach, punctuation)
// are copied verbatim, so an untouched tree prints back to exactly its
// input. Synthetic nodes print their own text and children.
package printer

import (
	"github.com/JakeChampion/metro-transform/internal/ast"
	"github.com/JakeChampion/metro-transform/internal/logger"
)

type printer struct {
	contents string
	js       []byte
}

func Print(root *ast.Node, source *logger.Source) []byte {
	p := &printer{
		contents: source.Contents,
		js:       make([]byte, 0, len(source.Contents)+256),
	}
	p.printNode(root)
	return p.js
}

func (p *printer) printNode(n *ast.Node) {
	if n.IsLeaf() {
		p.print(n.Text)
		return
	}

	if n.Synthetic {
		for _, child := range n.Children {
			p.printNode(child)
		}
		return
	}

	// Copy the source between positioned children
	cursor := n.Range.Loc.Start
	for _, child := range n.Children {
		if child.Detached {
			p.printNode(child)
			continue
		}
		if start := child.Range.Loc.Start; start > cursor {
			p.print(p.contents[cursor:start])
		}
		p.printNode(child)
		if end := child.Range.End(); end > cursor {
			cursor = end
		}
	}
	if end := n.Range.End(); end > cursor {
		p.print(p.contents[cursor:end])
	}
}

func (p *printer) print(text string) {
	p.js = append(p.js, text...)
}
