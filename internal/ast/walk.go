package ast

// Marker records the kind of an ancestor and the field it was reached
// through. The traversal driver keeps a stack of these instead of giving
// nodes parent pointers.
type Marker struct {
	Kind  string
	Field string
}

// Path is the stack of markers from the root down to the node currently
// being visited, which is always the top entry.
type Path struct {
	markers []Marker
}

func (p *Path) Len() int {
	return len(p.markers)
}

// At returns the i-th marker counting from the current node (i == 0) towards
// the root.
func (p *Path) At(i int) (Marker, bool) {
	if i < 0 || i >= len(p.markers) {
		return Marker{}, false
	}
	return p.markers[len(p.markers)-1-i], true
}

// Nearest returns up to limit markers, most recent first.
func (p *Path) Nearest(limit int) []Marker {
	if limit > len(p.markers) {
		limit = len(p.markers)
	}
	view := make([]Marker, limit)
	for i := range view {
		view[i] = p.markers[len(p.markers)-1-i]
	}
	return view
}

func (p *Path) push(n *Node) {
	p.markers = append(p.markers, Marker{Kind: n.Kind, Field: n.Field})
}

func (p *Path) pop() {
	p.markers = p.markers[:len(p.markers)-1]
}

// Walk visits root and its descendants depth-first in source order. fn sees
// the path with the visited node on top. Returning false skips the node's
// children. fn may replace the node's children; the walk continues into
// whatever children the node has after fn returns.
func Walk(root *Node, fn func(n *Node, path *Path) bool) {
	var path Path
	walk(root, &path, fn)
}

func walk(n *Node, path *Path, fn func(n *Node, path *Path) bool) {
	path.push(n)
	if fn(n, path) {
		for i := 0; i < len(n.Children); i++ {
			walk(n.Children[i], path, fn)
		}
	}
	path.pop()
}
