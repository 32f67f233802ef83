// Package renamer resolves naming collisions between identifiers injected
// by the transform and the names already used by the unit.
package renamer

import (
	"strconv"

	"github.com/JakeChampion/metro-transform/internal/ast"
)

// ComputeReservedNames collects every identifier name in the tree that does
// not belong to one of the private bindings. Reserved names are never
// handed out to a private binding.
func ComputeReservedNames(root *ast.Node, private []ast.Ident) map[string]bool {
	isPrivate := make(map[ast.Ident]bool, len(private))
	for _, id := range private {
		isPrivate[id] = true
	}

	names := make(map[string]bool)
	ast.Walk(root, func(n *ast.Node, path *ast.Path) bool {
		if n.IsIdentifier() && !isPrivate[n.Ident()] {
			names[n.Text] = true
		}
		return true
	})
	return names
}

// Hygiene renames the private bindings whose names collide with a reserved
// name by appending the smallest free numeric suffix, then rewrites every
// occurrence in the tree. Bindings are processed in order, so earlier ones
// win ties. It returns the final name of each private binding.
func Hygiene(root *ast.Node, private []ast.Ident) map[ast.Ident]string {
	reserved := ComputeReservedNames(root, private)

	renames := make(map[ast.Ident]string, len(private))
	for _, id := range private {
		name := id.Name
		for suffix := 1; reserved[name]; suffix++ {
			name = id.Name + strconv.Itoa(suffix)
		}
		reserved[name] = true
		renames[id] = name
	}

	ast.Walk(root, func(n *ast.Node, path *ast.Path) bool {
		if n.IsIdentifier() {
			if name, ok := renames[n.Ident()]; ok {
				n.Text = name
			}
		}
		return true
	})
	return renames
}
