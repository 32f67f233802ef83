package transform

import (
	"github.com/JakeChampion/metro-transform/internal/ast"
)

// optionalSearchDepth bounds how many ancestors of a require call (the call
// itself included) are searched for the enclosing block. Calls nested deeper
// than this below their block are never reported as optional.
const optionalSearchDepth = 10

// collectOptionalDependencies finds calls with a string literal first
// argument whose nearest enclosing block is the body of a try statement.
// The callee is not inspected: this runs before and independently of the
// dependency rewrite. The tree is not modified. Entries are neither
// deduplicated nor sorted, and specifiers in exclude are never reported.
func collectOptionalDependencies(root *ast.Node, exclude map[string]bool) []string {
	var optional []string

	ast.Walk(root, func(n *ast.Node, path *ast.Path) bool {
		if n.Kind != "call_expression" {
			return true
		}

		args := n.ChildByField("arguments")
		if args == nil || args.Kind != "arguments" {
			return true
		}
		named := args.NamedChildren()
		if len(named) == 0 {
			return true
		}
		specifier, ok := ast.StringValue(named[0])
		if !ok {
			return true
		}

		if isInsideTryBlock(path) && !exclude[specifier] {
			optional = append(optional, specifier)
		}
		return true
	})

	return optional
}

// isInsideTryBlock looks for the first statement block among the nearest
// ancestors. The search ends there: the call is guarded only if that block
// is the body of a try statement.
func isInsideTryBlock(path *ast.Path) bool {
	// One extra marker so the container of the last candidate is visible
	view := path.Nearest(optionalSearchDepth + 1)

	for i := 0; i < len(view) && i < optionalSearchDepth; i++ {
		if view[i].Kind != "statement_block" {
			continue
		}
		return i+1 < len(view) && view[i+1].Kind == "try_statement" && view[i].Field == "body"
	}
	return false
}
