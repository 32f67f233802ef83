package transform

import (
	"github.com/JakeChampion/metro-transform/internal/ast"
)

// Preferred names of the private factory parameters. Hygiene may append a
// numeric suffix when the module already uses one of them.
const (
	importDefaultName = "_$$_IMPORT_DEFAULT"
	importAllName     = "_$$_IMPORT_ALL"
	dependencyMapName = "_dependencyMap"
)

// defineName is the global function the host loader provides, after the
// configurable prefix.
const defineName = "__d"

// factoryIdents are the seven parameters of the generated factory closure.
// global, require, module and exports carry the unresolved mark so they are
// the same bindings the module body already refers to. The other three get
// fresh marks and are invisible to user code.
type factoryIdents struct {
	global        ast.Ident
	require       ast.Ident
	importDefault ast.Ident
	importAll     ast.Ident
	module        ast.Ident
	exports       ast.Ident
	dependencyMap ast.Ident
}

func newFactoryIdents(marks *ast.MarkSource, unresolved ast.Mark) *factoryIdents {
	return &factoryIdents{
		global:        ast.Ident{Name: "global", Mark: unresolved},
		require:       ast.Ident{Name: "require", Mark: unresolved},
		importDefault: ast.Ident{Name: importDefaultName, Mark: marks.Fresh()},
		importAll:     ast.Ident{Name: importAllName, Mark: marks.Fresh()},
		module:        ast.Ident{Name: "module", Mark: unresolved},
		exports:       ast.Ident{Name: "exports", Mark: unresolved},
		dependencyMap: ast.Ident{Name: dependencyMapName, Mark: marks.Fresh()},
	}
}

// params returns the factory parameters in the order the loader passes them.
func (f *factoryIdents) params() []ast.Ident {
	return []ast.Ident{
		f.global,
		f.require,
		f.importDefault,
		f.importAll,
		f.module,
		f.exports,
		f.dependencyMap,
	}
}

func (f *factoryIdents) private() []ast.Ident {
	return []ast.Ident{f.importDefault, f.importAll, f.dependencyMap}
}

// isRequire reports whether n is an occurrence of the ambient require.
func (f *factoryIdents) isRequire(n *ast.Node) bool {
	return n != nil && n.IsIdentifier() && n.Ident() == f.require
}
