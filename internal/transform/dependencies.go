package transform

import (
	"fmt"

	"github.com/JakeChampion/metro-transform/internal/ast"
	"github.com/JakeChampion/metro-transform/internal/logger"
)

// Dependency is one entry of the dependency table.
type Dependency struct {
	Specifier string `yaml:"specifier"`
	Slot      int    `yaml:"slot"`

	// 1-based lines of every call site that referenced the specifier
	Lines []int `yaml:"lines,flow"`
}

// dependencyTable assigns slots 0..N-1 in first-occurrence order. A
// specifier seen again keeps its slot.
type dependencyTable struct {
	slots map[string]int
	deps  []Dependency
}

func newDependencyTable() *dependencyTable {
	return &dependencyTable{slots: make(map[string]int)}
}

func (t *dependencyTable) register(specifier string, line int) int {
	slot, ok := t.slots[specifier]
	if !ok {
		slot = len(t.deps)
		t.slots[specifier] = slot
		t.deps = append(t.deps, Dependency{Specifier: specifier, Slot: slot})
	}
	t.deps[slot].Lines = append(t.deps[slot].Lines, line)
	return slot
}

type dependencyRewriter struct {
	log     logger.Log
	source  *logger.Source
	factory *factoryIdents
	table   *dependencyTable

	keepRequireNames bool
	rewrites         int
}

// rewriteDependencies replaces the argument of every call to the ambient
// require with an index into the dependency map. Calls that are not
// statically analyzable are reported to the log and left alone, and the walk
// goes on so one run surfaces every bad call.
func rewriteDependencies(log logger.Log, source *logger.Source, root *ast.Node, factory *factoryIdents, keepRequireNames bool) (*dependencyTable, int) {
	r := &dependencyRewriter{
		log:              log,
		source:           source,
		factory:          factory,
		table:            newDependencyTable(),
		keepRequireNames: keepRequireNames,
	}

	ast.Walk(root, func(n *ast.Node, path *ast.Path) bool {
		if n.Kind == "call_expression" && factory.isRequire(n.ChildByField("function")) {
			r.visitRequireCall(n)
		}
		return true
	})

	return r.table, r.rewrites
}

func (r *dependencyRewriter) visitRequireCall(call *ast.Node) {
	args := call.ChildByField("arguments")
	if args == nil || args.Kind != "arguments" {
		// A tagged template such as require`x` is not a call
		r.log.AddRangeWarning(r.source, call.Range, fmt.Sprintf(
			"require used as a template tag at line %d is left unchanged", r.source.LineForLoc(call.Range.Loc)))
		return
	}

	named := args.NamedChildren()
	if len(named) != 1 || named[0].Kind == "spread_element" {
		r.invalidCall(call)
		return
	}
	literal := named[0]
	specifier, ok := ast.StringValue(literal)
	if !ok {
		r.invalidCall(call)
		return
	}

	slot := r.table.register(specifier, r.source.LineForLoc(call.Range.Loc))
	index := ast.NewNode("subscript_expression",
		ast.NewIdentifier(r.factory.dependencyMap),
		ast.Token("["),
		ast.NewNumber(slot),
		ast.Token("]"),
	)
	index.Children[0].Field = "object"
	index.Children[2].Field = "index"
	args.ReplaceChild(literal, index)

	if r.keepRequireNames {
		args.InsertAfter(index, ast.Token(", "), literal.Clone())
	}
	r.rewrites++
}

func (r *dependencyRewriter) invalidCall(call *ast.Node) {
	line := r.source.LineForLoc(call.Range.Loc)
	text := fmt.Sprintf("Invalid call at line %d: %s", line, r.source.TextForRange(call.Range))
	r.log.AddRangeError(r.source, call.Range, text)
}
