// Package resolver stamps a scope mark on every identifier occurrence.
//
// Each scope gets a fresh mark, the program scope gets the caller's
// top-level mark, and any name that no enclosing scope declares gets the
// unresolved mark. Later passes decide "is this the global require?" by
// comparing marks, never by looking at declarations themselves.
package resolver

import (
	"github.com/JakeChampion/metro-transform/internal/ast"
)

type Options struct {
	Marks      *ast.MarkSource
	Unresolved ast.Mark
	TopLevel   ast.Mark

	// TypeScript enables the typed parameter and declaration forms
	TypeScript bool
}

type scope struct {
	parent *scope
	mark   ast.Mark
	names  map[string]bool
}

func (s *scope) declare(name string) {
	s.names[name] = true
}

type resolver struct {
	options Options
}

func Resolve(root *ast.Node, options Options) {
	r := &resolver{options: options}
	program := r.newScope(nil, options.TopLevel)
	r.hoistVars(root, program)
	r.declareLexical(root.Children, program)
	for _, child := range root.Children {
		r.visit(child, program)
	}
}

func (r *resolver) newScope(parent *scope, mark ast.Mark) *scope {
	if mark == ast.NoMark {
		mark = r.options.Marks.Fresh()
	}
	return &scope{parent: parent, mark: mark, names: make(map[string]bool)}
}

func (r *resolver) lookup(name string, s *scope) ast.Mark {
	for ; s != nil; s = s.parent {
		if s.names[name] {
			return s.mark
		}
	}
	return r.options.Unresolved
}

func isFunction(kind string) bool {
	switch kind {
	case "function_declaration", "generator_function_declaration",
		"function_expression", "function", "generator_function",
		"arrow_function", "method_definition":
		return true
	}
	return false
}

func isDeclaration(kind string) bool {
	return kind == "function_declaration" || kind == "generator_function_declaration"
}

func (r *resolver) visit(n *ast.Node, s *scope) {
	if n.IsIdentifier() {
		n.Mark = r.lookup(n.Text, s)
		return
	}

	switch {
	case isFunction(n.Kind):
		r.visitFunction(n, s)
		return

	case n.Kind == "statement_block" || n.Kind == "switch_body":
		block := r.newScope(s, ast.NoMark)
		if n.Kind == "switch_body" {
			for _, c := range n.NamedChildren() {
				r.declareLexical(c.Children, block)
			}
		} else {
			r.declareLexical(n.Children, block)
		}
		s = block

	case n.Kind == "for_statement":
		head := r.newScope(s, ast.NoMark)
		if init := n.ChildByField("initializer"); init != nil && init.Kind == "lexical_declaration" {
			r.declareDeclarators(init, head)
		}
		s = head

	case n.Kind == "for_in_statement":
		if n.HasToken("let") || n.HasToken("const") {
			head := r.newScope(s, ast.NoMark)
			if left := n.ChildByField("left"); left != nil {
				r.declarePattern(left, head)
			}
			s = head
		}

	case n.Kind == "catch_clause":
		clause := r.newScope(s, ast.NoMark)
		if param := n.ChildByField("parameter"); param != nil {
			r.declarePattern(param, clause)
		}
		s = clause

	case n.Kind == "class":
		// A class expression's name is only visible inside the class
		if name := n.ChildByField("name"); name != nil {
			class := r.newScope(s, ast.NoMark)
			class.declare(name.Text)
			s = class
		}
	}

	for _, child := range n.Children {
		r.visit(child, s)
	}
}

func (r *resolver) visitFunction(n *ast.Node, outer *scope) {
	fn := r.newScope(outer, ast.NoMark)

	name := n.ChildByField("name")
	if name != nil && name.IsIdentifier() && !isDeclaration(n.Kind) {
		fn.declare(name.Text)
	}
	if params := n.ChildByField("parameters"); params != nil {
		r.declarePattern(params, fn)
	}
	if param := n.ChildByField("parameter"); param != nil {
		// Arrow function with a single bare parameter
		r.declarePattern(param, fn)
	}
	if body := n.ChildByField("body"); body != nil {
		r.hoistVars(body, fn)
	}

	for _, child := range n.Children {
		if child == name && isDeclaration(n.Kind) {
			// Declared in the enclosing block, not inside itself
			r.visit(child, outer)
			continue
		}
		r.visit(child, fn)
	}
}

// hoistVars declares every "var" binding found in n, stopping at nested
// functions which have their own var scope.
func (r *resolver) hoistVars(n *ast.Node, s *scope) {
	for _, child := range n.Children {
		switch {
		case isFunction(child.Kind), child.Kind == "class_body":
			// Class static blocks have their own var scope too
			continue

		case child.Kind == "ambient_declaration" && r.options.TypeScript:
			// "declare var x" describes a binding that exists elsewhere
			continue

		case child.Kind == "variable_declaration":
			r.declareDeclarators(child, s)

		case child.Kind == "for_in_statement" && child.HasToken("var"):
			if left := child.ChildByField("left"); left != nil {
				r.declarePattern(left, s)
			}
		}
		r.hoistVars(child, s)
	}
}

// declareLexical declares the block-scoped bindings among a statement list.
func (r *resolver) declareLexical(stmts []*ast.Node, s *scope) {
	for _, stmt := range stmts {
		if stmt.Kind == "export_statement" {
			if decl := stmt.ChildByField("declaration"); decl != nil {
				stmt = decl
			}
		}

		switch stmt.Kind {
		case "lexical_declaration":
			r.declareDeclarators(stmt, s)

		case "function_declaration", "generator_function_declaration",
			"class_declaration", "abstract_class_declaration":
			if name := stmt.ChildByField("name"); name != nil {
				s.declare(name.Text)
			}

		case "enum_declaration", "internal_module", "module":
			if r.options.TypeScript {
				if name := stmt.ChildByField("name"); name != nil && name.IsIdentifier() {
					s.declare(name.Text)
				}
			}

		case "import_statement":
			r.declareImports(stmt, s)
		}
	}
}

func (r *resolver) declareDeclarators(decl *ast.Node, s *scope) {
	for _, declarator := range decl.NamedChildren() {
		if declarator.Kind != "variable_declarator" {
			continue
		}
		if name := declarator.ChildByField("name"); name != nil {
			r.declarePattern(name, s)
		}
	}
}

func (r *resolver) declareImports(n *ast.Node, s *scope) {
	for _, child := range n.NamedChildren() {
		switch child.Kind {
		case "import_clause", "named_imports", "namespace_import", "import_require_clause":
			r.declareImports(child, s)

		case "import_specifier":
			if alias := child.ChildByField("alias"); alias != nil {
				s.declare(alias.Text)
			} else if name := child.ChildByField("name"); name != nil {
				s.declare(name.Text)
			}

		case "identifier":
			s.declare(child.Text)
		}
	}
}

// declarePattern declares every binding name introduced by a parameter list
// or destructuring pattern.
func (r *resolver) declarePattern(n *ast.Node, s *scope) {
	switch n.Kind {
	case "identifier", "shorthand_property_identifier_pattern":
		s.declare(n.Text)

	case "formal_parameters", "object_pattern", "array_pattern", "rest_pattern":
		for _, child := range n.NamedChildren() {
			r.declarePattern(child, s)
		}

	case "pair_pattern":
		if value := n.ChildByField("value"); value != nil {
			r.declarePattern(value, s)
		}

	case "assignment_pattern", "object_assignment_pattern":
		if left := n.ChildByField("left"); left != nil {
			r.declarePattern(left, s)
		}

	case "required_parameter", "optional_parameter":
		if pattern := n.ChildByField("pattern"); pattern != nil {
			r.declarePattern(pattern, s)
		}
	}
}
