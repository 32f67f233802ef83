package transform

import (
	"fmt"

	"github.com/JakeChampion/metro-transform/internal/ast"
	"github.com/JakeChampion/metro-transform/internal/logger"
)

// moduleDeclarationError reports an import or export declaration that
// reached the wrap step. They must have been lowered by an earlier pass.
type moduleDeclarationError struct {
	kind string
	loc  logger.Loc
}

func (e *moduleDeclarationError) Error() string {
	return fmt.Sprintf("Internal error: %s survived into the module wrapper", e.kind)
}

// wrapModule replaces the program body with a single statement:
//
//	<prefix>__d(function (global, require, importDefault, importAll, module, exports, dependencyMap) {
//	<original body>
//	});
//
// A leading hashbang line stays above the call.
func wrapModule(root *ast.Node, factory *factoryIdents, globalPrefix string) error {
	var hashbang *ast.Node
	var body []*ast.Node

	for _, child := range root.Children {
		switch child.Kind {
		case "import_statement", "export_statement":
			return &moduleDeclarationError{kind: child.Kind, loc: child.Range.Loc}
		case "hash_bang_line":
			if hashbang == nil && len(body) == 0 {
				hashbang = child
				continue
			}
		}
		body = append(body, child)
	}

	params := []*ast.Node{ast.Token("(")}
	for i, id := range factory.params() {
		if i > 0 {
			params = append(params, ast.Token(", "))
		}
		params = append(params, ast.NewIdentifier(id))
	}
	params = append(params, ast.Token(")"))
	formal := ast.NewNode("formal_parameters", params...)
	formal.Field = "parameters"

	block := ast.NewNode("statement_block", ast.Token("{"), ast.Token("\n"))
	block.Field = "body"
	if len(body) > 0 {
		// The original statements keep their positions so the source between
		// them (comments, blank lines) is printed unchanged
		start, end := body[0].Range.Loc.Start, body[len(body)-1].Range.End()
		list := &ast.Node{
			Kind:     "statement_list",
			Named:    true,
			Children: body,
			Range:    logger.Range{Loc: logger.Loc{Start: start}, Len: end - start},
		}
		block.Children = append(block.Children, list, ast.Token("\n"))
	}
	block.Children = append(block.Children, ast.Token("}"))

	fn := ast.NewNode("function_expression", ast.Token("function"), ast.Token(" "), formal, ast.Token(" "), block)

	args := ast.NewNode("arguments", ast.Token("("), fn, ast.Token(")"))
	args.Field = "arguments"

	define := ast.NewIdentifier(ast.Ident{Name: globalPrefix + defineName, Mark: factory.global.Mark})
	define.Field = "function"

	stmt := ast.NewNode("expression_statement", ast.NewNode("call_expression", define, args), ast.Token(";"))

	// The statement stands in for everything after the hashbang, so none of
	// the original source is printed around it
	stmt.Detached = false
	stmt.Range = root.Range
	if hashbang != nil {
		stmt.Range = logger.Range{Loc: logger.Loc{Start: hashbang.Range.End()}, Len: root.Range.End() - hashbang.Range.End()}
		root.Children = []*ast.Node{hashbang, ast.Token("\n"), stmt}
	} else {
		root.Children = []*ast.Node{stmt}
	}
	return nil
}
