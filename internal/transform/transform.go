// Package transform turns one JavaScript or TypeScript module into the body
// of a bundler module factory.
//
// Every call to the global require is rewritten to index a dependency map
// injected by the loader, and the whole module is wrapped in
//
//	__d(function (global, require, importDefault, importAll, module, exports, dependencyMap) { ... });
//
// The result also carries the dependency table (specifier to slot, in
// first-occurrence order) and the string literals passed to calls guarded by
// a try block.
//
// A run is synchronous and owns all of its state, so independent files can
// be transformed concurrently.
package transform

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/JakeChampion/metro-transform/internal/ast"
	"github.com/JakeChampion/metro-transform/internal/logger"
	"github.com/JakeChampion/metro-transform/internal/parser"
	"github.com/JakeChampion/metro-transform/internal/printer"
	"github.com/JakeChampion/metro-transform/internal/renamer"
	"github.com/JakeChampion/metro-transform/internal/resolver"
)

type Options struct {
	// Filename names the file in diagnostics. Its extension selects the
	// grammar: .ts, .mts and .cts are TypeScript, .tsx is TSX and anything
	// else is JavaScript with JSX.
	Filename string

	// GlobalPrefix is prepended to the name of the define function.
	GlobalPrefix string

	// KeepRequireNames passes the original specifier to each rewritten
	// require call as a second argument.
	KeepRequireNames bool

	// OptionalExclude lists specifiers that are never reported as optional.
	OptionalExclude []string
}

// Result holds the output of a successful transform.
type Result struct {
	// Code is the generated module.
	Code []byte `yaml:"-"`

	// Dependencies is the dependency table ordered by slot.
	Dependencies []Dependency `yaml:"dependencies"`

	// OptionalDependencies lists, once per guarded call site, the
	// specifiers required inside a try block.
	OptionalDependencies []string `yaml:"optionalDependencies,flow"`

	// DependencyMapName is the final name of the dependency map parameter.
	DependencyMapName string `yaml:"dependencyMapName"`

	// FactoryParams are the final names of the factory parameters in order.
	FactoryParams []string `yaml:"factoryParams,flow"`

	// Rewrites is the number of require calls that were rewritten.
	Rewrites int `yaml:"rewrites"`

	// Warnings are diagnostics that did not fail the run.
	Warnings []logger.Msg `yaml:"warnings,omitempty"`
}

// Stage is a step of the transform pipeline. Stages run strictly in order.
type Stage uint8

const (
	StageParsed Stage = iota
	StageScopeResolved
	StageOptionalScanned
	StageDependenciesRewritten
	StageWrapped
	StageHygienic
	StageEmitted
)

func (s Stage) String() string {
	switch s {
	case StageParsed:
		return "parse"
	case StageScopeResolved:
		return "scope resolution"
	case StageOptionalScanned:
		return "optional dependency scan"
	case StageDependenciesRewritten:
		return "dependency rewrite"
	case StageWrapped:
		return "module wrap"
	case StageHygienic:
		return "hygiene"
	case StageEmitted:
		return "code generation"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

type ErrorKind uint8

const (
	// ParseFailure is malformed input.
	ParseFailure ErrorKind = iota

	// UnanalyzableImport is a require call that does not take exactly one
	// string literal.
	UnanalyzableImport

	// StructuralInvariantViolation is an internal consistency bug, such as
	// a module declaration that reached the wrapper.
	StructuralInvariantViolation

	// CompilationDiagnostics means errors were logged by a stage that does
	// not stop the run, such as an unusable global prefix.
	CompilationDiagnostics
)

func (k ErrorKind) String() string {
	switch k {
	case ParseFailure:
		return "parse failure"
	case UnanalyzableImport:
		return "unanalyzable import"
	case StructuralInvariantViolation:
		return "internal error"
	case CompilationDiagnostics:
		return "compilation failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Error is returned by Transform for every failed run. Msgs holds the
// diagnostics recorded before the run stopped.
type Error struct {
	Kind   ErrorKind
	Stage  Stage
	Reason string
	Msgs   []logger.Msg

	err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Transform runs the whole pipeline over source.
func Transform(source []byte, options Options) (*Result, error) {
	log := logger.NewDeferLog()
	src := &logger.Source{PrettyPath: options.Filename, Contents: string(source)}
	lang := parser.LanguageForFile(options.Filename)

	fail := func(kind ErrorKind, stage Stage, reason string) *Error {
		return &Error{Kind: kind, Stage: stage, Reason: reason, Msgs: log.Done()}
	}

	// Parsed
	root, err := parser.Parse(log, src, lang)
	if err != nil {
		parseErr := fail(ParseFailure, StageParsed, err.Error())
		parseErr.err = err
		return nil, parseErr
	}

	// ScopeResolved
	marks := ast.NewMarkSource()
	unresolved := marks.Fresh()
	resolver.Resolve(root, resolver.Options{
		Marks:      marks,
		Unresolved: unresolved,
		TopLevel:   marks.Fresh(),
		TypeScript: lang.IsTyped(),
	})
	factory := newFactoryIdents(marks, unresolved)

	// OptionalScanned
	exclude := make(map[string]bool, len(options.OptionalExclude))
	for _, specifier := range options.OptionalExclude {
		exclude[specifier] = true
	}
	optional := collectOptionalDependencies(root, exclude)

	// DependenciesRewritten
	table, rewrites := rewriteDependencies(log, src, root, factory, options.KeepRequireNames)
	if log.HasErrors() {
		return nil, fail(UnanalyzableImport, StageDependenciesRewritten, firstError(log, "invalid require call"))
	}

	// Wrapped
	if !validGlobalPrefix(options.GlobalPrefix) {
		log.AddError(nil, logger.Loc{}, fmt.Sprintf("Invalid global prefix %q: %s is not an identifier", options.GlobalPrefix, options.GlobalPrefix+defineName))
	}
	if err := wrapModule(root, factory, options.GlobalPrefix); err != nil {
		var declErr *moduleDeclarationError
		if errors.As(err, &declErr) {
			log.AddError(src, declErr.loc, err.Error())
		}
		wrapErr := fail(StructuralInvariantViolation, StageWrapped, err.Error())
		wrapErr.err = err
		return nil, wrapErr
	}

	// Hygienic
	names := renamer.Hygiene(root, factory.private())

	// Emitted
	if log.HasErrors() {
		return nil, fail(CompilationDiagnostics, StageEmitted, firstError(log, "errors were reported"))
	}
	code := printer.Print(root, src)

	params := make([]string, 0, 7)
	for _, id := range factory.params() {
		if name, ok := names[id]; ok {
			params = append(params, name)
		} else {
			params = append(params, id.Name)
		}
	}

	return &Result{
		Code:                 code,
		Dependencies:         table.deps,
		OptionalDependencies: optional,
		DependencyMapName:    names[factory.dependencyMap],
		FactoryParams:        params,
		Rewrites:             rewrites,
		Warnings:             log.Done(),
	}, nil
}

// validGlobalPrefix reports whether prefix followed by the define function
// name is still a single identifier.
func validGlobalPrefix(prefix string) bool {
	for i, c := range prefix {
		switch {
		case c == '_' || c == '$' || unicode.IsLetter(c):
		case i > 0 && unicode.IsDigit(c):
		default:
			return false
		}
	}
	return true
}

func firstError(log logger.Log, fallback string) string {
	for _, msg := range log.Done() {
		if msg.Kind == logger.Error {
			return msg.Text
		}
	}
	return fallback
}
