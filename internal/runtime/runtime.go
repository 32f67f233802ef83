// Package runtime executes generated module factories with goja so the
// wiring between the dependency table and the rewritten require calls can
// be checked end to end.
//
// The harness plays the part of the bundle loader: it defines the define
// function, captures the factory the module registers and calls it with a
// dependency map whose entries are the specifiers themselves.
package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

var (
	// ErrNoFactory is returned when the code did not register exactly one
	// factory.
	ErrNoFactory = errors.New("module did not register a factory")

	// ErrModuleNotFound is thrown into the module when it requires a
	// specifier with no stub. Code guarded by try/catch can recover from it.
	ErrModuleNotFound = errors.New("cannot find module")

	// Interrupted is returned when the context ends before the module
	// finishes running.
	Interrupted = errors.New("RuntimeError: timeout")
)

const defineName = "__d"

type Options struct {
	// Filename is used in stack traces.
	Filename string

	// GlobalPrefix must match the prefix the module was generated with.
	GlobalPrefix string

	// Dependencies are the specifiers in slot order. Entry i is what the
	// module receives as dependencyMap[i].
	Dependencies []string

	// Modules maps a specifier to the value require returns for it.
	Modules map[string]interface{}

	// RegisterOnly stops after the factory is captured. The module body is
	// not run, so its dependencies need no stubs.
	RegisterOnly bool
}

// Execution describes one run of a factory.
type Execution struct {
	// Arity is the factory's declared parameter count.
	Arity int

	// Required lists every specifier passed to require, in call order.
	Required []string

	// Exports is module.exports after the factory returned.
	Exports interface{}
}

// Run evaluates code, which must call the define function once, then runs
// the registered factory.
func Run(ctx context.Context, code []byte, opts Options) (*Execution, error) {
	// goja does not accept a hashbang line
	if bytes.HasPrefix(code, []byte("#!")) {
		code = append([]byte("//"), code[2:]...)
	}

	p, err := goja.Compile(opts.Filename, string(code), false)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", opts.Filename, err)
	}

	o := goja.New()

	var factories []goja.Value
	if err := o.Set(opts.GlobalPrefix+defineName, func(call goja.FunctionCall) goja.Value {
		factories = append(factories, call.Argument(0))
		return goja.Undefined()
	}); err != nil {
		return nil, err
	}

	exe := &Execution{}

	// The goroutine is released as soon as the run returns
	ictx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ictx.Done()
		o.Interrupt(Interrupted.Error())
	}()

	if _, err := o.RunProgram(p); err != nil {
		return nil, runError(ctx, err)
	}

	if len(factories) != 1 {
		return nil, fmt.Errorf("%w: %d calls to %s", ErrNoFactory, len(factories), opts.GlobalPrefix+defineName)
	}
	factory, ok := goja.AssertFunction(factories[0])
	if !ok {
		return nil, fmt.Errorf("%w: got %s instead of a function", ErrNoFactory, factories[0].String())
	}
	exe.Arity = int(factories[0].ToObject(o).Get("length").ToInteger())
	if opts.RegisterOnly {
		return exe, nil
	}

	resolve := func(id goja.Value) goja.Value {
		specifier := id.String()
		exe.Required = append(exe.Required, specifier)
		m, have := opts.Modules[specifier]
		if !have {
			panic(o.NewGoError(fmt.Errorf("%w %q", ErrModuleNotFound, specifier)))
		}
		return o.ToValue(m)
	}

	require := func(call goja.FunctionCall) goja.Value {
		return resolve(call.Argument(0))
	}

	importAll := func(call goja.FunctionCall) goja.Value {
		return resolve(call.Argument(0))
	}

	importDefault := func(call goja.FunctionCall) goja.Value {
		v := resolve(call.Argument(0))
		if obj, is := v.(*goja.Object); is {
			if flag := obj.Get("__esModule"); flag != nil && flag.ToBoolean() {
				return obj.Get("default")
			}
		}
		return v
	}

	slots := make([]interface{}, len(opts.Dependencies))
	for i, specifier := range opts.Dependencies {
		slots[i] = specifier
	}

	exports := o.NewObject()
	module := o.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}

	_, err = factory(goja.Undefined(),
		o.GlobalObject(),
		o.ToValue(require),
		o.ToValue(importDefault),
		o.ToValue(importAll),
		module,
		exports,
		o.NewArray(slots...),
	)
	if err != nil {
		return nil, runError(ctx, err)
	}

	exe.Exports = module.Get("exports").Export()
	return exe, nil
}

func runError(ctx context.Context, err error) error {
	if _, is := err.(*goja.InterruptedError); is {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", Interrupted, ctx.Err())
		}
		return Interrupted
	}
	return err
}
