package plugin

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Loader executes a plugin file's load side effects.
type Loader interface {
	Load(ctx context.Context, path string) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) error

func (f LoaderFunc) Load(ctx context.Context, path string) error { return f(ctx, path) }

const initFuncName = "Init"

// GoLoader interprets plugin files with yaegi. A plugin is a `package main`
// file; its package-level initialization and main() run on evaluation, then
// an optional `func Init()` or `func Init() error` is called.
type GoLoader struct {
	// Stdout and Stderr receive the plugin's output. Nil selects os.Stdout
	// and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
	// Env is passed to the interpreter; nil inherits the process env.
	Env []string
}

// NewGoLoader returns a loader writing plugin output to the process streams.
func NewGoLoader() *GoLoader { return &GoLoader{} }

func (l *GoLoader) Load(ctx context.Context, path string) error {
	hasInit, err := inspect(path)
	if err != nil {
		return err
	}

	opts := interp.Options{Stdout: l.Stdout, Stderr: l.Stderr, Env: l.Env}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	i := interp.New(opts)
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("register stdlib symbols: %w", err)
	}
	if _, err := i.EvalPathWithContext(ctx, path); err != nil {
		return fmt.Errorf("interpret %s: %w", path, err)
	}
	if !hasInit {
		return nil
	}

	fn, err := i.EvalWithContext(ctx, initFuncName)
	if err != nil {
		return fmt.Errorf("resolve %s in %s: %w", initFuncName, path, err)
	}
	return callInit(fn)
}

// inspect checks the package clause and reports whether the file declares a
// top-level Init without parameters.
func inspect(path string) (bool, error) {
	file, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.SkipObjectResolution)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	if file.Name.Name != "main" {
		return false, fmt.Errorf("%s: plugins must be package main, got %q", path, file.Name.Name)
	}
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv != nil || fd.Name.Name != initFuncName {
			continue
		}
		if fd.Type.Params.NumFields() != 0 {
			return false, fmt.Errorf("%s: %s must take no arguments", path, initFuncName)
		}
		return true, nil
	}
	return false, nil
}

func callInit(fn reflect.Value) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panicked: %v", initFuncName, rec)
		}
	}()
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return fmt.Errorf("%s is not a function", initFuncName)
	}
	results := fn.Call(nil)
	switch len(results) {
	case 0:
		return nil
	case 1:
		if results[0].IsNil() {
			return nil
		}
		if e, ok := results[0].Interface().(error); ok {
			return e
		}
		return fmt.Errorf("%s returned non-error value", initFuncName)
	default:
		return fmt.Errorf("%s must return nothing or error", initFuncName)
	}
}
