// Package jsworker loads script vertex modules for dispatch targets that are
// not compiled in. A module is a JavaScript file staged by the host one
// directory above the process working directory; it declares vertex types as
// objects whose function properties are the invokable methods.
package jsworker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	daederrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/worker"
)

// DefaultModuleDir is where the host stages script modules relative to the
// vertex working directory.
const DefaultModuleDir = ".."

// Module is an evaluated script module. The underlying VM is single-threaded;
// a Module serves one invocation at a time.
type Module struct {
	vm     *goja.Runtime
	name   string
	logger *zap.Logger
}

// Load reads and evaluates the named script module from dir. The module name
// comes verbatim from the dispatch argument, extension included.
func Load(dir, name string, logger *zap.Logger) (*Module, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := filepath.Join(dir, name)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, daederrors.NewResolution(fmt.Sprintf("script module %q not found", path), err)
	}

	vm := goja.New()
	if _, err := vm.RunString(string(src)); err != nil {
		if exc, ok := err.(*goja.Exception); ok {
			err = fmt.Errorf("%s", exc.String())
		}
		return nil, daederrors.NewResolution(fmt.Sprintf("script module %q failed to evaluate", path), err)
	}

	logger.Debug("script module loaded", zap.String("path", path))
	return &Module{vm: vm, name: name, logger: logger}, nil
}

// Resolve looks up a vertex type and method in the module and returns it as
// an entry point.
func (m *Module) Resolve(typeName, method string) (worker.EntryPoint, error) {
	typeVal := m.vm.Get(typeName)
	if typeVal == nil || goja.IsUndefined(typeVal) || goja.IsNull(typeVal) {
		return nil, daederrors.NewResolution(
			fmt.Sprintf("type %q not found in script module %q", typeName, m.name), daederrors.ErrNoEntryPoint)
	}

	obj := typeVal.ToObject(m.vm)
	fn, ok := goja.AssertFunction(obj.Get(method))
	if !ok {
		return nil, daederrors.NewResolution(
			fmt.Sprintf("method %q not found on type %q in script module %q", method, typeName, m.name), daederrors.ErrNoEntryPoint)
	}

	return &scriptEntryPoint{
		module: m,
		target: worker.Target(typeName, method),
		this:   obj,
		fn:     fn,
	}, nil
}

type scriptEntryPoint struct {
	module *Module
	target string
	this   *goja.Object
	fn     goja.Callable
}

// Invoke runs the script method with a single invocation object argument
// carrying the raw channel argument string, its split fields, and the thread
// budget. A throw surfaces as a worker error; context cancellation interrupts
// the VM.
func (s *scriptEntryPoint) Invoke(ctx context.Context, inv worker.Invocation) error {
	vm := s.module.vm

	arg := vm.NewObject()
	if err := arg.Set("channelArgs", inv.ChannelArgs); err != nil {
		return fmt.Errorf("failed to set channelArgs: %w", err)
	}
	if err := arg.Set("args", strings.Split(inv.ChannelArgs, "|")); err != nil {
		return fmt.Errorf("failed to set args: %w", err)
	}
	if err := arg.Set("threads", inv.Threads); err != nil {
		return fmt.Errorf("failed to set threads: %w", err)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("invocation cancelled")
		case <-done:
		}
	}()
	defer close(done)

	_, err := s.fn(s.this, arg)
	if err != nil {
		if exc, ok := err.(*goja.Exception); ok {
			return daederrors.NewWorker(
				fmt.Sprintf("script %s raised", s.target), fmt.Errorf("%s", exc.String()))
		}
		return daederrors.NewWorker(fmt.Sprintf("script %s failed", s.target), err)
	}
	return nil
}
