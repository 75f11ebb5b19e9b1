// Package worker defines the entry point capability the shell dispatches to.
// A vertex class registers an EntryPoint under its type and method name; the
// shell resolves it from the dispatch argument and invokes it exactly once.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/host"
	"github.com/wehubfusion/Daedalus/pkg/report"
)

// Invocation carries everything an entry point needs to build its vertex
// environment and run.
type Invocation struct {
	// ChannelArgs is the raw pipe-delimited channel argument string from the
	// host, passed through verbatim.
	ChannelArgs string

	// Threads is the worker thread budget for vertex-internal concurrency.
	Threads int

	// Bridge reaches the native host for environment construction.
	Bridge host.Bridge

	// Reporter is the shell's failure reporter. Workers that report their
	// own failures before returning them share this instance, so the shell's
	// follow-up report of the same error value is absorbed as a duplicate.
	Reporter *report.Reporter

	// Logger is the shell's logger, shared with the worker.
	Logger *zap.Logger
}

// EntryPoint is a dispatchable unit of vertex business logic.
type EntryPoint interface {
	// Invoke runs the vertex. It blocks until the vertex completes and
	// returns nil on success.
	Invoke(ctx context.Context, inv Invocation) error
}

// EntryPointFunc adapts a function to the EntryPoint interface.
type EntryPointFunc func(ctx context.Context, inv Invocation) error

// Invoke implements EntryPoint.
func (f EntryPointFunc) Invoke(ctx context.Context, inv Invocation) error {
	return f(ctx, inv)
}

// InvokeError wraps any failure escaping an invoked entry point, panics
// included. Inner keeps the original error's identity so a failure the worker
// already reported is recognized as a duplicate when the shell reports it
// again after unwrapping.
type InvokeError struct {
	// Target is the resolved "Type.Method" name of the entry point.
	Target string

	// Inner is the failure raised by the worker.
	Inner error
}

// Error implements the error interface.
func (e *InvokeError) Error() string {
	return fmt.Sprintf("invoking %s: %v", e.Target, e.Inner)
}

// Unwrap returns the worker's failure.
func (e *InvokeError) Unwrap() error {
	return e.Inner
}

// Call invokes the entry point and converts every escape path into an
// *InvokeError: returned errors are wrapped, panics are recovered and
// wrapped, error-valued panics keep their identity as Inner.
func Call(ctx context.Context, target string, ep EntryPoint, inv Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			inner, ok := r.(error)
			if !ok {
				inner = fmt.Errorf("panic recovered: %v", r)
			}
			err = &InvokeError{Target: target, Inner: inner}
		}
	}()

	if invokeErr := ep.Invoke(ctx, inv); invokeErr != nil {
		return &InvokeError{Target: target, Inner: invokeErr}
	}
	return nil
}
