// Package textfold is the builtin demonstration vertex. It case-folds the
// channel argument fields and emits them to a sink, walking the full shell
// flow on the way: environment construction, reader and writer allocation,
// buffer sizing.
package textfold

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/text/cases"

	"github.com/wehubfusion/Daedalus/pkg/vertex"
	"github.com/wehubfusion/Daedalus/pkg/worker"
)

// Dispatch target of the builtin vertex.
const (
	TypeName  = "TextFold"
	MethodRun = "Run"
)

// Vertex folds its argument fields. The declared shape defaults to one
// single-port input and one output.
type Vertex struct {
	out    io.Writer
	params vertex.StaticParameters
}

// New creates the vertex writing folded output to out.
func New(out io.Writer) *Vertex {
	return &Vertex{
		out: out,
		params: vertex.StaticParameters{
			PortCounts: []uint32{1},
			Outputs:    1,
		},
	}
}

// NewWithParameters creates the vertex with an explicit declared shape.
func NewWithParameters(out io.Writer, params vertex.StaticParameters) *Vertex {
	return &Vertex{out: out, params: params}
}

// Register adds the vertex to a dispatch registry under its builtin target.
func Register(reg *worker.Registry, out io.Writer) {
	reg.Register(TypeName, MethodRun, New(out))
}

// Invoke builds the environment, allocates every declared reader and writer,
// and writes the case-folded argument fields, one per line. Folding runs on a
// pool bounded by the invocation thread budget; output order stays the
// argument order.
func (v *Vertex) Invoke(ctx context.Context, inv worker.Invocation) error {
	env, err := vertex.NewEnvironment(ctx, inv.Bridge, inv.ChannelArgs, v.params, inv.Logger)
	if err != nil {
		return err
	}

	for i := uint32(0); i < env.InputCount(); i++ {
		env.MakeReader()
	}
	for o := uint32(0); o < v.params.OutputArity(); o++ {
		env.MakeWriter()
	}

	fields := env.Args()[1:]
	folded := make([]string, len(fields))
	pool := worker.NewPool(inv.Threads)
	for i, arg := range fields {
		if err := pool.Go(ctx, func() error {
			folded[i] = cases.Fold().String(arg)
			return nil
		}); err != nil {
			return err
		}
	}
	if err := pool.Wait(); err != nil {
		return err
	}

	for _, line := range folded {
		if _, err := fmt.Fprintln(v.out, line); err != nil {
			return fmt.Errorf("write folded output: %w", err)
		}
	}
	return nil
}
