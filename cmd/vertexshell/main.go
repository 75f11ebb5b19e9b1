// The vertexshell binary runs one vertex of a dataflow job. The host launches
// it with a single dispatch argument naming the module, type, method, and
// channel arguments; the exit code tells the host whether the vertex failed.
package main

import (
	"context"
	"os"

	"github.com/wehubfusion/Daedalus/pkg/dispatch"
	"github.com/wehubfusion/Daedalus/pkg/worker"
	"github.com/wehubfusion/Daedalus/pkg/worker/textfold"
)

func main() {
	reg := worker.NewRegistry()
	textfold.Register(reg, os.Stdout)

	rawArgs := ""
	if len(os.Args) > 1 {
		rawArgs = os.Args[1]
	}

	os.Exit(dispatch.Run(context.Background(), rawArgs, dispatch.Options{Registry: reg}))
}
