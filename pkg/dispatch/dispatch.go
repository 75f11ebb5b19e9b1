// Package dispatch is the entry point of the vertex shell. It resolves the
// host's dispatch argument to a worker entry point, invokes it once, and
// turns whatever escapes into the exit status the host observes.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/internal/health"
	internalnats "github.com/wehubfusion/Daedalus/internal/nats"
	"github.com/wehubfusion/Daedalus/internal/tracing"
	daederrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/host"
	"github.com/wehubfusion/Daedalus/pkg/report"
	"github.com/wehubfusion/Daedalus/pkg/storage"
	"github.com/wehubfusion/Daedalus/pkg/worker"
	"github.com/wehubfusion/Daedalus/pkg/worker/jsworker"
)

// Target is the parsed dispatch argument naming what to run and with which
// channels.
type Target struct {
	// Module is the container of the vertex logic: a registered builtin's
	// home or a script module file staged next to the working directory.
	Module string

	// Type and Method name the entry point inside the module.
	Type   string
	Method string

	// ChannelArgs is the pipe-delimited channel argument string, passed to
	// the entry point verbatim.
	ChannelArgs string
}

// ParseTarget splits the comma-separated dispatch argument
// "module,type,method,channelArgs". Anything but exactly four fields is a
// configuration error, raised before any resolution is attempted.
func ParseTarget(raw string) (Target, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return Target{}, daederrors.NewConfiguration(
			fmt.Sprintf("dispatch argument must have 4 fields, got %d", len(parts)), nil)
	}
	return Target{
		Module:      parts[0],
		Type:        parts[1],
		Method:      parts[2],
		ChannelArgs: parts[3],
	}, nil
}

// Options configures a Run beyond what the environment provides. The zero
// value is valid: configuration is loaded from the environment, the host
// bridge is connected over NATS, and resolution is script-only.
type Options struct {
	// Registry resolves compiled-in entry points before script fallback.
	Registry *worker.Registry

	// Bridge overrides the NATS host bridge, mainly for embedding and tests.
	Bridge host.Bridge

	// Logger overrides the fixed process logger.
	Logger *zap.Logger

	// Config overrides the environment-derived configuration.
	Config *Config

	// ModuleDir overrides where script modules are loaded from. Empty means
	// the directory above the working directory, where the host stages job
	// resources.
	ModuleDir string
}

// NewLogger builds the fixed process logger: JSON at Info level on stderr,
// so the host-collected process output stays machine-readable.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Run executes one vertex dispatch: initialize logging and the optional
// integrations, parse the dispatch argument, resolve the entry point, invoke
// it, and report whatever escapes. The returned value is the process exit
// code: nonzero exactly when a failure was reported and no sticky error code
// suppressed termination.
func Run(ctx context.Context, rawArgs string, opts Options) int {
	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = NewLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
			return 1
		}
		defer logger.Sync()
	}

	cfg, cfgErr := loadConfig(opts)
	reporter := buildReporter(cfg, logger)

	fail := func(err error) int {
		outcome := reporter.Report(ctx, err)
		code := 0
		if reporter.ShouldTerminate() {
			code = 1
		}
		logger.Info("vertex shell exiting",
			zap.Stringer("outcome", outcome),
			zap.Int("exit_code", code),
			zap.Int32("error_code", reporter.ErrorCode()))
		return code
	}

	logger.Info("vertex shell starting",
		zap.String("go_version", runtime.Version()),
		zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
		zap.Int("num_cpu", runtime.NumCPU()),
		zap.String("gogc", os.Getenv("GOGC")),
		zap.String("gomemlimit", os.Getenv("GOMEMLIMIT")),
		zap.Int("pid", os.Getpid()),
		zap.String("execution_id", reporter.ExecutionID()),
		zap.Int("worker_threads", cfg.Threads()))

	if cfgErr != nil {
		return fail(daederrors.NewConfiguration("invalid environment configuration", cfgErr))
	}

	target, err := ParseTarget(rawArgs)
	if err != nil {
		return fail(err)
	}

	if cfg.OTLPEndpoint != "" {
		tcfg := tracing.DefaultConfig("daedalus-vertexshell")
		tcfg.OTLPEndpoint = cfg.OTLPEndpoint
		tcfg.Environment = cfg.Environment
		shutdown, err := tracing.Setup(ctx, tcfg, logger)
		if err != nil {
			logger.Warn("Failed to setup tracing, continuing without tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(shutdown, logger)
		}
	}

	if cfg.HealthPort != 0 {
		probe, err := health.Start(cfg.HealthPort, logger)
		if err != nil {
			logger.Warn("Failed to start health probe, continuing without it", zap.Error(err))
		} else {
			defer func() {
				probe.SetNotServing()
				probe.Stop(ctx)
			}()
		}
	}

	bridge := opts.Bridge
	if bridge == nil {
		conn, err := internalnats.Connect(ctx, internalnats.DefaultConnectionConfig(cfg.HostURL), logger)
		if err != nil {
			return fail(daederrors.NewConfiguration("host bridge unavailable", err))
		}
		defer func() {
			if err := internalnats.Close(conn); err != nil {
				logger.Warn("failed to close host connection", zap.Error(err))
			}
		}()

		bridge, err = host.NewNATSBridge(conn, host.NATSBridgeConfig{SubjectPrefix: cfg.HostSubjectPrefix}, logger)
		if err != nil {
			return fail(daederrors.NewConfiguration("host bridge unavailable", err))
		}
	}

	moduleDir := opts.ModuleDir
	if moduleDir == "" {
		moduleDir = jsworker.DefaultModuleDir
	}

	entry, err := resolve(target, opts.Registry, moduleDir, logger)
	if err != nil {
		return fail(err)
	}

	tracer := otel.Tracer("daedalus/dispatch")
	invokeCtx, span := tracer.Start(ctx, "dispatch.invoke",
		trace.WithAttributes(
			attribute.String("vertex.module", target.Module),
			attribute.String("vertex.type", target.Type),
			attribute.String("vertex.method", target.Method),
			attribute.String("execution.id", reporter.ExecutionID()),
		))

	logger.Info("invoking vertex entry point",
		zap.String("module", target.Module),
		zap.String("type", target.Type),
		zap.String("method", target.Method))

	invokeErr := worker.Call(invokeCtx, worker.Target(target.Type, target.Method), entry, worker.Invocation{
		ChannelArgs: target.ChannelArgs,
		Threads:     cfg.Threads(),
		Bridge:      bridge,
		Reporter:    reporter,
		Logger:      logger,
	})

	if invokeErr != nil {
		span.RecordError(invokeErr)
		span.SetStatus(codes.Error, invokeErr.Error())
		span.End()

		// The invocation wrapper is unwrapped exactly one level so the
		// reported value is the worker's own error, not the wrapper; deeper
		// chains stay intact for the diagnostic text.
		reported := invokeErr
		if ie, ok := invokeErr.(*worker.InvokeError); ok && ie.Inner != nil {
			reported = ie.Inner
		}
		return fail(reported)
	}

	span.SetStatus(codes.Ok, "vertex completed")
	span.End()

	logger.Info("vertex completed successfully",
		zap.String("execution_id", reporter.ExecutionID()))
	return 0
}

func loadConfig(opts Options) (Config, error) {
	if opts.Config != nil {
		return *opts.Config, nil
	}
	return FromEnv()
}

// buildReporter assembles the failure reporter with whichever optional sinks
// are configured. A sink that cannot be built is dropped with a warning; the
// local diagnostic file and log never depend on configuration.
func buildReporter(cfg Config, logger *zap.Logger) *report.Reporter {
	rcfg := report.DefaultConfig()
	rcfg.SentryDSN = cfg.SentryDSN
	rcfg.Environment = cfg.Environment

	if cfg.DiagBlobConn != "" {
		mirror, err := storage.NewBlobMirror(cfg.DiagBlobConn, cfg.DiagBlobContainer, cfg.DiagBlobPrefix, logger)
		if err != nil {
			logger.Warn("Failed to build diagnostic mirror, continuing without it", zap.Error(err))
		} else {
			rcfg.Mirror = mirror
		}
	}

	reporter, err := report.NewReporter(rcfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize failure capture, continuing without it", zap.Error(err))
		rcfg.SentryDSN = ""
		reporter, err = report.NewReporter(rcfg, logger)
		if err != nil {
			// Only sentry initialization can fail; without a DSN the
			// constructor is infallible.
			logger.Error("failed to build reporter", zap.Error(err))
			reporter, _ = report.NewReporter(report.DefaultConfig(), logger)
		}
	}
	return reporter
}

// resolve finds the entry point for a target: the registry first, then the
// script module named by the dispatch argument.
func resolve(target Target, reg *worker.Registry, moduleDir string, logger *zap.Logger) (worker.EntryPoint, error) {
	if reg != nil {
		if ep, ok := reg.Resolve(target.Type, target.Method); ok {
			logger.Debug("resolved entry point from registry",
				zap.String("type", target.Type), zap.String("method", target.Method))
			return ep, nil
		}
	}

	mod, err := jsworker.Load(moduleDir, target.Module, logger)
	if err != nil {
		return nil, err
	}
	return mod.Resolve(target.Type, target.Method)
}
