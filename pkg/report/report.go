// Package report implements the failure reporting bridge between dynamically
// invoked worker logic and the native host. A Reporter deduplicates repeated
// reports of the same error value, persists each distinct failure to the
// diagnostic file the host collects, and decides whether the process must
// terminate with a failing status.
package report

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDiagnosticPath is the diagnostic file the host collects from the
// vertex working directory.
const DefaultDiagnosticPath = "vertexfailure.txt"

// Outcome is the reporter's verdict on a reported failure.
type Outcome int

const (
	// OutcomeTerminate means the failure was recorded and the process must
	// exit with a failing status.
	OutcomeTerminate Outcome = iota

	// OutcomeSuppressed means the failure was recorded but a sticky error
	// code is set, so the host inspects that code instead of the exit
	// status.
	OutcomeSuppressed

	// OutcomeDuplicate means the error was already reported and the repeat
	// was absorbed.
	OutcomeDuplicate
)

// String implements fmt.Stringer for log output.
func (o Outcome) String() string {
	switch o {
	case OutcomeTerminate:
		return "terminate"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Mirror copies diagnostic artifacts to durable storage.
type Mirror interface {
	// MirrorDiagnostic stores one diagnostic artifact under the given name.
	MirrorDiagnostic(ctx context.Context, name string, data []byte) error
}

// Config holds configuration for the reporter
type Config struct {
	// DiagnosticPath is where the diagnostic file is written. Relative paths
	// resolve against the process working directory.
	DiagnosticPath string

	// SentryDSN enables failure capture to Sentry when non-empty.
	SentryDSN string

	// FlushTimeout bounds the Sentry flush after each capture.
	FlushTimeout time.Duration

	// Mirror, when non-nil, receives a copy of every distinct diagnostic.
	Mirror Mirror

	// Environment tags captured events, e.g. "production".
	Environment string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		DiagnosticPath: DefaultDiagnosticPath,
		FlushTimeout:   2 * time.Second,
	}
}

// Reporter records vertex failures exactly once per distinct error value and
// decides the process fate. It is not safe for concurrent use: the shell
// reports from the single dispatch goroutine, and workers report through the
// same instance before returning.
type Reporter struct {
	logger      *zap.Logger
	diagPath    string
	executionID string

	lastReported error
	reports      int

	errorCode int32
	codeSet   bool

	mirror       Mirror
	sentryClient *sentry.Client
	sentryHub    *sentry.Hub
	flushTimeout time.Duration
}

// NewReporter creates a reporter. Sentry capture and diagnostic mirroring
// stay disabled unless configured.
func NewReporter(config Config, logger *zap.Logger) (*Reporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DiagnosticPath == "" {
		config.DiagnosticPath = DefaultDiagnosticPath
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = DefaultConfig().FlushTimeout
	}

	r := &Reporter{
		logger:       logger,
		diagPath:     config.DiagnosticPath,
		executionID:  uuid.NewString(),
		mirror:       config.Mirror,
		flushTimeout: config.FlushTimeout,
	}

	if config.SentryDSN != "" {
		client, err := sentry.NewClient(sentry.ClientOptions{
			Dsn:         config.SentryDSN,
			Environment: config.Environment,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
		r.sentryClient = client
		r.sentryHub = sentry.NewHub(client, sentry.NewScope())
	}

	return r, nil
}

// ExecutionID identifies this process run in logs and mirrored diagnostics.
func (r *Reporter) ExecutionID() string {
	return r.executionID
}

// SetErrorCode records the sticky external error code. Only the first call
// takes effect; a nonzero code tells the host to inspect the code instead of
// the exit status, so later failures no longer terminate the process.
func (r *Reporter) SetErrorCode(code int32) {
	if r.codeSet {
		r.logger.Debug("error code already set, ignoring",
			zap.Int32("code", code), zap.Int32("current", r.errorCode))
		return
	}
	r.errorCode = code
	r.codeSet = true
	r.logger.Info("vertex error code set", zap.Int32("code", code))
}

// ErrorCode returns the sticky error code, zero when unset.
func (r *Reporter) ErrorCode() int32 {
	return r.errorCode
}

// ShouldTerminate reports the process fate after a failure: true unless a
// sticky nonzero error code redirects the host to the external code. It also
// settles the fate when a report was absorbed as a duplicate of one the
// worker already made.
func (r *Reporter) ShouldTerminate() bool {
	return r.errorCode == 0
}

// Report records one failure. Reporting the same error value again is
// absorbed without logging or rewriting the diagnostic file; the comparison
// is by identity, which catches a worker reporting its own failure before
// the shell reports the unwrapped invocation failure. Errors whose dynamic
// type is uncomparable can never match and are recorded every time. Each
// distinct error produces exactly one log entry and one diagnostic file
// write, the file replacing whatever a previous report left there.
func (r *Reporter) Report(ctx context.Context, err error) Outcome {
	if err == nil {
		r.logger.Warn("nil error reported, absorbing")
		return OutcomeDuplicate
	}
	// Interface equality panics when both sides hold the same uncomparable
	// dynamic type, so gate the comparison the way errors.Is gates targets.
	if reflect.TypeOf(err).Comparable() && err == r.lastReported {
		return OutcomeDuplicate
	}

	r.lastReported = err
	r.reports++

	r.logger.Error("vertex failure",
		zap.Error(err),
		zap.String("execution_id", r.executionID),
		zap.Int("report", r.reports))

	diagnostic := r.renderDiagnostic(err)
	if writeErr := r.writeDiagnostic(diagnostic); writeErr != nil {
		r.logger.Error("failed to write diagnostic file",
			zap.String("path", r.diagPath), zap.Error(writeErr))
	}

	if r.sentryHub != nil {
		r.sentryHub.CaptureException(err)
		r.sentryClient.Flush(r.flushTimeout)
	}

	if r.mirror != nil {
		name := fmt.Sprintf("%s/vertexfailure-%d.txt", r.executionID, r.reports)
		if mirrorErr := r.mirror.MirrorDiagnostic(ctx, name, []byte(diagnostic)); mirrorErr != nil {
			r.logger.Warn("failed to mirror diagnostic",
				zap.String("name", name), zap.Error(mirrorErr))
		}
	}

	if r.errorCode != 0 {
		return OutcomeSuppressed
	}
	return OutcomeTerminate
}

func (r *Reporter) renderDiagnostic(err error) string {
	return fmt.Sprintf("time: %s\nexecution: %s\nreport: %d\nerror: %+v\n",
		time.Now().UTC().Format(time.RFC3339), r.executionID, r.reports, err)
}

// writeDiagnostic replaces the diagnostic file content. The file handle is
// closed on every path, including a failed write.
func (r *Reporter) writeDiagnostic(text string) error {
	f, err := os.Create(r.diagPath)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	_, writeErr := f.WriteString(text)
	closeErr := f.Close()

	if writeErr != nil {
		return fmt.Errorf("write: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close: %w", closeErr)
	}
	return nil
}
