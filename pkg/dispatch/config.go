package dispatch

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix is prepended to every environment variable name, e.g.
// VERTEX_WORKER_THREADS.
const envPrefix = "vertex"

// Config holds the environment-derived settings of the shell. Everything is
// optional: with an empty environment the shell runs with local defaults and
// all integrations disabled.
type Config struct {
	// WorkerThreads overrides the worker thread budget. Kept as a string so
	// an unparsable value falls back to the CPU count instead of refusing to
	// start; the host sets this from job annotations that are not always
	// well-formed.
	WorkerThreads string `envconfig:"WORKER_THREADS"`

	// HostURL is the NATS URL of the native host bridge.
	HostURL string `envconfig:"HOST_URL" default:"nats://127.0.0.1:4222"`

	// HostSubjectPrefix namespaces the host query subjects.
	HostSubjectPrefix string `envconfig:"HOST_SUBJECT_PREFIX" default:"vertex.host"`

	// HealthPort serves the gRPC liveness probe when nonzero.
	HealthPort int `envconfig:"HEALTH_PORT"`

	// OTLPEndpoint enables tracing when non-empty (host:port).
	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`

	// SentryDSN enables failure capture when non-empty.
	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Environment tags traces and captured failures.
	Environment string `envconfig:"ENVIRONMENT" default:"production"`

	// DiagBlobConn enables the diagnostic blob mirror when non-empty.
	DiagBlobConn      string `envconfig:"DIAG_BLOB_CONN"`
	DiagBlobContainer string `envconfig:"DIAG_BLOB_CONTAINER" default:"vertex-diagnostics"`
	DiagBlobPrefix    string `envconfig:"DIAG_BLOB_PREFIX"`
}

// FromEnv loads the configuration from the process environment.
func FromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Threads returns the worker thread budget: the override when it parses as a
// positive integer, the machine CPU count otherwise.
func (c Config) Threads() int {
	if n, err := strconv.Atoi(strings.TrimSpace(c.WorkerThreads)); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
