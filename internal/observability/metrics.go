// Package observability holds the Prometheus counters recorded by the schema,
// activity and auth layers. They live in the default registry; the process
// embedding the services exposes it (for example with promhttp.Handler).
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultNoop  = "noop"
)

var (
	schemaMigrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nabzkeeper",
		Subsystem: "schema",
		Name:      "migrations_total",
		Help:      "Legacy-to-current activities table migrations by outcome.",
	}, []string{"result"})

	activityOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nabzkeeper",
		Subsystem: "activity",
		Name:      "operations_total",
		Help:      "Activity repository operations by kind and outcome.",
	}, []string{"op", "result"})

	loginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nabzkeeper",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome (ok, invalid, rate_limited, error).",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(schemaMigrations, activityOperations, loginAttempts)
}

// RecordSchemaMigration counts one migration attempt.
func RecordSchemaMigration(result string) {
	schemaMigrations.WithLabelValues(result).Inc()
}

// RecordActivityOperation counts one repository operation; err decides the
// result label.
func RecordActivityOperation(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	activityOperations.WithLabelValues(op, result).Inc()
}

// RecordLoginAttempt counts one login attempt.
func RecordLoginAttempt(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// SchemaMigrationsCounter exposes the migration counter for one result.
func SchemaMigrationsCounter(result string) prometheus.Counter {
	return schemaMigrations.WithLabelValues(result)
}
