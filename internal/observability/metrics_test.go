package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordActivityOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(activityOperations.WithLabelValues("get", ResultOK))
	errBefore := testutil.ToFloat64(activityOperations.WithLabelValues("get", ResultError))

	RecordActivityOperation("get", nil)
	RecordActivityOperation("get", errors.New("boom"))
	RecordActivityOperation("get", nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(activityOperations.WithLabelValues("get", ResultOK)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(activityOperations.WithLabelValues("get", ResultError)))
}

func TestRecordSchemaMigration(t *testing.T) {
	before := testutil.ToFloat64(schemaMigrations.WithLabelValues(ResultNoop))
	RecordSchemaMigration(ResultNoop)
	assert.Equal(t, before+1, testutil.ToFloat64(schemaMigrations.WithLabelValues(ResultNoop)))
}

func TestRecordLoginAttempt(t *testing.T) {
	before := testutil.ToFloat64(loginAttempts.WithLabelValues("rate_limited"))
	RecordLoginAttempt("rate_limited")
	assert.Equal(t, before+1, testutil.ToFloat64(loginAttempts.WithLabelValues("rate_limited")))
}

func TestCountersExposedByDefaultGatherer(t *testing.T) {
	RecordSchemaMigration(ResultOK)
	RecordActivityOperation("list", nil)
	RecordLoginAttempt(ResultOK)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"nabzkeeper_schema_migrations_total",
		"nabzkeeper_activity_operations_total",
		"nabzkeeper_auth_login_attempts_total",
	} {
		assert.True(t, names[want], "%s not gathered", want)
	}
}
