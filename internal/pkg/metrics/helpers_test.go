package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifyDBError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{errors.New(`pq: duplicate key value violates unique constraint "users_userslug_key"`), "duplicate"},
		{errors.New("sql: no rows in result set"), "not_found"},
		{errors.New("redis: nil"), "not_found"},
		{errors.New("context deadline exceeded"), "timeout"},
		{errors.New("dial tcp: connection refused"), "connection"},
		{errors.New("violates check constraint"), "constraint"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		if got := classifyDBError(tt.err); got != tt.want {
			t.Errorf("classifyDBError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRecordDBOperationCounts(t *testing.T) {
	before := testutil.ToFloat64(DBOperations.WithLabelValues("test_repo", "put", "error"))

	RecordDBOperation("test_repo", "put", time.Millisecond, 1, errors.New("connection reset"))

	after := testutil.ToFloat64(DBOperations.WithLabelValues("test_repo", "put", "error"))
	if after-before != 1 {
		t.Errorf("error counter delta = %v, want 1", after-before)
	}
	if got := testutil.ToFloat64(DBErrors.WithLabelValues("test_repo", "put", "connection")); got < 1 {
		t.Errorf("DBErrors[connection] = %v, want >= 1", got)
	}
}
