package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"pg unique", &pgconn.PgError{Code: "23505"}, "unique_violation"},
		{"pg wrapped deadlock", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "40P01"}), "deadlock"},
		{"pg other", &pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{"deadline", fmt.Errorf("find: %w", context.DeadlineExceeded), "timeout"},
		{"connection text", errors.New("connection refused"), "connection"},
		{"unknown", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDBErr(tt.err); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("users.get_by_email", func() error { return nil })
	err := p.ObserveDB("users.get_by_email", func() error { return errors.New("boom") })

	if err == nil {
		t.Fatalf("expected error to be passed through")
	}

	got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.get_by_email", "unknown"))
	if got != 1 {
		t.Fatalf("errors_total got %v, want 1", got)
	}
}

func TestNilPromHelpers(t *testing.T) {
	var p *Prom
	p.IncPaymentIntent("ok")
	p.IncMembershipUpgrade("inline", "applied")
}
