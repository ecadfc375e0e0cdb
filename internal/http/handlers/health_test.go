package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/techdiscoveria/discoveria/internal/http/handlers"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		ping       pingFunc
		wantStatus int
	}{
		{name: "store up", ping: func(ctx context.Context) error { return nil }, wantStatus: http.StatusOK},
		{name: "store down", ping: func(ctx context.Context) error { return errors.New("no route") }, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.ping)
			r := setupRouter(http.MethodGet, "/readyz", h.Readyz)

			w := doRequest(r, http.MethodGet, "/readyz", "", "")

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestRoot(t *testing.T) {
	h := handlers.NewHealthHandler(nil)
	r := setupRouter(http.MethodGet, "/", h.Root)

	w := doRequest(r, http.MethodGet, "/", "", "")

	if w.Code != http.StatusOK || w.Body.String() != handlers.RootMessage {
		t.Fatalf("unexpected root response %d %q", w.Code, w.Body.String())
	}
}
