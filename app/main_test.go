package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recorder struct {
	calls []string
}

type fakeServer struct {
	r   *recorder
	err error
}

func (f fakeServer) Shutdown(ctx context.Context) error {
	f.r.calls = append(f.r.calls, "server")
	return f.err
}

type fakeScheduler struct{ r *recorder }

func (f fakeScheduler) Stop() { f.r.calls = append(f.r.calls, "scheduler") }

type fakeStore struct{ r *recorder }

func (f fakeStore) Flush() error {
	f.r.calls = append(f.r.calls, "store")
	return nil
}

func TestShutdownStopsWorkersBeforeFlush(t *testing.T) {
	for _, serverErr := range []error{nil, errors.New("deadline exceeded")} {
		r := &recorder{}
		shutdown(context.Background(), fakeServer{r: r, err: serverErr}, fakeScheduler{r: r}, fakeStore{r: r})

		if got := strings.Join(r.calls, ","); got != "server,scheduler,store" {
			t.Errorf("Expected server,scheduler,store with server error %v, got %s", serverErr, got)
		}
	}
}
