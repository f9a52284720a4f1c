package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubNotifier struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubNotifier) ID() string   { return s.id }
func (s *stubNotifier) Type() string { return s.typ }
func (s *stubNotifier) Notify(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubNotifier) Close() error {
	s.closed = true
	return nil
}

func TestFanoutAggregatesErrors(t *testing.T) {
	ok := &stubNotifier{id: "ok", typ: TypeHTTP}
	bad := &stubNotifier{id: "bad", typ: TypeSQS, err: errors.New("unreachable")}
	fanout := NewFanout([]Notifier{ok, nil, bad})

	if fanout.Size() != 2 {
		t.Fatalf("nil notifiers should be skipped, size = %d", fanout.Size())
	}

	delivered, err := fanout.Notify(context.Background(), sampleEvent())
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if err == nil || !strings.Contains(err.Error(), "sqs notifier[bad]") {
		t.Fatalf("expected aggregated error naming the notifier, got %v", err)
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("every notifier should be called once")
	}
}

func TestNilFanoutIsNoop(t *testing.T) {
	var f *Fanout
	if n, err := f.Notify(context.Background(), Event{}); n != 0 || err != nil {
		t.Fatalf("nil fanout: %d %v", n, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBuildAllAppliesStateFilter(t *testing.T) {
	stub := &stubNotifier{id: "failures", typ: "stub"}
	reg := NewRegistry(map[string]Builder{
		"stub": func(context.Context, NotifierConfig, Logger) (Notifier, error) { return stub, nil },
	})

	built, err := BuildAll(context.Background(), reg, []NotifierConfig{
		{ID: "failures", Type: "stub", States: []string{"failed"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	fanout := NewFanout(built)

	done := sampleEvent()
	if _, err := fanout.Notify(context.Background(), done); err != nil {
		t.Fatalf("notify done: %v", err)
	}
	failed := sampleEvent()
	failed.State = "failed"
	if _, err := fanout.Notify(context.Background(), failed); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("only the failed event should pass the filter, calls = %d", stub.calls)
	}

	if err := fanout.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !stub.closed {
		t.Fatalf("close should reach the wrapped notifier")
	}
}

func TestBuildAllUnknownTypeClosesBuilt(t *testing.T) {
	stub := &stubNotifier{id: "a", typ: "stub"}
	reg := NewRegistry(map[string]Builder{
		"stub": func(context.Context, NotifierConfig, Logger) (Notifier, error) { return stub, nil },
	})

	_, err := BuildAll(context.Background(), reg, []NotifierConfig{
		{ID: "a", Type: "stub"},
		{ID: "b", Type: "carrier-pigeon"},
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
	if !stub.closed {
		t.Fatalf("already built notifiers should be closed on failure")
	}
}
