package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/op"
)

func TestWorkspaceOpenGetClose(t *testing.T) {
	w := NewWorkspace()
	base := ageFrame(t)

	s, err := w.Open("trips", base, Eager, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, ok := w.Get("trips")
	if !ok || got != s {
		t.Fatal("Get did not return the opened session")
	}

	if _, err := w.Open("trips", base, Eager, nil); err == nil {
		t.Error("duplicate name accepted")
	}

	if !w.Close("trips") {
		t.Error("Close reported missing session")
	}
	if _, ok := w.Get("trips"); ok {
		t.Error("session still present after close")
	}
	if w.Close("trips") {
		t.Error("double close reported success")
	}
}

func TestWorkspaceSessionLimit(t *testing.T) {
	w := NewWorkspace()
	base := ageFrame(t)
	for i := 0; i < MaxSessions; i++ {
		if _, err := w.Open(fmt.Sprintf("ds%d", i), base, Lazy, nil); err != nil {
			t.Fatalf("Open %d: %v", i, err)
		}
	}
	if _, err := w.Open("overflow", base, Lazy, nil); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("err = %v, want ErrTooManySessions", err)
	}
}

func TestOpenSourceCollectsDeferredScan(t *testing.T) {
	w := NewWorkspace()
	collects := 0
	src := frame.SourceFunc(func(ctx context.Context) (*frame.Frame, error) {
		collects++
		return ageFrame(t), nil
	})

	if collects != 0 {
		t.Fatal("source read before open")
	}
	s, err := w.OpenSource(context.Background(), "trips", src, Lazy, nil)
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	if collects != 1 {
		t.Errorf("collects = %d, want 1", collects)
	}
	if s.Frame().NumRows() != 3 {
		t.Errorf("rows = %d, want 3", s.Frame().NumRows())
	}
}

func TestOpenSourceCollectFailureLeavesWorkspaceEmpty(t *testing.T) {
	w := NewWorkspace()
	src := frame.SourceFunc(func(ctx context.Context) (*frame.Frame, error) {
		return nil, errors.New("scan failed")
	})

	if _, err := w.OpenSource(context.Background(), "trips", src, Lazy, nil); err == nil {
		t.Fatal("expected collect error")
	}
	if w.Len() != 0 {
		t.Errorf("Len = %d, want 0", w.Len())
	}
}

func TestWorkspaceSessionsAreIndependent(t *testing.T) {
	w := NewWorkspace()
	a, _ := w.Open("a", ageFrame(t), Eager, nil)
	b, _ := w.Open("b", ageFrame(t), Lazy, nil)

	submitOp(t, a, op.FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"})
	a.Wait()

	if a.Frame().NumRows() != 2 {
		t.Errorf("a rows = %d, want 2", a.Frame().NumRows())
	}
	if b.Frame().NumRows() != 3 {
		t.Errorf("b rows = %d, want 3 (untouched)", b.Frame().NumRows())
	}
	if len(b.Entries()) != 0 {
		t.Error("operation leaked into the other session")
	}
}
