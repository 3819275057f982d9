package taskq

import (
	"errors"
	"testing"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[string](0)

	for _, v := range []string{"a", "b", "c"} {
		if err := q.Enqueue(v); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", v, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Dequeue()
		if !ok || got != want {
			t.Errorf("Dequeue() = %q/%v, want %q", got, ok, want)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Error("Dequeue() on empty queue = ok, want empty")
	}
}

func TestQueue_CapacityRejectsBeyond(t *testing.T) {
	q := NewQueue[int](2)

	if err := q.Enqueue(1); err != nil {
		t.Fatalf("Enqueue(1) error = %v", err)
	}
	if err := q.Enqueue(2); err != nil {
		t.Fatalf("Enqueue(2) error = %v", err)
	}
	if err := q.Enqueue(3); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue(3) error = %v, want ErrQueueFull", err)
	}

	// Dequeue frees capacity.
	q.Dequeue()
	if err := q.Enqueue(3); err != nil {
		t.Errorf("Enqueue(3) after Dequeue error = %v", err)
	}
}
