package mqttsn

import "testing"

// Invariant 5 (spec.md §8): the task-id counter is monotone within a
// session and resets to 0 the moment the queue drains empty.
func TestQueueTaskIDMonotoneResetOnEmpty(t *testing.T) {
	q := NewQueue(4)

	t1, err := q.Push(Task{Kind: TaskConnect})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	t2, err := q.Push(Task{Kind: TaskRegister})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if t1.TaskID != 0 || t2.TaskID != 1 {
		t.Fatalf("expected monotone ids 0,1 got %d,%d", t1.TaskID, t2.TaskID)
	}

	if _, ok := q.PopHead(); !ok {
		t.Fatal("expected a task to pop")
	}
	if _, ok := q.PopHead(); !ok {
		t.Fatal("expected a second task to pop")
	}
	if !q.Empty() {
		t.Fatal("expected queue empty after popping both tasks")
	}

	t3, err := q.Push(Task{Kind: TaskConnect})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if t3.TaskID != 0 {
		t.Fatalf("expected id counter reset to 0 once queue drained empty, got %d", t3.TaskID)
	}
}

func TestQueueFullRejectsPush(t *testing.T) {
	q := NewQueue(2)
	if _, err := q.Push(Task{Kind: TaskConnect}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := q.Push(Task{Kind: TaskRegister}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := q.Push(Task{Kind: TaskRegister}); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestQueueResetDrainsAndResetsCounter(t *testing.T) {
	q := NewQueue(4)
	q.Push(Task{Kind: TaskConnect})
	q.Push(Task{Kind: TaskRegister})

	q.Reset()

	if !q.Empty() {
		t.Fatal("expected queue empty after Reset")
	}
	t1, err := q.Push(Task{Kind: TaskConnect})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if t1.TaskID != 0 {
		t.Fatalf("expected id counter reset by Reset(), got %d", t1.TaskID)
	}
}
