package simcore

import "testing"

func alwaysReady(pa *PendingAssignment) bool { return true }

// S2 from spec.md §8: A(dur=3,cpus=1), B(dur=1,cpus=2), C(dur=1,cpus=1),
// D(dur=1,cpus=3), E(dur=1,cpus=1), F(dur=1,cpus=1), no dependencies, one
// worker with cpus=3. On the first admission pass, in priority order, A and
// B fit (1+2 = 3) and the rest do not: this test exercises the core "skip
// without blocking" rule directly.
func TestWorkerSelectStartableSkipsNonFittingWithoutBlocking(t *testing.T) {
	w := NewWorker(0, 3)
	w.Enqueue(&PendingAssignment{TaskID: 0, CPUs: 1, Priority: 5})
	w.Enqueue(&PendingAssignment{TaskID: 1, CPUs: 2, Priority: 4})
	w.Enqueue(&PendingAssignment{TaskID: 2, CPUs: 1, Priority: 3})
	w.Enqueue(&PendingAssignment{TaskID: 3, CPUs: 3, Priority: 2})
	w.Enqueue(&PendingAssignment{TaskID: 4, CPUs: 1, Priority: 1})
	w.Enqueue(&PendingAssignment{TaskID: 5, CPUs: 1, Priority: 0})

	started := w.SelectStartable(alwaysReady)

	// free=3: task0(cpus1) fits (free->2), task1(cpus2) fits (free->0),
	// task2(cpus1) doesn't fit (free=0) but is skipped without blocking,
	// task3(cpus3) doesn't fit either, task4(cpus1) doesn't fit, task5
	// doesn't fit. Only 0 and 1 start.
	if len(started) != 2 || started[0].TaskID != 0 || started[1].TaskID != 1 {
		t.Fatalf("started: want [0,1], got %v", ids(started))
	}
	if remaining := ids(pending(w)); len(remaining) != 4 {
		t.Fatalf("remaining queue: want 4 left, got %v", remaining)
	}
}

func pending(w *Worker) []*PendingAssignment { return w.queue }

func ids(pas []*PendingAssignment) []int {
	out := make([]int, len(pas))
	for i, pa := range pas {
		out[i] = pa.TaskID
	}
	return out
}

func TestWorkerEnqueueOrdersByPriorityThenInsertion(t *testing.T) {
	w := NewWorker(0, 10)
	w.Enqueue(&PendingAssignment{TaskID: 0, Priority: 1})
	w.Enqueue(&PendingAssignment{TaskID: 1, Priority: 5})
	w.Enqueue(&PendingAssignment{TaskID: 2, Priority: 5})
	w.Enqueue(&PendingAssignment{TaskID: 3, Priority: 3})

	got := ids(w.queue)
	want := []int{1, 2, 3, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queue order: want %v, got %v", want, got)
		}
	}
}

func TestWorkerRemoveCancelsPending(t *testing.T) {
	w := NewWorker(0, 10)
	w.Enqueue(&PendingAssignment{TaskID: 0, Priority: 1})
	w.Enqueue(&PendingAssignment{TaskID: 1, Priority: 2})

	removed := w.Remove(0)
	if removed == nil || removed.TaskID != 0 {
		t.Fatalf("Remove: want task 0, got %v", removed)
	}
	if len(w.queue) != 1 || w.queue[0].TaskID != 1 {
		t.Fatalf("queue after remove: want [1], got %v", ids(w.queue))
	}
	if w.Remove(99) != nil {
		t.Fatal("Remove: want nil for unknown task id")
	}
}

func TestWorkerFreeCPUsAccountsRunning(t *testing.T) {
	w := NewWorker(0, 4)
	if w.FreeCPUs() != 4 {
		t.Fatalf("FreeCPUs: want 4, got %d", w.FreeCPUs())
	}
	w.StartRunning(0, 3)
	if w.FreeCPUs() != 1 {
		t.Fatalf("FreeCPUs after start: want 1, got %d", w.FreeCPUs())
	}
	w.EndRunning(0)
	if w.FreeCPUs() != 4 {
		t.Fatalf("FreeCPUs after end: want 4, got %d", w.FreeCPUs())
	}
}

func TestWorkerDownloadsTracking(t *testing.T) {
	w := NewWorker(0, 4)
	if w.HasDownload(7) {
		t.Fatal("HasDownload: want false before start")
	}
	w.StartDownload(7, 2)
	if !w.HasDownload(7) {
		t.Fatal("HasDownload: want true after start")
	}
	w.EndDownload(7)
	if w.HasDownload(7) {
		t.Fatal("HasDownload: want false after end")
	}
}
