// Worker runtime (component C): CPU admission and the per-worker pending
// assignment queue. Grounded in spec.md §4.3 and, structurally, in the
// teacher's container/heap-backed Scheduler type (internal/scheduler.go):
// there the heap orders pending periodic tasks by next-run time; here the
// queue orders pending task assignments by scheduler-given priority, a
// stable priority queue keyed by (-priority, insertion_order) per spec.md
// §9. It is kept as a priority-sorted slice rather than a heap.Interface
// type because admission must scan the whole queue on every pass (skip a
// non-fitting task without blocking lower-priority ones), not just peek at
// the head.

package simcore

import "sort"

// PendingAssignment is one task assigned to a worker but not yet started.
type PendingAssignment struct {
	TaskID   int
	CPUs     int
	Priority int

	// MissingInputs are the input object ids not already available on this
	// worker at assignment time; the worker must download each of them.
	MissingInputs []int
	// BlockingRequired is how many of MissingInputs must complete before
	// the task is admission-eligible (spec.md §4.3's "blocking" hint);
	// equal to len(MissingInputs) when the scheduler did not specify one
	// (strict wait-for-all).
	BlockingRequired int
	// ArrivedCount counts how many of MissingInputs have completed.
	ArrivedCount int
	// EligibleAt is the simulated time at or after which this assignment may
	// be admitted, modeling scheduler decision latency (spec.md §6's
	// scheduling_time): set to the assignment time plus scheduling_time, so
	// admission immediately follows assignment when scheduling_time is 0.
	EligibleAt float64

	// seq breaks priority ties by assignment order, ascending.
	seq int
}

// Ready reports whether enough of the assignment's blocking downloads have
// completed for admission to consider it (spec.md §4.3 condition 1).
func (pa *PendingAssignment) Ready() bool {
	return pa.ArrivedCount >= pa.BlockingRequired
}

// Worker is the kernel's runtime view of one cluster node: its CPU
// capacity, the tasks currently running on it, and the queue of tasks
// assigned but not yet admitted to run.
type Worker struct {
	ID   int
	CPUs int

	// running maps a running task id to the cpus it holds.
	running map[int]int

	queue []*PendingAssignment
	seq   int

	// downloads maps an in-flight download's object id to its source worker.
	downloads map[int]int

	// waiters maps an in-flight download's object id to the pending
	// assignments counting it toward their BlockingRequired.
	waiters map[int][]*PendingAssignment
}

func NewWorker(id, cpus int) *Worker {
	return &Worker{
		ID:        id,
		CPUs:      cpus,
		running:   make(map[int]int),
		downloads: make(map[int]int),
		waiters:   make(map[int][]*PendingAssignment),
	}
}

// AddWaiter registers pa as counting object's completion toward its
// BlockingRequired.
func (w *Worker) AddWaiter(object int, pa *PendingAssignment) {
	w.waiters[object] = append(w.waiters[object], pa)
}

// NotifyArrived bumps ArrivedCount on every assignment waiting on object and
// clears the waiter list for it.
func (w *Worker) NotifyArrived(object int) {
	for _, pa := range w.waiters[object] {
		pa.ArrivedCount++
	}
	delete(w.waiters, object)
}

// FreeCPUs returns the capacity not currently held by running tasks.
func (w *Worker) FreeCPUs() int {
	used := 0
	for _, c := range w.running {
		used += c
	}
	return w.CPUs - used
}

// Enqueue inserts a pending assignment, keeping the queue sorted by
// descending priority and, for ties, ascending insertion order.
func (w *Worker) Enqueue(pa *PendingAssignment) {
	pa.seq = w.seq
	w.seq++
	i := sort.Search(len(w.queue), func(i int) bool {
		return less(pa, w.queue[i])
	})
	w.queue = append(w.queue, nil)
	copy(w.queue[i+1:], w.queue[i:])
	w.queue[i] = pa
}

func less(a, b *PendingAssignment) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.seq < b.seq
}

// Remove drops a pending (not yet started) assignment for taskID, if any,
// returning it. Used for reassignment cancellation (spec.md §5).
func (w *Worker) Remove(taskID int) *PendingAssignment {
	for i, pa := range w.queue {
		if pa.TaskID == taskID {
			w.queue = append(w.queue[:i], w.queue[i+1:]...)
			return pa
		}
	}
	return nil
}

// StartRunning moves taskID from pending/external assignment into the
// running set, holding cpus against the worker's capacity.
func (w *Worker) StartRunning(taskID, cpus int) {
	w.running[taskID] = cpus
}

// EndRunning frees the cpus held by a finished task.
func (w *Worker) EndRunning(taskID int) {
	delete(w.running, taskID)
}

// StartDownload records a new in-flight download of object from source.
func (w *Worker) StartDownload(object, source int) {
	w.downloads[object] = source
}

// EndDownload clears a completed (or cancelled) download.
func (w *Worker) EndDownload(object int) {
	delete(w.downloads, object)
}

// HasDownload reports whether object is currently being fetched by this
// worker.
func (w *Worker) HasDownload(object int) bool {
	_, ok := w.downloads[object]
	return ok
}

// SelectStartable scans the queue in priority order and admits every
// pending assignment that (a) is input-ready per isReady and (b) fits in
// the CPU budget remaining after every higher-priority admission in this
// same pass. A task that does not fit is skipped without blocking
// lower-priority tasks from being considered, per spec.md §4.3's admission
// rule. Admitted assignments are removed from the queue and returned in
// admission order.
func (w *Worker) SelectStartable(isReady func(pa *PendingAssignment) bool) []*PendingAssignment {
	free := w.FreeCPUs()
	var started []*PendingAssignment
	remaining := w.queue[:0:0]
	for _, pa := range w.queue {
		if pa.CPUs <= free && isReady(pa) {
			started = append(started, pa)
			free -= pa.CPUs
		} else {
			remaining = append(remaining, pa)
		}
	}
	w.queue = remaining
	return started
}
