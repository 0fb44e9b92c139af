// Scheduler-side graph mirror (component G). Grounded in
// estee/schedulers/scheduler.py's SchedulerTaskGraph/SchedulerTask/
// SchedulerDataObject and SchedulerBase.assign: a scheduler implementation
// holds its own mirror of workers, tasks and objects, fed exclusively
// through ApplyUpdate, and records placement decisions exclusively through
// Assign — it never mutates kernel state directly, per spec.md §4.6.

package simcore

// WorkerMirror is the scheduler's view of one worker.
type WorkerMirror struct {
	ID   int
	CPUs int
}

// TaskMirror is the scheduler's view of one task.
type TaskMirror struct {
	ID               int
	Inputs           []int
	Outputs          []int
	ExpectedDuration *float64
	CPUs             int
	State            TaskState
	// ScheduledWorker is the worker this scheduler most recently assigned
	// the task to, or nil if never assigned by this scheduler.
	ScheduledWorker *int
	// ComputedBy is the worker the task actually finished running on, or -1
	// until TasksUpdate reports it.
	ComputedBy int
}

// ObjectMirror is the scheduler's view of one data object.
type ObjectMirror struct {
	ID           int
	ExpectedSize *float64
	Size         *float64
	Parent       int
	Consumers    map[int]struct{}
	Placing      map[int]struct{}
	Availability map[int]struct{}
	// Scheduled is the advisory set of workers the scheduler intends to
	// deposit the object on, per spec.md §3.
	Scheduled map[int]struct{}
}

// GraphMirror is the full scheduler-side shadow of the cluster and task
// graph, updated only via ApplyUpdate and mutated only via Assign.
type GraphMirror struct {
	Workers map[int]*WorkerMirror
	Tasks   map[int]*TaskMirror
	Objects map[int]*ObjectMirror

	// NetworkBandwidth is the last bandwidth value observed, or nil if none
	// has been reported yet.
	NetworkBandwidth *float64

	// pendingReplies accumulates this update's Assign calls, keyed by task
	// id so a scheduler reassigning the same task within one update has
	// only its last call take effect, per spec.md §4.2. pendingOrder
	// records each task's first-seen position in this batch, the same way
	// a Python dict (as used by estee's SchedulerBase.assign) remembers
	// first-insertion order even when a later call overwrites the value;
	// Go maps give no such guarantee, so the order has to be tracked
	// explicitly for TakeAssignments to return a deterministic sequence.
	pendingReplies map[int]Assignment
	pendingOrder   []int
}

func NewGraphMirror() *GraphMirror {
	return &GraphMirror{
		Workers:        make(map[int]*WorkerMirror),
		Tasks:          make(map[int]*TaskMirror),
		Objects:        make(map[int]*ObjectMirror),
		pendingReplies: make(map[int]Assignment),
	}
}

// ApplyUpdate folds a kernel-delivered Update into the mirror. The kernel
// calls this (indirectly, via the scheduler's SendMessage implementation)
// before schedule logic runs, so that by the time a scheduler inspects its
// mirror it reflects every entity and state change up to and including this
// update.
func (m *GraphMirror) ApplyUpdate(u *Update) {
	for _, w := range u.NewWorkers {
		m.Workers[w.ID] = &WorkerMirror{ID: w.ID, CPUs: w.CPUs}
	}

	if u.NetworkBandwidth != nil {
		bw := *u.NetworkBandwidth
		m.NetworkBandwidth = &bw
	}

	for _, o := range u.NewObjects {
		m.Objects[o.ID] = &ObjectMirror{
			ID:           o.ID,
			ExpectedSize: o.ExpectedSize,
			Size:         o.Size,
			Parent:       -1,
			Consumers:    make(map[int]struct{}),
			Placing:      make(map[int]struct{}),
			Availability: make(map[int]struct{}),
			Scheduled:    make(map[int]struct{}),
		}
	}

	for _, t := range u.NewTasks {
		tm := &TaskMirror{
			ID:               t.ID,
			Inputs:           t.Inputs,
			Outputs:          t.Outputs,
			ExpectedDuration: t.ExpectedDuration,
			CPUs:             t.CPUs,
			State:            Waiting,
			ComputedBy:       -1,
		}
		m.Tasks[t.ID] = tm
		for _, oid := range t.Outputs {
			if om, ok := m.Objects[oid]; ok {
				om.Parent = t.ID
			}
		}
		for _, oid := range t.Inputs {
			if om, ok := m.Objects[oid]; ok {
				om.Consumers[t.ID] = struct{}{}
			}
		}
	}

	for _, id := range u.NewReadyTasks {
		if tm, ok := m.Tasks[id]; ok {
			tm.State = Ready
		}
	}

	for _, id := range u.NewStartedTasks {
		if tm, ok := m.Tasks[id]; ok && tm.State < Running {
			tm.State = Running
		}
	}

	for _, tu := range u.TasksUpdate {
		if tm, ok := m.Tasks[tu.ID]; ok {
			tm.State = Finished
			tm.ComputedBy = tu.Worker
		}
	}

	for _, ou := range u.ObjectsUpdate {
		om, ok := m.Objects[ou.ID]
		if !ok {
			continue
		}
		om.Placing = toSet(ou.Placing)
		om.Availability = toSet(ou.Availability)
		if ou.Size != nil {
			size := *ou.Size
			om.Size = &size
		}
	}
}

func toSet(ids []int) map[int]struct{} {
	s := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Assign records a placement decision: it mutates the mirror's advisory
// ScheduledWorker/Scheduled sets and enqueues a reply record. worker == nil
// withdraws any pending assignment. Grounded in SchedulerBase.assign, which
// marks both the task's inputs and outputs as scheduled on the destination
// worker (inputs so a scheduler can track which downloads it is counting
// on, outputs so later schedule passes know where this task's results are
// headed). Scheduled marks added by an earlier Assign call for the same task
// are not removed: after a reassignment the objects' Scheduled sets hold
// both workers, and only ScheduledWorker and the queued reply reflect the
// last call alone.
func (m *GraphMirror) Assign(task int, worker *int, priority *int, blocking *int) {
	tm := m.Tasks[task]
	if tm != nil {
		if worker != nil {
			w := *worker
			tm.ScheduledWorker = &w
			if tm.State < Assigned {
				tm.State = Assigned
			}
		} else {
			tm.ScheduledWorker = nil
		}
		if worker != nil {
			for _, oid := range tm.Inputs {
				if om, ok := m.Objects[oid]; ok {
					om.Scheduled[*worker] = struct{}{}
				}
			}
			for _, oid := range tm.Outputs {
				if om, ok := m.Objects[oid]; ok {
					om.Scheduled[*worker] = struct{}{}
				}
			}
		}
	}

	if _, ok := m.pendingReplies[task]; !ok {
		m.pendingOrder = append(m.pendingOrder, task)
	}
	m.pendingReplies[task] = Assignment{
		TaskID:   task,
		WorkerID: worker,
		Priority: priority,
		Blocking: blocking,
	}
}

// TakeAssignments drains and returns the replies accumulated by Assign
// since the last call, in first-assigned order across tasks (the kernel
// applies them in the order returned, per spec.md §4.2, and determinism
// across runs, per spec.md §8 invariant 6, requires that order not depend
// on Go's randomized map iteration). For a single task only the last
// Assign call in this batch is present, matching the map-keyed-by-task
// semantics of SchedulerBase.assign, but the position in the returned
// slice is the task's first Assign call in the batch, matching the
// insertion-order guarantee a Python dict gives that code.
func (m *GraphMirror) TakeAssignments() []Assignment {
	out := make([]Assignment, 0, len(m.pendingOrder))
	for _, task := range m.pendingOrder {
		out = append(out, m.pendingReplies[task])
	}
	m.pendingReplies = make(map[int]Assignment)
	m.pendingOrder = nil
	return out
}
