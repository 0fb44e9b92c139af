// Runtime state (component D): per-task and per-object mutable state the
// kernel maintains across the run. Grounded in schedtk/simulator.py's
// TaskState enum and TaskRuntimeInfo, generalized from the single-master-
// process simulator there into the richer scheduler-protocol model of
// spec.md §3-§4.3.

package simcore

import "fmt"

// TaskState is the closed set of states a task passes through, encoded as a
// tagged enumeration with the transition graph enforced by SetState rather
// than by ad hoc field mutation, per spec.md §9 ("State as tagged
// variants").
type TaskState int

const (
	Waiting TaskState = iota
	Ready
	Assigned
	Running
	Finished
)

var taskStateNames = map[TaskState]string{
	Waiting:  "Waiting",
	Ready:    "Ready",
	Assigned: "Assigned",
	Running:  "Running",
	Finished: "Finished",
}

func (s TaskState) String() string {
	if name, ok := taskStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TaskState(%d)", int(s))
}

// TaskRuntimeInfo is the kernel's mutable per-task record, per spec.md §3.
type TaskRuntimeInfo struct {
	State TaskState

	// AssignedWorkers is an append-only history; the "current" worker is the
	// last entry, or -1 if never assigned.
	AssignedWorkers []int

	AssignTime *float64
	StartTime  *float64
	EndTime    *float64

	// UnfinishedInputs counts down from len(inputs) to zero; the task
	// becomes Ready exactly when it first reaches zero.
	UnfinishedInputs int
}

func newTaskRuntimeInfo(unfinishedInputs int) *TaskRuntimeInfo {
	return &TaskRuntimeInfo{
		State:            Waiting,
		UnfinishedInputs: unfinishedInputs,
	}
}

// CurrentWorker returns the task's current worker id, or -1 if it has never
// been assigned.
func (info *TaskRuntimeInfo) CurrentWorker() int {
	if len(info.AssignedWorkers) == 0 {
		return -1
	}
	return info.AssignedWorkers[len(info.AssignedWorkers)-1]
}

var taskStateRank = map[TaskState]int{
	Waiting:  0,
	Ready:    1,
	Assigned: 2,
	Running:  3,
	Finished: 4,
}

// SetState enforces that state only moves forward (Waiting -> Ready ->
// Assigned -> Running -> Finished); a same-state call is a no-op, a regression
// is a programming error in the caller and is reported rather than silently
// applied.
func (info *TaskRuntimeInfo) SetState(to TaskState) error {
	if taskStateRank[to] < taskStateRank[info.State] {
		return fmt.Errorf(
			"%w: illegal task state transition %s -> %s",
			ErrGraphInvariant, info.State, to,
		)
	}
	info.State = to
	return nil
}

// ObjectRuntime is the kernel's mutable per-object record, per spec.md §3:
// Placing is where the object physically exists, Availability is Placing
// plus workers whose inbound transfer has completed, Scheduled is the
// advisory set of workers a scheduler intends to deposit the object on
// (used for reassignment recovery, never read by the kernel to make
// placement decisions on its own).
type ObjectRuntime struct {
	Placing      map[int]struct{}
	Availability map[int]struct{}
	Scheduled    map[int]struct{}
}

func newObjectRuntime() *ObjectRuntime {
	return &ObjectRuntime{
		Placing:      make(map[int]struct{}),
		Availability: make(map[int]struct{}),
		Scheduled:    make(map[int]struct{}),
	}
}

// MarkPlaced records that worker now physically holds the object: it joins
// both Placing and Availability. The kernel is the sole mutator of these two
// sets, per spec.md §5.
func (rt *ObjectRuntime) MarkPlaced(worker int) {
	rt.Placing[worker] = struct{}{}
	rt.Availability[worker] = struct{}{}
}

// MarkAvailable records that a transfer landed a copy on worker without the
// worker being the producer. The worker joins both Availability and
// Placing, since a completed transfer leaves a full physical copy; the two
// sets are kept as separate fields per spec.md's glossary note for future
// partial-replication extensions.
func (rt *ObjectRuntime) MarkAvailable(worker int) {
	rt.Availability[worker] = struct{}{}
	rt.Placing[worker] = struct{}{}
}

func (rt *ObjectRuntime) IsAvailableOn(worker int) bool {
	_, ok := rt.Availability[worker]
	return ok
}

// RuntimeState aggregates every task's and object's runtime record, keyed
// by dense id exactly as the graph assigns them.
type RuntimeState struct {
	Tasks   []*TaskRuntimeInfo
	Objects []*ObjectRuntime
}

// NewRuntimeState builds the initial runtime state for g: every task starts
// Waiting with UnfinishedInputs = len(inputs), promoted to Ready immediately
// below if it is a source task (spec.md invariant 3: "a task becomes Ready
// exactly when unfinished_inputs first reaches zero").
func NewRuntimeState(g *TaskGraph) *RuntimeState {
	rs := &RuntimeState{
		Tasks:   make([]*TaskRuntimeInfo, len(g.Tasks)),
		Objects: make([]*ObjectRuntime, len(g.Outputs)),
	}
	for _, t := range g.Tasks {
		info := newTaskRuntimeInfo(len(t.Inputs))
		if info.UnfinishedInputs == 0 {
			info.State = Ready
		}
		rs.Tasks[t.ID] = info
	}
	for _, o := range g.Outputs {
		rs.Objects[o.ID] = newObjectRuntime()
	}
	return rs
}
