// Scheduler protocol (component F): the synchronous message boundary
// between the kernel and a pluggable scheduler. Grounded in
// estee/schedulers/scheduler.py's SchedulerInterface/SchedulerBase/Update,
// with the message payloads turned into plain serializable structs (no
// interface{} payloads) so a future out-of-process transport would be a
// pure encoding concern, per spec.md §9.

package simcore

// ProtocolVersion is the integer the register reply must match; a mismatch
// is fatal per spec.md §6.
const ProtocolVersion = 0

// RegisterReply is the scheduler's response to the one-time register
// request delivered at startup.
type RegisterReply struct {
	Name            string
	Version         string
	ProtocolVersion int
	// Reassigning announces whether the scheduler may change a task's
	// assignment after its initial one.
	Reassigning bool
}

// WorkerInfo describes a worker first observed by the scheduler.
type WorkerInfo struct {
	ID   int
	CPUs int
}

// ObjectInfo describes a data object first observed by the scheduler.
type ObjectInfo struct {
	ID           int
	ExpectedSize *float64
	Size         *float64
}

// TaskInfo describes a task first observed by the scheduler.
type TaskInfo struct {
	ID               int
	Inputs           []int
	Outputs          []int
	ExpectedDuration *float64
	CPUs             int
}

// TaskFinishedInfo reports a task that transitioned to Finished since the
// last update.
type TaskFinishedInfo struct {
	ID     int
	Worker int
}

// ObjectUpdateInfo reports a placement/availability change for an object
// already known to the scheduler.
type ObjectUpdateInfo struct {
	ID           int
	Placing      []int
	Availability []int
	Size         *float64
}

// Update is the downward message delivered at every scheduling point,
// carrying every delta since the previous one. Grounded in
// estee/schedulers/scheduler.py's Update, extended with NewStartedTasks and
// ReassignFailed per spec.md §4.2.
type Update struct {
	NewWorkers []WorkerInfo
	// NetworkBandwidth is non-nil only if the bandwidth changed since the
	// last update.
	NetworkBandwidth *float64
	NewObjects       []ObjectInfo
	NewTasks         []TaskInfo
	TasksUpdate      []TaskFinishedInfo
	ObjectsUpdate    []ObjectUpdateInfo
	NewReadyTasks    []int
	// NewStartedTasks is populated only for schedulers that opted into
	// start notifications (see StartNotifier.WantStartNotifications).
	NewStartedTasks []int
	// ReassignFailed lists tasks whose prior reassignment could not be
	// honored because the task had already progressed too far to roll
	// back (spec.md §7, "Recoverable").
	ReassignFailed []int
}

// GraphChanged mirrors Update.graph_changed: whether any new graph entity
// or readiness transition appears in this delta.
func (u *Update) GraphChanged() bool {
	return len(u.NewObjects) > 0 || len(u.NewTasks) > 0 || len(u.NewReadyTasks) > 0
}

// ClusterChanged mirrors Update.cluster_changed: whether any cluster-level
// fact (workers, bandwidth, running/placement state) changed in this delta.
func (u *Update) ClusterChanged() bool {
	return len(u.NewWorkers) > 0 ||
		u.NetworkBandwidth != nil ||
		len(u.TasksUpdate) > 0 ||
		len(u.ObjectsUpdate) > 0 ||
		len(u.NewStartedTasks) > 0 ||
		len(u.ReassignFailed) > 0
}

// Assignment is one entry of the upward (scheduler->simulator) message: a
// placement decision for one task. WorkerID nil means "withdraw any pending
// assignment not yet started". Priority and Blocking are optional; a nil
// pointer distinguishes "not provided" from "explicitly 0".
type Assignment struct {
	TaskID   int
	WorkerID *int
	Priority *int
	Blocking *int
}

// Scheduler is the interface an external scheduling policy implements. The
// kernel never introspects it; for in-process schedulers the message bus is
// a direct method call, and nothing about this interface prevents
// implementing it over IPC instead, per spec.md §9.
type Scheduler interface {
	Start() (RegisterReply, error)
	SendMessage(update *Update) ([]Assignment, error)
	Stop()
}
