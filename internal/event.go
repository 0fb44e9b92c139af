// Event loop (component E) and the Simulator that ties every other
// component together. Grounded structurally in the teacher's
// container/heap-backed Scheduler (internal/scheduler.go, now deleted in
// favor of this file): the same min-heap mechanism orders work by a sort
// key, but where the teacher drives real goroutines off a time.Timer, this
// loop is a single synchronous call stack over simulated time, per spec.md
// §4.5 and §5 ("no wall-clock real-time execution").
//
// Also grounded in schedtk/simulator.py's Simulator/_master_process, whose
// finished-task bookkeeping and scheduling-point cadence this generalizes
// into the full scheduler protocol of spec.md §4.2.

package simcore

import (
	"container/heap"
	"fmt"
	"sort"
)

type eventKind int

const (
	evDownloadEnd eventKind = iota
	evTaskEnd
	evAdmissionCheck
	evTaskStart
	evSchedulerWake
)

// kindPriority encodes the ordering guarantee of spec.md §5.3: within a
// simultaneous group, DownloadEnd -> TaskEnd -> TaskStart -> SchedulerWake.
// evAdmissionCheck (the scheduling_time admission gate elapsing for some
// worker) sits between TaskEnd and TaskStart, since its only externally
// visible effect is to make something eligible to start this same instant.
var kindPriority = map[eventKind]int{
	evDownloadEnd:    0,
	evTaskEnd:        1,
	evAdmissionCheck: 2,
	evTaskStart:      3,
	evSchedulerWake:  4,
}

type event struct {
	time float64
	seq  int
	kind eventKind

	taskID   int
	workerID int
	objectID int

	index int // heap index, maintained by eventHeap.Swap for heap.Remove
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *eventHeap) Push(x any) {
	ev := x.(*event)
	ev.index = len(*h)
	*h = append(*h, ev)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*h = old[:n-1]
	return ev
}

// StartNotifier is implemented by schedulers that opt into receiving
// NewStartedTasks in every Update (spec.md §4.2: "only if the scheduler
// opted into start notifications").
type StartNotifier interface {
	WantStartNotifications() bool
}

// SimulatorOptions carries the constructor knobs of spec.md §6's abstract
// Simulator signature: trace, scheduling_time, min_scheduling_interval,
// plus a purely-reported network bandwidth value (the network model itself
// decides real transfer timing; this is only surfaced to the scheduler in
// Update.NetworkBandwidth, mirroring estee's SchedulerBase.network_bandwidth
// bookkeeping).
type SimulatorOptions struct {
	Trace                 bool
	SchedulingTime        float64
	MinSchedulingInterval float64
	Bandwidth             *float64
}

// SimulatorOptionsFromConfig adapts a YAML-loaded SimulatorConfig (§6.2)
// into constructor options; in-process callers (tests) may instead build
// SimulatorOptions directly without touching YAML at all.
func SimulatorOptionsFromConfig(cfg *SimulatorConfig) *SimulatorOptions {
	if cfg == nil {
		cfg = DefaultSimulatorConfig()
	}
	opts := &SimulatorOptions{
		Trace:                 cfg.Trace,
		SchedulingTime:        cfg.SchedulingTime,
		MinSchedulingInterval: cfg.MinSchedulingInterval,
	}
	if cfg.NetworkConfig != nil && cfg.NetworkConfig.Kind == NETMODEL_KIND_SIMPLE {
		bw := cfg.NetworkConfig.Bandwidth
		opts.Bandwidth = &bw
	}
	return opts
}

// TraceEntry records one mutation for post-mortem inspection when Trace is
// enabled.
type TraceEntry struct {
	Time   float64
	Kind   string
	Detail string
}

var eventLog = NewCompLogger("event")

// Simulator is the discrete-event kernel: it owns the task graph, the
// worker pool, the network model and the scheduler protocol boundary, and
// drives simulated time forward from t=0 until every task is Finished or
// deadlock is detected.
type Simulator struct {
	graph     *TaskGraph
	workers   map[int]*Worker
	workerIDs []int
	scheduler Scheduler
	netmodel  NetModel
	runtime   *RuntimeState

	schedulingTime         float64
	minSchedulingInterval  float64
	bandwidth              *float64
	wantStartNotifications bool

	trace    bool
	TraceLog []TraceEntry

	now    float64
	heap   eventHeap
	seqGen int

	pendingStart map[int]*event // taskID -> its TaskStart event, for cancellation

	reassignFailed []int

	// lastRegisterReassigning caches RegisterReply.Reassigning from Start,
	// since every ApplyAssignments decision needs it.
	lastRegisterReassigning bool
}

// NewSimulator validates the graph and wires up a fresh kernel. Grounded in
// spec.md §6's abstract Simulator(task_graph, workers, scheduler, netmodel,
// ...) signature.
func NewSimulator(graph *TaskGraph, workers []*Worker, scheduler Scheduler, netmodel NetModel, opts *SimulatorOptions) (*Simulator, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &SimulatorOptions{}
	}

	s := &Simulator{
		graph:                 graph,
		workers:               make(map[int]*Worker, len(workers)),
		scheduler:             scheduler,
		netmodel:              netmodel,
		runtime:               NewRuntimeState(graph),
		schedulingTime:        opts.SchedulingTime,
		minSchedulingInterval: opts.MinSchedulingInterval,
		bandwidth:             opts.Bandwidth,
		trace:                 opts.Trace,
		pendingStart:          make(map[int]*event),
	}
	for _, w := range workers {
		s.workers[w.ID] = w
		s.workerIDs = append(s.workerIDs, w.ID)
	}
	sort.Ints(s.workerIDs)
	return s, nil
}

func (s *Simulator) trace_(kind, detail string) {
	if !s.trace {
		return
	}
	s.TraceLog = append(s.TraceLog, TraceEntry{Time: s.now, Kind: kind, Detail: detail})
	eventLog.Debugf("t=%g %s %s", s.now, kind, detail)
}

func (s *Simulator) push(ev *event) *event {
	ev.seq = s.seqGen
	s.seqGen++
	heap.Push(&s.heap, ev)
	return ev
}

// RuntimeState exposes the per-task/per-object runtime records after Run,
// per spec.md §6 ("simulator.runtime_state").
func (s *Simulator) RuntimeState() *RuntimeState { return s.runtime }

// Run drives the simulation to completion, returning the makespan (the
// simulated time at which every task first reaches Finished).
func (s *Simulator) Run() (float64, error) {
	reply, err := s.scheduler.Start()
	if err != nil {
		return 0, err
	}
	if reply.ProtocolVersion != ProtocolVersion {
		return 0, fmt.Errorf("%w: protocol version mismatch: want %d, got %d",
			ErrProtocolViolation, ProtocolVersion, reply.ProtocolVersion)
	}
	s.lastRegisterReassigning = reply.Reassigning
	if sn, ok := s.scheduler.(StartNotifier); ok {
		s.wantStartNotifications = sn.WantStartNotifications()
	}

	if len(s.graph.Tasks) == 0 {
		s.scheduler.Stop()
		return 0, nil
	}

	if err := s.schedulePoint(s.buildInitialUpdate()); err != nil {
		return 0, err
	}

	if s.minSchedulingInterval > 0 {
		s.scheduleWake(s.now + s.minSchedulingInterval)
	}

	for {
		if s.heap.Len() == 0 {
			if s.allFinished() {
				s.scheduler.Stop()
				// Trailing events (a periodic wake, a stale admission
				// check) may have advanced s.now past the last finish.
				makespan := 0.0
				for _, info := range s.runtime.Tasks {
					if *info.EndTime > makespan {
						makespan = *info.EndTime
					}
				}
				return makespan, nil
			}
			return 0, fmt.Errorf("%w", ErrDeadlock)
		}

		t := s.heap[0].time
		s.now = t

		update, err := s.processInstant(t)
		if err != nil {
			return 0, err
		}
		if update != nil {
			if err := s.schedulePoint(update); err != nil {
				return 0, err
			}
		}
	}
}

func (s *Simulator) allFinished() bool {
	for _, info := range s.runtime.Tasks {
		if info.State != Finished {
			return false
		}
	}
	return true
}

// deltaAcc accumulates everything observed during one simultaneous-event
// group, for a single scheduler invocation.
type deltaAcc struct {
	tasksUpdate     []TaskFinishedInfo
	objectsUpdate   map[int]bool // touched objects, re-rendered from runtime at the end
	newReadyTasks   []int
	newStartedTasks []int
}

func newDeltaAcc() *deltaAcc {
	return &deltaAcc{objectsUpdate: make(map[int]bool)}
}

func (d *deltaAcc) empty() bool {
	return len(d.tasksUpdate) == 0 && len(d.objectsUpdate) == 0 &&
		len(d.newReadyTasks) == 0 && len(d.newStartedTasks) == 0
}

// processInstant drains every event at time t, including cascades produced
// while draining (e.g. a zero-duration TaskEnd generated by a TaskStart
// admitted this same instant), applying mutations in kind-priority order
// within each wave, and returns the combined Update to send the scheduler,
// or nil if the group produced no delta and held no SchedulerWake (a
// wake-only group is still forwarded, with an empty delta, so the scheduler
// can rebalance).
func (s *Simulator) processInstant(t float64) (*Update, error) {
	d := newDeltaAcc()
	touchedWorkers := make(map[int]bool)
	sawWake := false

	for s.heap.Len() > 0 && s.heap[0].time == t {
		batch := s.popBatchAt(t)
		for _, ev := range batch {
			switch ev.kind {
			case evDownloadEnd:
				s.handleDownloadEnd(ev, d, touchedWorkers)
			case evTaskEnd:
				s.handleTaskEnd(ev, d, touchedWorkers)
			case evAdmissionCheck:
				touchedWorkers[ev.workerID] = true
			case evTaskStart:
				s.handleTaskStart(ev, d, t)
			case evSchedulerWake:
				sawWake = true
				if s.minSchedulingInterval > 0 && !s.allFinished() {
					s.scheduleWake(t + s.minSchedulingInterval)
				}
			}
		}
		for w := range touchedWorkers {
			s.runAdmission(w, t)
		}
	}

	if d.empty() && !sawWake {
		return nil, nil
	}
	return s.buildDeltaUpdate(d), nil
}

func (s *Simulator) popBatchAt(t float64) []*event {
	var batch []*event
	for s.heap.Len() > 0 && s.heap[0].time == t {
		ev := heap.Pop(&s.heap).(*event)
		batch = append(batch, ev)
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return kindPriority[batch[i].kind] < kindPriority[batch[j].kind]
	})
	return batch
}

func (s *Simulator) scheduleWake(t float64) {
	s.push(&event{time: t, kind: evSchedulerWake})
}

// --- Event handlers ---

func (s *Simulator) handleDownloadEnd(ev *event, d *deltaAcc, touched map[int]bool) {
	w := s.workers[ev.workerID]
	w.EndDownload(ev.objectID)
	w.NotifyArrived(ev.objectID)
	s.netmodel.Deregister(ev.objectID, ev.workerID, s.now)

	obj := s.runtime.Objects[ev.objectID]
	obj.MarkAvailable(ev.workerID)
	d.objectsUpdate[ev.objectID] = true
	touched[ev.workerID] = true

	for _, eta := range s.netmodel.Reschedule(ev.workerID, s.now) {
		s.rescheduleDownloadEnd(eta.Object, ev.workerID, eta.Eta)
	}
	s.trace_("DownloadEnd", fmt.Sprintf("object=%d worker=%d", ev.objectID, ev.workerID))
}

func (s *Simulator) rescheduleDownloadEnd(object, worker int, eta float64) {
	// Downloads are tracked only by (object, worker); there is at most one
	// pending DownloadEnd for that pair, so a linear scan of the heap is
	// acceptable at this scale and avoids a second index purely to support
	// ETA updates.
	for _, ev := range s.heap {
		if ev.kind == evDownloadEnd && ev.objectID == object && ev.workerID == worker {
			ev.time = eta
			heap.Fix(&s.heap, ev.index)
			return
		}
	}
}

func (s *Simulator) handleTaskEnd(ev *event, d *deltaAcc, touched map[int]bool) {
	w := s.workers[ev.workerID]
	w.EndRunning(ev.taskID)
	touched[ev.workerID] = true

	info := s.runtime.Tasks[ev.taskID]
	end := s.now
	info.EndTime = &end
	info.SetState(Finished)

	task := s.graph.Tasks[ev.taskID]
	for _, o := range task.Outputs {
		obj := s.runtime.Objects[o.ID]
		obj.MarkPlaced(ev.workerID)
		d.objectsUpdate[o.ID] = true
		for c := range o.Consumers {
			ci := s.runtime.Tasks[c.ID]
			ci.UnfinishedInputs--
			if ci.UnfinishedInputs == 0 {
				ci.SetState(Ready)
				d.newReadyTasks = append(d.newReadyTasks, c.ID)
			}
		}
	}

	d.tasksUpdate = append(d.tasksUpdate, TaskFinishedInfo{ID: ev.taskID, Worker: ev.workerID})
	s.trace_("TaskEnd", fmt.Sprintf("task=%d worker=%d", ev.taskID, ev.workerID))
}

func (s *Simulator) handleTaskStart(ev *event, d *deltaAcc, t float64) {
	delete(s.pendingStart, ev.taskID)

	info := s.runtime.Tasks[ev.taskID]
	info.SetState(Running)
	start := t
	info.StartTime = &start

	task := s.graph.Tasks[ev.taskID]
	s.push(&event{time: t + task.Duration, kind: evTaskEnd, taskID: ev.taskID, workerID: ev.workerID})

	if s.wantStartNotifications {
		d.newStartedTasks = append(d.newStartedTasks, ev.taskID)
	}
	s.trace_("TaskStart", fmt.Sprintf("task=%d worker=%d", ev.taskID, ev.workerID))
}

// applyOneAssignment applies one scheduler reply immediately: validation,
// reassignment/withdrawal semantics, and download orchestration. The
// placement (and the assigned_workers history it feeds) always takes effect
// the instant the scheduler replies; scheduling_time only delays when the
// resulting pending assignment becomes admission-eligible, via the
// EligibleAt gate set below and enforced in runAdmission.
func (s *Simulator) applyOneAssignment(a Assignment, touched map[int]bool) error {
	if a.TaskID < 0 || a.TaskID >= len(s.graph.Tasks) {
		return fmt.Errorf("%w: assignment references unknown task %d", ErrProtocolViolation, a.TaskID)
	}
	info := s.runtime.Tasks[a.TaskID]
	if info.State == Finished {
		return fmt.Errorf("%w: assignment for already-finished task %d", ErrProtocolViolation, a.TaskID)
	}

	currentWorker := info.CurrentWorker()
	reassigning := s.schedulerReassigns()

	if a.WorkerID == nil {
		// Withdraw any pending assignment not yet started.
		if currentWorker >= 0 {
			if ev, ok := s.pendingStart[a.TaskID]; ok {
				heap.Remove(&s.heap, ev.index)
				delete(s.pendingStart, a.TaskID)
			}
			if w, ok := s.workers[currentWorker]; ok {
				w.Remove(a.TaskID)
			}
		}
		return nil
	}

	targetID := *a.WorkerID
	target, ok := s.workers[targetID]
	if !ok {
		return fmt.Errorf("%w: assignment references unknown worker %d", ErrProtocolViolation, targetID)
	}
	task := s.graph.Tasks[a.TaskID]
	if task.CPUs > target.CPUs {
		return fmt.Errorf("%w: task %d needs %d cpus, worker %d only has %d",
			ErrCPUViolation, a.TaskID, task.CPUs, targetID, target.CPUs)
	}

	if currentWorker >= 0 && currentWorker != targetID {
		if !reassigning {
			return fmt.Errorf("%w: scheduler did not announce reassigning, but reassigned task %d from worker %d to %d",
				ErrProtocolViolation, a.TaskID, currentWorker, targetID)
		}
		if info.State == Running {
			s.reassignFailed = append(s.reassignFailed, a.TaskID)
			return nil
		}
		if ev, ok := s.pendingStart[a.TaskID]; ok {
			heap.Remove(&s.heap, ev.index)
			delete(s.pendingStart, a.TaskID)
		}
		if w, ok := s.workers[currentWorker]; ok {
			w.Remove(a.TaskID)
		}
	} else if currentWorker == targetID {
		// No-op reassignment to the same worker: still append per spec.md
		// §9's open question, resolved in DESIGN.md to "always append".
	}

	priority := 0
	if a.Priority != nil {
		priority = *a.Priority
	}

	eligibleAt := s.now + s.schedulingTime
	pa := s.buildPendingAssignment(a.TaskID, targetID, priority, a.Blocking, eligibleAt)
	info.AssignedWorkers = append(info.AssignedWorkers, targetID)
	if info.AssignTime == nil {
		now := s.now
		info.AssignTime = &now
	}
	info.SetState(Assigned)
	target.Enqueue(pa)
	touched[targetID] = true

	s.startDownloadsFor(pa, target)
	if s.schedulingTime > 0 {
		s.push(&event{time: eligibleAt, kind: evAdmissionCheck, workerID: targetID})
	}
	return nil
}

func (s *Simulator) schedulerReassigns() bool {
	return s.lastRegisterReassigning
}

func (s *Simulator) buildPendingAssignment(taskID, workerID, priority int, blocking *int, eligibleAt float64) *PendingAssignment {
	task := s.graph.Tasks[taskID]

	var missing []int
	for _, o := range task.Inputs {
		obj := s.runtime.Objects[o.ID]
		if !obj.IsAvailableOn(workerID) {
			missing = append(missing, o.ID)
		}
	}

	blockingRequired := len(missing)
	if blocking != nil {
		blockingRequired = *blocking
		if blockingRequired > len(missing) {
			blockingRequired = len(missing) // clamp, per DESIGN.md open-question decision
		}
		if blockingRequired < 0 {
			blockingRequired = 0
		}
	}

	return &PendingAssignment{
		TaskID:           taskID,
		CPUs:             task.CPUs,
		Priority:         priority,
		MissingInputs:    missing,
		BlockingRequired: blockingRequired,
		EligibleAt:       eligibleAt,
	}
}

func (s *Simulator) startDownloadsFor(pa *PendingAssignment, w *Worker) {
	for _, objectID := range pa.MissingInputs {
		obj := s.runtime.Objects[objectID]
		if w.HasDownload(objectID) {
			w.AddWaiter(objectID, pa)
			continue
		}
		source := lowestAvailableWorker(obj)
		if source == w.ID {
			// Degenerate (should not happen: w wouldn't be "missing" it),
			// but guards against a zero-cost same-worker transfer stalling.
			w.NotifyArrived(objectID)
			continue
		}
		size := s.graph.Outputs[objectID].Size
		eta := s.netmodel.Register(objectID, w.ID, size, s.now)
		w.StartDownload(objectID, source)
		w.AddWaiter(objectID, pa)
		s.push(&event{time: eta, kind: evDownloadEnd, objectID: objectID, workerID: w.ID})
		for _, r := range s.netmodel.Reschedule(w.ID, s.now) {
			s.rescheduleDownloadEnd(r.Object, w.ID, r.Eta)
		}
	}
}

func lowestAvailableWorker(obj *ObjectRuntime) int {
	best := -1
	for wid := range obj.Availability {
		if best == -1 || wid < best {
			best = wid
		}
	}
	return best
}

func (s *Simulator) runAdmission(workerID int, t float64) {
	w := s.workers[workerID]
	started := w.SelectStartable(func(pa *PendingAssignment) bool { return pa.Ready() && t >= pa.EligibleAt })
	for _, pa := range started {
		w.StartRunning(pa.TaskID, pa.CPUs)
		ev := s.push(&event{time: t, kind: evTaskStart, taskID: pa.TaskID, workerID: workerID})
		s.pendingStart[pa.TaskID] = ev
	}
}

// --- Scheduler protocol plumbing ---

func (s *Simulator) buildInitialUpdate() *Update {
	u := &Update{}
	for _, wid := range s.workerIDs {
		w := s.workers[wid]
		u.NewWorkers = append(u.NewWorkers, WorkerInfo{ID: w.ID, CPUs: w.CPUs})
	}
	if s.bandwidth != nil {
		bw := *s.bandwidth
		u.NetworkBandwidth = &bw
	}
	for _, o := range s.graph.Outputs {
		u.NewObjects = append(u.NewObjects, ObjectInfo{ID: o.ID, ExpectedSize: o.ExpectedSize})
	}
	for _, t := range s.graph.Tasks {
		u.NewTasks = append(u.NewTasks, taskInfoOf(t))
		if s.runtime.Tasks[t.ID].State == Ready {
			u.NewReadyTasks = append(u.NewReadyTasks, t.ID)
		}
	}
	return u
}

func taskInfoOf(t *Task) TaskInfo {
	inputs := make([]int, len(t.Inputs))
	for i, o := range t.Inputs {
		inputs[i] = o.ID
	}
	outputs := make([]int, len(t.Outputs))
	for i, o := range t.Outputs {
		outputs[i] = o.ID
	}
	return TaskInfo{
		ID:               t.ID,
		Inputs:           inputs,
		Outputs:          outputs,
		ExpectedDuration: t.ExpectedDuration,
		CPUs:             t.CPUs,
	}
}

func (s *Simulator) buildDeltaUpdate(d *deltaAcc) *Update {
	u := &Update{
		TasksUpdate:     d.tasksUpdate,
		NewReadyTasks:   d.newReadyTasks,
		NewStartedTasks: d.newStartedTasks,
	}
	for oid := range d.objectsUpdate {
		obj := s.runtime.Objects[oid]
		// An object only ever enters objectsUpdate once it has been placed
		// (MarkPlaced/MarkAvailable, triggered by its producing task
		// finishing), so its real size is always known by this point;
		// report it the way estee's _process_update propagates ou["size"]
		// into the scheduler's mirror.
		size := s.graph.Outputs[oid].Size
		u.ObjectsUpdate = append(u.ObjectsUpdate, ObjectUpdateInfo{
			ID:           oid,
			Placing:      setToSlice(obj.Placing),
			Availability: setToSlice(obj.Availability),
			Size:         &size,
		})
	}
	sort.Slice(u.ObjectsUpdate, func(i, j int) bool { return u.ObjectsUpdate[i].ID < u.ObjectsUpdate[j].ID })
	sort.Ints(u.NewReadyTasks)
	sort.Slice(u.TasksUpdate, func(i, j int) bool { return u.TasksUpdate[i].ID < u.TasksUpdate[j].ID })

	if len(s.reassignFailed) > 0 {
		u.ReassignFailed = s.reassignFailed
		s.reassignFailed = nil
	}
	return u
}

func setToSlice(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// schedulePoint invokes the scheduler with update and applies its reply,
// per spec.md §4.2's cadence. Grounded in SchedulerBase._process_update.
func (s *Simulator) schedulePoint(update *Update) error {
	assignments, err := s.scheduler.SendMessage(update)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}

	touched := make(map[int]bool)
	for _, a := range assignments {
		if err := s.applyOneAssignment(a, touched); err != nil {
			return err
		}
	}
	// Admission is attempted right away for every touched worker: assignments
	// with schedulingTime == 0 are admission-eligible immediately, and this
	// pass simply finds nothing (yet) for the rest, whose own evAdmissionCheck
	// event (pushed from applyOneAssignment) fires once schedulingTime elapses.
	for w := range touched {
		s.runAdmission(w, s.now)
	}
	return nil
}
