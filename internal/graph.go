// Task graph model and validation (component A).
//
// Grounded in schedsim/common/task.py and schedsim/common/taskgraph.py: a
// Task owns an ordered list of input DataObjects and an ordered tuple of
// output DataObjects it produces; a DataObject knows its single producing
// Task and the set of Tasks that consume it. The graph assigns dense,
// insertion-order ids to both kinds of entity, exactly as TaskGraph.new_task
// does in the original.

package simcore

import (
	"fmt"
	"sort"

	"github.com/huandu/go-clone"
)

// DataObject is produced by exactly one task and may be read by any number
// of others. Size is the real payload size; ExpectedSize is the hint handed
// to schedulers and may be nil if the graph builder did not set one.
type DataObject struct {
	ID           int
	Parent       *Task
	Size         float64
	ExpectedSize *float64
	Consumers    map[*Task]struct{}
}

func newDataObject(size float64, expectedSize *float64) *DataObject {
	return &DataObject{
		Size:         size,
		ExpectedSize: expectedSize,
		Consumers:    make(map[*Task]struct{}),
	}
}

// OutputSpec describes one output to create for a new task.
type OutputSpec struct {
	Size         float64
	ExpectedSize *float64
}

// Task is a computational unit: duration of CPU work, CPU demand, an
// ordered list of inputs it reads and an ordered tuple of outputs it
// produces.
type Task struct {
	ID                int
	Name              string
	Duration          float64
	ExpectedDuration  *float64
	CPUs              int
	Inputs            []*DataObject
	Outputs           []*DataObject
}

// TaskSpec is the argument to TaskGraph.NewTask: Go has no keyword
// arguments, so the Python constructor's optional-parameter surface
// (schedsim/common/task.py's Task.__init__) becomes a plain struct.
type TaskSpec struct {
	Name             string
	Duration         float64
	ExpectedDuration *float64
	CPUs             int
	Outputs          []OutputSpec
}

// Label mirrors Task.label: the name if set, else "id=<id>".
func (t *Task) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("id=%d", t.ID)
}

// IsLeaf reports whether no other task consumes any of this task's outputs.
func (t *Task) IsLeaf() bool {
	for _, o := range t.Outputs {
		if len(o.Consumers) > 0 {
			return false
		}
	}
	return true
}

// IsPredecessorOf reports whether t is a (possibly indirect) predecessor of
// other, i.e. other depends transitively on one of t's outputs. Used by
// validation to reject self-cycles.
func (t *Task) IsPredecessorOf(other *Task) bool {
	visited := make(map[*Task]struct{})
	explore := []*Task{t}
	for len(explore) > 0 {
		var next []*Task
		for _, cur := range explore {
			for _, o := range cur.Outputs {
				for c := range o.Consumers {
					if _, seen := visited[c]; seen {
						continue
					}
					if c == other {
						return true
					}
					visited[c] = struct{}{}
					next = append(next, c)
				}
			}
		}
		explore = next
	}
	return false
}

// TaskGraph owns every Task and DataObject in a computation and assigns
// stable dense ids to both on insertion, per spec.md §3.
type TaskGraph struct {
	Tasks   []*Task
	Outputs []*DataObject
}

func NewTaskGraph() *TaskGraph {
	return &TaskGraph{}
}

// NewTask adds a new task to the graph, assigning it and its outputs dense
// ids, and returns it. Grounded in TaskGraph.new_task.
func (g *TaskGraph) NewTask(spec TaskSpec) *Task {
	task := &Task{
		Name:             spec.Name,
		Duration:         spec.Duration,
		ExpectedDuration: spec.ExpectedDuration,
		CPUs:             spec.CPUs,
		ID:               len(g.Tasks),
	}
	task.Outputs = make([]*DataObject, len(spec.Outputs))
	for i, os := range spec.Outputs {
		o := newDataObject(os.Size, os.ExpectedSize)
		o.Parent = task
		o.ID = len(g.Outputs)
		task.Outputs[i] = o
		g.Outputs = append(g.Outputs, o)
	}
	g.Tasks = append(g.Tasks, task)
	return task
}

// AddInput wires output as one of task's inputs, recording task as a
// consumer of output. Grounded in Task.add_input.
func (g *TaskGraph) AddInput(task *Task, output *DataObject) {
	task.Inputs = append(task.Inputs, output)
	output.Consumers[task] = struct{}{}
}

// RemoveTask removes a task and its outputs from the graph, rewiring
// consumer/input back-references. Grounded in TaskGraph.remove_task.
func (g *TaskGraph) RemoveTask(task *Task) {
	for _, o := range task.Outputs {
		for i, candidate := range g.Outputs {
			if candidate == o {
				g.Outputs = append(g.Outputs[:i], g.Outputs[i+1:]...)
				break
			}
		}
		for c := range o.Consumers {
			removeDataObject(&c.Inputs, o)
		}
	}
	for i, candidate := range g.Tasks {
		if candidate == task {
			g.Tasks = append(g.Tasks[:i], g.Tasks[i+1:]...)
			break
		}
	}
	for _, o := range task.Inputs {
		delete(o.Consumers, task)
	}
}

func removeDataObject(list *[]*DataObject, o *DataObject) {
	for i, candidate := range *list {
		if candidate == o {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// SourceTasks returns the tasks with no inputs. Grounded in
// TaskGraph.source_tasks.
func (g *TaskGraph) SourceTasks() []*Task {
	var result []*Task
	for _, t := range g.Tasks {
		if len(t.Inputs) == 0 {
			result = append(result, t)
		}
	}
	return result
}

// LeafTasks returns the tasks that no other task depends on. Grounded in
// TaskGraph.leaf_tasks.
func (g *TaskGraph) LeafTasks() []*Task {
	var result []*Task
	for _, t := range g.Tasks {
		if t.IsLeaf() {
			result = append(result, t)
		}
	}
	return result
}

// Validate rejects any cycle, negative size/duration, or dangling input
// reference. Grounded in Task.validate / TaskGraph.validate.
func (g *TaskGraph) Validate() error {
	outputSet := make(map[*DataObject]struct{}, len(g.Outputs))
	for _, o := range g.Outputs {
		outputSet[o] = struct{}{}
	}
	taskSet := make(map[*Task]struct{}, len(g.Tasks))
	for _, t := range g.Tasks {
		taskSet[t] = struct{}{}
	}

	for i, t := range g.Tasks {
		if t.ID != i {
			return fmt.Errorf("%w: task at index %d has id %d", ErrGraphInvariant, i, t.ID)
		}
		if t.Duration < 0 {
			return fmt.Errorf("%w: task %d: negative duration %v", ErrGraphInvariant, t.ID, t.Duration)
		}
		if t.ExpectedDuration != nil && *t.ExpectedDuration < 0 {
			return fmt.Errorf("%w: task %d: negative expected_duration %v", ErrGraphInvariant, t.ID, *t.ExpectedDuration)
		}
		if t.CPUs < 0 {
			return fmt.Errorf("%w: task %d: negative cpus %d", ErrGraphInvariant, t.ID, t.CPUs)
		}
		if t.IsPredecessorOf(t) {
			return fmt.Errorf("%w: task %d is its own ancestor", ErrGraphInvariant, t.ID)
		}
		for _, o := range t.Outputs {
			if o.Parent != t {
				return fmt.Errorf("%w: output %d: parent is not task %d", ErrGraphInvariant, o.ID, t.ID)
			}
			if o.Size < 0 {
				return fmt.Errorf("%w: object %d: negative size %v", ErrGraphInvariant, o.ID, o.Size)
			}
			if o.ExpectedSize != nil && *o.ExpectedSize < 0 {
				return fmt.Errorf("%w: object %d: negative expected_size %v", ErrGraphInvariant, o.ID, *o.ExpectedSize)
			}
			if _, ok := outputSet[o]; !ok {
				return fmt.Errorf("%w: output %d not registered with graph", ErrGraphInvariant, o.ID)
			}
			for c := range o.Consumers {
				if _, ok := taskSet[c]; !ok {
					return fmt.Errorf("%w: object %d: consumer not registered with graph", ErrGraphInvariant, o.ID)
				}
			}
		}
		for _, o := range t.Inputs {
			if _, ok := outputSet[o]; !ok {
				return fmt.Errorf("%w: task %d: dangling input reference", ErrGraphInvariant, t.ID)
			}
			if _, ok := taskSet[o.Parent]; !ok {
				return fmt.Errorf("%w: task %d: input's parent not registered with graph", ErrGraphInvariant, t.ID)
			}
		}
	}
	return nil
}

// Normalize canonicalizes each task's input list (dedup + sort by object
// id) for deterministic hashing/comparison in tests. Grounded in
// Task.normalize / TaskGraph.normalize.
func (g *TaskGraph) Normalize() {
	for _, t := range g.Tasks {
		seen := make(map[*DataObject]struct{}, len(t.Inputs))
		deduped := t.Inputs[:0:0]
		for _, o := range t.Inputs {
			if _, ok := seen[o]; ok {
				continue
			}
			seen[o] = struct{}{}
			deduped = append(deduped, o)
		}
		sort.Slice(deduped, func(i, j int) bool { return deduped[i].ID < deduped[j].ID })
		t.Inputs = deduped
	}
}

// TopologicalSort returns the tasks in a Kahn-style topological order, ties
// broken by ascending id for determinism. Returns ErrGraphInvariant if a
// cycle prevents a full ordering.
func (g *TaskGraph) TopologicalSort() ([]*Task, error) {
	remaining := make(map[*Task]int, len(g.Tasks))
	for _, t := range g.Tasks {
		remaining[t] = len(t.Inputs)
	}

	ready := make([]*Task, 0, len(g.Tasks))
	for _, t := range g.Tasks {
		if remaining[t] == 0 {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })

	order := make([]*Task, 0, len(g.Tasks))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })
		t := ready[0]
		ready = ready[1:]
		order = append(order, t)

		var newlyReady []*Task
		for _, o := range t.Outputs {
			for c := range o.Consumers {
				remaining[c]--
				if remaining[c] == 0 {
					newlyReady = append(newlyReady, c)
				}
			}
		}
		ready = append(ready, newlyReady...)
	}

	if len(order) != len(g.Tasks) {
		return nil, fmt.Errorf("%w: cycle detected, only %d/%d tasks ordered", ErrGraphInvariant, len(order), len(g.Tasks))
	}
	return order, nil
}

// Copy returns a deep clone of the graph: tasks and objects are cloned and
// rewired by identity, not by id lookup, using a cycle-safe cloner since
// Task.Outputs -> DataObject and DataObject.Consumers -> Task form a
// mutually cyclic object graph a naive recursive copy would not terminate
// on. Grounded in TaskGraph.copy / TaskGraph._copy_tasks, generalized from
// id-based rewiring to pointer-identity rewiring idiomatic in Go.
func (g *TaskGraph) Copy() *TaskGraph {
	return clone.Slowly(g).(*TaskGraph)
}
