package simcore

import "testing"

func sizePtr(v float64) *float64 { return &v }

func buildChainGraph() (*TaskGraph, *Task, *Task, *Task) {
	g := NewTaskGraph()
	a := g.NewTask(TaskSpec{Name: "A", Duration: 3, CPUs: 1, Outputs: []OutputSpec{{Size: 1}}})
	b := g.NewTask(TaskSpec{Name: "B", Duration: 1, CPUs: 1, Outputs: []OutputSpec{{Size: 1}}})
	g.AddInput(b, a.Outputs[0])
	c := g.NewTask(TaskSpec{Name: "C", Duration: 1, CPUs: 1})
	g.AddInput(c, b.Outputs[0])
	return g, a, b, c
}

func TestNewTaskAssignsDenseIDs(t *testing.T) {
	g, a, b, c := buildChainGraph()
	if a.ID != 0 || b.ID != 1 || c.ID != 2 {
		t.Fatalf("task ids: want 0,1,2, got %d,%d,%d", a.ID, b.ID, c.ID)
	}
	if len(g.Outputs) != 2 {
		t.Fatalf("graph outputs: want 2, got %d", len(g.Outputs))
	}
	if a.Outputs[0].ID != 0 || b.Outputs[0].ID != 1 {
		t.Fatalf("object ids: want 0,1, got %d,%d", a.Outputs[0].ID, b.Outputs[0].ID)
	}
}

func TestSourceAndLeafTasks(t *testing.T) {
	g, a, _, c := buildChainGraph()
	sources := g.SourceTasks()
	if len(sources) != 1 || sources[0] != a {
		t.Fatalf("SourceTasks: want [A], got %v", sources)
	}
	leaves := g.LeafTasks()
	if len(leaves) != 1 || leaves[0] != c {
		t.Fatalf("LeafTasks: want [C], got %v", leaves)
	}
}

func TestValidateAcceptsChain(t *testing.T) {
	g, _, _, _ := buildChainGraph()
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsNegativeDuration(t *testing.T) {
	g := NewTaskGraph()
	g.NewTask(TaskSpec{Duration: -1})
	if err := g.Validate(); err == nil {
		t.Fatal("want error for negative duration, got nil")
	}
}

func TestValidateRejectsNegativeSize(t *testing.T) {
	g := NewTaskGraph()
	g.NewTask(TaskSpec{Outputs: []OutputSpec{{Size: -5}}})
	if err := g.Validate(); err == nil {
		t.Fatal("want error for negative size, got nil")
	}
}

func TestValidateRejectsSelfCycle(t *testing.T) {
	g := NewTaskGraph()
	a := g.NewTask(TaskSpec{Outputs: []OutputSpec{{Size: 1}}})
	g.AddInput(a, a.Outputs[0])
	if err := g.Validate(); err == nil {
		t.Fatal("want error for self cycle, got nil")
	}
}

func TestTopologicalSortOrdersByDependency(t *testing.T) {
	g, a, b, c := buildChainGraph()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatal(err)
	}
	want := []*Task{a, b, c}
	if len(order) != len(want) {
		t.Fatalf("order length: want %d, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d]: want %v, got %v", i, want[i], order[i])
		}
	}
}

func TestCopyPreservesShapeAndIsIndependent(t *testing.T) {
	g, a, b, _ := buildChainGraph()
	cp := g.Copy()

	if len(cp.Tasks) != len(g.Tasks) || len(cp.Outputs) != len(g.Outputs) {
		t.Fatalf("copy shape mismatch: tasks %d/%d, outputs %d/%d",
			len(cp.Tasks), len(g.Tasks), len(cp.Outputs), len(g.Outputs))
	}
	if cp.Tasks[0] == a || cp.Tasks[1] == b {
		t.Fatal("copy shares task pointers with the original")
	}
	// The clone's internal cross-references must point within the clone.
	cpA, cpB := cp.Tasks[0], cp.Tasks[1]
	if cpB.Inputs[0] != cpA.Outputs[0] {
		t.Fatal("copy did not preserve input/output identity rewiring")
	}
	if _, ok := cpA.Outputs[0].Consumers[cpB]; !ok {
		t.Fatal("copy did not preserve consumer back-reference")
	}
	if err := cp.Validate(); err != nil {
		t.Fatalf("copy Validate: %v", err)
	}

	// Mutating the copy must not affect the original.
	cp.NewTask(TaskSpec{Name: "extra"})
	if len(g.Tasks) == len(cp.Tasks) {
		t.Fatal("mutating the copy affected the original")
	}
}

func TestNormalizeDedupsAndSorts(t *testing.T) {
	g := NewTaskGraph()
	a := g.NewTask(TaskSpec{Outputs: []OutputSpec{{Size: 1}, {Size: 1}}})
	b := g.NewTask(TaskSpec{})
	g.AddInput(b, a.Outputs[1])
	g.AddInput(b, a.Outputs[0])
	g.AddInput(b, a.Outputs[1])

	g.Normalize()

	if len(b.Inputs) != 2 {
		t.Fatalf("normalized inputs: want 2, got %d", len(b.Inputs))
	}
	if b.Inputs[0].ID != 0 || b.Inputs[1].ID != 1 {
		t.Fatalf("normalized inputs not sorted by id: got %d, %d", b.Inputs[0].ID, b.Inputs[1].ID)
	}
}

func TestRemoveTaskRewiresBackReferences(t *testing.T) {
	g, a, b, c := buildChainGraph()
	g.RemoveTask(b)

	if len(g.Tasks) != 2 {
		t.Fatalf("tasks after remove: want 2, got %d", len(g.Tasks))
	}
	if len(g.Outputs) != 1 {
		t.Fatalf("outputs after remove: want 1, got %d", len(g.Outputs))
	}
	if _, ok := a.Outputs[0].Consumers[b]; ok {
		t.Fatal("removed task still a consumer of its former input")
	}
	if len(c.Inputs) != 0 {
		t.Fatal("surviving consumer still references removed task's output")
	}
}
