package simcore

import "testing"

func buildImodeGraph() *TaskGraph {
	g := NewTaskGraph()
	a := g.NewTask(TaskSpec{Duration: 2, Outputs: []OutputSpec{{Size: 4}}})
	g.NewTask(TaskSpec{Duration: 4, Outputs: []OutputSpec{{Size: 8}}})
	_ = a
	return g
}

func TestProcessExact(t *testing.T) {
	g := buildImodeGraph()
	ProcessExact(g)
	for _, task := range g.Tasks {
		if task.ExpectedDuration == nil || *task.ExpectedDuration != task.Duration {
			t.Fatalf("task %d: expected_duration not set to duration", task.ID)
		}
	}
	for _, o := range g.Outputs {
		if o.ExpectedSize == nil || *o.ExpectedSize != o.Size {
			t.Fatalf("object %d: expected_size not set to size", o.ID)
		}
	}
}

func TestProcessBlind(t *testing.T) {
	g := buildImodeGraph()
	ProcessExact(g)
	ProcessBlind(g)
	for _, task := range g.Tasks {
		if task.ExpectedDuration != nil {
			t.Fatalf("task %d: expected_duration not cleared", task.ID)
		}
	}
	for _, o := range g.Outputs {
		if o.ExpectedSize != nil {
			t.Fatalf("object %d: expected_size not cleared", o.ID)
		}
	}
}

func TestProcessUserIsNoOp(t *testing.T) {
	g := buildImodeGraph()
	hint := 99.0
	g.Tasks[0].ExpectedDuration = &hint
	ProcessUser(g)
	if g.Tasks[0].ExpectedDuration != &hint || *g.Tasks[0].ExpectedDuration != 99.0 {
		t.Fatal("ProcessUser mutated an existing hint")
	}
}

func TestProcessMean(t *testing.T) {
	g := buildImodeGraph() // durations 2,4 -> mean 3; sizes 4,8 -> mean 6
	ProcessMean(g)
	for _, task := range g.Tasks {
		if task.ExpectedDuration == nil || *task.ExpectedDuration != 3 {
			t.Fatalf("task %d: want expected_duration 3, got %v", task.ID, task.ExpectedDuration)
		}
	}
	for _, o := range g.Outputs {
		if o.ExpectedSize == nil || *o.ExpectedSize != 6 {
			t.Fatalf("object %d: want expected_size 6, got %v", o.ID, o.ExpectedSize)
		}
	}
}

func TestProcessMeanEmptyGraph(t *testing.T) {
	g := NewTaskGraph()
	ProcessMean(g) // must not panic/divide by zero
}
