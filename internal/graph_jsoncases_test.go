package simcore

import (
	"path"
	"testing"

	schedsim_testutils "github.com/schedsim/schedsim/testutils"
)

// TaskGraph Validate test cases loaded from JSON, per the teacher's
// fixture-driven table test pattern (see e.g.
// vmi/internal/internal_metrics_test.go): each case describes a small graph
// by task specs and edges and the Validate outcome it expects.
type graphValidateTestCase struct {
	Name        string
	Description string
	Tasks       []struct {
		CPUs        int
		Duration    float64
		OutputSizes []float64
	}
	Edges []struct {
		From        int
		OutputIndex int
		To          int
	}
	WantErr bool
}

var graphValidateTestCasesFile = path.Join("testdata", "graph_validate_cases.json")

func buildGraphFromCase(tc *graphValidateTestCase) *TaskGraph {
	g := NewTaskGraph()
	tasks := make([]*Task, len(tc.Tasks))
	for i, ts := range tc.Tasks {
		outputs := make([]OutputSpec, len(ts.OutputSizes))
		for j, size := range ts.OutputSizes {
			outputs[j] = OutputSpec{Size: size}
		}
		tasks[i] = g.NewTask(TaskSpec{CPUs: ts.CPUs, Duration: ts.Duration, Outputs: outputs})
	}
	for _, e := range tc.Edges {
		g.AddInput(tasks[e.To], tasks[e.From].Outputs[e.OutputIndex])
	}
	return g
}

func TestValidateJSONCases(t *testing.T) {
	var testCases []graphValidateTestCase
	if err := schedsim_testutils.LoadJsonFile(graphValidateTestCasesFile, &testCases); err != nil {
		t.Fatal(err)
	}
	if len(testCases) == 0 {
		t.Fatal("no test cases loaded")
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			g := buildGraphFromCase(&tc)
			err := g.Validate()
			if tc.WantErr && err == nil {
				t.Fatalf("%s: want error, got nil", tc.Description)
			}
			if !tc.WantErr && err != nil {
				t.Fatalf("%s: want no error, got %v", tc.Description, err)
			}
		})
	}
}
