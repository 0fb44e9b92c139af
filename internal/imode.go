// Input-mode processors (supplemental, grounded in
// schedsim/common/imode.py). A driver runs one of these over a TaskGraph
// before handing it to a scheduler, to control how much of the real
// duration/size a scheduler is allowed to see as a hint. These are plain
// graph-level transforms, not kernel behavior: they operate on the same
// TaskGraph the kernel validates and runs, but the kernel never calls them
// itself.

package simcore

// ProcessExact sets every hint equal to the real value. Grounded in
// process_imode_exact.
func ProcessExact(g *TaskGraph) {
	for _, t := range g.Tasks {
		d := t.Duration
		t.ExpectedDuration = &d
	}
	for _, o := range g.Outputs {
		s := o.Size
		o.ExpectedSize = &s
	}
}

// ProcessBlind clears every hint, so the scheduler sees no estimate at all.
// Grounded in process_imode_blind.
func ProcessBlind(g *TaskGraph) {
	for _, t := range g.Tasks {
		t.ExpectedDuration = nil
	}
	for _, o := range g.Outputs {
		o.ExpectedSize = nil
	}
}

// ProcessUser is a no-op: hints are left exactly as the graph builder set
// them. Grounded in process_imode_user.
func ProcessUser(g *TaskGraph) {}

// ProcessMean sets every hint to the mean real duration / mean real output
// size across the whole graph. Grounded in process_imode_mean.
func ProcessMean(g *TaskGraph) {
	var meanDuration float64
	if len(g.Tasks) > 0 {
		var sum float64
		for _, t := range g.Tasks {
			sum += t.Duration
		}
		meanDuration = sum / float64(len(g.Tasks))
	}

	var meanSize float64
	if len(g.Outputs) > 0 {
		var sum float64
		for _, o := range g.Outputs {
			sum += o.Size
		}
		meanSize = sum / float64(len(g.Outputs))
	}

	for _, t := range g.Tasks {
		d := meanDuration
		t.ExpectedDuration = &d
	}
	for _, o := range g.Outputs {
		s := meanSize
		o.ExpectedSize = &s
	}
}
