// The public face of the simulator for its users. It is a thin facade over
// internal/simcore: every type here is an alias, and every function simply
// forwards, so the package stays easy to keep in lockstep with the engine
// while giving callers a single import path.

package schedsim

import (
	"github.com/sirupsen/logrus"

	simcore "github.com/schedsim/schedsim/internal"
)

// --- Task graph (component A) ---

type TaskGraph = simcore.TaskGraph
type Task = simcore.Task
type TaskSpec = simcore.TaskSpec
type DataObject = simcore.DataObject
type OutputSpec = simcore.OutputSpec

func NewTaskGraph() *TaskGraph { return simcore.NewTaskGraph() }

// --- Input-mode processors, applied to a graph before simulation ---

func ProcessExact(g *TaskGraph) { simcore.ProcessExact(g) }
func ProcessBlind(g *TaskGraph) { simcore.ProcessBlind(g) }
func ProcessUser(g *TaskGraph)  { simcore.ProcessUser(g) }
func ProcessMean(g *TaskGraph)  { simcore.ProcessMean(g) }

// --- Cluster (component C) ---

type Worker = simcore.Worker

func NewWorker(id, cpus int) *Worker { return simcore.NewWorker(id, cpus) }

// --- Network model (component B) ---

type NetModel = simcore.NetModel
type NetModelETA = simcore.NetModelETA
type InstantNetModel = simcore.InstantNetModel
type SimpleNetModel = simcore.SimpleNetModel

func NewInstantNetModel() *InstantNetModel { return simcore.NewInstantNetModel() }

func NewSimpleNetModel(bandwidth float64) (*SimpleNetModel, error) {
	return simcore.NewSimpleNetModel(bandwidth)
}

// --- Runtime state (component D) ---

type TaskState = simcore.TaskState
type TaskRuntimeInfo = simcore.TaskRuntimeInfo
type ObjectRuntime = simcore.ObjectRuntime
type RuntimeState = simcore.RuntimeState

const (
	Waiting  = simcore.Waiting
	Ready    = simcore.Ready
	Assigned = simcore.Assigned
	Running  = simcore.Running
	Finished = simcore.Finished
)

// --- Scheduler protocol (component F) ---

type Scheduler = simcore.Scheduler
type StartNotifier = simcore.StartNotifier
type RegisterReply = simcore.RegisterReply
type WorkerInfo = simcore.WorkerInfo
type ObjectInfo = simcore.ObjectInfo
type TaskInfo = simcore.TaskInfo
type TaskFinishedInfo = simcore.TaskFinishedInfo
type ObjectUpdateInfo = simcore.ObjectUpdateInfo
type Update = simcore.Update
type Assignment = simcore.Assignment

const ProtocolVersion = simcore.ProtocolVersion

// --- Scheduler-side graph mirror (component G); used by scheduler
// implementations, never by the kernel itself ---

type GraphMirror = simcore.GraphMirror
type WorkerMirror = simcore.WorkerMirror
type TaskMirror = simcore.TaskMirror
type ObjectMirror = simcore.ObjectMirror

func NewGraphMirror() *GraphMirror { return simcore.NewGraphMirror() }

// --- The kernel itself (component E) ---

type Simulator = simcore.Simulator
type SimulatorOptions = simcore.SimulatorOptions
type TraceEntry = simcore.TraceEntry

// NewSimulator validates graph and wires it, workers, scheduler and netmodel
// into a runnable kernel. Call Run to drive it to completion.
func NewSimulator(graph *TaskGraph, workers []*Worker, scheduler Scheduler, netmodel NetModel, opts *SimulatorOptions) (*Simulator, error) {
	return simcore.NewSimulator(graph, workers, scheduler, netmodel, opts)
}

func SimulatorOptionsFromConfig(cfg *SimulatorConfig) *SimulatorOptions {
	return simcore.SimulatorOptionsFromConfig(cfg)
}

// --- Errors ---

var (
	ErrProtocolViolation = simcore.ErrProtocolViolation
	ErrGraphInvariant    = simcore.ErrGraphInvariant
	ErrDeadlock          = simcore.ErrDeadlock
	ErrCPUViolation      = simcore.ErrCPUViolation
)

// --- Configuration ---

type SimulatorConfig = simcore.SimulatorConfig
type NetworkConfig = simcore.NetworkConfig
type LoggerConfig = simcore.LoggerConfig

const (
	NetModelKindInstant = simcore.NETMODEL_KIND_INSTANT
	NetModelKindSimple  = simcore.NETMODEL_KIND_SIMPLE
)

func DefaultSimulatorConfig() *SimulatorConfig { return simcore.DefaultSimulatorConfig() }
func DefaultNetworkConfig() *NetworkConfig     { return simcore.DefaultNetworkConfig() }

// LoadConfig loads a SimulatorConfig from the given YAML file, or from buf
// directly when non-nil (the latter chiefly for tests).
func LoadConfig(cfgFile string, buf []byte) (*SimulatorConfig, error) {
	return simcore.LoadConfig(cfgFile, buf)
}

// --- Logging ---

// GetRootLogger returns the root logger. Needed only for tests where the
// logger is captured (see testutils/log_collector.go); its actual type is
// obscured. Typical use:
//
//	tlc := schedsim_testutils.NewTestLogCollect(t, schedsim.GetRootLogger(), nil)
//	defer tlc.RestoreLog()
func GetRootLogger() any { return simcore.GetRootLogger() }

// SetLogger (re)configures the root logger from cfg, or from defaults if nil.
func SetLogger(cfg *LoggerConfig) error { return simcore.SetLogger(cfg) }

// NewCompLogger creates a new component logger with a comp=compName field.
func NewCompLogger(comp string) *logrus.Entry { return simcore.NewCompLogger(comp) }

// AddCallerSrcPathPrefixToLogger lets log output show file paths relative to
// the module root rather than the full build path. Typically called from
// main.init() with upNDirs=0, assuming main.go sits at the module root.
func AddCallerSrcPathPrefixToLogger(upNDirs int) error {
	return simcore.AddCallerSrcPathPrefixToLogger(upNDirs, 1)
}
