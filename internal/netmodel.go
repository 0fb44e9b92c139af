// Network model (component B).
//
// A NetModel answers two questions for the event loop: how long a transfer
// of a given size between two workers takes starting now, and what to do
// when a transfer starts or ends, since a bandwidth-sharing model's answer
// to the first question depends on what else is in flight.
//
// Two concrete variants are provided: Instant (no network cost at all) and
// Simple (a single shared bandwidth pool per destination worker, divided
// evenly among the transfers currently landing there). Unlike the teacher's
// wall-clock Credit controller in rate_controller.go, this is a synchronous
// model keyed by simulated time: there is no ticker, no goroutine, no
// sync.Cond. A transfer's ETA is plain arithmetic over remaining bytes and
// the current share of bandwidth, recomputed whenever the set of active
// transfers to a destination changes.

package simcore

import "fmt"

// transferID identifies one in-flight transfer for Deregister purposes.
type transferID struct {
	object int
	dest   int
}

// NetModel is the interface the event loop drives. now and transfer
// start/end times are simulated seconds.
type NetModel interface {
	// TransferTime returns how many seconds a transfer of the given size
	// would take right now, were it started at `now` and never joined or
	// left by a competing transfer. The event loop does not call it; it
	// tracks in-flight transfers through Register/Deregister/Reschedule.
	TransferTime(size float64, srcWorker, destWorker int, now float64) float64

	// Register records a new active transfer, landing at destWorker, of
	// the given size, starting at `now`. It returns the simulated time the
	// transfer is expected to complete, given everything else already
	// registered.
	Register(object, destWorker int, size float64, now float64) float64

	// Deregister removes a completed (or cancelled) transfer landing at
	// destWorker, first accounting for progress made up to `now`.
	Deregister(object, destWorker int, now float64)

	// Reschedule recomputes ETAs for every transfer active at destWorker as
	// of `now`, returning the new (object, eta) pairs. Called by the event
	// loop after a Register or Deregister touching that worker so it can
	// re-heap the affected DownloadEnd events.
	Reschedule(destWorker int, now float64) []NetModelETA
}

// NetModelETA is one (object, completion time) pair produced by Reschedule.
type NetModelETA struct {
	Object int
	Eta    float64
}

// InstantNetModel models a network with no transfer cost: every transfer
// completes the instant it is registered. Grounded in spec.md §4.4's
// "Instant" variant.
type InstantNetModel struct{}

func NewInstantNetModel() *InstantNetModel { return &InstantNetModel{} }

func (m *InstantNetModel) TransferTime(size float64, srcWorker, destWorker int, now float64) float64 {
	return 0
}

func (m *InstantNetModel) Register(object, destWorker int, size float64, now float64) float64 {
	return now
}

func (m *InstantNetModel) Deregister(object, destWorker int, now float64) {}

func (m *InstantNetModel) Reschedule(destWorker int, now float64) []NetModelETA {
	return nil
}

// activeTransfer is one transfer in flight toward a destination worker,
// tracked by SimpleNetModel so it can redivide bandwidth whenever the set of
// competitors at that destination changes.
type activeTransfer struct {
	object    int
	size      float64
	remaining float64
	startedAt float64
}

// SimpleNetModel models a single shared bandwidth pool per destination
// worker (spec.md §4.4 "Simple"): point-to-point transfer_time = size / b,
// with parallel transfers into the same destination sharing b equally.
// Grounded in the bandwidth-division idea of the teacher's Credit
// controller (internal/rate_controller.go), replayed synchronously over
// simulated time instead of wall-clock ticks.
type SimpleNetModel struct {
	bandwidth float64
	// active[destWorker] is the set of transfers currently landing there,
	// keyed by object id.
	active map[int]map[int]*activeTransfer
}

func NewSimpleNetModel(bandwidth float64) (*SimpleNetModel, error) {
	if bandwidth <= 0 {
		return nil, fmt.Errorf("%w: SimpleNetModel: bandwidth must be > 0, got %v", ErrGraphInvariant, bandwidth)
	}
	return &SimpleNetModel{
		bandwidth: bandwidth,
		active:    make(map[int]map[int]*activeTransfer),
	}, nil
}

func (m *SimpleNetModel) share(destWorker int) float64 {
	n := len(m.active[destWorker])
	if n == 0 {
		return m.bandwidth
	}
	return m.bandwidth / float64(n)
}

// settle advances every active transfer at destWorker's remaining bytes up
// to `now`, given the bandwidth share in effect since each transfer's
// startedAt/last settle point. It must be called before the active set
// changes (a join or a completion), so that time already elapsed under the
// old share is accounted for before the share is redivided.
func (m *SimpleNetModel) settle(destWorker int, now float64) {
	transfers := m.active[destWorker]
	if len(transfers) == 0 {
		return
	}
	share := m.share(destWorker)
	for _, t := range transfers {
		elapsed := now - t.startedAt
		if elapsed > 0 {
			t.remaining -= elapsed * share
			if t.remaining < 0 {
				t.remaining = 0
			}
		}
		t.startedAt = now
	}
}

func (m *SimpleNetModel) TransferTime(size float64, srcWorker, destWorker int, now float64) float64 {
	transfers := m.active[destWorker]
	n := len(transfers) + 1
	share := m.bandwidth / float64(n)
	return size / share
}

func (m *SimpleNetModel) Register(object, destWorker int, size float64, now float64) float64 {
	m.settle(destWorker, now)
	if m.active[destWorker] == nil {
		m.active[destWorker] = make(map[int]*activeTransfer)
	}
	m.active[destWorker][object] = &activeTransfer{
		object:    object,
		size:      size,
		remaining: size,
		startedAt: now,
	}
	share := m.share(destWorker)
	return now + m.active[destWorker][object].remaining/share
}

func (m *SimpleNetModel) Deregister(object, destWorker int, now float64) {
	transfers := m.active[destWorker]
	if transfers == nil {
		return
	}
	m.settle(destWorker, now)
	delete(transfers, object)
	if len(transfers) == 0 {
		delete(m.active, destWorker)
	}
}

func (m *SimpleNetModel) Reschedule(destWorker int, now float64) []NetModelETA {
	transfers := m.active[destWorker]
	if len(transfers) == 0 {
		return nil
	}
	m.settle(destWorker, now)
	share := m.share(destWorker)
	etas := make([]NetModelETA, 0, len(transfers))
	for object, t := range transfers {
		etas = append(etas, NetModelETA{Object: object, Eta: now + t.remaining/share})
	}
	return etas
}
