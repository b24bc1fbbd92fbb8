package board

import "tally/internal/store"

// State is the reconciler's gesture state.
type State int

const (
	// Idle means no gesture is active; snapshots render immediately.
	Idle State = iota
	// Dragging means a gesture is in flight; snapshots are deferred.
	Dragging
)

// RenderFunc applies an authoritative snapshot to the display.
type RenderFunc func(store.Snapshot)

// Reconciler arbitrates between authoritative pushes and an active
// local gesture. While Dragging it holds at most one pending snapshot,
// latest wins, and releases it exactly once when the gesture ends. It
// also tracks the last value sent per item so unchanged values are not
// re-sent upstream.
type Reconciler struct {
	state      State
	pending    store.Snapshot
	hasPending bool
	render     RenderFunc
	lastSent   map[string]int
}

func NewReconciler(render RenderFunc) *Reconciler {
	return &Reconciler{render: render, lastSent: make(map[string]int)}
}

// State reports the current gesture state.
func (r *Reconciler) State() State {
	return r.state
}

// Begin enters the Dragging state. Beginning while already Dragging is
// a no-op: there is at most one gesture at a time.
func (r *Reconciler) Begin() {
	r.state = Dragging
}

// End leaves the Dragging state and renders the pending snapshot, if
// one arrived during the gesture. The pending slot is consumed: a
// second End renders nothing. Ending while Idle is a no-op.
func (r *Reconciler) End() {
	if r.state != Dragging {
		return
	}
	r.state = Idle
	if r.hasPending {
		snap := r.pending
		r.pending = nil
		r.hasPending = false
		r.render(snap)
	}
}

// Cancel abandons the gesture. The transition is identical to End: any
// snapshot deferred during the gesture still renders, restoring the
// authoritative state over the abandoned local edit.
func (r *Reconciler) Cancel() {
	r.End()
}

// Offer presents an authoritative snapshot. While Idle it renders
// immediately and reports true; while Dragging it replaces any pending
// snapshot and reports false.
func (r *Reconciler) Offer(snap store.Snapshot) bool {
	if r.state == Dragging {
		r.pending = snap
		r.hasPending = true
		return false
	}
	r.pending = nil
	r.hasPending = false
	r.render(snap)
	return true
}

// ShouldSend reports whether gathered differs from the last value sent
// for name, recording it when it does. Echoes of our own writes are
// suppressed this way.
func (r *Reconciler) ShouldSend(name string, gathered int) bool {
	if last, ok := r.lastSent[name]; ok && last == gathered {
		return false
	}
	r.lastSent[name] = gathered
	return true
}

// Forget drops the last-sent record for name, forcing the next
// ShouldSend to report true.
func (r *Reconciler) Forget(name string) {
	delete(r.lastSent, name)
}
