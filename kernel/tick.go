package kernel

import (
	"github.com/eng-cc/agent-world-sub008/internal/obsmetrics"
	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// Step drains up to batch pending actions in submission order, then
// advances the clock one tick. batch <= 0 drains the whole queue. It
// is the tick-boundary unit of progress; Submit remains available for
// callers that drive actions one at a time without a queue.
func (w *World) Step(batch int) ([]worldtypes.WorldEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.pending)
	if batch > 0 && batch < n {
		n = batch
	}
	var events []worldtypes.WorldEvent
	for _, action := range w.pending[:n] {
		evs, err := w.submitLocked(action)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
	}
	w.pending = append([]worldtypes.Action(nil), w.pending[n:]...)

	tickEvents, err := w.advanceLocked()
	if err != nil {
		return nil, err
	}
	return append(events, tickEvents...), nil
}

// Advance moves the world's logical clock forward by one tick, running
// every active module's TickHook (if it implements one) in
// registration order, folding at most one event per module per tick.
func (w *World) Advance() ([]worldtypes.WorldEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.advanceLocked()
}

func (w *World) advanceLocked() ([]worldtypes.WorldEvent, error) {
	w.state.Time++
	var events []worldtypes.WorldEvent
	for _, m := range w.registry.Active() {
		hook, ok := m.(sandbox.TickHook)
		if !ok {
			continue
		}
		payload, err := hook.OnTick(w.state)
		if err != nil {
			return nil, err
		}
		if payload == nil {
			continue
		}
		evt := w.state.NextEvent("", payload)
		events = append(events, evt)
		if err := w.journal.Append(evt); err != nil {
			return nil, err
		}
	}
	obsmetrics.KernelTicksTotal.WithLabelValues(string(w.state.WorldID)).Inc()
	return events, nil
}
