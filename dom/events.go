package dom

// Handler reacts to a dispatched event. It may call PreventDefault and
// StopPropagation on the event; it may also block on storage reads; the
// dispatch loop waits for it, exactly like a page event loop waits on a
// synchronous listener.
type Handler func(ev *Event)

// Event is one dispatched click or submit.
type Event struct {
	// Type is "click" or "submit".
	Type string
	// Target is the element the event was dispatched on.
	Target Element

	defaultPrevented bool
	propagationDone  bool
}

// PreventDefault suppresses the native action for this event.
func (ev *Event) PreventDefault() { ev.defaultPrevented = true }

// StopPropagation stops remaining handlers on the target from running.
func (ev *Event) StopPropagation() { ev.propagationDone = true }

// DefaultPrevented reports whether any handler suppressed the native action.
func (ev *Event) DefaultPrevented() bool { return ev.defaultPrevented }

// On binds a named handler for an event type on the element. Re-binding the
// same (element, type, name) replaces the previous handler rather than
// stacking a second one, so repeated bind scans stay idempotent.
func (e Element) On(eventType, name string, h Handler) {
	d := e.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	byType := d.bindings[e.n]
	if byType == nil {
		byType = make(map[string]map[string]Handler)
		d.bindings[e.n] = byType
	}
	byName := byType[eventType]
	if byName == nil {
		byName = make(map[string]Handler)
		byType[eventType] = byName
	}
	byName[name] = h
}

// Off removes a named binding. Missing bindings are a no-op.
func (e Element) Off(eventType, name string) {
	d := e.doc
	d.mu.Lock()
	defer d.mu.Unlock()
	if byType := d.bindings[e.n]; byType != nil {
		delete(byType[eventType], name)
	}
}

// HandlerCount reports how many handlers are bound for an event type on the
// element. Exposed for idempotency checks.
func (e Element) HandlerCount(eventType string) int {
	d := e.doc
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bindings[e.n][eventType])
}

// Dispatch delivers an event of the given type to the element's handlers and
// reports whether the native action should proceed (true = not prevented).
// Dispatch is serialized per Document.
func (e Element) Dispatch(eventType string) bool {
	d := e.doc
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	ev := &Event{Type: eventType, Target: e}
	for _, h := range e.handlersFor(eventType) {
		h(ev)
		if ev.propagationDone {
			break
		}
	}
	return !ev.defaultPrevented
}

// Click dispatches a click on the element. The return value is the native
// action: true means the page would navigate/submit as usual.
func (e Element) Click() bool { return e.Dispatch("click") }

// Submit dispatches a submit on the element (a form).
func (e Element) Submit() bool { return e.Dispatch("submit") }

// handlersFor snapshots the handler list under the state lock so handlers
// can rebind without deadlocking.
func (e Element) handlersFor(eventType string) []Handler {
	d := e.doc
	d.mu.Lock()
	defer d.mu.Unlock()
	byName := d.bindings[e.n][eventType]
	out := make([]Handler, 0, len(byName))
	for _, h := range byName {
		out = append(out, h)
	}
	return out
}
