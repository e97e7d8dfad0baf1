package session

import "sync"

// Emitter is an in-memory event dispatcher keyed by event type. It backs the
// realtime client and the test doubles for the EventSource capability.
type Emitter struct {
	mu       sync.Mutex
	nextID   HandlerID
	handlers map[EventType]map[HandlerID]Handler
}

func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType]map[HandlerID]Handler)}
}

// On registers h for the given event and returns the id needed to remove it.
func (e *Emitter) On(event EventType, h Handler) HandlerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[HandlerID]Handler)
	}
	e.handlers[event][id] = h
	return id
}

// Off removes the handler registered under id. Removing an unknown id is a
// no-op so teardown can be retried safely.
func (e *Emitter) Off(event EventType, id HandlerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handlers[event], id)
}

// Emit dispatches ev to every handler subscribed to ev.Type. Handlers run
// outside the emitter lock so they may subscribe or unsubscribe freely.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	hs := make([]Handler, 0, len(e.handlers[ev.Type]))
	for _, h := range e.handlers[ev.Type] {
		hs = append(hs, h)
	}
	e.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

// HandlerCount reports how many handlers are subscribed to event. Used to
// verify subscriptions are torn down symmetrically.
func (e *Emitter) HandlerCount(event EventType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}
