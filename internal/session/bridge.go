package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/markopsai/chapii-demo/internal/extract"
)

// Status is the call lifecycle state.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusLoading  Status = "loading"
	StatusActive   Status = "active"
)

// ErrAssistantRequired is returned by Start when no assistant id is supplied.
// The vendor SDK is never contacted in that case.
var ErrAssistantRequired = errors.New("assistant required")

// Bridge projects the event stream of an EventSource into local call state:
// lifecycle status, speech activity, audio level, the in-progress partial
// transcript, the finalized message log, and the extracted data record.
type Bridge struct {
	source EventSource

	mu           sync.Mutex
	status       Status
	speechActive bool
	audioLevel   float64
	active       *Message
	messages     []Message
	extracted    extract.Data
	subs         map[EventType]HandlerID

	onCallStart func()
	onCallEnd   func(payload any)
}

// NewBridge wraps source. Call Attach before starting a session and Detach on
// teardown.
func NewBridge(source EventSource) *Bridge {
	return &Bridge{
		source:    source,
		status:    StatusInactive,
		extracted: extract.Data{},
	}
}

// OnCallStart registers a hook invoked after the status flips to active.
// Must be set before Attach.
func (b *Bridge) OnCallStart(fn func()) { b.onCallStart = fn }

// OnCallEnd registers a hook invoked with the vendor's call-end payload after
// the status flips to inactive. Must be set before Attach.
func (b *Bridge) OnCallEnd(fn func(payload any)) { b.onCallEnd = fn }

// Attach subscribes the bridge to the source's event stream. Attaching twice
// without an intervening Detach is a no-op; every subscription made here is
// removed again by Detach so repeated cycles never leak handlers.
func (b *Bridge) Attach() {
	b.mu.Lock()
	if b.subs != nil {
		b.mu.Unlock()
		return
	}
	b.subs = make(map[EventType]HandlerID)
	b.mu.Unlock()

	on := func(event EventType, h Handler) {
		id := b.source.On(event, h)
		b.mu.Lock()
		b.subs[event] = id
		b.mu.Unlock()
	}
	on(EventSpeechStart, b.handleSpeechStart)
	on(EventSpeechEnd, b.handleSpeechEnd)
	on(EventCallStart, b.handleCallStart)
	on(EventCallEnd, b.handleCallEnd)
	on(EventVolumeLevel, b.handleVolumeLevel)
	on(EventMessage, b.handleMessage)
	on(EventError, b.handleError)
}

// Detach removes every subscription made by Attach.
func (b *Bridge) Detach() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for event, id := range subs {
		b.source.Off(event, id)
	}
}

// Start begins a session with the given assistant. With an empty assistant id
// it fails immediately without contacting the source. On source failure the
// status reverts to inactive and the error is returned; there is no retry.
func (b *Bridge) Start(ctx context.Context, assistantID string) error {
	if assistantID == "" {
		log.Println("session: no assistant selected; refusing to start")
		b.setStatus(StatusInactive)
		return ErrAssistantRequired
	}
	b.setStatus(StatusLoading)
	if err := b.source.Start(ctx, assistantID); err != nil {
		log.Printf("session: start failed: %v", err)
		b.setStatus(StatusInactive)
		return err
	}
	return nil
}

// Stop requests session termination. The status goes to loading optimistically;
// the inactive transition happens only when the call-end event arrives.
func (b *Bridge) Stop() error {
	b.setStatus(StatusLoading)
	if err := b.source.Stop(); err != nil {
		log.Printf("session: stop failed: %v", err)
		return err
	}
	return nil
}

// Toggle stops an active session or starts a new one. While a transition is
// already in flight (loading) it is a deliberate no-op: neither start nor stop
// is safe to re-enter mid-transition.
func (b *Bridge) Toggle(ctx context.Context, assistantID string) error {
	switch b.Status() {
	case StatusActive:
		return b.Stop()
	case StatusLoading:
		return nil
	default:
		return b.Start(ctx, assistantID)
	}
}

// Status returns the current lifecycle state.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Snapshot is a point-in-time copy of the bridge state for the UI layer.
type Snapshot struct {
	Status           Status       `json:"status"`
	SpeechActive     bool         `json:"speechActive"`
	AudioLevel       float64      `json:"audioLevel"`
	ActiveTranscript *Message     `json:"activeTranscript,omitempty"`
	Messages         []Message    `json:"messages"`
	Extracted        extract.Data `json:"extracted"`
}

// Snapshot copies the current state. The message log and record are cloned so
// callers can serialize them without racing the event handlers.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := Snapshot{
		Status:       b.status,
		SpeechActive: b.speechActive,
		AudioLevel:   b.audioLevel,
		Messages:     make([]Message, len(b.messages)),
		Extracted:    make(extract.Data, len(b.extracted)),
	}
	copy(snap.Messages, b.messages)
	for k, v := range b.extracted {
		snap.Extracted[k] = v
	}
	if b.active != nil {
		m := *b.active
		snap.ActiveTranscript = &m
	}
	return snap
}

// MergeExtracted folds d into the accumulated record. Empty values never
// erase fields already captured.
func (b *Bridge) MergeExtracted(d extract.Data) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.extracted = extract.Merge(b.extracted, d)
}

// Extracted returns a copy of the accumulated record.
func (b *Bridge) Extracted() extract.Data {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(extract.Data, len(b.extracted))
	for k, v := range b.extracted {
		out[k] = v
	}
	return out
}

// ClearExtracted drops the accumulated record. Only an explicit user action
// clears captured fields.
func (b *Bridge) ClearExtracted() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.extracted = extract.Data{}
}

func (b *Bridge) setStatus(s Status) {
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}

func (b *Bridge) handleSpeechStart(Event) {
	b.mu.Lock()
	b.speechActive = true
	b.mu.Unlock()
}

func (b *Bridge) handleSpeechEnd(Event) {
	b.mu.Lock()
	b.speechActive = false
	b.mu.Unlock()
}

func (b *Bridge) handleCallStart(Event) {
	log.Println("session: call started")
	b.setStatus(StatusActive)
	if b.onCallStart != nil {
		b.onCallStart()
	}
}

func (b *Bridge) handleCallEnd(ev Event) {
	log.Println("session: call ended")
	b.setStatus(StatusInactive)
	if b.onCallEnd != nil {
		b.onCallEnd(ev.Call)
	}
}

func (b *Bridge) handleVolumeLevel(ev Event) {
	b.mu.Lock()
	b.audioLevel = ev.Volume
	b.mu.Unlock()
}

func (b *Bridge) handleMessage(ev Event) {
	m := ev.Message
	if m == nil {
		return
	}
	if m.Type == MessageTypeTranscript && m.TranscriptType == TranscriptPartial {
		b.mu.Lock()
		b.active = m
		b.mu.Unlock()
		return
	}

	b.mu.Lock()
	b.messages = append(b.messages, *m)
	b.active = nil
	b.mu.Unlock()

	// Fold whatever the message yields into the record as it arrives.
	switch m.Type {
	case MessageTypeTranscript:
		b.MergeExtracted(extract.FromTranscript(m.Transcript, m.Role))
	case MessageTypeFunctionCallResult:
		b.MergeExtracted(extract.FromFunctionResult(m.Result))
	}
}

func (b *Bridge) handleError(ev Event) {
	log.Printf("session: error event: %v", ev.Err)
	b.setStatus(StatusInactive)
}
