package enrich

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/markopsai/chapii-demo/internal/extract"
	"github.com/markopsai/chapii-demo/internal/vapi"
)

// attemptDelays spaces the post-call polls. The vendor's analysis lands at an
// unpredictable moment after call end, so a few time-spaced guesses are made
// instead of backoff; merge idempotence makes repeats harmless.
var attemptDelays = []time.Duration{2 * time.Second, 5 * time.Second, 8 * time.Second}

// CallFetcher fetches the post-call detail payload.
type CallFetcher interface {
	GetCall(ctx context.Context, id string) (*vapi.Call, error)
}

// Enricher polls the call-detail endpoint after a call ends and merges any
// structured data it finds into the extracted record. Every failure is logged
// and swallowed; enrichment is strictly best-effort.
//
// Pending attempts are scoped to the call that scheduled them: starting
// enrichment for a new call, or CancelPending on call start, aborts attempts
// still queued for the previous call so its data cannot bleed into the
// current record.
type Enricher struct {
	calls  CallFetcher
	merge  func(extract.Data)
	notify func(fields []string)
	delays []time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds an Enricher. merge receives normalized records; notify, if
// non-nil, receives the canonical names of fields captured by an attempt.
func New(calls CallFetcher, merge func(extract.Data), notify func(fields []string)) *Enricher {
	return &Enricher{calls: calls, merge: merge, notify: notify, delays: attemptDelays}
}

// Schedule queues the delayed attempts for the call described by payload.
// Without a resolvable call id nothing is fetched.
func (e *Enricher) Schedule(payload any) {
	id, ok := ResolveCallID(payload)
	if !ok {
		log.Printf("enrich: no call id in call-end payload (%T); skipping", payload)
		return
	}

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	log.Printf("enrich: scheduling %d attempts for call %s", len(e.delays), id)
	for _, delay := range e.delays {
		go e.attempt(ctx, id, delay)
	}
}

// CancelPending aborts attempts still queued for the previous call.
func (e *Enricher) CancelPending() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Enricher) attempt(ctx context.Context, callID string, delay time.Duration) {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}

	call, err := e.calls.GetCall(ctx, callID)
	if err != nil {
		log.Printf("enrich: attempt after %s for call %s failed: %v", delay, callID, err)
		return
	}
	raw := call.Structured()
	if raw == nil {
		log.Printf("enrich: no structured data for call %s after %s", callID, delay)
		return
	}

	rec := Normalize(raw)
	e.merge(rec)

	captured := make([]string, 0, len(rec))
	for _, f := range canonicalFields {
		if rec[f] != "" {
			captured = append(captured, f)
		}
	}
	if len(captured) > 0 && e.notify != nil {
		e.notify(captured)
	}
}

// ResolveCallID digs the call id out of a call-end payload, trying the
// property names vendor builds have used and finally a bare string payload.
func ResolveCallID(payload any) (string, bool) {
	switch p := payload.(type) {
	case string:
		if p != "" {
			return p, true
		}
	case map[string]any:
		for _, key := range []string{"id", "callId", "call_id"} {
			if s, ok := p[key].(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

var canonicalFields = []string{
	extract.FieldName,
	extract.FieldEmail,
	extract.FieldIntent,
	extract.FieldCompany,
	extract.FieldPhone,
}

// keyVariants folds the key casings the analysis payload has shipped with
// into the canonical record shape. First present variant wins.
var keyVariants = []struct {
	canonical string
	keys      []string
}{
	{extract.FieldName, []string{"name", "Name"}},
	{extract.FieldEmail, []string{"email", "Email"}},
	{extract.FieldIntent, []string{"intent", "Intent"}},
	{extract.FieldCompany, []string{"company", "Company"}},
	{extract.FieldPhone, []string{"phone", "Phone", "phoneNumber"}},
}

// Normalize maps a raw structured-data object onto the canonical record.
// Only non-empty string values survive.
func Normalize(raw map[string]any) extract.Data {
	d := extract.Data{}
	for _, kv := range keyVariants {
		for _, key := range kv.keys {
			if s, ok := raw[key].(string); ok && s != "" {
				d[kv.canonical] = s
				break
			}
		}
	}
	return d
}
