package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/markopsai/chapii-demo/internal/extract"
	"github.com/markopsai/chapii-demo/internal/vapi"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	results []*vapi.Call
	err     error
}

func (f *fakeFetcher) GetCall(_ context.Context, id string) (*vapi.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// record collects merged data the way the bridge does.
type record struct {
	mu   sync.Mutex
	data extract.Data
}

func (r *record) merge(d extract.Data) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		r.data = extract.Data{}
	}
	r.data = extract.Merge(r.data, d)
}

func (r *record) get(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[key]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestEnricher_MergesStructuredData(t *testing.T) {
	fetcher := &fakeFetcher{results: []*vapi.Call{
		{ID: "call_1", Analysis: &vapi.Analysis{StructuredData: map[string]any{"Email": "a@b.com", "name": "Alice"}}},
	}}
	rec := &record{}
	var notified [][]string
	var nmu sync.Mutex
	e := New(fetcher, rec.merge, func(fields []string) {
		nmu.Lock()
		notified = append(notified, fields)
		nmu.Unlock()
	})
	e.delays = []time.Duration{time.Millisecond}

	e.Schedule(map[string]any{"id": "call_1"})
	waitFor(t, func() bool { return rec.get(extract.FieldEmail) == "a@b.com" })
	if rec.get(extract.FieldName) != "Alice" {
		t.Fatalf("name not merged: %v", rec.data)
	}
	nmu.Lock()
	defer nmu.Unlock()
	if len(notified) == 0 {
		t.Fatalf("expected a capture notification")
	}
}

func TestEnricher_LaterEmptyResultNeverErases(t *testing.T) {
	fetcher := &fakeFetcher{results: []*vapi.Call{
		{ID: "call_1", Analysis: &vapi.Analysis{StructuredData: map[string]any{"email": "a@b.com"}}},
		{ID: "call_1"}, // no structured data anywhere
		{ID: "call_1"},
	}}
	rec := &record{}
	e := New(fetcher, rec.merge, nil)
	e.delays = []time.Duration{time.Millisecond, 3 * time.Millisecond, 5 * time.Millisecond}

	e.Schedule(map[string]any{"id": "call_1"})
	waitFor(t, func() bool { return fetcher.callCount() == 3 })
	if rec.get(extract.FieldEmail) != "a@b.com" {
		t.Fatalf("empty later attempt erased email: %v", rec.data)
	}
}

func TestEnricher_CancelPendingStopsAttempts(t *testing.T) {
	fetcher := &fakeFetcher{results: []*vapi.Call{{ID: "call_1"}}}
	rec := &record{}
	e := New(fetcher, rec.merge, nil)
	e.delays = []time.Duration{50 * time.Millisecond}

	e.Schedule(map[string]any{"id": "call_1"})
	e.CancelPending()
	time.Sleep(80 * time.Millisecond)
	if fetcher.callCount() != 0 {
		t.Fatalf("expected cancelled attempt not to fetch, got %d calls", fetcher.callCount())
	}
}

func TestEnricher_ReschedulingCancelsPreviousCall(t *testing.T) {
	fetcher := &fakeFetcher{results: []*vapi.Call{{ID: "x"}}}
	rec := &record{}
	e := New(fetcher, rec.merge, nil)
	e.delays = []time.Duration{50 * time.Millisecond}

	e.Schedule(map[string]any{"id": "call_old"})
	e.Schedule(map[string]any{"id": "call_new"})
	time.Sleep(80 * time.Millisecond)
	// Only the attempts of the second schedule may fire.
	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("expected 1 fetch from the new call only, got %d", got)
	}
}

func TestEnricher_FetchErrorIsSwallowed(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	rec := &record{}
	e := New(fetcher, rec.merge, nil)
	e.delays = []time.Duration{time.Millisecond}

	e.Schedule("call_1")
	time.Sleep(30 * time.Millisecond)
	if len(rec.data) != 0 {
		t.Fatalf("expected nothing merged on fetch error")
	}
}

func TestEnricher_SkipsWithoutCallID(t *testing.T) {
	fetcher := &fakeFetcher{results: []*vapi.Call{{ID: "x"}}}
	e := New(fetcher, (&record{}).merge, nil)
	e.delays = []time.Duration{time.Millisecond}

	e.Schedule(map[string]any{"reason": "hangup"})
	e.Schedule(42)
	time.Sleep(20 * time.Millisecond)
	if fetcher.callCount() != 0 {
		t.Fatalf("expected no fetch without a call id")
	}
}

func TestResolveCallID(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    string
		ok      bool
	}{
		{"id", map[string]any{"id": "a"}, "a", true},
		{"callId", map[string]any{"callId": "b"}, "b", true},
		{"call_id", map[string]any{"call_id": "c"}, "c", true},
		{"precedence", map[string]any{"call_id": "c", "id": "a"}, "a", true},
		{"bare_string", "d", "d", true},
		{"non_string_id", map[string]any{"id": 7}, "", false},
		{"empty", map[string]any{}, "", false},
		{"nil", nil, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveCallID(tc.payload)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("got (%q,%v) want (%q,%v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestNormalize_KeyVariants(t *testing.T) {
	d := Normalize(map[string]any{
		"Name":        "Alice",
		"email":       "a@b.com",
		"Intent":      "support",
		"phoneNumber": "5551234",
		"Company":     "",
		"age":         30,
	})
	if d[extract.FieldName] != "Alice" || d[extract.FieldEmail] != "a@b.com" {
		t.Fatalf("casing normalization failed: %v", d)
	}
	if d[extract.FieldIntent] != "support" || d[extract.FieldPhone] != "5551234" {
		t.Fatalf("variant keys not folded: %v", d)
	}
	if _, ok := d[extract.FieldCompany]; ok {
		t.Fatalf("empty value must be dropped: %v", d)
	}
	if len(d) != 4 {
		t.Fatalf("unexpected fields: %v", d)
	}
}
