package assistant

import (
	"context"
	"log"
	"sync"

	"github.com/markopsai/chapii-demo/internal/vapi"
)

// API is the slice of the vendor client the directory needs.
type API interface {
	ListAssistants(ctx context.Context) ([]vapi.Assistant, error)
	GetAssistant(ctx context.Context, id string) (*vapi.Assistant, error)
}

// Directory caches the fetched assistant set and tracks the selection. The
// first assistant is auto-selected when nothing is selected yet; manual
// selection looks up by id within the cached set without refetching.
//
// A failed refresh leaves the list empty but keeps the error around, so
// "no assistants exist" and "fetch failed" stay distinguishable.
type Directory struct {
	api API

	mu         sync.Mutex
	assistants []vapi.Assistant
	selectedID string
	lastErr    error
}

func NewDirectory(api API) *Directory {
	return &Directory{api: api}
}

// Refresh fetches the assistant list. On failure the cached list is emptied
// and the error recorded and returned; the caller decides whether to surface
// or just log it.
func (d *Directory) Refresh(ctx context.Context) error {
	assistants, err := d.api.ListAssistants(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		log.Printf("assistant: refresh failed: %v", err)
		d.assistants = nil
		d.lastErr = err
		return err
	}
	d.assistants = assistants
	d.lastErr = nil
	if d.selectedID == "" && len(assistants) > 0 {
		d.selectedID = assistants[0].ID
		log.Printf("assistant: auto-selected %s (%s)", assistants[0].ID, assistants[0].Name)
	}
	return nil
}

// Assistants returns a copy of the cached list.
func (d *Directory) Assistants() []vapi.Assistant {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]vapi.Assistant, len(d.assistants))
	copy(out, d.assistants)
	return out
}

// Select picks an assistant by id from the cached set. Unknown ids leave the
// selection untouched and report false.
func (d *Directory) Select(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.assistants {
		if a.ID == id {
			d.selectedID = id
			return true
		}
	}
	return false
}

// Selected returns the selected assistant, if any.
func (d *Directory) Selected() (vapi.Assistant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.assistants {
		if a.ID == d.selectedID {
			return a, true
		}
	}
	return vapi.Assistant{}, false
}

// SelectedID returns the selected assistant id, or "" when none is selected.
func (d *Directory) SelectedID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectedID
}

// Fetch retrieves one assistant by id, preferring the cached set and falling
// back to a direct GET for ids the list has not shown. A failed fetch yields
// an absent result, not an error.
func (d *Directory) Fetch(ctx context.Context, id string) (vapi.Assistant, bool) {
	d.mu.Lock()
	for _, a := range d.assistants {
		if a.ID == id {
			d.mu.Unlock()
			return a, true
		}
	}
	d.mu.Unlock()

	a, err := d.api.GetAssistant(ctx, id)
	if err != nil {
		log.Printf("assistant: fetch %s failed: %v", id, err)
		return vapi.Assistant{}, false
	}
	return *a, true
}

// Err returns the error of the last refresh, or nil when it succeeded.
func (d *Directory) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}
