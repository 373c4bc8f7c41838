package frontdesk

import (
	"sync"

	"github.com/google/uuid"

	"github.com/appetiteclub/frontdesk/pkg/booking"
)

// WizardEntry is a booking wizard owned by one session.
type WizardEntry struct {
	ID     uuid.UUID
	Wizard *booking.Wizard
}

// WizardRegistry keeps at most one open wizard per session.
type WizardRegistry struct {
	mu      sync.Mutex
	wizards map[string]*WizardEntry
}

func NewWizardRegistry() *WizardRegistry {
	return &WizardRegistry{
		wizards: make(map[string]*WizardEntry),
	}
}

// Open registers a new wizard for the session, discarding any previous one.
func (r *WizardRegistry) Open(sessionID string, wizard *booking.Wizard) *WizardEntry {
	entry := &WizardEntry{ID: uuid.New(), Wizard: wizard}

	r.mu.Lock()
	previous := r.wizards[sessionID]
	r.wizards[sessionID] = entry
	r.mu.Unlock()

	if previous != nil {
		previous.Wizard.Close()
	}
	return entry
}

func (r *WizardRegistry) Get(sessionID string) (*WizardEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.wizards[sessionID]
	return entry, ok
}

// Owns reports whether the given wizard is still the session's open wizard.
func (r *WizardRegistry) Owns(sessionID string, id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.wizards[sessionID]
	return ok && entry.ID == id
}

// Discard drops the session's wizard. An in-flight submit keeps running.
func (r *WizardRegistry) Discard(sessionID string) {
	r.mu.Lock()
	entry := r.wizards[sessionID]
	delete(r.wizards, sessionID)
	r.mu.Unlock()

	if entry != nil {
		entry.Wizard.Close()
	}
}

// DiscardIf drops the session's wizard only if it is still the given one.
func (r *WizardRegistry) DiscardIf(sessionID string, id uuid.UUID) {
	r.mu.Lock()
	entry, ok := r.wizards[sessionID]
	if !ok || entry.ID != id {
		r.mu.Unlock()
		return
	}
	delete(r.wizards, sessionID)
	r.mu.Unlock()

	entry.Wizard.Close()
}

func (r *WizardRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wizards)
}
