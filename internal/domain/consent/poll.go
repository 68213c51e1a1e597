package consent

import "sync"

// PollTracker remembers the pending-request count last seen per patient so
// the inbox can flag "new requests since your last check" across polls.
type PollTracker struct {
	mu   sync.Mutex
	seen map[string]int
}

func NewPollTracker() *PollTracker {
	return &PollTracker{seen: make(map[string]int)}
}

// Check records the current pending count for the patient and reports whether
// it rose since the previous check. The first check never flags.
func (t *PollTracker) Check(patientID string, pending int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, known := t.seen[patientID]
	t.seen[patientID] = pending
	return known && pending > last
}
