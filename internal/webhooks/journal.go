package webhooks

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"meetpoint/internal/types"
)

// DefaultJournalCapacity is the number of dispatch records the journal
// retains before overwriting the oldest.
const DefaultJournalCapacity = 512

// JournalEntry is one recorded dispatch: the trigger, the shared createdAt
// timestamp, and the outcome of every subscriber pipeline.
type JournalEntry struct {
	Trigger    types.TriggerEvent `json:"trigger"`
	CreatedAt  string             `json:"createdAt"`
	RecordedAt time.Time          `json:"recordedAt"`
	Outcomes   []DeliveryOutcome  `json:"outcomes"`
}

// DeliveryJournal is a fixed-capacity in-memory ring of recent dispatch
// records, kept for operational diagnostics only. Nothing here is durable;
// losing the journal loses nothing but hindsight.
type DeliveryJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
	next    int
	full    bool
	clock   types.Clock
}

// NewDeliveryJournal creates a journal holding up to capacity dispatch
// records. A non-positive capacity falls back to DefaultJournalCapacity.
func NewDeliveryJournal(capacity int) *DeliveryJournal {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &DeliveryJournal{
		entries: make([]JournalEntry, capacity),
		clock:   types.RealClock{},
	}
}

// Record appends one dispatch record, overwriting the oldest when full.
func (j *DeliveryJournal) Record(trigger types.TriggerEvent, createdAt string, outcomes []DeliveryOutcome) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[j.next] = JournalEntry{
		Trigger:    trigger,
		CreatedAt:  createdAt,
		RecordedAt: j.clock.Now(),
		Outcomes:   outcomes,
	}
	j.next++
	if j.next == len(j.entries) {
		j.next = 0
		j.full = true
	}
}

// Snapshot returns the recorded entries, oldest first.
func (j *DeliveryJournal) Snapshot() []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.full {
		out := make([]JournalEntry, j.next)
		copy(out, j.entries[:j.next])
		return out
	}

	out := make([]JournalEntry, 0, len(j.entries))
	out = append(out, j.entries[j.next:]...)
	out = append(out, j.entries[:j.next]...)
	return out
}

// ExportZstd writes the journal snapshot as zstd-compressed JSON lines,
// one entry per line. Used by the ops export endpoint.
func (j *DeliveryJournal) ExportZstd(w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	for _, entry := range j.Snapshot() {
		if err := enc.Encode(entry); err != nil {
			zw.Close()
			return fmt.Errorf("encoding journal entry: %w", err)
		}
	}

	return zw.Close()
}
