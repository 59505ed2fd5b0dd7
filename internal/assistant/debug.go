package assistant

import (
	"sync"
	"time"

	"github.com/kalambet/bankassist/internal/usecase"
)

// DebugSize is the number of turns kept in the debug ring.
const DebugSize = 50

// DebugRecord traces how one turn was answered.
type DebugRecord struct {
	TurnID    string          `json:"turn_id"`
	SessionID string          `json:"session_id"`
	Query     string          `json:"query"`
	UseCase   usecase.UseCase `json:"use_case"`
	Steps     []string        `json:"steps"`
	At        time.Time       `json:"at"`
}

// DebugLog is a fixed-size ring of the latest turn traces.
type DebugLog struct {
	mu      sync.Mutex
	size    int
	next    int
	full    bool
	records []DebugRecord
}

func NewDebugLog(size int) *DebugLog {
	if size <= 0 {
		size = DebugSize
	}
	return &DebugLog{size: size, records: make([]DebugRecord, size)}
}

// Add stores r, overwriting the oldest record when full.
func (d *DebugLog) Add(r DebugRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[d.next] = r
	d.next = (d.next + 1) % d.size
	if d.next == 0 {
		d.full = true
	}
}

// Recent returns the stored records, newest first.
func (d *DebugLog) Recent() []DebugRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.next
	if d.full {
		n = d.size
	}
	out := make([]DebugRecord, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, d.records[(d.next-i+d.size)%d.size])
	}
	return out
}
