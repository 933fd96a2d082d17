package newswatch

import (
	"sync"
	"time"
)

// Ledger tracks headline fingerprints seen within the trading day.
// Check-then-insert is atomic under one mutex so concurrent pollers
// can never both claim the same fingerprint.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]time.Time)}
}

// MarkSeen records fingerprint and reports true only on first sight.
func (l *Ledger) MarkSeen(fingerprint string, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[fingerprint]; ok {
		return false
	}
	l.seen[fingerprint] = at
	return true
}

// Len reports the number of fingerprints recorded today.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Reset clears the ledger at the daily boundary.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.seen = make(map[string]time.Time)
	l.mu.Unlock()
}
