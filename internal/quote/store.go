package quote

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the process-local registry of outstanding quotes. A quote enters at
// pricing time and leaves either by consumption (settlement reached the ledger)
// or by expiry sweep. Consume is the single-use gate: it succeeds for at most
// one caller per quote.
type Store struct {
	mu     sync.Mutex
	quotes map[uuid.UUID]*Quote
}

func NewStore() *Store {
	return &Store{quotes: make(map[uuid.UUID]*Quote)}
}

func (s *Store) Put(q *Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.ID] = q
}

// Get returns the quote without consuming it.
func (s *Store) Get(id uuid.UUID) (*Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	return q, ok
}

// Consume removes and returns the quote. The second caller for the same id
// gets ok=false.
func (s *Store) Consume(id uuid.UUID) (*Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if ok {
		delete(s.quotes, id)
	}
	return q, ok
}

// PurgeExpired drops quotes past their expiry and returns how many were removed.
func (s *Store) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, q := range s.quotes {
		if q.Expired(now) {
			delete(s.quotes, id)
			n++
		}
	}
	return n
}
