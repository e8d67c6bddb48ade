// Package challenge owns the liveness challenge lifecycle: issuing signed
// challenges, looking them up, and consuming them exactly once.
package challenge

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-Sigroha/kyc/internal/domain"
)

// ConsumeResult is the outcome of a consume attempt.
type ConsumeResult int

const (
	ConsumeOK ConsumeResult = iota
	ConsumeExpired
	ConsumeInvalidSignature
	ConsumeNotFound
	ConsumeAlreadyConsumed
)

func (r ConsumeResult) String() string {
	switch r {
	case ConsumeOK:
		return "ok"
	case ConsumeExpired:
		return "expired"
	case ConsumeInvalidSignature:
		return "invalid_signature"
	case ConsumeNotFound:
		return "not_found"
	case ConsumeAlreadyConsumed:
		return "already_consumed"
	default:
		return "unknown"
	}
}

const (
	// nonceBytes is the nonce entropy (128 bits).
	nonceBytes = 16

	// evictScanLimit bounds the opportunistic expiry scan done on each
	// mutation.
	evictScanLimit = 8

	// sweepInterval is how often the background sweeper walks the whole map.
	sweepInterval = 30 * time.Second
)

type record struct {
	challenge domain.Challenge
	consumed  bool
}

// Store is the process-wide challenge map. A single mutex serializes all
// mutations, which makes issue and consume linearizable per id; reads take
// the same lock and hand out copies, never the stored record.
type Store struct {
	secret []byte
	ttl    time.Duration
	count  int

	mu      sync.Mutex
	records map[string]*record

	// now is swappable for tests.
	now func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// Option tunes a Store.
type Option func(*Store)

// WithClock overrides the store's wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore builds a challenge store. secret signs every challenge; ttl is
// the challenge lifetime; count is how many predicates each challenge
// carries.
func NewStore(secret []byte, ttl time.Duration, count int, opts ...Option) *Store {
	s := &Store{
		secret:  secret,
		ttl:     ttl,
		count:   count,
		records: make(map[string]*record),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSweeper launches the periodic expiry sweep. Stop shuts it down.
func (s *Store) StartSweeper() {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Stop terminates the background sweeper.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Issue creates, signs and stores a new challenge.
func (s *Store) Issue() (domain.Challenge, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return domain.Challenge{}, fmt.Errorf("generate nonce: %w", err)
	}

	predicates := make([]domain.Predicate, s.count)
	for i := range predicates {
		pick, err := rand.Int(rand.Reader, big.NewInt(int64(len(domain.Predicates))))
		if err != nil {
			return domain.Challenge{}, fmt.Errorf("pick predicate: %w", err)
		}
		predicates[i] = domain.Predicates[pick.Int64()]
	}

	now := s.now()
	ch := domain.Challenge{
		ID:         uuid.New().String(),
		Predicates: predicates,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
		Nonce:      hex.EncodeToString(nonce),
	}
	ch.Signature = Sign(s.secret, ch.ID, ch.Nonce, ch.Predicates, ch.ExpiresAt)

	s.mu.Lock()
	s.evictSomeLocked(now)
	s.records[ch.ID] = &record{challenge: ch}
	s.mu.Unlock()

	return ch, nil
}

// Lookup returns a snapshot of the challenge, or false when it is unknown,
// consumed, or expired. Expired records are dropped on access.
func (s *Store) Lookup(id string) (domain.Challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.consumed {
		return domain.Challenge{}, false
	}
	if rec.challenge.Expired(s.now()) {
		delete(s.records, id)
		return domain.Challenge{}, false
	}
	return rec.challenge, true
}

// Consume atomically verifies the claimed signature and retires the
// challenge. At most one call per id ever returns ConsumeOK.
func (s *Store) Consume(id, claimedSignature string) ConsumeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// Take the target before the opportunistic scan, which would otherwise
	// drop an expired target and report it as not found.
	rec, ok := s.records[id]
	s.evictSomeLocked(now)
	if !ok {
		return ConsumeNotFound
	}
	if rec.consumed {
		return ConsumeAlreadyConsumed
	}
	if rec.challenge.Expired(now) {
		delete(s.records, id)
		return ConsumeExpired
	}
	ch := rec.challenge
	if !VerifySignature(s.secret, claimedSignature, ch.ID, ch.Nonce, ch.Predicates, ch.ExpiresAt) {
		return ConsumeInvalidSignature
	}

	// Keep a consumed tombstone until expiry so duplicate verifies get a
	// distinct answer instead of NOT_FOUND.
	rec.consumed = true
	return ConsumeOK
}

// Len reports how many records the store currently holds.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// evictSomeLocked drops up to evictScanLimit expired entries. Caller holds mu.
func (s *Store) evictSomeLocked(now time.Time) {
	scanned := 0
	for id, rec := range s.records {
		if scanned >= evictScanLimit {
			return
		}
		scanned++
		if rec.challenge.Expired(now) {
			delete(s.records, id)
		}
	}
}

// sweep removes every expired record.
func (s *Store) sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.records {
		if rec.challenge.Expired(now) {
			delete(s.records, id)
		}
	}
}
