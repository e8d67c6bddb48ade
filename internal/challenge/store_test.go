package challenge

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-Sigroha/kyc/internal/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeClock is a settable wall clock for the store.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(clock *fakeClock) *Store {
	return NewStore(testSecret, 120*time.Second, 2, WithClock(clock.Now))
}

func TestIssue(t *testing.T) {
	store := newTestStore(newFakeClock())

	ch, err := store.Issue()
	require.NoError(t, err)

	assert.NoError(t, uuid.Validate(ch.ID))
	assert.Len(t, ch.Predicates, 2)
	for _, p := range ch.Predicates {
		assert.Contains(t, domain.Predicates, p)
	}
	assert.Len(t, ch.Nonce, 32) // 128-bit hex
	assert.Equal(t, 120*time.Second, ch.ExpiresAt.Sub(ch.IssuedAt))
	assert.True(t, VerifySignature(testSecret, ch.Signature, ch.ID, ch.Nonce, ch.Predicates, ch.ExpiresAt))
}

func TestLookup(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	ch, err := store.Issue()
	require.NoError(t, err)

	t.Run("returns issued challenge", func(t *testing.T) {
		got, ok := store.Lookup(ch.ID)
		require.True(t, ok)
		assert.Equal(t, ch.ID, got.ID)
		assert.Equal(t, ch.Signature, got.Signature)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, ok := store.Lookup(uuid.New().String())
		assert.False(t, ok)
	})

	t.Run("expired challenge is absent and removed", func(t *testing.T) {
		clock.Advance(121 * time.Second)
		_, ok := store.Lookup(ch.ID)
		assert.False(t, ok)
		assert.Zero(t, store.Len())
	})
}

func TestConsumeRoundTrip(t *testing.T) {
	store := newTestStore(newFakeClock())

	ch, err := store.Issue()
	require.NoError(t, err)

	// The signature from issue consumes cleanly within TTL.
	assert.Equal(t, ConsumeOK, store.Consume(ch.ID, ch.Signature))

	// Idempotence: a second consume never passes again.
	assert.Equal(t, ConsumeAlreadyConsumed, store.Consume(ch.ID, ch.Signature))

	// Consumed challenges are gone for readers.
	_, ok := store.Lookup(ch.ID)
	assert.False(t, ok)
}

func TestConsumeFailures(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	t.Run("not found", func(t *testing.T) {
		assert.Equal(t, ConsumeNotFound, store.Consume(uuid.New().String(), "sig"))
	})

	t.Run("invalid signature", func(t *testing.T) {
		ch, err := store.Issue()
		require.NoError(t, err)

		assert.Equal(t, ConsumeInvalidSignature, store.Consume(ch.ID, "deadbeef"))

		// A bad signature does not burn the challenge.
		assert.Equal(t, ConsumeOK, store.Consume(ch.ID, ch.Signature))
	})

	t.Run("expired", func(t *testing.T) {
		ch, err := store.Issue()
		require.NoError(t, err)

		clock.Advance(121 * time.Second)
		assert.Equal(t, ConsumeExpired, store.Consume(ch.ID, ch.Signature))
		assert.Equal(t, ConsumeNotFound, store.Consume(ch.ID, ch.Signature))
	})
}

// At most one concurrent consume wins.
func TestConsumeConcurrentSingleWinner(t *testing.T) {
	store := newTestStore(newFakeClock())

	ch, err := store.Issue()
	require.NoError(t, err)

	var okCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Consume(ch.ID, ch.Signature) == ConsumeOK {
				okCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), okCount.Load())
}

func TestOpportunisticEviction(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	for i := 0; i < 5; i++ {
		_, err := store.Issue()
		require.NoError(t, err)
	}
	assert.Equal(t, 5, store.Len())

	clock.Advance(121 * time.Second)

	// The next mutation scans a bounded batch and drops expired entries.
	ch, err := store.Issue()
	require.NoError(t, err)

	_, ok := store.Lookup(ch.ID)
	assert.True(t, ok)
	assert.Less(t, store.Len(), 6)
}

func TestSweepDropsExpired(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	for i := 0; i < 10; i++ {
		_, err := store.Issue()
		require.NoError(t, err)
	}

	clock.Advance(121 * time.Second)
	store.sweep()

	assert.Zero(t, store.Len())
}

func TestStopIsIdempotent(t *testing.T) {
	store := newTestStore(newFakeClock())
	store.StartSweeper()
	store.Stop()
	store.Stop()
}
