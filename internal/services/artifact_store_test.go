package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"contactsift/internal/exporter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
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

func artifact(name string) *exporter.Artifact {
	return &exporter.Artifact{Filename: name, Data: []byte("PK"), Sheets: []string{"A"}}
}

func TestArtifactStore_TakeOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	s := newArtifactStore(time.Minute, nil, clock.Now)
	defer s.Close()

	id, expires := s.Put(artifact("a.xlsx"))
	assert.NotEmpty(t, id)
	assert.Equal(t, clock.Now().Add(time.Minute), expires)
	assert.Equal(t, 1, s.Len())

	got, err := s.Take(id)
	require.NoError(t, err)
	assert.Equal(t, "a.xlsx", got.Filename)

	_, err = s.Take(id)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestArtifactStore_Expiry(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock()
	s := newArtifactStore(time.Minute, nil, clock.Now)
	defer s.Close()

	expired, _ := s.Put(artifact("old.xlsx"))
	clock.Advance(30 * time.Second)
	fresh, _ := s.Put(artifact("new.xlsx"))
	clock.Advance(30 * time.Second)

	_, err := s.Take(expired)
	assert.ErrorIs(t, err, ErrArtifactExpired)

	assert.Equal(t, 0, s.Sweep())
	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, s.Sweep())

	_, err = s.Take(fresh)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestArtifactStore_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewArtifactStore(time.Hour, nil)
	s.Put(artifact("a.xlsx"))
	s.Close()
	s.Close()
	assert.Equal(t, 0, s.Len())
}

func TestArtifactStore_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewArtifactStore(time.Hour, nil)
	defer s.Close()

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := s.Put(artifact("x.xlsx"))
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	taken := 0
	for id := range ids {
		if _, err := s.Take(id); err == nil {
			taken++
		}
	}
	assert.Equal(t, n, taken)
}

func TestCleanupInterval(t *testing.T) {
	assert.Equal(t, time.Second, cleanupInterval(time.Millisecond))
	assert.Equal(t, 5*time.Second, cleanupInterval(10*time.Second))
	assert.Equal(t, time.Minute, cleanupInterval(time.Hour))
}
