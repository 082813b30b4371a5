package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"contactsift/internal/exporter"
)

// ArtifactStore keeps finished workbooks in memory until they are
// downloaded once or expire. Nothing is written to disk.
type ArtifactStore struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu    sync.Mutex
	items map[string]storedArtifact

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type storedArtifact struct {
	artifact  *exporter.Artifact
	expiresAt time.Time
}

// NewArtifactStore creates a store and starts its cleanup loop. Close
// stops the loop.
func NewArtifactStore(ttl time.Duration, logger *slog.Logger) *ArtifactStore {
	return newArtifactStore(ttl, logger, time.Now)
}

func newArtifactStore(ttl time.Duration, logger *slog.Logger, now func() time.Time) *ArtifactStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ArtifactStore{
		ttl:    ttl,
		now:    now,
		logger: logger.With(slog.String("component", "artifact_store")),
		items:  make(map[string]storedArtifact),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.cleanupLoop(cleanupInterval(ttl))
	return s
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

// Put stores art and returns its download ID and expiry
func (s *ArtifactStore) Put(art *exporter.Artifact) (string, time.Time) {
	id := uuid.New().String()
	expires := s.now().Add(s.ttl)

	s.mu.Lock()
	s.items[id] = storedArtifact{artifact: art, expiresAt: expires}
	s.mu.Unlock()

	s.logger.Debug("artifact stored",
		slog.String("artifact_id", id),
		slog.String("filename", art.Filename),
		slog.Int("bytes", art.Size()),
		slog.Time("expires_at", expires))
	return id, expires
}

// Take removes and returns the artifact. A second Take of the same ID
// returns ErrArtifactNotFound.
func (s *ArtifactStore) Take(id string) (*exporter.Artifact, error) {
	s.mu.Lock()
	item, ok := s.items[id]
	if ok {
		delete(s.items, id)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrArtifactNotFound
	}
	if !s.now().Before(item.expiresAt) {
		return nil, ErrArtifactExpired
	}
	return item.artifact, nil
}

// Len returns the number of stored artifacts, expired ones included
func (s *ArtifactStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops expired artifacts and returns how many were removed
func (s *ArtifactStore) Sweep() int {
	now := s.now()
	removed := 0

	s.mu.Lock()
	for id, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("expired artifacts removed", slog.Int("count", removed))
	}
	return removed
}

func (s *ArtifactStore) cleanupLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Close stops the cleanup loop and drops every artifact
func (s *ArtifactStore) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		s.items = make(map[string]storedArtifact)
		s.mu.Unlock()
	})
}
