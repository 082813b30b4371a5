package keywords

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"contactsift/internal/matcher"
)

// Snapshot is one expanded keyword configuration and its compiled matcher.
// Snapshots are read-only and shared by concurrent runs.
type Snapshot struct {
	Keywords    Set
	Matcher     *matcher.Matcher // nil when Keywords is empty
	Fingerprint string
	LoadedAt    time.Time
	Version     int
}

// Configured reports whether filtering is possible
func (s *Snapshot) Configured() bool {
	return s != nil && s.Matcher != nil
}

// Expander caches the expanded keyword set and matcher for the current
// configuration version. Rebuilds happen only when the content changes.
type Expander struct {
	provider Provider
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current *Snapshot
	version int

	group singleflight.Group
}

// NewExpander creates an expander over provider
func NewExpander(provider Provider, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{
		provider: provider,
		logger:   logger.With(slog.String("component", "keyword_expander")),
		now:      time.Now,
	}
}

// Snapshot returns the cached snapshot, loading it on first use
func (e *Expander) Snapshot(ctx context.Context) (*Snapshot, error) {
	e.mu.RLock()
	cur := e.current
	e.mu.RUnlock()
	if cur != nil {
		return cur, nil
	}
	snap, _, err := e.Reload(ctx)
	return snap, err
}

// Reload re-reads the provider. It returns the active snapshot and whether
// it changed. Concurrent calls share one load.
func (e *Expander) Reload(ctx context.Context) (*Snapshot, bool, error) {
	type result struct {
		snap    *Snapshot
		changed bool
	}

	v, err, _ := e.group.Do("reload", func() (interface{}, error) {
		snap, changed, err := e.reload(ctx)
		return result{snap, changed}, err
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(result)
	return r.snap, r.changed, nil
}

func (e *Expander) reload(ctx context.Context) (*Snapshot, bool, error) {
	cfg, err := e.provider.Load(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "keyword configuration load failed", slog.String("error", err.Error()))
		return nil, false, err
	}

	set := Expand(cfg.Base, cfg.Translations)
	fp := fingerprint(set)

	e.mu.RLock()
	cur := e.current
	e.mu.RUnlock()
	if cur != nil && cur.Fingerprint == fp {
		e.logger.DebugContext(ctx, "keyword configuration unchanged",
			slog.String("fingerprint", fp[:12]))
		return cur, false, nil
	}

	m, err := matcher.New(set.Words())
	if err != nil && !errors.Is(err, matcher.ErrNoKeywords) {
		return nil, false, fmt.Errorf("failed to compile keyword matcher: %w", err)
	}

	e.mu.Lock()
	e.version++
	snap := &Snapshot{
		Keywords:    set,
		Matcher:     m,
		Fingerprint: fp,
		LoadedAt:    e.now(),
		Version:     e.version,
	}
	e.current = snap
	e.mu.Unlock()

	attrs := []any{
		slog.Int("keywords", set.Len()),
		slog.Int("base", len(cfg.Base)),
		slog.Int("translations", len(cfg.Translations)),
		slog.Int("version", snap.Version),
	}
	if set.Empty() {
		e.logger.WarnContext(ctx, "no filter words configured", attrs...)
	} else {
		e.logger.InfoContext(ctx, "keyword matcher rebuilt", attrs...)
	}
	return snap, true, nil
}

// Invalidate drops the cached snapshot; the next Snapshot call reloads
func (e *Expander) Invalidate() {
	e.mu.Lock()
	e.current = nil
	e.mu.Unlock()
}

func fingerprint(s Set) string {
	sum := sha256.Sum256([]byte(strings.Join(s.words, "\n")))
	return hex.EncodeToString(sum[:])
}
