package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"contactsift/internal/keywords"
	"contactsift/internal/matcher"
)

func TestHealthService_HealthCheck(t *testing.T) {
	store := NewArtifactStore(time.Minute, nil)
	defer store.Close()

	configured := &keywords.Snapshot{Keywords: keywords.NewSet("art"), Matcher: matcher.MustNew([]string{"art"}), Version: 1}

	tests := []struct {
		name   string
		snap   *keywords.Snapshot
		err    error
		status string
	}{
		{"ready", configured, nil, "ok"},
		{"no keywords", &keywords.Snapshot{}, nil, "degraded"},
		{"load error", nil, errors.New("permission denied"), "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &mockKeywordSource{}
			source.On("Snapshot", mock.Anything).Return(tt.snap, tt.err)

			hs := NewHealthService("1.2.0", source, store, nil)
			got := hs.HealthCheck(context.Background())

			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, "1.2.0", got.Version)
			assert.Equal(t, "ready", got.Services["artifacts"].Status)
		})
	}
}

func TestHealthService_MissingDependencies(t *testing.T) {
	hs := NewHealthService("1.2.0", nil, nil, nil)
	got := hs.HealthCheck(context.Background())
	assert.Equal(t, "not_ready", got.Status)
	assert.Equal(t, "not_ready", got.Services["keywords"].Status)
}

func TestHealthService_Version(t *testing.T) {
	hs := NewHealthService("1.2.0", nil, nil, nil)
	v := hs.Version()
	assert.Equal(t, "1.2.0", v["version"])
	assert.Equal(t, "v1", v["api_version"])
	assert.Contains(t, v, "go_version")

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
}
