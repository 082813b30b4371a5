package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"contactsift/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	keywords  KeywordSource
	store     *ArtifactStore
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. keywords and store may be nil
// in tests; they are then reported as not ready.
func NewHealthService(version string, keywords KeywordSource, store *ArtifactStore, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		keywords:  keywords,
		store:     store,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status. An empty keyword list is
// reported as degraded: uploads still work but nothing is filtered.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"keywords":  hs.checkKeywords(ctx),
			"artifacts": hs.checkStore(),
		},
	}

	for _, sh := range status.Services {
		switch sh.Status {
		case "not_ready":
			status.Status = "not_ready"
		case "degraded":
			if status.Status == "ok" {
				status.Status = "degraded"
			}
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      hs.version,
		"api_version":  info.APIVersion,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkKeywords(ctx context.Context) ServiceHealth {
	if hs.keywords == nil {
		return ServiceHealth{Status: "not_ready", Message: "keyword source not initialized"}
	}
	snap, err := hs.keywords.Snapshot(ctx)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("Keyword error: %v", err)}
	}
	if !snap.Configured() {
		return ServiceHealth{Status: "degraded", Message: "No filter words are configured"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d keywords loaded (version %d)", snap.Keywords.Len(), snap.Version),
	}
}

func (hs *HealthService) checkStore() ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: "not_ready", Message: "artifact store not initialized"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d downloads pending", hs.store.Len()),
	}
}
