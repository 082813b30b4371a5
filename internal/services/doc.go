// Package services sits between the HTTP handlers and the pipeline
// packages.
//
// SiftService takes an uploaded workbook through parsing, gender tagging,
// keyword filtering and export, and returns a SiftResult with previews,
// conditions and a one-shot download ID. Workbooks live in an
// ArtifactStore in memory until they are downloaded or expire.
//
// HealthService reports keyword and store readiness for /api/health.
//
// Handlers map the sentinel errors in errors.go with errors.Is:
//
//	art, err := svc.Download(ctx, id)
//	if errors.Is(err, services.ErrArtifactNotFound) {
//	    // 404
//	}
package services
