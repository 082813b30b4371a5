package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"contactsift/internal/config"
	"contactsift/internal/dataprocessing"
	apperrors "contactsift/internal/errors"
	"contactsift/internal/exporter"
	"contactsift/internal/gender"
	"contactsift/internal/infrastructure"
	"contactsift/internal/keywords"
	"contactsift/internal/operations"
	"contactsift/pkg/contracts/domain"
)

// lastNameColumn is shown in the gender preview when the upload has it
const lastNameColumn = "last name"

// KeywordSource supplies the active keyword snapshot
type KeywordSource interface {
	Snapshot(ctx context.Context) (*keywords.Snapshot, error)
	Reload(ctx context.Context) (*keywords.Snapshot, bool, error)
}

// Upload is one uploaded workbook
type Upload struct {
	Filename string
	Reader   io.Reader
}

// SiftOptions overrides the configured classification per request. Empty
// fields fall back to the configuration.
type SiftOptions struct {
	PartitionMode string `json:"partition_mode" validate:"omitempty,oneof=copy split"`
	GenderOrder   string `json:"gender_order" validate:"omitempty,oneof=before after off"`
	FilteredSheet string `json:"filtered_sheet"`
}

// Preview is the first rows of a dataset
type Preview struct {
	Headers []string     `json:"headers"`
	Rows    []domain.Row `json:"rows"`
	Total   int          `json:"total"`
}

// StepSummary is the outcome of one pipeline step
type StepSummary struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Status    operations.StepStatus `json:"status"`
	Message   string                `json:"message,omitempty"`
	Condition *domain.Condition     `json:"condition,omitempty"`
}

// DownloadInfo describes a stored workbook
type DownloadInfo struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Size      int       `json:"size_bytes"`
	Sheets    []string  `json:"sheets"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SiftResult is everything one run produced
type SiftResult struct {
	RunID         string               `json:"run_id"`
	Filename      string               `json:"filename"`
	PartitionMode domain.PartitionMode `json:"partition_mode"`
	GenderOrder   domain.GenderOrder   `json:"gender_order"`
	Rows          int                  `json:"rows"`
	MatchedRows   int                  `json:"matched_rows"`
	Keywords      int                  `json:"keywords"`
	Conditions    domain.Conditions    `json:"conditions"`
	Steps         []StepSummary        `json:"steps"`
	GenderStats   gender.Stats         `json:"gender_stats"`
	Uploaded      Preview              `json:"uploaded"`
	Matched       Preview              `json:"matched"`
	Gender        *Preview             `json:"gender,omitempty"`
	Download      *DownloadInfo        `json:"download,omitempty"`
	Duration      time.Duration        `json:"duration_ns"`
}

// Blocked reports whether a condition prevented the download
func (r *SiftResult) Blocked() bool {
	return r.Conditions.Blocking()
}

// SiftService runs uploads through the pipeline and keeps the resulting
// workbooks for download.
type SiftService struct {
	keywords  KeywordSource
	lookup    gender.Lookup
	manager   *operations.Manager
	assembler *exporter.Assembler
	store     *ArtifactStore
	filter    config.FilterConfig
	export    config.ExportConfig
	metrics   *infrastructure.PipelineMetrics
	logger    *slog.Logger
}

// SiftServiceDeps are the collaborators of a SiftService
type SiftServiceDeps struct {
	Keywords  KeywordSource
	Lookup    gender.Lookup
	Manager   *operations.Manager
	Assembler *exporter.Assembler
	Store     *ArtifactStore
	Metrics   *infrastructure.PipelineMetrics
}

// NewSiftService creates the service. A nil Lookup uses the embedded name
// table and a nil Manager runs without metrics.
func NewSiftService(cfg *config.Config, deps SiftServiceDeps, logger *slog.Logger) *SiftService {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Lookup == nil {
		deps.Lookup = gender.DefaultTable()
	}
	if deps.Manager == nil {
		deps.Manager = operations.NewManager(nil, logger)
	}
	if deps.Assembler == nil {
		deps.Assembler = exporter.NewAssembler(cfg.Export, logger)
	}
	return &SiftService{
		keywords:  deps.Keywords,
		lookup:    deps.Lookup,
		manager:   deps.Manager,
		assembler: deps.Assembler,
		store:     deps.Store,
		filter:    cfg.Filter,
		export:    cfg.Export,
		metrics:   deps.Metrics,
		logger:    logger.With(slog.String("component", "sift_service")),
	}
}

// Process parses the upload, runs the pipeline and stores the workbook.
// Degraded runs return a result with conditions; only malformed uploads,
// bad options and internal failures return an error.
func (s *SiftService) Process(ctx context.Context, up Upload, opts SiftOptions) (*SiftResult, error) {
	start := time.Now()

	mode, order, err := s.resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	ds, err := dataprocessing.ParseWorkbook(up.Reader, s.logger)
	if err != nil {
		return nil, err
	}

	snap, err := s.keywords.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	classifier := dataprocessing.NewClassifier(s.filter)
	classifier.Mode = mode

	req := operations.OperationRequest{
		Dataset:     ds,
		Lookup:      s.lookup,
		Classifier:  classifier,
		GenderOrder: order,
	}
	if snap.Configured() {
		req.Matcher = snap.Matcher
	}

	state, err := s.manager.Execute(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "sift run failed",
			slog.String("filename", up.Filename),
			slog.String("error", err.Error()))
		return nil, err
	}

	result := &SiftResult{
		RunID:         state.ID,
		Filename:      up.Filename,
		PartitionMode: mode,
		GenderOrder:   order,
		Rows:          ds.Len(),
		MatchedRows:   state.Partition.Matched.Len(),
		Keywords:      snap.Keywords.Len(),
		Conditions:    state.Conditions,
		Steps:         summarizeSteps(state),
		GenderStats:   state.GenderStats,
		Uploaded:      preview(ds, s.filter.PreviewRows),
		Matched:       preview(state.Partition.Matched, s.filter.PreviewRows),
		Gender:        s.genderPreview(state),
	}

	if !result.Blocked() {
		info, err := s.exportRun(state, mode, up.Filename, opts.FilteredSheet)
		if err != nil {
			return nil, err
		}
		result.Download = info
	}
	result.Duration = time.Since(start)

	s.logger.InfoContext(ctx, "sift run finished",
		slog.String("run_id", result.RunID),
		slog.String("filename", up.Filename),
		slog.Int("rows", result.Rows),
		slog.Int("matched", result.MatchedRows),
		slog.Int("conditions", len(result.Conditions)),
		slog.Bool("downloadable", result.Download != nil),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// resolveOptions applies per-request overrides to the configured defaults
func (s *SiftService) resolveOptions(opts SiftOptions) (domain.PartitionMode, domain.GenderOrder, error) {
	modeName, orderName := s.filter.PartitionMode, s.filter.GenderOrder
	if opts.PartitionMode != "" {
		modeName = opts.PartitionMode
	}
	if opts.GenderOrder != "" {
		orderName = opts.GenderOrder
	}

	mode, err := domain.ParsePartitionMode(modeName)
	if err != nil {
		return "", "", apperrors.NewAppError(apperrors.ErrTypeValidation,
			"invalid partition mode", fmt.Errorf("%w: %v", ErrInvalidOptions, err))
	}
	order, err := domain.ParseGenderOrder(orderName)
	if err != nil {
		return "", "", apperrors.NewAppError(apperrors.ErrTypeValidation,
			"invalid gender order", fmt.Errorf("%w: %v", ErrInvalidOptions, err))
	}
	return mode, order, nil
}

// exportRun assembles the workbook for a finished run and stores it
func (s *SiftService) exportRun(state *operations.OperationState, mode domain.PartitionMode, upload, filteredSheet string) (*DownloadInfo, error) {
	filename := exporter.OutputFilename(upload, s.export.FilenameSuffix)
	art, err := s.assembler.Assemble(filename, s.planSheets(state, mode, filteredSheet))
	if errors.Is(err, exporter.ErrSheetNameCollision) || errors.Is(err, exporter.ErrInvalidSheetName) {
		return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid sheet name",
			fmt.Errorf("%w: %v", ErrInvalidOptions, err))
	}
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, apperrors.NewStorageError("no artifact store configured", ErrServiceUnavailable)
	}

	id, expires := s.store.Put(art)
	return &DownloadInfo{
		ID:        id,
		Filename:  art.Filename,
		Size:      art.Size(),
		Sheets:    art.Sheets,
		ExpiresAt: expires,
	}, nil
}

// planSheets names the output sheets. Copy mode writes the full dataset
// first, labelled as tagged when every row carries a gender; split mode
// writes what the filter left behind. A non-empty filteredSheet renames
// the matched rows' sheet.
func (s *SiftService) planSheets(state *operations.OperationState, mode domain.PartitionMode, filteredSheet string) []exporter.Sheet {
	if filteredSheet == "" {
		filteredSheet = s.export.FilteredSheet
	}
	first := exporter.Sheet{Name: s.export.RemainingSheet, Data: state.Partition.Remaining}
	if mode == domain.PartitionCopy {
		first.Name = s.export.PrimarySheet
		if state.Tagged == operations.TaggedAll {
			first.Name = s.export.TaggedSheet
		}
	}
	return []exporter.Sheet{
		first,
		{Name: filteredSheet, Data: state.Partition.Matched},
	}
}

// genderPreview shows the name columns and the label of the tagged rows
func (s *SiftService) genderPreview(state *operations.OperationState) *Preview {
	var tagged *domain.Dataset
	switch state.Tagged {
	case operations.TaggedAll:
		tagged = state.Working
	case operations.TaggedMatched:
		tagged = state.Partition.Matched
	default:
		return nil
	}
	p := preview(tagged.Project(s.filter.NameColumn, lastNameColumn, s.filter.GenderColumn), s.filter.PreviewRows)
	return &p
}

// Keywords returns the active keyword snapshot
func (s *SiftService) Keywords(ctx context.Context) (*keywords.Snapshot, error) {
	return s.keywords.Snapshot(ctx)
}

// ReloadKeywords re-reads the keyword files
func (s *SiftService) ReloadKeywords(ctx context.Context) (*keywords.Snapshot, bool, error) {
	snap, changed, err := s.keywords.Reload(ctx)
	if err != nil {
		return nil, false, err
	}
	s.metrics.RecordKeywordReload(ctx, changed)
	s.logger.InfoContext(ctx, "keywords reloaded",
		slog.Bool("changed", changed),
		slog.Int("keywords", snap.Keywords.Len()),
		slog.Int("version", snap.Version))
	return snap, changed, nil
}

// Download hands out a stored workbook once
func (s *SiftService) Download(ctx context.Context, id string) (*exporter.Artifact, error) {
	if s.store == nil {
		return nil, ErrServiceUnavailable
	}
	art, err := s.store.Take(id)
	if err != nil {
		s.logger.DebugContext(ctx, "download refused",
			slog.String("artifact_id", id),
			slog.String("reason", err.Error()))
		return nil, err
	}
	s.metrics.RecordDownload(ctx)
	return art, nil
}

func preview(ds *domain.Dataset, n int) Preview {
	if ds == nil {
		return Preview{Headers: []string{}, Rows: []domain.Row{}}
	}
	head := ds.Head(n)
	return Preview{Headers: head.Headers, Rows: head.Rows, Total: ds.Len()}
}

func summarizeSteps(state *operations.OperationState) []StepSummary {
	out := make([]StepSummary, 0, len(state.Steps))
	for _, st := range state.Steps {
		out = append(out, StepSummary{
			ID:        st.ID,
			Name:      st.Name,
			Status:    st.GetStatus(),
			Message:   st.Message,
			Condition: st.Condition,
		})
	}
	return out
}
