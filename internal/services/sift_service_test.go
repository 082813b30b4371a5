package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"contactsift/internal/config"
	apperrors "contactsift/internal/errors"
	"contactsift/internal/infrastructure"
	"contactsift/internal/keywords"
	"contactsift/pkg/contracts/domain"
)

type mockKeywordSource struct {
	mock.Mock
}

func (m *mockKeywordSource) Snapshot(ctx context.Context) (*keywords.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keywords.Snapshot), args.Error(1)
}

func (m *mockKeywordSource) Reload(ctx context.Context) (*keywords.Snapshot, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*keywords.Snapshot), args.Bool(1), args.Error(2)
}

var contactRows = [][]string{
	{"first name", "last name", "compt"},
	{"Maria", "Lopez", "art gallery"},
	{"Alex", "Smith", "party supplies"},
	{"Alex", "Jones", "This is a SCAM company"},
	{"John", "Doe", "bakery"},
}

func contactsWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range contactRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func newTestService(t *testing.T, words ...string) (*SiftService, *ArtifactStore) {
	t.Helper()
	store := NewArtifactStore(time.Minute, nil)
	t.Cleanup(store.Close)

	expander := keywords.NewExpander(keywords.StaticProvider{
		Config: keywords.Config{Base: words},
	}, nil)
	svc := NewSiftService(config.Default(), SiftServiceDeps{
		Keywords: expander,
		Store:    store,
	}, nil)
	return svc, store
}

func upload(t *testing.T) Upload {
	return Upload{Filename: "contacts.xlsx", Reader: bytes.NewReader(contactsWorkbook(t))}
}

func readWorkbook(t *testing.T, data []byte) map[string][][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	out := map[string][][]string{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		require.NoError(t, err)
		out[name] = rows
	}
	return out
}

func TestSiftService_Process(t *testing.T) {
	svc, store := newTestService(t, "art", "scam")

	result, err := svc.Process(context.Background(), upload(t), SiftOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.PartitionCopy, result.PartitionMode)
	assert.Equal(t, domain.GenderAfter, result.GenderOrder)
	assert.Equal(t, 4, result.Rows)
	assert.Equal(t, 2, result.MatchedRows)
	assert.Equal(t, 2, result.Keywords)
	assert.Empty(t, result.Conditions)
	assert.False(t, result.Blocked())
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "Found 2 matching rows", result.Steps[0].Message)

	assert.Equal(t, 4, result.Uploaded.Total)
	assert.Equal(t, []string{"first name", "last name", "compt"}, result.Uploaded.Headers)
	assert.Equal(t, 2, result.Matched.Total)

	require.NotNil(t, result.Gender)
	assert.Equal(t, []string{"first name", "last name", "gender"}, result.Gender.Headers)
	assert.Equal(t, []domain.Row{
		{"Maria", "Lopez", "female"},
		{"Alex", "Jones", "andy"},
	}, result.Gender.Rows)

	require.NotNil(t, result.Download)
	assert.Equal(t, "contacts_filtered.xlsx", result.Download.Filename)
	assert.Equal(t, []string{config.SheetOriginal, config.SheetFiltered}, result.Download.Sheets)
	assert.Equal(t, 1, store.Len())

	art, err := svc.Download(context.Background(), result.Download.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Download.Size, art.Size())

	sheets := readWorkbook(t, art.Data)
	assert.Equal(t, contactRows, sheets[config.SheetOriginal])
	assert.Equal(t, [][]string{
		{"first name", "last name", "compt", "gender"},
		{"Maria", "Lopez", "art gallery", "female"},
		{"Alex", "Jones", "This is a SCAM company", "andy"},
	}, sheets[config.SheetFiltered])

	_, err = svc.Download(context.Background(), result.Download.ID)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestSiftService_SheetPlan(t *testing.T) {
	tests := []struct {
		name string
		opts SiftOptions
		want []string
	}{
		{"copy after", SiftOptions{PartitionMode: "copy", GenderOrder: "after"}, []string{config.SheetOriginal, config.SheetFiltered}},
		{"copy before", SiftOptions{PartitionMode: "copy", GenderOrder: "before"}, []string{config.SheetTagged, config.SheetFiltered}},
		{"copy off", SiftOptions{PartitionMode: "copy", GenderOrder: "off"}, []string{config.SheetOriginal, config.SheetFiltered}},
		{"split", SiftOptions{PartitionMode: "split", GenderOrder: "before"}, []string{config.SheetRemaining, config.SheetFiltered}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, "scam")
			result, err := svc.Process(context.Background(), upload(t), tt.opts)
			require.NoError(t, err)
			require.NotNil(t, result.Download)
			assert.Equal(t, tt.want, result.Download.Sheets)
		})
	}
}

func TestSiftService_SplitModeRows(t *testing.T) {
	svc, _ := newTestService(t, "scam")
	result, err := svc.Process(context.Background(), upload(t), SiftOptions{PartitionMode: "split", GenderOrder: "off"})
	require.NoError(t, err)

	art, err := svc.Download(context.Background(), result.Download.ID)
	require.NoError(t, err)
	sheets := readWorkbook(t, art.Data)

	assert.Len(t, sheets[config.SheetRemaining], 4, "header plus three rows")
	assert.Len(t, sheets[config.SheetFiltered], 2, "header plus one row")
	assert.Nil(t, result.Gender)
}

func TestSiftService_NoFilterConfigured(t *testing.T) {
	svc, store := newTestService(t)

	result, err := svc.Process(context.Background(), upload(t), SiftOptions{})
	require.NoError(t, err)

	assert.True(t, result.Blocked())
	assert.True(t, result.Conditions.Has(domain.CondNoFilterConfigured))
	assert.Nil(t, result.Download, "no download is offered without filter words")
	assert.Equal(t, 0, store.Len())

	// previews are still shown and every row is tagged
	assert.Equal(t, 4, result.Uploaded.Total)
	require.NotNil(t, result.Gender)
	assert.Equal(t, 4, result.Gender.Total)
}

func TestSiftService_MissingTextColumn(t *testing.T) {
	svc, _ := newTestService(t, "art")
	cfg := config.Default()
	cfg.Filter.TextColumn = "description"
	svc.filter = cfg.Filter

	result, err := svc.Process(context.Background(), upload(t), SiftOptions{})
	require.NoError(t, err)

	assert.True(t, result.Conditions.Has(domain.CondMissingTextColumn))
	assert.False(t, result.Blocked())
	require.NotNil(t, result.Download, "warnings still produce a workbook")
	assert.Equal(t, 0, result.MatchedRows)
}

func TestSiftService_Errors(t *testing.T) {
	svc, _ := newTestService(t, "art")

	t.Run("invalid options", func(t *testing.T) {
		_, err := svc.Process(context.Background(), upload(t), SiftOptions{PartitionMode: "shuffle"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidOptions)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
	})

	t.Run("malformed upload", func(t *testing.T) {
		_, err := svc.Process(context.Background(),
			Upload{Filename: "notes.xlsx", Reader: bytes.NewReader([]byte("just text"))}, SiftOptions{})
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
	})

	t.Run("keyword load failure", func(t *testing.T) {
		source := &mockKeywordSource{}
		cfgErr := apperrors.NewConfigError("failed to parse translation file", errors.New("bad yaml"))
		source.On("Snapshot", mock.Anything).Return(nil, cfgErr)

		broken := NewSiftService(config.Default(), SiftServiceDeps{Keywords: source}, nil)
		_, err := broken.Process(context.Background(), upload(t), SiftOptions{})
		assert.ErrorIs(t, err, cfgErr)
		source.AssertExpectations(t)
	})

	t.Run("unknown download", func(t *testing.T) {
		_, err := svc.Download(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrArtifactNotFound)
	})
}

func TestSiftService_Idempotent(t *testing.T) {
	svc, _ := newTestService(t, "art", "scam")

	var workbooks []map[string][][]string
	for i := 0; i < 2; i++ {
		result, err := svc.Process(context.Background(), upload(t), SiftOptions{GenderOrder: "before"})
		require.NoError(t, err)
		art, err := svc.Download(context.Background(), result.Download.ID)
		require.NoError(t, err)
		workbooks = append(workbooks, readWorkbook(t, art.Data))
	}
	assert.Equal(t, workbooks[0], workbooks[1])
}

func TestSiftService_ReloadKeywords(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := infrastructure.CreatePipelineMetrics(provider.Meter("test"))
	require.NoError(t, err)

	snap := &keywords.Snapshot{Keywords: keywords.NewSet("art"), Version: 2}
	source := &mockKeywordSource{}
	source.On("Reload", mock.Anything).Return(snap, true, nil).Once()
	source.On("Reload", mock.Anything).Return(nil, false, errors.New("disk gone")).Once()

	svc := NewSiftService(config.Default(), SiftServiceDeps{Keywords: source, Metrics: metrics}, nil)

	got, changed, err := svc.ReloadKeywords(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Same(t, snap, got)

	_, _, err = svc.ReloadKeywords(context.Background())
	assert.EqualError(t, err, "disk gone")
	source.AssertExpectations(t)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var reloads int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "sift_keyword_reloads_total" {
				for _, dp := range s.DataPoints {
					reloads += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), reloads)
}

func TestSiftService_FilteredSheetOverride(t *testing.T) {
	svc, _ := newTestService(t, "scam")

	result, err := svc.Process(context.Background(), upload(t), SiftOptions{FilteredSheet: "Scams"})
	require.NoError(t, err)
	assert.Equal(t, []string{config.SheetOriginal, "Scams"}, result.Download.Sheets)

	_, err = svc.Process(context.Background(), upload(t), SiftOptions{FilteredSheet: "original_data"})
	assert.ErrorIs(t, err, ErrInvalidOptions, "collides with the first sheet")

	_, err = svc.Process(context.Background(), upload(t), SiftOptions{FilteredSheet: "a/b"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
}
