package exporter

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"contactsift/internal/config"
	apperrors "contactsift/internal/errors"
	"contactsift/pkg/contracts/domain"
)

var (
	// ErrSheetNameCollision is returned when two sheets share a name.
	// Names are compared case-insensitively, as Excel does.
	ErrSheetNameCollision = errors.New("duplicate sheet name")
	// ErrInvalidSheetName is returned for names Excel would reject
	ErrInvalidSheetName = errors.New("invalid sheet name")
	// ErrNoSheets is returned when there is nothing to write
	ErrNoSheets = errors.New("no sheets to export")
)

const maxSheetNameLen = 31

// Sheet pairs a sheet name with its rows
type Sheet struct {
	Name string
	Data *domain.Dataset
}

// Artifact is a finished workbook held in memory
type Artifact struct {
	Filename    string   `json:"filename"`
	ContentType string   `json:"content_type"`
	Data        []byte   `json:"-"`
	Sheets      []string `json:"sheets"`
}

// Size returns the workbook size in bytes
func (a *Artifact) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// Assembler writes datasets into a single .xlsx workbook
type Assembler struct {
	// IncludeEmpty writes a header-only sheet for empty datasets. Without
	// it empty datasets are left out, except the first sheet.
	IncludeEmpty bool
	logger       *slog.Logger
}

// NewAssembler creates an assembler from the export configuration
func NewAssembler(cfg config.ExportConfig, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		IncludeEmpty: cfg.IncludeEmptySheets,
		logger:       logger.With(slog.String("component", "exporter")),
	}
}

// ValidateSheetName checks a name against Excel's rules
func ValidateSheetName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidSheetName)
	case utf8.RuneCountInString(name) > maxSheetNameLen:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidSheetName, name, maxSheetNameLen)
	case strings.ContainsAny(name, `:\/?*[]`):
		return fmt.Errorf("%w: %q contains one of : \\ / ? * [ ]", ErrInvalidSheetName, name)
	case strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"):
		return fmt.Errorf("%w: %q starts or ends with an apostrophe", ErrInvalidSheetName, name)
	}
	return nil
}

// Assemble writes sheets in order and returns the workbook bytes. Sheet
// names must be valid and unique.
func (a *Assembler) Assemble(filename string, sheets []Sheet) (*Artifact, error) {
	seen := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		if err := ValidateSheetName(s.Name); err != nil {
			return nil, err
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w: %q", ErrSheetNameCollision, s.Name)
		}
		seen[key] = true
	}

	var selected []Sheet
	for i, s := range sheets {
		if i > 0 && !a.IncludeEmpty && s.Data.Empty() {
			continue
		}
		selected = append(selected, s)
	}
	if len(selected) == 0 {
		return nil, ErrNoSheets
	}

	f := excelize.NewFile()
	defer f.Close()

	names := make([]string, 0, len(selected))
	for i, s := range selected {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return nil, apperrors.NewExportError("failed to name sheet", err).WithContext("sheet", s.Name)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return nil, apperrors.NewExportError("failed to add sheet", err).WithContext("sheet", s.Name)
		}
		if err := writeSheet(f, s); err != nil {
			return nil, apperrors.NewExportError("failed to write sheet", err).WithContext("sheet", s.Name)
		}
		names = append(names, s.Name)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.NewExportError("failed to serialize workbook", err)
	}

	art := &Artifact{
		Filename:    filename,
		ContentType: config.XLSXContentType,
		Data:        buf.Bytes(),
		Sheets:      names,
	}
	a.log().Debug("workbook assembled",
		slog.String("filename", filename),
		slog.Any("sheets", names),
		slog.Int("bytes", art.Size()))
	return art, nil
}

func (a *Assembler) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// writeSheet streams the header row and every data row
func writeSheet(f *excelize.File, s Sheet) error {
	sw, err := f.NewStreamWriter(s.Name)
	if err != nil {
		return err
	}

	var headers []string
	var rows []domain.Row
	if s.Data != nil {
		headers, rows = s.Data.Headers, s.Data.Rows
	}

	if err := sw.SetRow("A1", toCells(headers)); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(r)); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// OutputFilename derives the download name from the uploaded file name:
// "contacts.xlsx" becomes "contacts_filtered.xlsx". Without a usable base
// name it returns the fallback name.
func OutputFilename(uploadName, suffix string) string {
	name := uploadName
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`"<>|:*?`, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	if name == "" || name == "." || name == ".." {
		return config.FallbackFilename
	}
	return name + suffix + ".xlsx"
}
