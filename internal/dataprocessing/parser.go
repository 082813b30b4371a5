package dataprocessing

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "contactsift/internal/errors"
	"contactsift/pkg/contracts/domain"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ParseWorkbook reads the first sheet of an .xlsx workbook into a Dataset.
// The first row holds the headers and cells are read as formatted text.
// Anything that is not a readable workbook is a PARSING error.
func ParseWorkbook(r io.Reader, logger *slog.Logger) (*domain.Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read upload", err)
	}
	switch {
	case len(data) == 0:
		return nil, apperrors.NewParsingError("uploaded file is empty", nil)
	case bytes.HasPrefix(data, oleMagic):
		return nil, apperrors.NewParsingError("legacy .xls workbooks are not supported, save the file as .xlsx", nil)
	case !bytes.HasPrefix(data, zipMagic):
		return nil, apperrors.NewParsingError("uploaded file is not an .xlsx workbook", nil)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("workbook has no sheets", nil)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sheet", err).
			WithContext("sheet", sheet)
	}

	ds := buildDataset(rows)
	logger.Debug("workbook parsed",
		slog.String("sheet", sheet),
		slog.Int("sheets", len(sheets)),
		slog.Int("columns", len(ds.Headers)),
		slog.Int("rows", ds.Len()))
	return ds, nil
}

// buildDataset turns raw sheet rows into a Dataset. Rows that are entirely
// blank are dropped and the schema widens to the longest row.
func buildDataset(rows [][]string) *domain.Dataset {
	if len(rows) == 0 {
		return domain.NewDataset(nil, nil)
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	headers := make([]string, width)
	copy(headers, rows[0])
	headers = normalizeHeaders(headers)

	body := make([]domain.Row, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if blankRow(r) {
			continue
		}
		body = append(body, domain.Row(r))
	}
	return domain.NewDataset(headers, body)
}

// normalizeHeaders names blank headers "Unnamed: N" and suffixes repeated
// headers with ".1", ".2" in order of appearance. Other headers are kept
// exactly as written.
func normalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	taken := make(map[string]bool, len(raw))

	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for taken[name] {
			seen[h]++
			name = fmt.Sprintf("%s.%d", h, seen[h])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
