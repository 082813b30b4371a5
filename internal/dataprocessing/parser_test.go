package dataprocessing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "contactsift/internal/errors"
)

// workbook builds an in-memory .xlsx whose first sheet holds rows
func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	// a second sheet must be ignored
	_, err := f.NewSheet("Ignored")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Ignored", "A1", "nope"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseWorkbook(t *testing.T) {
	data := workbook(t, [][]interface{}{
		{"first name", "last name", "compt"},
		{"Maria", "Lopez", "Art supplies"},
		{"Alex", nil, 42},
		{},
		{"Sam"},
	})

	ds, err := ParseWorkbook(bytes.NewReader(data), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"first name", "last name", "compt"}, ds.Headers)
	require.Equal(t, 3, ds.Len(), "blank rows are dropped")
	assert.Equal(t, []string{"Maria", "Lopez", "Art supplies"}, []string(ds.Rows[0]))
	assert.Equal(t, []string{"Alex", "", "42"}, []string(ds.Rows[1]))
	assert.Equal(t, []string{"Sam", "", ""}, []string(ds.Rows[2]))
}

func TestParseWorkbook_HeaderNormalization(t *testing.T) {
	data := workbook(t, [][]interface{}{
		{"name", "", "name", " Compt ", "name"},
		{"a", "b", "c", "d", "e", "f"},
	})

	ds, err := ParseWorkbook(bytes.NewReader(data), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "Unnamed: 1", "name.1", " Compt ", "name.2", "Unnamed: 5"}, ds.Headers)
	assert.True(t, ds.HasColumn("compt"))
}

func TestParseWorkbook_EmptySheet(t *testing.T) {
	ds, err := ParseWorkbook(bytes.NewReader(workbook(t, nil)), nil)
	require.NoError(t, err)
	assert.Empty(t, ds.Headers)
	assert.True(t, ds.Empty())
}

func TestParseWorkbook_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		message string
	}{
		{"empty", nil, "empty"},
		{"plain text", []byte("first name,compt\nMaria,art\n"), "not an .xlsx"},
		{"legacy xls", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0}, ".xls"},
		{"corrupt zip", []byte("PK\x03\x04garbage"), "failed to open workbook"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := ParseWorkbook(bytes.NewReader(tt.data), nil)
			require.Error(t, err)
			assert.Nil(t, ds)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
			assert.True(t, strings.Contains(appErr.Message, tt.message), appErr.Message)
		})
	}
}
