package workbook

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ratescraper/models"
)

func table(day int, rows ...[]string) models.RateTable {
	return models.RateTable{
		Date: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Rows: rows,
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]DuplicatePolicy{
		"":        DuplicateSkip,
		"skip":    DuplicateSkip,
		"replace": DuplicateReplace,
		"error":   DuplicateError,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePolicy("merge")
	assert.Error(t, err)
}

func TestNewWorkbookOneSheetPerDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "exchange_rates.xlsx")

	w, err := Open(path, DuplicateSkip)
	require.NoError(t, err)
	assert.False(t, w.Appending())

	ok, err := w.WriteSheet(table(1, []string{"USD", "25,000", "25,100"}, []string{"EUR", "27,000"}))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = w.WriteSheet(table(2, []string{"JPY", "170"}))
	require.NoError(t, err)
	assert.True(t, ok)

	// nothing on disk until Close
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, w.Close())

	sheets, err := ReadSheets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, sheets)

	rows, err := ReadRows(path, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"USD", "25,000", "25,100"}, {"EUR", "27,000"}}, rows)
}

func TestCellsStayText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.xlsx")
	w, err := Open(path, DuplicateSkip)
	require.NoError(t, err)

	_, err = w.WriteSheet(table(5, []string{"1", "23.5", "2024-01-01"}))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	for _, cell := range []string{"A1", "B1", "C1"} {
		typ, err := f.GetCellType("2024-03-05", cell)
		require.NoError(t, err)
		assert.Contains(t, []excelize.CellType{excelize.CellTypeSharedString, excelize.CellTypeInlineString}, typ, cell)
	}
}

func TestFreshSessionWithoutSheetsWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.xlsx")

	w, err := Open(path, DuplicateSkip)
	require.NoError(t, err)
	assert.Empty(t, w.Sheets())
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAppendKeepsExistingSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.xlsx")

	w, err := Open(path, DuplicateSkip)
	require.NoError(t, err)
	_, err = w.WriteSheet(table(1, []string{"USD", "1"}))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = Open(path, DuplicateSkip)
	require.NoError(t, err)
	assert.True(t, w.Appending())
	assert.Equal(t, []string{"2024-03-01"}, w.Sheets())

	_, err = w.WriteSheet(table(2, []string{"USD", "2"}))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	sheets, err := ReadSheets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, sheets)

	rows, err := ReadRows(path, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"USD", "1"}}, rows)
}

func TestDuplicateSheetPolicies(t *testing.T) {
	seed := func(t *testing.T) string {
		path := filepath.Join(t.TempDir(), "rates.xlsx")
		w, err := Open(path, DuplicateSkip)
		require.NoError(t, err)
		_, err = w.WriteSheet(table(1, []string{"USD", "old"}, []string{"EUR", "old"}))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return path
	}

	t.Run("skip keeps the existing sheet", func(t *testing.T) {
		path := seed(t)
		w, err := Open(path, DuplicateSkip)
		require.NoError(t, err)

		ok, err := w.WriteSheet(table(1, []string{"USD", "new"}))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []string{"2024-03-01"}, w.Sheets())
		require.NoError(t, w.Close())

		rows, err := ReadRows(path, "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"USD", "old"}, {"EUR", "old"}}, rows)
	})

	t.Run("replace rewrites the sheet", func(t *testing.T) {
		path := seed(t)
		w, err := Open(path, DuplicateReplace)
		require.NoError(t, err)

		ok, err := w.WriteSheet(table(1, []string{"USD", "new"}))
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, w.Close())

		sheets, err := ReadSheets(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-03-01"}, sheets)

		rows, err := ReadRows(path, "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"USD", "new"}}, rows)
	})

	t.Run("error fails the write", func(t *testing.T) {
		path := seed(t)
		w, err := Open(path, DuplicateError)
		require.NoError(t, err)

		ok, err := w.WriteSheet(table(1, []string{"USD", "new"}))
		assert.False(t, ok)
		require.ErrorIs(t, err, ErrSheetExists)

		var sheetErr *SheetError
		require.ErrorAs(t, err, &sheetErr)
		assert.Equal(t, "2024-03-01", sheetErr.Sheet)
		require.NoError(t, w.Close())
	})
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.xlsx")
	w, err := Open(path, DuplicateSkip)
	require.NoError(t, err)

	_, err = w.WriteSheet(table(1, []string{"USD"}))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.WriteSheet(table(2, []string{"USD"}))
	assert.ErrorIs(t, err, ErrClosed)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
	assert.Equal(t, "rates.xlsx", entries[0].Name())
}

func TestOpenRejectsDirectoryAndGarbage(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, DuplicateSkip)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(garbage, []byte("not a zip"), 0o644))
	_, err = Open(garbage, DuplicateSkip)
	assert.Error(t, err)
}

func TestReadRowsMissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.xlsx")
	w, err := Open(path, DuplicateSkip)
	require.NoError(t, err)
	_, err = w.WriteSheet(table(1, []string{"USD"}))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = ReadRows(path, "2024-12-31")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}
