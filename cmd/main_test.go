package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratescraper/internal/workbook"
)

const ratesPage = `<html><body>
<table class="table table-condensed table-hover table-bordered">
<tr><td>USD</td><td>24,060</td><td>24,430</td></tr>
</table></body></html>`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("RATES_LOGGING_DIR", filepath.Join(t.TempDir(), "logs"))
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func rateServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") == "01-02-2024" {
			w.Write([]byte(ratesPage))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunWithFlags(t *testing.T) {
	server := rateServer(t)
	output := filepath.Join(t.TempDir(), "rates.xlsx")

	out, err := execute(t, "",
		"--start", "01-02-2024", "--end", "02-02-2024",
		"--output", output, "--base-url", server.URL+"/TyGia")
	require.NoError(t, err)
	assert.Contains(t, out, "Data written to "+output)

	sheets, err := workbook.ReadSheets(output)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-01"}, sheets)
}

func TestRunPromptsForDates(t *testing.T) {
	server := rateServer(t)
	output := filepath.Join(t.TempDir(), "rates.xlsx")

	out, err := execute(t, "01-02-2024\n01-02-2024\n", "--output", output, "--base-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Enter start date (DD-MM-YYYY): ")
	assert.Contains(t, out, "Enter end date (DD-MM-YYYY): ")
	assert.Contains(t, out, "Data written to")
}

func TestRunNothingWritten(t *testing.T) {
	server := rateServer(t)
	output := filepath.Join(t.TempDir(), "rates.xlsx")

	out, err := execute(t, "", "--start", "05-02-2024", "--end", "05-02-2024", "--output", output, "--base-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "left unchanged")
}

func TestRunDefaultOutputPath(t *testing.T) {
	server := rateServer(t)
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("PATH", "/usr/local/bin:/usr/bin")

	out, err := execute(t, "", "--start", "01-02-2024", "--end", "01-02-2024", "--base-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Data written to exchange_rates.xlsx")

	sheets, err := workbook.ReadSheets(filepath.Join(dir, "exchange_rates.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-01"}, sheets)
}

func TestRunRejectsMalformedDate(t *testing.T) {
	out, err := execute(t, "", "--start", "2024-02-01", "--end", "02-02-2024")
	require.Error(t, err)
	assert.Contains(t, out, "start date")
}

func TestRunRejectsBadOverride(t *testing.T) {
	_, err := execute(t, "", "--start", "01-02-2024", "--end", "01-02-2024", "--base-url", "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
