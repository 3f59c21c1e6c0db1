package journal

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/optfolio/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrades() []ledger.Trade {
	return []ledger.Trade{
		{
			ID: "T1", Symbol: "AAPL", Side: ledger.STO, Type: ledger.Call,
			StartDate:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			ExpirationDate: time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC),
			Strike:         185, Price: 2.5, Contracts: -1, Status: ledger.Open,
			Premium: 249, Commission: 1, Covered: true, Notes: "weekly, covered",
		},
		{
			ID: "T2", Symbol: "AAPL", Side: ledger.BTO, Type: ledger.Stock,
			StartDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Price:     182.5, Contracts: 100, Status: ledger.Open,
			Premium: -18251, Commission: 1,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTrades()))

	reader := csv.NewReader(strings.NewReader(buf.String()))
	header, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, CSVHeader, header)

	row, err := reader.Read()
	require.NoError(t, err)
	want := []string{
		"T1", "AAPL", "STO", "Call",
		"2024-01-02T00:00:00Z", "2024-01-19T00:00:00Z",
		"185", "2.5", "-1", "open", "249", "1", "true", "false", "0",
		"weekly, covered",
	}
	assert.Equal(t, want, row)

	row, err = reader.Read()
	require.NoError(t, err)
	assert.Equal(t, "", row[5])
	assert.Equal(t, "-18251", row[10])
}

func TestReadCSVRestoresTrades(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")
	require.NoError(t, ExportCSV(path, sampleTrades()))

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	got, err := ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, got, 2)

	want := sampleTrades()
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Premium, got[i].Premium)
		assert.Equal(t, want[i].Contracts, got[i].Contracts)
		assert.True(t, want[i].StartDate.Equal(got[i].StartDate))
		assert.True(t, want[i].ExpirationDate.Equal(got[i].ExpirationDate))
	}
	assert.True(t, got[0].Covered)
	assert.Equal(t, "weekly, covered", got[0].Notes)
}

func TestReadCSVRejectsBadRows(t *testing.T) {
	t.Parallel()

	got, err := ReadCSV(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, got)

	var buf bytes.Buffer
	bad := sampleTrades()[:1]
	bad[0].Side = "SELL"
	require.NoError(t, WriteCSV(&buf, bad))
	_, err = ReadCSV(&buf)
	assert.ErrorContains(t, err, "csv line 2")
}
