package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rustyeddy/optfolio/ledger"
)

var CSVHeader = []string{
	"trade_id", "symbol", "side", "type", "start_date", "expiration_date", "strike", "price",
	"contracts", "status", "premium", "commission", "covered", "secured", "closing_price", "notes",
}

// WriteCSV writes trades with a header row, in ledger order.
func WriteCSV(w io.Writer, trades []ledger.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write(csvRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes trades to a new file at path.
func ExportCSV(path string, trades []ledger.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, trades); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]ledger.Trade, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if header[0] != CSVHeader[0] {
		return nil, fmt.Errorf("csv: unexpected header %q", header[0])
	}

	var out []ledger.Trade
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		t, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func csvRow(t ledger.Trade) []string {
	return []string{
		t.ID,
		t.Symbol,
		string(t.Side),
		string(t.Type),
		formatTime(t.StartDate),
		formatTime(t.ExpirationDate),
		f(t.Strike),
		f(t.Price),
		f(t.Contracts),
		string(t.Status),
		f(t.Premium),
		f(t.Commission),
		strconv.FormatBool(t.Covered),
		strconv.FormatBool(t.Secured),
		f(t.ClosingPrice),
		t.Notes,
	}
}

func parseRow(rec []string) (ledger.Trade, error) {
	t := ledger.Trade{
		ID:     rec[0],
		Symbol: rec[1],
		Side:   ledger.Side(rec[2]),
		Type:   ledger.Type(rec[3]),
		Status: ledger.Status(rec[9]),
		Notes:  rec[15],
	}
	if !t.Side.Valid() || !t.Type.Valid() || !t.Status.Valid() {
		return ledger.Trade{}, fmt.Errorf("trade %s: bad side/type/status %q/%q/%q", t.ID, rec[2], rec[3], rec[9])
	}

	var err error
	if t.StartDate, err = parseTime(rec[4]); err != nil {
		return ledger.Trade{}, err
	}
	if t.ExpirationDate, err = parseTime(rec[5]); err != nil {
		return ledger.Trade{}, err
	}

	floats := []struct {
		dst *float64
		src string
	}{
		{&t.Strike, rec[6]},
		{&t.Price, rec[7]},
		{&t.Contracts, rec[8]},
		{&t.Premium, rec[10]},
		{&t.Commission, rec[11]},
		{&t.ClosingPrice, rec[14]},
	}
	for _, fl := range floats {
		if *fl.dst, err = strconv.ParseFloat(fl.src, 64); err != nil {
			return ledger.Trade{}, fmt.Errorf("trade %s: %w", t.ID, err)
		}
	}
	if t.Covered, err = strconv.ParseBool(rec[12]); err != nil {
		return ledger.Trade{}, fmt.Errorf("trade %s: %w", t.ID, err)
	}
	if t.Secured, err = strconv.ParseBool(rec[13]); err != nil {
		return ledger.Trade{}, fmt.Errorf("trade %s: %w", t.ID, err)
	}
	return t, nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
