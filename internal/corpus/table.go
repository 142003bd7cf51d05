// Package corpus loads the transaction table and policy document snapshots
// that the assistant indexes.
package corpus

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"grocerai/internal/domain"
)

const (
	ColumnDateTime    = "date_time"
	ColumnTotalAmount = "total_amount"
)

// ErrMissingColumn is returned when the table header lacks a column the
// aggregate shortcut depends on.
var ErrMissingColumn = errors.New("missing column")

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Row is one transaction. Time and Amount are only meaningful when Valid.
type Row struct {
	Time   time.Time
	Amount float64
	Valid  bool
	Record []string
}

// Table is an in-memory snapshot of the transaction CSV.
type Table struct {
	Path        string
	Header      []string
	Rows        []Row
	Fingerprint string
}

// LoadTable reads a header-indexed CSV. Rows whose timestamp or amount do not
// parse are kept for retrieval but marked invalid.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hash := sha256.New()
	reader := csv.NewReader(io.TeeReader(f, hash))
	reader.FieldsPerRecord = -1

	t := &Table{Path: path}
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		t.Fingerprint = tableFingerprint(0, time.Time{}, hash.Sum(nil))
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	t.Header = header

	timeCol, amountCol := indexOf(header, ColumnDateTime), indexOf(header, ColumnTotalAmount)
	if timeCol < 0 {
		return nil, fmt.Errorf("%s: %w %s", path, ErrMissingColumn, ColumnDateTime)
	}
	if amountCol < 0 {
		return nil, fmt.Errorf("%s: %w %s", path, ErrMissingColumn, ColumnTotalAmount)
	}

	var latest time.Time
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		row := Row{Record: record}
		if timeCol < len(record) && amountCol < len(record) {
			ts, tsErr := ParseTime(record[timeCol])
			amount, amountErr := strconv.ParseFloat(strings.TrimSpace(record[amountCol]), 64)
			if tsErr == nil && amountErr == nil {
				row.Time, row.Amount, row.Valid = ts, amount, true
				if ts.After(latest) {
					latest = ts
				}
			}
		}
		t.Rows = append(t.Rows, row)
	}
	t.Fingerprint = tableFingerprint(len(t.Rows), latest, hash.Sum(nil))
	return t, nil
}

// ParseTime accepts the timestamp layouts written by the data generator and
// common ISO variants, interpreting zone-less values in local time.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// Documents serialises each row as "column: value" lines in header order.
func (t *Table) Documents() []domain.Document {
	docs := make([]domain.Document, 0, len(t.Rows))
	for i, row := range t.Rows {
		var b strings.Builder
		for j, column := range t.Header {
			if j >= len(row.Record) {
				break
			}
			if j > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(column)
			b.WriteString(": ")
			b.WriteString(row.Record[j])
		}
		docs = append(docs, domain.Document{
			ID:      "row-" + strconv.Itoa(i),
			Path:    t.Path,
			Content: b.String(),
		})
	}
	return docs
}

func indexOf(header []string, column string) int {
	for i, h := range header {
		if strings.EqualFold(h, column) {
			return i
		}
	}
	return -1
}

func tableFingerprint(rows int, latest time.Time, sum []byte) string {
	maxTS := ""
	if !latest.IsZero() {
		maxTS = latest.Format(time.RFC3339)
	}
	return fmt.Sprintf("rows=%d;max=%s;sha256=%s", rows, maxTS, hex.EncodeToString(sum))
}
