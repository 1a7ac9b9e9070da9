package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads a daily price file into a MapOracle.
//
//	date,code,open,close
//
// A header row ("date,...") is allowed. Blank rows are skipped.
func LoadCSV(path string) (*MapOracle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader) (*MapOracle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	o := NewMapOracle()
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return o, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}

		q, err := parseQuoteRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		o.Set(q)
	}
}

func parseQuoteRow(row []string) (Quote, error) {
	if len(row) < 4 {
		return Quote{}, fmt.Errorf("bad row (need 4 cols date,code,open,close): %v", row)
	}

	day, err := ParseDate(row[0])
	if err != nil {
		return Quote{}, err
	}

	code := CleanField(row[1])
	if !ValidCode(code) {
		return Quote{}, fmt.Errorf("bad code %q", row[1])
	}

	open, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return Quote{}, fmt.Errorf("bad open %q: %w", row[2], err)
	}
	closeP, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return Quote{}, fmt.Errorf("bad close %q: %w", row[3], err)
	}

	return Quote{Date: day, Code: code, Open: open, Close: closeP}, nil
}
