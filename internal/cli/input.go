package cli

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadTitles loads titles from a .txt, .csv or .xlsx file. Blank titles are skipped.
//
// Text files hold one title per line. For .csv and .xlsx (first sheet), column names a
// header cell whose column holds the titles; when column is empty the first column is
// used and every row, including the first, is a title.
func ReadTitles(path, column string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open titles: %w", err)
		}
		defer f.Close()
		return ReadLines(f)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open titles: %w", err)
		}
		defer f.Close()
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return columnValues(rows, column)
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open Excel: %w", err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
		}
		return columnValues(rows, column)
	default:
		return nil, fmt.Errorf("unsupported titles file %q (want .txt, .csv or .xlsx)", path)
	}
}

// ReadLines returns the non-blank, trimmed lines of r.
func ReadLines(r io.Reader) ([]string, error) {
	var titles []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			titles = append(titles, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read titles: %w", err)
	}
	return titles, nil
}

func columnValues(rows [][]string, column string) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	col := 0
	if column != "" {
		col = -1
		for i, name := range rows[0] {
			if strings.EqualFold(strings.TrimSpace(name), column) {
				col = i
				break
			}
		}
		if col < 0 {
			return nil, errors.New("column " + column + " not found in header")
		}
		rows = rows[1:]
	}
	var titles []string
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			titles = append(titles, v)
		}
	}
	return titles, nil
}
