// Package loader reads target lists from disk.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadTargetList reads up to limit entries from a target list file.
//
// Lines are either "rank,host" (as in public top-sites lists) or a bare host
// or URL. Blank lines and lines starting with '#' are skipped. The returned
// entries are trimmed but otherwise unvalidated. limit <= 0 reads everything.
func ReadTargetList(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening target list: %w", err)
	}
	defer f.Close()

	entries, err := ParseTargetList(f, limit)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return entries, nil
}

// ParseTargetList is ReadTargetList over an arbitrary reader.
func ParseTargetList(r io.Reader, limit int) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var entries []string
	for limit <= 0 || len(entries) < limit {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		entry := pickEntry(record)
		if entry == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// pickEntry returns the host column of a record: the second field of a
// "rank,host" pair, or the whole line when there is no comma.
func pickEntry(record []string) string {
	switch len(record) {
	case 0:
		return ""
	case 1:
		return strings.TrimSpace(record[0])
	default:
		return strings.TrimSpace(record[1])
	}
}
