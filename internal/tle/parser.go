package tle

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Validation failures for single-record parsing. These occur before any
// propagation attempt and are fully recoverable by fixing the input.
var (
	ErrNoLinePair       = errors.New("could not locate TLE line pair in record")
	ErrBadPrefix        = errors.New("bad TLE line prefixes")
	ErrChecksum         = errors.New("checksum failed")
	ErrCatalogMismatch  = errors.New("catalog numbers differ between line 1 and line 2")
	ErrNORADMismatch    = errors.New("catalog number does not match requested NORAD ID")
	ErrEmptyLine        = errors.New("empty TLE line detected")
	ErrCatalogNonNumber = errors.New("catalog number is not numeric")
)

// Checksum validates the modulo-10 checksum of a TLE line per the CelesTrak
// convention: digits contribute their value, '-' contributes 1, everything
// else contributes 0; the last character is the expected digit.
func Checksum(line string) bool {
	line = strings.TrimRight(line, " \r\n")
	if line == "" {
		return false
	}
	expected := int(line[len(line)-1] - '0')
	if expected < 0 || expected > 9 {
		return false
	}
	total := 0
	for _, ch := range line[:len(line)-1] {
		switch {
		case ch >= '0' && ch <= '9':
			total += int(ch - '0')
		case ch == '-':
			total++
		}
	}
	return total%10 == expected
}

// catalogField returns the catalog number field (columns 3-7) of a TLE line.
func catalogField(line string) string {
	if len(line) < 7 {
		return ""
	}
	return strings.TrimSpace(line[2:7])
}

// jsonRecord is the alternate payload shape some providers return instead of
// raw TLE text.
type jsonRecord struct {
	Name  *string `json:"name"`
	Line1 string  `json:"line1"`
	Line2 string  `json:"line2"`
}

// ParseRecord validates a single-object TLE payload into an ElementSet.
//
// The payload is scanned for a "1 "/"2 " line pair, optionally preceded by a
// name line; if no pair is found the payload is retried as a JSON object with
// "line1"/"line2" (and optional "name") fields. Both lines must pass the
// checksum and encode the same catalog number; when wantNORADID is nonzero the
// encoded catalog number must match it. A malformed record fails here rather
// than producing undefined positions downstream.
func ParseRecord(text string, wantNORADID int, source string) (ElementSet, error) {
	var name, line1, line2 string

	lines := splitNonEmpty(text)
	for i := range lines {
		if strings.HasPrefix(lines[i], "1 ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "2 ") {
			if i > 0 && !strings.HasPrefix(lines[i-1], "1 ") && !strings.HasPrefix(lines[i-1], "2 ") {
				name = lines[i-1]
			}
			line1, line2 = lines[i], lines[i+1]
			break
		}
	}

	if line1 == "" || line2 == "" {
		var rec jsonRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return ElementSet{}, ErrNoLinePair
		}
		line1, line2 = rec.Line1, rec.Line2
		if rec.Name != nil {
			name = *rec.Name
		}
	}

	if line1 == "" || line2 == "" {
		return ElementSet{}, ErrEmptyLine
	}
	if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
		return ElementSet{}, ErrBadPrefix
	}
	if !Checksum(line1) || !Checksum(line2) {
		return ElementSet{}, ErrChecksum
	}

	cat1 := catalogField(line1)
	cat2 := catalogField(line2)
	if cat1 != cat2 {
		return ElementSet{}, ErrCatalogMismatch
	}

	catNum, err := strconv.Atoi(cat1)
	if err != nil {
		return ElementSet{}, fmt.Errorf("%w: %q", ErrCatalogNonNumber, cat1)
	}
	if wantNORADID != 0 && wantNORADID != catNum {
		return ElementSet{}, fmt.Errorf("%w: want %d, encoded %d", ErrNORADMismatch, wantNORADID, catNum)
	}

	epoch, err := Epoch(line1)
	if err != nil {
		return ElementSet{}, err
	}

	if source == "" {
		source = "unknown"
	}

	return ElementSet{
		NORADID: catNum,
		Name:    strings.TrimSpace(name),
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
		Source:  source,
	}, nil
}

func splitNonEmpty(text string) []string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

// Parse reads a 3-line NORAD TLE catalog from r and returns the parsed
// entries. Malformed entries are skipped with a warning; one bad record never
// aborts the rest of the catalog.
func Parse(r io.Reader, logger *slog.Logger) ([]ElementSet, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []ElementSet
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Resync on the next plausible triplet.
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}

		rec, err := ParseRecord(name+"\n"+line1+"\n"+line2, 0, "")
		if err != nil {
			logger.Warn("skipping invalid TLE entry", "name", name, "error", err)
			i += 3
			continue
		}

		entries = append(entries, rec)
		i += 3
	}

	return entries, nil
}

// Epoch decodes the element epoch from line 1 columns 19-32 (YYDDD.DDDDDDDD).
// Two-digit years 57-99 map to the 1900s, 00-56 to the 2000s.
func Epoch(line1 string) (time.Time, error) {
	if len(line1) < 32 {
		return time.Time{}, fmt.Errorf("line 1 too short to contain epoch (%d chars)", len(line1))
	}

	year, err := strconv.Atoi(line1[18:20])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", line1[18:20], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	doy, err := strconv.ParseFloat(strings.TrimSpace(line1[20:32]), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", line1[20:32], err)
	}

	// Day-of-year is 1-based: day 1.0 = Jan 1 00:00 UTC.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((doy - 1) * float64(24*time.Hour))), nil
}
