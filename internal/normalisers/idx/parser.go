// Package idx parses the archive's pipe-delimited daily index listings.
package idx

import (
	"bufio"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

const (
	fieldCount = 5
	dateLayout = "20060102"
)

var (
	headerTerminator = regexp.MustCompile(`^-+$`)
	fileNamePattern  = regexp.MustCompile(`^master\.(\d{8})\.idx$`)
)

// Parse reads a daily index document. Lines up to and including the
// dashed header terminator are skipped; data lines with the wrong number
// of fields are dropped. A line whose date cannot be read keeps a zero
// FiledDate. Order is preserved.
func Parse(text string) []domain.FilingReference {
	var refs []domain.FilingReference

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inData := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !inData {
			inData = headerTerminator.MatchString(strings.TrimSpace(line))
			continue
		}
		if ref, ok := parseLine(line); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func parseLine(line string) (domain.FilingReference, bool) {
	fields := strings.Split(line, "|")
	if len(fields) != fieldCount {
		return domain.FilingReference{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	submission := fields[4]
	id := FilingID(submission)
	if id == "" {
		return domain.FilingReference{}, false
	}

	return domain.FilingReference{
		FilingID:    id,
		CIK:         fields[0],
		CompanyName: fields[1],
		FormType:    fields[2],
		FiledDate:   parseDate(fields[3]),
		Path:        submission,
	}, true
}

func parseDate(value string) time.Time {
	filed, err := time.Parse(dateLayout, value)
	if err != nil {
		// The quarterly form of the index uses dashes.
		filed, err = time.Parse(time.DateOnly, value)
		if err != nil {
			return time.Time{}
		}
	}
	return filed.UTC()
}

// FilingID derives the accession identifier from a submission path: the
// final path segment without its extension.
func FilingID(submissionPath string) string {
	base := path.Base(submissionPath)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// DateFromFileName extracts the date of a daily index file named
// master.YYYYMMDD.idx.
func DateFromFileName(name string) (time.Time, bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
