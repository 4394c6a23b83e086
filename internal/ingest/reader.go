package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/qepting91/plandit-scraper/internal/domain"
)

// Regex for valid subreddit and username targets
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,21}$`)

// LoadTargets reads a targets CSV with a header row and `name,type`
// records, where type is "subreddit" (or empty) or "user". Invalid rows
// are skipped, not fatal.
func LoadTargets(path string) ([]domain.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1

	var targets []domain.Target
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		line++
		if line == 1 {
			continue // header
		}
		if len(record) == 0 {
			continue
		}

		name := strings.TrimSpace(record[0])
		name = strings.TrimPrefix(name, "r/")
		name = strings.TrimPrefix(name, "u/")
		if !nameRegex.MatchString(name) {
			continue
		}

		isUser := false
		if len(record) > 1 {
			isUser = strings.EqualFold(strings.TrimSpace(record[1]), "user")
		}

		targets = append(targets, domain.Target{Name: name, IsUser: isUser})
	}
	return targets, nil
}

// ParseTargets turns a comma-separated list like "golang,u/someone" into
// targets, for configuration without a CSV file.
func ParseTargets(raw string) ([]domain.Target, error) {
	var targets []domain.Target
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		isUser := strings.HasPrefix(part, "u/")
		name := strings.TrimPrefix(strings.TrimPrefix(part, "u/"), "r/")
		if !nameRegex.MatchString(name) {
			return nil, fmt.Errorf("invalid target name: %q", part)
		}
		targets = append(targets, domain.Target{Name: name, IsUser: isUser})
	}
	return targets, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
