package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/tally-ho/internal/common"
)

// ReadLabels loads template line items, one per line, from a plain text
// file or a single-column CSV. Blank lines are dropped; duplicates are
// preserved in input order since each occurrence needs its own mapping row.
func ReadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var labels []string
	scanner := bufio.NewScanner(file)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = stripBOM(line)
			first = false
		}
		label := cleanLabelLine(line)
		if label == "" {
			continue
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%s: %w", path, common.ErrNoLabels)
	}
	return labels, nil
}

// cleanLabelLine trims a line and unwraps the single-column CSV quoting
// spreadsheet exports apply to labels containing commas.
func cleanLabelLine(line string) string {
	label := strings.TrimSpace(line)
	if strings.HasPrefix(label, `"`) && strings.HasSuffix(label, `"`) && len(label) >= 2 {
		label = strings.ReplaceAll(label[1:len(label)-1], `""`, `"`)
		label = strings.TrimSpace(label)
	}
	return label
}
