// Package syllabus pulls exam topics out of a course syllabus PDF.
package syllabus

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// DefaultMaxTopics bounds how many topics Topics keeps.
	DefaultMaxTopics = 12
	maxTopicLen      = 80
	maxTopicsLen     = 600
)

// heading matches lines that open a syllabus unit: "1.", "2)", "3 -",
// bullets, or a unit keyword.
var heading = regexp.MustCompile(`(?i)^(\d{1,2}(\.\d{1,2})*[.)\-:]?\s+|[-•*·]\s+|(unidad|unit|tema|topic|m[oó]dulo|module|cap[ií]tulo|chapter)\s+\S+)`)

// ExtractText returns the plain text content of the PDF at path.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return buf.String(), nil
}

// Topics condenses syllabus text into a "; "-separated topics line. Unit
// headings are preferred; text without any falls back to its first lines.
func Topics(text string, max int) string {
	if max <= 0 {
		max = DefaultMaxTopics
	}

	var headings, lines []string
	seen := make(map[string]bool)
	// PDF text often comes out as a few very long lines.
	for _, raw := range strings.Split(text, "\n") {
		line := strings.Join(strings.Fields(raw), " ")
		if line == "" {
			continue
		}
		isHeading := heading.MatchString(line)
		if isHeading {
			line = strings.TrimSpace(heading.ReplaceAllStringFunc(line, keepKeyword))
		}
		line = truncate(line, maxTopicLen)
		key := strings.ToLower(line)
		if line == "" || seen[key] {
			continue
		}
		seen[key] = true
		if isHeading {
			headings = append(headings, line)
		} else {
			lines = append(lines, line)
		}
	}

	picked := headings
	if len(picked) == 0 {
		picked = lines
	}
	if len(picked) > max {
		picked = picked[:max]
	}
	return truncate(strings.Join(picked, "; "), maxTopicsLen)
}

// TopicsFromFile reads the PDF at path and returns its topics line.
func TopicsFromFile(path string, max int) (string, error) {
	text, err := ExtractText(path)
	if err != nil {
		return "", err
	}
	topics := Topics(text, max)
	if topics == "" {
		return "", fmt.Errorf("no text found in %s", path)
	}
	return topics, nil
}

// keepKeyword drops numbering and bullets but keeps "Unit 3"-style
// prefixes, which carry meaning.
func keepKeyword(m string) string {
	trimmed := strings.TrimLeft(m, "-•*· \t")
	if trimmed == "" {
		return ""
	}
	if trimmed[0] >= '0' && trimmed[0] <= '9' {
		return ""
	}
	return m
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
