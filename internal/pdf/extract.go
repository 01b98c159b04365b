// Package pdf extracts a candidate paper's title and abstract from a PDF.
package pdf

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText indicates the PDF has no extractable text (e.g. a scanned image).
var ErrNoText = errors.New("no extractable text in PDF")

// maxPages is how many leading pages are searched for the abstract.
const maxPages = 2

// Candidate is the text pulled out of a paper's first pages.
type Candidate struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	ArXivID  string `json:"arxiv_id,omitempty"`
}

var (
	// arXiv stamps identifiers like "arXiv:2401.00001v2 [cs.CL] 1 Jan 2024" in the margin.
	arxivPattern = regexp.MustCompile(`arXiv:(\d{4}\.\d{4,5}(v\d+)?|[a-z-]+(\.[A-Z]{2})?/\d{7}(v\d+)?)`)

	abstractHeading = regexp.MustCompile(`(?i)^\s*abstract\b[\s.:\-—–]*`)

	sectionHeading = regexp.MustCompile(`(?i)^\s*((\d+|[ivx]+)\.?\s+)?(introduction|keywords|key words|index terms|background|ccs concepts)\b`)
)

// ExtractCandidate reads the first pages of the PDF at path and returns its
// title and abstract. A missing abstract is not an error; the Abstract field
// is left empty.
func ExtractCandidate(path string) (Candidate, error) {
	text, err := ExtractText(path, maxPages)
	if err != nil {
		return Candidate{}, fmt.Errorf("reading PDF: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Candidate{}, ErrNoText
	}
	return ParseCandidate(text), nil
}

// ExtractText extracts all text from the first N pages of a PDF.
func ExtractText(filePath string, pages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if pages <= 0 || pages > r.NumPage() {
		pages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// ParseCandidate applies the title and abstract heuristics to extracted text.
func ParseCandidate(text string) Candidate {
	lines := strings.Split(text, "\n")
	return Candidate{
		Title:    findTitle(lines),
		Abstract: findAbstract(lines),
		ArXivID:  findArXivID(text),
	}
}

// findTitle returns the first substantial line that is not page furniture.
func findTitle(lines []string) string {
	for _, line := range lines {
		line = collapseSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// findAbstract collects the text after an "Abstract" heading up to the next
// section heading.
func findAbstract(lines []string) string {
	start := -1
	var first string
	for i, line := range lines {
		if loc := abstractHeading.FindStringIndex(line); loc != nil {
			start = i
			first = line[loc[1]:]
			break
		}
	}
	if start < 0 {
		return ""
	}

	parts := []string{first}
	for _, line := range lines[start+1:] {
		if sectionHeading.MatchString(line) {
			break
		}
		parts = append(parts, line)
	}
	return joinLines(parts)
}

// joinLines joins wrapped lines, undoing end-of-line hyphenation.
func joinLines(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		p = collapseSpace(p)
		if p == "" {
			continue
		}
		cur := b.String()
		switch {
		case cur == "":
		case strings.HasSuffix(cur, "-") && startsLower(p):
			b.Reset()
			b.WriteString(strings.TrimSuffix(cur, "-"))
		default:
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

func startsLower(s string) bool {
	return s != "" && s[0] >= 'a' && s[0] <= 'z'
}

// findArXivID returns the first arXiv identifier stamped in text.
func findArXivID(text string) string {
	m := arxivPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	// Common header patterns
	if strings.Contains(lower, "journal") {
		return true
	}
	if strings.Contains(lower, "volume") && strings.Contains(lower, "issue") {
		return true
	}
	if strings.Contains(lower, "copyright") || strings.Contains(lower, "preprint") {
		return true
	}
	if strings.Contains(lower, "article") && strings.Contains(lower, "published") {
		return true
	}
	if arxivPattern.MatchString(line) {
		return true
	}
	return false
}
